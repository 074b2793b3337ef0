package model

import "errors"

var (
	ErrNotFound              = errors.New("not found")
	ErrNotClaimed            = errors.New("request is not claimable")
	ErrInvalidRequest        = errors.New("invalid notification request")
	ErrMixedRecipients       = errors.New("recipients must be all user ids or all role names")
	ErrNoRecipients          = errors.New("at least one recipient is required")
	ErrInvalidPriority       = errors.New("priority must be 1 (low), 2 (medium) or 3 (high)")
	ErrInvalidDeliveryMethod = errors.New("delivery method must be in_app, email or both")
)

// IsValidation reports whether err was caused by caller input.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrMixedRecipients) ||
		errors.Is(err, ErrNoRecipients) ||
		errors.Is(err, ErrInvalidPriority) ||
		errors.Is(err, ErrInvalidDeliveryMethod)
}
