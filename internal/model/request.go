package model

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// Terminal reports whether no further transitions can happen from s.
func (s Status) Terminal() bool {
	return s == StatusSent || s == StatusFailed
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusSent, StatusFailed:
		return true
	}
	return false
}

type Priority int

const (
	PriorityLow    Priority = 1
	PriorityMedium Priority = 2
	PriorityHigh   Priority = 3
)

func (p Priority) Valid() bool {
	return p >= PriorityLow && p <= PriorityHigh
}

func (p Priority) String() string {
	switch p {
	case PriorityLow:
		return "low"
	case PriorityMedium:
		return "medium"
	case PriorityHigh:
		return "high"
	}
	return fmt.Sprintf("priority(%d)", int(p))
}

// Subject references the business entity a notification is about.
type Subject struct {
	EntityType string `json:"entity_type"`
	EntityID   int64  `json:"entity_id"`
}

// Request is a row of the notification queue.
type Request struct {
	ID           int64      `db:"queue_id" json:"queue_id"`
	Kind         string     `db:"notification_type" json:"notification_type"`
	EntityType   *string    `db:"entity_type" json:"entity_type,omitempty"`
	EntityID     *int64     `db:"entity_id" json:"entity_id,omitempty"`
	Message      string     `db:"message" json:"message"`
	Recipients   Recipients `db:"recipients" json:"recipients"`
	Priority     Priority   `db:"priority" json:"priority"`
	Status       Status     `db:"status" json:"status"`
	RetryCount   int        `db:"retry_count" json:"retry_count"`
	ErrorMessage *string    `db:"error_message" json:"error_message,omitempty"`
	AvailableAt  time.Time  `db:"available_at" json:"available_at"`
	ClaimedBy    *string    `db:"claimed_by" json:"claimed_by,omitempty"`
	ClaimedAt    *time.Time `db:"claimed_at" json:"claimed_at,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Subject returns the referenced entity, or nil when the request has none.
func (r *Request) Subject() *Subject {
	if r.EntityType == nil || r.EntityID == nil {
		return nil
	}
	return &Subject{EntityType: *r.EntityType, EntityID: *r.EntityID}
}

func (r *Request) SetSubject(s *Subject) {
	if s == nil {
		r.EntityType, r.EntityID = nil, nil
		return
	}
	et, id := s.EntityType, s.EntityID
	r.EntityType, r.EntityID = &et, &id
}

// Validate checks the fields a caller controls before the request is enqueued.
func (r *Request) Validate() error {
	if r.Kind == "" {
		return fmt.Errorf("%w: notification type is required", ErrInvalidRequest)
	}
	if r.Message == "" {
		return fmt.Errorf("%w: message is required", ErrInvalidRequest)
	}
	if !r.Priority.Valid() {
		return ErrInvalidPriority
	}
	if err := r.Recipients.Err(); err != nil {
		return err
	}
	if r.Recipients.Empty() {
		return ErrNoRecipients
	}
	return nil
}

// Recipients addresses a request either to explicit users or to roles,
// never both. On the wire it is a flat JSON list of numbers or of strings.
type Recipients struct {
	UserIDs []int64
	Roles   []string
	// invalid is set when a stored value could not be decoded.
	invalid error
}

func UserRecipients(ids ...int64) Recipients { return Recipients{UserIDs: ids} }

func RoleRecipients(roles ...string) Recipients { return Recipients{Roles: roles} }

func (r Recipients) Empty() bool {
	return len(r.UserIDs) == 0 && len(r.Roles) == 0
}

func (r Recipients) ByRole() bool {
	return len(r.Roles) > 0
}

// Err reports why the recipients cannot be resolved, if they cannot.
func (r Recipients) Err() error {
	if r.invalid != nil {
		return r.invalid
	}
	if len(r.UserIDs) > 0 && len(r.Roles) > 0 {
		return ErrMixedRecipients
	}
	return nil
}

// MarshalJSON writes the flat list form. Mixed values are written as is so
// that broken rows stay visible in audit listings.
func (r Recipients) MarshalJSON() ([]byte, error) {
	items := make([]any, 0, len(r.UserIDs)+len(r.Roles))
	for _, id := range r.UserIDs {
		items = append(items, id)
	}
	for _, role := range r.Roles {
		items = append(items, role)
	}
	return json.Marshal(items)
}

func (r *Recipients) UnmarshalJSON(data []byte) error {
	out, err := decodeRecipients(data)
	if err != nil {
		return err
	}
	*r = out
	return nil
}

func decodeRecipients(data []byte) (Recipients, error) {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return Recipients{}, nil
	}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return Recipients{}, fmt.Errorf("%w: recipients must be a list", ErrInvalidRequest)
	}

	var out Recipients
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) > 0 && item[0] == '"' {
			var role string
			if err := json.Unmarshal(item, &role); err != nil {
				return Recipients{}, fmt.Errorf("%w: bad role %s", ErrInvalidRequest, item)
			}
			out.Roles = append(out.Roles, role)
			continue
		}
		var id int64
		if err := json.Unmarshal(item, &id); err != nil {
			return Recipients{}, fmt.Errorf("%w: recipient %s is neither a user id nor a role", ErrInvalidRequest, item)
		}
		out.UserIDs = append(out.UserIDs, id)
	}

	if len(out.UserIDs) > 0 && len(out.Roles) > 0 {
		return out, ErrMixedRecipients
	}
	return out, nil
}

// Value stores recipients as JSON text so the same column works on
// PostgreSQL (JSONB) and SQLite (TEXT).
func (r Recipients) Value() (driver.Value, error) {
	if err := r.Err(); err != nil {
		return nil, err
	}
	b, err := r.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan never fails on malformed content; the row is loaded and the problem
// is reported by Err so the dispatcher can fail that request alone.
func (r *Recipients) Scan(src any) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*r = Recipients{}
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into recipients", src)
	}

	out, err := decodeRecipients(data)
	if err != nil && !errors.Is(err, ErrMixedRecipients) {
		out = Recipients{invalid: err}
	}
	*r = out
	return nil
}

// StatusUpdate is a dispatcher transition persisted to the queue.
type StatusUpdate struct {
	ID     int64
	Status Status
	// Owner, when set, restricts the update to a row still claimed by it.
	Owner       string
	RetryCount  *int
	Error       *string
	AvailableAt *time.Time
	At          time.Time
}
