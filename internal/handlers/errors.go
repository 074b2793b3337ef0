package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"vendoralerts/internal/model"
)

var errInvalidLimit = errors.New("limit must be a positive integer")

// respondError maps domain errors to status codes. Unexpected errors are
// logged and reported without detail.
func respondError(c echo.Context, log *slog.Logger, msg string, err error) error {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": verrs.Error()})
	case model.IsValidation(err):
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, model.ErrNotFound):
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
	}

	log.Error(msg, "error", err, "path", c.Path())
	return c.JSON(http.StatusInternalServerError, map[string]string{"error": msg})
}

// bindError reports decode failures. Domain errors raised while decoding
// (bad recipients, for one) keep their message.
func bindError(c echo.Context, err error) error {
	if model.IsValidation(err) {
		var he *echo.HTTPError
		if errors.As(err, &he) && he.Internal != nil {
			err = he.Internal
		}
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
}
