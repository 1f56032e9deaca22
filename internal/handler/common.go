package handler // handler defines http handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/studioflow/class-booking/internal/repository"
	"github.com/studioflow/class-booking/internal/service"
)

// getUserID extracts the user_id placed in the context by the JWT
// middleware. Subjects are UUID strings issued by the identity provider.
func getUserID(c echo.Context) (string, error) {
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("invalid user_id in context")
}

// Validator adapts go-playground/validator to echo's Validator
// interface so handlers can call c.Validate on bound request bodies.
type Validator struct {
	v *validator.Validate
}

// NewValidator constructs the request validator used by the server.
func NewValidator() *Validator {
	return &Validator{v: validator.New()}
}

// Validate implements echo.Validator.
func (va *Validator) Validate(i interface{}) error {
	return va.v.Struct(i)
}

// writeCoordinatorError translates coordinator and repository errors
// into HTTP responses. Validation failures map to client errors with
// the sentinel's message; conflicts that survived the bounded retry map
// to 503 so clients know to retry; a capacity invariant violation is a
// bug and is logged before surfacing a 500.
func writeCoordinatorError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrClassNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "class not found"})
	case errors.Is(err, repository.ErrAlreadyBooked),
		errors.Is(err, repository.ErrNotBooked),
		errors.Is(err, repository.ErrAlreadyWaitlisted),
		errors.Is(err, repository.ErrNotWaitlisted),
		errors.Is(err, service.ErrRequestInFlight):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrClassFull),
		errors.Is(err, repository.ErrClassStarted):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrTxConflict):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "transaction conflict, retry"})
	case errors.Is(err, repository.ErrCapacityExceeded):
		log.Printf("handler: capacity invariant violation surfaced: %v", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
}
