package httpapi

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/goliatone/go-insight/components/dashboard"
)

// ErrBadRequest marks malformed payloads and failed validation.
var ErrBadRequest = errors.New("httpapi: bad request")

// ErrPreviewUnavailable is returned when no row resolver backs previews.
var ErrPreviewUnavailable = errors.New("httpapi: preview is not configured")

var validate = validator.New()

// Validate runs struct tag validation and wraps failures in ErrBadRequest.
func Validate(v any) error {
	if err := validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			first := verrs[0]
			return &requestError{field: first.Field(), tag: first.Tag()}
		}
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}

type requestError struct {
	field string
	tag   string
}

func (e *requestError) Error() string {
	return "invalid field " + e.field + ": " + e.tag
}

func (e *requestError) Unwrap() error { return ErrBadRequest }

// StatusFor maps service errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrBadRequest),
		errors.Is(err, dashboard.ErrInvalidWidget),
		errors.Is(err, dashboard.ErrInvalidConnection),
		errors.Is(err, dashboard.ErrInvalidInterval),
		errors.Is(err, dashboard.ErrInvalidSchedule),
		errors.Is(err, dashboard.ErrUnknownField),
		errors.Is(err, dashboard.ErrIncompleteConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, dashboard.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, dashboard.ErrConfirmationRequired),
		errors.Is(err, dashboard.ErrRefreshInProgress):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrNothingToExport):
		return http.StatusUnprocessableEntity
	case errors.Is(err, dashboard.ErrNotStarted):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrPreviewUnavailable):
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}
