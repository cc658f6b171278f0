package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/peacoop/campaign-site/internal/render"
	"github.com/peacoop/campaign-site/internal/sheets"
)

// ErrValidation indicates request validation failure
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// HTTPStatus returns the appropriate HTTP status code for an error. Wrapped
// errors are matched by their innermost known type.
func HTTPStatus(err error) int {
	var (
		validationErr *ErrValidation
		storeErr      *sheets.StoreError
		transportErr  *sheets.TransportError
		networkErr    *sheets.NetworkError
		templateErr   *render.TemplateError
		renderErr     *render.RenderError
	)

	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &transportErr):
		if transportErr.Kind == sheets.Timeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusBadGateway
	case errors.As(err, &storeErr), errors.As(err, &networkErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &templateErr), errors.As(err, &renderErr):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
