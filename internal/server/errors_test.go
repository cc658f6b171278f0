package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/peacoop/campaign-site/internal/render"
	"github.com/peacoop/campaign-site/internal/sheets"
)

func TestErrValidation(t *testing.T) {
	err := &ErrValidation{Field: "expanded", Message: "must be a boolean"}
	assert.Equal(t, "validation error: expanded - must be a boolean", err.Error())
	assert.Equal(t, http.StatusBadRequest, HTTPStatus(err))
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{
			name:     "nil",
			err:      nil,
			expected: http.StatusOK,
		},
		{
			name:     "ErrValidation",
			err:      &ErrValidation{Field: "body", Message: "invalid JSON"},
			expected: http.StatusBadRequest,
		},
		{
			name:     "StoreError",
			err:      &sheets.StoreError{Table: "policies", Message: "Sheet 'policies' not found"},
			expected: http.StatusBadGateway,
		},
		{
			name:     "wrapped StoreError",
			err:      fmt.Errorf("load: %w", &sheets.StoreError{Table: "policies"}),
			expected: http.StatusBadGateway,
		},
		{
			name:     "callback timeout",
			err:      &sheets.TransportError{Kind: sheets.Timeout, Token: "cb_1"},
			expected: http.StatusGatewayTimeout,
		},
		{
			name:     "callback load failure",
			err:      &sheets.TransportError{Kind: sheets.LoadFailed, Token: "cb_1"},
			expected: http.StatusBadGateway,
		},
		{
			name:     "NetworkError",
			err:      &sheets.NetworkError{URL: "https://store.example", StatusCode: 500},
			expected: http.StatusBadGateway,
		},
		{
			name:     "deadline",
			err:      context.DeadlineExceeded,
			expected: http.StatusGatewayTimeout,
		},
		{
			name:     "TemplateError",
			err:      &render.TemplateError{Name: "downloads", Message: "execute failed"},
			expected: http.StatusInternalServerError,
		},
		{
			name:     "unknown error",
			err:      errors.New("boom"),
			expected: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTTPStatus(tt.err))
		})
	}
}
