package handler

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	apperrors "reimburse/internal/errors"
)

func TestFail(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		logged  bool
		logKind string
	}{
		{"not found", apperrors.ErrRequestNotFound, http.StatusNotFound, "REQUEST_NOT_FOUND", false, ""},
		{"invalid transition", apperrors.ErrInvalidTransition.With("Approved -> Pending"), http.StatusUnprocessableEntity, "INVALID_TRANSITION", false, ""},
		{"persistence failure", apperrors.Service("create request", errors.New("disk full")), http.StatusInternalServerError, "INTERNAL_ERROR", true, "internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, logs := observer.New(zap.ErrorLevel)
			e := echo.New()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/Request/1", nil), httptest.NewRecorder())

			err := fail(c, zap.New(core), tt.err)

			var he *echo.HTTPError
			require.True(t, errors.As(err, &he))
			assert.Equal(t, tt.status, he.Code)
			resp, ok := he.Message.(apperrors.ErrorResponse)
			require.True(t, ok)
			assert.Equal(t, tt.code, resp.Code)

			if !tt.logged {
				assert.Zero(t, logs.Len())
				return
			}
			require.Equal(t, 1, logs.Len())
			fields := logs.All()[0].ContextMap()
			assert.Equal(t, tt.logKind, fields["kind"])
			assert.NotContains(t, resp.Error, "disk full")
		})
	}
}
