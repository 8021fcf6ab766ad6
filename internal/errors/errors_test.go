package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{name: "sentinel", err: ErrRequestNotFound, want: KindNotFound},
		{name: "wrapped sentinel", err: fmt.Errorf("load: %w", ErrTrackingNotFound), want: KindNotFound},
		{name: "with detail", err: ErrInvalidTransition.With("%s -> %s", "Approved", "Pending"), want: KindInvalidTransition},
		{name: "service", err: Service("create request", errors.New("db down")), want: KindInternal},
		{name: "plain", err: errors.New("boom"), want: KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestErrorIs_MatchesSentinelAfterWith(t *testing.T) {
	err := ErrInvalidTransition.With("Rejected -> Approved")

	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.False(t, errors.Is(err, ErrRequestNotApproved))
	assert.Contains(t, err.Error(), "Rejected -> Approved")
}

func TestService_KeepsDomainErrors(t *testing.T) {
	assert.Nil(t, Service("noop", nil))
	assert.Same(t, ErrPaymentNotFound, Service("get payment", ErrPaymentNotFound))

	cause := errors.New("connection refused")
	err := Service("list payments", cause)
	assert.ErrorIs(t, err, cause)
}

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{ErrRequestNotFound, http.StatusNotFound, "REQUEST_NOT_FOUND"},
		{ErrUserAlreadyExists, http.StatusConflict, "USER_ALREADY_EXISTS"},
		{ErrConcurrentUpdate, http.StatusConflict, "CONCURRENT_UPDATE"},
		{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
		{ErrInvalidAmount, http.StatusBadRequest, "INVALID_AMOUNT"},
		{ErrInvalidTransition, http.StatusUnprocessableEntity, "INVALID_TRANSITION"},
		{Service("x", errors.New("secret dsn leaked")), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			httpErr := MapErrorToHTTP(tt.err)
			assert.Equal(t, tt.status, httpErr.StatusCode)
			assert.Equal(t, tt.code, httpErr.Code)
			assert.NotContains(t, httpErr.Message, "secret")
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "not_found", KindOf(ErrRequestNotFound).String())
	assert.Equal(t, "invalid_transition", KindOf(ErrInvalidTransition.With("x")).String())
	assert.Equal(t, "internal", KindOf(Service("op", assert.AnError)).String())
}
