package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "reimburse/internal/errors"
	"reimburse/internal/model"
)

func TestCanTransition_FullTable(t *testing.T) {
	allowed := map[model.TrackingStatus][]model.TrackingStatus{
		model.TrackingStatusPending:  {model.TrackingStatusVerified, model.TrackingStatusApproved, model.TrackingStatusRejected},
		model.TrackingStatusVerified: {model.TrackingStatusApproved, model.TrackingStatusRejected},
		model.TrackingStatusApproved: nil,
		model.TrackingStatusRejected: nil,
	}

	for _, from := range Statuses() {
		for _, to := range Statuses() {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equalf(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestCheck(t *testing.T) {
	assert.NoError(t, Check(model.TrackingStatusPending, model.TrackingStatusApproved))

	err := Check(model.TrackingStatusApproved, model.TrackingStatusPending)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
	assert.Equal(t, apperrors.KindInvalidTransition, apperrors.KindOf(err))

	assert.Error(t, Check(model.TrackingStatusPending, model.TrackingStatusPending))

	assert.Contains(t, err.Error(), "allowed: none")
	err = Check(model.TrackingStatusVerified, model.TrackingStatusPending)
	assert.Contains(t, err.Error(), "allowed: Approved, Rejected")
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	for _, s := range Statuses() {
		if IsTerminal(s) {
			assert.Empty(t, Next(s), s)
		} else {
			assert.NotEmpty(t, Next(s), s)
		}
	}
	assert.Equal(t, model.TrackingStatusPending, Initial)
	assert.False(t, IsTerminal(Initial))
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" approved ")
	require.NoError(t, err)
	assert.Equal(t, model.TrackingStatusApproved, st)

	_, err = ParseStatus("Paid")
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatus)
}
