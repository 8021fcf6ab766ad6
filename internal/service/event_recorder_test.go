package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"reimburse/internal/db/dbtest"
	"reimburse/internal/model"
	"reimburse/internal/repository"
)

func newEventStore(t *testing.T) (*repository.Store, *model.Tracking) {
	t.Helper()
	ctx := context.Background()
	store := repository.NewStore(dbtest.New(t))

	require.NoError(t, store.Users.Create(ctx, &model.User{
		Username: "alice", PasswordDigest: []byte{1}, DigestKey: []byte{2}, Role: model.RoleEmployee,
	}))
	request := &model.Request{
		Username:        "alice",
		ExpenseCategory: "Travel",
		Amount:          decimal.RequireFromString("10"),
		SubmittedAt:     time.Now(),
	}
	tracking := &model.Tracking{Status: model.TrackingStatusPending, Version: 1}
	require.NoError(t, store.Requests.CreateWithTracking(ctx, request, tracking))
	return store, tracking
}

func TestEventRecorder_FlushesOnClose(t *testing.T) {
	store, tracking := newEventStore(t)
	recorder := NewEventRecorder(store.TrackingEvents, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		recorder.Record(ctx, model.TrackingEvent{
			TrackingID: tracking.ID,
			RequestID:  tracking.RequestID,
			ToStatus:   model.TrackingStatusPending,
			Actor:      "alice",
		})
	}
	recorder.Close()
	recorder.Close()

	events, err := store.TrackingEvents.ListByRequestID(ctx, tracking.RequestID)
	require.NoError(t, err)
	assert.Len(t, events, 25)
	for _, e := range events {
		assert.False(t, e.CreatedAt.IsZero())
	}

	// after Close events are written synchronously
	recorder.Record(ctx, model.TrackingEvent{
		TrackingID: tracking.ID,
		RequestID:  tracking.RequestID,
		ToStatus:   model.TrackingStatusVerified,
		Actor:      "hr",
	})
	events, err = store.TrackingEvents.ListByRequestID(ctx, tracking.RequestID)
	require.NoError(t, err)
	assert.Len(t, events, 26)
}

func TestEventRecorder_DropsEventsOfDeletedTracking(t *testing.T) {
	store, tracking := newEventStore(t)
	recorder := NewEventRecorder(store.TrackingEvents, zap.NewNop())
	ctx := context.Background()

	const missing = 9999
	recorder.Record(ctx, model.TrackingEvent{TrackingID: tracking.ID, RequestID: tracking.RequestID, ToStatus: model.TrackingStatusPending, Actor: "alice"})
	recorder.Record(ctx, model.TrackingEvent{TrackingID: missing, RequestID: missing, ToStatus: model.TrackingStatusPending, Actor: "alice"})
	recorder.Record(ctx, model.TrackingEvent{TrackingID: tracking.ID, RequestID: tracking.RequestID, FromStatus: model.TrackingStatusPending, ToStatus: model.TrackingStatusVerified, Actor: "hr"})
	recorder.Close()

	events, err := store.TrackingEvents.ListByRequestID(ctx, tracking.RequestID)
	require.NoError(t, err)
	assert.Len(t, events, 2)

	orphans, err := store.TrackingEvents.ListByRequestID(ctx, missing)
	require.NoError(t, err)
	assert.Empty(t, orphans)
}
