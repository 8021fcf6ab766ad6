package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"reimburse/internal/db/dbtest"
	"reimburse/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(dbtest.New(t))
	for _, u := range []model.User{
		{Username: "alice", PasswordDigest: []byte{1}, DigestKey: []byte{2}, Role: model.RoleEmployee},
		{Username: "bob", PasswordDigest: []byte{1}, DigestKey: []byte{2}, Role: model.RoleEmployee},
		{Username: "hr", PasswordDigest: []byte{1}, DigestKey: []byte{2}, Role: model.RoleHR},
	} {
		u := u
		require.NoError(t, store.Users.Create(context.Background(), &u))
	}
	return store
}

func createRequest(t *testing.T, store *Store, owner, category string) (*model.Request, *model.Tracking) {
	t.Helper()
	req := &model.Request{
		Username:        owner,
		ExpenseCategory: category,
		Amount:          decimal.RequireFromString("120.50"),
		DocumentURL:     "http://localhost/Documents/x.pdf",
		Description:     "Taxi",
		SubmittedAt:     time.Now(),
	}
	tracking := &model.Tracking{Status: model.TrackingStatusPending, Version: 1}
	require.NoError(t, store.Requests.CreateWithTracking(context.Background(), req, tracking))
	return req, tracking
}

func TestRequestRepository_CreateWithTracking(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	req, tracking := createRequest(t, store, "alice", "Travel")

	assert.NotZero(t, req.ID)
	assert.Equal(t, req.ID, tracking.RequestID)

	got, err := store.Trackings.FindByRequestID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TrackingStatusPending, got.Status)
	assert.Nil(t, got.ApprovalDate)
	assert.Nil(t, got.ReimbursementDate)
	assert.EqualValues(t, 1, got.Version)
}

func TestRequestRepository_CreateWithTrackingRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, _ := createRequest(t, store, "alice", "Travel")

	// A second tracking for the same request violates the unique index, so the
	// request insert must be rolled back with it.
	req := &model.Request{
		Username:        "alice",
		ExpenseCategory: "Meals",
		Amount:          decimal.NewFromInt(10),
		SubmittedAt:     time.Now(),
	}
	err := store.Atomic(ctx, func(ctx context.Context, tx *Store) error {
		if err := tx.Requests.CreateWithTracking(ctx, req, &model.Tracking{Status: model.TrackingStatusPending}); err != nil {
			return err
		}
		return tx.Trackings.Create(ctx, &model.Tracking{RequestID: first.ID, Status: model.TrackingStatusPending})
	})
	require.Error(t, err)

	requests, err := store.Requests.ListByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, requests, 1)
}

func TestRequestRepository_DeleteWithTracking(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	req, tracking := createRequest(t, store, "alice", "Travel")
	require.NoError(t, store.TrackingEvents.Create(ctx, &model.TrackingEvent{
		TrackingID: tracking.ID, RequestID: req.ID, ToStatus: model.TrackingStatusPending, Actor: "alice",
	}))

	require.NoError(t, store.Requests.DeleteWithTracking(ctx, req.ID))

	_, err := store.Requests.FindByID(ctx, req.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = store.Trackings.FindByRequestID(ctx, req.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	events, err := store.TrackingEvents.ListByRequestID(ctx, req.ID)
	require.NoError(t, err)
	assert.Empty(t, events)

	assert.ErrorIs(t, store.Requests.DeleteWithTracking(ctx, req.ID), gorm.ErrRecordNotFound)
}

func TestRequestRepository_Lists(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	createRequest(t, store, "alice", "Travel")
	createRequest(t, store, "alice", "Meals")
	createRequest(t, store, "bob", "Travel")

	all, err := store.Requests.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	alice, err := store.Requests.ListByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, alice, 2)

	travel, err := store.Requests.ListByCategory(ctx, "Travel")
	require.NoError(t, err)
	assert.Len(t, travel, 2)

	none, err := store.Requests.ListByCategory(ctx, "Lodging")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTrackingRepository_CompareAndSwap(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	req, _ := createRequest(t, store, "alice", "Travel")

	first, err := store.Trackings.FindByRequestID(ctx, req.ID)
	require.NoError(t, err)
	second, err := store.Trackings.FindByRequestID(ctx, req.ID)
	require.NoError(t, err)

	now := time.Now()
	first.Status = model.TrackingStatusApproved
	first.ApprovalDate = &now
	require.NoError(t, store.Trackings.CompareAndSwap(ctx, first))
	assert.EqualValues(t, 2, first.Version)

	second.Status = model.TrackingStatusRejected
	err = store.Trackings.CompareAndSwap(ctx, second)
	assert.True(t, errors.Is(err, ErrVersionConflict))

	stored, err := store.Trackings.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TrackingStatusApproved, stored.Status)
	require.NotNil(t, stored.ApprovalDate)
	assert.EqualValues(t, 2, stored.Version)
}

func TestTrackingRepository_ListByUsername(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	createRequest(t, store, "alice", "Travel")
	createRequest(t, store, "alice", "Meals")
	createRequest(t, store, "bob", "Travel")

	trackings, err := store.Trackings.ListByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, trackings, 2)

	all, err := store.Trackings.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestTrackingEventRepository_Batch(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	req, tracking := createRequest(t, store, "alice", "Travel")
	require.NoError(t, store.TrackingEvents.CreateBatch(ctx, nil))
	require.NoError(t, store.TrackingEvents.CreateBatch(ctx, []model.TrackingEvent{
		{TrackingID: tracking.ID, RequestID: req.ID, FromStatus: model.TrackingStatusPending, ToStatus: model.TrackingStatusVerified, Actor: "hr"},
		{TrackingID: tracking.ID, RequestID: req.ID, FromStatus: model.TrackingStatusVerified, ToStatus: model.TrackingStatusApproved, Actor: "hr"},
	}))

	events, err := store.TrackingEvents.ListByRequestID(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, model.TrackingStatusVerified, events[0].ToStatus)
	assert.Equal(t, model.TrackingStatusApproved, events[1].ToStatus)
}

func TestPaymentRepository_OnePerRequest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	req, _ := createRequest(t, store, "alice", "Travel")
	payment := &model.PaymentDetails{
		RequestID:         req.ID,
		BankAccountNumber: "123456789012",
		RoutingCode:       "HDFC0001234",
		Amount:            req.Amount,
		PaymentDate:       time.Now(),
	}
	require.NoError(t, store.Payments.Create(ctx, payment))

	exists, err := store.Payments.ExistsForRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.True(t, exists)

	dup := *payment
	dup.ID = 0
	assert.Error(t, store.Payments.Create(ctx, &dup))

	got, err := store.Payments.FindByID(ctx, payment.ID)
	require.NoError(t, err)
	assert.Equal(t, payment.ID, got.ID)
	assert.True(t, got.Amount.Equal(decimal.RequireFromString("120.5")))

	require.NoError(t, store.Payments.Delete(ctx, payment.ID))
	assert.ErrorIs(t, store.Payments.Delete(ctx, payment.ID), gorm.ErrRecordNotFound)
}

func TestUserProfileRepository(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	profile := &model.UserProfile{Username: "alice", FirstName: "Alice", LastName: "Smith", City: "Pune"}
	require.NoError(t, store.Profiles.Create(ctx, profile))

	dup := &model.UserProfile{Username: "alice", FirstName: "Again", LastName: "Smith"}
	assert.Error(t, store.Profiles.Create(ctx, dup))

	got, err := store.Profiles.FindByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, profile.ID, got.ID)

	got.City = "Chennai"
	require.NoError(t, store.Profiles.Update(ctx, got))
	byID, err := store.Profiles.FindByID(ctx, profile.ID)
	require.NoError(t, err)
	assert.Equal(t, "Chennai", byID.City)

	require.NoError(t, store.Profiles.DeleteByUsername(ctx, "alice"))
	assert.ErrorIs(t, store.Profiles.DeleteByUsername(ctx, "alice"), gorm.ErrRecordNotFound)
}
