package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store bundles every repository over one database handle so that several
// writes can share a transaction.
type Store struct {
	db *gorm.DB

	Users          UserRepository
	Profiles       UserProfileRepository
	Requests       RequestRepository
	Trackings      TrackingRepository
	TrackingEvents TrackingEventRepository
	Payments       PaymentRepository
}

// NewStore builds all repositories over db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:             db,
		Users:          NewUserRepository(db),
		Profiles:       NewUserProfileRepository(db),
		Requests:       NewRequestRepository(db),
		Trackings:      NewTrackingRepository(db),
		TrackingEvents: NewTrackingEventRepository(db),
		Payments:       NewPaymentRepository(db),
	}
}

// DB returns the database handle the store was built on.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Atomic executes fn within a database transaction. Repositories on tx are
// bound to that transaction; fn must not use the outer Store.
func (s *Store) Atomic(ctx context.Context, fn func(ctx context.Context, tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, NewStore(tx))
	})
}
