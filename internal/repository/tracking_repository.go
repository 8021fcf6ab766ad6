package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"reimburse/internal/model"
)

// ErrVersionConflict is returned when a tracking row changed since it was read.
var ErrVersionConflict = errors.New("tracking version conflict")

// TrackingRepository defines tracking persistence operations.
type TrackingRepository interface {
	Create(ctx context.Context, tracking *model.Tracking) error
	FindByID(ctx context.Context, id uint) (*model.Tracking, error)
	FindByRequestID(ctx context.Context, requestID uint) (*model.Tracking, error)
	List(ctx context.Context) ([]model.Tracking, error)
	ListByUsername(ctx context.Context, username string) ([]model.Tracking, error)
	// CompareAndSwap writes status and dates only if the stored version still
	// equals tracking.Version, then bumps the version.
	CompareAndSwap(ctx context.Context, tracking *model.Tracking) error
}

type trackingRepository struct {
	db *gorm.DB
}

// NewTrackingRepository creates a new tracking repository.
func NewTrackingRepository(db *gorm.DB) TrackingRepository {
	return &trackingRepository{db: db}
}

func (r *trackingRepository) Create(ctx context.Context, tracking *model.Tracking) error {
	if tracking.Version == 0 {
		tracking.Version = 1
	}
	return r.db.WithContext(ctx).Create(tracking).Error
}

func (r *trackingRepository) FindByID(ctx context.Context, id uint) (*model.Tracking, error) {
	var tracking model.Tracking
	if err := r.db.WithContext(ctx).First(&tracking, id).Error; err != nil {
		return nil, err
	}
	return &tracking, nil
}

func (r *trackingRepository) FindByRequestID(ctx context.Context, requestID uint) (*model.Tracking, error) {
	var tracking model.Tracking
	if err := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&tracking).Error; err != nil {
		return nil, err
	}
	return &tracking, nil
}

func (r *trackingRepository) List(ctx context.Context) ([]model.Tracking, error) {
	var trackings []model.Tracking
	if err := r.db.WithContext(ctx).Order("id").Find(&trackings).Error; err != nil {
		return nil, err
	}
	return trackings, nil
}

// ListByUsername lists the tracking rows of every request owned by username.
func (r *trackingRepository) ListByUsername(ctx context.Context, username string) ([]model.Tracking, error) {
	var trackings []model.Tracking
	err := r.db.WithContext(ctx).
		Joins("JOIN requests ON requests.id = trackings.request_id").
		Where("requests.username = ?", username).
		Order("trackings.id").
		Find(&trackings).Error
	if err != nil {
		return nil, err
	}
	return trackings, nil
}

func (r *trackingRepository) CompareAndSwap(ctx context.Context, tracking *model.Tracking) error {
	res := r.db.WithContext(ctx).Model(&model.Tracking{}).
		Where("id = ? AND version = ?", tracking.ID, tracking.Version).
		Updates(map[string]interface{}{
			"status":             tracking.Status,
			"approval_date":      tracking.ApprovalDate,
			"reimbursement_date": tracking.ReimbursementDate,
			"version":            tracking.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	tracking.Version++
	return nil
}

// TrackingEventRepository defines tracking history persistence operations.
type TrackingEventRepository interface {
	Create(ctx context.Context, event *model.TrackingEvent) error
	CreateBatch(ctx context.Context, events []model.TrackingEvent) error
	ListByRequestID(ctx context.Context, requestID uint) ([]model.TrackingEvent, error)
}

type trackingEventRepository struct {
	db *gorm.DB
}

// NewTrackingEventRepository creates a new tracking event repository.
func NewTrackingEventRepository(db *gorm.DB) TrackingEventRepository {
	return &trackingEventRepository{db: db}
}

// Create creates a new tracking event.
func (r *trackingEventRepository) Create(ctx context.Context, event *model.TrackingEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// CreateBatch creates multiple tracking events in a single statement batch.
func (r *trackingEventRepository) CreateBatch(ctx context.Context, events []model.TrackingEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(events, 100).Error
}

// ListByRequestID lists the history of a request, oldest first.
func (r *trackingEventRepository) ListByRequestID(ctx context.Context, requestID uint) ([]model.TrackingEvent, error) {
	var events []model.TrackingEvent
	if err := r.db.WithContext(ctx).Where("request_id = ?", requestID).
		Order("created_at, id").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
