package repository

import (
	"context"

	"gorm.io/gorm"

	"reimburse/internal/model"
)

// RequestRepository defines reimbursement request persistence operations.
// Requests and their tracking rows are created and deleted together.
type RequestRepository interface {
	CreateWithTracking(ctx context.Context, request *model.Request, tracking *model.Tracking) error
	Update(ctx context.Context, request *model.Request) error
	DeleteWithTracking(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.Request, error)
	List(ctx context.Context) ([]model.Request, error)
	ListByUsername(ctx context.Context, username string) ([]model.Request, error)
	ListByCategory(ctx context.Context, category string) ([]model.Request, error)
}

type requestRepository struct {
	db *gorm.DB
}

// NewRequestRepository creates a new request repository.
func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

// CreateWithTracking inserts the request and its tracking row in one transaction.
// tracking.RequestID is filled in from the generated request ID.
func (r *requestRepository) CreateWithTracking(ctx context.Context, request *model.Request, tracking *model.Tracking) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(request).Error; err != nil {
			return err
		}
		tracking.RequestID = request.ID
		return tx.Create(tracking).Error
	})
}

// Update saves all request columns.
func (r *requestRepository) Update(ctx context.Context, request *model.Request) error {
	return r.db.WithContext(ctx).Save(request).Error
}

// DeleteWithTracking removes the request, its tracking row and tracking history
// in one transaction. It returns gorm.ErrRecordNotFound when the request is absent.
func (r *requestRepository) DeleteWithTracking(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("request_id = ?", id).Delete(&model.TrackingEvent{}).Error; err != nil {
			return err
		}
		if err := tx.Where("request_id = ?", id).Delete(&model.Tracking{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Request{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// FindByID finds a request by ID.
func (r *requestRepository) FindByID(ctx context.Context, id uint) (*model.Request, error) {
	var request model.Request
	if err := r.db.WithContext(ctx).First(&request, id).Error; err != nil {
		return nil, err
	}
	return &request, nil
}

// List lists all requests, newest first.
func (r *requestRepository) List(ctx context.Context) ([]model.Request, error) {
	var requests []model.Request
	if err := r.db.WithContext(ctx).Order("submitted_at DESC, id DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// ListByUsername lists the requests owned by username.
func (r *requestRepository) ListByUsername(ctx context.Context, username string) ([]model.Request, error) {
	var requests []model.Request
	if err := r.db.WithContext(ctx).Where("username = ?", username).
		Order("submitted_at DESC, id DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}

// ListByCategory lists requests whose expense category matches exactly.
func (r *requestRepository) ListByCategory(ctx context.Context, category string) ([]model.Request, error) {
	var requests []model.Request
	if err := r.db.WithContext(ctx).Where("expense_category = ?", category).
		Order("submitted_at DESC, id DESC").Find(&requests).Error; err != nil {
		return nil, err
	}
	return requests, nil
}
