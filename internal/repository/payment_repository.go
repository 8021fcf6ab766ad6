package repository

import (
	"context"

	"gorm.io/gorm"

	"reimburse/internal/model"
)

// PaymentRepository defines payment persistence operations.
type PaymentRepository interface {
	Create(ctx context.Context, payment *model.PaymentDetails) error
	Update(ctx context.Context, payment *model.PaymentDetails) error
	Delete(ctx context.Context, id uint) error
	FindByID(ctx context.Context, id uint) (*model.PaymentDetails, error)
	ExistsForRequest(ctx context.Context, requestID uint) (bool, error)
	List(ctx context.Context) ([]model.PaymentDetails, error)
}

type paymentRepository struct {
	db *gorm.DB
}

// NewPaymentRepository creates a new payment repository.
func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

// Create creates a new payment record.
func (r *paymentRepository) Create(ctx context.Context, payment *model.PaymentDetails) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

// Update updates an existing payment record.
func (r *paymentRepository) Update(ctx context.Context, payment *model.PaymentDetails) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

// Delete removes a payment record, returning gorm.ErrRecordNotFound if absent.
func (r *paymentRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&model.PaymentDetails{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// FindByID finds a payment by ID.
func (r *paymentRepository) FindByID(ctx context.Context, id uint) (*model.PaymentDetails, error) {
	var payment model.PaymentDetails
	if err := r.db.WithContext(ctx).First(&payment, id).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// ExistsForRequest reports whether a payment was recorded against a request.
func (r *paymentRepository) ExistsForRequest(ctx context.Context, requestID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&model.PaymentDetails{}).
		Where("request_id = ?", requestID).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// List lists all payment records.
func (r *paymentRepository) List(ctx context.Context) ([]model.PaymentDetails, error) {
	var payments []model.PaymentDetails
	if err := r.db.WithContext(ctx).Order("id").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}
