package service

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"reimburse/internal/auth"
	apperrors "reimburse/internal/errors"
	"reimburse/internal/model"
	"reimburse/internal/repository"
)

// PaymentInput carries the fields of a payment record.
type PaymentInput struct {
	RequestID         uint
	BankAccountNumber string
	RoutingCode       string
	Amount            decimal.Decimal
	PaymentDate       *time.Time
}

// PaymentService records disbursements against approved requests.
// Every payment it returns has its bank account number masked.
type PaymentService interface {
	Record(ctx context.Context, caller auth.Principal, in PaymentInput) (*model.PaymentDetails, error)
	Update(ctx context.Context, caller auth.Principal, paymentID uint, in PaymentInput) (*model.PaymentDetails, error)
	Delete(ctx context.Context, caller auth.Principal, paymentID uint) error
	Get(ctx context.Context, caller auth.Principal, paymentID uint) (*model.PaymentDetails, error)
	List(ctx context.Context, caller auth.Principal) ([]model.PaymentDetails, error)
}

type paymentService struct {
	store     *repository.Store
	validator *BankValidator
	logger    *zap.Logger
	now       func() time.Time
}

// NewPaymentService creates a new payment service.
func NewPaymentService(store *repository.Store, logger *zap.Logger) PaymentService {
	return &paymentService{
		store:     store,
		validator: NewBankValidator(),
		logger:    logger,
		now:       time.Now,
	}
}

// Record stores the single payment of an approved request and stamps the
// tracking's reimbursement date when it is still empty.
func (s *paymentService) Record(ctx context.Context, caller auth.Principal, in PaymentInput) (*model.PaymentDetails, error) {
	if err := requireHR(caller); err != nil {
		return nil, err
	}
	account, routing := s.validator.Normalize(in.BankAccountNumber, in.RoutingCode)
	if err := s.validator.Validate(account, routing); err != nil {
		return nil, err
	}
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, apperrors.ErrInvalidAmount
	}

	paidAt := s.now()
	if in.PaymentDate != nil {
		paidAt = *in.PaymentDate
	}

	payment := &model.PaymentDetails{
		RequestID:         in.RequestID,
		BankAccountNumber: account,
		RoutingCode:       routing,
		Amount:            in.Amount,
		PaymentDate:       paidAt,
		RecordedBy:        caller.Username,
	}

	err := s.store.Atomic(ctx, func(ctx context.Context, tx *repository.Store) error {
		request, err := tx.Requests.FindByID(ctx, in.RequestID)
		if err != nil {
			return lookupErr("find request", err, apperrors.ErrRequestNotFound)
		}

		tracking, err := tx.Trackings.FindByRequestID(ctx, in.RequestID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperrors.ErrRequestNotApproved.With("request has no tracking")
			}
			return apperrors.Service("find tracking", err)
		}
		if tracking.Status != model.TrackingStatusApproved {
			return apperrors.ErrRequestNotApproved.With("status is %s", tracking.Status)
		}

		exists, err := tx.Payments.ExistsForRequest(ctx, in.RequestID)
		if err != nil {
			return apperrors.Service("check payment", err)
		}
		if exists {
			return apperrors.ErrPaymentAlreadyExists.With("request %d", in.RequestID)
		}
		if !in.Amount.Equal(request.Amount) {
			return apperrors.ErrAmountMismatch.With("expected %s", request.Amount.StringFixed(2))
		}

		if err := tx.Payments.Create(ctx, payment); err != nil {
			return writeErr("create payment", err, apperrors.ErrPaymentAlreadyExists.With("request %d", in.RequestID))
		}

		if tracking.ReimbursementDate == nil {
			reimbursed := paidAt
			tracking.ReimbursementDate = &reimbursed
			if err := tx.Trackings.CompareAndSwap(ctx, tracking); err != nil {
				if errors.Is(err, repository.ErrVersionConflict) {
					return apperrors.ErrConcurrentUpdate
				}
				return apperrors.Service("stamp reimbursement date", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment recorded",
		zap.Uint("payment_id", payment.ID),
		zap.Uint("request_id", payment.RequestID),
		zap.String("amount", payment.Amount.StringFixed(2)),
		zap.String("recorded_by", caller.Username))

	return s.masked(payment), nil
}

// Update changes the bank details, amount or date of a payment. The request
// it belongs to cannot change.
func (s *paymentService) Update(ctx context.Context, caller auth.Principal, paymentID uint, in PaymentInput) (*model.PaymentDetails, error) {
	if err := requireHR(caller); err != nil {
		return nil, err
	}

	var updated *model.PaymentDetails
	err := s.store.Atomic(ctx, func(ctx context.Context, tx *repository.Store) error {
		payment, err := tx.Payments.FindByID(ctx, paymentID)
		if err != nil {
			return lookupErr("find payment", err, apperrors.ErrPaymentNotFound)
		}
		if in.RequestID != 0 && in.RequestID != payment.RequestID {
			return apperrors.ErrValidation.With("request of a payment cannot change")
		}

		if in.BankAccountNumber != "" || in.RoutingCode != "" {
			account, routing := s.validator.Normalize(in.BankAccountNumber, in.RoutingCode)
			if account == "" {
				account = payment.BankAccountNumber
			}
			if routing == "" {
				routing = payment.RoutingCode
			}
			if err := s.validator.Validate(account, routing); err != nil {
				return err
			}
			payment.BankAccountNumber = account
			payment.RoutingCode = routing
		}

		if !in.Amount.IsZero() {
			if in.Amount.IsNegative() {
				return apperrors.ErrInvalidAmount
			}
			request, err := tx.Requests.FindByID(ctx, payment.RequestID)
			if err != nil {
				return lookupErr("find request", err, apperrors.ErrRequestNotFound)
			}
			if !in.Amount.Equal(request.Amount) {
				return apperrors.ErrAmountMismatch.With("expected %s", request.Amount.StringFixed(2))
			}
			payment.Amount = in.Amount
		}
		if in.PaymentDate != nil {
			payment.PaymentDate = *in.PaymentDate
		}

		if err := tx.Payments.Update(ctx, payment); err != nil {
			return apperrors.Service("update payment", err)
		}
		updated = payment
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.masked(updated), nil
}

func (s *paymentService) Delete(ctx context.Context, caller auth.Principal, paymentID uint) error {
	if err := requireHR(caller); err != nil {
		return err
	}
	if err := s.store.Payments.Delete(ctx, paymentID); err != nil {
		return lookupErr("delete payment", err, apperrors.ErrPaymentNotFound)
	}
	s.logger.Info("payment deleted", zap.Uint("payment_id", paymentID), zap.String("actor", caller.Username))
	return nil
}

func (s *paymentService) Get(ctx context.Context, caller auth.Principal, paymentID uint) (*model.PaymentDetails, error) {
	if err := requireHR(caller); err != nil {
		return nil, err
	}
	payment, err := s.store.Payments.FindByID(ctx, paymentID)
	if err != nil {
		return nil, lookupErr("find payment", err, apperrors.ErrPaymentNotFound)
	}
	return s.masked(payment), nil
}

func (s *paymentService) List(ctx context.Context, caller auth.Principal) ([]model.PaymentDetails, error) {
	if err := requireHR(caller); err != nil {
		return nil, err
	}
	payments, err := s.store.Payments.List(ctx)
	if err != nil {
		return nil, apperrors.Service("list payments", err)
	}
	for i := range payments {
		payments[i] = *s.masked(&payments[i])
	}
	return payments, nil
}

// masked returns a copy of payment with the bank account number masked.
func (s *paymentService) masked(payment *model.PaymentDetails) *model.PaymentDetails {
	out := *payment
	out.BankAccountNumber = s.validator.MaskAccountNumber(payment.BankAccountNumber)
	return &out
}
