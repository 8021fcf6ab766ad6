package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"reimburse/internal/auth"
	apperrors "reimburse/internal/errors"
	"reimburse/internal/model"
	"reimburse/internal/repository"
	"reimburse/internal/storage"
	"reimburse/internal/workflow"
)

// Document is an uploaded supporting file.
type Document struct {
	Filename string
	Content  io.Reader
}

// RequestInput carries the editable fields of a reimbursement request.
type RequestInput struct {
	ExpenseCategory string
	Amount          decimal.Decimal
	Description     string
	// SubmittedAt replaces the request date on update when set.
	SubmittedAt *time.Time
	// Document is required on create and optional on update.
	Document *Document
}

// RequestService handles the reimbursement request lifecycle.
type RequestService interface {
	Create(ctx context.Context, caller auth.Principal, in RequestInput) (*model.Request, *model.Tracking, error)
	Update(ctx context.Context, caller auth.Principal, id uint, in RequestInput) (*model.Request, error)
	Delete(ctx context.Context, caller auth.Principal, id uint) error
	Get(ctx context.Context, caller auth.Principal, id uint) (*model.Request, error)
	List(ctx context.Context, caller auth.Principal) ([]model.Request, error)
	ListByUsername(ctx context.Context, caller auth.Principal, username string) ([]model.Request, error)
	ListByCategory(ctx context.Context, caller auth.Principal, category string) ([]model.Request, error)
}

type requestService struct {
	store    *repository.Store
	docs     storage.DocumentStore
	recorder EventRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewRequestService creates a new request service.
func NewRequestService(store *repository.Store, docs storage.DocumentStore, recorder EventRecorder, logger *zap.Logger) RequestService {
	return &requestService{
		store:    store,
		docs:     docs,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

func validateRequestInput(in *RequestInput) error {
	in.ExpenseCategory = strings.TrimSpace(in.ExpenseCategory)
	if in.ExpenseCategory == "" {
		return apperrors.ErrValidation.With("expense category is required")
	}
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return apperrors.ErrInvalidAmount
	}
	return nil
}

// Create saves the document and inserts the request together with its Pending tracking.
func (s *requestService) Create(ctx context.Context, caller auth.Principal, in RequestInput) (*model.Request, *model.Tracking, error) {
	if err := requireEmployee(caller); err != nil {
		return nil, nil, err
	}
	if err := validateRequestInput(&in); err != nil {
		return nil, nil, err
	}
	if in.Document == nil || in.Document.Content == nil {
		return nil, nil, apperrors.ErrDocumentMissing
	}

	url, err := s.docs.Save(ctx, in.Document.Filename, in.Document.Content)
	if err != nil {
		return nil, nil, apperrors.Service("save document", err)
	}

	request := &model.Request{
		Username:        caller.Username,
		ExpenseCategory: in.ExpenseCategory,
		Amount:          in.Amount,
		DocumentURL:     url,
		Description:     strings.TrimSpace(in.Description),
		SubmittedAt:     s.now(),
	}
	tracking := &model.Tracking{Status: workflow.Initial, Version: 1}

	if err := s.store.Requests.CreateWithTracking(ctx, request, tracking); err != nil {
		s.discardDocument(ctx, url)
		return nil, nil, apperrors.Service("create request", err)
	}

	s.recorder.Record(ctx, model.TrackingEvent{
		TrackingID: tracking.ID,
		RequestID:  request.ID,
		ToStatus:   tracking.Status,
		Actor:      caller.Username,
	})
	s.logger.Info("request created",
		zap.Uint("request_id", request.ID),
		zap.String("username", request.Username),
		zap.String("amount", request.Amount.StringFixed(2)))

	return request, tracking, nil
}

// Update replaces the editable fields of a request owned by caller.
// Requests whose tracking reached a terminal status are locked.
func (s *requestService) Update(ctx context.Context, caller auth.Principal, id uint, in RequestInput) (*model.Request, error) {
	if err := requireEmployee(caller); err != nil {
		return nil, err
	}
	if err := validateRequestInput(&in); err != nil {
		return nil, err
	}

	// Ownership and lock are checked before any file is written.
	if _, err := s.loadEditable(ctx, s.store, caller, id); err != nil {
		return nil, err
	}

	var newURL string
	if in.Document != nil && in.Document.Content != nil {
		url, err := s.docs.Save(ctx, in.Document.Filename, in.Document.Content)
		if err != nil {
			return nil, apperrors.Service("save document", err)
		}
		newURL = url
	}

	var (
		updated *model.Request
		oldURL  string
	)
	err := s.store.Atomic(ctx, func(ctx context.Context, tx *repository.Store) error {
		request, err := s.loadEditable(ctx, tx, caller, id)
		if err != nil {
			return err
		}

		request.ExpenseCategory = in.ExpenseCategory
		request.Amount = in.Amount
		request.Description = strings.TrimSpace(in.Description)
		if in.SubmittedAt != nil {
			request.SubmittedAt = *in.SubmittedAt
		}
		if newURL != "" {
			oldURL = request.DocumentURL
			request.DocumentURL = newURL
		}

		if err := tx.Requests.Update(ctx, request); err != nil {
			return apperrors.Service("update request", err)
		}
		updated = request
		return nil
	})
	if err != nil {
		if newURL != "" {
			s.discardDocument(ctx, newURL)
		}
		return nil, err
	}

	if oldURL != "" {
		s.discardDocument(ctx, oldURL)
	}
	return updated, nil
}

func (s *requestService) loadEditable(ctx context.Context, store *repository.Store, caller auth.Principal, id uint) (*model.Request, error) {
	request, err := store.Requests.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr("find request", err, apperrors.ErrRequestNotFound)
	}
	if !caller.Owns(request.Username) {
		return nil, apperrors.ErrForbidden.With("not the owner")
	}

	tracking, err := store.Trackings.FindByRequestID(ctx, id)
	switch {
	case err == nil:
		if workflow.IsTerminal(tracking.Status) {
			return nil, apperrors.ErrRequestLocked.With("status is %s", tracking.Status)
		}
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperrors.Service("find tracking", err)
	}
	return request, nil
}

// Delete removes a request owned by caller together with its tracking.
// Paid requests cannot be removed.
func (s *requestService) Delete(ctx context.Context, caller auth.Principal, id uint) error {
	if err := requireEmployee(caller); err != nil {
		return err
	}

	var url string
	err := s.store.Atomic(ctx, func(ctx context.Context, tx *repository.Store) error {
		request, err := tx.Requests.FindByID(ctx, id)
		if err != nil {
			return lookupErr("find request", err, apperrors.ErrRequestNotFound)
		}
		if !caller.Owns(request.Username) {
			return apperrors.ErrForbidden.With("not the owner")
		}

		paid, err := tx.Payments.ExistsForRequest(ctx, id)
		if err != nil {
			return apperrors.Service("check payment", err)
		}
		if paid {
			return apperrors.ErrRequestLocked.With("payment already recorded")
		}

		if err := tx.Requests.DeleteWithTracking(ctx, id); err != nil {
			return lookupErr("delete request", err, apperrors.ErrRequestNotFound)
		}
		url = request.DocumentURL
		return nil
	})
	if err != nil {
		return err
	}

	s.discardDocument(ctx, url)
	s.logger.Info("request deleted", zap.Uint("request_id", id), zap.String("username", caller.Username))
	return nil
}

// Get returns a request readable by caller.
func (s *requestService) Get(ctx context.Context, caller auth.Principal, id uint) (*model.Request, error) {
	request, err := s.store.Requests.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr("find request", err, apperrors.ErrRequestNotFound)
	}
	if err := requireReader(caller, request.Username); err != nil {
		return nil, err
	}
	return request, nil
}

func (s *requestService) List(ctx context.Context, caller auth.Principal) ([]model.Request, error) {
	if err := requireHR(caller); err != nil {
		return nil, err
	}
	requests, err := s.store.Requests.List(ctx)
	if err != nil {
		return nil, apperrors.Service("list requests", err)
	}
	return requests, nil
}

// ListByUsername lists the requests of username. Unknown users are NotFound.
func (s *requestService) ListByUsername(ctx context.Context, caller auth.Principal, username string) ([]model.Request, error) {
	if err := requireReader(caller, username); err != nil {
		return nil, err
	}
	if _, err := s.store.Users.FindByUsername(ctx, username); err != nil {
		return nil, lookupErr("find user", err, apperrors.ErrUserNotFound)
	}
	requests, err := s.store.Requests.ListByUsername(ctx, username)
	if err != nil {
		return nil, apperrors.Service("list requests", err)
	}
	return requests, nil
}

// ListByCategory lists requests of an expense category. An empty result is NotFound.
func (s *requestService) ListByCategory(ctx context.Context, caller auth.Principal, category string) ([]model.Request, error) {
	if err := requireHR(caller); err != nil {
		return nil, err
	}
	requests, err := s.store.Requests.ListByCategory(ctx, strings.TrimSpace(category))
	if err != nil {
		return nil, apperrors.Service("list requests", err)
	}
	if len(requests) == 0 {
		return nil, apperrors.ErrRequestNotFound.With("no requests in category %q", category)
	}
	return requests, nil
}

func (s *requestService) discardDocument(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := s.docs.Delete(ctx, url); err != nil {
		s.logger.Warn("remove document", zap.String("url", url), zap.Error(err))
	}
}
