package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"reimburse/internal/auth"
	apperrors "reimburse/internal/errors"
	"reimburse/internal/model"
	"reimburse/internal/repository"
	"reimburse/internal/workflow"
)

// ApprovalInput is an HR decision on a tracking record.
type ApprovalInput struct {
	TrackingID        uint
	Status            string
	ApprovalDate      *time.Time
	ReimbursementDate *time.Time
}

// TrackingService drives the approval workflow of requests.
type TrackingService interface {
	Open(ctx context.Context, caller auth.Principal, requestID uint, status string) (*model.Tracking, error)
	Advance(ctx context.Context, caller auth.Principal, requestID uint, status string) (*model.Tracking, error)
	RecordApproval(ctx context.Context, caller auth.Principal, in ApprovalInput) (*model.Tracking, error)
	GetByRequestID(ctx context.Context, caller auth.Principal, requestID uint) (*model.Tracking, error)
	GetByID(ctx context.Context, caller auth.Principal, id uint) (*model.Tracking, error)
	List(ctx context.Context, caller auth.Principal) ([]model.Tracking, error)
	ListByUsername(ctx context.Context, caller auth.Principal, username string) ([]model.Tracking, error)
	History(ctx context.Context, caller auth.Principal, requestID uint) ([]model.TrackingEvent, error)
}

type trackingService struct {
	store    *repository.Store
	recorder EventRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewTrackingService creates a new tracking service.
func NewTrackingService(store *repository.Store, recorder EventRecorder, logger *zap.Logger) TrackingService {
	return &trackingService{
		store:    store,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// Open creates the missing tracking row of a request in the initial status.
func (s *trackingService) Open(ctx context.Context, caller auth.Principal, requestID uint, status string) (*model.Tracking, error) {
	if status != "" {
		st, err := workflow.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		if st != workflow.Initial {
			return nil, apperrors.ErrInvalidTransition.With("tracking must start %s", workflow.Initial)
		}
	}

	request, err := s.store.Requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, lookupErr("find request", err, apperrors.ErrRequestNotFound)
	}
	if err := requireReader(caller, request.Username); err != nil {
		return nil, err
	}

	if _, err := s.store.Trackings.FindByRequestID(ctx, requestID); err == nil {
		return nil, apperrors.ErrTrackingAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Service("find tracking", err)
	}

	tracking := &model.Tracking{RequestID: requestID, Status: workflow.Initial, Version: 1}
	if err := s.store.Trackings.Create(ctx, tracking); err != nil {
		return nil, writeErr("create tracking", err, apperrors.ErrTrackingAlreadyExists)
	}

	s.record(ctx, tracking, "", caller)
	return tracking, nil
}

// Advance moves the tracking of a request along one workflow edge.
func (s *trackingService) Advance(ctx context.Context, caller auth.Principal, requestID uint, status string) (*model.Tracking, error) {
	if err := requireHR(caller); err != nil {
		return nil, err
	}
	to, err := workflow.ParseStatus(status)
	if err != nil {
		return nil, err
	}

	tracking, err := s.store.Trackings.FindByRequestID(ctx, requestID)
	if err != nil {
		return nil, lookupErr("find tracking", err, apperrors.ErrTrackingNotFound)
	}

	from := tracking.Status
	if err := workflow.Check(from, to); err != nil {
		return nil, err
	}

	tracking.Status = to
	if to == model.TrackingStatusApproved {
		now := s.now()
		tracking.ApprovalDate = &now
	}

	if err := s.swap(ctx, s.store, tracking); err != nil {
		return nil, err
	}

	s.record(ctx, tracking, from, caller)
	return tracking, nil
}

// RecordApproval applies a status and date decision to a tracking record.
// The approval date is fixed once Approved is entered and the reimbursement
// date can be set once while Approved.
func (s *trackingService) RecordApproval(ctx context.Context, caller auth.Principal, in ApprovalInput) (*model.Tracking, error) {
	if err := requireHR(caller); err != nil {
		return nil, err
	}

	tracking, err := s.store.Trackings.FindByID(ctx, in.TrackingID)
	if err != nil {
		return nil, lookupErr("find tracking", err, apperrors.ErrTrackingNotFound)
	}

	from := tracking.Status
	to := from
	if strings.TrimSpace(in.Status) != "" {
		if to, err = workflow.ParseStatus(in.Status); err != nil {
			return nil, err
		}
	}
	if to != from {
		if err := workflow.Check(from, to); err != nil {
			return nil, err
		}
	}

	changed := to != from
	enteringApproved := to == model.TrackingStatusApproved && from != model.TrackingStatusApproved

	switch {
	case enteringApproved:
		approval := s.now()
		if in.ApprovalDate != nil {
			approval = *in.ApprovalDate
		}
		tracking.ApprovalDate = &approval
	case in.ApprovalDate != nil:
		if !sameTime(tracking.ApprovalDate, in.ApprovalDate) {
			return nil, apperrors.ErrInvalidTransition.With("approval date can only be set when entering %s", model.TrackingStatusApproved)
		}
	}

	if in.ReimbursementDate != nil {
		if to != model.TrackingStatusApproved {
			return nil, apperrors.ErrInvalidTransition.With("reimbursement date requires status %s", model.TrackingStatusApproved)
		}
		switch {
		case tracking.ReimbursementDate == nil:
			reimbursed := *in.ReimbursementDate
			tracking.ReimbursementDate = &reimbursed
			changed = true
		case !sameTime(tracking.ReimbursementDate, in.ReimbursementDate):
			return nil, apperrors.ErrInvalidTransition.With("reimbursement date already recorded")
		}
	}

	if !changed {
		return tracking, nil
	}

	tracking.Status = to
	if err := s.swap(ctx, s.store, tracking); err != nil {
		return nil, err
	}

	if to != from {
		s.record(ctx, tracking, from, caller)
	}
	return tracking, nil
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// swap persists tracking if nobody changed it since it was read.
func (s *trackingService) swap(ctx context.Context, store *repository.Store, tracking *model.Tracking) error {
	if err := store.Trackings.CompareAndSwap(ctx, tracking); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return apperrors.ErrConcurrentUpdate
		}
		return apperrors.Service("update tracking", err)
	}
	return nil
}

func (s *trackingService) record(ctx context.Context, tracking *model.Tracking, from model.TrackingStatus, caller auth.Principal) {
	s.recorder.Record(ctx, model.TrackingEvent{
		TrackingID: tracking.ID,
		RequestID:  tracking.RequestID,
		FromStatus: from,
		ToStatus:   tracking.Status,
		Actor:      caller.Username,
	})
	s.logger.Info("tracking status changed",
		zap.Uint("request_id", tracking.RequestID),
		zap.String("from", string(from)),
		zap.String("to", string(tracking.Status)),
		zap.String("actor", caller.Username))
}

// GetByRequestID returns the tracking of a request readable by caller.
func (s *trackingService) GetByRequestID(ctx context.Context, caller auth.Principal, requestID uint) (*model.Tracking, error) {
	tracking, err := s.store.Trackings.FindByRequestID(ctx, requestID)
	if err != nil {
		return nil, lookupErr("find tracking", err, apperrors.ErrTrackingNotFound)
	}
	if err := s.authorizeRead(ctx, caller, tracking.RequestID); err != nil {
		return nil, err
	}
	return tracking, nil
}

func (s *trackingService) GetByID(ctx context.Context, caller auth.Principal, id uint) (*model.Tracking, error) {
	tracking, err := s.store.Trackings.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr("find tracking", err, apperrors.ErrTrackingNotFound)
	}
	if err := s.authorizeRead(ctx, caller, tracking.RequestID); err != nil {
		return nil, err
	}
	return tracking, nil
}

func (s *trackingService) authorizeRead(ctx context.Context, caller auth.Principal, requestID uint) error {
	if caller.IsHR() {
		return nil
	}
	request, err := s.store.Requests.FindByID(ctx, requestID)
	if err != nil {
		return lookupErr("find request", err, apperrors.ErrRequestNotFound)
	}
	return requireReader(caller, request.Username)
}

func (s *trackingService) List(ctx context.Context, caller auth.Principal) ([]model.Tracking, error) {
	if err := requireHR(caller); err != nil {
		return nil, err
	}
	trackings, err := s.store.Trackings.List(ctx)
	if err != nil {
		return nil, apperrors.Service("list trackings", err)
	}
	return trackings, nil
}

func (s *trackingService) ListByUsername(ctx context.Context, caller auth.Principal, username string) ([]model.Tracking, error) {
	if err := requireReader(caller, username); err != nil {
		return nil, err
	}
	if _, err := s.store.Users.FindByUsername(ctx, username); err != nil {
		return nil, lookupErr("find user", err, apperrors.ErrUserNotFound)
	}
	trackings, err := s.store.Trackings.ListByUsername(ctx, username)
	if err != nil {
		return nil, apperrors.Service("list trackings", err)
	}
	return trackings, nil
}

// History lists the recorded status changes of a request, oldest first.
func (s *trackingService) History(ctx context.Context, caller auth.Principal, requestID uint) ([]model.TrackingEvent, error) {
	request, err := s.store.Requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, lookupErr("find request", err, apperrors.ErrRequestNotFound)
	}
	if err := requireReader(caller, request.Username); err != nil {
		return nil, err
	}
	events, err := s.store.TrackingEvents.ListByRequestID(ctx, requestID)
	if err != nil {
		return nil, apperrors.Service("list tracking history", err)
	}
	return events, nil
}
