package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"reimburse/internal/auth"
	"reimburse/internal/cache"
	apperrors "reimburse/internal/errors"
	"reimburse/internal/model"
	"reimburse/internal/repository"
)

const profileCacheTTL = 5 * time.Minute

// ProfileInput carries the editable fields of a user profile.
type ProfileInput struct {
	FirstName         string
	LastName          string
	City              string
	ContactNumber     string
	BankAccountNumber string
	RoutingCode       string
}

// ProfileService manages the personal and bank details of users.
type ProfileService interface {
	Add(ctx context.Context, caller auth.Principal, in ProfileInput) (*model.UserProfile, error)
	Update(ctx context.Context, caller auth.Principal, in ProfileInput) (*model.UserProfile, error)
	Remove(ctx context.Context, caller auth.Principal, username string) error
	GetByID(ctx context.Context, caller auth.Principal, id uint) (*model.UserProfile, error)
	GetByUsername(ctx context.Context, caller auth.Principal, username string) (*model.UserProfile, error)
	List(ctx context.Context, caller auth.Principal) ([]model.UserProfile, error)
}

type profileService struct {
	repo      repository.UserProfileRepository
	cache     *cache.Client
	validator *BankValidator
	logger    *zap.Logger
}

// NewProfileService creates a new profile service. cache may be nil.
func NewProfileService(repo repository.UserProfileRepository, cache *cache.Client, logger *zap.Logger) ProfileService {
	return &profileService{
		repo:      repo,
		cache:     cache,
		validator: NewBankValidator(),
		logger:    logger,
	}
}

func profileCacheKey(username string) string {
	return fmt.Sprintf("profile:%s", username)
}

func (s *profileService) apply(profile *model.UserProfile, in ProfileInput) error {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	if in.FirstName == "" || in.LastName == "" {
		return apperrors.ErrValidation.With("first and last name are required")
	}

	account, routing := s.validator.Normalize(in.BankAccountNumber, in.RoutingCode)
	if account != "" || routing != "" {
		if err := s.validator.Validate(account, routing); err != nil {
			return err
		}
	}

	profile.FirstName = in.FirstName
	profile.LastName = in.LastName
	profile.City = strings.TrimSpace(in.City)
	profile.ContactNumber = strings.TrimSpace(in.ContactNumber)
	profile.BankAccountNumber = account
	profile.RoutingCode = routing
	return nil
}

// Add creates the caller's own profile.
func (s *profileService) Add(ctx context.Context, caller auth.Principal, in ProfileInput) (*model.UserProfile, error) {
	if err := requireEmployee(caller); err != nil {
		return nil, err
	}

	profile := &model.UserProfile{Username: caller.Username}
	if err := s.apply(profile, in); err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByUsername(ctx, caller.Username); err == nil {
		return nil, apperrors.ErrProfileAlreadyExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.Service("find profile", err)
	}

	if err := s.repo.Create(ctx, profile); err != nil {
		return nil, writeErr("create profile", err, apperrors.ErrProfileAlreadyExists)
	}
	return profile, nil
}

// Update replaces the caller's own profile fields.
func (s *profileService) Update(ctx context.Context, caller auth.Principal, in ProfileInput) (*model.UserProfile, error) {
	if err := requireEmployee(caller); err != nil {
		return nil, err
	}

	profile, err := s.repo.FindByUsername(ctx, caller.Username)
	if err != nil {
		return nil, lookupErr("find profile", err, apperrors.ErrProfileNotFound)
	}
	if err := s.apply(profile, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, profile); err != nil {
		return nil, apperrors.Service("update profile", err)
	}

	_ = s.cache.Delete(ctx, profileCacheKey(profile.Username))
	return profile, nil
}

func (s *profileService) Remove(ctx context.Context, caller auth.Principal, username string) error {
	if err := requireHR(caller); err != nil {
		return err
	}
	if err := s.repo.DeleteByUsername(ctx, username); err != nil {
		return lookupErr("delete profile", err, apperrors.ErrProfileNotFound)
	}

	_ = s.cache.Delete(ctx, profileCacheKey(username))
	s.logger.Info("profile removed", zap.String("username", username), zap.String("actor", caller.Username))
	return nil
}

func (s *profileService) GetByID(ctx context.Context, caller auth.Principal, id uint) (*model.UserProfile, error) {
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupErr("find profile", err, apperrors.ErrProfileNotFound)
	}
	if err := requireReader(caller, profile.Username); err != nil {
		return nil, err
	}
	return profile, nil
}

// GetByUsername returns a profile, served from cache when possible.
func (s *profileService) GetByUsername(ctx context.Context, caller auth.Principal, username string) (*model.UserProfile, error) {
	if err := requireReader(caller, username); err != nil {
		return nil, err
	}

	key := profileCacheKey(username)
	var cached model.UserProfile
	if s.cache.GetJSON(ctx, key, &cached) {
		return &cached, nil
	}

	profile, err := s.repo.FindByUsername(ctx, username)
	if err != nil {
		return nil, lookupErr("find profile", err, apperrors.ErrProfileNotFound)
	}

	s.cache.SetJSON(ctx, key, profile, profileCacheTTL)
	return profile, nil
}

func (s *profileService) List(ctx context.Context, caller auth.Principal) ([]model.UserProfile, error) {
	if err := requireHR(caller); err != nil {
		return nil, err
	}
	profiles, err := s.repo.List(ctx)
	if err != nil {
		return nil, apperrors.Service("list profiles", err)
	}
	return profiles, nil
}
