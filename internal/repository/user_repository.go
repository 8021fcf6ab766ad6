package repository

import (
	"context"

	"gorm.io/gorm"

	"reimburse/internal/model"
)

// UserRepository defines credential persistence operations.
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByUsername(ctx context.Context, username string) (*model.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository builds a GORM-backed repository.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// UserProfileRepository defines user profile persistence operations.
type UserProfileRepository interface {
	Create(ctx context.Context, profile *model.UserProfile) error
	Update(ctx context.Context, profile *model.UserProfile) error
	DeleteByUsername(ctx context.Context, username string) error
	FindByID(ctx context.Context, id uint) (*model.UserProfile, error)
	FindByUsername(ctx context.Context, username string) (*model.UserProfile, error)
	List(ctx context.Context) ([]model.UserProfile, error)
}

type userProfileRepository struct {
	db *gorm.DB
}

// NewUserProfileRepository creates a new user profile repository.
func NewUserProfileRepository(db *gorm.DB) UserProfileRepository {
	return &userProfileRepository{db: db}
}

func (r *userProfileRepository) Create(ctx context.Context, profile *model.UserProfile) error {
	return r.db.WithContext(ctx).Create(profile).Error
}

func (r *userProfileRepository) Update(ctx context.Context, profile *model.UserProfile) error {
	return r.db.WithContext(ctx).Save(profile).Error
}

// DeleteByUsername removes the profile of username, returning gorm.ErrRecordNotFound if none exists.
func (r *userProfileRepository) DeleteByUsername(ctx context.Context, username string) error {
	res := r.db.WithContext(ctx).Where("username = ?", username).Delete(&model.UserProfile{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userProfileRepository) FindByID(ctx context.Context, id uint) (*model.UserProfile, error) {
	var profile model.UserProfile
	if err := r.db.WithContext(ctx).First(&profile, id).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *userProfileRepository) FindByUsername(ctx context.Context, username string) (*model.UserProfile, error) {
	var profile model.UserProfile
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&profile).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *userProfileRepository) List(ctx context.Context) ([]model.UserProfile, error) {
	var profiles []model.UserProfile
	if err := r.db.WithContext(ctx).Order("id").Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}
