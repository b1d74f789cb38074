package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"tasktrack/internal/errors"
	"tasktrack/internal/model"
	"tasktrack/internal/repository"
)

// ProfilePatch is a partial profile update. Only non-nil fields are applied.
type ProfilePatch struct {
	Name     *string
	Email    *string
	Password *string
}

// UserService handles profile operations.
type UserService interface {
	UpdateProfile(ctx context.Context, userID uuid.UUID, patch ProfilePatch) (*model.User, error)
}

type userService struct {
	repo repository.UserRepository
}

// NewUserService creates a new user service.
func NewUserService(repo repository.UserRepository) UserService {
	return &userService{repo: repo}
}

// UpdateProfile applies a partial profile update. At least one field
// must be present. A changed email must not belong to another user and
// a new password is hashed before storage. The returned profile never
// carries the password hash.
func (s *userService) UpdateProfile(ctx context.Context, userID uuid.UUID, patch ProfilePatch) (*model.User, error) {
	if patch.Name == nil && patch.Email == nil && patch.Password == nil {
		return nil, errors.ErrEmptyUpdate
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return nil, errors.ErrBlankName
		}
		user.Name = *patch.Name
	}

	if patch.Email != nil {
		existing, err := s.repo.FindByEmail(ctx, *patch.Email)
		if err == nil && existing != nil && existing.ID != userID {
			return nil, errors.ErrEmailTaken
		}
		if err != nil && err != gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("check email: %w", err)
		}
		user.Email = *patch.Email
	}

	if patch.Password != nil {
		hashed, err := bcrypt.GenerateFromPassword([]byte(*patch.Password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = string(hashed)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	return user, nil
}
