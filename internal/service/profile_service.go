package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"backoffice/internal/model"
	"backoffice/internal/repository"
	"backoffice/internal/security"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UpdateProfileRequest struct {
	Nickname *string `json:"nickname" binding:"omitempty,max=100"`
	Avatar   *string `json:"avatar" binding:"omitempty,url,max=500"`
	Email    *string `json:"email" binding:"omitempty,email"`
	Phone    *string `json:"phone" binding:"omitempty,max=20"`
}

type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8,nefield=OldPassword"`
}

// ProfileService lets an authenticated user read and edit their own account
type ProfileService interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*UserResponse, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserResponse, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error
}

type profileService struct {
	users  repository.UserRepository
	audit  repository.AuditRepository
	tx     repository.TransactionManager
	hasher *security.PasswordHasher
}

func NewProfileService(users repository.UserRepository, audit repository.AuditRepository, tx repository.TransactionManager, hasher *security.PasswordHasher) ProfileService {
	return &profileService{users: users, audit: audit, tx: tx, hasher: hasher}
}

func (s *profileService) GetProfile(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, notFound(err, "user")
	}
	res := toUserResponse(user)
	return &res, nil
}

func (s *profileService) UpdateProfile(ctx context.Context, userID uuid.UUID, req UpdateProfileRequest) (*UserResponse, error) {
	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.users.FindByID(txCtx, userID)
		if err != nil {
			return notFound(err, "user")
		}
		changes := map[string]any{}
		if req.Nickname != nil {
			user.Nickname = strings.TrimSpace(*req.Nickname)
			changes["nickname"] = user.Nickname
		}
		if req.Avatar != nil {
			user.Avatar = strings.TrimSpace(*req.Avatar)
			changes["avatar"] = user.Avatar
		}
		if req.Phone != nil {
			user.Phone = strings.TrimSpace(*req.Phone)
			changes["phone"] = user.Phone
		}
		if req.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*req.Email))
			if email != user.Email {
				if other, err := s.users.FindByEmail(txCtx, email); err == nil && other.ID != user.ID {
					return conflict("email %q is registered", email)
				} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
					return err
				}
				user.Email = email
				changes["email"] = email
			}
		}
		if len(changes) == 0 {
			return nil
		}
		if err := s.users.Update(txCtx, user); err != nil {
			return fmt.Errorf("failed to update profile: %w", err)
		}
		return recordAudit(txCtx, s.audit, userID, model.ActionUpdateUser, userID.String(), user.Username, changes)
	})
	if err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, userID)
}

// ChangePassword requires the current password; a mismatch is a validation error so the
// caller's session is not treated as expired
func (s *profileService) ChangePassword(ctx context.Context, userID uuid.UUID, req ChangePasswordRequest) error {
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.users.FindByID(txCtx, userID)
		if err != nil {
			return notFound(err, "user")
		}
		if !s.hasher.Verify(req.OldPassword, user.Password) {
			return invalid("current password is incorrect")
		}
		digest, err := s.hasher.Hash(req.NewPassword)
		if err != nil {
			return err
		}
		user.Password = digest
		if err := s.users.Update(txCtx, user); err != nil {
			return fmt.Errorf("failed to change password: %w", err)
		}
		return recordAudit(txCtx, s.audit, userID, model.ActionChangePassword, userID.String(), user.Username, nil)
	})
}
