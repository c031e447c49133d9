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

type CreateUserRequest struct {
	Username     string   `json:"username" binding:"required,min=3,max=50"`
	Email        string   `json:"email" binding:"required,email"`
	Password     string   `json:"password" binding:"required,min=8"`
	Nickname     string   `json:"nickname" binding:"omitempty,max=100"`
	Phone        string   `json:"phone" binding:"omitempty,max=20"`
	IsSuperuser  bool     `json:"is_superuser"`
	IsActive     *bool    `json:"is_active"`
	DepartmentID *string  `json:"department_id"`
	PositionID   *string  `json:"position_id"`
	RoleIDs      []string `json:"role_ids"`
}

// UpdateUserRequest is a partial update: nil fields are left untouched
type UpdateUserRequest struct {
	Email        *string `json:"email" binding:"omitempty,email"`
	Nickname     *string `json:"nickname" binding:"omitempty,max=100"`
	Phone        *string `json:"phone" binding:"omitempty,max=20"`
	Avatar       *string `json:"avatar" binding:"omitempty,max=500"`
	Password     *string `json:"password" binding:"omitempty,min=8"`
	IsActive     *bool   `json:"is_active"`
	IsSuperuser  *bool   `json:"is_superuser"`
	DepartmentID *string `json:"department_id"`
	PositionID   *string `json:"position_id"`
}

type AssignRolesRequest struct {
	RoleIDs []string `json:"role_ids" binding:"required"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	ListUsers(ctx context.Context, filter repository.UserFilter, page, limit int) ([]UserResponse, int64, error)
	GetUser(ctx context.Context, id string) (*UserResponse, error)
	CreateUser(ctx context.Context, actor uuid.UUID, req CreateUserRequest) (*UserResponse, error)
	UpdateUser(ctx context.Context, actor uuid.UUID, id string, req UpdateUserRequest) (*UserResponse, error)
	DeleteUser(ctx context.Context, actor uuid.UUID, id string) error
	AssignRoles(ctx context.Context, actor uuid.UUID, id string, req AssignRolesRequest) (*UserResponse, error)
}

type userService struct {
	users     repository.UserRepository
	roles     repository.RoleRepository
	depts     repository.DepartmentRepository
	positions repository.PositionRepository
	audit     repository.AuditRepository
	tx        repository.TransactionManager
	hasher    *security.PasswordHasher
	notifier  Notifier
}

// NewUserService returns a new instance of UserService
func NewUserService(
	users repository.UserRepository,
	roles repository.RoleRepository,
	depts repository.DepartmentRepository,
	positions repository.PositionRepository,
	audit repository.AuditRepository,
	tx repository.TransactionManager,
	hasher *security.PasswordHasher,
	notifier Notifier,
) UserService {
	return &userService{
		users:     users,
		roles:     roles,
		depts:     depts,
		positions: positions,
		audit:     audit,
		tx:        tx,
		hasher:    hasher,
		notifier:  notifierOrNop(notifier),
	}
}

func (s *userService) ListUsers(ctx context.Context, filter repository.UserFilter, page, limit int) ([]UserResponse, int64, error) {
	users, total, err := s.users.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch users: %w", err)
	}
	res := make([]UserResponse, 0, len(users))
	for i := range users {
		res = append(res, toUserResponse(&users[i]))
	}
	return res, total, nil
}

func (s *userService) GetUser(ctx context.Context, id string) (*UserResponse, error) {
	uid, err := parseID(id, "user")
	if err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, uid)
	if err != nil {
		return nil, notFound(err, "user")
	}
	res := toUserResponse(user)
	return &res, nil
}

// checkPlacement validates that the department and position exist and agree with each other
func (s *userService) checkPlacement(ctx context.Context, deptID, posID *uuid.UUID) error {
	if deptID != nil {
		if _, err := s.depts.FindByID(ctx, *deptID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid("department %s does not exist", deptID)
			}
			return err
		}
	}
	if posID != nil {
		pos, err := s.positions.FindByID(ctx, *posID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return invalid("position %s does not exist", posID)
			}
			return err
		}
		if deptID != nil && pos.DepartmentID != *deptID {
			return invalid("position %s does not belong to department %s", posID, deptID)
		}
	}
	return nil
}

// activeRoleIDs keeps the ids of roles that exist and are active; unknown ids are rejected
func (s *userService) activeRoleIDs(ctx context.Context, ids []uuid.UUID) ([]uuid.UUID, error) {
	roles, err := s.roles.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}
	if len(roles) != len(ids) {
		return nil, invalid("one or more roles do not exist")
	}
	active := make([]uuid.UUID, 0, len(roles))
	for _, r := range roles {
		if r.IsActive {
			active = append(active, r.ID)
		}
	}
	return active, nil
}

func (s *userService) ensureUnique(ctx context.Context, username, email string, self uuid.UUID) error {
	if username != "" {
		if u, err := s.users.FindByUsername(ctx, username); err == nil && u.ID != self {
			return conflict("username %q is taken", username)
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	if email != "" {
		if u, err := s.users.FindByEmail(ctx, email); err == nil && u.ID != self {
			return conflict("email %q is registered", email)
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
	}
	return nil
}

func (s *userService) CreateUser(ctx context.Context, actor uuid.UUID, req CreateUserRequest) (*UserResponse, error) {
	username := strings.TrimSpace(req.Username)
	email := strings.ToLower(strings.TrimSpace(req.Email))

	deptID, err := parseOptionalID(req.DepartmentID, "department")
	if err != nil {
		return nil, err
	}
	posID, err := parseOptionalID(req.PositionID, "position")
	if err != nil {
		return nil, err
	}
	roleIDs, err := parseIDs(req.RoleIDs, "role")
	if err != nil {
		return nil, err
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	user := &model.User{
		Username:     username,
		Email:        email,
		Password:     digest,
		Nickname:     strings.TrimSpace(req.Nickname),
		Phone:        req.Phone,
		IsSuperuser:  req.IsSuperuser,
		IsActive:     isActive,
		DepartmentID: deptID,
		PositionID:   posID,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ensureUnique(txCtx, username, email, uuid.Nil); err != nil {
			return err
		}
		if err := s.checkPlacement(txCtx, deptID, posID); err != nil {
			return err
		}
		if err := s.users.Create(txCtx, user); err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		if len(roleIDs) > 0 {
			active, err := s.activeRoleIDs(txCtx, roleIDs)
			if err != nil {
				return err
			}
			if err := s.users.ReplaceRoles(txCtx, user.ID, active); err != nil {
				return fmt.Errorf("failed to assign roles: %w", err)
			}
		}
		return recordAudit(txCtx, s.audit, actor, model.ActionCreateUser, user.ID.String(), user.Username, map[string]any{
			"email":        user.Email,
			"is_superuser": user.IsSuperuser,
			"role_ids":     req.RoleIDs,
		})
	})
	if err != nil {
		return nil, err
	}

	return s.GetUser(ctx, user.ID.String())
}

func (s *userService) UpdateUser(ctx context.Context, actor uuid.UUID, id string, req UpdateUserRequest) (*UserResponse, error) {
	uid, err := parseID(id, "user")
	if err != nil {
		return nil, err
	}

	var disabled, privilegeChanged bool
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.users.FindByID(txCtx, uid)
		if err != nil {
			return notFound(err, "user")
		}
		changes := map[string]any{}

		if req.Email != nil {
			email := strings.ToLower(strings.TrimSpace(*req.Email))
			if err := s.ensureUnique(txCtx, "", email, user.ID); err != nil {
				return err
			}
			user.Email = email
			changes["email"] = email
		}
		if req.Nickname != nil {
			user.Nickname = strings.TrimSpace(*req.Nickname)
			changes["nickname"] = user.Nickname
		}
		if req.Phone != nil {
			user.Phone = *req.Phone
			changes["phone"] = user.Phone
		}
		if req.Avatar != nil {
			user.Avatar = *req.Avatar
		}
		if req.Password != nil {
			digest, err := s.hasher.Hash(*req.Password)
			if err != nil {
				return err
			}
			user.Password = digest
			changes["password"] = "reset"
		}
		if req.IsActive != nil && *req.IsActive != user.IsActive {
			if !*req.IsActive && user.ID == actor {
				return forbidden("you cannot deactivate your own account")
			}
			disabled = !*req.IsActive
			user.IsActive = *req.IsActive
			changes["is_active"] = user.IsActive
		}
		if req.IsSuperuser != nil && *req.IsSuperuser != user.IsSuperuser {
			if !*req.IsSuperuser && user.ID == actor {
				return forbidden("you cannot revoke your own superuser flag")
			}
			privilegeChanged = true
			user.IsSuperuser = *req.IsSuperuser
			changes["is_superuser"] = user.IsSuperuser
		}
		if req.DepartmentID != nil {
			deptID, err := parseOptionalID(req.DepartmentID, "department")
			if err != nil {
				return err
			}
			user.DepartmentID = deptID
			changes["department_id"] = req.DepartmentID
		}
		if req.PositionID != nil {
			posID, err := parseOptionalID(req.PositionID, "position")
			if err != nil {
				return err
			}
			user.PositionID = posID
			changes["position_id"] = req.PositionID
		}
		if err := s.checkPlacement(txCtx, user.DepartmentID, user.PositionID); err != nil {
			return err
		}

		// keep preloaded relations from shadowing the new foreign keys
		user.Department, user.Position = nil, nil
		if err := s.users.Update(txCtx, user); err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		return recordAudit(txCtx, s.audit, actor, model.ActionUpdateUser, user.ID.String(), user.Username, changes)
	})
	if err != nil {
		return nil, err
	}

	if disabled {
		s.notifier.NotifyUsers([]uuid.UUID{uid}, EventAccountDisabled, nil)
	} else if privilegeChanged {
		s.notifier.NotifyUsers([]uuid.UUID{uid}, EventPermissionsChanged, nil)
	}
	return s.GetUser(ctx, uid.String())
}

// DeleteUser removes the account and its role links; roles and permissions stay
func (s *userService) DeleteUser(ctx context.Context, actor uuid.UUID, id string) error {
	uid, err := parseID(id, "user")
	if err != nil {
		return err
	}
	if uid == actor {
		return forbidden("you cannot delete your own account")
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.users.FindByID(txCtx, uid)
		if err != nil {
			return notFound(err, "user")
		}
		if err := s.users.Delete(txCtx, uid); err != nil {
			return fmt.Errorf("failed to delete user: %w", err)
		}
		return recordAudit(txCtx, s.audit, actor, model.ActionDeleteUser, uid.String(), user.Username, map[string]any{"deleted": true})
	})
	if err != nil {
		return err
	}

	s.notifier.NotifyUsers([]uuid.UUID{uid}, EventAccountDisabled, nil)
	return nil
}

// AssignRoles set-replaces the user's roles. Inactive roles are skipped; concurrent edits are last-writer-wins.
func (s *userService) AssignRoles(ctx context.Context, actor uuid.UUID, id string, req AssignRolesRequest) (*UserResponse, error) {
	uid, err := parseID(id, "user")
	if err != nil {
		return nil, err
	}
	roleIDs, err := parseIDs(req.RoleIDs, "role")
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		user, err := s.users.FindByID(txCtx, uid)
		if err != nil {
			return notFound(err, "user")
		}
		active, err := s.activeRoleIDs(txCtx, roleIDs)
		if err != nil {
			return err
		}
		if err := s.users.ReplaceRoles(txCtx, uid, active); err != nil {
			return fmt.Errorf("failed to assign roles: %w", err)
		}
		return recordAudit(txCtx, s.audit, actor, model.ActionAssignRoles, uid.String(), user.Username, map[string]any{"role_ids": active})
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyUsers([]uuid.UUID{uid}, EventPermissionsChanged, nil)
	return s.GetUser(ctx, uid.String())
}
