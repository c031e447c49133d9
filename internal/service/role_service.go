package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"backoffice/internal/model"
	"backoffice/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type CreateRoleRequest struct {
	Code          string   `json:"code" binding:"required,slug,max=50"`
	Name          string   `json:"name" binding:"required,max=100"`
	Description   string   `json:"description"`
	SortOrder     int      `json:"sort_order"`
	IsActive      *bool    `json:"is_active"`
	PermissionIDs []string `json:"permission_ids"`
}

type UpdateRoleRequest struct {
	Name          *string   `json:"name" binding:"omitempty,max=100"`
	Description   *string   `json:"description"`
	SortOrder     *int      `json:"sort_order"`
	IsActive      *bool     `json:"is_active"`
	PermissionIDs *[]string `json:"permission_ids"`
}

type UpdateRolePermissionsRequest struct {
	PermissionIDs []string `json:"permission_ids" binding:"required"`
}

// --- Interface ---

type RoleService interface {
	ListRoles(ctx context.Context, filter repository.RoleFilter, page, limit int) ([]RoleResponse, int64, error)
	GetRole(ctx context.Context, id string) (*RoleResponse, error)
	CreateRole(ctx context.Context, actor uuid.UUID, req CreateRoleRequest) (*RoleResponse, error)
	UpdateRole(ctx context.Context, actor uuid.UUID, id string, req UpdateRoleRequest) (*RoleResponse, error)
	DeleteRole(ctx context.Context, actor uuid.UUID, id string) error
	UpdateRolePermissions(ctx context.Context, actor uuid.UUID, id string, req UpdateRolePermissionsRequest) (*RoleResponse, error)
}

type roleService struct {
	roles    repository.RoleRepository
	perms    repository.PermissionRepository
	users    repository.UserRepository
	audit    repository.AuditRepository
	tx       repository.TransactionManager
	notifier Notifier
}

func NewRoleService(
	roles repository.RoleRepository,
	perms repository.PermissionRepository,
	users repository.UserRepository,
	audit repository.AuditRepository,
	tx repository.TransactionManager,
	notifier Notifier,
) RoleService {
	return &roleService{
		roles:    roles,
		perms:    perms,
		users:    users,
		audit:    audit,
		tx:       tx,
		notifier: notifierOrNop(notifier),
	}
}

// --- Implementation ---

func (s *roleService) ListRoles(ctx context.Context, filter repository.RoleFilter, page, limit int) ([]RoleResponse, int64, error) {
	roles, total, err := s.roles.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch roles: %w", err)
	}
	res := make([]RoleResponse, 0, len(roles))
	for _, r := range roles {
		res = append(res, toRoleResponse(r))
	}
	return res, total, nil
}

func (s *roleService) GetRole(ctx context.Context, id string) (*RoleResponse, error) {
	rid, err := parseID(id, "role")
	if err != nil {
		return nil, err
	}
	role, err := s.roles.FindByID(ctx, rid)
	if err != nil {
		return nil, notFound(err, "role")
	}
	res := toRoleResponse(*role)
	return &res, nil
}

// existingPermissionIDs rejects unknown ids so a typo never silently drops a grant
func (s *roleService) existingPermissionIDs(ctx context.Context, raw []string) ([]uuid.UUID, error) {
	ids, err := parseIDs(raw, "permission")
	if err != nil {
		return nil, err
	}
	perms, err := s.perms.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load permissions: %w", err)
	}
	if len(perms) != len(ids) {
		return nil, invalid("one or more permissions do not exist")
	}
	return ids, nil
}

func (s *roleService) CreateRole(ctx context.Context, actor uuid.UUID, req CreateRoleRequest) (*RoleResponse, error) {
	code := strings.TrimSpace(req.Code)
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}
	role := &model.Role{
		Code:        code,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		SortOrder:   req.SortOrder,
		IsActive:    isActive,
	}

	err := s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.roles.FindByCode(txCtx, code); err == nil {
			return conflict("role code %q already exists", code)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		permIDs, err := s.existingPermissionIDs(txCtx, req.PermissionIDs)
		if err != nil {
			return err
		}
		if err := s.roles.Create(txCtx, role); err != nil {
			return fmt.Errorf("failed to create role: %w", err)
		}
		if err := s.roles.ReplacePermissions(txCtx, role.ID, permIDs); err != nil {
			return fmt.Errorf("failed to assign permissions: %w", err)
		}
		return recordAudit(txCtx, s.audit, actor, model.ActionCreateRole, role.ID.String(), role.Code, req)
	})
	if err != nil {
		return nil, err
	}
	return s.GetRole(ctx, role.ID.String())
}

func (s *roleService) UpdateRole(ctx context.Context, actor uuid.UUID, id string, req UpdateRoleRequest) (*RoleResponse, error) {
	rid, err := parseID(id, "role")
	if err != nil {
		return nil, err
	}

	var affectsAccess bool
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		role, err := s.roles.FindByID(txCtx, rid)
		if err != nil {
			return notFound(err, "role")
		}
		if req.Name != nil {
			role.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			role.Description = *req.Description
		}
		if req.SortOrder != nil {
			role.SortOrder = *req.SortOrder
		}
		if req.IsActive != nil && *req.IsActive != role.IsActive {
			role.IsActive = *req.IsActive
			affectsAccess = true
		}
		if err := s.roles.Update(txCtx, role); err != nil {
			return fmt.Errorf("failed to update role: %w", err)
		}
		if req.PermissionIDs != nil {
			permIDs, err := s.existingPermissionIDs(txCtx, *req.PermissionIDs)
			if err != nil {
				return err
			}
			if err := s.roles.ReplacePermissions(txCtx, rid, permIDs); err != nil {
				return fmt.Errorf("failed to replace permissions: %w", err)
			}
			affectsAccess = true
		}
		return recordAudit(txCtx, s.audit, actor, model.ActionUpdateRole, rid.String(), role.Code, req)
	})
	if err != nil {
		return nil, err
	}

	if affectsAccess {
		s.notifyHolders(ctx, rid)
	}
	return s.GetRole(ctx, rid.String())
}

// DeleteRole deletes a non-system role together with its assignments
func (s *roleService) DeleteRole(ctx context.Context, actor uuid.UUID, id string) error {
	rid, err := parseID(id, "role")
	if err != nil {
		return err
	}

	var holders []uuid.UUID
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		role, err := s.roles.FindByID(txCtx, rid)
		if err != nil {
			return notFound(err, "role")
		}
		if role.IsSystem {
			return forbidden("system role %q cannot be deleted", role.Code)
		}
		if holders, err = s.users.ListIDsByRole(txCtx, rid); err != nil {
			return err
		}
		if err := s.roles.Delete(txCtx, rid); err != nil {
			return fmt.Errorf("failed to delete role: %w", err)
		}
		return recordAudit(txCtx, s.audit, actor, model.ActionDeleteRole, rid.String(), role.Code, map[string]any{"deleted": true})
	})
	if err != nil {
		return err
	}

	if len(holders) > 0 {
		s.notifier.NotifyUsers(holders, EventPermissionsChanged, map[string]string{"role_id": rid.String()})
	}
	return nil
}

// UpdateRolePermissions set-replaces the role's permissions. Concurrent edits are last-writer-wins.
func (s *roleService) UpdateRolePermissions(ctx context.Context, actor uuid.UUID, id string, req UpdateRolePermissionsRequest) (*RoleResponse, error) {
	rid, err := parseID(id, "role")
	if err != nil {
		return nil, err
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		role, err := s.roles.FindByID(txCtx, rid)
		if err != nil {
			return notFound(err, "role")
		}
		permIDs, err := s.existingPermissionIDs(txCtx, req.PermissionIDs)
		if err != nil {
			return err
		}
		if err := s.roles.ReplacePermissions(txCtx, rid, permIDs); err != nil {
			return fmt.Errorf("failed to replace permissions: %w", err)
		}
		return recordAudit(txCtx, s.audit, actor, model.ActionReplaceRolePermissions, rid.String(), role.Code, map[string]any{"permission_ids": permIDs})
	})
	if err != nil {
		return nil, err
	}

	s.notifyHolders(ctx, rid)
	return s.GetRole(ctx, rid.String())
}

func (s *roleService) notifyHolders(ctx context.Context, roleID uuid.UUID) {
	holders, err := s.users.ListIDsByRole(ctx, roleID)
	if err != nil || len(holders) == 0 {
		return
	}
	s.notifier.NotifyUsers(holders, EventPermissionsChanged, map[string]string{"role_id": roleID.String()})
}
