package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"backoffice/internal/hierarchy"
	"backoffice/internal/model"
	"backoffice/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CreatePermissionRequest struct {
	Code        string  `json:"code" binding:"required,permcode,max=100"`
	Name        string  `json:"name" binding:"required,max=100"`
	Resource    string  `json:"resource" binding:"omitempty,max=50"`
	Action      string  `json:"action" binding:"omitempty,max=50"`
	Type        string  `json:"type" binding:"omitempty,oneof=menu button api"`
	Description string  `json:"description"`
	SortOrder   int     `json:"sort_order"`
	ParentID    *string `json:"parent_id"`
	IsActive    *bool   `json:"is_active"`
}

type UpdatePermissionRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Type        *string `json:"type" binding:"omitempty,oneof=menu button api"`
	Description *string `json:"description"`
	SortOrder   *int    `json:"sort_order"`
	// ParentID "" detaches the node to the top level
	ParentID *string `json:"parent_id"`
	IsActive *bool   `json:"is_active"`
}

// PermissionTreeNode is one catalog entry with its children in sort order
type PermissionTreeNode struct {
	PermissionResponse
	Children []PermissionTreeNode `json:"children"`
}

type PermissionService interface {
	ListPermissions(ctx context.Context) ([]PermissionResponse, error)
	GetPermissionTree(ctx context.Context) ([]PermissionTreeNode, error)
	CreatePermission(ctx context.Context, actor uuid.UUID, req CreatePermissionRequest) (*PermissionResponse, error)
	UpdatePermission(ctx context.Context, actor uuid.UUID, id string, req UpdatePermissionRequest) (*PermissionResponse, error)
	DeletePermission(ctx context.Context, actor uuid.UUID, id string) error
}

type permissionService struct {
	perms repository.PermissionRepository
	audit repository.AuditRepository
	tx    repository.TransactionManager
}

func NewPermissionService(perms repository.PermissionRepository, audit repository.AuditRepository, tx repository.TransactionManager) PermissionService {
	return &permissionService{perms: perms, audit: audit, tx: tx}
}

var permissionForest = hierarchy.Builder[model.Permission, uuid.UUID]{
	Key: func(p model.Permission) uuid.UUID { return p.ID },
	Parent: func(p model.Permission) (uuid.UUID, bool) {
		if p.ParentID == nil {
			return uuid.Nil, false
		}
		return *p.ParentID, true
	},
}

func (s *permissionService) ListPermissions(ctx context.Context) ([]PermissionResponse, error) {
	perms, err := s.perms.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}
	res := make([]PermissionResponse, 0, len(perms))
	for _, p := range perms {
		res = append(res, toPermissionResponse(p))
	}
	return res, nil
}

// GetPermissionTree returns the catalog as a forest. The repository already orders rows by
// sort_order then creation time, and the builder keeps that order among siblings.
func (s *permissionService) GetPermissionTree(ctx context.Context) ([]PermissionTreeNode, error) {
	perms, err := s.perms.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch permissions: %w", err)
	}

	forest, err := permissionForest.Build(perms)
	if err != nil {
		return nil, fmt.Errorf("permission catalog: %w", err)
	}

	return hierarchy.Fold(forest, func(n *hierarchy.Node[model.Permission], children []PermissionTreeNode) PermissionTreeNode {
		return PermissionTreeNode{PermissionResponse: toPermissionResponse(n.Value), Children: children}
	}), nil
}

// splitCode derives resource and action from "resource:action"; a bare code is a module with action "manage"
func splitCode(code string) (resource, action string) {
	if r, a, ok := strings.Cut(code, ":"); ok {
		return r, a
	}
	return code, "manage"
}

func (s *permissionService) CreatePermission(ctx context.Context, actor uuid.UUID, req CreatePermissionRequest) (*PermissionResponse, error) {
	code := strings.TrimSpace(req.Code)
	parentID, err := parseOptionalID(req.ParentID, "parent permission")
	if err != nil {
		return nil, err
	}

	resource, action := splitCode(code)
	if req.Resource != "" {
		resource = req.Resource
	}
	if req.Action != "" {
		action = req.Action
	}
	kind := req.Type
	if kind == "" {
		kind = model.PermissionTypeAPI
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	perm := &model.Permission{
		Code:        code,
		Name:        strings.TrimSpace(req.Name),
		Resource:    resource,
		Action:      action,
		Type:        kind,
		Description: req.Description,
		SortOrder:   req.SortOrder,
		ParentID:    parentID,
		IsActive:    isActive,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.perms.FindByCode(txCtx, code); err == nil {
			return conflict("permission code %q already exists", code)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if parentID != nil {
			if _, err := s.perms.FindByID(txCtx, *parentID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return invalid("parent permission %s does not exist", parentID)
				}
				return err
			}
		}
		if err := s.perms.Create(txCtx, perm); err != nil {
			return fmt.Errorf("failed to create permission: %w", err)
		}
		return recordAudit(txCtx, s.audit, actor, model.ActionCreatePermission, perm.ID.String(), perm.Code, req)
	})
	if err != nil {
		return nil, err
	}
	res := toPermissionResponse(*perm)
	return &res, nil
}

func (s *permissionService) UpdatePermission(ctx context.Context, actor uuid.UUID, id string, req UpdatePermissionRequest) (*PermissionResponse, error) {
	pid, err := parseID(id, "permission")
	if err != nil {
		return nil, err
	}

	var perm *model.Permission
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		perm, err = s.perms.FindByID(txCtx, pid)
		if err != nil {
			return notFound(err, "permission")
		}
		if req.Name != nil {
			perm.Name = strings.TrimSpace(*req.Name)
		}
		if req.Type != nil {
			perm.Type = *req.Type
		}
		if req.Description != nil {
			perm.Description = *req.Description
		}
		if req.SortOrder != nil {
			perm.SortOrder = *req.SortOrder
		}
		if req.IsActive != nil {
			perm.IsActive = *req.IsActive
		}
		if req.ParentID != nil {
			parentID, err := parseOptionalID(req.ParentID, "parent permission")
			if err != nil {
				return err
			}
			if parentID != nil {
				if _, err := s.perms.FindByID(txCtx, *parentID); err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return invalid("parent permission %s does not exist", parentID)
					}
					return err
				}
				all, err := s.perms.ListAll(txCtx)
				if err != nil {
					return err
				}
				if err := checkReparent(pid, *parentID, permissionParents(all)); err != nil {
					return err
				}
			}
			perm.ParentID = parentID
		}
		if err := s.perms.Update(txCtx, perm); err != nil {
			return fmt.Errorf("failed to update permission: %w", err)
		}
		return recordAudit(txCtx, s.audit, actor, model.ActionUpdatePermission, pid.String(), perm.Code, req)
	})
	if err != nil {
		return nil, err
	}
	res := toPermissionResponse(*perm)
	return &res, nil
}

// DeletePermission refuses while child permissions exist; role links are dropped with the row
func (s *permissionService) DeletePermission(ctx context.Context, actor uuid.UUID, id string) error {
	pid, err := parseID(id, "permission")
	if err != nil {
		return err
	}
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		perm, err := s.perms.FindByID(txCtx, pid)
		if err != nil {
			return notFound(err, "permission")
		}
		children, err := s.perms.CountChildren(txCtx, pid)
		if err != nil {
			return err
		}
		if children > 0 {
			return forbidden("permission %q still has %d child permissions", perm.Code, children)
		}
		if err := s.perms.Delete(txCtx, pid); err != nil {
			return fmt.Errorf("failed to delete permission: %w", err)
		}
		return recordAudit(txCtx, s.audit, actor, model.ActionDeletePermission, pid.String(), perm.Code, map[string]any{"deleted": true})
	})
}

func permissionParents(all []model.Permission) map[uuid.UUID]uuid.UUID {
	parents := make(map[uuid.UUID]uuid.UUID, len(all))
	for _, p := range all {
		if p.ParentID != nil {
			parents[p.ID] = *p.ParentID
		}
	}
	return parents
}

// checkReparent refuses to hang node under newParent when node is newParent itself or one of its ancestors
func checkReparent(node, newParent uuid.UUID, parents map[uuid.UUID]uuid.UUID) error {
	cyclic, err := hierarchy.Reaches(newParent, node, func(k uuid.UUID) (uuid.UUID, bool) {
		p, ok := parents[k]
		return p, ok
	})
	if err != nil {
		return err
	}
	if cyclic {
		return invalid("moving %s under %s would create a cycle", node, newParent)
	}
	return nil
}
