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

type CreateDepartmentRequest struct {
	Code        string  `json:"code" binding:"required,slug,max=50"`
	Name        string  `json:"name" binding:"required,max=100"`
	Description string  `json:"description"`
	SortOrder   int     `json:"sort_order"`
	ParentID    *string `json:"parent_id"`
	LeaderID    *string `json:"leader_id"`
	IsActive    *bool   `json:"is_active"`
}

type UpdateDepartmentRequest struct {
	Name        *string `json:"name" binding:"omitempty,max=100"`
	Description *string `json:"description"`
	SortOrder   *int    `json:"sort_order"`
	ParentID    *string `json:"parent_id"`
	LeaderID    *string `json:"leader_id"`
	IsActive    *bool   `json:"is_active"`
}

type DepartmentTreeNode struct {
	DepartmentResponse
	LeaderName *string `json:"leader_name"`
	// UserCount counts active members of this department only
	UserCount int64 `json:"user_count"`
	// TotalUserCount adds the members of every descendant department
	TotalUserCount int64                `json:"total_user_count"`
	Children       []DepartmentTreeNode `json:"children"`
}

type DepartmentService interface {
	ListDepartments(ctx context.Context) ([]DepartmentResponse, error)
	GetDepartmentTree(ctx context.Context) ([]DepartmentTreeNode, error)
	CreateDepartment(ctx context.Context, actor uuid.UUID, req CreateDepartmentRequest) (*DepartmentResponse, error)
	UpdateDepartment(ctx context.Context, actor uuid.UUID, id string, req UpdateDepartmentRequest) (*DepartmentResponse, error)
	DeleteDepartment(ctx context.Context, actor uuid.UUID, id string) error
}

type departmentService struct {
	depts     repository.DepartmentRepository
	positions repository.PositionRepository
	users     repository.UserRepository
	audit     repository.AuditRepository
	tx        repository.TransactionManager
}

func NewDepartmentService(
	depts repository.DepartmentRepository,
	positions repository.PositionRepository,
	users repository.UserRepository,
	audit repository.AuditRepository,
	tx repository.TransactionManager,
) DepartmentService {
	return &departmentService{depts: depts, positions: positions, users: users, audit: audit, tx: tx}
}

var departmentForest = hierarchy.Builder[model.Department, uuid.UUID]{
	Key: func(d model.Department) uuid.UUID { return d.ID },
	Parent: func(d model.Department) (uuid.UUID, bool) {
		if d.ParentID == nil {
			return uuid.Nil, false
		}
		return *d.ParentID, true
	},
}

func (s *departmentService) ListDepartments(ctx context.Context) ([]DepartmentResponse, error) {
	depts, err := s.depts.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch departments: %w", err)
	}
	res := make([]DepartmentResponse, 0, len(depts))
	for _, d := range depts {
		res = append(res, toDepartmentResponse(d))
	}
	return res, nil
}

func (s *departmentService) GetDepartmentTree(ctx context.Context) ([]DepartmentTreeNode, error) {
	depts, err := s.depts.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch departments: %w", err)
	}
	counts, err := s.users.CountActiveByDepartment(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count department members: %w", err)
	}

	forest, err := departmentForest.Build(depts)
	if err != nil {
		return nil, fmt.Errorf("department tree: %w", err)
	}

	return hierarchy.Fold(forest, func(n *hierarchy.Node[model.Department], children []DepartmentTreeNode) DepartmentTreeNode {
		node := DepartmentTreeNode{
			DepartmentResponse: toDepartmentResponse(n.Value),
			UserCount:          counts[n.Value.ID],
			Children:           children,
		}
		if n.Value.Leader != nil {
			name := n.Value.Leader.DisplayName()
			node.LeaderName = &name
		}
		node.TotalUserCount = node.UserCount
		for _, c := range children {
			node.TotalUserCount += c.TotalUserCount
		}
		return node
	}), nil
}

func (s *departmentService) checkLeader(ctx context.Context, leaderID *uuid.UUID) error {
	if leaderID == nil {
		return nil
	}
	if _, err := s.users.FindByID(ctx, *leaderID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalid("leader %s does not exist", leaderID)
		}
		return err
	}
	return nil
}

func (s *departmentService) checkParent(ctx context.Context, parentID *uuid.UUID) error {
	if parentID == nil {
		return nil
	}
	if _, err := s.depts.FindByID(ctx, *parentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return invalid("parent department %s does not exist", parentID)
		}
		return err
	}
	return nil
}

func (s *departmentService) CreateDepartment(ctx context.Context, actor uuid.UUID, req CreateDepartmentRequest) (*DepartmentResponse, error) {
	code := strings.TrimSpace(req.Code)
	parentID, err := parseOptionalID(req.ParentID, "parent department")
	if err != nil {
		return nil, err
	}
	leaderID, err := parseOptionalID(req.LeaderID, "leader")
	if err != nil {
		return nil, err
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	dept := &model.Department{
		Code:        code,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		SortOrder:   req.SortOrder,
		ParentID:    parentID,
		LeaderID:    leaderID,
		IsActive:    isActive,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.depts.FindByCode(txCtx, code); err == nil {
			return conflict("department code %q already exists", code)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if err := s.checkParent(txCtx, parentID); err != nil {
			return err
		}
		if err := s.checkLeader(txCtx, leaderID); err != nil {
			return err
		}
		if err := s.depts.Create(txCtx, dept); err != nil {
			return fmt.Errorf("failed to create department: %w", err)
		}
		return recordAudit(txCtx, s.audit, actor, model.ActionCreateDepartment, dept.ID.String(), dept.Code, req)
	})
	if err != nil {
		return nil, err
	}
	res := toDepartmentResponse(*dept)
	return &res, nil
}

func (s *departmentService) UpdateDepartment(ctx context.Context, actor uuid.UUID, id string, req UpdateDepartmentRequest) (*DepartmentResponse, error) {
	did, err := parseID(id, "department")
	if err != nil {
		return nil, err
	}

	var dept *model.Department
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		dept, err = s.depts.FindByID(txCtx, did)
		if err != nil {
			return notFound(err, "department")
		}
		if req.Name != nil {
			dept.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			dept.Description = *req.Description
		}
		if req.SortOrder != nil {
			dept.SortOrder = *req.SortOrder
		}
		if req.IsActive != nil {
			dept.IsActive = *req.IsActive
		}
		if req.LeaderID != nil {
			leaderID, err := parseOptionalID(req.LeaderID, "leader")
			if err != nil {
				return err
			}
			if err := s.checkLeader(txCtx, leaderID); err != nil {
				return err
			}
			dept.LeaderID = leaderID
			dept.Leader = nil
		}
		if req.ParentID != nil {
			parentID, err := parseOptionalID(req.ParentID, "parent department")
			if err != nil {
				return err
			}
			if parentID != nil {
				if err := s.checkParent(txCtx, parentID); err != nil {
					return err
				}
				all, err := s.depts.ListAll(txCtx)
				if err != nil {
					return err
				}
				if err := checkReparent(did, *parentID, departmentParents(all)); err != nil {
					return err
				}
			}
			dept.ParentID = parentID
		}
		if err := s.depts.Update(txCtx, dept); err != nil {
			return fmt.Errorf("failed to update department: %w", err)
		}
		return recordAudit(txCtx, s.audit, actor, model.ActionUpdateDepartment, did.String(), dept.Code, req)
	})
	if err != nil {
		return nil, err
	}
	res := toDepartmentResponse(*dept)
	return &res, nil
}

// DeleteDepartment refuses while the department still has sub-departments, positions or members
func (s *departmentService) DeleteDepartment(ctx context.Context, actor uuid.UUID, id string) error {
	did, err := parseID(id, "department")
	if err != nil {
		return err
	}
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		dept, err := s.depts.FindByID(txCtx, did)
		if err != nil {
			return notFound(err, "department")
		}

		children, err := s.depts.CountChildren(txCtx, did)
		if err != nil {
			return err
		}
		if children > 0 {
			return forbidden("department %q still has %d sub-departments", dept.Code, children)
		}
		positions, err := s.positions.CountInDepartment(txCtx, did)
		if err != nil {
			return err
		}
		if positions > 0 {
			return forbidden("department %q still has %d positions", dept.Code, positions)
		}
		members, err := s.users.CountInDepartment(txCtx, did)
		if err != nil {
			return err
		}
		if members > 0 {
			return forbidden("department %q still has %d users", dept.Code, members)
		}

		if err := s.depts.Delete(txCtx, did); err != nil {
			return fmt.Errorf("failed to delete department: %w", err)
		}
		return recordAudit(txCtx, s.audit, actor, model.ActionDeleteDepartment, did.String(), dept.Code, map[string]any{"deleted": true})
	})
}

func departmentParents(all []model.Department) map[uuid.UUID]uuid.UUID {
	parents := make(map[uuid.UUID]uuid.UUID, len(all))
	for _, d := range all {
		if d.ParentID != nil {
			parents[d.ID] = *d.ParentID
		}
	}
	return parents
}
