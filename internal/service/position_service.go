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

type CreatePositionRequest struct {
	Code         string `json:"code" binding:"required,slug,max=50"`
	Name         string `json:"name" binding:"required,max=100"`
	Description  string `json:"description"`
	SortOrder    int    `json:"sort_order"`
	DepartmentID string `json:"department_id" binding:"required,uuid"`
	IsActive     *bool  `json:"is_active"`
}

type UpdatePositionRequest struct {
	Name         *string `json:"name" binding:"omitempty,max=100"`
	Description  *string `json:"description"`
	SortOrder    *int    `json:"sort_order"`
	DepartmentID *string `json:"department_id" binding:"omitempty,uuid"`
	IsActive     *bool   `json:"is_active"`
}

type PositionService interface {
	ListPositions(ctx context.Context, filter repository.PositionFilter, page, limit int) ([]PositionResponse, int64, error)
	CreatePosition(ctx context.Context, actor uuid.UUID, req CreatePositionRequest) (*PositionResponse, error)
	UpdatePosition(ctx context.Context, actor uuid.UUID, id string, req UpdatePositionRequest) (*PositionResponse, error)
	DeletePosition(ctx context.Context, actor uuid.UUID, id string) error
}

type positionService struct {
	positions repository.PositionRepository
	depts     repository.DepartmentRepository
	users     repository.UserRepository
	audit     repository.AuditRepository
	tx        repository.TransactionManager
}

func NewPositionService(
	positions repository.PositionRepository,
	depts repository.DepartmentRepository,
	users repository.UserRepository,
	audit repository.AuditRepository,
	tx repository.TransactionManager,
) PositionService {
	return &positionService{positions: positions, depts: depts, users: users, audit: audit, tx: tx}
}

func (s *positionService) ListPositions(ctx context.Context, filter repository.PositionFilter, page, limit int) ([]PositionResponse, int64, error) {
	positions, total, err := s.positions.List(ctx, filter, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch positions: %w", err)
	}
	counts, err := s.users.CountByPosition(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count position holders: %w", err)
	}
	res := make([]PositionResponse, 0, len(positions))
	for _, p := range positions {
		res = append(res, toPositionResponse(p, counts[p.ID]))
	}
	return res, total, nil
}

func (s *positionService) department(ctx context.Context, id uuid.UUID) (*model.Department, error) {
	dept, err := s.depts.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, invalid("department %s does not exist", id)
		}
		return nil, err
	}
	return dept, nil
}

func (s *positionService) CreatePosition(ctx context.Context, actor uuid.UUID, req CreatePositionRequest) (*PositionResponse, error) {
	code := strings.TrimSpace(req.Code)
	deptID, err := parseID(req.DepartmentID, "department")
	if err != nil {
		return nil, err
	}
	isActive := true
	if req.IsActive != nil {
		isActive = *req.IsActive
	}

	pos := &model.Position{
		Code:         code,
		Name:         strings.TrimSpace(req.Name),
		Description:  req.Description,
		SortOrder:    req.SortOrder,
		DepartmentID: deptID,
		IsActive:     isActive,
	}

	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.positions.FindByCode(txCtx, code); err == nil {
			return conflict("position code %q already exists", code)
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		dept, err := s.department(txCtx, deptID)
		if err != nil {
			return err
		}
		if err := s.positions.Create(txCtx, pos); err != nil {
			return fmt.Errorf("failed to create position: %w", err)
		}
		pos.Department = dept
		return recordAudit(txCtx, s.audit, actor, model.ActionCreatePosition, pos.ID.String(), pos.Code, req)
	})
	if err != nil {
		return nil, err
	}
	res := toPositionResponse(*pos, 0)
	return &res, nil
}

func (s *positionService) UpdatePosition(ctx context.Context, actor uuid.UUID, id string, req UpdatePositionRequest) (*PositionResponse, error) {
	pid, err := parseID(id, "position")
	if err != nil {
		return nil, err
	}

	var (
		pos     *model.Position
		holders int64
	)
	err = s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		pos, err = s.positions.FindByID(txCtx, pid)
		if err != nil {
			return notFound(err, "position")
		}
		if req.Name != nil {
			pos.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			pos.Description = *req.Description
		}
		if req.SortOrder != nil {
			pos.SortOrder = *req.SortOrder
		}
		if req.IsActive != nil {
			pos.IsActive = *req.IsActive
		}
		if req.DepartmentID != nil {
			deptID, err := parseID(*req.DepartmentID, "department")
			if err != nil {
				return err
			}
			dept, err := s.department(txCtx, deptID)
			if err != nil {
				return err
			}
			pos.DepartmentID = deptID
			pos.Department = dept
		}
		if err := s.positions.Update(txCtx, pos); err != nil {
			return fmt.Errorf("failed to update position: %w", err)
		}
		if holders, err = s.users.CountInPosition(txCtx, pid); err != nil {
			return err
		}
		return recordAudit(txCtx, s.audit, actor, model.ActionUpdatePosition, pid.String(), pos.Code, req)
	})
	if err != nil {
		return nil, err
	}
	res := toPositionResponse(*pos, holders)
	return &res, nil
}

// DeletePosition refuses while any user still holds the position
func (s *positionService) DeletePosition(ctx context.Context, actor uuid.UUID, id string) error {
	pid, err := parseID(id, "position")
	if err != nil {
		return err
	}
	return s.tx.RunInTx(ctx, func(txCtx context.Context) error {
		pos, err := s.positions.FindByID(txCtx, pid)
		if err != nil {
			return notFound(err, "position")
		}
		holders, err := s.users.CountInPosition(txCtx, pid)
		if err != nil {
			return err
		}
		if holders > 0 {
			return forbidden("position %q is still held by %d users", pos.Code, holders)
		}
		if err := s.positions.Delete(txCtx, pid); err != nil {
			return fmt.Errorf("failed to delete position: %w", err)
		}
		return recordAudit(txCtx, s.audit, actor, model.ActionDeletePosition, pid.String(), pos.Code, map[string]any{"deleted": true})
	})
}
