package repository

import (
	"context"

	"backoffice/internal/model"
	"backoffice/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PositionFilter struct {
	Search       string
	DepartmentID *uuid.UUID
}

type PositionRepository interface {
	Create(ctx context.Context, pos *model.Position) error
	Update(ctx context.Context, pos *model.Position) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Position, error)
	FindByCode(ctx context.Context, code string) (*model.Position, error)
	List(ctx context.Context, filter PositionFilter, page, limit int) ([]model.Position, int64, error)
	CountInDepartment(ctx context.Context, departmentID uuid.UUID) (int64, error)
}

type positionRepository struct {
	db *gorm.DB
}

func NewPositionRepository(db *gorm.DB) PositionRepository {
	return &positionRepository{db: db}
}

func (r *positionRepository) Create(ctx context.Context, pos *model.Position) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(pos).Error
}

func (r *positionRepository) Update(ctx context.Context, pos *model.Position) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(pos).Error
}

func (r *positionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Position{}).Error
}

func (r *positionRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Position, error) {
	var pos model.Position
	if err := GetDB(ctx, r.db).Preload("Department").First(&pos, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &pos, nil
}

func (r *positionRepository) FindByCode(ctx context.Context, code string) (*model.Position, error) {
	var pos model.Position
	if err := GetDB(ctx, r.db).First(&pos, "code = ?", code).Error; err != nil {
		return nil, err
	}
	return &pos, nil
}

func (r *positionRepository) List(ctx context.Context, filter PositionFilter, page, limit int) ([]model.Position, int64, error) {
	var positions []model.Position
	var total int64

	filtered := func(db *gorm.DB) *gorm.DB {
		if filter.Search != "" {
			p := likePattern(filter.Search)
			db = db.Where("LOWER(code) LIKE ? OR LOWER(name) LIKE ?", p, p)
		}
		if filter.DepartmentID != nil {
			db = db.Where("department_id = ?", *filter.DepartmentID)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Position{}).Scopes(filtered).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Scopes(filtered).Preload("Department").Order("sort_order asc, created_at asc").Scopes(pagination.Scope(page, limit)).Find(&positions).Error; err != nil {
		return nil, 0, err
	}
	return positions, total, nil
}

func (r *positionRepository) CountInDepartment(ctx context.Context, departmentID uuid.UUID) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.Position{}).Where("department_id = ?", departmentID).Count(&total).Error
	return total, err
}
