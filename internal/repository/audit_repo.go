package repository

import (
	"context"

	"backoffice/internal/model"
	"backoffice/pkg/pagination"

	"gorm.io/gorm"
)

type AuditFilter struct {
	Action     string
	EntityID   string
	EntityName string
}

type AuditRepository interface {
	Log(ctx context.Context, entry *model.AuditLog) error
	List(ctx context.Context, filter AuditFilter, page, limit int) ([]model.AuditLog, int64, error)
}

type auditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Log(ctx context.Context, entry *model.AuditLog) error {
	return GetDB(ctx, r.db).Omit("User").Create(entry).Error
}

func (r *auditRepository) List(ctx context.Context, filter AuditFilter, page, limit int) ([]model.AuditLog, int64, error) {
	var logs []model.AuditLog
	var total int64

	filtered := func(q *gorm.DB) *gorm.DB {
		if filter.Action != "" {
			q = q.Where("action = ?", filter.Action)
		}
		if filter.EntityID != "" {
			q = q.Where("entity_id = ?", filter.EntityID)
		}
		if filter.EntityName != "" {
			q = q.Where("LOWER(entity_name) LIKE ?", likePattern(filter.EntityName))
		}
		return q
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.AuditLog{}).Scopes(filtered).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Scopes(filtered).Preload("User").Order("created_at desc").Scopes(pagination.Scope(page, limit)).Find(&logs).Error; err != nil {
		return nil, 0, err
	}

	return logs, total, nil
}
