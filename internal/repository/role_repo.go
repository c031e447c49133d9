package repository

import (
	"context"

	"backoffice/internal/model"
	"backoffice/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type RoleFilter struct {
	Search   string
	IsActive *bool
}

type RoleRepository interface {
	Create(ctx context.Context, role *model.Role) error
	Update(ctx context.Context, role *model.Role) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error)
	FindByCode(ctx context.Context, code string) (*model.Role, error)
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Role, error)
	List(ctx context.Context, filter RoleFilter, page, limit int) ([]model.Role, int64, error)
	ListRolesForUser(ctx context.Context, userID uuid.UUID) ([]model.Role, error)
	ReplacePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error
}

type roleRepository struct {
	db *gorm.DB
}

func NewRoleRepository(db *gorm.DB) RoleRepository {
	return &roleRepository{db: db}
}

func (r *roleRepository) Create(ctx context.Context, role *model.Role) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(role).Error
}

func (r *roleRepository) Update(ctx context.Context, role *model.Role) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(role).Error
}

// Delete drops the role with both of its link sets
func (r *roleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("role_id = ?", id).Delete(&model.UserRole{}).Error; err != nil {
		return err
	}
	if err := db.Where("role_id = ?", id).Delete(&model.RolePermission{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Role{}).Error
}

func (r *roleRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).Preload("Permissions").First(&role, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) FindByCode(ctx context.Context, code string) (*model.Role, error) {
	var role model.Role
	if err := GetDB(ctx, r.db).Where("code = ?", code).First(&role).Error; err != nil {
		return nil, err
	}
	return &role, nil
}

func (r *roleRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]model.Role, error) {
	var roles []model.Role
	if len(ids) == 0 {
		return roles, nil
	}
	if err := GetDB(ctx, r.db).Where("id IN ?", ids).Find(&roles).Error; err != nil {
		return nil, err
	}
	return roles, nil
}

func (r *roleRepository) List(ctx context.Context, filter RoleFilter, page, limit int) ([]model.Role, int64, error) {
	var roles []model.Role
	var total int64

	filtered := func(db *gorm.DB) *gorm.DB {
		if filter.Search != "" {
			p := likePattern(filter.Search)
			db = db.Where("LOWER(code) LIKE ? OR LOWER(name) LIKE ?", p, p)
		}
		if filter.IsActive != nil {
			db = db.Where("is_active = ?", *filter.IsActive)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Role{}).Scopes(filtered).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Scopes(filtered).Preload("Permissions").Order("sort_order asc, created_at asc").Scopes(pagination.Scope(page, limit)).Find(&roles).Error; err != nil {
		return nil, 0, err
	}
	return roles, total, nil
}

// ListRolesForUser returns every role linked to the user, active or not, with permissions preloaded.
// Filtering by active flags is the resolver's job.
func (r *roleRepository) ListRolesForUser(ctx context.Context, userID uuid.UUID) ([]model.Role, error) {
	var roles []model.Role
	err := GetDB(ctx, r.db).
		Preload("Permissions").
		Joins("JOIN user_roles ON user_roles.role_id = roles.id").
		Where("user_roles.user_id = ?", userID).
		Order("roles.sort_order asc").
		Find(&roles).Error
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// ReplacePermissions clears the role's permission links and inserts permissionIDs (last writer wins)
func (r *roleRepository) ReplacePermissions(ctx context.Context, roleID uuid.UUID, permissionIDs []uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("role_id = ?", roleID).Delete(&model.RolePermission{}).Error; err != nil {
		return err
	}
	if len(permissionIDs) == 0 {
		return nil
	}
	links := make([]model.RolePermission, 0, len(permissionIDs))
	for _, id := range permissionIDs {
		links = append(links, model.RolePermission{RoleID: roleID, PermissionID: id})
	}
	return db.Create(&links).Error
}
