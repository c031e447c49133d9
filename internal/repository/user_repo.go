package repository

import (
	"context"
	"strings"
	"time"

	"backoffice/internal/model"
	"backoffice/pkg/pagination"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserFilter narrows List. Zero values mean "any".
type UserFilter struct {
	Search       string
	DepartmentID *uuid.UUID
	IsActive     *bool
}

// UserRepository defines the interface for data access of User entities
type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, user *model.User) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindActiveByID(ctx context.Context, id uuid.UUID) (*model.User, error)
	FindByLogin(ctx context.Context, login string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, filter UserFilter, page, limit int) ([]model.User, int64, error)
	ReplaceRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error
	ListIDsByRole(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error)
	CountActiveByDepartment(ctx context.Context) (map[uuid.UUID]int64, error)
	CountByPosition(ctx context.Context) (map[uuid.UUID]int64, error)
	CountInDepartment(ctx context.Context, departmentID uuid.UUID) (int64, error)
	CountInPosition(ctx context.Context, positionID uuid.UUID) (int64, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(user).Error
}

// Update writes scalar columns only; role links go through ReplaceRoles
func (r *userRepository) Update(ctx context.Context, user *model.User) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(user).Error
}

// Delete removes the user and its role links and clears any department leadership.
// Roles and permissions are untouched.
func (r *userRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("user_id = ?", id).Delete(&model.UserRole{}).Error; err != nil {
		return err
	}
	if err := db.Model(&model.Department{}).Where("leader_id = ?", id).Update("leader_id", nil).Error; err != nil {
		return err
	}
	res := db.Where("id = ?", id).Delete(&model.User{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *userRepository) withRelations(ctx context.Context) *gorm.DB {
	return GetDB(ctx, r.db).
		Preload("Roles", func(db *gorm.DB) *gorm.DB { return db.Order("roles.sort_order asc, roles.created_at asc") }).
		Preload("Department").
		Preload("Position")
}

func (r *userRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.withRelations(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindActiveByID is the lookup behind the authentication gate: inactive users are not found
func (r *userRepository) FindActiveByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).Where("id = ? AND is_active = ?", id, true).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByLogin matches either the username exactly or the email case-insensitively.
// Emails are stored lowercased.
func (r *userRepository) FindByLogin(ctx context.Context, login string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).Where("username = ? OR email = ?", login, strings.ToLower(login)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "username = ?", username).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := GetDB(ctx, r.db).First(&user, "email = ?", email).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) List(ctx context.Context, filter UserFilter, page, limit int) ([]model.User, int64, error) {
	var users []model.User
	var total int64

	filtered := func(db *gorm.DB) *gorm.DB {
		if filter.Search != "" {
			p := likePattern(filter.Search)
			db = db.Where("LOWER(username) LIKE ? OR LOWER(email) LIKE ? OR LOWER(nickname) LIKE ?", p, p, p)
		}
		if filter.DepartmentID != nil {
			db = db.Where("department_id = ?", *filter.DepartmentID)
		}
		if filter.IsActive != nil {
			db = db.Where("is_active = ?", *filter.IsActive)
		}
		return db
	}

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.User{}).Scopes(filtered).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := db.Scopes(filtered).
		Preload("Roles").
		Preload("Department").
		Preload("Position").
		Order("created_at desc").
		Scopes(pagination.Scope(page, limit)).
		Find(&users).Error
	if err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// ReplaceRoles clears the user's role links and inserts roleIDs. Concurrent replacements are last-writer-wins.
func (r *userRepository) ReplaceRoles(ctx context.Context, userID uuid.UUID, roleIDs []uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("user_id = ?", userID).Delete(&model.UserRole{}).Error; err != nil {
		return err
	}
	if len(roleIDs) == 0 {
		return nil
	}
	links := make([]model.UserRole, 0, len(roleIDs))
	for _, id := range roleIDs {
		links = append(links, model.UserRole{UserID: userID, RoleID: id})
	}
	return db.Create(&links).Error
}

func (r *userRepository) ListIDsByRole(ctx context.Context, roleID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := GetDB(ctx, r.db).Model(&model.UserRole{}).Where("role_id = ?", roleID).Pluck("user_id", &ids).Error
	return ids, err
}

// CountActiveByDepartment returns active member counts keyed by department, in one grouped query
func (r *userRepository) CountActiveByDepartment(ctx context.Context) (map[uuid.UUID]int64, error) {
	var rows []groupCount
	err := GetDB(ctx, r.db).Model(&model.User{}).
		Select("department_id AS group_id, COUNT(*) AS total").
		Where("department_id IS NOT NULL AND is_active = ?", true).
		Group("department_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toCountMap(rows), nil
}

func (r *userRepository) CountByPosition(ctx context.Context) (map[uuid.UUID]int64, error) {
	var rows []groupCount
	err := GetDB(ctx, r.db).Model(&model.User{}).
		Select("position_id AS group_id, COUNT(*) AS total").
		Where("position_id IS NOT NULL").
		Group("position_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return toCountMap(rows), nil
}

func (r *userRepository) CountInDepartment(ctx context.Context, departmentID uuid.UUID) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.User{}).Where("department_id = ?", departmentID).Count(&total).Error
	return total, err
}

func (r *userRepository) CountInPosition(ctx context.Context, positionID uuid.UUID) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.User{}).Where("position_id = ?", positionID).Count(&total).Error
	return total, err
}

func (r *userRepository) TouchLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	return GetDB(ctx, r.db).Model(&model.User{}).Where("id = ?", id).UpdateColumn("last_login_at", at).Error
}
