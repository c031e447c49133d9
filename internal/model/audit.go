package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ActionCreateUser     = "CREATE_USER"
	ActionUpdateUser     = "UPDATE_USER"
	ActionDeleteUser     = "DELETE_USER"
	ActionAssignRoles    = "ASSIGN_ROLES"
	ActionChangePassword = "CHANGE_PASSWORD"

	ActionCreateRole             = "CREATE_ROLE"
	ActionUpdateRole             = "UPDATE_ROLE"
	ActionDeleteRole             = "DELETE_ROLE"
	ActionReplaceRolePermissions = "REPLACE_ROLE_PERMISSIONS"

	ActionCreatePermission = "CREATE_PERMISSION"
	ActionUpdatePermission = "UPDATE_PERMISSION"
	ActionDeletePermission = "DELETE_PERMISSION"

	ActionCreateDepartment = "CREATE_DEPARTMENT"
	ActionUpdateDepartment = "UPDATE_DEPARTMENT"
	ActionDeleteDepartment = "DELETE_DEPARTMENT"

	ActionCreatePosition = "CREATE_POSITION"
	ActionUpdatePosition = "UPDATE_POSITION"
	ActionDeletePosition = "DELETE_POSITION"
)

// AuditLog tracks Who, What, and When for administrative changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // nil for seed/system actions
	User       *User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:text" json:"details"` // JSON payload of the change
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}
