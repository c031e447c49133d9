package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Permission kinds
const (
	PermissionTypeMenu   = "menu"
	PermissionTypeButton = "button"
	PermissionTypeAPI    = "api"
)

// Role bundles permissions; Code is the stable external identifier
type Role struct {
	ID          uuid.UUID    `gorm:"type:uuid;primaryKey" json:"id"`
	Code        string       `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name        string       `gorm:"type:varchar(100);not null" json:"name"`
	Description string       `gorm:"type:text" json:"description"`
	IsActive    bool         `gorm:"not null;index" json:"is_active"`
	IsSystem    bool         `gorm:"not null" json:"is_system"` // Prevent deletion of built-in roles
	SortOrder   int          `gorm:"not null" json:"sort_order"`
	Permissions []Permission `gorm:"many2many:role_permissions;" json:"permissions,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (r *Role) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Permission is a node of the permission catalog. Code ("user:create", or "user" for the whole
// module) is what endpoints declare and what checks compare.
type Permission struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Code        string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"code"`
	Name        string     `gorm:"type:varchar(100);not null" json:"name"`
	Resource    string     `gorm:"type:varchar(50);index" json:"resource"`
	Action      string     `gorm:"type:varchar(50)" json:"action"`
	Type        string     `gorm:"type:varchar(20);not null" json:"type"` // menu, button, api
	Description string     `gorm:"type:text" json:"description"`
	SortOrder   int        `gorm:"not null" json:"sort_order"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index" json:"parent_id"`
	IsActive    bool       `gorm:"not null;index" json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (p *Permission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// RolePermission links roles and permissions
type RolePermission struct {
	RoleID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	PermissionID uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}
