package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User is the principal: the identity every token and permission check resolves to
type User struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"username"`
	Email        string      `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Password     string      `gorm:"type:varchar(255);not null" json:"-"` // bcrypt digest, never serialized
	Nickname     string      `gorm:"type:varchar(100)" json:"nickname"`
	Avatar       string      `gorm:"type:varchar(500)" json:"avatar"`
	Phone        string      `gorm:"type:varchar(20)" json:"phone"`
	IsSuperuser  bool        `gorm:"not null" json:"is_superuser"`
	IsActive     bool        `gorm:"not null;index" json:"is_active"`
	DepartmentID *uuid.UUID  `gorm:"type:uuid;index" json:"department_id"`
	Department   *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	PositionID   *uuid.UUID  `gorm:"type:uuid;index" json:"position_id"`
	Position     *Position   `gorm:"foreignKey:PositionID" json:"position,omitempty"`
	Roles        []Role      `gorm:"many2many:user_roles;" json:"roles,omitempty"`
	LastLoginAt  *time.Time  `json:"last_login_at"`
	CreatedAt    time.Time   `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time   `gorm:"autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}

// DisplayName falls back to the username when no nickname is set
func (u *User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Username
}

// UserRole links users and roles; the row carries only its creation time
type UserRole struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	RoleID    uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
