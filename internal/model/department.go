package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Department forms a forest through ParentID. The leader need not be a member.
type Department struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Code        string     `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name        string     `gorm:"type:varchar(100);not null" json:"name"`
	Description string     `gorm:"type:text" json:"description"`
	SortOrder   int        `gorm:"not null" json:"sort_order"`
	ParentID    *uuid.UUID `gorm:"type:uuid;index" json:"parent_id"`
	LeaderID    *uuid.UUID `gorm:"type:uuid" json:"leader_id"`
	Leader      *User      `gorm:"foreignKey:LeaderID" json:"leader,omitempty"`
	IsActive    bool       `gorm:"not null" json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (d *Department) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// Position belongs to exactly one department
type Position struct {
	ID           uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	Code         string      `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"`
	Name         string      `gorm:"type:varchar(100);not null" json:"name"`
	Description  string      `gorm:"type:text" json:"description"`
	SortOrder    int         `gorm:"not null" json:"sort_order"`
	DepartmentID uuid.UUID   `gorm:"type:uuid;not null;index" json:"department_id"`
	Department   *Department `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	IsActive     bool        `gorm:"not null" json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (p *Position) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
