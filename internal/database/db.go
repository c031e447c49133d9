package database

import (
	"fmt"
	"time"

	"backoffice/internal/model"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewConnection initializes a new connection pool using GORM and migrates the schema
func NewConnection(dsn string, log *logrus.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), Options(log))
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Options is the gorm configuration shared by every driver. SQL is logged through logrus.
func Options(log *logrus.Logger) *gorm.Config {
	cfg := &gorm.Config{
		// users.department_id -> departments and departments.leader_id -> users reference each other
		DisableForeignKeyConstraintWhenMigrating: true,
	}
	if log != nil {
		cfg.Logger = gormlogger.New(log, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		})
	} else {
		cfg.Logger = gormlogger.Discard
	}
	return cfg
}

// Migrate registers the custom join tables and auto-migrates all models
func Migrate(db *gorm.DB) error {
	if err := db.SetupJoinTable(&model.User{}, "Roles", &model.UserRole{}); err != nil {
		return fmt.Errorf("setup user_roles: %w", err)
	}
	if err := db.SetupJoinTable(&model.Role{}, "Permissions", &model.RolePermission{}); err != nil {
		return fmt.Errorf("setup role_permissions: %w", err)
	}

	err := db.AutoMigrate(
		&model.Department{},
		&model.Position{},
		&model.User{},
		&model.Permission{},
		&model.Role{},
		&model.UserRole{},
		&model.RolePermission{},
		&model.AuditLog{},
	)
	if err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
