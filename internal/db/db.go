package db

import (
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"worktime-backend/internal/models"
)

type Options struct {
	Driver string
	DSN    string
	// Verbose logs every statement.
	Verbose bool
}

func Open(opts Options) (*gorm.DB, error) {
	dialector, err := dialectorFor(opts.Driver, opts.DSN)
	if err != nil {
		return nil, err
	}

	logMode := logger.Warn
	if opts.Verbose {
		logMode = logger.Info
	}

	database, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logMode),
		TranslateError: true,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := database.DB()
	if err != nil {
		return nil, err
	}
	if opts.Driver == "sqlite" {
		// a single connection keeps in-memory databases shared and avoids
		// SQLITE_BUSY between writers
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetMaxOpenConns(100)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	if err := Migrate(database); err != nil {
		return nil, err
	}

	return database, nil
}

func Migrate(database *gorm.DB) error {
	if err := database.AutoMigrate(
		&models.User{},
		&models.Workspace{},
		&models.WorkspaceMember{},
		&models.Project{},
		&models.Task{},
		&models.TimeEntry{},
		&models.ActiveTimer{},
		&models.AttendanceRecord{},
		&models.Target{},
	); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

func dialectorFor(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "", "mysql":
		return mysql.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}
