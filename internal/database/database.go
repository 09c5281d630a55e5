package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/eztutor/drive-export/internal/entities"
)

type Database struct {
	DB *gorm.DB
}

// Models lists every table owned by this service, in migration order.
func Models() []any {
	return []any{
		&entities.User{},
		&entities.LessonPlan{},
		&entities.Quiz{},
		&entities.ExportRetryItem{},
		&entities.DriveExport{},
		&entities.ExportFailure{},
		&entities.AuditEvent{},
	}
}

func NewDatabase(dbPath string, log *zap.Logger) (*Database, error) {
	if log == nil {
		log = zap.NewNop()
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Queue claims and credential updates are single-row statements; a busy
	// timeout lets the worker and inline requests share the file.
	if err := db.Exec("PRAGMA busy_timeout = 5000").Error; err != nil {
		return nil, fmt.Errorf("failed to configure database: %w", err)
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log.Info("database initialized", zap.String("path", dbPath))

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Ping checks that the underlying connection is usable.
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
