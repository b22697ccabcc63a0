package database

import (
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mmcore/internal/model"
)

// NewConnection initializes the audit store connection pool using GORM.
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&model.AuditLog{}); err != nil {
		return nil, err
	}
	return db, nil
}

// NewReadOnlyConnection opens a connection to an ERP replica. No migration
// runs against replicas; they are owned by the replication pipeline.
func NewReadOnlyConnection(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
}
