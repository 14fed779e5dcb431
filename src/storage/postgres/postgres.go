// Package postgres opens the metadata database and owns its schema.
package postgres

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"docchat/src/infrastructure/job"
	"docchat/src/storage/postgres/chunkctrl"
	"docchat/src/storage/postgres/documentctrl"
	"docchat/src/storage/postgres/workspacectrl"
)

type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DB       string
}

func (c Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.Host, c.User, c.Password, c.DB, c.Port)
}

func Open(cfg Config) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// Migrate creates or updates every table the service uses
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&workspacectrl.Workspace{},
		&documentctrl.Document{},
		&chunkctrl.Chunk{},
		&job.Job{},
	)
}

// Pinger reports database reachability for health checks
type Pinger struct {
	DB *gorm.DB
}

func (p Pinger) Ping(ctx context.Context) error {
	sqlDB, err := p.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
