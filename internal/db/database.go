package database

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"signage-cms/internal/config"
	"signage-cms/internal/models"
)

type Client struct {
	DB  *gorm.DB
	log *zap.Logger
}

func New(cfg *config.Config, log *zap.Logger) (*Client, error) {
	var dialector gorm.Dialector
	switch cfg.Database.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.Database.Path)
	default:
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
			cfg.Database.Host,
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.Name,
			cfg.Database.Port,
		)
		dialector = postgres.Open(dsn)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	// Connection Pool Settings
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("database handle: %w", err)
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Info("database connected", zap.String("driver", cfg.Database.Driver))

	return &Client{DB: db, log: log}, nil
}

// Wrap adopts an already open handle (tests, tools).
func Wrap(db *gorm.DB, log *zap.Logger) *Client {
	return &Client{DB: db, log: log}
}

// AutoMigrate creates/updates tables based on struct definitions
func (c *Client) AutoMigrate() error {
	c.log.Info("running database migrations")
	err := c.DB.AutoMigrate(
		&models.Organisation{},
		&models.Device{},
		&models.Media{},
		&models.Playlist{},
		&models.PlaylistItem{},
		&models.TimeTagDef{},
	)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	c.log.Info("migrations complete")
	return nil
}
