// Package schema brings a database up to the current table layout.
package schema

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"productlogik/internal/database"
	"productlogik/internal/domain/auth"
	"productlogik/internal/domain/quota"
	"productlogik/internal/domain/result"
	"productlogik/internal/domain/upload"
)

// Models lists every persisted entity in dependency order.
func Models() []any {
	return []any{
		&auth.User{},
		&upload.Upload{},
		&upload.FeedbackEntry{},
		&result.AnalysisResult{},
		&quota.UsageQuota{},
		&result.UploadShare{},
	}
}

// Migrate runs the embedded SQL migrations on PostgreSQL and AutoMigrate on
// SQLite.
func Migrate(db *gorm.DB) error {
	if db.Dialector.Name() == "postgres" {
		version, dirty, err := database.RunMigrations(db)
		if err != nil {
			return err
		}
		if dirty {
			return fmt.Errorf("database schema version %d is dirty", version)
		}
		zap.L().Info("migrations applied", zap.Uint("version", version))
		return nil
	}

	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	zap.L().Info("sqlite schema migrated")
	return nil
}
