// Package database opens the relational store and carries transactions through context.
package database

import (
	"context"
	"log/slog"

	"github.com/glebarez/sqlite"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/config"
	"github.com/reshetovitsme/insta-autoreply/internal/shared/errors"
	"github.com/samber/oops"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type contextKey string

const txContextKey contextKey = "tx"

// Open connects to the configured database and applies pool settings.
func Open(cfg *config.Config) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseDSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DatabaseDSN)
	default:
		return nil, oops.With("database_driver", cfg.DatabaseDriver).Wrap(errors.ErrUnsupportedDriver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, oops.With("database_driver", cfg.DatabaseDriver, "context", "failed to connect to database").Wrap(err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, oops.With("context", "failed to get underlying sql.DB").Wrap(err)
	}

	if cfg.DatabaseDriver == "sqlite" {
		// in-memory databases live as long as their single connection
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.DatabaseMaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.DatabaseMaxIdleConns)
		sqlDB.SetConnMaxLifetime(cfg.DatabaseConnMaxLifetime)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, oops.With("context", "failed to ping database").Wrap(err)
	}

	slog.Info("Database connection established", "driver", cfg.DatabaseDriver)
	return db, nil
}

// Conn returns the transaction carried by ctx, or db when there is none.
func Conn(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return db.WithContext(ctx)
}

// WithTransaction runs fn inside a transaction. Repositories called with the
// derived context join it. A transaction already present in ctx is reused.
func WithTransaction(ctx context.Context, db *gorm.DB, fn func(ctx context.Context) error) error {
	if tx, ok := ctx.Value(txContextKey).(*gorm.DB); ok && tx != nil {
		return fn(ctx)
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, txContextKey, tx))
	})
}

// Migrate creates or updates the tables backing the given models.
func Migrate(db *gorm.DB, models ...any) error {
	if err := db.AutoMigrate(models...); err != nil {
		return oops.With("context", "failed to migrate schema").Wrap(err)
	}
	return nil
}
