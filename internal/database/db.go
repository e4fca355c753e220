package database

import (
	"context"
	"database/sql"
	"time"

	"pomi/internal/apperror"
	"pomi/internal/model"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const pingTimeout = 5 * time.Second

// NewConnection opens the shared connection pool and checks that the server
// answers. When it does not, the pool is still returned together with
// ErrConnectionUnavailable: requests fail with 503 until WaitReady succeeds.
func NewConnection(ctx context.Context, dsn string, log *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:               gormlogger.Default.LogMode(gormlogger.Warn),
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrConnectionUnavailable, "Connexion à la base de données impossible", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, apperror.Wrap(apperror.ErrConnectionUnavailable, "Connexion à la base de données impossible", err)
	}
	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	if err := ping(ctx, sqlDB); err != nil {
		return db, apperror.Wrap(apperror.ErrConnectionUnavailable, "Connexion à la base de données impossible", err)
	}

	Migrate(db, log)
	return db, nil
}

func ping(ctx context.Context, sqlDB *sql.DB) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return sqlDB.PingContext(pingCtx)
}

// Migrate brings the owned tables up to date. Failures are only logged.
func Migrate(db *gorm.DB, log *zap.Logger) {
	if err := db.AutoMigrate(Models()...); err != nil {
		log.Warn("failed to auto-migrate models", zap.Error(err))
	}
}

// WaitReady pings the pool every interval until the server answers or ctx ends.
func WaitReady(ctx context.Context, db *gorm.DB, interval time.Duration, log *zap.Logger) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		err := ping(ctx, sqlDB)
		if err == nil {
			log.Info("database reachable", zap.Int("attempt", attempt))
			return nil
		}
		log.Debug("database still unreachable", zap.Int("attempt", attempt), zap.Error(err))

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Models lists every table the service owns.
func Models() []any {
	return []any{
		&model.PageGroup{},
		&model.Role{},
		&model.Permission{},
		&model.User{},
		&model.AuditLog{},
		&model.Variety{},
		&model.Producer{},
		&model.Plant{},
		&model.StorageSite{},
		&model.Packaging{},
		&model.CommercialProduct{},
		&model.WasteType{},
		&model.Lot{},
	}
}
