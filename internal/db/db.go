package db

import (
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"mentorship-backend/config"
	"mentorship-backend/internal/model"
)

// Init initializes the database connection and runs migrations.
func Init(cfg *config.DatabaseConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres", "":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	logLevel := logger.Warn
	if cfg.LogQueries {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	log.Info("running database migrations", zap.String("driver", db.Dialector.Name()))
	if err := Migrate(db); err != nil {
		return nil, err
	}

	if db.Dialector.Name() == "postgres" {
		if err := applyPostgresDDL(db); err != nil {
			log.Warn("failed to apply slot overlap constraint, relying on application checks", zap.Error(err))
		}
	}

	log.Info("database initialization complete")
	return db, nil
}

// Migrate creates the tables and the indexes gorm tags cannot express.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.AvailabilitySlot{},
		&model.MentorshipRequest{},
		&model.MeetingRecord{},
		&model.OAuthCredential{},
		&model.PushSubscription{},
		&model.Profile{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}

	// At most one pending or accepted request may reference a slot.
	ddl := "CREATE UNIQUE INDEX IF NOT EXISTS ux_requests_active_slot " +
		"ON mentorship_requests (slot_id) WHERE status IN ('pending','accepted')"
	if err := db.Exec(ddl).Error; err != nil {
		return fmt.Errorf("DDL failed on %q: %w", ddl, err)
	}
	return nil
}

func applyPostgresDDL(db *gorm.DB) error {
	ddls := []string{
		"CREATE EXTENSION IF NOT EXISTS btree_gist;",

		// An expert can't publish two intersecting slots, even under concurrent inserts.
		"DO $$ BEGIN " +
			"IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'availability_slots_no_overlap') THEN " +
			"ALTER TABLE availability_slots ADD CONSTRAINT availability_slots_no_overlap " +
			"EXCLUDE USING GIST (expert_id WITH =, tstzrange(start_time, end_time, '[)') WITH &&); " +
			"END IF; END $$;",

		"ALTER TABLE availability_slots DROP CONSTRAINT IF EXISTS availability_slots_range_valid;",
		"ALTER TABLE availability_slots " +
			"ADD CONSTRAINT availability_slots_range_valid CHECK (start_time < end_time);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
