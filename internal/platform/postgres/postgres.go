// Package postgres wraps connection setup and schema migration for the
// Exercise Store's relational backend.
package postgres

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/Lenniott/FITTNESS-BUILDER/internal/domain"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/envutil"
	"github.com/Lenniott/FITTNESS-BUILDER/internal/platform/logger"
)

type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

func New(baseLog *logger.Logger) (*Service, error) {
	svcLog := baseLog.With("service", "postgres.Service")

	host := envutil.GetEnv("POSTGRES_HOST", "localhost", baseLog)
	port := envutil.GetEnv("POSTGRES_PORT", "5432", baseLog)
	user := envutil.GetEnv("POSTGRES_USER", "postgres", baseLog)
	password := envutil.GetEnv("POSTGRES_PASSWORD", "", baseLog)
	name := envutil.GetEnv("POSTGRES_NAME", "fittness_builder", baseLog)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)

	// Idle connections beyond this get recycled so a transient network
	// blip doesn't leave the pool holding dead sockets.
	const maxIdleLifetime = 60 * time.Second

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{SlowThreshold: time.Second, LogLevel: gormLogger.Warn, IgnoreRecordNotFoundError: true},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
		Logger: gormLog,
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("unwrap sql.DB: %w", err)
	}
	sqlDB.SetConnMaxIdleTime(maxIdleLifetime)

	return &Service{db: db, log: svcLog}, nil
}

func (s *Service) AutoMigrate() error {
	return s.db.AutoMigrate(
		&domain.Exercise{},
		&domain.Routine{},
		&domain.Job{},
	)
}

func (s *Service) DB() *gorm.DB { return s.db }
