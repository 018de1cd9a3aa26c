package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/yungbote/coursemap-backend/internal/platform/envutil"
	"github.com/yungbote/coursemap-backend/internal/platform/logger"
	"github.com/yungbote/coursemap-backend/internal/types"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	host := envutil.String("POSTGRES_HOST", "localhost")
	port := envutil.String("POSTGRES_PORT", "5432")
	user := envutil.String("POSTGRES_USER", "postgres")
	password := envutil.String("POSTGRES_PASSWORD", "")
	name := envutil.String("POSTGRES_NAME", "coursemap")

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)

	serviceLog.Info("Connecting to Postgres...", "host", host, "database", name)
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	return &PostgresService{db: conn, log: serviceLog}, nil
}

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	return s.db.AutoMigrate(AllModels()...)
}

func (s *PostgresService) DB() *gorm.DB {
	return s.db
}

// AllModels is the single migration list; tests and the seeder migrate
// the same set.
func AllModels() []interface{} {
	return []interface{}{
		&types.User{},
		&types.LoginToken{},
		&types.WizardConfig{},
		&types.Rubric{},
		&types.Session{},
		&types.Answer{},
		&types.FeedbackRecord{},
		&types.Comment{},
	}
}
