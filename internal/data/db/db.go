package db

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/lunahealth/moodtrack-backend/internal/config"
	"github.com/lunahealth/moodtrack-backend/internal/data/repos/record"
	"github.com/lunahealth/moodtrack-backend/internal/data/repos/user"
	"github.com/lunahealth/moodtrack-backend/internal/pkg/envutil"
	"github.com/lunahealth/moodtrack-backend/internal/pkg/logger"
)

// Service owns the gorm handle. The backend (postgres or sqlite) is selected
// once at startup from configuration; everything above works against the
// repository interfaces and never sees the driver.
type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

func New(driver string, logg *logger.Logger) (*Service, error) {
	serviceLog := logg.With("service", "DatabaseService")

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gormCfg := &gorm.Config{Logger: gormLog}

	var (
		db  *gorm.DB
		err error
	)
	switch driver {
	case config.DriverSQLite:
		path := envutil.String("SQLITE_PATH", "moodtrack.db")
		serviceLog.Info("Opening sqlite database", "path", path)
		db, err = gorm.Open(sqlite.Open(path), gormCfg)
	case config.DriverPostgres, "":
		dsn := postgresDSN()
		serviceLog.Info("Connecting to postgres")
		db, err = gorm.Open(postgres.Open(dsn), gormCfg)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	return &Service{db: db, log: serviceLog}, nil
}

func postgresDSN() string {
	host := envutil.String("POSTGRES_HOST", "localhost")
	port := envutil.String("POSTGRES_PORT", "5432")
	dbUser := envutil.String("POSTGRES_USER", "postgres")
	password := envutil.String("POSTGRES_PASSWORD", "")
	name := envutil.String("POSTGRES_NAME", "moodtrack")
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", dbUser, password, host, port, name)
}

func (s *Service) DB() *gorm.DB { return s.db }

func (s *Service) AutoMigrateAll() error {
	return s.db.AutoMigrate(
		&user.Row{},
		&record.Row{},
	)
}
