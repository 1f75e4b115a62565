// Package postgres stores the catalog, the provider references and the sync
// event log in PostgreSQL through gorm.
package postgres

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	defaultApplicationName = "provider-sync-service"
	defaultConnectTimeout  = 5 * time.Second
	slowQueryThreshold     = 500 * time.Millisecond
)

// Config holds database connection configuration.
type Config struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	ApplicationName string
	ConnectTimeout  time.Duration
	MaxOpenConns    int
	MaxIdleConns    int
	MaxLifetime     time.Duration
	// LogQueries logs every statement instead of slow ones and errors only.
	LogQueries bool
}

// DSN returns the PostgreSQL connection string. The application name tags
// the sessions of this service in pg_stat_activity.
func (c *Config) DSN() string {
	appName := c.ApplicationName
	if appName == "" {
		appName = defaultApplicationName
	}
	timeout := c.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s application_name=%s connect_timeout=%d",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, appName, int(timeout.Seconds()),
	)
}

// NewConnection opens the pool and checks it with a ping bounded by ctx.
func NewConnection(ctx context.Context, cfg Config, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: newGormLogger(cfg, logger),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
		PrepareStmt:          true,
		DisableAutomaticPing: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database connection: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.MaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("pinging database %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	if logger != nil {
		logger.Info("database connection established",
			zap.String("host", cfg.Host),
			zap.Int("port", cfg.Port),
			zap.String("database", cfg.Name),
		)
	}

	return db, nil
}

// newGormLogger routes gorm logs through zap. Missing rows are expected on
// every first sync and are not logged.
func newGormLogger(cfg Config, logger *zap.Logger) gormlogger.Interface {
	if logger == nil {
		return gormlogger.Discard
	}
	level := gormlogger.Warn
	if cfg.LogQueries {
		level = gormlogger.Info
	}

	return gormlogger.New(zap.NewStdLog(logger.Named("gorm")), gormlogger.Config{
		SlowThreshold:             slowQueryThreshold,
		LogLevel:                  level,
		IgnoreRecordNotFoundError: true,
	})
}

// Close closes the database connection.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}

	return sqlDB.Close()
}
