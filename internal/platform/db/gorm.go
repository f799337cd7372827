package db

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// OpenMySQL opens a gorm handle for MySQL deployments and sizes its pool.
func OpenMySQL(dsn string, opts PoolOptions, log zerolog.Logger) (*gorm.DB, error) {
	return OpenGorm(mysql.Open(dsn), opts, log)
}

// OpenGorm opens any gorm dialector with zerolog-backed query logging.
func OpenGorm(dialector gorm.Dialector, opts PoolOptions, log zerolog.Logger) (*gorm.DB, error) {
	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: NewGormLogger(log),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialector.Name(), err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, fmt.Errorf("access sql handle: %w", err)
	}
	if opts.MaxConns > 0 {
		sqlDB.SetMaxOpenConns(int(opts.MaxConns))
	}
	if opts.MinConns > 0 {
		sqlDB.SetMaxIdleConns(int(opts.MinConns))
	}
	if opts.MaxConnLifetime > 0 {
		sqlDB.SetConnMaxLifetime(opts.MaxConnLifetime)
	}
	return gdb, nil
}

type gormWriter struct{ log zerolog.Logger }

func (w gormWriter) Printf(format string, args ...interface{}) {
	w.log.Warn().Msgf(format, args...)
}

// NewGormLogger routes slow queries and errors to zerolog.
func NewGormLogger(log zerolog.Logger) gormlogger.Interface {
	return gormlogger.New(gormWriter{log: log.With().Str("component", "gorm").Logger()}, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}
