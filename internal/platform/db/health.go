package db

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// PoolStats is the connection pool snapshot reported by /health/db.
type PoolStats struct {
	Driver       string `json:"driver"`
	OpenConns    int32  `json:"open_conns"`
	IdleConns    int32  `json:"idle_conns"`
	InUseConns   int32  `json:"in_use_conns"`
	MaxConns     int32  `json:"max_conns"`
	WaitCount    int64  `json:"wait_count"`
	WaitDuration string `json:"wait_duration"`
	Healthy      bool   `json:"healthy"`
}

// Probe is what the health endpoint needs from a database handle.
type Probe interface {
	Ping(ctx context.Context) error
	Stats() *PoolStats
}

type pgxProbe struct{ pool *pgxpool.Pool }

// PgxProbe adapts a pgx pool.
func PgxProbe(pool *pgxpool.Pool) Probe { return pgxProbe{pool: pool} }

func (p pgxProbe) Ping(ctx context.Context) error { return p.pool.Ping(ctx) }

func (p pgxProbe) Stats() *PoolStats {
	stat := p.pool.Stat()
	return &PoolStats{
		Driver:       "postgres",
		OpenConns:    stat.TotalConns(),
		IdleConns:    stat.IdleConns(),
		InUseConns:   stat.AcquiredConns(),
		MaxConns:     stat.MaxConns(),
		WaitCount:    stat.EmptyAcquireCount(),
		WaitDuration: stat.AcquireDuration().String(),
		Healthy:      stat.TotalConns() > 0,
	}
}

type sqlProbe struct {
	driver string
	db     *sql.DB
}

// SQLProbe adapts a database/sql handle, such as the one underneath gorm.
func SQLProbe(driver string, db *sql.DB) Probe { return sqlProbe{driver: driver, db: db} }

func (p sqlProbe) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p sqlProbe) Stats() *PoolStats {
	stat := p.db.Stats()
	return &PoolStats{
		Driver:       p.driver,
		OpenConns:    int32(stat.OpenConnections),
		IdleConns:    int32(stat.Idle),
		InUseConns:   int32(stat.InUse),
		MaxConns:     int32(stat.MaxOpenConnections),
		WaitCount:    stat.WaitCount,
		WaitDuration: stat.WaitDuration.String(),
		Healthy:      stat.OpenConnections > 0,
	}
}

// HealthHandler pings the database and reports pool statistics.
func HealthHandler(p Probe) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		err := p.Ping(ctx)
		stats := p.Stats()

		if err != nil {
			stats.Healthy = false
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
				"pool":   stats,
			})
		}

		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"pool":   stats,
		})
	}
}
