package db

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

// HealthHandler returns a handler for the database health check endpoint.
func HealthHandler(pool *pgxpool.Pool) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
		defer cancel()

		if err := pool.Ping(ctx); err != nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]interface{}{
				"status": "unhealthy",
				"error":  err.Error(),
			})
		}

		stat := pool.Stat()
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status": "healthy",
			"pool": map[string]interface{}{
				"total_conns":    stat.TotalConns(),
				"idle_conns":     stat.IdleConns(),
				"acquired_conns": stat.AcquiredConns(),
				"max_conns":      stat.MaxConns(),
			},
		})
	}
}
