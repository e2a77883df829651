package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/himalai/expense-service/internal/database"
	"github.com/himalai/expense-service/internal/redis"
)

type HealthHandler struct {
	db    *database.DBManager
	redis *redis.RedisClient
}

// NewHealthHandler takes whichever backends the deployment actually
// has; nil dependencies are skipped.
func NewHealthHandler(db *database.DBManager, redisClient *redis.RedisClient) *HealthHandler {
	return &HealthHandler{db: db, redis: redisClient}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{}

	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			checks["database"] = "down"
			status = http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	}
	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			checks["redis"] = "down"
			status = http.StatusServiceUnavailable
		} else {
			checks["redis"] = "ok"
		}
	}

	respondJSON(w, status, map[string]interface{}{
		"status": http.StatusText(status),
		"checks": checks,
	})
}
