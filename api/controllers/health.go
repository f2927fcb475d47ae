package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/launchbase-io/launchbase-backend/api/responses"
	"github.com/launchbase-io/launchbase-backend/pkg/db"
	"github.com/launchbase-io/launchbase-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

type redisPinger interface {
	Ping(ctx context.Context) error
}

// HealthController exposes liveness and readiness probes.
type HealthController struct {
	env    string
	db     db.Pinger
	redis  redisPinger
	logger *logger.Logger
}

func NewHealthController(env string, database db.Pinger, cache redisPinger, logg *logger.Logger) *HealthController {
	return &HealthController{env: env, db: database, redis: cache, logger: logg}
}

// Live reports process liveness without touching dependencies.
func (c *HealthController) Live(w http.ResponseWriter, r *http.Request) {
	responses.WriteSuccess(w, map[string]string{
		"status": "ok",
		"env":    c.env,
	})
}

// Ready verifies the database and redis are reachable. A failing dependency
// returns 503 so the load balancer drains the instance.
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	checks := map[string]string{}
	healthy := true

	if c.db != nil {
		if err := c.db.Ping(ctx); err != nil {
			checks["database"] = "unreachable"
			healthy = false
			if c.logger != nil {
				c.logger.Error(ctx, "readiness database check failed", err)
			}
		} else {
			checks["database"] = "ok"
		}
	}

	if c.redis != nil {
		if err := c.redis.Ping(ctx); err != nil {
			checks["redis"] = "unreachable"
			healthy = false
			if c.logger != nil {
				c.logger.Error(ctx, "readiness redis check failed", err)
			}
		} else {
			checks["redis"] = "ok"
		}
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	responses.WriteSuccessStatus(w, status, map[string]any{
		"env":    c.env,
		"checks": checks,
	})
}
