package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/collectz-backend/api/responses"
	"github.com/angelmondragon/collectz-backend/pkg/config"
	"github.com/angelmondragon/collectz-backend/pkg/db"
	pkgerrors "github.com/angelmondragon/collectz-backend/pkg/errors"
	"github.com/angelmondragon/collectz-backend/pkg/logger"
	"github.com/angelmondragon/collectz-backend/pkg/redis"
)

const readinessTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CollectZ-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when both the database and redis answer a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CollectZ-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{"database": "ok", "redis": "ok"}
		var failure error
		if dbP == nil {
			checks["database"] = "missing"
			failure = pkgerrors.New(pkgerrors.CodeDependency, "database not configured")
		} else if err := dbP.Ping(ctx); err != nil {
			checks["database"] = "down"
			failure = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database unreachable")
		}
		if redisP == nil {
			checks["redis"] = "missing"
			failure = pkgerrors.New(pkgerrors.CodeDependency, "redis not configured")
		} else if err := redisP.Ping(ctx); err != nil {
			checks["redis"] = "down"
			failure = pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis unreachable")
		}

		if failure != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.As(failure).WithDetails(checks))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
