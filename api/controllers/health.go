package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/luisarteaga/marketdesk-backend/api/responses"
	"github.com/luisarteaga/marketdesk-backend/pkg/config"
	pkgerrors "github.com/luisarteaga/marketdesk-backend/pkg/errors"
	"github.com/luisarteaga/marketdesk-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies are the backing services the readiness probe checks. A nil
// entry is skipped so partial deployments (no pubsub in local dev) still
// report ready.
type Dependencies struct {
	DB     pinger
	Redis  pinger
	PubSub pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-MarketDesk-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, deps Dependencies) http.HandlerFunc {
	checks := map[string]pinger{
		"db":     deps.DB,
		"redis":  deps.Redis,
		"pubsub": deps.PubSub,
	}
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-MarketDesk-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{}
		for name, dep := range checks {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				logg.Error(ctx, "health.ready.failed", err)
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
			status[name] = "ok"
		}
		status["status"] = "ready"
		responses.WriteSuccess(w, status)
	}
}
