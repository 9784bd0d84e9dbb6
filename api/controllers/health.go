package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/hoangpvhe170186/Group5-WDP301-sub000/api/responses"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/config"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/db"
	pkgerrors "github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/errors"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/logger"
	"github.com/hoangpvhe170186/Group5-WDP301-sub000/pkg/redis"
)

const readinessTimeout = 2 * time.Second

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Dispatch-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings the backing stores so the load balancer only routes
// traffic once Postgres and Redis answer.
func HealthReady(cfg *config.Config, logg *logger.Logger, dbP db.Pinger, redisP redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Dispatch-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		if dbP != nil {
			if err := dbP.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "database not ready"))
				return
			}
		}
		if redisP != nil {
			if err := redisP.Ping(ctx); err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "redis not ready"))
				return
			}
		}

		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}
