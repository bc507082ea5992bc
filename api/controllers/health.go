package controllers

import (
	"context"
	"net/http"

	"github.com/driftlabs/driftpay-backend/api/responses"
	"github.com/driftlabs/driftpay-backend/pkg/config"
	pkgerrors "github.com/driftlabs/driftpay-backend/pkg/errors"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-DriftPay-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every backing dependency answers a ping.
func HealthReady(cfg *config.Config, deps map[string]pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-DriftPay-Env", cfg.App.Env)
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(r.Context()); err != nil {
				responses.WriteError(r.Context(), nil, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable"))
				return
			}
		}
		responses.WriteSuccess(w, map[string]string{"status": "ready"})
	}
}

// ReadinessDeps assembles the dependency set checked by HealthReady.
func ReadinessDeps(db pinger, cache pinger) map[string]pinger {
	deps := make(map[string]pinger, 2)
	if db != nil {
		deps["database"] = db
	}
	if cache != nil {
		deps["redis"] = cache
	}
	return deps
}
