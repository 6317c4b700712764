package controllers

import (
	"net/http"

	"github.com/caribcell/caribcell-backend/api/responses"
	"github.com/caribcell/caribcell-backend/pkg/config"
	"github.com/caribcell/caribcell-backend/pkg/logger"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CaribCell-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady runs the registered dependency checks and reports 503 when any
// backing store is unreachable.
func HealthReady(cfg *config.Config, logg *logger.Logger, checks map[string]func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-CaribCell-Env", cfg.App.Env)

		statuses := map[string]string{}
		healthy := true
		for name, check := range checks {
			if err := check(); err != nil {
				healthy = false
				statuses[name] = "down"
				if logg != nil {
					logg.Error(r.Context(), "health check failed: "+name, err)
				}
				continue
			}
			statuses[name] = "up"
		}

		if !healthy {
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, statuses)
			return
		}
		responses.WriteSuccess(w, statuses)
	}
}
