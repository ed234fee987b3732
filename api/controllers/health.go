// Package controllers holds the HTTP handlers behind the chi routes. Each
// controller translates a request into a service call and writes the
// response envelope; no business rules live here.
package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/fitmarkethq/fitmarket-backend/api/responses"
	"github.com/fitmarkethq/fitmarket-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Health reports liveness plus the state of the datastore and lock store.
// Redis being down degrades the report but keeps the status 200: the API
// can serve without the reconciler lock.
func Health(db pinger, cache pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		report := map[string]string{"status": "ok", "db": "ok", "redis": "ok"}

		if db == nil {
			report["db"] = "unconfigured"
		} else if err := db.Ping(ctx); err != nil {
			report["status"] = "degraded"
			report["db"] = "down"
			if logg != nil {
				logg.Error(ctx, "health db ping failed", err)
			}
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, report)
			return
		}

		if cache == nil {
			report["redis"] = "unconfigured"
		} else if err := cache.Ping(ctx); err != nil {
			report["status"] = "degraded"
			report["redis"] = "down"
			if logg != nil {
				logg.Warn(logg.WithField(ctx, "dependency", "redis"), "health redis ping failed")
			}
		}

		responses.WriteSuccess(w, report)
	}
}
