package controllers

import (
	"net/http"
	"time"

	"github.com/fitmarkethq/fitmarket-backend/api/middleware"
	"github.com/fitmarkethq/fitmarket-backend/api/responses"
	"github.com/fitmarkethq/fitmarket-backend/api/validators"
	"github.com/fitmarkethq/fitmarket-backend/internal/ledger"
	"github.com/fitmarkethq/fitmarket-backend/pkg/logger"
)

// Earnings serves the seller-facing ledger views.
type Earnings struct {
	svc  ledger.Service
	logg *logger.Logger
}

func NewEarnings(svc ledger.Service, logg *logger.Logger) *Earnings {
	return &Earnings{svc: svc, logg: logg}
}

// Statement returns the acting seller's earnings history for a window.
// Defaults to the trailing 30 days.
func (c *Earnings) Statement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	now := time.Now()
	from, err := validators.ParseQueryTime(r, "from", now.AddDate(0, 0, -30))
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	to, err := validators.ParseQueryTime(r, "to", now)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	statement, err := c.svc.Statement(ctx, middleware.SellerIDFromContext(ctx), from, to)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, statement)
}

// Balances returns the acting seller's available/pending partition.
func (c *Earnings) Balances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	balances, err := c.svc.Balances(ctx, middleware.SellerIDFromContext(ctx), time.Now())
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	responses.WriteSuccess(w, balances)
}
