package controllers

import (
	"net/http"
	"time"

	"github.com/fitmarkethq/fitmarket-backend/api/responses"
	"github.com/fitmarkethq/fitmarket-backend/api/validators"
	"github.com/fitmarkethq/fitmarket-backend/internal/downloads"
	"github.com/fitmarkethq/fitmarket-backend/internal/products"
	pkgerrors "github.com/fitmarkethq/fitmarket-backend/pkg/errors"
	"github.com/fitmarkethq/fitmarket-backend/pkg/logger"
)

// Downloads redeems digital download tokens.
type Downloads struct {
	svc      downloads.Service
	products products.Service
	logg     *logger.Logger
}

func NewDownloads(svc downloads.Service, productsSvc products.Service, logg *logger.Logger) *Downloads {
	return &Downloads{svc: svc, products: productsSvc, logg: logg}
}

// Redeem validates a token, counts the download, and hands the client the
// file location. Externally hosted files get a redirect.
func (c *Downloads) Redeem(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	token, err := validators.PathUUID(r, "token")
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	grant, err := c.svc.Consume(ctx, token, time.Now())
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}
	product, err := c.products.Get(ctx, grant.ProductID)
	if err != nil {
		responses.WriteError(ctx, c.logg, w, err)
		return
	}

	if product.DigitalURL != nil && *product.DigitalURL != "" {
		http.Redirect(w, r, *product.DigitalURL, http.StatusFound)
		return
	}
	if product.DigitalFileKey == nil || *product.DigitalFileKey == "" {
		responses.WriteError(ctx, c.logg, w,
			pkgerrors.New(pkgerrors.CodeInvariantViolation, "digital product has no file"))
		return
	}

	remaining := -1
	if grant.MaxDownloads > 0 {
		remaining = grant.MaxDownloads - grant.DownloadCount
	}
	responses.WriteSuccess(w, map[string]any{
		"file_key":            *product.DigitalFileKey,
		"downloads_remaining": remaining,
	})
}
