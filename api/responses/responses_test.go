package responses

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	pkgerrors "github.com/fitmarkethq/fitmarket-backend/pkg/errors"
)

func TestWriteSuccessEnvelope(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteSuccess(rec, map[string]string{"hello": "world"})

	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, want 200", rec.Code)
	}
	var envelope SuccessEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	data, ok := envelope.Data.(map[string]any)
	if !ok || data["hello"] != "world" {
		t.Fatalf("unexpected payload: %+v", envelope.Data)
	}
}

func TestWriteErrorMapsTypedCodes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		err        error
		wantStatus int
		wantCode   string
	}{
		{pkgerrors.New(pkgerrors.CodeValidation, "bad"), http.StatusBadRequest, "VALIDATION_ERROR"},
		{pkgerrors.New(pkgerrors.CodeInsufficientStock, "short"), http.StatusConflict, "INSUFFICIENT_STOCK"},
		{pkgerrors.New(pkgerrors.CodeRefundNotEligible, "nope"), http.StatusUnprocessableEntity, "REFUND_NOT_ELIGIBLE"},
		{pkgerrors.New(pkgerrors.CodeGatewayUnavailable, "down"), http.StatusServiceUnavailable, "GATEWAY_UNAVAILABLE"},
		{errors.New("plain"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteError(context.Background(), nil, rec, tc.err)
		if rec.Code != tc.wantStatus {
			t.Errorf("%v: status %d, want %d", tc.err, rec.Code, tc.wantStatus)
		}
		var envelope ErrorEnvelope
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if envelope.Error.Code != tc.wantCode {
			t.Errorf("%v: code %s, want %s", tc.err, envelope.Error.Code, tc.wantCode)
		}
	}
}

func TestWriteErrorHidesInternalMessage(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteError(context.Background(), nil, rec, errors.New("secret db details"))

	var envelope ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Error.Message == "secret db details" {
		t.Fatal("internal error message leaked to the client")
	}
}

func TestWriteErrorIncludesAllowedDetails(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	err := pkgerrors.New(pkgerrors.CodeInsufficientStock, "short").
		WithDetails(map[string]any{"product_id": "p1"})
	WriteError(context.Background(), nil, rec, err)

	var envelope ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	details, ok := envelope.Error.Details.(map[string]any)
	if !ok || details["product_id"] != "p1" {
		t.Fatalf("details not passed through: %+v", envelope.Error.Details)
	}
}
