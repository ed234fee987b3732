package validators

import (
	"bytes"
	"net/http/httptest"
	"testing"
	"time"

	pkgerrors "github.com/fitmarkethq/fitmarket-backend/pkg/errors"
)

type samplePayload struct {
	Name  string `json:"name" validate:"required"`
	Count int    `json:"count" validate:"min=1,max=100"`
}

func TestDecodeJSONBodyValid(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"name":"x","count":5}`))
	var payload samplePayload
	if err := DecodeJSONBody(r, &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Name != "x" || payload.Count != 5 {
		t.Fatalf("bad decode: %+v", payload)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"name":"x","count":5,"extra":1}`))
	var payload samplePayload
	err := DecodeJSONBody(r, &payload)
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecodeJSONBodyValidationDetailsUseJSONNames(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("POST", "/", bytes.NewBufferString(`{"count":500}`))
	var payload samplePayload
	err := DecodeJSONBody(r, &payload)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected typed validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("details %T", typed.Details())
	}
	if details["name"] != "is required" {
		t.Errorf("name detail %q", details["name"])
	}
	if details["count"] == "" {
		t.Error("missing count detail")
	}
}

func TestParseQueryInt(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("GET", "/?limit=30", nil)
	got, err := ParseQueryInt(r, "limit", 25, 1, 100)
	if err != nil || got != 30 {
		t.Fatalf("got %d, %v", got, err)
	}

	r = httptest.NewRequest("GET", "/", nil)
	got, err = ParseQueryInt(r, "limit", 25, 1, 100)
	if err != nil || got != 25 {
		t.Fatalf("default got %d, %v", got, err)
	}

	r = httptest.NewRequest("GET", "/?limit=9999", nil)
	if _, err := ParseQueryInt(r, "limit", 25, 1, 100); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected range error, got %v", err)
	}
}

func TestParseQueryTime(t *testing.T) {
	t.Parallel()

	fallback := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r := httptest.NewRequest("GET", "/?from=2026-06-01T00:00:00Z", nil)
	got, err := ParseQueryTime(r, "from", fallback)
	if err != nil || got.Month() != time.June {
		t.Fatalf("got %v, %v", got, err)
	}

	r = httptest.NewRequest("GET", "/", nil)
	got, err = ParseQueryTime(r, "from", fallback)
	if err != nil || !got.Equal(fallback) {
		t.Fatalf("default got %v, %v", got, err)
	}

	r = httptest.NewRequest("GET", "/?from=yesterday", nil)
	if _, err := ParseQueryTime(r, "from", fallback); !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected format error, got %v", err)
	}
}
