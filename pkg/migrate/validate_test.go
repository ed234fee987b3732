package migrate_test

import (
	"testing"

	"github.com/fitmarkethq/fitmarket-backend/pkg/migrate"
)

func TestValidateDirAcceptsShippedMigrations(t *testing.T) {
	if err := migrate.ValidateDir("migrations"); err != nil {
		t.Fatalf("shipped migrations failed validation: %v", err)
	}
}

func TestValidateDirRequiresDir(t *testing.T) {
	if err := migrate.ValidateDir(""); err == nil {
		t.Fatal("expected an error for empty dir")
	}
}
