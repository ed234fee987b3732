package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func readMigration(t *testing.T, pattern string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", pattern))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no migration matches %q", pattern)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	return string(data)
}

func TestOrdersMigrationContainsConstraints(t *testing.T) {
	content := readMigration(t, "*_create_orders.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS orders",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_orders_payment_intent",
		"WHERE payment_intent_id <> ''",
		"CHECK (quantity > 0)",
		"CHECK (platform_fee + seller_earnings = line_total)",
		"DROP TABLE IF EXISTS orders",
	}
	for _, want := range checks {
		if !strings.Contains(content, want) {
			t.Errorf("orders migration missing %q", want)
		}
	}
}

func TestRefundsMigrationContainsReservationIndex(t *testing.T) {
	content := readMigration(t, "*_create_refunds.sql")

	checks := []string{
		"CREATE TABLE IF NOT EXISTS refunds",
		"idx_refunds_item_reservation",
		"WHERE status IN ('processing', 'succeeded')",
		"idx_refunds_gateway_id",
		"WHERE gateway_refund_id <> ''",
		"DROP TABLE IF EXISTS refunds",
	}
	for _, want := range checks {
		if !strings.Contains(content, want) {
			t.Errorf("refunds migration missing %q", want)
		}
	}
}

func TestProductsMigrationGuardsStock(t *testing.T) {
	content := readMigration(t, "*_create_products.sql")

	checks := []string{
		"CHECK (stock >= 0)",
		"CREATE TABLE IF NOT EXISTS inventory_logs",
		"FOREIGN KEY (product_id) REFERENCES products(id) ON DELETE CASCADE",
	}
	for _, want := range checks {
		if !strings.Contains(content, want) {
			t.Errorf("products migration missing %q", want)
		}
	}
}
