package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSalesMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_sales.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no sales migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TYPE sale_status_enum AS ENUM",
		"CREATE TYPE routing_strategy_enum AS ENUM",
		"CREATE TABLE IF NOT EXISTS sales",
		"FOREIGN KEY (seller_id) REFERENCES sellers(id) ON DELETE CASCADE",
		"CHECK (gross_cents > 0)",
		"CHECK (gross_cents = fee_cents + net_cents)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_sales_correlation_key",
		"CREATE INDEX IF NOT EXISTS idx_sales_seller_id",
		"DROP TABLE IF EXISTS sales",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}
