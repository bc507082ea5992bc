package migrate_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSettlementsMigrationContainsConstraints(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_settlements.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no settlements migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	checks := []string{
		"CREATE TYPE settlement_status_enum AS ENUM",
		"CREATE TABLE IF NOT EXISTS settlements",
		"idempotency_key TEXT NOT NULL",
		"destination_account_id TEXT NOT NULL",
		"CHECK (amount_cents > 0)",
		"CREATE UNIQUE INDEX IF NOT EXISTS ux_settlements_idempotency_key",
		"DROP TABLE IF EXISTS settlements",
	}

	for _, sub := range checks {
		if !strings.Contains(content, sub) {
			t.Errorf("missing expected statement %q", sub)
		}
	}
}

func TestOutboxMigrationContainsDedupIndex(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_outbox_events.sql"))
	if err != nil {
		t.Fatalf("glob migrations: %v", err)
	}
	if len(matches) == 0 {
		t.Fatalf("no outbox migration file found")
	}

	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read migration file: %v", err)
	}
	content := string(data)

	// The emit path swallows unique violations against this index by name.
	if !strings.Contains(content, "ux_outbox_events_event_aggregate") {
		t.Errorf("missing dedup index ux_outbox_events_event_aggregate")
	}
	if !strings.Contains(content, "WHERE published_at IS NULL") {
		t.Errorf("missing partial index on unpublished rows")
	}
}
