package enums

import "fmt"

// SettlementOutcome describes what the reconciler did with a verification
// event. All outcomes are terminal for that event; orphaned and partial
// verifications are acknowledged no-ops so the provider stops re-delivering.
type SettlementOutcome string

const (
	// SettlementOutcomeNotFullyVerified means the account update did not
	// grant full capabilities, so no money moved.
	SettlementOutcomeNotFullyVerified SettlementOutcome = "not_fully_verified"
	// SettlementOutcomeOrphanedEvent means no seller references the
	// provider account the event was about.
	SettlementOutcomeOrphanedEvent SettlementOutcome = "orphaned_event"
	// SettlementOutcomeMarkedVerified means the seller had no pending
	// balance and was promoted to verified without a transfer.
	SettlementOutcomeMarkedVerified SettlementOutcome = "marked_verified"
	// SettlementOutcomeSettled means held funds were transferred and the
	// ledger reduced.
	SettlementOutcomeSettled SettlementOutcome = "settled"
)

var validSettlementOutcomes = []SettlementOutcome{
	SettlementOutcomeNotFullyVerified,
	SettlementOutcomeOrphanedEvent,
	SettlementOutcomeMarkedVerified,
	SettlementOutcomeSettled,
}

// IsValid reports whether the value matches the canonical enum.
func (o SettlementOutcome) IsValid() bool {
	for _, candidate := range validSettlementOutcomes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseSettlementOutcome converts raw input into SettlementOutcome.
func ParseSettlementOutcome(value string) (SettlementOutcome, error) {
	for _, candidate := range validSettlementOutcomes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid settlement outcome %q", value)
}
