package enums

import "fmt"

// RoutingStrategy maps to the routing_strategy_enum enum in Postgres. It is
// decided once at session-creation time and never re-evaluated for that sale.
type RoutingStrategy string

const (
	// RoutingStrategyDirect splits funds at charge time: the net amount goes to
	// the seller's destination account and the platform keeps the fee.
	RoutingStrategyDirect RoutingStrategy = "direct"
	// RoutingStrategyPlatformHeld routes the full gross to the platform account
	// and records the seller's net share as a ledger liability.
	RoutingStrategyPlatformHeld RoutingStrategy = "platform_held"
)

var validRoutingStrategies = []RoutingStrategy{
	RoutingStrategyDirect,
	RoutingStrategyPlatformHeld,
}

// IsValid reports whether the value matches the canonical enum.
func (s RoutingStrategy) IsValid() bool {
	for _, candidate := range validRoutingStrategies {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseRoutingStrategy converts raw input into RoutingStrategy.
func ParseRoutingStrategy(value string) (RoutingStrategy, error) {
	for _, candidate := range validRoutingStrategies {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid routing strategy %q", value)
}
