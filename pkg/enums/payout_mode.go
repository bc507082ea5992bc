package enums

import "fmt"

// PayoutMode maps to the payout_mode_enum enum in Postgres. Sellers stay on
// manual payouts until the settlement reconciler flips them to automatic.
type PayoutMode string

const (
	PayoutModeManual    PayoutMode = "manual"
	PayoutModeAutomatic PayoutMode = "automatic"
)

var validPayoutModes = []PayoutMode{
	PayoutModeManual,
	PayoutModeAutomatic,
}

// IsValid reports whether the value matches the canonical enum.
func (m PayoutMode) IsValid() bool {
	for _, candidate := range validPayoutModes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParsePayoutMode converts raw input into PayoutMode.
func ParsePayoutMode(value string) (PayoutMode, error) {
	for _, candidate := range validPayoutModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payout mode %q", value)
}
