package enums

import "fmt"

// AccountCapability names the provider capabilities a destination account
// must carry before held funds may be transferred to it.
type AccountCapability string

const (
	CapabilityCardPayments AccountCapability = "card_payments"
	CapabilityTransfers    AccountCapability = "transfers"
)

var validAccountCapabilities = []AccountCapability{
	CapabilityCardPayments,
	CapabilityTransfers,
}

// RequiredCapabilities returns the capabilities a seller account needs for
// full verification, in a fresh slice callers may reorder.
func RequiredCapabilities() []AccountCapability {
	return []AccountCapability{CapabilityCardPayments, CapabilityTransfers}
}

// IsValid reports whether the capability is recognized.
func (c AccountCapability) IsValid() bool {
	for _, candidate := range validAccountCapabilities {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseAccountCapability converts raw input into AccountCapability.
func ParseAccountCapability(value string) (AccountCapability, error) {
	for _, candidate := range validAccountCapabilities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid account capability %q", value)
}
