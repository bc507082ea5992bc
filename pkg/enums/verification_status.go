package enums

import "fmt"

// VerificationStatus maps to the verification_status_enum enum in Postgres.
// It tracks a seller's progress through provider identity checks and only
// moves forward in normal operation; an identity-loss signal resets it to
// unprovisioned.
type VerificationStatus string

const (
	VerificationStatusUnprovisioned         VerificationStatus = "unprovisioned"
	VerificationStatusProvisionedUnverified VerificationStatus = "provisioned_unverified"
	VerificationStatusVerified              VerificationStatus = "verified"
)

var validVerificationStatuses = []VerificationStatus{
	VerificationStatusUnprovisioned,
	VerificationStatusProvisionedUnverified,
	VerificationStatusVerified,
}

// IsValid reports whether the value matches the canonical enum.
func (s VerificationStatus) IsValid() bool {
	for _, candidate := range validVerificationStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseVerificationStatus converts raw input into VerificationStatus.
func ParseVerificationStatus(value string) (VerificationStatus, error) {
	for _, candidate := range validVerificationStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid verification status %q", value)
}
