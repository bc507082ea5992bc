package enums

import "fmt"

// SaleStatus maps to the sale_status_enum enum in Postgres.
type SaleStatus string

const (
	SaleStatusCreated   SaleStatus = "created"
	SaleStatusCompleted SaleStatus = "completed"
)

var validSaleStatuses = []SaleStatus{
	SaleStatusCreated,
	SaleStatusCompleted,
}

// IsValid reports whether the value matches the canonical enum.
func (s SaleStatus) IsValid() bool {
	for _, candidate := range validSaleStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSaleStatus converts raw input into SaleStatus.
func ParseSaleStatus(value string) (SaleStatus, error) {
	for _, candidate := range validSaleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale status %q", value)
}
