package types

import "github.com/shopspring/decimal"

// Money renders an integer cent amount for API responses. All arithmetic in
// the platform stays in cents; the decimal form exists only for display.
type Money struct {
	Cents    int64  `json:"cents"`
	Display  string `json:"display"`
	Currency string `json:"currency"`
}

// NewMoney builds the display representation for the given cent amount.
func NewMoney(cents int64, currency string) Money {
	return Money{
		Cents:    cents,
		Display:  decimal.NewFromInt(cents).Shift(-2).StringFixed(2),
		Currency: currency,
	}
}
