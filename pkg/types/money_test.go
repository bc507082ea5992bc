package types

import "testing"

func TestNewMoney(t *testing.T) {
	cases := []struct {
		name    string
		cents   int64
		display string
	}{
		{name: "whole dollars", cents: 1500, display: "15.00"},
		{name: "with remainder", cents: 1537, display: "15.37"},
		{name: "sub dollar", cents: 7, display: "0.07"},
		{name: "zero", cents: 0, display: "0.00"},
		{name: "negative", cents: -250, display: "-2.50"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			money := NewMoney(tc.cents, "usd")
			if money.Display != tc.display {
				t.Fatalf("expected display %s, got %s", tc.display, money.Display)
			}
			if money.Cents != tc.cents {
				t.Fatalf("expected cents %d, got %d", tc.cents, money.Cents)
			}
			if money.Currency != "usd" {
				t.Fatalf("unexpected currency %s", money.Currency)
			}
		})
	}
}
