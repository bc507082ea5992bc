package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// SaleFactRow mirrors the sale_facts BigQuery schema. Save returns the event
// id as the insert id so streaming-insert retries dedupe on the provider side.
type SaleFactRow struct {
	EventID         string
	OccurredAt      time.Time
	SaleID          string
	SellerID        string
	CorrelationKey  string
	RoutingStrategy string
	GrossCents      int64
	FeeCents        int64
	NetCents        int64
	Currency        string
	CompletedAt     time.Time
	Payload         cbigquery.NullJSON
}

// Save implements bigquery.ValueSaver.
func (r SaleFactRow) Save() (map[string]cbigquery.Value, string, error) {
	return map[string]cbigquery.Value{
		"event_id":         r.EventID,
		"occurred_at":      r.OccurredAt,
		"sale_id":          r.SaleID,
		"seller_id":        r.SellerID,
		"correlation_key":  r.CorrelationKey,
		"routing_strategy": r.RoutingStrategy,
		"gross_cents":      r.GrossCents,
		"fee_cents":        r.FeeCents,
		"net_cents":        r.NetCents,
		"currency":         r.Currency,
		"completed_at":     r.CompletedAt,
		"payload":          r.Payload,
	}, r.EventID, nil
}

// SettlementFactRow mirrors the settlement_facts BigQuery schema.
type SettlementFactRow struct {
	EventID          string
	OccurredAt       time.Time
	SettlementID     string
	SellerID         string
	AmountCents      int64
	SaleCount        int64
	Currency         string
	StripeTransferID string
	SettledAt        time.Time
	Payload          cbigquery.NullJSON
}

// Save implements bigquery.ValueSaver.
func (r SettlementFactRow) Save() (map[string]cbigquery.Value, string, error) {
	return map[string]cbigquery.Value{
		"event_id":           r.EventID,
		"occurred_at":        r.OccurredAt,
		"settlement_id":      r.SettlementID,
		"seller_id":          r.SellerID,
		"amount_cents":       r.AmountCents,
		"sale_count":         r.SaleCount,
		"currency":           r.Currency,
		"stripe_transfer_id": r.StripeTransferID,
		"settled_at":         r.SettledAt,
		"payload":            r.Payload,
	}, r.EventID, nil
}
