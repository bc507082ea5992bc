package router

import (
	"context"
	"fmt"

	"github.com/driftlabs/driftpay-backend/internal/analytics"
	"github.com/driftlabs/driftpay-backend/internal/analytics/types"
	analyticswriter "github.com/driftlabs/driftpay-backend/internal/analytics/writer"
	"github.com/driftlabs/driftpay-backend/pkg/logger"
	"github.com/driftlabs/driftpay-backend/pkg/outbox/payloads"
)

type settlementSucceededHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newSettlementSucceededHandler(writer Writer, logg *logger.Logger) Handler {
	return &settlementSucceededHandler{writer: writer, logg: logg}
}

func (h *settlementSucceededHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.SettlementSucceededEvent)
	if !ok {
		return fmt.Errorf("invalid payload for settlement_succeeded")
	}
	fields := map[string]any{
		"event_type":    envelope.EventType,
		"settlement_id": event.SettlementID,
		"seller_id":     event.SellerID,
		"amount_cents":  event.AmountCents,
		"sale_count":    event.SaleCount,
	}
	logCtx := h.logg.WithFields(ctx, fields)

	payloadJSON, err := analyticswriter.EncodeJSON(event)
	if err != nil {
		h.logg.Error(logCtx, "failed to encode settlement fact payload", err)
		return err
	}

	row := types.SettlementFactRow{
		EventID:          envelope.EventID,
		OccurredAt:       envelope.OccurredAt.UTC(),
		SettlementID:     event.SettlementID.String(),
		SellerID:         event.SellerID.String(),
		AmountCents:      event.AmountCents,
		SaleCount:        event.SaleCount,
		Currency:         string(event.Currency),
		StripeTransferID: event.StripeTransferID,
		SettledAt:        analytics.FactTimestamp(event.SettledAt, envelope.OccurredAt),
		Payload:          payloadJSON,
	}

	if err := h.writer.InsertSettlementFact(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert settlement fact row", err)
		return err
	}

	h.logg.Info(logCtx, "settlement_succeeded handler inserted settlement fact row")
	return nil
}
