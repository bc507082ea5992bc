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

type saleCompletedHandler struct {
	writer Writer
	logg   *logger.Logger
}

func newSaleCompletedHandler(writer Writer, logg *logger.Logger) Handler {
	return &saleCompletedHandler{writer: writer, logg: logg}
}

func (h *saleCompletedHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	event, ok := payload.(*payloads.SaleCompletedEvent)
	if !ok {
		return fmt.Errorf("invalid payload for sale_completed")
	}
	fields := map[string]any{
		"event_type":       envelope.EventType,
		"sale_id":          event.SaleID,
		"seller_id":        event.SellerID,
		"routing_strategy": event.RoutingStrategy,
		"gross_cents":      event.GrossCents,
	}
	logCtx := h.logg.WithFields(ctx, fields)

	payloadJSON, err := analyticswriter.EncodeJSON(event)
	if err != nil {
		h.logg.Error(logCtx, "failed to encode sale fact payload", err)
		return err
	}

	row := types.SaleFactRow{
		EventID:         envelope.EventID,
		OccurredAt:      envelope.OccurredAt.UTC(),
		SaleID:          event.SaleID.String(),
		SellerID:        event.SellerID.String(),
		CorrelationKey:  event.CorrelationKey,
		RoutingStrategy: string(event.RoutingStrategy),
		GrossCents:      event.GrossCents,
		FeeCents:        event.FeeCents,
		NetCents:        event.NetCents,
		Currency:        string(event.Currency),
		CompletedAt:     analytics.FactTimestamp(event.CompletedAt, envelope.OccurredAt),
		Payload:         payloadJSON,
	}

	if err := h.writer.InsertSaleFact(logCtx, row); err != nil {
		h.logg.Error(logCtx, "failed to insert sale fact row", err)
		return err
	}

	h.logg.Info(logCtx, "sale_completed handler inserted sale fact row")
	return nil
}
