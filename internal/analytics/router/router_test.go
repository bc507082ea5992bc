package router

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/driftlabs/driftpay-backend/internal/analytics/types"
	"github.com/driftlabs/driftpay-backend/pkg/enums"
	"github.com/driftlabs/driftpay-backend/pkg/logger"
	"github.com/driftlabs/driftpay-backend/pkg/outbox/payloads"
)

func TestRouterUnsupportedEvent(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	env := types.Envelope{
		EventType: enums.OutboxEventType("unsupported"),
		Payload:   []byte(`{"foo":"bar"}`),
	}
	err := router.Handle(context.Background(), env)
	if !errors.Is(err, ErrUnsupportedEventType) {
		t.Fatalf("expected unsupported error, got %v", err)
	}
}

func TestRouterRoutesToOverrideHandler(t *testing.T) {
	handler := &stubHandler{}
	router, _ := newTestRouter(t, map[enums.OutboxEventType]Handler{
		enums.EventSaleCompleted: handler,
	})
	payload := payloads.SaleCompletedEvent{
		SaleID:   uuid.New(),
		SellerID: uuid.New(),
	}
	data, _ := json.Marshal(payload)
	env := types.Envelope{
		EventType: enums.EventSaleCompleted,
		Payload:   data,
	}
	if err := router.Handle(context.Background(), env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !handler.called {
		t.Fatalf("handler not invoked")
	}
}

func TestRouterInsertsSaleFactRow(t *testing.T) {
	router, writer := newTestRouter(t, nil)
	completedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	payload := payloads.SaleCompletedEvent{
		SaleID:          uuid.New(),
		SellerID:        uuid.New(),
		CorrelationKey:  "cs_test_123",
		RoutingStrategy: enums.RoutingStrategyPlatformHeld,
		GrossCents:      5000,
		FeeCents:        500,
		NetCents:        4500,
		Currency:        enums.CurrencyUSD,
		CompletedAt:     completedAt,
	}
	data, _ := json.Marshal(payload)
	env := types.Envelope{
		EventID:    uuid.NewString(),
		EventType:  enums.EventSaleCompleted,
		OccurredAt: completedAt.Add(time.Second),
		Payload:    data,
	}

	if err := router.Handle(context.Background(), env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(writer.saleRows) != 1 {
		t.Fatalf("expected 1 sale row, got %d", len(writer.saleRows))
	}
	row := writer.saleRows[0]
	if row.EventID != env.EventID {
		t.Fatalf("expected event id carried to row")
	}
	if row.NetCents != 4500 || row.RoutingStrategy != string(enums.RoutingStrategyPlatformHeld) {
		t.Fatalf("unexpected row contents: %+v", row)
	}
	if !row.CompletedAt.Equal(completedAt) {
		t.Fatalf("expected event completion time, got %s", row.CompletedAt)
	}
}

func TestRouterInsertsSettlementFactRow(t *testing.T) {
	router, writer := newTestRouter(t, nil)
	settledAt := time.Date(2025, 6, 2, 9, 30, 0, 0, time.UTC)
	payload := payloads.SettlementSucceededEvent{
		SettlementID:     uuid.New(),
		SellerID:         uuid.New(),
		AmountCents:      4500,
		SaleCount:        3,
		Currency:         enums.CurrencyUSD,
		StripeTransferID: "tr_123",
		SettledAt:        settledAt,
	}
	data, _ := json.Marshal(payload)
	env := types.Envelope{
		EventID:    uuid.NewString(),
		EventType:  enums.EventSettlementSucceeded,
		OccurredAt: settledAt,
		Payload:    data,
	}

	if err := router.Handle(context.Background(), env); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(writer.settlementRows) != 1 {
		t.Fatalf("expected 1 settlement row, got %d", len(writer.settlementRows))
	}
	row := writer.settlementRows[0]
	if row.StripeTransferID != "tr_123" || row.SaleCount != 3 {
		t.Fatalf("unexpected row contents: %+v", row)
	}
}

func TestRouterRejectsEmptyPayload(t *testing.T) {
	router, _ := newTestRouter(t, nil)
	env := types.Envelope{
		EventType: enums.EventSaleCompleted,
	}
	if err := router.Handle(context.Background(), env); err == nil {
		t.Fatalf("expected error for empty payload")
	}
}

func newTestRouter(t *testing.T, overrides map[enums.OutboxEventType]Handler) (*Router, *fakeWriter) {
	t.Helper()
	writer := &fakeWriter{}
	router, err := NewRouter(writer, logger.New(logger.Options{ServiceName: "router-test"}), overrides)
	if err != nil {
		t.Fatalf("construct router: %v", err)
	}
	return router, writer
}

type stubHandler struct {
	called bool
}

func (s *stubHandler) Handle(ctx context.Context, envelope types.Envelope, payload any) error {
	s.called = true
	return nil
}
