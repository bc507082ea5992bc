package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records payment pipeline activity: webhook deliveries,
// routing decisions, and settlement outcomes.
type PaymentMetrics struct {
	webhookEvents    *prometheus.CounterVec
	routingDecisions *prometheus.CounterVec
	settlements      *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment pipeline metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	webhookEvents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events",
		Help: "Provider webhook events by type and outcome.",
	}, []string{"type", "outcome"})
	routingDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "routing_decisions",
		Help: "Checkout routing decisions by strategy and degradation.",
	}, []string{"strategy", "degraded"})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_outcomes",
		Help: "Settlement reconciliation outcomes.",
	}, []string{"outcome"})
	reg.MustRegister(webhookEvents, routingDecisions, settlements)
	return &PaymentMetrics{
		webhookEvents:    webhookEvents,
		routingDecisions: routingDecisions,
		settlements:      settlements,
	}
}

// IncWebhookEvent counts one webhook delivery for the event type and outcome.
func (p *PaymentMetrics) IncWebhookEvent(eventType, outcome string) {
	if p == nil || p.webhookEvents == nil {
		return
	}
	p.webhookEvents.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// IncRoutingDecision counts one routing decision. Degraded decisions are
// capability checks that failed and fell back to the platform-held strategy.
func (p *PaymentMetrics) IncRoutingDecision(strategy string, degraded bool) {
	if p == nil || p.routingDecisions == nil {
		return
	}
	degradedLabel := "false"
	if degraded {
		degradedLabel = "true"
	}
	p.routingDecisions.WithLabelValues(normalizeLabel(strategy), degradedLabel).Inc()
}

// IncSettlement counts one reconciliation pass by its outcome.
func (p *PaymentMetrics) IncSettlement(outcome string) {
	if p == nil || p.settlements == nil {
		return
	}
	p.settlements.WithLabelValues(normalizeLabel(outcome)).Inc()
}
