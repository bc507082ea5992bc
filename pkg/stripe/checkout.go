package stripe

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/checkout/session"
)

// Checkout operations
func (c *Client) CreateCheckoutSession(ctx context.Context, params CheckoutSessionCreateParams) (*stripe.CheckoutSession, error) {
	req := params.toStripeParams(c.ensureIdempotencyKey("checkout.create", params.IdempotencyKey))
	req.Context = ctx
	c.log(ctx, "request", "create_checkout_session", map[string]any{
		"correlation_key": params.CorrelationKey,
		"amount":          params.AmountCents,
		"currency":        params.Currency,
		"direct":          params.Direct,
	})

	sess, err := session.New(req)
	if err != nil {
		c.log(ctx, "error", "create_checkout_session", map[string]any{"error": err.Error()})
		return nil, c.mapStripeError(err, "create checkout session")
	}

	c.log(ctx, "response", "create_checkout_session", map[string]any{
		"session_id": sess.ID,
		"status":     string(sess.Status),
	})
	return sess, nil
}
