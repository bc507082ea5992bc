package stripe

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/transfer"
)

// Transfer operations
func (c *Client) CreateTransfer(ctx context.Context, params TransferCreateParams) (*stripe.Transfer, error) {
	req := params.toStripeParams(c.ensureIdempotencyKey("transfer.create", params.IdempotencyKey))
	req.Context = ctx
	c.log(ctx, "request", "create_transfer", map[string]any{
		"destination": params.DestinationAccountID,
		"amount":      params.AmountCents,
		"currency":    params.Currency,
	})

	tr, err := transfer.New(req)
	if err != nil {
		c.log(ctx, "error", "create_transfer", map[string]any{"error": err.Error()})
		return nil, c.mapStripeError(err, "create transfer")
	}

	c.log(ctx, "response", "create_transfer", map[string]any{
		"transfer_id": tr.ID,
		"amount":      tr.Amount,
	})
	return tr, nil
}
