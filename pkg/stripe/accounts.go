package stripe

import (
	"context"
	"strings"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/account"
)

// Account operations
func (c *Client) CreateAccount(ctx context.Context, params AccountCreateParams) (*stripe.Account, error) {
	req := params.toStripeParams(c.ensureIdempotencyKey("account.create", params.IdempotencyKey))
	req.Context = ctx
	c.log(ctx, "request", "create_account", map[string]any{
		"seller_id": params.SellerID,
		"country":   params.Country,
	})

	acct, err := account.New(req)
	if err != nil {
		c.log(ctx, "error", "create_account", map[string]any{"error": err.Error()})
		return nil, c.mapStripeError(err, "create account")
	}

	c.log(ctx, "response", "create_account", map[string]any{
		"account_id":       acct.ID,
		"charges_enabled":  acct.ChargesEnabled,
		"payouts_enabled":  acct.PayoutsEnabled,
		"details_complete": acct.DetailsSubmitted,
	})
	return acct, nil
}

func (c *Client) RetrieveAccount(ctx context.Context, accountID string) (*stripe.Account, error) {
	req := &stripe.AccountParams{}
	req.Context = ctx
	c.log(ctx, "request", "retrieve_account", map[string]any{"account_id": accountID})

	acct, err := account.GetByID(accountID, req)
	if err != nil {
		c.log(ctx, "error", "retrieve_account", map[string]any{"error": err.Error()})
		return nil, c.mapStripeError(err, "retrieve account")
	}

	c.log(ctx, "response", "retrieve_account", map[string]any{
		"account_id":      acct.ID,
		"charges_enabled": acct.ChargesEnabled,
		"payouts_enabled": acct.PayoutsEnabled,
	})
	return acct, nil
}

// UpdatePayoutSchedule switches the account's payout interval, typically
// manual to daily once the seller settles.
func (c *Client) UpdatePayoutSchedule(ctx context.Context, accountID, interval string) (*stripe.Account, error) {
	req := &stripe.AccountParams{
		Settings: &stripe.AccountSettingsParams{
			Payouts: &stripe.AccountSettingsPayoutsParams{
				Schedule: &stripe.AccountSettingsPayoutsScheduleParams{
					Interval: stripe.String(strings.TrimSpace(interval)),
				},
			},
		},
	}
	req.Context = ctx
	c.log(ctx, "request", "update_payout_schedule", map[string]any{
		"account_id": accountID,
		"interval":   interval,
	})

	acct, err := account.Update(accountID, req)
	if err != nil {
		c.log(ctx, "error", "update_payout_schedule", map[string]any{"error": err.Error()})
		return nil, c.mapStripeError(err, "update payout schedule")
	}

	c.log(ctx, "response", "update_payout_schedule", map[string]any{"account_id": acct.ID})
	return acct, nil
}

// TransfersActive reports whether the account can receive transfers right
// now. Routing consults this live state rather than the cached local status.
func TransfersActive(acct *stripe.Account) bool {
	if acct == nil || acct.Capabilities == nil {
		return false
	}
	return acct.Capabilities.Transfers == stripe.AccountCapabilityStatusActive
}
