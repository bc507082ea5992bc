package stripe

import (
	"strings"

	"github.com/stripe/stripe-go/v84"
)

const payoutIntervalManual = "manual"

// SellerTransferGroup links the held charges and the eventual settlement
// transfer for one seller on the provider side.
func SellerTransferGroup(sellerID string) string {
	return "seller:" + sellerID
}

// Metadata keys stamped on provider objects so they can be traced back to
// platform records. Session metadata additionally carries the routing
// decision for the completion webhook.
const (
	MetadataSellerID   = "driftpay_seller_id"
	MetadataOnboarding = "driftpay_onboarding"
	MetadataStrategy   = "driftpay_strategy"
	MetadataNetCents   = "driftpay_net_cents"

	onboardingDeferred = "deferred"
)

// AccountCreateParams contains the fields required to provision a connected
// account. Payouts always start on a manual schedule so funds cannot leave
// the account before the reconciler releases them.
type AccountCreateParams struct {
	SellerID       string
	Email          string
	Country        string
	DisplayName    string
	IdempotencyKey string
}

func (p AccountCreateParams) toStripeParams(idempotencyKey string) *stripe.AccountParams {
	params := &stripe.AccountParams{
		Type: stripe.String(string(stripe.AccountTypeExpress)),
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
		Settings: &stripe.AccountSettingsParams{
			Payouts: &stripe.AccountSettingsPayoutsParams{
				Schedule: &stripe.AccountSettingsPayoutsScheduleParams{
					Interval: stripe.String(payoutIntervalManual),
				},
			},
		},
	}
	if trimmed := strings.TrimSpace(p.Country); trimmed != "" {
		params.Country = stripe.String(trimmed)
	}
	if trimmed := strings.TrimSpace(p.Email); trimmed != "" {
		params.Email = stripe.String(trimmed)
	}
	if trimmed := strings.TrimSpace(p.DisplayName); trimmed != "" {
		params.BusinessProfile = &stripe.AccountBusinessProfileParams{
			Name: stripe.String(trimmed),
		}
	}
	if trimmed := strings.TrimSpace(p.SellerID); trimmed != "" {
		params.AddMetadata(MetadataSellerID, trimmed)
	}
	params.AddMetadata(MetadataOnboarding, onboardingDeferred)
	params.SetIdempotencyKey(idempotencyKey)
	return params
}

// TransferCreateParams groups the data needed to move held funds to a
// connected account.
type TransferCreateParams struct {
	AmountCents          int64
	Currency             string
	DestinationAccountID string
	TransferGroup        string
	Description          string
	Metadata             map[string]string
	IdempotencyKey       string
}

func (p TransferCreateParams) toStripeParams(idempotencyKey string) *stripe.TransferParams {
	params := &stripe.TransferParams{
		Amount:      stripe.Int64(p.AmountCents),
		Currency:    stripe.String(strings.TrimSpace(p.Currency)),
		Destination: stripe.String(strings.TrimSpace(p.DestinationAccountID)),
	}
	if trimmed := strings.TrimSpace(p.TransferGroup); trimmed != "" {
		params.TransferGroup = stripe.String(trimmed)
	}
	if trimmed := strings.TrimSpace(p.Description); trimmed != "" {
		params.Description = stripe.String(trimmed)
	}
	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	params.SetIdempotencyKey(idempotencyKey)
	return params
}

// CheckoutSessionCreateParams describes one hosted checkout for a single
// sale. Direct sessions split the charge at payment time; held sessions keep
// the full amount on the platform balance for later settlement.
type CheckoutSessionCreateParams struct {
	CorrelationKey       string
	ProductName          string
	AmountCents          int64
	Quantity             int64
	Currency             string
	SuccessURL           string
	CancelURL            string
	Direct               bool
	ApplicationFeeCents  int64
	DestinationAccountID string
	TransferGroup        string
	Metadata             map[string]string
	IdempotencyKey       string
}

func (p CheckoutSessionCreateParams) toStripeParams(idempotencyKey string) *stripe.CheckoutSessionParams {
	quantity := p.Quantity
	if quantity < 1 {
		quantity = 1
	}
	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(strings.TrimSpace(p.CorrelationKey)),
		SuccessURL:        stripe.String(strings.TrimSpace(p.SuccessURL)),
		CancelURL:         stripe.String(strings.TrimSpace(p.CancelURL)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(quantity),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(strings.TrimSpace(p.Currency)),
					UnitAmount: stripe.Int64(p.AmountCents),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(strings.TrimSpace(p.ProductName)),
					},
				},
			},
		},
	}

	intentData := &stripe.CheckoutSessionPaymentIntentDataParams{}
	if p.Direct {
		intentData.ApplicationFeeAmount = stripe.Int64(p.ApplicationFeeCents)
		intentData.TransferData = &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
			Destination: stripe.String(strings.TrimSpace(p.DestinationAccountID)),
		}
	} else if trimmed := strings.TrimSpace(p.TransferGroup); trimmed != "" {
		intentData.TransferGroup = stripe.String(trimmed)
	}
	if len(p.Metadata) > 0 {
		intentData.Metadata = make(map[string]string, len(p.Metadata))
		for k, v := range p.Metadata {
			intentData.Metadata[k] = v
		}
	}
	params.PaymentIntentData = intentData

	for k, v := range p.Metadata {
		params.AddMetadata(k, v)
	}
	params.SetIdempotencyKey(idempotencyKey)
	return params
}
