package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"

	"github.com/driftlabs/driftpay-backend/internal/checkout"
	"github.com/driftlabs/driftpay-backend/pkg/enums"
	pkgerrors "github.com/driftlabs/driftpay-backend/pkg/errors"
	"github.com/driftlabs/driftpay-backend/pkg/logger"
	"github.com/driftlabs/driftpay-backend/pkg/metrics"
	pkgstripe "github.com/driftlabs/driftpay-backend/pkg/stripe"
)

// outcomeForeignSession marks completed sessions that carry none of our
// routing metadata. Other products share the platform account, so these are
// acked without dispatch.
const outcomeForeignSession = "foreign_session"

const outcomeIgnored = "ignored"

type saleCompleter interface {
	CompleteSale(ctx context.Context, correlationKey string) (checkout.CompletionOutcome, error)
}

type verificationReconciler interface {
	OnVerificationChanged(ctx context.Context, providerAccountID string, chargesEnabled, transfersActive bool) (enums.SettlementOutcome, error)
}

type ServiceParams struct {
	Checkout   saleCompleter
	Settlement verificationReconciler
	Logger     *logger.Logger
	Metrics    *metrics.PaymentMetrics
}

// Service routes verified provider events to the completion flow and the
// settlement reconciler. Signature verification and Redis dedup happen in the
// controller before anything reaches HandleEvent.
type Service struct {
	checkout   saleCompleter
	settlement verificationReconciler
	logg       *logger.Logger
	payments   *metrics.PaymentMetrics
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service required")
	}
	if params.Settlement == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "settlement service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{
		checkout:   params.Checkout,
		settlement: params.Settlement,
		logg:       params.Logger,
		payments:   params.Metrics,
	}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	ctx = s.logg.WithEventID(ctx, event.ID)

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode checkout session event")
		}
		return s.handleSessionCompleted(ctx, event, &session)
	case stripe.EventTypeAccountUpdated:
		var account stripe.Account
		if err := json.Unmarshal(event.Data.Raw, &account); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode account event")
		}
		return s.handleAccountUpdated(ctx, event, &account)
	default:
		s.logg.Debug(ctx, "unhandled stripe event type, acking")
		s.payments.IncWebhookEvent(string(event.Type), outcomeIgnored)
		return nil
	}
}

func (s *Service) handleSessionCompleted(ctx context.Context, event *stripe.Event, session *stripe.CheckoutSession) error {
	if session.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id missing")
	}
	if session.Metadata[pkgstripe.MetadataStrategy] == "" {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{"session_id": session.ID}),
			"completed session without routing metadata, skipping")
		s.payments.IncWebhookEvent(string(event.Type), outcomeForeignSession)
		return nil
	}

	outcome, err := s.checkout.CompleteSale(ctx, session.ID)
	if err != nil {
		return err
	}
	s.payments.IncWebhookEvent(string(event.Type), string(outcome))
	return nil
}

func (s *Service) handleAccountUpdated(ctx context.Context, event *stripe.Event, account *stripe.Account) error {
	if account.ID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "account id missing")
	}
	outcome, err := s.settlement.OnVerificationChanged(ctx, account.ID, account.ChargesEnabled, pkgstripe.TransfersActive(account))
	if err != nil {
		return err
	}
	s.payments.IncWebhookEvent(string(event.Type), string(outcome))
	return nil
}
