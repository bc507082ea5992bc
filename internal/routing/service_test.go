package routing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	"github.com/driftlabs/driftpay-backend/pkg/db/models"
	"github.com/driftlabs/driftpay-backend/pkg/enums"
	pkgerrors "github.com/driftlabs/driftpay-backend/pkg/errors"
	"github.com/driftlabs/driftpay-backend/pkg/logger"
	pkgstripe "github.com/driftlabs/driftpay-backend/pkg/stripe"
)

type fakeAccountRetriever struct {
	account *stripe.Account
	err     error
	calls   int
	lastID  string
}

func (f *fakeAccountRetriever) RetrieveAccount(_ context.Context, accountID string) (*stripe.Account, error) {
	f.calls++
	f.lastID = accountID
	if f.err != nil {
		return nil, f.err
	}
	return f.account, nil
}

func activeAccount() *stripe.Account {
	return &stripe.Account{
		ID: "acct_live",
		Capabilities: &stripe.AccountCapabilities{
			Transfers: stripe.AccountCapabilityStatusActive,
		},
	}
}

func testSeller() *models.Seller {
	accountID := "acct_live"
	return &models.Seller{
		ID:              uuid.New(),
		Email:           "seller@example.com",
		StripeAccountID: &accountID,
	}
}

func newRoutingService(t *testing.T, accounts accountRetriever) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "routing-test"})
	svc, err := NewService(accounts, logg, nil, 2*time.Second)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestComputeFeeSplit(t *testing.T) {
	cases := []struct {
		name    string
		gross   int64
		rateBp  int
		wantFee int64
		wantNet int64
	}{
		{name: "ten percent even", gross: 10000, rateBp: 1000, wantFee: 1000, wantNet: 9000},
		{name: "rounds half up", gross: 105, rateBp: 1000, wantFee: 11, wantNet: 94},
		{name: "rounds down below half", gross: 104, rateBp: 1000, wantFee: 10, wantNet: 94},
		{name: "one cent", gross: 1, rateBp: 1000, wantFee: 0, wantNet: 1},
		{name: "zero rate", gross: 5000, rateBp: 0, wantFee: 0, wantNet: 5000},
		{name: "full rate", gross: 5000, rateBp: 10000, wantFee: 5000, wantNet: 0},
		{name: "zero gross", gross: 0, rateBp: 1000, wantFee: 0, wantNet: 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fee, net, err := ComputeFeeSplit(tc.gross, tc.rateBp)
			if err != nil {
				t.Fatalf("ComputeFeeSplit: %v", err)
			}
			if fee != tc.wantFee {
				t.Fatalf("fee = %d, want %d", fee, tc.wantFee)
			}
			if net != tc.wantNet {
				t.Fatalf("net = %d, want %d", net, tc.wantNet)
			}
		})
	}
}

func TestComputeFeeSplitConserved(t *testing.T) {
	// Whatever the inputs, the split never creates or destroys money.
	for gross := int64(0); gross < 2500; gross++ {
		for _, rateBp := range []int{0, 1, 250, 1000, 2999, 10000} {
			fee, net, err := ComputeFeeSplit(gross, rateBp)
			if err != nil {
				t.Fatalf("ComputeFeeSplit(%d, %d): %v", gross, rateBp, err)
			}
			if fee+net != gross {
				t.Fatalf("fee %d + net %d != gross %d at rate %d", fee, net, gross, rateBp)
			}
			if fee < 0 || net < 0 {
				t.Fatalf("negative component: fee %d net %d at gross %d rate %d", fee, net, gross, rateBp)
			}
		}
	}
}

func TestComputeFeeSplitValidation(t *testing.T) {
	if _, _, err := ComputeFeeSplit(-1, 1000); err == nil {
		t.Fatal("expected error for negative gross")
	}
	if _, _, err := ComputeFeeSplit(100, -1); err == nil {
		t.Fatal("expected error for negative rate")
	}
	if _, _, err := ComputeFeeSplit(100, 10001); err == nil {
		t.Fatal("expected error for rate above 10000")
	}
}

func TestDecideRoutingDirectWhenTransfersActive(t *testing.T) {
	retriever := &fakeAccountRetriever{account: activeAccount()}
	svc := newRoutingService(t, retriever)

	seller := testSeller()
	plan, err := svc.DecideRouting(context.Background(), seller, 10000, 1000)
	if err != nil {
		t.Fatalf("DecideRouting: %v", err)
	}

	if plan.Strategy != enums.RoutingStrategyDirect {
		t.Fatalf("strategy = %s, want direct", plan.Strategy)
	}
	if plan.Degraded {
		t.Fatal("expected non-degraded decision")
	}
	if plan.FeeCents != 1000 || plan.NetCents != 9000 {
		t.Fatalf("split = fee %d net %d, want 1000/9000", plan.FeeCents, plan.NetCents)
	}
	if retriever.calls != 1 {
		t.Fatalf("retriever calls = %d, want 1", retriever.calls)
	}
	if retriever.lastID != "acct_live" {
		t.Fatalf("retriever account = %q, want acct_live", retriever.lastID)
	}
}

func TestDecideRoutingHoldsWhenTransfersInactive(t *testing.T) {
	retriever := &fakeAccountRetriever{account: &stripe.Account{
		ID: "acct_live",
		Capabilities: &stripe.AccountCapabilities{
			Transfers: stripe.AccountCapabilityStatusPending,
		},
	}}
	svc := newRoutingService(t, retriever)

	plan, err := svc.DecideRouting(context.Background(), testSeller(), 10000, 1000)
	if err != nil {
		t.Fatalf("DecideRouting: %v", err)
	}

	if plan.Strategy != enums.RoutingStrategyPlatformHeld {
		t.Fatalf("strategy = %s, want platform_held", plan.Strategy)
	}
	if plan.Degraded {
		t.Fatal("an answered capability check is not a degraded decision")
	}
}

func TestDecideRoutingDegradesOnProviderError(t *testing.T) {
	retriever := &fakeAccountRetriever{err: errors.New("stripe unreachable")}
	svc := newRoutingService(t, retriever)

	plan, err := svc.DecideRouting(context.Background(), testSeller(), 10000, 1000)
	if err != nil {
		t.Fatalf("DecideRouting must not surface provider errors: %v", err)
	}

	if plan.Strategy != enums.RoutingStrategyPlatformHeld {
		t.Fatalf("strategy = %s, want platform_held", plan.Strategy)
	}
	if !plan.Degraded {
		t.Fatal("expected degraded decision when the provider cannot answer")
	}
}

func TestDecideRoutingMetadata(t *testing.T) {
	retriever := &fakeAccountRetriever{account: activeAccount()}
	svc := newRoutingService(t, retriever)

	seller := testSeller()
	plan, err := svc.DecideRouting(context.Background(), seller, 10000, 1000)
	if err != nil {
		t.Fatalf("DecideRouting: %v", err)
	}

	if got := plan.Metadata[pkgstripe.MetadataSellerID]; got != seller.ID.String() {
		t.Fatalf("seller metadata = %q, want %q", got, seller.ID.String())
	}
	if got := plan.Metadata[pkgstripe.MetadataStrategy]; got != "direct" {
		t.Fatalf("strategy metadata = %q, want direct", got)
	}
	if got := plan.Metadata[pkgstripe.MetadataNetCents]; got != "9000" {
		t.Fatalf("net metadata = %q, want 9000", got)
	}
}

func TestDecideRoutingRejectsUnprovisionedSeller(t *testing.T) {
	retriever := &fakeAccountRetriever{account: activeAccount()}
	svc := newRoutingService(t, retriever)

	seller := testSeller()
	seller.StripeAccountID = nil

	_, err := svc.DecideRouting(context.Background(), seller, 10000, 1000)
	if err == nil {
		t.Fatal("expected error for seller without destination account")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("error = %v, want state conflict", err)
	}
	if retriever.calls != 0 {
		t.Fatal("capability check must not run for unprovisioned sellers")
	}
}

func TestDecideRoutingValidatesInputs(t *testing.T) {
	retriever := &fakeAccountRetriever{account: activeAccount()}
	svc := newRoutingService(t, retriever)

	if _, err := svc.DecideRouting(context.Background(), nil, 10000, 1000); err == nil {
		t.Fatal("expected error for nil seller")
	}
	if _, err := svc.DecideRouting(context.Background(), testSeller(), -5, 1000); err == nil {
		t.Fatal("expected error for negative gross")
	}
}
