package onboarding

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"

	"github.com/driftlabs/driftpay-backend/internal/sellers"
	"github.com/driftlabs/driftpay-backend/pkg/db/models"
	"github.com/driftlabs/driftpay-backend/pkg/enums"
	pkgerrors "github.com/driftlabs/driftpay-backend/pkg/errors"
	"github.com/driftlabs/driftpay-backend/pkg/logger"
	"github.com/driftlabs/driftpay-backend/pkg/outbox"
	"github.com/driftlabs/driftpay-backend/pkg/outbox/payloads"
	pkgstripe "github.com/driftlabs/driftpay-backend/pkg/stripe"
)

type fakeSellerRepo struct {
	seller  *models.Seller
	findErr error
	updates []map[string]any
}

func (f *fakeSellerRepo) WithTx(tx *gorm.DB) sellers.Repository { return f }

func (f *fakeSellerRepo) Create(ctx context.Context, seller *models.Seller) error { return nil }

func (f *fakeSellerRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	return f.FindByIDForUpdate(ctx, id)
}

func (f *fakeSellerRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Seller, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	if f.seller == nil || f.seller.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *f.seller
	return &copied, nil
}

func (f *fakeSellerRepo) FindByStripeAccountID(ctx context.Context, accountID string) (*models.Seller, error) {
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSellerRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	f.updates = append(f.updates, updates)
	return nil
}

type fakeAccountClient struct {
	created       *stripe.Account
	createErr     error
	retrieved     *stripe.Account
	retrieveErr   error
	createCalls   int
	retrieveCalls int
	lastCreate    pkgstripe.AccountCreateParams
}

func (f *fakeAccountClient) CreateAccount(ctx context.Context, params pkgstripe.AccountCreateParams) (*stripe.Account, error) {
	f.createCalls++
	f.lastCreate = params
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.created, nil
}

func (f *fakeAccountClient) RetrieveAccount(ctx context.Context, accountID string) (*stripe.Account, error) {
	f.retrieveCalls++
	if f.retrieveErr != nil {
		return nil, f.retrieveErr
	}
	return f.retrieved, nil
}

type fakeLedgerInitializer struct {
	calls []uuid.UUID
	err   error
}

func (f *fakeLedgerInitializer) Initialize(ctx context.Context, tx *gorm.DB, sellerID uuid.UUID) error {
	f.calls = append(f.calls, sellerID)
	return f.err
}

type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakeOutbox struct {
	events []outbox.DomainEvent
	err    error
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type onboardingFixture struct {
	svc      Service
	repo     *fakeSellerRepo
	accounts *fakeAccountClient
	ledger   *fakeLedgerInitializer
	outbox   *fakeOutbox
}

func newOnboardingFixture(t *testing.T, seller *models.Seller, accounts *fakeAccountClient) *onboardingFixture {
	t.Helper()
	repo := &fakeSellerRepo{seller: seller}
	ledger := &fakeLedgerInitializer{}
	publisher := &fakeOutbox{}
	logg := logger.New(logger.Options{ServiceName: "onboarding-test"})
	svc, err := NewService(repo, ledger, accounts, fakeTxRunner{}, publisher, logg, 5*time.Second)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &onboardingFixture{svc: svc, repo: repo, accounts: accounts, ledger: ledger, outbox: publisher}
}

func unprovisionedSeller() *models.Seller {
	return &models.Seller{
		ID:                 uuid.New(),
		Email:              "seller@example.com",
		DisplayName:        "Drift Goods",
		Country:            "US",
		VerificationStatus: enums.VerificationStatusUnprovisioned,
		PayoutMode:         enums.PayoutModeManual,
	}
}

func provisionedSeller(accountID string) *models.Seller {
	seller := unprovisionedSeller()
	seller.StripeAccountID = &accountID
	seller.VerificationStatus = enums.VerificationStatusProvisionedUnverified
	return seller
}

func TestEnsureCreatesAccountFirstTime(t *testing.T) {
	seller := unprovisionedSeller()
	accounts := &fakeAccountClient{created: &stripe.Account{ID: "acct_new"}}
	fx := newOnboardingFixture(t, seller, accounts)

	accountID, err := fx.svc.EnsureDestinationAccount(context.Background(), seller.ID)
	if err != nil {
		t.Fatalf("EnsureDestinationAccount: %v", err)
	}
	if accountID != "acct_new" {
		t.Fatalf("account id = %q, want acct_new", accountID)
	}

	if accounts.createCalls != 1 {
		t.Fatalf("create calls = %d, want 1", accounts.createCalls)
	}
	if accounts.retrieveCalls != 0 {
		t.Fatalf("retrieve calls = %d, want 0", accounts.retrieveCalls)
	}
	if got := accounts.lastCreate.IdempotencyKey; got != "provision:"+seller.ID.String() {
		t.Fatalf("idempotency key = %q", got)
	}
	if accounts.lastCreate.Email != seller.Email || accounts.lastCreate.Country != "US" {
		t.Fatalf("create params = %+v", accounts.lastCreate)
	}

	if len(fx.repo.updates) != 1 {
		t.Fatalf("updates = %d, want 1", len(fx.repo.updates))
	}
	persisted := fx.repo.updates[0]
	if persisted["stripe_account_id"] != "acct_new" {
		t.Fatalf("persisted account id = %v", persisted["stripe_account_id"])
	}
	if persisted["verification_status"] != enums.VerificationStatusProvisionedUnverified {
		t.Fatalf("persisted status = %v", persisted["verification_status"])
	}
	if persisted["payout_mode"] != enums.PayoutModeManual {
		t.Fatalf("persisted payout mode = %v", persisted["payout_mode"])
	}

	if len(fx.ledger.calls) != 1 || fx.ledger.calls[0] != seller.ID {
		t.Fatalf("ledger init calls = %v", fx.ledger.calls)
	}

	if len(fx.outbox.events) != 1 {
		t.Fatalf("events = %d, want 1", len(fx.outbox.events))
	}
	event := fx.outbox.events[0]
	if event.EventType != enums.EventSellerProvisioned {
		t.Fatalf("event type = %s", event.EventType)
	}
	payload, ok := event.Data.(payloads.SellerProvisionedEvent)
	if !ok {
		t.Fatalf("payload type = %T", event.Data)
	}
	if payload.SellerID != seller.ID || payload.StripeAccountID != "acct_new" {
		t.Fatalf("payload = %+v", payload)
	}
}

func TestEnsureReturnsExistingWhenConfirmed(t *testing.T) {
	seller := provisionedSeller("acct_existing")
	accounts := &fakeAccountClient{retrieved: &stripe.Account{ID: "acct_existing"}}
	fx := newOnboardingFixture(t, seller, accounts)

	accountID, err := fx.svc.EnsureDestinationAccount(context.Background(), seller.ID)
	if err != nil {
		t.Fatalf("EnsureDestinationAccount: %v", err)
	}
	if accountID != "acct_existing" {
		t.Fatalf("account id = %q, want acct_existing", accountID)
	}

	if accounts.createCalls != 0 {
		t.Fatal("confirmed identity must not be recreated")
	}
	if len(fx.repo.updates) != 0 {
		t.Fatalf("updates = %v, want none", fx.repo.updates)
	}
	if len(fx.ledger.calls) != 0 {
		t.Fatal("ledger must not be reinitialized")
	}
	if len(fx.outbox.events) != 0 {
		t.Fatal("no event expected for an already provisioned seller")
	}
}

func TestEnsureReprovisionsWhenProviderLostAccount(t *testing.T) {
	seller := provisionedSeller("acct_gone")
	accounts := &fakeAccountClient{
		retrieveErr: pkgerrors.New(pkgerrors.CodeNotFound, "stripe retrieve account failed"),
		created:     &stripe.Account{ID: "acct_fresh"},
	}
	fx := newOnboardingFixture(t, seller, accounts)

	accountID, err := fx.svc.EnsureDestinationAccount(context.Background(), seller.ID)
	if err != nil {
		t.Fatalf("EnsureDestinationAccount: %v", err)
	}
	if accountID != "acct_fresh" {
		t.Fatalf("account id = %q, want acct_fresh", accountID)
	}

	if len(fx.repo.updates) != 2 {
		t.Fatalf("updates = %d, want clear then persist", len(fx.repo.updates))
	}
	cleared := fx.repo.updates[0]
	if cleared["stripe_account_id"] != nil {
		t.Fatalf("clear update = %v", cleared)
	}
	if cleared["verification_status"] != enums.VerificationStatusUnprovisioned {
		t.Fatalf("clear status = %v", cleared["verification_status"])
	}
	if fx.repo.updates[1]["stripe_account_id"] != "acct_fresh" {
		t.Fatalf("persist update = %v", fx.repo.updates[1])
	}
}

func TestEnsureReprovisionsWhenAccountTombstoned(t *testing.T) {
	seller := provisionedSeller("acct_dead")
	accounts := &fakeAccountClient{
		retrieved: &stripe.Account{ID: "acct_dead", Deleted: true},
		created:   &stripe.Account{ID: "acct_fresh"},
	}
	fx := newOnboardingFixture(t, seller, accounts)

	accountID, err := fx.svc.EnsureDestinationAccount(context.Background(), seller.ID)
	if err != nil {
		t.Fatalf("EnsureDestinationAccount: %v", err)
	}
	if accountID != "acct_fresh" {
		t.Fatalf("account id = %q, want acct_fresh", accountID)
	}
	if accounts.createCalls != 1 {
		t.Fatalf("create calls = %d, want 1", accounts.createCalls)
	}
}

func TestEnsureSurfacesTransientConfirmFailure(t *testing.T) {
	seller := provisionedSeller("acct_existing")
	accounts := &fakeAccountClient{retrieveErr: errors.New("stripe unreachable")}
	fx := newOnboardingFixture(t, seller, accounts)

	_, err := fx.svc.EnsureDestinationAccount(context.Background(), seller.ID)
	if err == nil {
		t.Fatal("expected error when confirmation fails transiently")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("error = %v, want dependency code", err)
	}
	if accounts.createCalls != 0 {
		t.Fatal("a transient failure must never trigger recreation")
	}
	if len(fx.repo.updates) != 0 {
		t.Fatalf("updates = %v, want none", fx.repo.updates)
	}
}

func TestEnsureCreateFailureAborts(t *testing.T) {
	seller := unprovisionedSeller()
	accounts := &fakeAccountClient{createErr: errors.New("stripe create account failed")}
	fx := newOnboardingFixture(t, seller, accounts)

	_, err := fx.svc.EnsureDestinationAccount(context.Background(), seller.ID)
	if err == nil {
		t.Fatal("expected provisioning failure to surface")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("error = %v, want dependency code", err)
	}

	if len(fx.repo.updates) != 0 {
		t.Fatal("nothing may be persisted when creation fails")
	}
	if len(fx.ledger.calls) != 0 {
		t.Fatal("ledger must not initialize when creation fails")
	}
	if len(fx.outbox.events) != 0 {
		t.Fatal("no event may be emitted when creation fails")
	}
}

func TestEnsureSellerNotFound(t *testing.T) {
	accounts := &fakeAccountClient{}
	fx := newOnboardingFixture(t, nil, accounts)

	_, err := fx.svc.EnsureDestinationAccount(context.Background(), uuid.New())
	if err == nil {
		t.Fatal("expected not found error")
	}
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("error = %v, want not found", err)
	}
}

func TestEnsureValidatesSellerID(t *testing.T) {
	fx := newOnboardingFixture(t, unprovisionedSeller(), &fakeAccountClient{})

	_, err := fx.svc.EnsureDestinationAccount(context.Background(), uuid.Nil)
	if err == nil {
		t.Fatal("expected validation error for nil seller id")
	}
}
