package subscriptions

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/launchbase-io/launchbase-backend/internal/billing"
	"github.com/launchbase-io/launchbase-backend/pkg/db/models"
	"github.com/launchbase-io/launchbase-backend/pkg/enums"
	pkgerrors "github.com/launchbase-io/launchbase-backend/pkg/errors"
	"github.com/launchbase-io/launchbase-backend/pkg/lemonsqueezy"
	"github.com/launchbase-io/launchbase-backend/pkg/logger"
)

type fakeBillingRepo struct {
	subscription *models.Subscription
	link         *models.OrganizationSubscription
	writes       int
}

func (f *fakeBillingRepo) WithTx(tx *gorm.DB) billing.Repository { return f }

func (f *fakeBillingRepo) UpsertSubscription(ctx context.Context, sub *models.Subscription) error {
	f.writes++
	return nil
}

func (f *fakeBillingRepo) DeleteSubscription(ctx context.Context, subscriptionID string) error {
	f.writes++
	return nil
}

func (f *fakeBillingRepo) FindSubscriptionByID(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	if f.subscription != nil && f.subscription.ID == subscriptionID {
		return f.subscription, nil
	}
	return nil, nil
}

func (f *fakeBillingRepo) LinkSubscriptionToOrganization(ctx context.Context, link *models.OrganizationSubscription) error {
	f.writes++
	return nil
}

func (f *fakeBillingRepo) FindLinkByOrganization(ctx context.Context, organizationID uuid.UUID) (*models.OrganizationSubscription, error) {
	return f.link, nil
}

func (f *fakeBillingRepo) FindSubscriptionForOrganization(ctx context.Context, organizationID uuid.UUID) (*models.Subscription, error) {
	return f.subscription, nil
}

type fakePlanRepo struct {
	plans []models.Plan
}

func (f *fakePlanRepo) ListPlans(ctx context.Context) ([]models.Plan, error) {
	return f.plans, nil
}

func (f *fakePlanRepo) FindPlanByID(ctx context.Context, id string) (*models.Plan, error) {
	for i := range f.plans {
		if f.plans[i].ID == id {
			return &f.plans[i], nil
		}
	}
	return nil, nil
}

func (f *fakePlanRepo) FindPlanByVariantID(ctx context.Context, variantID int64) (*models.Plan, error) {
	for i := range f.plans {
		if f.plans[i].VariantID == variantID {
			return &f.plans[i], nil
		}
	}
	return nil, nil
}

func (f *fakePlanRepo) FindDefaultPlan(ctx context.Context) (*models.Plan, error) {
	for i := range f.plans {
		if f.plans[i].IsDefault {
			return &f.plans[i], nil
		}
	}
	return nil, nil
}

type fakeMemberships struct {
	member  bool
	billing bool
}

func (f *fakeMemberships) GetMembership(ctx context.Context, userID, organizationID uuid.UUID) (*models.OrganizationMembership, error) {
	if !f.member {
		return nil, gorm.ErrRecordNotFound
	}
	return &models.OrganizationMembership{OrganizationID: organizationID, UserID: &userID}, nil
}

func (f *fakeMemberships) UserHasRole(ctx context.Context, userID, organizationID uuid.UUID, roles ...enums.MemberRole) (bool, error) {
	return f.billing, nil
}

type providerSpy struct {
	checkouts int
	updates   int
	cancels   int
	resumes   int

	lastCheckout lemonsqueezy.CheckoutParams
	lastUpdate   lemonsqueezy.UpdateSubscriptionParams
	lastID       string
}

func (p *providerSpy) CreateCheckout(ctx context.Context, params lemonsqueezy.CheckoutParams) (*lemonsqueezy.Checkout, error) {
	p.checkouts++
	p.lastCheckout = params
	return &lemonsqueezy.Checkout{ID: "chk_1", URL: "https://checkout.example.com/chk_1"}, nil
}

func (p *providerSpy) GetSubscription(ctx context.Context, subscriptionID string) (*lemonsqueezy.Subscription, error) {
	p.lastID = subscriptionID
	return &lemonsqueezy.Subscription{ID: subscriptionID}, nil
}

func (p *providerSpy) UpdateSubscription(ctx context.Context, params lemonsqueezy.UpdateSubscriptionParams) (*lemonsqueezy.Subscription, error) {
	p.updates++
	p.lastUpdate = params
	return &lemonsqueezy.Subscription{ID: params.SubscriptionID}, nil
}

func (p *providerSpy) CancelSubscription(ctx context.Context, subscriptionID string) (*lemonsqueezy.Subscription, error) {
	p.cancels++
	p.lastID = subscriptionID
	return &lemonsqueezy.Subscription{ID: subscriptionID}, nil
}

func (p *providerSpy) ResumeSubscription(ctx context.Context, subscriptionID string) (*lemonsqueezy.Subscription, error) {
	p.resumes++
	p.lastID = subscriptionID
	return &lemonsqueezy.Subscription{ID: subscriptionID}, nil
}

func (p *providerSpy) calls() int {
	return p.checkouts + p.updates + p.cancels + p.resumes
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func newTestService(t *testing.T, repo *fakeBillingRepo, planRepo *fakePlanRepo, members *fakeMemberships, provider *providerSpy) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		BillingRepo: repo,
		PlanRepo:    planRepo,
		Memberships: members,
		Provider:    provider,
		Logger:      testLogger(),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func proPlan() models.Plan {
	return models.Plan{ID: "plan_pro", Name: "Pro", ProductID: 11, VariantID: 77, Interval: enums.BillingIntervalMonth}
}

func scalePlan() models.Plan {
	return models.Plan{ID: "plan_scale", Name: "Scale", ProductID: 11, VariantID: 88, Interval: enums.BillingIntervalMonth}
}

func activeSubscription() *models.Subscription {
	return &models.Subscription{
		ID:                "sub_123",
		VariantID:         77,
		Status:            enums.SubscriptionStatusActive,
		ProviderCreatedAt: time.Now().UTC(),
	}
}

func TestCreateCheckout(t *testing.T) {
	provider := &providerSpy{}
	repo := &fakeBillingRepo{}
	svc := newTestService(t, repo, &fakePlanRepo{plans: []models.Plan{proPlan()}}, &fakeMemberships{member: true, billing: true}, provider)

	orgID := uuid.New()
	checkout, err := svc.CreateCheckout(context.Background(), uuid.New(), orgID, CheckoutInput{VariantID: 77, ReturnURL: "https://app.example.com/billing"})
	if err != nil {
		t.Fatalf("create checkout: %v", err)
	}
	if checkout.URL == "" {
		t.Fatal("expected checkout url")
	}
	if provider.checkouts != 1 {
		t.Fatalf("expected one provider call, got %d", provider.checkouts)
	}
	if provider.lastCheckout.OrganizationID != orgID.String() {
		t.Fatalf("expected organization id in custom data, got %q", provider.lastCheckout.OrganizationID)
	}
	if repo.writes != 0 {
		t.Fatalf("billing actions must not write locally, got %d writes", repo.writes)
	}
}

func TestCreateCheckoutUnknownVariant(t *testing.T) {
	provider := &providerSpy{}
	svc := newTestService(t, &fakeBillingRepo{}, &fakePlanRepo{plans: []models.Plan{proPlan()}}, &fakeMemberships{member: true, billing: true}, provider)

	_, err := svc.CreateCheckout(context.Background(), uuid.New(), uuid.New(), CheckoutInput{VariantID: 999})
	if domainErr := pkgerrors.As(err); domainErr == nil || domainErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
	if provider.calls() != 0 {
		t.Fatalf("expected no provider calls, got %d", provider.calls())
	}
}

func TestCreateCheckoutWithActiveSubscription(t *testing.T) {
	provider := &providerSpy{}
	repo := &fakeBillingRepo{subscription: activeSubscription()}
	svc := newTestService(t, repo, &fakePlanRepo{plans: []models.Plan{proPlan()}}, &fakeMemberships{member: true, billing: true}, provider)

	_, err := svc.CreateCheckout(context.Background(), uuid.New(), uuid.New(), CheckoutInput{VariantID: 77})
	if domainErr := pkgerrors.As(err); domainErr == nil || domainErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if provider.calls() != 0 {
		t.Fatalf("expected no provider calls, got %d", provider.calls())
	}
}

func TestBillingActionsRequireOwnerOrAdmin(t *testing.T) {
	provider := &providerSpy{}
	repo := &fakeBillingRepo{subscription: activeSubscription()}
	svc := newTestService(t, repo, &fakePlanRepo{plans: []models.Plan{proPlan(), scalePlan()}}, &fakeMemberships{member: true, billing: false}, provider)

	userID := uuid.New()
	orgID := uuid.New()
	ctx := context.Background()

	actions := map[string]func() error{
		"create_checkout": func() error {
			_, err := svc.CreateCheckout(ctx, userID, orgID, CheckoutInput{VariantID: 77})
			return err
		},
		"change_plan": func() error { return svc.ChangePlan(ctx, userID, orgID, 88) },
		"cancel":      func() error { return svc.Cancel(ctx, userID, orgID) },
		"resume":      func() error { return svc.Resume(ctx, userID, orgID) },
	}

	for name, action := range actions {
		err := action()
		if domainErr := pkgerrors.As(err); domainErr == nil || domainErr.Code() != pkgerrors.CodeForbidden {
			t.Fatalf("%s: expected forbidden, got %v", name, err)
		}
	}

	// A denied member must never reach the provider.
	if provider.calls() != 0 {
		t.Fatalf("expected no provider calls, got %d", provider.calls())
	}
}

func TestChangePlan(t *testing.T) {
	provider := &providerSpy{}
	repo := &fakeBillingRepo{subscription: activeSubscription()}
	svc := newTestService(t, repo, &fakePlanRepo{plans: []models.Plan{proPlan(), scalePlan()}}, &fakeMemberships{member: true, billing: true}, provider)

	if err := svc.ChangePlan(context.Background(), uuid.New(), uuid.New(), 88); err != nil {
		t.Fatalf("change plan: %v", err)
	}
	if provider.updates != 1 {
		t.Fatalf("expected one update call, got %d", provider.updates)
	}
	if provider.lastUpdate.SubscriptionID != "sub_123" || provider.lastUpdate.ProductID != 11 || provider.lastUpdate.VariantID != 88 {
		t.Fatalf("unexpected update params: %+v", provider.lastUpdate)
	}
	if repo.writes != 0 {
		t.Fatalf("plan change must not write locally, got %d writes", repo.writes)
	}
}

func TestChangePlanToCurrentVariant(t *testing.T) {
	provider := &providerSpy{}
	repo := &fakeBillingRepo{subscription: activeSubscription()}
	svc := newTestService(t, repo, &fakePlanRepo{plans: []models.Plan{proPlan(), scalePlan()}}, &fakeMemberships{member: true, billing: true}, provider)

	err := svc.ChangePlan(context.Background(), uuid.New(), uuid.New(), 77)
	if domainErr := pkgerrors.As(err); domainErr == nil || domainErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if provider.calls() != 0 {
		t.Fatalf("expected no provider calls, got %d", provider.calls())
	}
}

func TestCancel(t *testing.T) {
	provider := &providerSpy{}
	repo := &fakeBillingRepo{subscription: activeSubscription()}
	svc := newTestService(t, repo, &fakePlanRepo{plans: []models.Plan{proPlan()}}, &fakeMemberships{member: true, billing: true}, provider)

	if err := svc.Cancel(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if provider.cancels != 1 || provider.lastID != "sub_123" {
		t.Fatalf("expected cancel call for sub_123, got %d calls (last id %q)", provider.cancels, provider.lastID)
	}
	if repo.writes != 0 {
		t.Fatalf("cancel must not write locally, got %d writes", repo.writes)
	}
}

func TestCancelAlreadyCancelled(t *testing.T) {
	provider := &providerSpy{}
	sub := activeSubscription()
	sub.Status = enums.SubscriptionStatusCancelled
	sub.CancelAtPeriodEnd = true
	svc := newTestService(t, &fakeBillingRepo{subscription: sub}, &fakePlanRepo{plans: []models.Plan{proPlan()}}, &fakeMemberships{member: true, billing: true}, provider)

	err := svc.Cancel(context.Background(), uuid.New(), uuid.New())
	if domainErr := pkgerrors.As(err); domainErr == nil || domainErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if provider.calls() != 0 {
		t.Fatalf("expected no provider calls, got %d", provider.calls())
	}
}

func TestResume(t *testing.T) {
	provider := &providerSpy{}
	sub := activeSubscription()
	sub.Status = enums.SubscriptionStatusCancelled
	sub.CancelAtPeriodEnd = true
	svc := newTestService(t, &fakeBillingRepo{subscription: sub}, &fakePlanRepo{plans: []models.Plan{proPlan()}}, &fakeMemberships{member: true, billing: true}, provider)

	if err := svc.Resume(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("resume: %v", err)
	}
	if provider.resumes != 1 || provider.lastID != "sub_123" {
		t.Fatalf("expected resume call for sub_123, got %d calls (last id %q)", provider.resumes, provider.lastID)
	}
}

func TestResumeWithoutPendingCancellation(t *testing.T) {
	provider := &providerSpy{}
	svc := newTestService(t, &fakeBillingRepo{subscription: activeSubscription()}, &fakePlanRepo{plans: []models.Plan{proPlan()}}, &fakeMemberships{member: true, billing: true}, provider)

	err := svc.Resume(context.Background(), uuid.New(), uuid.New())
	if domainErr := pkgerrors.As(err); domainErr == nil || domainErr.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict, got %v", err)
	}
	if provider.calls() != 0 {
		t.Fatalf("expected no provider calls, got %d", provider.calls())
	}
}

func TestGetCurrent(t *testing.T) {
	svc := newTestService(t, &fakeBillingRepo{subscription: activeSubscription()}, &fakePlanRepo{plans: []models.Plan{proPlan()}}, &fakeMemberships{member: true}, &providerSpy{})

	details, err := svc.GetCurrent(context.Background(), uuid.New(), uuid.New())
	if err != nil {
		t.Fatalf("get current: %v", err)
	}
	if details.Subscription.ID != "sub_123" {
		t.Fatalf("expected sub_123, got %q", details.Subscription.ID)
	}
	if details.Plan == nil || details.Plan.ID != "plan_pro" {
		t.Fatalf("expected plan_pro, got %+v", details.Plan)
	}
}

func TestGetCurrentRequiresMembership(t *testing.T) {
	svc := newTestService(t, &fakeBillingRepo{subscription: activeSubscription()}, &fakePlanRepo{plans: []models.Plan{proPlan()}}, &fakeMemberships{member: false}, &providerSpy{})

	_, err := svc.GetCurrent(context.Background(), uuid.New(), uuid.New())
	if domainErr := pkgerrors.As(err); domainErr == nil || domainErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
}

func TestGetCurrentWithoutSubscription(t *testing.T) {
	svc := newTestService(t, &fakeBillingRepo{}, &fakePlanRepo{plans: []models.Plan{proPlan()}}, &fakeMemberships{member: true}, &providerSpy{})

	_, err := svc.GetCurrent(context.Background(), uuid.New(), uuid.New())
	if domainErr := pkgerrors.As(err); domainErr == nil || domainErr.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}
