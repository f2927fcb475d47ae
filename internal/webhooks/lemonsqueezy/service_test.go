package lemonsqueezy

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"

	"github.com/launchbase-io/launchbase-backend/internal/billing"
	"github.com/launchbase-io/launchbase-backend/pkg/db/models"
	"github.com/launchbase-io/launchbase-backend/pkg/enums"
	pkgerrors "github.com/launchbase-io/launchbase-backend/pkg/errors"
	ls "github.com/launchbase-io/launchbase-backend/pkg/lemonsqueezy"
	"github.com/launchbase-io/launchbase-backend/pkg/logger"
	"github.com/launchbase-io/launchbase-backend/pkg/metrics"
)

type recordingRepo struct {
	upserts []*models.Subscription
	links   []*models.OrganizationSubscription
	deletes []string
	err     error
}

func (r *recordingRepo) WithTx(tx *gorm.DB) billing.Repository { return r }

func (r *recordingRepo) UpsertSubscription(ctx context.Context, sub *models.Subscription) error {
	if r.err != nil {
		return r.err
	}
	r.upserts = append(r.upserts, sub)
	return nil
}

func (r *recordingRepo) DeleteSubscription(ctx context.Context, subscriptionID string) error {
	if r.err != nil {
		return r.err
	}
	r.deletes = append(r.deletes, subscriptionID)
	return nil
}

func (r *recordingRepo) FindSubscriptionByID(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	return nil, nil
}

func (r *recordingRepo) LinkSubscriptionToOrganization(ctx context.Context, link *models.OrganizationSubscription) error {
	if r.err != nil {
		return r.err
	}
	r.links = append(r.links, link)
	return nil
}

func (r *recordingRepo) FindLinkByOrganization(ctx context.Context, organizationID uuid.UUID) (*models.OrganizationSubscription, error) {
	return nil, nil
}

func (r *recordingRepo) FindSubscriptionForOrganization(ctx context.Context, organizationID uuid.UUID) (*models.Subscription, error) {
	return nil, nil
}

type passthroughTxRunner struct {
	calls int
}

func (p *passthroughTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	p.calls++
	return fn(nil)
}

func newTestService(t *testing.T, repo billing.Repository, runner txRunner) Service {
	t.Helper()
	svc, err := NewService(ServiceParams{
		BillingRepo:       repo,
		TransactionRunner: runner,
		Metrics:           metrics.NewWebhookMetrics(prometheus.NewRegistry()),
		Logger:            logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc
}

func deliveryPayload(status string) *ls.WebhookPayload {
	return &ls.WebhookPayload{
		Meta: ls.WebhookMeta{
			CustomData: ls.WebhookCustomData{
				OrganizationID: "0b8f7f41-9d85-4f4f-9b5e-0f6f2ad3a001",
			},
		},
		Data: ls.WebhookData{
			Type: "subscriptions",
			ID:   "sub_987",
			Attributes: ls.SubscriptionAttributes{
				CustomerID: 5150,
				ProductID:  11,
				VariantID:  77,
				Status:     status,
				CreatedAt:  time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
			},
		},
	}
}

func TestHandleSubscriptionCreated(t *testing.T) {
	repo := &recordingRepo{}
	runner := &passthroughTxRunner{}
	svc := newTestService(t, repo, runner)

	payload := deliveryPayload("active")
	if err := svc.HandleEvent(context.Background(), ls.EventSubscriptionCreated, payload); err != nil {
		t.Fatalf("handle event: %v", err)
	}

	if runner.calls != 1 {
		t.Fatalf("expected one transaction, got %d", runner.calls)
	}
	if len(repo.upserts) != 1 || repo.upserts[0].ID != "sub_987" {
		t.Fatalf("expected subscription upsert, got %+v", repo.upserts)
	}
	if len(repo.links) != 1 {
		t.Fatalf("expected one link write, got %d", len(repo.links))
	}
	link := repo.links[0]
	if link.OrganizationID.String() != payload.Meta.CustomData.OrganizationID {
		t.Fatalf("expected organization from custom data, got %s", link.OrganizationID)
	}
	if link.SubscriptionID != "sub_987" || link.CustomerID != 5150 {
		t.Fatalf("unexpected link: %+v", link)
	}
}

func TestHandleSubscriptionCreatedWithoutOrganization(t *testing.T) {
	repo := &recordingRepo{}
	svc := newTestService(t, repo, &passthroughTxRunner{})

	payload := deliveryPayload("active")
	payload.Meta.CustomData.OrganizationID = ""

	err := svc.HandleEvent(context.Background(), ls.EventSubscriptionCreated, payload)
	if domainErr := pkgerrors.As(err); domainErr == nil || domainErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.upserts) != 0 || len(repo.links) != 0 {
		t.Fatal("expected no writes for unattributable event")
	}
}

func TestHandleSubscriptionUpdatedUpserts(t *testing.T) {
	repo := &recordingRepo{}
	svc := newTestService(t, repo, &passthroughTxRunner{})

	payload := deliveryPayload("cancelled")
	payload.Data.Attributes.Cancelled = true

	if err := svc.HandleEvent(context.Background(), ls.EventSubscriptionUpdated, payload); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(repo.upserts) != 1 {
		t.Fatalf("expected one upsert, got %d", len(repo.upserts))
	}
	if repo.upserts[0].Status != enums.SubscriptionStatusCancelled {
		t.Fatalf("expected cancelled status, got %s", repo.upserts[0].Status)
	}
	if !repo.upserts[0].CancelAtPeriodEnd {
		t.Fatal("expected cancel flag to be set")
	}
	if len(repo.deletes) != 0 {
		t.Fatal("cancelled subscription must not be deleted before it expires")
	}
}

func TestHandleSubscriptionUpdatedExpiredDeletes(t *testing.T) {
	repo := &recordingRepo{}
	svc := newTestService(t, repo, &passthroughTxRunner{})

	if err := svc.HandleEvent(context.Background(), ls.EventSubscriptionUpdated, deliveryPayload("expired")); err != nil {
		t.Fatalf("handle event: %v", err)
	}
	if len(repo.deletes) != 1 || repo.deletes[0] != "sub_987" {
		t.Fatalf("expected delete of sub_987, got %v", repo.deletes)
	}
	if len(repo.upserts) != 0 {
		t.Fatal("expected no upsert for expired subscription")
	}
}

func TestHandleEventIgnoresUnknownEvents(t *testing.T) {
	repo := &recordingRepo{}
	svc := newTestService(t, repo, &passthroughTxRunner{})

	if err := svc.HandleEvent(context.Background(), "order_created", deliveryPayload("active")); err != nil {
		t.Fatalf("unknown events must be acknowledged, got %v", err)
	}
	if len(repo.upserts) != 0 || len(repo.links) != 0 || len(repo.deletes) != 0 {
		t.Fatal("expected no writes for ignored event")
	}
}

func TestHandleEventAcksPaymentSuccessWithoutWrites(t *testing.T) {
	repo := &recordingRepo{}
	runner := &passthroughTxRunner{}
	svc := newTestService(t, repo, runner)

	if err := svc.HandleEvent(context.Background(), ls.EventSubscriptionPaymentSuccess, deliveryPayload("active")); err != nil {
		t.Fatalf("payment success must be acknowledged, got %v", err)
	}
	if len(repo.upserts) != 0 || len(repo.links) != 0 || len(repo.deletes) != 0 {
		t.Fatal("expected no writes for payment event")
	}
	if runner.calls != 0 {
		t.Fatal("expected no transaction for payment event")
	}
}

func TestHandleEventPropagatesRepoFailure(t *testing.T) {
	repo := &recordingRepo{err: errors.New("connection reset")}
	svc := newTestService(t, repo, &passthroughTxRunner{})

	err := svc.HandleEvent(context.Background(), ls.EventSubscriptionUpdated, deliveryPayload("active"))
	if domainErr := pkgerrors.As(err); domainErr == nil || domainErr.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency error, got %v", err)
	}
}
