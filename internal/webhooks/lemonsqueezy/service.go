package lemonsqueezy

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/launchbase-io/launchbase-backend/internal/billing"
	"github.com/launchbase-io/launchbase-backend/internal/subscriptions"
	"github.com/launchbase-io/launchbase-backend/pkg/enums"
	pkgerrors "github.com/launchbase-io/launchbase-backend/pkg/errors"
	ls "github.com/launchbase-io/launchbase-backend/pkg/lemonsqueezy"
	"github.com/launchbase-io/launchbase-backend/pkg/logger"
	"github.com/launchbase-io/launchbase-backend/pkg/metrics"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service dispatches verified webhook deliveries to their handlers. It is the
// single writer of subscription rows: billing actions only talk to the
// provider, and every local mutation flows through here.
type Service interface {
	HandleEvent(ctx context.Context, eventName string, payload *ls.WebhookPayload) error
}

// ServiceParams groups dependencies for the webhook service.
type ServiceParams struct {
	BillingRepo       billing.Repository
	TransactionRunner txRunner
	Metrics           *metrics.WebhookMetrics
	Logger            *logger.Logger
}

type service struct {
	billingRepo billing.Repository
	txRunner    txRunner
	metrics     *metrics.WebhookMetrics
	logger      *logger.Logger
}

// NewService builds a webhook service with the required dependencies.
// Metrics may be nil; recording becomes a no-op.
func NewService(params ServiceParams) (Service, error) {
	if params.BillingRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "billing repo required")
	}
	if params.TransactionRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "transaction runner required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{
		billingRepo: params.BillingRepo,
		txRunner:    params.TransactionRunner,
		metrics:     params.Metrics,
		logger:      params.Logger,
	}, nil
}

// HandleEvent routes a delivery by event name. Unrecognized events are
// acknowledged without side effects so the provider stops retrying them.
func (s *service) HandleEvent(ctx context.Context, eventName string, payload *ls.WebhookPayload) error {
	start := time.Now()
	defer func() {
		s.metrics.ObserveDuration(eventName, time.Since(start))
	}()

	ctx = s.logger.WithEventName(ctx, eventName)

	var err error
	switch eventName {
	case ls.EventSubscriptionCreated:
		err = s.handleSubscriptionCreated(ctx, payload)
	case ls.EventSubscriptionUpdated:
		err = s.handleSubscriptionUpdated(ctx, payload)
	case ls.EventSubscriptionPaymentSuccess:
		// Payment history lives provider-side; the local row only changes
		// through subscription_updated.
		s.metrics.IncIgnored(eventName)
		s.logger.Info(ctx, "webhook payment event acknowledged")
		return nil
	default:
		s.metrics.IncIgnored(eventName)
		s.logger.Info(ctx, "webhook event ignored")
		return nil
	}

	if err != nil {
		s.metrics.IncFailed(eventName)
		s.logger.Error(ctx, "webhook event failed", err)
		return err
	}

	s.metrics.IncHandled(eventName)
	s.logger.Info(ctx, "webhook event handled")
	return nil
}

// handleSubscriptionCreated stores the subscription and links it to the
// organization forwarded through checkout custom data. Both writes are
// upserts inside one transaction, so a redelivered event converges on the
// same rows.
func (s *service) handleSubscriptionCreated(ctx context.Context, payload *ls.WebhookPayload) error {
	organizationID, err := subscriptions.OrganizationIDFromWebhook(payload)
	if err != nil {
		return err
	}

	sub, err := subscriptions.BuildSubscriptionFromWebhook(payload)
	if err != nil {
		return err
	}
	link := subscriptions.BuildSubscriptionLink(payload, organizationID)

	return s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.billingRepo.WithTx(tx)
		if err := txRepo.UpsertSubscription(ctx, sub); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert subscription")
		}
		if err := txRepo.LinkSubscriptionToOrganization(ctx, link); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "link subscription to organization")
		}
		return nil
	})
}

// handleSubscriptionUpdated mirrors the provider's state change. A cancelled
// subscription is still usable until the period ends, so it stays as an
// upsert; only the terminal expired state removes the row.
func (s *service) handleSubscriptionUpdated(ctx context.Context, payload *ls.WebhookPayload) error {
	sub, err := subscriptions.BuildSubscriptionFromWebhook(payload)
	if err != nil {
		return err
	}

	if sub.Status == enums.SubscriptionStatusExpired {
		if err := s.billingRepo.DeleteSubscription(ctx, sub.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete expired subscription")
		}
		return nil
	}

	if err := s.billingRepo.UpsertSubscription(ctx, sub); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "upsert subscription")
	}
	return nil
}
