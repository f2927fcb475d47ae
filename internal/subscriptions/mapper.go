package subscriptions

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/launchbase-io/launchbase-backend/pkg/db/models"
	"github.com/launchbase-io/launchbase-backend/pkg/enums"
	pkgerrors "github.com/launchbase-io/launchbase-backend/pkg/errors"
	"github.com/launchbase-io/launchbase-backend/pkg/lemonsqueezy"
)

// BuildSubscriptionFromWebhook maps a webhook delivery onto the local
// subscription row. The provider id becomes the primary key so redelivered
// events converge on the same record.
func BuildSubscriptionFromWebhook(payload *lemonsqueezy.WebhookPayload) (*models.Subscription, error) {
	if payload == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook payload is required")
	}
	if strings.TrimSpace(payload.Data.ID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook payload missing subscription id")
	}

	attrs := payload.Data.Attributes
	status, err := enums.ParseSubscriptionStatus(attrs.Status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unrecognized subscription status from provider")
	}

	return &models.Subscription{
		ID:                     payload.Data.ID,
		VariantID:              attrs.VariantID,
		Status:                 status,
		CancelAtPeriodEnd:      attrs.Cancelled,
		BillingAnchor:          attrs.BillingAnchor,
		UpdatePaymentMethodURL: trimmedPtr(attrs.URLs.UpdatePaymentMethod),
		ProviderCreatedAt:      attrs.CreatedAt,
		TrialEndsAt:            copyTimePtr(attrs.TrialEndsAt),
		RenewsAt:               copyTimePtr(attrs.RenewsAt),
		EndsAt:                 copyTimePtr(attrs.EndsAt),
	}, nil
}

// BuildSubscriptionLink maps the webhook onto the organization link row.
func BuildSubscriptionLink(payload *lemonsqueezy.WebhookPayload, organizationID uuid.UUID) *models.OrganizationSubscription {
	return &models.OrganizationSubscription{
		OrganizationID: organizationID,
		CustomerID:     payload.Data.Attributes.CustomerID,
		SubscriptionID: payload.Data.ID,
	}
}

// OrganizationIDFromWebhook extracts the organization id forwarded through
// checkout custom data. Every subscription webhook must carry it, otherwise
// the event cannot be attributed to a tenant.
func OrganizationIDFromWebhook(payload *lemonsqueezy.WebhookPayload) (uuid.UUID, error) {
	if payload == nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook payload is required")
	}

	raw := strings.TrimSpace(payload.Meta.CustomData.OrganizationID)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "webhook custom data missing organization_id")
	}

	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "webhook custom data organization_id is not a uuid")
	}
	return id, nil
}

func trimmedPtr(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func copyTimePtr(src *time.Time) *time.Time {
	if src == nil {
		return nil
	}
	dst := *src
	return &dst
}
