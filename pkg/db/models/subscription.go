package models

import (
	"time"

	"github.com/launchbase-io/launchbase-backend/pkg/enums"
)

// Subscription mirrors the provider's subscription object. The primary key is
// the provider's own subscription id, so redelivered webhooks converge on the
// same row instead of duplicating it.
type Subscription struct {
	ID                     string                   `gorm:"column:id;primaryKey"`
	VariantID              int64                    `gorm:"column:variant_id;not null;index"`
	Status                 enums.SubscriptionStatus `gorm:"column:status;type:subscription_status;not null"`
	CancelAtPeriodEnd      bool                     `gorm:"column:cancel_at_period_end;not null;default:false"`
	BillingAnchor          int                      `gorm:"column:billing_anchor;not null;default:0"`
	UpdatePaymentMethodURL *string                  `gorm:"column:update_payment_method_url"`
	ProviderCreatedAt      time.Time                `gorm:"column:provider_created_at;not null"`
	TrialEndsAt            *time.Time               `gorm:"column:trial_ends_at"`
	RenewsAt               *time.Time               `gorm:"column:renews_at"`
	EndsAt                 *time.Time               `gorm:"column:ends_at"`
	CreatedAt              time.Time                `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt              time.Time                `gorm:"column:updated_at;autoUpdateTime"`
}
