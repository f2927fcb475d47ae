package models

import (
	"time"

	"github.com/google/uuid"
)

// OrganizationSubscription links an organization to at most one provider
// subscription. The unique index on organization_id enforces the one-plan rule.
type OrganizationSubscription struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID `gorm:"column:organization_id;type:uuid;not null;uniqueIndex"`
	CustomerID     int64     `gorm:"column:customer_id;not null"`
	SubscriptionID string    `gorm:"column:subscription_id;not null;uniqueIndex"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (OrganizationSubscription) TableName() string {
	return "organizations_subscriptions"
}
