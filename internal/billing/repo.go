package billing

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/launchbase-io/launchbase-backend/pkg/db/models"
)

// Repository owns every write to the subscriptions and
// organizations_subscriptions tables. All mutations are upserts or deletes
// keyed on stable provider/organization identifiers, so redelivered and
// out-of-order webhooks converge on the same rows.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	UpsertSubscription(ctx context.Context, subscription *models.Subscription) error
	DeleteSubscription(ctx context.Context, subscriptionID string) error
	FindSubscriptionByID(ctx context.Context, subscriptionID string) (*models.Subscription, error)
	LinkSubscriptionToOrganization(ctx context.Context, link *models.OrganizationSubscription) error
	FindLinkByOrganization(ctx context.Context, organizationID uuid.UUID) (*models.OrganizationSubscription, error)
	FindSubscriptionForOrganization(ctx context.Context, organizationID uuid.UUID) (*models.Subscription, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a billing repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

var subscriptionUpsertColumns = []string{
	"variant_id",
	"status",
	"cancel_at_period_end",
	"billing_anchor",
	"update_payment_method_url",
	"provider_created_at",
	"trial_ends_at",
	"renews_at",
	"ends_at",
	"updated_at",
}

func (r *repository) UpsertSubscription(ctx context.Context, subscription *models.Subscription) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(subscriptionUpsertColumns),
		}).
		Create(subscription).Error
}

func (r *repository) DeleteSubscription(ctx context.Context, subscriptionID string) error {
	if subscriptionID == "" {
		return gorm.ErrRecordNotFound
	}
	// Deleting a row that was never created (or already deleted) is a no-op:
	// redelivered terminal events must stay idempotent.
	return r.db.WithContext(ctx).
		Where("id = ?", subscriptionID).
		Delete(&models.Subscription{}).Error
}

func (r *repository) FindSubscriptionByID(ctx context.Context, subscriptionID string) (*models.Subscription, error) {
	if subscriptionID == "" {
		return nil, nil
	}
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Where("id = ?", subscriptionID).
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}

func (r *repository) LinkSubscriptionToOrganization(ctx context.Context, link *models.OrganizationSubscription) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "organization_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"customer_id", "subscription_id", "updated_at"}),
		}).
		Create(link).Error
}

func (r *repository) FindLinkByOrganization(ctx context.Context, organizationID uuid.UUID) (*models.OrganizationSubscription, error) {
	var link models.OrganizationSubscription
	if err := r.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		First(&link).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}

func (r *repository) FindSubscriptionForOrganization(ctx context.Context, organizationID uuid.UUID) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.WithContext(ctx).
		Joins("JOIN organizations_subscriptions os ON os.subscription_id = subscriptions.id").
		Where("os.organization_id = ?", organizationID).
		First(&sub).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &sub, nil
}
