package organizations

import (
	"time"

	"github.com/google/uuid"

	"github.com/launchbase-io/launchbase-backend/pkg/db/models"
	"github.com/launchbase-io/launchbase-backend/pkg/enums"
)

// OrganizationDTO is the transport shape for an organization.
type OrganizationDTO struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	LogoURL   *string   `json:"logo_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SubscriptionSummary is the billing snapshot embedded in the profile.
type SubscriptionSummary struct {
	SubscriptionID    string                   `json:"subscription_id"`
	Status            enums.SubscriptionStatus `json:"status"`
	Active            bool                     `json:"active"`
	CancelAtPeriodEnd bool                     `json:"cancel_at_period_end"`
	PlanName          string                   `json:"plan_name,omitempty"`
	VariantID         int64                    `json:"variant_id"`
	RenewsAt          *time.Time               `json:"renews_at,omitempty"`
	EndsAt            *time.Time               `json:"ends_at,omitempty"`
	TrialEndsAt       *time.Time               `json:"trial_ends_at,omitempty"`
}

// OrganizationProfile is the organization plus its billing snapshot.
type OrganizationProfile struct {
	Organization OrganizationDTO      `json:"organization"`
	Subscription *SubscriptionSummary `json:"subscription,omitempty"`
}

// FromModel converts an organization model to the external DTO.
func FromModel(m *models.Organization) *OrganizationDTO {
	if m == nil {
		return nil
	}
	return &OrganizationDTO{
		ID:        m.ID,
		Name:      m.Name,
		Slug:      m.Slug,
		LogoURL:   cloneStringPtr(m.LogoURL),
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

func summaryFromSubscription(sub *models.Subscription, plan *models.Plan) *SubscriptionSummary {
	if sub == nil {
		return nil
	}
	summary := &SubscriptionSummary{
		SubscriptionID:    sub.ID,
		Status:            sub.Status,
		Active:            sub.Status.IsActive(),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
		VariantID:         sub.VariantID,
		RenewsAt:          sub.RenewsAt,
		EndsAt:            sub.EndsAt,
		TrialEndsAt:       sub.TrialEndsAt,
	}
	if plan != nil {
		summary.PlanName = plan.Name
	}
	return summary
}

func cloneStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	cpy := *value
	return &cpy
}
