package subscriptions

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/launchbase-io/launchbase-backend/internal/billing"
	"github.com/launchbase-io/launchbase-backend/internal/plans"
	"github.com/launchbase-io/launchbase-backend/pkg/db/models"
	"github.com/launchbase-io/launchbase-backend/pkg/enums"
	pkgerrors "github.com/launchbase-io/launchbase-backend/pkg/errors"
	"github.com/launchbase-io/launchbase-backend/pkg/lemonsqueezy"
	"github.com/launchbase-io/launchbase-backend/pkg/logger"
)

type membershipChecker interface {
	GetMembership(ctx context.Context, userID, organizationID uuid.UUID) (*models.OrganizationMembership, error)
	UserHasRole(ctx context.Context, userID, organizationID uuid.UUID, roles ...enums.MemberRole) (bool, error)
}

// CheckoutInput captures the data required to start a hosted checkout.
type CheckoutInput struct {
	VariantID int64  `json:"variant_id" validate:"required,gt=0"`
	ReturnURL string `json:"return_url" validate:"omitempty,url"`
}

// SubscriptionDetails pairs the stored subscription with its catalog plan.
type SubscriptionDetails struct {
	Subscription *models.Subscription `json:"subscription"`
	Plan         *models.Plan         `json:"plan,omitempty"`
}

// Service exposes the billing actions members can take against the provider.
// Local subscription rows are never written here: the webhook pipeline is the
// single writer, so provider state and local state cannot drift apart.
type Service interface {
	CreateCheckout(ctx context.Context, userID, organizationID uuid.UUID, input CheckoutInput) (*lemonsqueezy.Checkout, error)
	GetCurrent(ctx context.Context, userID, organizationID uuid.UUID) (*SubscriptionDetails, error)
	ChangePlan(ctx context.Context, userID, organizationID uuid.UUID, variantID int64) error
	Cancel(ctx context.Context, userID, organizationID uuid.UUID) error
	Resume(ctx context.Context, userID, organizationID uuid.UUID) error
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	BillingRepo billing.Repository
	PlanRepo    plans.Repository
	Memberships membershipChecker
	Provider    lemonsqueezy.API
	Logger      *logger.Logger
}

type service struct {
	billingRepo billing.Repository
	planRepo    plans.Repository
	memberships membershipChecker
	provider    lemonsqueezy.API
	logger      *logger.Logger
}

// NewService builds a subscription service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.BillingRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "billing repo required")
	}
	if params.PlanRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plan repo required")
	}
	if params.Memberships == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "memberships repo required")
	}
	if params.Provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "provider client required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{
		billingRepo: params.BillingRepo,
		planRepo:    params.PlanRepo,
		memberships: params.Memberships,
		provider:    params.Provider,
		logger:      params.Logger,
	}, nil
}

// CreateCheckout starts a hosted checkout for a plan variant. The organization
// id rides along as custom data and comes back on the resulting webhooks.
func (s *service) CreateCheckout(ctx context.Context, userID, organizationID uuid.UUID, input CheckoutInput) (*lemonsqueezy.Checkout, error) {
	if err := s.requireBillingAccess(ctx, userID, organizationID); err != nil {
		return nil, err
	}
	if input.VariantID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "variant_id is required")
	}

	plan, err := s.planRepo.FindPlanByVariantID(ctx, input.VariantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup plan")
	}
	if plan == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no plan matches the requested variant")
	}

	current, err := s.billingRepo.FindSubscriptionForOrganization(ctx, organizationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup current subscription")
	}
	if current != nil && current.Status.IsActive() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "organization already has an active subscription")
	}

	checkout, err := s.provider.CreateCheckout(ctx, lemonsqueezy.CheckoutParams{
		OrganizationID: organizationID.String(),
		VariantID:      input.VariantID,
		ReturnURL:      strings.TrimSpace(input.ReturnURL),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"organization_id": organizationID.String(),
		"variant_id":      input.VariantID,
		"checkout_id":     checkout.ID,
	}), "checkout created")
	return checkout, nil
}

// GetCurrent returns the organization's subscription with its catalog plan.
// Any member of the organization may read billing state.
func (s *service) GetCurrent(ctx context.Context, userID, organizationID uuid.UUID) (*SubscriptionDetails, error) {
	if err := s.requireMembership(ctx, userID, organizationID); err != nil {
		return nil, err
	}

	sub, err := s.billingRepo.FindSubscriptionForOrganization(ctx, organizationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup current subscription")
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "organization has no subscription")
	}

	plan, err := s.planRepo.FindPlanByVariantID(ctx, sub.VariantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup plan")
	}
	return &SubscriptionDetails{Subscription: sub, Plan: plan}, nil
}

// ChangePlan moves the organization's subscription to a different plan
// variant. The provider prorates and confirms through subscription_updated;
// no local row changes until that webhook lands.
func (s *service) ChangePlan(ctx context.Context, userID, organizationID uuid.UUID, variantID int64) error {
	if err := s.requireBillingAccess(ctx, userID, organizationID); err != nil {
		return err
	}
	if variantID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "variant_id is required")
	}

	plan, err := s.planRepo.FindPlanByVariantID(ctx, variantID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup plan")
	}
	if plan == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "no plan matches the requested variant")
	}

	sub, err := s.requireSubscription(ctx, organizationID)
	if err != nil {
		return err
	}
	if sub.VariantID == variantID {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "subscription is already on the requested plan")
	}

	if _, err := s.provider.UpdateSubscription(ctx, lemonsqueezy.UpdateSubscriptionParams{
		SubscriptionID: sub.ID,
		ProductID:      plan.ProductID,
		VariantID:      plan.VariantID,
	}); err != nil {
		return err
	}

	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"organization_id": organizationID.String(),
		"subscription_id": sub.ID,
		"variant_id":      variantID,
	}), "plan change requested")
	return nil
}

// Cancel schedules the subscription for cancellation at period end.
func (s *service) Cancel(ctx context.Context, userID, organizationID uuid.UUID) error {
	if err := s.requireBillingAccess(ctx, userID, organizationID); err != nil {
		return err
	}

	sub, err := s.requireSubscription(ctx, organizationID)
	if err != nil {
		return err
	}
	if sub.Status == enums.SubscriptionStatusCancelled || sub.CancelAtPeriodEnd {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "subscription is already cancelled")
	}

	if _, err := s.provider.CancelSubscription(ctx, sub.ID); err != nil {
		return err
	}

	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"organization_id": organizationID.String(),
		"subscription_id": sub.ID,
	}), "cancellation requested")
	return nil
}

// Resume clears a pending cancellation before the period ends.
func (s *service) Resume(ctx context.Context, userID, organizationID uuid.UUID) error {
	if err := s.requireBillingAccess(ctx, userID, organizationID); err != nil {
		return err
	}

	sub, err := s.requireSubscription(ctx, organizationID)
	if err != nil {
		return err
	}
	if sub.Status != enums.SubscriptionStatusCancelled && !sub.CancelAtPeriodEnd {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "subscription is not pending cancellation")
	}

	if _, err := s.provider.ResumeSubscription(ctx, sub.ID); err != nil {
		return err
	}

	s.logger.Info(s.logger.WithFields(ctx, map[string]any{
		"organization_id": organizationID.String(),
		"subscription_id": sub.ID,
	}), "resume requested")
	return nil
}

func (s *service) requireSubscription(ctx context.Context, organizationID uuid.UUID) (*models.Subscription, error) {
	sub, err := s.billingRepo.FindSubscriptionForOrganization(ctx, organizationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup current subscription")
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "organization has no subscription")
	}
	return sub, nil
}

// requireBillingAccess runs before any provider call so denied members never
// reach the billing API.
func (s *service) requireBillingAccess(ctx context.Context, userID, organizationID uuid.UUID) error {
	if userID == uuid.Nil || organizationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and organization id are required")
	}

	ok, err := s.memberships.UserHasRole(ctx, userID, organizationID, enums.MemberRoleOwner, enums.MemberRoleAdmin)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check billing permission")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only owners and admins can manage billing")
	}
	return nil
}

func (s *service) requireMembership(ctx context.Context, userID, organizationID uuid.UUID) error {
	if userID == uuid.Nil || organizationID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id and organization id are required")
	}

	if _, err := s.memberships.GetMembership(ctx, userID, organizationID); err != nil {
		if err == gorm.ErrRecordNotFound {
			return pkgerrors.New(pkgerrors.CodeForbidden, "user is not a member of the organization")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
	}
	return nil
}
