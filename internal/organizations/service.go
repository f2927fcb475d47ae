package organizations

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/launchbase-io/launchbase-backend/internal/memberships"
	"github.com/launchbase-io/launchbase-backend/pkg/db/models"
	"github.com/launchbase-io/launchbase-backend/pkg/enums"
	pkgerrors "github.com/launchbase-io/launchbase-backend/pkg/errors"
	"github.com/launchbase-io/launchbase-backend/pkg/lemonsqueezy"
	"github.com/launchbase-io/launchbase-backend/pkg/logger"
)

type organizationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	Update(ctx context.Context, organization *models.Organization) error
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type membershipsRepository interface {
	UserHasRole(ctx context.Context, userID, organizationID uuid.UUID, roles ...enums.MemberRole) (bool, error)
	GetMembership(ctx context.Context, userID, organizationID uuid.UUID) (*models.OrganizationMembership, error)
	FindMembershipByID(ctx context.Context, membershipID uuid.UUID) (*models.OrganizationMembership, error)
	ListOrganizationUsers(ctx context.Context, organizationID uuid.UUID) ([]memberships.OrganizationUserDTO, error)
	CreateMembership(ctx context.Context, organizationID uuid.UUID, userID *uuid.UUID, role enums.MemberRole, invitedBy *uuid.UUID, status enums.MembershipStatus, inviteEmail *string) (*models.OrganizationMembership, error)
	UpdateMembershipRole(ctx context.Context, membershipID uuid.UUID, role enums.MemberRole) error
	DeleteMembership(ctx context.Context, membershipID uuid.UUID) error
	CountMembersWithRoles(ctx context.Context, organizationID uuid.UUID, roles ...enums.MemberRole) (int64, error)
}

type usersRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	AppendOrganization(ctx context.Context, userID, organizationID uuid.UUID) error
}

type billingReader interface {
	FindSubscriptionForOrganization(ctx context.Context, organizationID uuid.UUID) (*models.Subscription, error)
}

type planReader interface {
	FindPlanByVariantID(ctx context.Context, variantID int64) (*models.Plan, error)
}

// UpdateOrganizationInput captures the mutable organization fields.
type UpdateOrganizationInput struct {
	Name    *string `json:"name" validate:"omitempty,min=2,max=120"`
	LogoURL *string `json:"logo_url" validate:"omitempty,url"`
}

// InviteMemberInput captures the data required to invite a member.
type InviteMemberInput struct {
	Email string           `json:"email" validate:"required,email"`
	Role  enums.MemberRole `json:"role" validate:"required"`
}

// UpdateMemberRoleInput carries the new role for an existing membership.
type UpdateMemberRoleInput struct {
	Role enums.MemberRole `json:"role" validate:"required"`
}

// Service exposes organization operations.
type Service interface {
	GetProfile(ctx context.Context, userID, organizationID uuid.UUID) (*OrganizationProfile, error)
	Update(ctx context.Context, userID, organizationID uuid.UUID, input UpdateOrganizationInput) (*OrganizationDTO, error)
	Delete(ctx context.Context, userID, organizationID uuid.UUID) error
	ListMembers(ctx context.Context, userID, organizationID uuid.UUID) ([]memberships.OrganizationUserDTO, error)
	InviteMember(ctx context.Context, inviterID, organizationID uuid.UUID, input InviteMemberInput) (*memberships.MembershipDTO, error)
	UpdateMemberRole(ctx context.Context, actorID, organizationID, membershipID uuid.UUID, input UpdateMemberRoleInput) (*memberships.MembershipDTO, error)
	RemoveMember(ctx context.Context, actorID, organizationID, membershipID uuid.UUID) error
}

// ServiceParams groups dependencies for the organization service.
type ServiceParams struct {
	OrganizationRepo organizationRepository
	Memberships      membershipsRepository
	Users            usersRepository
	BillingRepo      billingReader
	PlanRepo         planReader
	Provider         lemonsqueezy.API
	Logger           *logger.Logger
}

type service struct {
	repo        organizationRepository
	memberships membershipsRepository
	users       usersRepository
	billingRepo billingReader
	planRepo    planReader
	provider    lemonsqueezy.API
	logger      *logger.Logger
}

// NewService builds an organization service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.OrganizationRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "organization repo required")
	}
	if params.Memberships == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "memberships repo required")
	}
	if params.Users == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "users repo required")
	}
	if params.BillingRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "billing repo required")
	}
	if params.PlanRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "plan repo required")
	}
	if params.Provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "provider client required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &service{
		repo:        params.OrganizationRepo,
		memberships: params.Memberships,
		users:       params.Users,
		billingRepo: params.BillingRepo,
		planRepo:    params.PlanRepo,
		provider:    params.Provider,
		logger:      params.Logger,
	}, nil
}

// GetProfile returns the organization with its billing snapshot. Any member
// may read the profile.
func (s *service) GetProfile(ctx context.Context, userID, organizationID uuid.UUID) (*OrganizationProfile, error) {
	if err := s.requireMembership(ctx, userID, organizationID); err != nil {
		return nil, err
	}

	organization, err := s.loadOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	sub, err := s.billingRepo.FindSubscriptionForOrganization(ctx, organizationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
	}

	var plan *models.Plan
	if sub != nil {
		plan, err = s.planRepo.FindPlanByVariantID(ctx, sub.VariantID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup plan")
		}
	}

	return &OrganizationProfile{
		Organization: *FromModel(organization),
		Subscription: summaryFromSubscription(sub, plan),
	}, nil
}

// Update mutates the organization name and logo. Owners and admins only.
func (s *service) Update(ctx context.Context, userID, organizationID uuid.UUID, input UpdateOrganizationInput) (*OrganizationDTO, error) {
	if err := s.requireRole(ctx, userID, organizationID, enums.MemberRoleOwner, enums.MemberRoleAdmin); err != nil {
		return nil, err
	}

	organization, err := s.loadOrganization(ctx, organizationID)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "organization name cannot be empty")
		}
		organization.Name = name
	}
	if input.LogoURL != nil {
		organization.LogoURL = cloneStringPtr(input.LogoURL)
	}

	if err := s.repo.Update(ctx, organization); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update organization")
	}
	return FromModel(organization), nil
}

// Delete removes the organization. Owners only. The linked provider
// subscription is cancelled first so billing stops even though local rows
// only soft-delete.
func (s *service) Delete(ctx context.Context, userID, organizationID uuid.UUID) error {
	if err := s.requireRole(ctx, userID, organizationID, enums.MemberRoleOwner); err != nil {
		return err
	}

	if _, err := s.loadOrganization(ctx, organizationID); err != nil {
		return err
	}

	sub, err := s.billingRepo.FindSubscriptionForOrganization(ctx, organizationID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup subscription")
	}
	if sub != nil && sub.Status != enums.SubscriptionStatusExpired && !sub.CancelAtPeriodEnd {
		if _, err := s.provider.CancelSubscription(ctx, sub.ID); err != nil {
			return err
		}
	}

	if err := s.repo.SoftDelete(ctx, organizationID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete organization")
	}

	s.logger.Info(s.logger.WithOrganizationID(ctx, organizationID.String()), "organization deleted")
	return nil
}

// ListMembers returns memberships with user metadata. Any member may read
// the roster.
func (s *service) ListMembers(ctx context.Context, userID, organizationID uuid.UUID) ([]memberships.OrganizationUserDTO, error) {
	if err := s.requireMembership(ctx, userID, organizationID); err != nil {
		return nil, err
	}

	members, err := s.memberships.ListOrganizationUsers(ctx, organizationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list organization members")
	}
	return members, nil
}

// InviteMember adds a known user directly, or records a pending invite for
// an email without an account. Owners and admins only; granting the owner
// role requires the inviter to be an owner.
func (s *service) InviteMember(ctx context.Context, inviterID, organizationID uuid.UUID, input InviteMemberInput) (*memberships.MembershipDTO, error) {
	if err := s.requireRole(ctx, inviterID, organizationID, enums.MemberRoleOwner, enums.MemberRoleAdmin); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid member role")
	}
	if input.Role == enums.MemberRoleOwner {
		if err := s.requireRole(ctx, inviterID, organizationID, enums.MemberRoleOwner); err != nil {
			return nil, err
		}
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}

	if user == nil {
		membership, err := s.memberships.CreateMembership(ctx, organizationID, nil, input.Role, &inviterID, enums.MembershipStatusInvited, &email)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invite")
		}
		return memberships.ToDTO(membership), nil
	}

	if existing, err := s.memberships.GetMembership(ctx, user.ID, organizationID); err == nil && existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "user is already a member")
	} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
	}

	membership, err := s.memberships.CreateMembership(ctx, organizationID, &user.ID, input.Role, &inviterID, enums.MembershipStatusActive, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create membership")
	}
	if err := s.users.AppendOrganization(ctx, user.ID, organizationID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record user organization")
	}
	return memberships.ToDTO(membership), nil
}

// UpdateMemberRole changes an existing member's role. Owners and admins only;
// touching the owner role requires the actor to be an owner, and the
// organization always keeps at least one owner.
func (s *service) UpdateMemberRole(ctx context.Context, actorID, organizationID, membershipID uuid.UUID, input UpdateMemberRoleInput) (*memberships.MembershipDTO, error) {
	if err := s.requireRole(ctx, actorID, organizationID, enums.MemberRoleOwner, enums.MemberRoleAdmin); err != nil {
		return nil, err
	}
	if !input.Role.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid member role")
	}

	membership, err := s.loadMembership(ctx, organizationID, membershipID)
	if err != nil {
		return nil, err
	}
	if membership.Role == input.Role {
		return memberships.ToDTO(membership), nil
	}

	if membership.Role == enums.MemberRoleOwner || input.Role == enums.MemberRoleOwner {
		if err := s.requireRole(ctx, actorID, organizationID, enums.MemberRoleOwner); err != nil {
			return nil, err
		}
	}
	if membership.Role == enums.MemberRoleOwner {
		if err := s.requireAnotherOwner(ctx, organizationID); err != nil {
			return nil, err
		}
	}

	if err := s.memberships.UpdateMembershipRole(ctx, membershipID, input.Role); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update member role")
	}
	membership.Role = input.Role
	return memberships.ToDTO(membership), nil
}

// RemoveMember deletes a membership, which also revokes a pending invite.
// Owners and admins only; removing an owner requires the actor to be an
// owner and another owner must remain.
func (s *service) RemoveMember(ctx context.Context, actorID, organizationID, membershipID uuid.UUID) error {
	if err := s.requireRole(ctx, actorID, organizationID, enums.MemberRoleOwner, enums.MemberRoleAdmin); err != nil {
		return err
	}

	membership, err := s.loadMembership(ctx, organizationID, membershipID)
	if err != nil {
		return err
	}
	if membership.Role == enums.MemberRoleOwner {
		if err := s.requireRole(ctx, actorID, organizationID, enums.MemberRoleOwner); err != nil {
			return err
		}
		if err := s.requireAnotherOwner(ctx, organizationID); err != nil {
			return err
		}
	}

	if err := s.memberships.DeleteMembership(ctx, membershipID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove member")
	}

	s.logger.Info(s.logger.WithOrganizationID(ctx, organizationID.String()), "organization member removed")
	return nil
}

func (s *service) loadMembership(ctx context.Context, organizationID, membershipID uuid.UUID) (*models.OrganizationMembership, error) {
	membership, err := s.memberships.FindMembershipByID(ctx, membershipID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "membership not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load membership")
	}
	// Memberships from another organization stay invisible.
	if membership.OrganizationID != organizationID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "membership not found")
	}
	return membership, nil
}

func (s *service) requireAnotherOwner(ctx context.Context, organizationID uuid.UUID) error {
	owners, err := s.memberships.CountMembersWithRoles(ctx, organizationID, enums.MemberRoleOwner)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count owners")
	}
	if owners <= 1 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "organization must keep at least one owner")
	}
	return nil
}

func (s *service) loadOrganization(ctx context.Context, organizationID uuid.UUID) (*models.Organization, error) {
	organization, err := s.repo.FindByID(ctx, organizationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "organization not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load organization")
	}
	return organization, nil
}

func (s *service) requireRole(ctx context.Context, userID, organizationID uuid.UUID, roles ...enums.MemberRole) error {
	ok, err := s.memberships.UserHasRole(ctx, userID, organizationID, roles...)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
	}
	if !ok {
		return pkgerrors.New(pkgerrors.CodeForbidden, "insufficient organization role")
	}
	return nil
}

func (s *service) requireMembership(ctx context.Context, userID, organizationID uuid.UUID) error {
	if _, err := s.memberships.GetMembership(ctx, userID, organizationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "user is not a member of the organization")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check membership")
	}
	return nil
}
