package memberships

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/launchbase-io/launchbase-backend/pkg/db/models"
	"github.com/launchbase-io/launchbase-backend/pkg/enums"
)

// Repository exposes membership persistence operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ListUserOrganizations returns the organizations a user belongs to along with membership metadata.
func (r *Repository) ListUserOrganizations(ctx context.Context, userID uuid.UUID) ([]MembershipWithOrganization, error) {
	var rows []membershipWithOrganizationRow

	err := r.db.WithContext(ctx).
		Model(&models.OrganizationMembership{}).
		Select("organization_memberships.*, organizations.name AS organization_name, organizations.slug AS organization_slug").
		Joins("JOIN organizations ON organizations.id = organization_memberships.organization_id").
		Where("organization_memberships.user_id = ?", userID).
		Where("organizations.deleted_at IS NULL").
		Order("organizations.name").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	return membershipRowsToDTO(rows), nil
}

// GetMembership retrieves a membership by user and organization.
func (r *Repository) GetMembership(ctx context.Context, userID, organizationID uuid.UUID) (*models.OrganizationMembership, error) {
	var membership models.OrganizationMembership
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND organization_id = ?", userID, organizationID).
		First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// CreateMembership persists a new membership record. userID is nil while the
// invite is pending; inviteEmail must be set in that case.
func (r *Repository) CreateMembership(ctx context.Context, organizationID uuid.UUID, userID *uuid.UUID, role enums.MemberRole, invitedBy *uuid.UUID, status enums.MembershipStatus, inviteEmail *string) (*models.OrganizationMembership, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("invalid member role %q", role)
	}
	if !status.IsValid() {
		return nil, fmt.Errorf("invalid membership status %q", status)
	}
	if userID == nil && inviteEmail == nil {
		return nil, fmt.Errorf("either user id or invite email is required")
	}

	membership := &models.OrganizationMembership{
		ID:              uuid.New(),
		OrganizationID:  organizationID,
		UserID:          userID,
		Role:            role,
		Status:          status,
		InviteEmail:     inviteEmail,
		InvitedByUserID: invitedBy,
	}

	if err := r.db.WithContext(ctx).Create(membership).Error; err != nil {
		return nil, err
	}
	return membership, nil
}

// FindMembershipByID loads a membership by primary key.
func (r *Repository) FindMembershipByID(ctx context.Context, membershipID uuid.UUID) (*models.OrganizationMembership, error) {
	var membership models.OrganizationMembership
	err := r.db.WithContext(ctx).
		Where("id = ?", membershipID).
		First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// UpdateMembershipRole changes the role on an existing membership.
func (r *Repository) UpdateMembershipRole(ctx context.Context, membershipID uuid.UUID, role enums.MemberRole) error {
	if !role.IsValid() {
		return fmt.Errorf("invalid member role %q", role)
	}
	return r.db.WithContext(ctx).
		Model(&models.OrganizationMembership{}).
		Where("id = ?", membershipID).
		Update("role", role).Error
}

// DeleteMembership removes a membership record.
func (r *Repository) DeleteMembership(ctx context.Context, membershipID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", membershipID).
		Delete(&models.OrganizationMembership{}).Error
}

// UserHasRole reports whether the user holds one of the provided roles for the organization.
func (r *Repository) UserHasRole(ctx context.Context, userID, organizationID uuid.UUID, roles ...enums.MemberRole) (bool, error) {
	if len(roles) == 0 {
		return false, nil
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrganizationMembership{}).
		Where("user_id = ? AND organization_id = ? AND role IN ?", userID, organizationID, roles).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountMembersWithRoles counts memberships holding any of the provided roles.
func (r *Repository) CountMembersWithRoles(ctx context.Context, organizationID uuid.UUID, roles ...enums.MemberRole) (int64, error) {
	if len(roles) == 0 {
		return 0, nil
	}

	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrganizationMembership{}).
		Where("organization_id = ? AND role IN ?", organizationID, roles).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// ListOrganizationUsers returns memberships for the organization along with
// user metadata. Pending invites appear with the invite email and no user id.
func (r *Repository) ListOrganizationUsers(ctx context.Context, organizationID uuid.UUID) ([]OrganizationUserDTO, error) {
	var rows []organizationUserRow
	err := r.db.WithContext(ctx).
		Model(&models.OrganizationMembership{}).
		Select("organization_memberships.*, COALESCE(users.email, organization_memberships.invite_email, '') AS email, COALESCE(users.full_name, '') AS full_name, users.last_login_at").
		Joins("LEFT JOIN users ON users.id = organization_memberships.user_id").
		Where("organization_memberships.organization_id = ?", organizationID).
		Order("organization_memberships.created_at").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return organizationUsersFromRows(rows), nil
}
