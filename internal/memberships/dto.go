package memberships

import (
	"time"

	"github.com/google/uuid"

	"github.com/launchbase-io/launchbase-backend/pkg/db/models"
	"github.com/launchbase-io/launchbase-backend/pkg/enums"
)

// MembershipDTO is the transport shape for a raw membership record.
type MembershipDTO struct {
	ID              uuid.UUID              `json:"id"`
	OrganizationID  uuid.UUID              `json:"organization_id"`
	UserID          *uuid.UUID             `json:"user_id,omitempty"`
	Role            enums.MemberRole       `json:"role"`
	Status          enums.MembershipStatus `json:"status"`
	InviteEmail     *string                `json:"invite_email,omitempty"`
	InvitedByUserID *uuid.UUID             `json:"invited_by_user_id,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at"`
}

// MembershipWithOrganization includes basic organization metadata + membership info.
type MembershipWithOrganization struct {
	MembershipID     uuid.UUID              `json:"membership_id"`
	OrganizationID   uuid.UUID              `json:"organization_id"`
	UserID           *uuid.UUID             `json:"user_id,omitempty"`
	OrganizationName string                 `json:"organization_name"`
	OrganizationSlug string                 `json:"organization_slug"`
	Role             enums.MemberRole       `json:"role"`
	Status           enums.MembershipStatus `json:"status"`
	InvitedByUserID  *uuid.UUID             `json:"invited_by_user_id,omitempty"`
	CreatedAt        time.Time              `json:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at"`
}

// OrganizationUserDTO mixes membership metadata with the associated user
// profile for organization admins.
type OrganizationUserDTO struct {
	MembershipID   uuid.UUID              `json:"membership_id"`
	OrganizationID uuid.UUID              `json:"organization_id"`
	UserID         *uuid.UUID             `json:"user_id,omitempty"`
	Email          string                 `json:"email"`
	FullName       string                 `json:"full_name"`
	Role           enums.MemberRole       `json:"role"`
	Status         enums.MembershipStatus `json:"membership_status"`
	CreatedAt      time.Time              `json:"created_at"`
	LastLoginAt    *time.Time             `json:"last_login_at,omitempty"`
}

// ToDTO converts a model to the external DTO.
func ToDTO(m *models.OrganizationMembership) *MembershipDTO {
	if m == nil {
		return nil
	}

	return &MembershipDTO{
		ID:              m.ID,
		OrganizationID:  m.OrganizationID,
		UserID:          copyUUIDPointer(m.UserID),
		Role:            m.Role,
		Status:          m.Status,
		InviteEmail:     copyStringPointer(m.InviteEmail),
		InvitedByUserID: copyUUIDPointer(m.InvitedByUserID),
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func copyUUIDPointer(src *uuid.UUID) *uuid.UUID {
	if src == nil {
		return nil
	}
	dst := *src
	return &dst
}

func copyStringPointer(src *string) *string {
	if src == nil {
		return nil
	}
	dst := *src
	return &dst
}
