package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/launchbase-io/launchbase-backend/pkg/enums"
)

// OrganizationMembership links a user with an organization and captures their
// role/status. UserID stays null while an invite is pending.
type OrganizationMembership struct {
	ID              uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID  uuid.UUID              `gorm:"column:organization_id;type:uuid;not null;uniqueIndex:idx_membership_org_user"`
	UserID          *uuid.UUID             `gorm:"column:user_id;type:uuid;uniqueIndex:idx_membership_org_user"`
	Role            enums.MemberRole       `gorm:"column:role;type:member_role;not null"`
	Status          enums.MembershipStatus `gorm:"column:status;type:membership_status;not null"`
	InviteEmail     *string                `gorm:"column:invite_email"`
	InvitedByUserID *uuid.UUID             `gorm:"column:invited_by_user_id;type:uuid"`
	CreatedAt       time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
