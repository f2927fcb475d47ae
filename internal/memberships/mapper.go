package memberships

import (
	"time"

	"github.com/launchbase-io/launchbase-backend/pkg/db/models"
)

type membershipWithOrganizationRow struct {
	models.OrganizationMembership
	OrganizationName string `gorm:"column:organization_name"`
	OrganizationSlug string `gorm:"column:organization_slug"`
}

func membershipWithOrganizationFromRow(row membershipWithOrganizationRow) MembershipWithOrganization {
	return MembershipWithOrganization{
		MembershipID:     row.ID,
		OrganizationID:   row.OrganizationID,
		UserID:           copyUUIDPointer(row.UserID),
		OrganizationName: row.OrganizationName,
		OrganizationSlug: row.OrganizationSlug,
		Role:             row.Role,
		Status:           row.Status,
		InvitedByUserID:  copyUUIDPointer(row.InvitedByUserID),
		CreatedAt:        row.CreatedAt,
		UpdatedAt:        row.UpdatedAt,
	}
}

func membershipRowsToDTO(rows []membershipWithOrganizationRow) []MembershipWithOrganization {
	out := make([]MembershipWithOrganization, 0, len(rows))
	for _, row := range rows {
		out = append(out, membershipWithOrganizationFromRow(row))
	}
	return out
}

type organizationUserRow struct {
	models.OrganizationMembership
	Email       string     `gorm:"column:email"`
	FullName    string     `gorm:"column:full_name"`
	LastLoginAt *time.Time `gorm:"column:last_login_at"`
}

func organizationUsersFromRows(rows []organizationUserRow) []OrganizationUserDTO {
	out := make([]OrganizationUserDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, OrganizationUserDTO{
			MembershipID:   row.ID,
			OrganizationID: row.OrganizationID,
			UserID:         copyUUIDPointer(row.UserID),
			Email:          row.Email,
			FullName:       row.FullName,
			Role:           row.Role,
			Status:         row.Status,
			CreatedAt:      row.CreatedAt,
			LastLoginAt:    row.LastLoginAt,
		})
	}
	return out
}
