package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/launchbase-io/launchbase-backend/pkg/db/types"
)

// User represents the canonical identity entity.
type User struct {
	ID              uuid.UUID         `gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Email           string            `gorm:"type:text;not null;uniqueIndex"`
	FullName        string            `gorm:"column:full_name;not null"`
	AvatarURL       *string           `gorm:"column:avatar_url"`
	IsActive        bool              `gorm:"column:is_active;not null;default:true"`
	LastLoginAt     *time.Time        `gorm:"column:last_login_at"`
	OrganizationIDs dbtypes.UUIDArray `gorm:"type:uuid[];column:organization_ids;not null;default:ARRAY[]::uuid[]"`
	CreatedAt       time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
