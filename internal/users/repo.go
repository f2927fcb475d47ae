package users

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/launchbase-io/launchbase-backend/pkg/db/models"
)

// Repository exposes user identity lookups and membership bookkeeping.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// FindByID loads a user by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail loads a user by normalized email.
func (r *Repository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	normalized := strings.ToLower(strings.TrimSpace(email))
	if err := r.db.WithContext(ctx).Where("email = ?", normalized).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// AppendOrganization records the organization on the user's denormalized
// membership list. Duplicates are filtered before writing.
func (r *Repository) AppendOrganization(ctx context.Context, userID, organizationID uuid.UUID) error {
	user, err := r.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	for _, existing := range user.OrganizationIDs {
		if existing == organizationID {
			return nil
		}
	}
	user.OrganizationIDs = append(user.OrganizationIDs, organizationID)
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("organization_ids", user.OrganizationIDs).Error
}

// TouchLastLogin stamps the user's last login time.
func (r *Repository) TouchLastLogin(ctx context.Context, userID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_login_at", time.Now().UTC()).Error
}
