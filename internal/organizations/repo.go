package organizations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/launchbase-io/launchbase-backend/pkg/db/models"
)

// Repository exposes organization persistence operations. Reads exclude
// soft-deleted rows.
type Repository struct {
	db *gorm.DB
}

// NewRepository binds the repo to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// Create persists a new organization.
func (r *Repository) Create(ctx context.Context, organization *models.Organization) error {
	return r.db.WithContext(ctx).Create(organization).Error
}

// FindByID loads a live organization by primary key.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	var organization models.Organization
	err := r.db.WithContext(ctx).
		Where("id = ? AND deleted_at IS NULL", id).
		First(&organization).Error
	if err != nil {
		return nil, err
	}
	return &organization, nil
}

// Update persists the mutable organization fields.
func (r *Repository) Update(ctx context.Context, organization *models.Organization) error {
	return r.db.WithContext(ctx).
		Model(&models.Organization{}).
		Where("id = ? AND deleted_at IS NULL", organization.ID).
		Updates(map[string]any{
			"name":     organization.Name,
			"logo_url": organization.LogoURL,
		}).Error
}

// SoftDelete stamps the organization deleted. Memberships and the
// subscription link stay in place for audit; reads filter on deleted_at.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.Organization{}).
		Where("id = ? AND deleted_at IS NULL", id).
		Update("deleted_at", time.Now().UTC()).Error
}
