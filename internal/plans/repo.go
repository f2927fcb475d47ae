package plans

import (
	"context"

	"gorm.io/gorm"

	"github.com/launchbase-io/launchbase-backend/pkg/db/models"
)

// Repository exposes read access to the plan catalog.
type Repository interface {
	ListPlans(ctx context.Context) ([]models.Plan, error)
	FindPlanByID(ctx context.Context, id string) (*models.Plan, error)
	FindPlanByVariantID(ctx context.Context, variantID int64) (*models.Plan, error)
	FindDefaultPlan(ctx context.Context) (*models.Plan, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a plan catalog repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) ListPlans(ctx context.Context) ([]models.Plan, error) {
	var plans []models.Plan
	if err := r.db.WithContext(ctx).
		Order("is_default DESC, price_amount ASC, name ASC").
		Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}

func (r *repository) FindPlanByID(ctx context.Context, id string) (*models.Plan, error) {
	if id == "" {
		return nil, nil
	}
	var plan models.Plan
	if err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) FindPlanByVariantID(ctx context.Context, variantID int64) (*models.Plan, error) {
	if variantID <= 0 {
		return nil, nil
	}
	var plan models.Plan
	if err := r.db.WithContext(ctx).
		Where("variant_id = ?", variantID).
		First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}

func (r *repository) FindDefaultPlan(ctx context.Context) (*models.Plan, error) {
	var plan models.Plan
	if err := r.db.WithContext(ctx).
		Where("is_default = true").
		Order("updated_at DESC").
		First(&plan).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &plan, nil
}
