package plans

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/launchbase-io/launchbase-backend/pkg/db/models"
	"github.com/launchbase-io/launchbase-backend/pkg/enums"
)

// PlanDTO is the public catalog entry shape.
type PlanDTO struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Description  *string               `json:"description,omitempty"`
	VariantID    int64                 `json:"variant_id"`
	Interval     enums.BillingInterval `json:"interval"`
	PriceAmount  decimal.Decimal       `json:"price_amount"`
	CurrencyCode string                `json:"currency_code"`
	TrialDays    int                   `json:"trial_days"`
	IsDefault    bool                  `json:"is_default"`
	Features     []string              `json:"features"`
	UI           json.RawMessage       `json:"ui,omitempty"`
	UpdatedAt    time.Time             `json:"updated_at"`
}

// FromModel converts a plan row to its catalog DTO. The provider product ID
// stays internal.
func FromModel(m *models.Plan) *PlanDTO {
	if m == nil {
		return nil
	}
	features := make([]string, len(m.Features))
	copy(features, m.Features)
	return &PlanDTO{
		ID:           m.ID,
		Name:         m.Name,
		Description:  m.Description,
		VariantID:    m.VariantID,
		Interval:     m.Interval,
		PriceAmount:  m.PriceAmount,
		CurrencyCode: m.CurrencyCode,
		TrialDays:    m.TrialDays,
		IsDefault:    m.IsDefault,
		Features:     features,
		UI:           m.UI,
		UpdatedAt:    m.UpdatedAt,
	}
}

// FromModels converts a list of plan rows, preserving catalog order.
func FromModels(rows []models.Plan) []PlanDTO {
	out := make([]PlanDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *FromModel(&rows[i]))
	}
	return out
}
