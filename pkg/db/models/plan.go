package models

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/launchbase-io/launchbase-backend/pkg/enums"
)

// Plan captures the local metadata for a provider plan variant.
type Plan struct {
	ID           string                `gorm:"column:id;primaryKey"`
	Name         string                `gorm:"column:name;not null"`
	Description  *string               `gorm:"column:description"`
	ProductID    int64                 `gorm:"column:product_id;not null"`
	VariantID    int64                 `gorm:"column:variant_id;not null;uniqueIndex"`
	Interval     enums.BillingInterval `gorm:"column:interval;type:billing_interval;not null"`
	PriceAmount  decimal.Decimal       `gorm:"column:price_amount;type:numeric(12,2);not null"`
	CurrencyCode string                `gorm:"column:currency_code;not null"`
	TrialDays    int                   `gorm:"column:trial_days;not null;default:0"`
	IsDefault    bool                  `gorm:"column:is_default;not null;default:false"`
	Features     pq.StringArray        `gorm:"column:features;type:text[];default:ARRAY[]::text[]"`
	UI           json.RawMessage       `gorm:"column:ui;type:jsonb"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
