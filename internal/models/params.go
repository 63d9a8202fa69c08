package models

import (
	"github.com/go-playground/validator/v10"

	"github.com/yishak-cs/bundle-miner/internal/eclat"
)

var validate = validator.New()

// Params are the per-run mining thresholds.
type Params struct {
	MinSupport      float64 `json:"min_support" form:"min_support" validate:"gt=0,lte=1"`
	MinConfidence   float64 `json:"min_confidence" form:"min_confidence" validate:"gte=0,lte=1"`
	MinLift         float64 `json:"min_lift" form:"min_lift" validate:"gte=0"`
	MinSupportCount int     `json:"min_support_count" form:"min_support_count" validate:"gte=1"`
}

func DefaultParams() Params {
	return Params{
		MinSupport:      0.01,
		MinConfidence:   0.2,
		MinLift:         1.0,
		MinSupportCount: 2,
	}
}

func (p Params) Validate() error {
	return validate.Struct(p)
}

func (p Params) Thresholds() eclat.Thresholds {
	return eclat.Thresholds{
		MinSupport:    p.MinSupport,
		MinConfidence: p.MinConfidence,
		MinLift:       p.MinLift,
	}
}

// DateRange restricts transactions to rows whose date column falls inside [Start, End].
// All three fields must be set for the filter to apply.
type DateRange struct {
	Column string `json:"date_column,omitempty" form:"date_column"`
	Start  string `json:"start_date,omitempty" form:"start_date"`
	End    string `json:"end_date,omitempty" form:"end_date"`
}

func (d DateRange) Enabled() bool {
	return d.Column != "" && d.Start != "" && d.End != ""
}
