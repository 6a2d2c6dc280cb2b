package model

import (
	"encoding/json"
	"time"
)

// Analysis is a persisted valuation run. Result holds the full engine
// output as JSON so history reads do not depend on the engine package.
type Analysis struct {
	ID              string          `json:"id"`
	PropertyID      string          `json:"property_id"`
	EstimatedLow    int64           `json:"estimated_low"`
	EstimatedHigh   int64           `json:"estimated_high"`
	MostLikely      int64           `json:"most_likely"`
	Confidence      float64         `json:"confidence"`
	ComparableCount int             `json:"comparable_count"`
	Result          json.RawMessage `json:"result,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}
