// Package valuation implements the comparative market analysis engine:
// similarity scoring of comparable sales, dollar adjustments, and value
// range aggregation.
package valuation

import (
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cma-cli/internal/config"
)

// DefaultConfig returns a config.EngineConfig with the standard weights and
// adjustment rates. Weights sum to 100.
func DefaultConfig() config.EngineConfig {
	return config.EngineConfig{
		RecencyWindowDays: 180,
		MaxComparables:    6,

		// Weights (sum = 100).
		SizeWeight:      30,
		BedroomWeight:   15,
		BathroomWeight:  15,
		AgeWeight:       20,
		ProximityWeight: 20,

		// Decay spans.
		MaxBedroomGap:    5,
		MaxBathroomGap:   3,
		MaxAgeGapYears:   50,
		MaxDistanceMiles: 10,

		Rates: config.RatesConfig{
			PricePerSqft:        150,
			SmallCompSqft:       1500,
			SmallCompMultiplier: 1.2,
			LargeCompSqft:       3000,
			LargeCompMultiplier: 0.8,
			BedroomValue:        15000,
			BathroomValue:       8000,
			AgePerYear:          500,
			AgeCapYears:         20,
			LotTierSqft:         5000,
			LotRate:             5,
			LotExcessRate:       2,
			TimeFreeDays:        90,
			QuarterlyRate:       0.01,
			TimeCap:             0.02,
		},

		Fallback: config.FallbackConfig{
			Low:        350000,
			High:       450000,
			MostLikely: 400000,
			Confidence: 0.3,
		},
	}
}

// WeightSum returns the sum of all similarity weights.
func WeightSum(c config.EngineConfig) float64 {
	return c.SizeWeight + c.BedroomWeight + c.BathroomWeight +
		c.AgeWeight + c.ProximityWeight
}

// ValidateConfig checks that an EngineConfig is internally consistent.
func ValidateConfig(c config.EngineConfig) error {
	var errs []string

	// All weights must be non-negative.
	weights := map[string]float64{
		"size_weight":      c.SizeWeight,
		"bedroom_weight":   c.BedroomWeight,
		"bathroom_weight":  c.BathroomWeight,
		"age_weight":       c.AgeWeight,
		"proximity_weight": c.ProximityWeight,
	}
	for name, w := range weights {
		if w < 0 {
			errs = append(errs, fmt.Sprintf("%s must be >= 0", name))
		}
	}

	sum := WeightSum(c)

	// Weights must sum to a positive number.
	if sum <= 0 {
		errs = append(errs, "weight sum must be > 0")
	}

	// Weights should be close to 100 (allow tolerance for floating-point).
	if math.Abs(sum-100) > 1 {
		errs = append(errs, fmt.Sprintf("weights should sum to 100, got %.1f", sum))
	}

	// Decay spans must be positive or the factor formulas divide by zero.
	spans := map[string]float64{
		"max_bedroom_gap":    c.MaxBedroomGap,
		"max_bathroom_gap":   c.MaxBathroomGap,
		"max_age_gap_years":  c.MaxAgeGapYears,
		"max_distance_miles": c.MaxDistanceMiles,
	}
	for name, s := range spans {
		if s <= 0 {
			errs = append(errs, fmt.Sprintf("%s must be > 0", name))
		}
	}

	// Pool bounds.
	if c.RecencyWindowDays <= 0 {
		errs = append(errs, "recency_window_days must be > 0")
	}
	if c.MaxComparables <= 0 {
		errs = append(errs, "max_comparables must be > 0")
	}

	// Adjustment rates.
	if c.Rates.PricePerSqft < 0 {
		errs = append(errs, "rates.price_per_sqft must be >= 0")
	}
	if c.Rates.SmallCompSqft > c.Rates.LargeCompSqft {
		errs = append(errs, "rates.small_comp_sqft must be <= rates.large_comp_sqft")
	}
	if c.Rates.AgeCapYears < 0 {
		errs = append(errs, "rates.age_cap_years must be >= 0")
	}
	if c.Rates.LotTierSqft < 0 {
		errs = append(errs, "rates.lot_tier_sqft must be >= 0")
	}
	if c.Rates.TimeFreeDays < 0 {
		errs = append(errs, "rates.time_free_days must be >= 0")
	}
	if c.Rates.TimeCap < 0 || c.Rates.TimeCap > 1 {
		errs = append(errs, "rates.time_cap must be between 0 and 1")
	}

	// Fallback range.
	if c.Fallback.Low > c.Fallback.High {
		errs = append(errs, "fallback.low must be <= fallback.high")
	}
	if c.Fallback.Confidence < 0 || c.Fallback.Confidence > 1 {
		errs = append(errs, "fallback.confidence must be between 0 and 1")
	}

	if len(errs) > 0 {
		return eris.Errorf("valuation: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
