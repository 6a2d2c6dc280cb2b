package valuation

import (
	"math"
	"time"

	"github.com/sells-group/cma-cli/internal/config"
	"github.com/sells-group/cma-cli/internal/model"
)

// quarterDays is the length of a market quarter for time adjustments.
const quarterDays = 90.0

// Adjustments holds the per-category dollar amounts that normalize a
// comparable's sale price to the subject's characteristics. Positive values
// mean the comparable is inferior to the subject. A category with missing
// data on either side stays zero. Total is the integer-truncated sum; the
// per-category values keep their fractional parts.
type Adjustments struct {
	Size       float64 `json:"size,omitempty"`
	Bedrooms   float64 `json:"bedrooms,omitempty"`
	Bathrooms  float64 `json:"bathrooms,omitempty"`
	Age        float64 `json:"age,omitempty"`
	LotSize    float64 `json:"lot_size,omitempty"`
	MarketTime float64 `json:"market_time,omitempty"`
	Total      int64   `json:"total"`
}

// Adjust computes the dollar adjustments for one comparable against the
// subject, dated at the current time.
func (e *Engine) Adjust(subject model.Property, cand model.Candidate) Adjustments {
	return e.adjustAt(e.now(), subject, cand)
}

func (e *Engine) adjustAt(asOf time.Time, subject model.Property, cand model.Candidate) Adjustments {
	r := e.cfg.Rates

	var adj Adjustments
	var total float64

	if v, ok := sizeAdjustment(subject.SquareFootage, cand.Property.SquareFootage, r); ok {
		adj.Size = v
		total += v
	}
	if subject.Bedrooms != nil && cand.Property.Bedrooms != nil && *subject.Bedrooms > 0 && *cand.Property.Bedrooms > 0 {
		adj.Bedrooms = float64(*subject.Bedrooms-*cand.Property.Bedrooms) * r.BedroomValue
		total += adj.Bedrooms
	}
	if subject.Bathrooms != nil && cand.Property.Bathrooms != nil && *subject.Bathrooms > 0 && *cand.Property.Bathrooms > 0 {
		adj.Bathrooms = (*subject.Bathrooms - *cand.Property.Bathrooms) * r.BathroomValue
		total += adj.Bathrooms
	}
	if v, ok := ageAdjustment(subject.YearBuilt, cand.Property.YearBuilt, r); ok {
		adj.Age = v
		total += v
	}
	if v, ok := lotAdjustment(subject.LotSize, cand.Property.LotSize, r); ok {
		adj.LotSize = v
		total += v
	}
	if v, ok := timeAdjustment(asOf, cand.Sale, r); ok {
		adj.MarketTime = v
		total += v
	}

	adj.Total = int64(total)
	return adj
}

// AdjustedPrice returns the comparable's sale price normalized by the
// integer adjustment total.
func AdjustedPrice(salePrice float64, adj Adjustments) float64 {
	return salePrice + float64(adj.Total)
}

// sizeAdjustment prices the square footage gap. The dollar rate is banded
// by the comparable's size: small homes carry a higher per-sqft value,
// large homes a lower one.
func sizeAdjustment(subject, comp *int, r config.RatesConfig) (float64, bool) {
	if subject == nil || comp == nil || *subject <= 0 || *comp <= 0 {
		return 0, false
	}

	rate := r.PricePerSqft
	switch {
	case *comp < r.SmallCompSqft:
		rate *= r.SmallCompMultiplier
	case *comp > r.LargeCompSqft:
		rate *= r.LargeCompMultiplier
	}

	return float64(*subject-*comp) * rate, true
}

// ageAdjustment prices the year-built gap, capped at AgeCapYears in either
// direction.
func ageAdjustment(subject, comp *int, r config.RatesConfig) (float64, bool) {
	if subject == nil || comp == nil || *subject <= 0 || *comp <= 0 {
		return 0, false
	}
	diff := float64(*subject - *comp)
	diff = math.Max(-r.AgeCapYears, math.Min(r.AgeCapYears, diff))
	return diff * r.AgePerYear, true
}

// lotAdjustment prices the lot size gap in two tiers: full rate up to
// LotTierSqft of difference, the excess at the lower rate.
func lotAdjustment(subject, comp *int, r config.RatesConfig) (float64, bool) {
	if subject == nil || comp == nil || *subject <= 0 || *comp <= 0 {
		return 0, false
	}

	diff := float64(*subject - *comp)
	if math.Abs(diff) <= r.LotTierSqft {
		return diff * r.LotRate, true
	}

	sign := 1.0
	if diff < 0 {
		sign = -1
	}
	return sign * (r.LotTierSqft*r.LotRate + (math.Abs(diff)-r.LotTierSqft)*r.LotExcessRate), true
}

// timeAdjustment compensates for market appreciation since the sale.
// Sales up to TimeFreeDays old need none; past that the rate grows
// QuarterlyRate per quarter, capped at TimeCap of the sale price.
func timeAdjustment(asOf time.Time, sale model.Sale, r config.RatesConfig) (float64, bool) {
	if sale.SaleDate.IsZero() {
		return 0, false
	}

	days := int(asOf.Sub(sale.SaleDate).Hours() / 24)
	if days <= r.TimeFreeDays {
		return 0, true
	}

	quarters := float64(days-r.TimeFreeDays) / quarterDays
	rate := math.Min(r.TimeCap, r.QuarterlyRate*quarters)
	return sale.SalePrice * rate, true
}
