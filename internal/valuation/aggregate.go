package valuation

import (
	"math"
	"time"

	"github.com/sells-group/cma-cli/internal/model"
)

// fallbackAddress labels the synthetic comparable returned when the pool
// is empty.
const fallbackAddress = "No comparables found - using estimate"

// Result is the outcome of a comparative market analysis.
type Result struct {
	Subject           model.Property    `json:"subject"`
	EstimatedLow      int64             `json:"estimated_low"`
	EstimatedHigh     int64             `json:"estimated_high"`
	MostLikely        int64             `json:"most_likely"`
	Confidence        float64           `json:"confidence"`
	Comparables       []Comparable      `json:"comparables"`
	AdjustmentSummary AdjustmentSummary `json:"adjustment_summary"`
	Market            string            `json:"market,omitempty"`
	Fallback          bool              `json:"fallback,omitempty"`
	AsOf              time.Time         `json:"as_of"`
}

// AdjustmentSummary describes the spread of total adjustments across the
// selected comparables.
type AdjustmentSummary struct {
	Average int64 `json:"average"`
	Min     int64 `json:"min"`
	Max     int64 `json:"max"`
}

// Aggregate combines the adjusted prices of the selected comparables into a
// value range with a confidence score. An empty comparable set yields the
// configured fallback estimate, not an error.
func (e *Engine) Aggregate(subject model.Property, comps []Comparable) Result {
	return e.aggregateAt(e.now(), subject, comps)
}

func (e *Engine) aggregateAt(asOf time.Time, subject model.Property, comps []Comparable) Result {
	if len(comps) == 0 {
		return e.fallbackResult(asOf, subject)
	}

	minPrice := math.MaxFloat64
	maxPrice := -math.MaxFloat64
	var sum float64
	for _, c := range comps {
		adjusted := AdjustedPrice(c.Sale.SalePrice, c.Adjustments)
		sum += adjusted
		minPrice = math.Min(minPrice, adjusted)
		maxPrice = math.Max(maxPrice, adjusted)
	}
	mean := sum / float64(len(comps))

	return Result{
		Subject:           subject,
		EstimatedLow:      int64(minPrice * 0.98),
		EstimatedHigh:     int64(maxPrice * 1.02),
		MostLikely:        int64(mean),
		Confidence:        confidenceScore(comps),
		Comparables:       comps,
		AdjustmentSummary: summarizeAdjustments(comps),
		AsOf:              asOf,
	}
}

// confidenceScore grows with the number of comparables and shrinks as the
// average adjustment magnitude grows relative to the sale prices. Capped at
// 0.95, rounded to 2 decimals.
func confidenceScore(comps []Comparable) float64 {
	base := 0.5 + 0.08*float64(len(comps))

	var ratioSum float64
	for _, c := range comps {
		ratioSum += math.Abs(float64(c.Adjustments.Total)) / c.Sale.SalePrice
	}
	avgRatio := ratioSum / float64(len(comps))
	boost := math.Max(0, 0.2*(1-avgRatio))

	confidence := math.Min(0.95, base+boost)
	return math.Round(confidence*100) / 100
}

// summarizeAdjustments reports the average, smallest, and largest total
// adjustment across the comparables.
func summarizeAdjustments(comps []Comparable) AdjustmentSummary {
	var sum int64
	minTotal := comps[0].Adjustments.Total
	maxTotal := comps[0].Adjustments.Total
	for _, c := range comps {
		t := c.Adjustments.Total
		sum += t
		if t < minTotal {
			minTotal = t
		}
		if t > maxTotal {
			maxTotal = t
		}
	}

	return AdjustmentSummary{
		Average: int64(float64(sum) / float64(len(comps))),
		Min:     minTotal,
		Max:     maxTotal,
	}
}

// fallbackResult returns the configured default range with one synthetic
// comparable so downstream renderers always have a row to show.
func (e *Engine) fallbackResult(asOf time.Time, subject model.Property) Result {
	fb := e.cfg.Fallback

	sqft := 2000
	if subject.SquareFootage != nil && *subject.SquareFootage > 0 {
		sqft = *subject.SquareFootage
	}

	synthetic := Comparable{
		Property: model.Property{
			Address:       fallbackAddress,
			PropertyType:  subject.PropertyType,
			SquareFootage: model.Int(sqft),
		},
		Sale: model.Sale{
			SalePrice: float64(fb.MostLikely),
			SaleDate:  asOf,
		},
		AdjustedPrice: fb.MostLikely,
	}

	return Result{
		Subject:       subject,
		EstimatedLow:  fb.Low,
		EstimatedHigh: fb.High,
		MostLikely:    fb.MostLikely,
		Confidence:    fb.Confidence,
		Comparables:   []Comparable{synthetic},
		Fallback:      true,
		AsOf:          asOf,
	}
}
