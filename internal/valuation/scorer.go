package valuation

import (
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/cma-cli/internal/model"
)

// Comparable is a candidate sale that passed eligibility, carrying its
// similarity score and, after adjustment, its normalized price.
type Comparable struct {
	Property        model.Property     `json:"property"`
	Sale            model.Sale         `json:"sale"`
	Score           float64            `json:"score"`
	ComponentScores map[string]float64 `json:"component_scores,omitempty"`
	DistanceMiles   *float64           `json:"distance_miles,omitempty"`
	Adjustments     Adjustments        `json:"adjustments"`
	AdjustedPrice   int64              `json:"adjusted_price"`
}

// Rank filters the candidate pool for eligibility, scores every eligible
// candidate against the subject, and returns the top candidates ordered by
// score. Ties keep their pool order. Candidates with impossible values are
// skipped; an invalid subject aborts the ranking.
func (e *Engine) Rank(subject model.Property, pool []model.Candidate) ([]Comparable, error) {
	return e.rankAt(e.now(), subject, pool)
}

func (e *Engine) rankAt(asOf time.Time, subject model.Property, pool []model.Candidate) ([]Comparable, error) {
	if err := validateProperty("subject", subject); err != nil {
		return nil, err
	}

	cutoff := asOf.AddDate(0, 0, -e.cfg.RecencyWindowDays)

	var comps []Comparable
	var skipped int
	for _, cand := range pool {
		if err := validateCandidate(cand); err != nil {
			skipped++
			zap.L().Warn("valuation: candidate rejected",
				zap.String("address", cand.Property.Address),
				zap.Error(err),
			)
			continue
		}
		if !eligible(subject, cand, cutoff) {
			continue
		}
		comps = append(comps, e.scoreCandidate(subject, cand))
	}

	sortByScore(comps)

	if e.cfg.MaxComparables > 0 && len(comps) > e.cfg.MaxComparables {
		comps = comps[:e.cfg.MaxComparables]
	}

	zap.L().Debug("valuation: ranking complete",
		zap.Int("pool", len(pool)),
		zap.Int("selected", len(comps)),
		zap.Int("rejected", skipped),
	)

	return comps, nil
}

// eligible applies the pool filter: closed sales inside the recency window,
// never the subject itself.
func eligible(subject model.Property, cand model.Candidate, cutoff time.Time) bool {
	if cand.Sale.Status != model.SaleStatusSold {
		return false
	}
	if cand.Sale.SaleDate.Before(cutoff) {
		return false
	}
	if subject.SameProperty(cand.Property) {
		return false
	}
	return true
}

// scoreCandidate computes the weighted similarity score. Each factor
// contributes only when both sides carry the field; contributions are
// weighted points, so the total lands on a 0-100 scale.
func (e *Engine) scoreCandidate(subject model.Property, cand model.Candidate) Comparable {
	cfg := e.cfg
	components := make(map[string]float64)
	var total float64

	if pts, ok := sizePoints(subject.SquareFootage, cand.Property.SquareFootage, cfg.SizeWeight); ok {
		components["size"] = pts
		total += pts
	}
	if pts, ok := countPoints(subject.Bedrooms, cand.Property.Bedrooms, cfg.MaxBedroomGap, cfg.BedroomWeight); ok {
		components["bedrooms"] = pts
		total += pts
	}
	if pts, ok := bathPoints(subject.Bathrooms, cand.Property.Bathrooms, cfg.MaxBathroomGap, cfg.BathroomWeight); ok {
		components["bathrooms"] = pts
		total += pts
	}
	if pts, ok := countPoints(subject.YearBuilt, cand.Property.YearBuilt, cfg.MaxAgeGapYears, cfg.AgeWeight); ok {
		components["age"] = pts
		total += pts
	}

	var distance *float64
	if subject.Coords != nil && cand.Property.Coords != nil {
		miles := haversineMiles(
			subject.Coords.Latitude, subject.Coords.Longitude,
			cand.Property.Coords.Latitude, cand.Property.Coords.Longitude,
		)
		pts := math.Max(0, 1-miles/cfg.MaxDistanceMiles) * cfg.ProximityWeight
		components["proximity"] = pts
		total += pts
		distance = &miles
	}

	total = math.Max(0, math.Min(total, 100))

	return Comparable{
		Property:        cand.Property,
		Sale:            cand.Sale,
		Score:           math.Round(total*100) / 100, // 2 decimal places
		ComponentScores: components,
		DistanceMiles:   distance,
	}
}

// sizePoints returns weighted points for square footage similarity. The gap
// is normalized by the larger of the two homes.
func sizePoints(subject, comp *int, weight float64) (float64, bool) {
	if subject == nil || comp == nil || *subject <= 0 || *comp <= 0 {
		return 0, false
	}
	larger := math.Max(float64(*subject), float64(*comp))
	diff := math.Abs(float64(*subject - *comp))
	return math.Max(0, 1-diff/larger) * weight, true
}

// countPoints returns weighted points for an integer characteristic
// (bedrooms, year built) decaying linearly over span.
func countPoints(subject, comp *int, span, weight float64) (float64, bool) {
	if subject == nil || comp == nil || *subject <= 0 || *comp <= 0 {
		return 0, false
	}
	diff := math.Abs(float64(*subject - *comp))
	return math.Max(0, 1-diff/span) * weight, true
}

// bathPoints returns weighted points for bathroom count similarity.
func bathPoints(subject, comp *float64, span, weight float64) (float64, bool) {
	if subject == nil || comp == nil || *subject <= 0 || *comp <= 0 {
		return 0, false
	}
	diff := math.Abs(*subject - *comp)
	return math.Max(0, 1-diff/span) * weight, true
}

// sortByScore sorts Comparables descending by Score.
func sortByScore(comps []Comparable) {
	// Simple insertion sort is fine for typical pool sizes; equal scores
	// keep their original order.
	for i := 1; i < len(comps); i++ {
		for j := i; j > 0 && comps[j].Score > comps[j-1].Score; j-- {
			comps[j], comps[j-1] = comps[j-1], comps[j]
		}
	}
}
