package valuation

import (
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/cma-cli/internal/config"
	"github.com/sells-group/cma-cli/internal/model"
)

// Engine runs comparative market analyses. It holds only read-only
// configuration and is safe for concurrent use.
type Engine struct {
	cfg config.EngineConfig
	now func() time.Time
}

// New creates an Engine after validating the configuration.
func New(cfg config.EngineConfig) (*Engine, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, now: time.Now}, nil
}

// Config returns a copy of the engine configuration.
func (e *Engine) Config() config.EngineConfig {
	return e.cfg
}

// Analyze runs the full flow for one subject: eligibility filtering and
// similarity ranking, per-comparable adjustments, then aggregation into a
// value range. All stages share one analysis timestamp.
func (e *Engine) Analyze(subject model.Property, pool []model.Candidate) (*Result, error) {
	asOf := e.now()

	comps, err := e.rankAt(asOf, subject, pool)
	if err != nil {
		return nil, err
	}

	for i := range comps {
		cand := model.Candidate{Property: comps[i].Property, Sale: comps[i].Sale}
		comps[i].Adjustments = e.adjustAt(asOf, subject, cand)
		comps[i].AdjustedPrice = int64(AdjustedPrice(comps[i].Sale.SalePrice, comps[i].Adjustments))
	}

	result := e.aggregateAt(asOf, subject, comps)

	zap.L().Info("valuation: analysis complete",
		zap.String("address", subject.Address),
		zap.Int("comparables", len(comps)),
		zap.Int64("estimated_low", result.EstimatedLow),
		zap.Int64("most_likely", result.MostLikely),
		zap.Int64("estimated_high", result.EstimatedHigh),
		zap.Float64("confidence", result.Confidence),
		zap.Bool("fallback", result.Fallback),
	)

	return &result, nil
}
