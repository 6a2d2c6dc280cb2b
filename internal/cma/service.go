// Package cma orchestrates the analysis flow end to end: resolving the
// subject property, materializing the comparable pool from the store,
// running the valuation engine, and persisting the result.
package cma

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cma-cli/internal/config"
	"github.com/sells-group/cma-cli/internal/market"
	"github.com/sells-group/cma-cli/internal/model"
	"github.com/sells-group/cma-cli/internal/store"
	"github.com/sells-group/cma-cli/internal/valuation"
)

// NotFoundError reports a lookup for a record that does not exist.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("cma: %s not found: %s", e.Entity, e.ID)
}

// IsNotFound returns true if the error (or any error in its chain) is a
// NotFoundError.
func IsNotFound(err error) bool {
	if err == nil {
		return false
	}
	var nfe *NotFoundError
	return errors.As(err, &nfe)
}

// AnalyzeRequest describes a subject to value. Address is required; the
// remaining characteristics sharpen scoring and adjustments when present.
type AnalyzeRequest struct {
	Address       string             `json:"address"`
	PropertyType  model.PropertyType `json:"property_type,omitempty"`
	SquareFootage *int               `json:"square_footage,omitempty"`
	Bedrooms      *int               `json:"bedrooms,omitempty"`
	Bathrooms     *float64           `json:"bathrooms,omitempty"`
	YearBuilt     *int               `json:"year_built,omitempty"`
	LotSize       *int               `json:"lot_size,omitempty"`
	Latitude      *float64           `json:"latitude,omitempty"`
	Longitude     *float64           `json:"longitude,omitempty"`
	Market        string             `json:"market,omitempty"`

	// Save controls whether the subject and the analysis are persisted.
	// Set by the caller, never by request bodies.
	Save bool `json:"-"`
}

// property builds the subject record from the request fields.
func (r AnalyzeRequest) property() model.Property {
	p := model.Property{
		Address:       r.Address,
		PropertyType:  r.PropertyType,
		SquareFootage: r.SquareFootage,
		Bedrooms:      r.Bedrooms,
		Bathrooms:     r.Bathrooms,
		YearBuilt:     r.YearBuilt,
		LotSize:       r.LotSize,
	}
	if p.PropertyType == "" {
		p.PropertyType = model.PropertyTypeSingleFamily
	}
	if r.Latitude != nil && r.Longitude != nil {
		p.Coords = &model.Coordinates{Latitude: *r.Latitude, Longitude: *r.Longitude}
	}
	return p
}

// Outcome is an analysis result together with the identifiers it was
// persisted under. AnalysisID is empty when the run was not saved.
type Outcome struct {
	Result     *valuation.Result `json:"result"`
	PropertyID string            `json:"property_id,omitempty"`
	AnalysisID string            `json:"analysis_id,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

// PropertyWithSales pairs a property with its recorded sale history.
type PropertyWithSales struct {
	Property model.Property `json:"property"`
	Sales    []model.Sale   `json:"sales,omitempty"`
}

// Service wires the valuation engine to the store and the market profiles.
type Service struct {
	store         store.Store
	cfg           config.EngineConfig
	profiles      *market.Profiles
	defaultMarket string
	now           func() time.Time
}

// Option configures optional Service behavior.
type Option func(*Service)

// WithDefaultMarket sets the profile applied when a request names no
// market. Empty means no default; requests then run on the base rates.
func WithDefaultMarket(name string) Option {
	return func(s *Service) { s.defaultMarket = name }
}

// New creates a Service. The base engine config is validated once here so
// per-request engine construction can only fail on unknown markets. A nil
// profile set falls back to the builtin profiles.
func New(st store.Store, cfg config.EngineConfig, profiles *market.Profiles, opts ...Option) (*Service, error) {
	if err := valuation.ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if profiles == nil {
		profiles = market.Builtin()
	}
	s := &Service{store: st, cfg: cfg, profiles: profiles, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// AnalyzeAddress values a subject identified by street address. An address
// already on file supplies the stored characteristics; otherwise the request
// fields describe the subject, and with Save set the property is created
// before the analysis runs.
func (s *Service) AnalyzeAddress(ctx context.Context, req AnalyzeRequest) (*Outcome, error) {
	if req.Address == "" {
		return nil, &valuation.InvalidInputError{Field: "subject.address", Reason: "must not be empty"}
	}

	subject := req.property()

	existing, err := s.store.GetPropertyByAddress(ctx, req.Address)
	if err != nil {
		return nil, eris.Wrap(err, "cma: look up subject")
	}
	switch {
	case existing != nil:
		subject = *existing
	case req.Save:
		created, createErr := s.store.CreateProperty(ctx, subject)
		if createErr != nil {
			return nil, eris.Wrap(createErr, "cma: create subject")
		}
		subject = *created
		zap.L().Debug("cma: subject created",
			zap.String("property_id", subject.ID),
			zap.String("address", subject.Address),
		)
	}

	return s.analyze(ctx, subject, req.Market, req.Save)
}

// AnalyzeProperty values a property already on file.
func (s *Service) AnalyzeProperty(ctx context.Context, propertyID, marketName string, save bool) (*Outcome, error) {
	prop, err := s.store.GetProperty(ctx, propertyID)
	if err != nil {
		return nil, eris.Wrap(err, "cma: get property")
	}
	if prop == nil {
		return nil, &NotFoundError{Entity: "property", ID: propertyID}
	}
	return s.analyze(ctx, *prop, marketName, save)
}

func (s *Service) analyze(ctx context.Context, subject model.Property, marketName string, save bool) (*Outcome, error) {
	if marketName == "" {
		marketName = s.defaultMarket
	}

	engine, err := s.engineFor(marketName)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(zap.String("address", subject.Address))
	log.Info("cma: starting analysis",
		zap.String("property_id", subject.ID),
		zap.String("market", marketName),
	)

	since := s.now().AddDate(0, 0, -engine.Config().RecencyWindowDays)
	pool, err := s.store.ListCandidates(ctx, since)
	if err != nil {
		return nil, eris.Wrap(err, "cma: list candidates")
	}

	result, err := engine.Analyze(subject, pool)
	if err != nil {
		return nil, err
	}
	result.Market = marketName

	outcome := &Outcome{
		Result:     result,
		PropertyID: subject.ID,
		CreatedAt:  result.AsOf,
	}

	if save && subject.ID != "" {
		saved, saveErr := s.saveResult(ctx, subject.ID, result)
		if saveErr != nil {
			return nil, eris.Wrap(saveErr, "cma: save analysis")
		}
		outcome.AnalysisID = saved.ID
		outcome.CreatedAt = saved.CreatedAt
		log.Info("cma: analysis saved", zap.String("analysis_id", saved.ID))
	}

	return outcome, nil
}

func (s *Service) saveResult(ctx context.Context, propertyID string, result *valuation.Result) (*model.Analysis, error) {
	payload, err := json.Marshal(result)
	if err != nil {
		return nil, eris.Wrap(err, "marshal result")
	}

	return s.store.SaveAnalysis(ctx, model.Analysis{
		PropertyID:      propertyID,
		EstimatedLow:    result.EstimatedLow,
		EstimatedHigh:   result.EstimatedHigh,
		MostLikely:      result.MostLikely,
		Confidence:      result.Confidence,
		ComparableCount: len(result.Comparables),
		Result:          payload,
		CreatedAt:       result.AsOf,
	})
}

// engineFor builds an engine for the requested market, or from the base
// config when no market is selected.
func (s *Service) engineFor(marketName string) (*valuation.Engine, error) {
	cfg := s.cfg
	if marketName != "" {
		prof, err := s.profiles.Get(marketName)
		if err != nil {
			return nil, err
		}
		cfg = market.Apply(prof, s.cfg)
	}
	return valuation.New(cfg)
}

// Markets returns the names of the available market profiles.
func (s *Service) Markets() []string {
	return s.profiles.Names()
}

// Analysis returns a stored analysis by ID.
func (s *Service) Analysis(ctx context.Context, id string) (*model.Analysis, error) {
	a, err := s.store.GetAnalysis(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "cma: get analysis")
	}
	if a == nil {
		return nil, &NotFoundError{Entity: "analysis", ID: id}
	}
	return a, nil
}

// History lists stored analyses, newest first.
func (s *Service) History(ctx context.Context, filter store.AnalysisFilter) ([]model.Analysis, error) {
	analyses, err := s.store.ListAnalyses(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "cma: list analyses")
	}
	return analyses, nil
}

// CreateProperty stores a property and, when sale is non-nil, one recorded
// sale for it.
func (s *Service) CreateProperty(ctx context.Context, p model.Property, sale *model.Sale) (*PropertyWithSales, error) {
	if p.Address == "" {
		return nil, &valuation.InvalidInputError{Field: "property.address", Reason: "must not be empty"}
	}

	created, err := s.store.CreateProperty(ctx, p)
	if err != nil {
		return nil, eris.Wrap(err, "cma: create property")
	}

	out := &PropertyWithSales{Property: *created}
	if sale != nil {
		rec := *sale
		rec.PropertyID = created.ID
		savedSale, saleErr := s.store.CreateSale(ctx, rec)
		if saleErr != nil {
			return nil, eris.Wrap(saleErr, "cma: create sale")
		}
		out.Sales = []model.Sale{*savedSale}
	}
	return out, nil
}

// Property returns a stored property with its sale history.
func (s *Service) Property(ctx context.Context, id string) (*PropertyWithSales, error) {
	prop, err := s.store.GetProperty(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "cma: get property")
	}
	if prop == nil {
		return nil, &NotFoundError{Entity: "property", ID: id}
	}

	sales, err := s.store.ListSales(ctx, id)
	if err != nil {
		return nil, eris.Wrap(err, "cma: list sales")
	}

	return &PropertyWithSales{Property: *prop, Sales: sales}, nil
}

// Properties lists stored properties.
func (s *Service) Properties(ctx context.Context, filter store.PropertyFilter) ([]model.Property, error) {
	props, err := s.store.ListProperties(ctx, filter)
	if err != nil {
		return nil, eris.Wrap(err, "cma: list properties")
	}
	return props, nil
}
