// Package store persists properties, sale records, and analysis results.
// Two backends implement the Store interface: PostgreSQL via pgxpool and
// SQLite via modernc.org/sqlite.
package store

import (
	"context"
	"time"

	"github.com/sells-group/cma-cli/internal/model"
)

// PropertyFilter specifies criteria for listing properties.
type PropertyFilter struct {
	PropertyType model.PropertyType `json:"property_type,omitempty"`
	Limit        int                `json:"limit,omitempty"`
	Offset       int                `json:"offset,omitempty"`
}

// AnalysisFilter specifies criteria for listing analyses.
type AnalysisFilter struct {
	PropertyID string `json:"property_id,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the valuation engine.
// Getters return (nil, nil) when no record matches; callers decide whether
// a miss is an error.
type Store interface {
	// Properties
	CreateProperty(ctx context.Context, p model.Property) (*model.Property, error)
	GetProperty(ctx context.Context, id string) (*model.Property, error)
	GetPropertyByAddress(ctx context.Context, address string) (*model.Property, error)
	ListProperties(ctx context.Context, filter PropertyFilter) ([]model.Property, error)

	// Sales
	CreateSale(ctx context.Context, sale model.Sale) (*model.Sale, error)
	ListSales(ctx context.Context, propertyID string) ([]model.Sale, error)

	// ListCandidates returns every sold sale on or after the given date,
	// joined with its property. This is the comparable pool the engine
	// filters and ranks.
	ListCandidates(ctx context.Context, since time.Time) ([]model.Candidate, error)

	// Analyses
	SaveAnalysis(ctx context.Context, a model.Analysis) (*model.Analysis, error)
	GetAnalysis(ctx context.Context, id string) (*model.Analysis, error)
	ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
