package valuation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/cma-cli/internal/model"
)

// testNow pins the analysis clock so recency windows and market time
// adjustments are reproducible.
var testNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

func testEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := New(DefaultConfig())
	require.NoError(t, err)
	e.now = func() time.Time { return testNow }
	return e
}

func testSubject() model.Property {
	return model.Property{
		ID:            "subject-1",
		Address:       "100 Main St, Los Angeles, CA",
		PropertyType:  model.PropertyTypeSingleFamily,
		SquareFootage: model.Int(2000),
		Bedrooms:      model.Int(3),
		Bathrooms:     model.Float(2),
		YearBuilt:     model.Int(1990),
		LotSize:       model.Int(6000),
		Coords:        &model.Coordinates{Latitude: 34.0522, Longitude: -118.2437},
	}
}

// soldCandidate returns a candidate identical to the test subject except for
// its identity, sold daysAgo days before testNow. Mutate to introduce gaps.
func soldCandidate(id string, daysAgo int, price float64, mutate func(*model.Candidate)) model.Candidate {
	c := model.Candidate{
		Property: model.Property{
			ID:            id,
			Address:       id + " Comp Ave, Los Angeles, CA",
			PropertyType:  model.PropertyTypeSingleFamily,
			SquareFootage: model.Int(2000),
			Bedrooms:      model.Int(3),
			Bathrooms:     model.Float(2),
			YearBuilt:     model.Int(1990),
			LotSize:       model.Int(6000),
			Coords:        &model.Coordinates{Latitude: 34.0522, Longitude: -118.2437},
		},
		Sale: model.Sale{
			ID:         "sale-" + id,
			PropertyID: id,
			SalePrice:  price,
			SaleDate:   testNow.AddDate(0, 0, -daysAgo),
			Status:     model.SaleStatusSold,
		},
	}
	if mutate != nil {
		mutate(&c)
	}
	return c
}
