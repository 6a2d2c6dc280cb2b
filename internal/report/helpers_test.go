package report

import (
	"time"

	"github.com/sells-group/cma-cli/internal/model"
	"github.com/sells-group/cma-cli/internal/valuation"
)

var reportDate = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

// testResult returns a two-comparable result with realistic values. The
// first comparable needed no adjustments; the second carries three.
func testResult() *valuation.Result {
	comps := []valuation.Comparable{
		{
			Property: model.Property{
				ID:            "comp-1",
				Address:       "12 Comp Ave, Los Angeles, CA",
				PropertyType:  model.PropertyTypeSingleFamily,
				SquareFootage: model.Int(2000),
				Bedrooms:      model.Int(3),
				Bathrooms:     model.Float(2),
				YearBuilt:     model.Int(1990),
				LotSize:       model.Int(6000),
			},
			Sale: model.Sale{
				ID:           "sale-1",
				PropertyID:   "comp-1",
				SalePrice:    505000,
				SaleDate:     reportDate.AddDate(0, 0, -30),
				DaysOnMarket: model.Int(21),
				Status:       model.SaleStatusSold,
			},
			Score:         100,
			DistanceMiles: model.Float(0.4),
			AdjustedPrice: 505000,
		},
		{
			Property: model.Property{
				ID:            "comp-2",
				Address:       "48 Comp Ave, Los Angeles, CA",
				PropertyType:  model.PropertyTypeSingleFamily,
				SquareFootage: model.Int(1800),
				Bedrooms:      model.Int(3),
				Bathrooms:     model.Float(2),
				YearBuilt:     model.Int(1985),
				LotSize:       model.Int(5500),
			},
			Sale: model.Sale{
				ID:           "sale-2",
				PropertyID:   "comp-2",
				SalePrice:    480000,
				SaleDate:     reportDate.AddDate(0, 0, -60),
				DaysOnMarket: model.Int(34),
				Status:       model.SaleStatusSold,
			},
			Score:         94.25,
			DistanceMiles: model.Float(1.2),
			Adjustments: valuation.Adjustments{
				Size:    30000,
				Age:     2500,
				LotSize: 2500,
				Total:   35000,
			},
			AdjustedPrice: 515000,
		},
	}

	return &valuation.Result{
		Subject: model.Property{
			ID:            "prop-1",
			Address:       "741 Oak St, Los Angeles, CA",
			PropertyType:  model.PropertyTypeSingleFamily,
			SquareFootage: model.Int(2000),
			Bedrooms:      model.Int(3),
			Bathrooms:     model.Float(2),
			YearBuilt:     model.Int(1990),
			LotSize:       model.Int(6000),
		},
		EstimatedLow:      494900,
		EstimatedHigh:     525300,
		MostLikely:        510000,
		Confidence:        0.86,
		Comparables:       comps,
		AdjustmentSummary: valuation.AdjustmentSummary{Average: 17500, Min: 0, Max: 35000},
		Market:            "los_angeles",
		AsOf:              reportDate,
	}
}
