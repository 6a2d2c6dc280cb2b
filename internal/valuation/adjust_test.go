package valuation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/cma-cli/internal/model"
)

func TestAdjustIdenticalComparable(t *testing.T) {
	e := testEngine(t)

	adj := e.Adjust(testSubject(), soldCandidate("c1", 30, 500000, nil))

	assert.Zero(t, adj.Size)
	assert.Zero(t, adj.Bedrooms)
	assert.Zero(t, adj.Bathrooms)
	assert.Zero(t, adj.Age)
	assert.Zero(t, adj.LotSize)
	assert.Zero(t, adj.MarketTime)
	assert.EqualValues(t, 0, adj.Total)
	assert.InDelta(t, 500000, AdjustedPrice(500000, adj), 0.001)
}

func TestSizeAdjustmentBands(t *testing.T) {
	r := DefaultConfig().Rates

	tests := []struct {
		name    string
		subject int
		comp    int
		want    float64
	}{
		{"small comp gets premium rate", 2000, 1000, 1000 * 150 * 1.2},
		{"mid comp gets base rate", 2500, 2000, 500 * 150},
		{"large comp gets discounted rate", 2000, 3500, -1500 * 150 * 0.8},
		{"boundary 1500 uses base rate", 2000, 1500, 500 * 150},
		{"boundary 3000 uses base rate", 2000, 3000, -1000 * 150},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := sizeAdjustment(model.Int(tt.subject), model.Int(tt.comp), r)
			assert.True(t, ok)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}

	_, ok := sizeAdjustment(nil, model.Int(2000), r)
	assert.False(t, ok)
}

func TestAgeAdjustmentClamped(t *testing.T) {
	r := DefaultConfig().Rates

	tests := []struct {
		name    string
		subject int
		comp    int
		want    float64
	}{
		{"newer subject", 1990, 1980, 5000},
		{"older subject", 1960, 1990, -10000}, // clamped at -20 years
		{"clamped at cap", 2000, 1950, 10000}, // 50 year gap caps at 20
		{"same year", 1990, 1990, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ageAdjustment(model.Int(tt.subject), model.Int(tt.comp), r)
			assert.True(t, ok)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestAgeAdjustmentNeverExceedsCap(t *testing.T) {
	r := DefaultConfig().Rates

	for _, gap := range []int{0, 5, 20, 35, 80, 120} {
		got, ok := ageAdjustment(model.Int(1900+gap), model.Int(1900), r)
		assert.True(t, ok)
		assert.LessOrEqual(t, got, 10000.0)

		got, ok = ageAdjustment(model.Int(1900), model.Int(1900+gap), r)
		assert.True(t, ok)
		assert.GreaterOrEqual(t, got, -10000.0)
	}
}

func TestLotAdjustmentTiers(t *testing.T) {
	r := DefaultConfig().Rates

	tests := []struct {
		name    string
		subject int
		comp    int
		want    float64
	}{
		{"within tier", 6000, 3000, 3000 * 5},
		{"at tier boundary", 8000, 3000, 5000 * 5},
		{"beyond tier", 12000, 3000, 5000*5 + 4000*2},
		{"beyond tier negative", 3000, 12000, -(5000*5 + 4000*2)},
		{"equal lots", 6000, 6000, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := lotAdjustment(model.Int(tt.subject), model.Int(tt.comp), r)
			assert.True(t, ok)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}
}

func TestTimeAdjustment(t *testing.T) {
	r := DefaultConfig().Rates

	sale := func(daysAgo int, price float64) model.Sale {
		return model.Sale{SalePrice: price, SaleDate: testNow.AddDate(0, 0, -daysAgo)}
	}

	tests := []struct {
		name    string
		daysAgo int
		price   float64
		want    float64
	}{
		{"recent sale needs none", 30, 400000, 0},
		{"exactly at free window", 90, 400000, 0},
		{"one quarter past", 180, 400000, 4000},
		{"half quarter past", 135, 400000, 2000},
		{"capped at two percent", 450, 400000, 8000},
		{"far past still capped", 1000, 400000, 8000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := timeAdjustment(testNow, sale(tt.daysAgo, tt.price), r)
			assert.True(t, ok)
			assert.InDelta(t, tt.want, got, 0.001)
		})
	}

	_, ok := timeAdjustment(testNow, model.Sale{SalePrice: 400000}, r)
	assert.False(t, ok, "zero sale date means no market time category")
}

func TestTimeAdjustmentMonotonic(t *testing.T) {
	r := DefaultConfig().Rates

	prev := -1.0
	for days := 0; days <= 600; days += 15 {
		sale := model.Sale{SalePrice: 500000, SaleDate: testNow.Add(-time.Duration(days) * 24 * time.Hour)}
		got, ok := timeAdjustment(testNow, sale, r)
		assert.True(t, ok)
		assert.GreaterOrEqual(t, got, prev)
		assert.LessOrEqual(t, got, 500000*r.TimeCap+0.001)
		prev = got
	}
}

func TestAdjustTotalIsSumOfCategories(t *testing.T) {
	e := testEngine(t)

	cand := soldCandidate("c1", 180, 400000, func(c *model.Candidate) {
		c.Property.SquareFootage = model.Int(1800) // +200*150 = 30000
		c.Property.Bedrooms = model.Int(2)         // +15000
		c.Property.Bathrooms = model.Float(1.5)    // +4000
		c.Property.YearBuilt = model.Int(1985)     // +2500
		c.Property.LotSize = model.Int(5000)       // +5000
	})

	adj := e.Adjust(testSubject(), cand)

	assert.InDelta(t, 30000, adj.Size, 0.001)
	assert.InDelta(t, 15000, adj.Bedrooms, 0.001)
	assert.InDelta(t, 4000, adj.Bathrooms, 0.001)
	assert.InDelta(t, 2500, adj.Age, 0.001)
	assert.InDelta(t, 5000, adj.LotSize, 0.001)
	assert.InDelta(t, 4000, adj.MarketTime, 0.001) // 180 days on 400k

	sum := adj.Size + adj.Bedrooms + adj.Bathrooms + adj.Age + adj.LotSize + adj.MarketTime
	assert.EqualValues(t, int64(sum), adj.Total)
	assert.EqualValues(t, 60500, adj.Total)
	assert.InDelta(t, 460500, AdjustedPrice(400000, adj), 0.001)
}

func TestAdjustMissingFieldsOmitCategories(t *testing.T) {
	e := testEngine(t)

	subject := testSubject()
	subject.LotSize = nil
	subject.Bathrooms = nil

	cand := soldCandidate("c1", 30, 500000, func(c *model.Candidate) {
		c.Property.Bedrooms = nil
		c.Property.YearBuilt = model.Int(0)
	})

	adj := e.Adjust(subject, cand)

	assert.Zero(t, adj.LotSize)
	assert.Zero(t, adj.Bathrooms)
	assert.Zero(t, adj.Bedrooms)
	assert.Zero(t, adj.Age)
	assert.EqualValues(t, 0, adj.Total)
}

func TestAdjustSignConvention(t *testing.T) {
	e := testEngine(t)

	// Superior comp: bigger, newer. Adjustments must be negative.
	cand := soldCandidate("c1", 30, 700000, func(c *model.Candidate) {
		c.Property.SquareFootage = model.Int(2400)
		c.Property.YearBuilt = model.Int(2005)
	})

	adj := e.Adjust(testSubject(), cand)

	assert.Negative(t, adj.Size)
	assert.Negative(t, adj.Age)
	assert.Less(t, adj.Total, int64(0))
	assert.Less(t, AdjustedPrice(700000, adj), 700000.0)
}
