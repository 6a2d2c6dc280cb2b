package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cma-cli/internal/valuation"
)

func TestMoney(t *testing.T) {
	assert.Equal(t, "$400,000", Money(400000))
	assert.Equal(t, "$1,234,567", Money(1234567))
	assert.Equal(t, "$0", Money(0))
	assert.Equal(t, "-$8,000", Money(-8000))
}

func TestSignedMoney(t *testing.T) {
	assert.Equal(t, "+$15,000", SignedMoney(15000))
	assert.Equal(t, "-$8,000", SignedMoney(-8000))
	assert.Equal(t, "+$0", SignedMoney(0))
}

func TestNumber(t *testing.T) {
	assert.Equal(t, "2,000", Number(2000))
	assert.Equal(t, "950", Number(950))
}

func TestPercent(t *testing.T) {
	assert.Equal(t, "94%", Percent(0.94))
	assert.Equal(t, "30%", Percent(0.3))
	assert.Equal(t, "0%", Percent(0))
}

func TestDates(t *testing.T) {
	ts := time.Date(2024, 3, 9, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "2024-03-09", Date(ts))
	assert.Equal(t, "March 9, 2024", LongDate(ts))
}

func TestAdjustmentLines_SkipsZeroCategories(t *testing.T) {
	lines := adjustmentLines(valuation.Adjustments{Size: 30000, Age: -2500, Total: 27500})

	require.Len(t, lines, 2)
	assert.Equal(t, "Size", lines[0].Label)
	assert.Equal(t, 30000.0, lines[0].Amount)
	assert.Equal(t, "Age", lines[1].Label)
	assert.Equal(t, -2500.0, lines[1].Amount)
}

func TestAdjustmentLines_Empty(t *testing.T) {
	assert.Empty(t, adjustmentLines(valuation.Adjustments{}))
}
