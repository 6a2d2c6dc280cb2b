// Package report renders analysis results as XLSX workbooks and CSV grids
// for sharing outside the tool.
package report

import (
	"fmt"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/cma-cli/internal/valuation"
)

// printer groups digits the US-English way: 1234567 -> 1,234,567.
var printer = message.NewPrinter(language.AmericanEnglish)

// Money formats a whole-dollar amount: Money(1234567) == "$1,234,567".
func Money(v int64) string {
	if v < 0 {
		return printer.Sprintf("-$%d", -v)
	}
	return printer.Sprintf("$%d", v)
}

// SignedMoney formats a dollar adjustment with an explicit sign.
func SignedMoney(v int64) string {
	if v < 0 {
		return printer.Sprintf("-$%d", -v)
	}
	return printer.Sprintf("+$%d", v)
}

// Number formats an integer with digit grouping.
func Number(v int) string {
	return printer.Sprintf("%d", v)
}

// Percent renders a 0..1 ratio as a whole percentage.
func Percent(v float64) string {
	return fmt.Sprintf("%.0f%%", v*100)
}

// Date renders the date portion of a timestamp.
func Date(t time.Time) string {
	return t.Format("2006-01-02")
}

// LongDate renders a timestamp the way it appears on report covers.
func LongDate(t time.Time) string {
	return t.Format("January 2, 2006")
}

type adjustmentLine struct {
	Label  string
	Amount float64
}

// adjustmentLines returns the non-zero adjustment categories in display
// order.
func adjustmentLines(adj valuation.Adjustments) []adjustmentLine {
	all := []adjustmentLine{
		{"Size", adj.Size},
		{"Bedrooms", adj.Bedrooms},
		{"Bathrooms", adj.Bathrooms},
		{"Age", adj.Age},
		{"Lot Size", adj.LotSize},
		{"Market Time", adj.MarketTime},
	}

	var lines []adjustmentLine
	for _, l := range all {
		if l.Amount != 0 {
			lines = append(lines, l)
		}
	}
	return lines
}
