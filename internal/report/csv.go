package report

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cma-cli/internal/valuation"
)

// comparableColumns defines the ordered comparables CSV output columns.
var comparableColumns = []string{
	"Address",
	"Sale Price",
	"Sale Date",
	"Square Feet",
	"Bedrooms",
	"Bathrooms",
	"Year Built",
	"Lot Size",
	"Days on Market",
	"Distance Miles",
	"Similarity Score",
	"Size Adjustment",
	"Bedroom Adjustment",
	"Bathroom Adjustment",
	"Age Adjustment",
	"Lot Adjustment",
	"Time Adjustment",
	"Total Adjustment",
	"Adjusted Price",
}

// WriteCSV writes the comparables grid for a result. Values are written
// unformatted so the file loads cleanly into spreadsheets.
func WriteCSV(w io.Writer, res *valuation.Result) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(comparableColumns); err != nil {
		return eris.Wrap(err, "report: write csv header")
	}
	for i := range res.Comparables {
		if err := cw.Write(buildComparableRow(&res.Comparables[i])); err != nil {
			return eris.Wrap(err, "report: write csv row")
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "report: flush csv")
	}
	return nil
}

// ExportCSV writes the comparables grid to a file.
func ExportCSV(res *valuation.Result, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "report: create csv file %s", path)
	}
	defer f.Close()

	return WriteCSV(f, res)
}

// buildComparableRow maps one comparable to a CSV row.
func buildComparableRow(c *valuation.Comparable) []string {
	p := c.Property
	return []string{
		p.Address,
		formatFloat(c.Sale.SalePrice),
		Date(c.Sale.SaleDate),
		intOrEmpty(p.SquareFootage),
		intOrEmpty(p.Bedrooms),
		floatOrEmpty(p.Bathrooms),
		intOrEmpty(p.YearBuilt),
		intOrEmpty(p.LotSize),
		intOrEmpty(c.Sale.DaysOnMarket),
		floatOrEmpty(c.DistanceMiles),
		formatFloat(c.Score),
		formatFloat(c.Adjustments.Size),
		formatFloat(c.Adjustments.Bedrooms),
		formatFloat(c.Adjustments.Bathrooms),
		formatFloat(c.Adjustments.Age),
		formatFloat(c.Adjustments.LotSize),
		formatFloat(c.Adjustments.MarketTime),
		strconv.FormatInt(c.Adjustments.Total, 10),
		strconv.FormatInt(c.AdjustedPrice, 10),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func intOrEmpty(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func floatOrEmpty(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
