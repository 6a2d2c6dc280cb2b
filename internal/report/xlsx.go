package report

import (
	"io"
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/cma-cli/internal/valuation"
)

// Workbook renders a result as a three-sheet XLSX workbook: the estimate
// summary, the comparables grid, and the per-comparable adjustment detail.
func Workbook(res *valuation.Result) (*xlsx.File, error) {
	f := xlsx.NewFile()

	if err := addSummarySheet(f, res); err != nil {
		return nil, err
	}
	if err := addComparablesSheet(f, res); err != nil {
		return nil, err
	}
	if err := addAdjustmentsSheet(f, res); err != nil {
		return nil, err
	}

	return f, nil
}

// WriteXLSX renders a result and streams the workbook to w.
func WriteXLSX(w io.Writer, res *valuation.Result) error {
	wb, err := Workbook(res)
	if err != nil {
		return err
	}
	if err := wb.Write(w); err != nil {
		return eris.Wrap(err, "report: write workbook")
	}
	return nil
}

// ExportXLSX renders a result to a file.
func ExportXLSX(res *valuation.Result, path string) error {
	wb, err := Workbook(res)
	if err != nil {
		return err
	}
	if err := wb.Save(path); err != nil {
		return eris.Wrapf(err, "report: save workbook %s", path)
	}
	return nil
}

func addSummarySheet(f *xlsx.File, res *valuation.Result) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}

	addPair := func(label, value string) {
		row := sheet.AddRow()
		row.AddCell().SetString(label)
		row.AddCell().SetString(value)
	}

	addPair("Comparative Market Analysis", "")
	addPair("Subject Property", res.Subject.Address)
	addPair("Property Type", string(res.Subject.PropertyType))
	if res.Subject.SquareFootage != nil {
		addPair("Square Footage", Number(*res.Subject.SquareFootage))
	}
	if res.Subject.Bedrooms != nil {
		addPair("Bedrooms", strconv.Itoa(*res.Subject.Bedrooms))
	}
	if res.Subject.Bathrooms != nil {
		addPair("Bathrooms", formatFloat(*res.Subject.Bathrooms))
	}
	if res.Subject.YearBuilt != nil {
		addPair("Year Built", strconv.Itoa(*res.Subject.YearBuilt))
	}
	if res.Subject.LotSize != nil {
		addPair("Lot Size", Number(*res.Subject.LotSize)+" sq ft")
	}
	if res.Market != "" {
		addPair("Market", res.Market)
	}
	addPair("Analysis Date", LongDate(res.AsOf))

	addPair("", "")
	addPair("Estimated Market Value", Money(res.MostLikely))
	addPair("Value Range", Money(res.EstimatedLow)+" - "+Money(res.EstimatedHigh))
	addPair("Confidence Level", Percent(res.Confidence))
	addPair("Comparable Properties", strconv.Itoa(len(res.Comparables)))
	addPair("Average Adjustment", SignedMoney(res.AdjustmentSummary.Average))
	if res.Fallback {
		addPair("Fallback Estimate", "yes")
	}

	return nil
}

func addComparablesSheet(f *xlsx.File, res *valuation.Result) error {
	sheet, err := f.AddSheet("Comparables")
	if err != nil {
		return eris.Wrap(err, "report: add comparables sheet")
	}

	header := sheet.AddRow()
	for _, col := range []string{
		"Address", "Sale Price", "Sale Date", "Square Feet", "Bedrooms",
		"Bathrooms", "Year Built", "Days on Market", "Distance Miles",
		"Similarity Score", "Total Adjustment", "Adjusted Price",
	} {
		header.AddCell().SetString(col)
	}

	for i := range res.Comparables {
		c := &res.Comparables[i]
		row := sheet.AddRow()
		row.AddCell().SetString(c.Property.Address)
		row.AddCell().SetFloat(c.Sale.SalePrice)
		row.AddCell().SetString(Date(c.Sale.SaleDate))
		setOptionalInt(row, c.Property.SquareFootage)
		setOptionalInt(row, c.Property.Bedrooms)
		setOptionalFloat(row, c.Property.Bathrooms)
		setOptionalInt(row, c.Property.YearBuilt)
		setOptionalInt(row, c.Sale.DaysOnMarket)
		setOptionalFloat(row, c.DistanceMiles)
		row.AddCell().SetFloat(c.Score)
		row.AddCell().SetInt64(c.Adjustments.Total)
		row.AddCell().SetInt64(c.AdjustedPrice)
	}

	return nil
}

func addAdjustmentsSheet(f *xlsx.File, res *valuation.Result) error {
	sheet, err := f.AddSheet("Adjustments")
	if err != nil {
		return eris.Wrap(err, "report: add adjustments sheet")
	}

	header := sheet.AddRow()
	for _, col := range []string{"Comparable", "Category", "Amount"} {
		header.AddCell().SetString(col)
	}

	for i := range res.Comparables {
		c := &res.Comparables[i]

		lines := adjustmentLines(c.Adjustments)
		if len(lines) == 0 {
			row := sheet.AddRow()
			row.AddCell().SetString(c.Property.Address)
			row.AddCell().SetString("No adjustments needed")
			row.AddCell().SetInt(0)
			continue
		}

		for _, line := range lines {
			row := sheet.AddRow()
			row.AddCell().SetString(c.Property.Address)
			row.AddCell().SetString(line.Label)
			row.AddCell().SetFloat(line.Amount)
		}
		row := sheet.AddRow()
		row.AddCell().SetString(c.Property.Address)
		row.AddCell().SetString("Total")
		row.AddCell().SetInt64(c.Adjustments.Total)
	}

	return nil
}

func setOptionalInt(row *xlsx.Row, v *int) {
	cell := row.AddCell()
	if v != nil {
		cell.SetInt(*v)
	}
}

func setOptionalFloat(row *xlsx.Row, v *float64) {
	cell := row.AddCell()
	if v != nil {
		cell.SetFloat(*v)
	}
}
