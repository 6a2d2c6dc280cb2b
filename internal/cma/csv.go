package cma

import (
	"encoding/csv"
	"os"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/cma-cli/internal/model"
)

// LoadRequestsCSV reads analyze subjects from a CSV file. Columns are
// matched by header name (case insensitive): address is required;
// property_type, square_footage, bedrooms, bathrooms, year_built,
// lot_size, latitude, longitude, and market are optional. Rows without
// an address are skipped, duplicate addresses keep the first row.
func LoadRequestsCSV(path string) ([]AnalyzeRequest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "cma: open subjects csv")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "cma: read subjects csv")
	}
	if len(records) < 2 {
		return nil, eris.New("cma: subjects csv has no data rows")
	}

	header := records[0]
	colIdx := make(map[string]int, len(header))
	for i, col := range header {
		colIdx[strings.ToLower(strings.TrimSpace(col))] = i
	}
	if _, ok := colIdx["address"]; !ok {
		return nil, eris.New(`cma: subjects csv missing required column "address"`)
	}

	seen := make(map[string]bool)
	var reqs []AnalyzeRequest

	for i, row := range records[1:] {
		rowNum := i + 2 // 1-based, after the header

		address := getCol(row, colIdx, "address")
		if address == "" {
			continue
		}
		key := strings.ToLower(address)
		if seen[key] {
			continue
		}
		seen[key] = true

		req := AnalyzeRequest{
			Address:      address,
			PropertyType: model.PropertyType(getCol(row, colIdx, "property_type")),
			Market:       getCol(row, colIdx, "market"),
		}

		sqft, err := intCol(row, colIdx, "square_footage", rowNum)
		if err != nil {
			return nil, err
		}
		req.SquareFootage = sqft

		beds, err := intCol(row, colIdx, "bedrooms", rowNum)
		if err != nil {
			return nil, err
		}
		req.Bedrooms = beds

		baths, err := floatCol(row, colIdx, "bathrooms", rowNum)
		if err != nil {
			return nil, err
		}
		req.Bathrooms = baths

		year, err := intCol(row, colIdx, "year_built", rowNum)
		if err != nil {
			return nil, err
		}
		req.YearBuilt = year

		lot, err := intCol(row, colIdx, "lot_size", rowNum)
		if err != nil {
			return nil, err
		}
		req.LotSize = lot

		lat, err := floatCol(row, colIdx, "latitude", rowNum)
		if err != nil {
			return nil, err
		}
		req.Latitude = lat

		lng, err := floatCol(row, colIdx, "longitude", rowNum)
		if err != nil {
			return nil, err
		}
		req.Longitude = lng

		reqs = append(reqs, req)
	}

	if len(reqs) == 0 {
		return nil, eris.New("cma: no valid subjects found in csv")
	}
	return reqs, nil
}

// getCol safely retrieves a column value from a CSV row.
func getCol(row []string, colIdx map[string]int, col string) string {
	idx, ok := colIdx[col]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func intCol(row []string, colIdx map[string]int, col string, rowNum int) (*int, error) {
	raw := getCol(row, colIdx, col)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, eris.Wrapf(err, "cma: subjects csv row %d: parse %s", rowNum, col)
	}
	return &n, nil
}

func floatCol(row []string, colIdx map[string]int, col string, rowNum int) (*float64, error) {
	raw := getCol(row, colIdx, col)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, eris.Wrapf(err, "cma: subjects csv row %d: parse %s", rowNum, col)
	}
	return &v, nil
}
