package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/cma-cli/internal/cma"
	"github.com/sells-group/cma-cli/internal/model"
	"github.com/sells-group/cma-cli/internal/report"
)

var (
	analyzeAddress   string
	analyzeType      string
	analyzeSqft      int
	analyzeBeds      int
	analyzeBaths     float64
	analyzeYearBuilt int
	analyzeLot       int
	analyzeLat       float64
	analyzeLng       float64
	analyzeMarket    string
	analyzeSave      bool
	analyzeOutput    string
	analyzeReport    string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run a comparative market analysis for one property",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		svc, st, err := initService(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		req := cma.AnalyzeRequest{
			Address: analyzeAddress,
			Market:  analyzeMarket,
			Save:    analyzeSave,
		}

		// Only flags the user actually set become subject characteristics;
		// anything else stays unknown and disables its factors.
		flags := cmd.Flags()
		if flags.Changed("type") {
			req.PropertyType = model.PropertyType(analyzeType)
		}
		if flags.Changed("sqft") {
			req.SquareFootage = &analyzeSqft
		}
		if flags.Changed("beds") {
			req.Bedrooms = &analyzeBeds
		}
		if flags.Changed("baths") {
			req.Bathrooms = &analyzeBaths
		}
		if flags.Changed("year-built") {
			req.YearBuilt = &analyzeYearBuilt
		}
		if flags.Changed("lot") {
			req.LotSize = &analyzeLot
		}
		if flags.Changed("lat") {
			req.Latitude = &analyzeLat
		}
		if flags.Changed("lng") {
			req.Longitude = &analyzeLng
		}

		outcome, err := svc.AnalyzeAddress(ctx, req)
		if err != nil {
			return eris.Wrap(err, "analyze")
		}

		switch analyzeOutput {
		case "json":
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(outcome); err != nil {
				return eris.Wrap(err, "analyze: encode result")
			}
		case "table":
			formatOutcome(os.Stdout, outcome)
		default:
			return eris.Errorf("analyze: unknown output format %q (want table or json)", analyzeOutput)
		}

		if analyzeReport != "" {
			if err := report.ExportXLSX(outcome.Result, analyzeReport); err != nil {
				return err
			}
			zap.L().Info("report written", zap.String("path", analyzeReport))
		}

		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeAddress, "address", "", "subject property address (required)")
	analyzeCmd.Flags().StringVar(&analyzeType, "type", "", "property type (single_family, condo, townhouse, multi_family)")
	analyzeCmd.Flags().IntVar(&analyzeSqft, "sqft", 0, "living area in square feet")
	analyzeCmd.Flags().IntVar(&analyzeBeds, "beds", 0, "bedroom count")
	analyzeCmd.Flags().Float64Var(&analyzeBaths, "baths", 0, "bathroom count (halves allowed)")
	analyzeCmd.Flags().IntVar(&analyzeYearBuilt, "year-built", 0, "construction year")
	analyzeCmd.Flags().IntVar(&analyzeLot, "lot", 0, "lot size in square feet")
	analyzeCmd.Flags().Float64Var(&analyzeLat, "lat", 0, "latitude in decimal degrees")
	analyzeCmd.Flags().Float64Var(&analyzeLng, "lng", 0, "longitude in decimal degrees")
	analyzeCmd.Flags().StringVar(&analyzeMarket, "market", "", "market profile for adjustment rates (default from config)")
	analyzeCmd.Flags().BoolVar(&analyzeSave, "save", false, "persist the subject and the analysis")
	analyzeCmd.Flags().StringVar(&analyzeOutput, "output", "table", "output format: table or json")
	analyzeCmd.Flags().StringVar(&analyzeReport, "report", "", "also write an XLSX report to this path")
	_ = analyzeCmd.MarkFlagRequired("address")
	rootCmd.AddCommand(analyzeCmd)
}

// formatOutcome writes a human-readable analysis summary to w.
func formatOutcome(out io.Writer, outcome *cma.Outcome) {
	res := outcome.Result

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Subject:\t%s\n", res.Subject.Address)
	if res.Market != "" {
		_, _ = fmt.Fprintf(w, "Market:\t%s\n", res.Market)
	}
	_, _ = fmt.Fprintf(w, "Analysis date:\t%s\n", report.Date(res.AsOf))
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "Estimated value:\t%s\n", report.Money(res.MostLikely))
	_, _ = fmt.Fprintf(w, "Value range:\t%s - %s\n", report.Money(res.EstimatedLow), report.Money(res.EstimatedHigh))
	_, _ = fmt.Fprintf(w, "Confidence:\t%s\n", report.Percent(res.Confidence))
	if res.Fallback {
		_, _ = fmt.Fprintf(w, "Note:\tno comparable sales found, estimate uses fallback values\n")
	}
	_, _ = fmt.Fprintf(w, "Comparables:\t%d\n", len(res.Comparables))
	_, _ = fmt.Fprintf(w, "Avg adjustment:\t%s\n", report.SignedMoney(res.AdjustmentSummary.Average))
	if outcome.AnalysisID != "" {
		_, _ = fmt.Fprintf(w, "Analysis ID:\t%s\n", outcome.AnalysisID)
	}
	_ = w.Flush()

	if len(res.Comparables) == 0 {
		return
	}

	_, _ = fmt.Fprintln(out)
	cw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(cw, "ADDRESS\tSALE PRICE\tSOLD\tSCORE\tDIST\tADJUSTMENT\tADJUSTED")
	_, _ = fmt.Fprintln(cw, "-------\t----------\t----\t-----\t----\t----------\t--------")
	for _, comp := range res.Comparables {
		dist := ""
		if comp.DistanceMiles != nil {
			dist = fmt.Sprintf("%.1fmi", *comp.DistanceMiles)
		}
		_, _ = fmt.Fprintf(cw, "%s\t%s\t%s\t%.1f\t%s\t%s\t%s\n",
			comp.Property.Address,
			report.Money(int64(comp.Sale.SalePrice)),
			report.Date(comp.Sale.SaleDate),
			comp.Score,
			dist,
			report.SignedMoney(comp.Adjustments.Total),
			report.Money(comp.AdjustedPrice),
		)
	}
	_ = cw.Flush()
}
