package main

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/cma-cli/internal/report"
	"github.com/sells-group/cma-cli/internal/valuation"
)

var (
	exportAnalysisID string
	exportOut        string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a saved analysis as an XLSX or CSV report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		svc, st, err := initService(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		a, err := svc.Analysis(ctx, exportAnalysisID)
		if err != nil {
			return err
		}

		var result valuation.Result
		if err := json.Unmarshal(a.Result, &result); err != nil {
			return eris.Wrapf(err, "decode stored result for analysis %s", exportAnalysisID)
		}

		switch filepath.Ext(exportOut) {
		case ".xlsx":
			err = report.ExportXLSX(&result, exportOut)
		case ".csv":
			err = report.ExportCSV(&result, exportOut)
		default:
			return eris.Errorf("unsupported report format %q (want .xlsx or .csv)", filepath.Ext(exportOut))
		}
		if err != nil {
			return eris.Wrap(err, "export report")
		}

		fmt.Printf("Report written to %s\n", exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportAnalysisID, "analysis", "", "analysis ID to export (required)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path ending in .xlsx or .csv (required)")
	_ = exportCmd.MarkFlagRequired("analysis")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}
