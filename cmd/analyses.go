package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/cma-cli/internal/model"
	"github.com/sells-group/cma-cli/internal/report"
	"github.com/sells-group/cma-cli/internal/store"
)

var (
	analysesListProperty string
	analysesListLimit    int

	analysesStatsSince time.Duration
	analysesStatsLimit int
)

var analysesCmd = &cobra.Command{
	Use:   "analyses",
	Short: "Inspect saved analyses",
}

var analysesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved analyses, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		svc, st, err := initService(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		analyses, err := svc.History(ctx, store.AnalysisFilter{
			PropertyID: analysesListProperty,
			Limit:      analysesListLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list analyses")
		}

		if len(analyses) == 0 {
			fmt.Fprintln(os.Stderr, "No analyses found.")
			return nil
		}

		formatAnalyses(os.Stdout, analyses)
		return nil
	},
}

var analysesShowCmd = &cobra.Command{
	Use:   "show <analysis-id>",
	Short: "Show a saved analysis with its full result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, st, err := initService(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		a, err := svc.Analysis(ctx, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(a)
	},
}

var analysesStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize saved analyses",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		svc, st, err := initService(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		analyses, err := svc.History(ctx, store.AnalysisFilter{Limit: analysesStatsLimit})
		if err != nil {
			return eris.Wrap(err, "load analyses")
		}

		if analysesStatsSince > 0 {
			cutoff := time.Now().Add(-analysesStatsSince)
			kept := analyses[:0]
			for _, a := range analyses {
				if a.CreatedAt.After(cutoff) {
					kept = append(kept, a)
				}
			}
			analyses = kept
		}

		formatAnalysisStats(os.Stdout, computeAnalysisStats(analyses))
		return nil
	},
}

func init() {
	analysesListCmd.Flags().StringVar(&analysesListProperty, "property", "", "filter by property ID")
	analysesListCmd.Flags().IntVar(&analysesListLimit, "limit", 20, "max analyses to list")

	analysesStatsCmd.Flags().DurationVar(&analysesStatsSince, "since", 0, "only count analyses newer than this (e.g. 720h)")
	analysesStatsCmd.Flags().IntVar(&analysesStatsLimit, "limit", 500, "max analyses to read")

	analysesCmd.AddCommand(analysesListCmd, analysesShowCmd, analysesStatsCmd)
	rootCmd.AddCommand(analysesCmd)
}

func formatAnalyses(out io.Writer, analyses []model.Analysis) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tPROPERTY\tMOST LIKELY\tRANGE\tCONF\tCOMPS\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t--------\t-----------\t-----\t----\t-----\t-------")
	for _, a := range analyses {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s - %s\t%.0f%%\t%d\t%s\n",
			truncateID(a.ID),
			truncateID(a.PropertyID),
			report.Money(a.MostLikely),
			report.Money(a.EstimatedLow),
			report.Money(a.EstimatedHigh),
			a.Confidence*100,
			a.ComparableCount,
			a.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

// analysisStats aggregates saved analyses for the stats subcommand.
type analysisStats struct {
	Total         int
	AvgConfidence float64
	AvgMostLikely int64
	MinMostLikely int64
	MaxMostLikely int64
	Fallbacks     int
}

func computeAnalysisStats(analyses []model.Analysis) analysisStats {
	var stats analysisStats
	stats.Total = len(analyses)
	if stats.Total == 0 {
		return stats
	}

	var confSum float64
	var likelySum int64
	stats.MinMostLikely = analyses[0].MostLikely
	stats.MaxMostLikely = analyses[0].MostLikely
	for _, a := range analyses {
		confSum += a.Confidence
		likelySum += a.MostLikely
		if a.MostLikely < stats.MinMostLikely {
			stats.MinMostLikely = a.MostLikely
		}
		if a.MostLikely > stats.MaxMostLikely {
			stats.MaxMostLikely = a.MostLikely
		}
		// A lone comparable on a saved row is the synthetic placeholder
		// written when no sales qualified.
		if a.ComparableCount <= 1 && a.Confidence <= 0.3 {
			stats.Fallbacks++
		}
	}
	stats.AvgConfidence = confSum / float64(stats.Total)
	stats.AvgMostLikely = likelySum / int64(stats.Total)
	return stats
}

func formatAnalysisStats(out io.Writer, stats analysisStats) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Analyses:\t%d\n", stats.Total)
	if stats.Total > 0 {
		_, _ = fmt.Fprintf(w, "Avg confidence:\t%.0f%%\n", stats.AvgConfidence*100)
		_, _ = fmt.Fprintf(w, "Avg estimate:\t%s\n", report.Money(stats.AvgMostLikely))
		_, _ = fmt.Fprintf(w, "Estimate range:\t%s - %s\n", report.Money(stats.MinMostLikely), report.Money(stats.MaxMostLikely))
		_, _ = fmt.Fprintf(w, "Fallback runs:\t%d\n", stats.Fallbacks)
	}
	_ = w.Flush()
}

// truncateID shortens a UUID for table output.
func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
