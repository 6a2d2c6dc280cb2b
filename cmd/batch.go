package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/cma-cli/internal/cma"
)

var (
	batchCSV         string
	batchLimit       int
	batchConcurrency int
	batchMarket      string
	batchOutputDir   string
	batchDryRun      bool
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Analyze subjects from a CSV file concurrently",
	Long: `Reads subject properties from a CSV file (header-matched columns:
address, property_type, square_footage, bedrooms, bathrooms, year_built,
lot_size, latitude, longitude, market) and runs an analysis for each.

Examples:
  # Parse the CSV and print the subjects without analyzing
  cma batch --csv subjects.csv --dry-run

  # Analyze everything, four at a time, one JSON file per subject
  cma batch --csv subjects.csv --concurrency 4 --output-dir results/`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("batch"); err != nil {
			return err
		}

		reqs, err := cma.LoadRequestsCSV(batchCSV)
		if err != nil {
			return err
		}
		zap.L().Info("batch: parsed subjects", zap.Int("subjects", len(reqs)))

		if batchLimit > 0 && batchLimit < len(reqs) {
			reqs = reqs[:batchLimit]
		}

		for i := range reqs {
			reqs[i].Save = true
			if reqs[i].Market == "" {
				reqs[i].Market = batchMarket
			}
		}

		if batchDryRun {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(reqs)
		}

		svc, st, err := initService(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		concurrency := batchConcurrency
		if concurrency <= 0 {
			concurrency = cfg.Batch.MaxConcurrent
		}

		outcomes, failed := runBatch(ctx, reqs, concurrency, svc.AnalyzeAddress)

		zap.L().Info("batch: complete",
			zap.Int("total", len(reqs)),
			zap.Int("succeeded", len(outcomes)),
			zap.Int("failed", failed),
		)

		if batchOutputDir != "" {
			return writeBatchResults(outcomes, batchOutputDir)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(outcomes)
	},
}

func init() {
	batchCmd.Flags().StringVar(&batchCSV, "csv", "", "path to subjects CSV file (required)")
	batchCmd.Flags().IntVar(&batchLimit, "limit", 0, "max subjects to analyze (0 = all)")
	batchCmd.Flags().IntVar(&batchConcurrency, "concurrency", 0, "max concurrent analyses (default from config)")
	batchCmd.Flags().StringVar(&batchMarket, "market", "", "market profile for rows that name none")
	batchCmd.Flags().StringVar(&batchOutputDir, "output-dir", "", "write one JSON result per subject to this directory (default: combined JSON to stdout)")
	batchCmd.Flags().BoolVar(&batchDryRun, "dry-run", false, "parse the CSV and print the subjects, skip analysis")
	_ = batchCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(batchCmd)
}

// analyzeFunc is the callback signature for analyzing one subject.
type analyzeFunc func(ctx context.Context, req cma.AnalyzeRequest) (*cma.Outcome, error)

// runBatch analyzes subjects concurrently and returns the successful
// outcomes plus the failure count. Individual failures are logged, not
// fatal.
func runBatch(ctx context.Context, reqs []cma.AnalyzeRequest, concurrency int, analyze analyzeFunc) ([]*cma.Outcome, int) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	var mu sync.Mutex
	var outcomes []*cma.Outcome
	var failed atomic.Int64

	for i, req := range reqs {
		g.Go(func() error {
			log := zap.L().With(zap.String("address", req.Address))
			log.Info("batch: analyzing", zap.Int("subject", i+1), zap.Int("of", len(reqs)))

			outcome, err := analyze(gctx, req)
			if err != nil {
				failed.Add(1)
				log.Error("batch: analysis failed", zap.Error(err))
				return nil // don't abort batch on individual failure
			}

			log.Info("batch: analysis complete",
				zap.Int64("most_likely", outcome.Result.MostLikely),
				zap.Float64("confidence", outcome.Result.Confidence),
			)
			mu.Lock()
			outcomes = append(outcomes, outcome)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return outcomes, int(failed.Load())
}

// writeBatchResults writes one indented JSON file per outcome, named after
// the subject address.
func writeBatchResults(outcomes []*cma.Outcome, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "batch: create output dir %s", dir)
	}

	for _, outcome := range outcomes {
		data, err := json.MarshalIndent(outcome, "", "  ")
		if err != nil {
			return eris.Wrap(err, "batch: marshal outcome")
		}
		path := filepath.Join(dir, slugify(outcome.Result.Subject.Address)+".json")
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return eris.Wrapf(err, "batch: write %s", path)
		}
	}

	zap.L().Info("batch: results written", zap.Int("files", len(outcomes)), zap.String("dir", dir))
	return nil
}

// slugify turns an address into a safe file name.
func slugify(s string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
