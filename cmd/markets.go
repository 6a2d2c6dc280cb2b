package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sells-group/cma-cli/internal/market"
)

var marketsCmd = &cobra.Command{
	Use:   "markets",
	Short: "List available market profiles",
	RunE: func(_ *cobra.Command, _ []string) error {
		profiles, err := market.Load(cfg.Market)
		if err != nil {
			return err
		}
		formatMarkets(os.Stdout, profiles, cfg.Market.DefaultProfile)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(marketsCmd)
}

func formatMarkets(out io.Writer, profiles *market.Profiles, defaultName string) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tLABEL\tPER SQFT\tPER BED\tPER BATH\tLOT RATE")
	_, _ = fmt.Fprintln(w, "----\t-----\t--------\t-------\t--------\t--------")
	for _, name := range profiles.Names() {
		prof, _ := profiles.Get(name)
		marker := ""
		if name == defaultName {
			marker = " (default)"
		}
		_, _ = fmt.Fprintf(w, "%s%s\t%s\t$%.0f\t$%.0f\t$%.0f\t$%.2f\n",
			name, marker,
			prof.Label,
			prof.PricePerSqft,
			prof.BedroomValue,
			prof.BathroomValue,
			prof.LotRate,
		)
	}
	_ = w.Flush()
}
