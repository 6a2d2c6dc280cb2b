package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/cma-cli/internal/seed"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load sample properties and sales into the store",
	Long: `Inserts a small set of Los Angeles area sample properties with sold
listings so analyses have comparables to draw from. Properties that
already exist (matched by address) are left untouched.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		inserted, err := seed.Load(ctx, st)
		if err != nil {
			return eris.Wrap(err, "seed store")
		}

		fmt.Printf("Seeded %d properties.\n", inserted)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
