package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/cma-cli/internal/model"
	"github.com/sells-group/cma-cli/internal/store"
)

var (
	propListType   string
	propListLimit  int
	propListOffset int

	propAddAddress   string
	propAddType      string
	propAddSqft      int
	propAddBeds      int
	propAddBaths     float64
	propAddYearBuilt int
	propAddLot       int
	propAddLat       float64
	propAddLng       float64

	propAddSalePrice    float64
	propAddSaleDate     string
	propAddListPrice    float64
	propAddDaysOnMarket int
)

var propertiesCmd = &cobra.Command{
	Use:   "properties",
	Short: "Manage stored properties",
}

var propertiesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored properties",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		svc, st, err := initService(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		props, err := svc.Properties(ctx, store.PropertyFilter{
			PropertyType: model.PropertyType(propListType),
			Limit:        propListLimit,
			Offset:       propListOffset,
		})
		if err != nil {
			return eris.Wrap(err, "list properties")
		}

		if len(props) == 0 {
			fmt.Fprintln(os.Stderr, "No properties found.")
			return nil
		}

		formatProperties(os.Stdout, props)
		return nil
	},
}

var propertiesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a property, optionally with a sold listing",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		svc, st, err := initService(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p := model.Property{
			Address:      propAddAddress,
			PropertyType: model.PropertyType(propAddType),
		}
		flags := cmd.Flags()
		if flags.Changed("sqft") {
			p.SquareFootage = model.Int(propAddSqft)
		}
		if flags.Changed("beds") {
			p.Bedrooms = model.Int(propAddBeds)
		}
		if flags.Changed("baths") {
			p.Bathrooms = model.Float(propAddBaths)
		}
		if flags.Changed("year-built") {
			p.YearBuilt = model.Int(propAddYearBuilt)
		}
		if flags.Changed("lot") {
			p.LotSize = model.Int(propAddLot)
		}
		if flags.Changed("lat") && flags.Changed("lng") {
			p.Coords = &model.Coordinates{Latitude: propAddLat, Longitude: propAddLng}
		}

		var sale *model.Sale
		if flags.Changed("sale-price") {
			sale = &model.Sale{
				SalePrice: propAddSalePrice,
				SaleDate:  time.Now().UTC(),
				Status:    model.SaleStatusSold,
			}
			if propAddSaleDate != "" {
				d, err := time.Parse("2006-01-02", propAddSaleDate)
				if err != nil {
					return eris.Wrapf(err, "parse --sale-date %q (want YYYY-MM-DD)", propAddSaleDate)
				}
				sale.SaleDate = d
			}
			if flags.Changed("list-price") {
				sale.ListPrice = model.Float(propAddListPrice)
			}
			if flags.Changed("days-on-market") {
				sale.DaysOnMarket = model.Int(propAddDaysOnMarket)
			}
		}

		created, err := svc.CreateProperty(ctx, p, sale)
		if err != nil {
			return eris.Wrap(err, "add property")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(created)
	},
}

var propertiesShowCmd = &cobra.Command{
	Use:   "show <property-id>",
	Short: "Show a property with its sale history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, st, err := initService(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		p, err := svc.Property(ctx, args[0])
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(p)
	},
}

func init() {
	propertiesListCmd.Flags().StringVar(&propListType, "type", "", "filter by property type")
	propertiesListCmd.Flags().IntVar(&propListLimit, "limit", 50, "max properties to list")
	propertiesListCmd.Flags().IntVar(&propListOffset, "offset", 0, "rows to skip")

	propertiesAddCmd.Flags().StringVar(&propAddAddress, "address", "", "street address (required)")
	propertiesAddCmd.Flags().StringVar(&propAddType, "type", "single_family", "property type (single_family, condo, townhouse, multi_family)")
	propertiesAddCmd.Flags().IntVar(&propAddSqft, "sqft", 0, "living area in square feet")
	propertiesAddCmd.Flags().IntVar(&propAddBeds, "beds", 0, "bedroom count")
	propertiesAddCmd.Flags().Float64Var(&propAddBaths, "baths", 0, "bathroom count (halves allowed)")
	propertiesAddCmd.Flags().IntVar(&propAddYearBuilt, "year-built", 0, "construction year")
	propertiesAddCmd.Flags().IntVar(&propAddLot, "lot", 0, "lot size in square feet")
	propertiesAddCmd.Flags().Float64Var(&propAddLat, "lat", 0, "latitude")
	propertiesAddCmd.Flags().Float64Var(&propAddLng, "lng", 0, "longitude")
	propertiesAddCmd.Flags().Float64Var(&propAddSalePrice, "sale-price", 0, "record a sold listing at this price")
	propertiesAddCmd.Flags().StringVar(&propAddSaleDate, "sale-date", "", "sale date as YYYY-MM-DD (default today)")
	propertiesAddCmd.Flags().Float64Var(&propAddListPrice, "list-price", 0, "original list price for the sale")
	propertiesAddCmd.Flags().IntVar(&propAddDaysOnMarket, "days-on-market", 0, "days on market for the sale")
	_ = propertiesAddCmd.MarkFlagRequired("address")

	propertiesCmd.AddCommand(propertiesListCmd, propertiesAddCmd, propertiesShowCmd)
	rootCmd.AddCommand(propertiesCmd)
}

func formatProperties(out io.Writer, props []model.Property) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tADDRESS\tTYPE\tSQFT\tBEDS\tBATHS\tYEAR")
	_, _ = fmt.Fprintln(w, "--\t-------\t----\t----\t----\t-----\t----")
	for _, p := range props {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(p.ID),
			p.Address,
			p.PropertyType,
			intOrDash(p.SquareFootage),
			intOrDash(p.Bedrooms),
			floatOrDash(p.Bathrooms),
			intOrDash(p.YearBuilt),
		)
	}
	_ = w.Flush()
}

func intOrDash(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func floatOrDash(v *float64) string {
	if v == nil {
		return "-"
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}
