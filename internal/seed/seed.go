// Package seed loads a small deterministic sample dataset so analyze
// flows have a comparable pool to work with in demos and local
// development.
package seed

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cma-cli/internal/db"
	"github.com/sells-group/cma-cli/internal/model"
	"github.com/sells-group/cma-cli/internal/store"
)

// sample is one bundled property with its recorded sale. Sale dates are
// relative to load time so the pool always falls inside the engine's
// recency window.
type sample struct {
	address      string
	lat, lng     float64
	sqft         int
	beds         int
	baths        float64
	yearBuilt    int
	lotSize      int
	salePrice    float64
	daysAgo      int
	daysOnMarket int
}

var samples = []sample{
	// Beverly Hills
	{"123 Beverly Drive, Beverly Hills, CA 90210", 34.0736, -118.4004, 2400, 4, 3.0, 2015, 8000, 1200000, 45, 34},
	{"456 Rodeo Avenue, Beverly Hills, CA 90210", 34.0697, -118.4015, 2200, 3, 2.5, 2018, 7500, 1150000, 62, 41},
	{"789 Canon Street, Beverly Hills, CA 90210", 34.0728, -118.3987, 2600, 4, 3.5, 2012, 9000, 1350000, 30, 22},
	// West Hollywood
	{"111 Sunset Plaza Drive, West Hollywood, CA 90069", 34.0928, -118.3774, 2100, 3, 2.0, 2020, 6500, 980000, 55, 48},
	{"222 Laurel Canyon Blvd, West Hollywood, CA 90069", 34.0945, -118.3788, 2300, 3, 2.5, 2017, 7000, 1050000, 38, 29},
	// Hollywood
	{"333 Hollywood Boulevard, Hollywood, CA 90028", 34.1022, -118.3267, 1900, 3, 2.0, 2010, 6000, 850000, 72, 67},
	{"444 Vine Street, Hollywood, CA 90028", 34.1016, -118.3259, 2500, 4, 3.0, 2016, 8500, 1100000, 41, 35},
}

// listMarkup is applied to the sale price to derive the list price.
const listMarkup = 1.05

// bulkStore is satisfied by the Postgres store. Stores exposing a pool
// get the dataset loaded with COPY instead of row-at-a-time inserts.
type bulkStore interface {
	Pool() db.Pool
}

// Load inserts the sample dataset, skipping addresses that already
// exist. It returns the number of properties inserted.
func Load(ctx context.Context, st store.Store) (int, error) {
	fresh, err := missingSamples(ctx, st)
	if err != nil {
		return 0, err
	}
	if len(fresh) == 0 {
		zap.L().Info("seed: sample data already present")
		return 0, nil
	}

	now := time.Now().UTC()
	if bs, ok := st.(bulkStore); ok {
		err = loadBulk(ctx, bs.Pool(), fresh, now)
	} else {
		err = loadRows(ctx, st, fresh, now)
	}
	if err != nil {
		return 0, err
	}

	zap.L().Info("seed: sample data loaded",
		zap.Int("inserted", len(fresh)),
		zap.Int("skipped", len(samples)-len(fresh)),
	)
	return len(fresh), nil
}

func missingSamples(ctx context.Context, st store.Store) ([]sample, error) {
	var fresh []sample
	for _, s := range samples {
		existing, err := st.GetPropertyByAddress(ctx, s.address)
		if err != nil {
			return nil, eris.Wrapf(err, "seed: look up %s", s.address)
		}
		if existing != nil {
			zap.L().Debug("seed: address exists, skipping", zap.String("address", s.address))
			continue
		}
		fresh = append(fresh, s)
	}
	return fresh, nil
}

func loadRows(ctx context.Context, st store.Store, fresh []sample, now time.Time) error {
	for _, s := range fresh {
		p, err := st.CreateProperty(ctx, s.property())
		if err != nil {
			return eris.Wrapf(err, "seed: create property %s", s.address)
		}
		if _, err := st.CreateSale(ctx, s.sale(p.ID, now)); err != nil {
			return eris.Wrapf(err, "seed: create sale for %s", s.address)
		}
	}
	return nil
}

// loadBulk stages the whole dataset in two round trips: properties go
// through the upsert helper because address carries a unique constraint,
// sales through plain COPY.
func loadBulk(ctx context.Context, pool db.Pool, fresh []sample, now time.Time) error {
	propCols := []string{
		"id", "address", "property_type", "square_footage", "bedrooms",
		"bathrooms", "year_built", "lot_size", "latitude", "longitude",
		"created_at", "updated_at",
	}
	saleCols := []string{
		"id", "property_id", "sale_price", "sale_date", "list_price",
		"days_on_market", "status", "created_at",
	}

	propRows := make([][]any, 0, len(fresh))
	saleRows := make([][]any, 0, len(fresh))
	for _, s := range fresh {
		propertyID := uuid.New().String()
		propRows = append(propRows, []any{
			propertyID, s.address, string(model.PropertyTypeSingleFamily),
			s.sqft, s.beds, s.baths, s.yearBuilt, s.lotSize, s.lat, s.lng,
			now, now,
		})
		saleRows = append(saleRows, []any{
			uuid.New().String(), propertyID, s.salePrice,
			now.AddDate(0, 0, -s.daysAgo), s.salePrice * listMarkup,
			s.daysOnMarket, string(model.SaleStatusSold), now,
		})
	}

	// Keep the existing id on conflict so sale rows never dangle.
	_, err := db.BulkUpsert(ctx, pool, db.UpsertConfig{
		Table:        "properties",
		Columns:      propCols,
		ConflictKeys: []string{"address"},
		UpdateCols: []string{
			"property_type", "square_footage", "bedrooms", "bathrooms",
			"year_built", "lot_size", "latitude", "longitude", "updated_at",
		},
	}, propRows)
	if err != nil {
		return eris.Wrap(err, "seed: upsert properties")
	}

	if _, err := db.CopyFrom(ctx, pool, "property_sales", saleCols, saleRows); err != nil {
		return eris.Wrap(err, "seed: copy sales")
	}
	return nil
}

func (s sample) property() model.Property {
	return model.Property{
		Address:       s.address,
		PropertyType:  model.PropertyTypeSingleFamily,
		SquareFootage: model.Int(s.sqft),
		Bedrooms:      model.Int(s.beds),
		Bathrooms:     model.Float(s.baths),
		YearBuilt:     model.Int(s.yearBuilt),
		LotSize:       model.Int(s.lotSize),
		Coords:        &model.Coordinates{Latitude: s.lat, Longitude: s.lng},
	}
}

func (s sample) sale(propertyID string, now time.Time) model.Sale {
	return model.Sale{
		PropertyID:   propertyID,
		SalePrice:    s.salePrice,
		SaleDate:     now.AddDate(0, 0, -s.daysAgo),
		ListPrice:    model.Float(s.salePrice * listMarkup),
		DaysOnMarket: model.Int(s.daysOnMarket),
		Status:       model.SaleStatusSold,
	}
}
