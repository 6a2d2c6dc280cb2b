package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/cma-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS properties (
	id             TEXT PRIMARY KEY,
	address        TEXT NOT NULL UNIQUE,
	property_type  TEXT NOT NULL DEFAULT 'single_family',
	square_footage INTEGER,
	bedrooms       INTEGER,
	bathrooms      REAL,
	year_built     INTEGER,
	lot_size       INTEGER,
	latitude       REAL,
	longitude      REAL,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS property_sales (
	id             TEXT PRIMARY KEY,
	property_id    TEXT NOT NULL REFERENCES properties(id),
	sale_price     REAL NOT NULL,
	sale_date      DATETIME NOT NULL,
	list_price     REAL,
	days_on_market INTEGER,
	status         TEXT NOT NULL DEFAULT 'sold',
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS analyses (
	id               TEXT PRIMARY KEY,
	property_id      TEXT NOT NULL REFERENCES properties(id),
	estimated_low    INTEGER NOT NULL,
	estimated_high   INTEGER NOT NULL,
	most_likely      INTEGER NOT NULL,
	confidence       REAL NOT NULL,
	comparable_count INTEGER NOT NULL,
	result           TEXT NOT NULL,
	created_at       DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_properties_address ON properties(address);
CREATE INDEX IF NOT EXISTS idx_properties_type ON properties(property_type);
CREATE INDEX IF NOT EXISTS idx_sales_property_id ON property_sales(property_id);
CREATE INDEX IF NOT EXISTS idx_sales_status_date ON property_sales(status, sale_date);
CREATE INDEX IF NOT EXISTS idx_analyses_property_id ON analyses(property_id);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateProperty(ctx context.Context, p model.Property) (*model.Property, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO properties (id, address, property_type, square_footage, bedrooms, bathrooms, year_built, lot_size, latitude, longitude, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Address, string(p.PropertyType), p.SquareFootage, p.Bedrooms, p.Bathrooms,
		p.YearBuilt, p.LotSize, coordsLat(p.Coords), coordsLng(p.Coords), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert property %s", p.Address)
	}
	return &p, nil
}

func (s *SQLiteStore) GetProperty(ctx context.Context, id string) (*model.Property, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, address, property_type, square_footage, bedrooms, bathrooms, year_built, lot_size, latitude, longitude FROM properties WHERE id = ?`,
		id,
	)
	p, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get property %s", id)
	}
	return p, nil
}

func (s *SQLiteStore) GetPropertyByAddress(ctx context.Context, address string) (*model.Property, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, address, property_type, square_footage, bedrooms, bathrooms, year_built, lot_size, latitude, longitude FROM properties WHERE address = ?`,
		address,
	)
	p, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get property by address %s", address)
	}
	return p, nil
}

func (s *SQLiteStore) ListProperties(ctx context.Context, filter PropertyFilter) ([]model.Property, error) {
	query := `SELECT id, address, property_type, square_footage, bedrooms, bathrooms, year_built, lot_size, latitude, longitude FROM properties WHERE 1=1`
	var args []any

	if filter.PropertyType != "" {
		query += ` AND property_type = ?`
		args = append(args, string(filter.PropertyType))
	}
	query += ` ORDER BY address ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list properties")
	}
	defer rows.Close()

	var props []model.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan property")
		}
		props = append(props, *p)
	}
	return props, eris.Wrap(rows.Err(), "sqlite: list properties iterate")
}

func (s *SQLiteStore) CreateSale(ctx context.Context, sale model.Sale) (*model.Sale, error) {
	if sale.ID == "" {
		sale.ID = uuid.New().String()
	}
	if sale.Status == "" {
		sale.Status = model.SaleStatusSold
	}
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO property_sales (id, property_id, sale_price, sale_date, list_price, days_on_market, status, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sale.ID, sale.PropertyID, sale.SalePrice, sale.SaleDate,
		sale.ListPrice, sale.DaysOnMarket, string(sale.Status), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert sale for property %s", sale.PropertyID)
	}
	return &sale, nil
}

func (s *SQLiteStore) ListSales(ctx context.Context, propertyID string) ([]model.Sale, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, property_id, sale_price, sale_date, list_price, days_on_market, status FROM property_sales WHERE property_id = ? ORDER BY sale_date DESC`,
		propertyID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list sales for property %s", propertyID)
	}
	defer rows.Close()

	var sales []model.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan sale")
		}
		sales = append(sales, *sale)
	}
	return sales, eris.Wrap(rows.Err(), "sqlite: list sales iterate")
}

func (s *SQLiteStore) ListCandidates(ctx context.Context, since time.Time) ([]model.Candidate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT p.id, p.address, p.property_type, p.square_footage, p.bedrooms, p.bathrooms, p.year_built, p.lot_size, p.latitude, p.longitude,
		        s.id, s.property_id, s.sale_price, s.sale_date, s.list_price, s.days_on_market, s.status
		 FROM property_sales s
		 JOIN properties p ON p.id = s.property_id
		 WHERE s.status = 'sold' AND s.sale_date >= ?
		 ORDER BY s.sale_date DESC`,
		since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list candidates")
	}
	defer rows.Close()

	var cands []model.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan candidate")
		}
		cands = append(cands, *c)
	}
	return cands, eris.Wrap(rows.Err(), "sqlite: list candidates iterate")
}

func (s *SQLiteStore) SaveAnalysis(ctx context.Context, a model.Analysis) (*model.Analysis, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, property_id, estimated_low, estimated_high, most_likely, confidence, comparable_count, result, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.PropertyID, a.EstimatedLow, a.EstimatedHigh, a.MostLikely,
		a.Confidence, a.ComparableCount, string(a.Result), a.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: insert analysis for property %s", a.PropertyID)
	}
	return &a, nil
}

func (s *SQLiteStore) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, property_id, estimated_low, estimated_high, most_likely, confidence, comparable_count, result, created_at FROM analyses WHERE id = ?`,
		id,
	)
	a, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get analysis %s", id)
	}
	return a, nil
}

func (s *SQLiteStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error) {
	query := `SELECT id, property_id, estimated_low, estimated_high, most_likely, confidence, comparable_count, result, created_at FROM analyses WHERE 1=1`
	var args []any

	if filter.PropertyID != "" {
		query += ` AND property_id = ?`
		args = append(args, filter.PropertyID)
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list analyses")
	}
	defer rows.Close()

	var analyses []model.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan analysis")
		}
		analyses = append(analyses, *a)
	}
	return analyses, eris.Wrap(rows.Err(), "sqlite: list analyses iterate")
}

// helpers

// scannable is satisfied by sql.Row, sql.Rows, pgx.Row, and pgx.Rows, so
// both backends share one set of scan helpers. Helpers return the driver's
// raw error; callers map their own not-found sentinel.
type scannable interface {
	Scan(dest ...any) error
}

func scanProperty(row scannable) (*model.Property, error) {
	var p model.Property
	var lat, lng *float64

	err := row.Scan(&p.ID, &p.Address, &p.PropertyType, &p.SquareFootage, &p.Bedrooms,
		&p.Bathrooms, &p.YearBuilt, &p.LotSize, &lat, &lng)
	if err != nil {
		return nil, err
	}

	if lat != nil && lng != nil {
		p.Coords = &model.Coordinates{Latitude: *lat, Longitude: *lng}
	}
	return &p, nil
}

func scanSale(row scannable) (*model.Sale, error) {
	var sale model.Sale
	err := row.Scan(&sale.ID, &sale.PropertyID, &sale.SalePrice, &sale.SaleDate,
		&sale.ListPrice, &sale.DaysOnMarket, &sale.Status)
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

func scanCandidate(row scannable) (*model.Candidate, error) {
	var c model.Candidate
	var lat, lng *float64

	err := row.Scan(
		&c.Property.ID, &c.Property.Address, &c.Property.PropertyType,
		&c.Property.SquareFootage, &c.Property.Bedrooms, &c.Property.Bathrooms,
		&c.Property.YearBuilt, &c.Property.LotSize, &lat, &lng,
		&c.Sale.ID, &c.Sale.PropertyID, &c.Sale.SalePrice, &c.Sale.SaleDate,
		&c.Sale.ListPrice, &c.Sale.DaysOnMarket, &c.Sale.Status,
	)
	if err != nil {
		return nil, err
	}

	if lat != nil && lng != nil {
		c.Property.Coords = &model.Coordinates{Latitude: *lat, Longitude: *lng}
	}
	return &c, nil
}

func scanAnalysis(row scannable) (*model.Analysis, error) {
	var a model.Analysis
	var resultJSON []byte

	err := row.Scan(&a.ID, &a.PropertyID, &a.EstimatedLow, &a.EstimatedHigh,
		&a.MostLikely, &a.Confidence, &a.ComparableCount, &resultJSON, &a.CreatedAt)
	if err != nil {
		return nil, err
	}

	a.Result = resultJSON
	return &a, nil
}
