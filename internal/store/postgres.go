package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/cma-cli/internal/db"
	"github.com/sells-group/cma-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"insert_property":         `INSERT INTO properties (id, address, property_type, square_footage, bedrooms, bathrooms, year_built, lot_size, latitude, longitude, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
	"get_property":            `SELECT id, address, property_type, square_footage, bedrooms, bathrooms, year_built, lot_size, latitude, longitude FROM properties WHERE id = $1`,
	"get_property_by_address": `SELECT id, address, property_type, square_footage, bedrooms, bathrooms, year_built, lot_size, latitude, longitude FROM properties WHERE address = $1`,
	"insert_sale":             `INSERT INTO property_sales (id, property_id, sale_price, sale_date, list_price, days_on_market, status, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"insert_analysis":         `INSERT INTO analyses (id, property_id, estimated_low, estimated_high, most_likely, confidence, comparable_count, result, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
	"get_analysis":            `SELECT id, property_id, estimated_low, estimated_high, most_likely, confidence, comparable_count, result, created_at FROM analyses WHERE id = $1`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	// Apply pool sizing from config with sensible defaults.
	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying database pool for subsystems that need direct
// query access (e.g., bulk seeding).
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS properties (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	address        TEXT NOT NULL UNIQUE,
	property_type  TEXT NOT NULL DEFAULT 'single_family',
	square_footage INTEGER,
	bedrooms       INTEGER,
	bathrooms      DOUBLE PRECISION,
	year_built     INTEGER,
	lot_size       INTEGER,
	latitude       DOUBLE PRECISION,
	longitude      DOUBLE PRECISION,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS property_sales (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	property_id    TEXT NOT NULL REFERENCES properties(id),
	sale_price     DOUBLE PRECISION NOT NULL,
	sale_date      TIMESTAMPTZ NOT NULL,
	list_price     DOUBLE PRECISION,
	days_on_market INTEGER,
	status         TEXT NOT NULL DEFAULT 'sold',
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS analyses (
	id               TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	property_id      TEXT NOT NULL REFERENCES properties(id),
	estimated_low    BIGINT NOT NULL,
	estimated_high   BIGINT NOT NULL,
	most_likely      BIGINT NOT NULL,
	confidence       DOUBLE PRECISION NOT NULL,
	comparable_count INTEGER NOT NULL,
	result           JSONB NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_properties_address ON properties(address);
CREATE INDEX IF NOT EXISTS idx_properties_type ON properties(property_type);
CREATE INDEX IF NOT EXISTS idx_sales_property_id ON property_sales(property_id);
CREATE INDEX IF NOT EXISTS idx_sales_status_date ON property_sales(status, sale_date DESC);
CREATE INDEX IF NOT EXISTS idx_analyses_property_id ON analyses(property_id);
CREATE INDEX IF NOT EXISTS idx_analyses_created_at ON analyses(created_at DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateProperty(ctx context.Context, p model.Property) (*model.Property, error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO properties (id, address, property_type, square_footage, bedrooms, bathrooms, year_built, lot_size, latitude, longitude, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		p.ID, p.Address, string(p.PropertyType), p.SquareFootage, p.Bedrooms, p.Bathrooms,
		p.YearBuilt, p.LotSize, coordsLat(p.Coords), coordsLng(p.Coords), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert property %s", p.Address)
	}
	return &p, nil
}

func (s *PostgresStore) GetProperty(ctx context.Context, id string) (*model.Property, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, address, property_type, square_footage, bedrooms, bathrooms, year_built, lot_size, latitude, longitude FROM properties WHERE id = $1`,
		id,
	)
	p, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get property %s", id)
	}
	return p, nil
}

func (s *PostgresStore) GetPropertyByAddress(ctx context.Context, address string) (*model.Property, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, address, property_type, square_footage, bedrooms, bathrooms, year_built, lot_size, latitude, longitude FROM properties WHERE address = $1`,
		address,
	)
	p, err := scanProperty(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get property by address %s", address)
	}
	return p, nil
}

func (s *PostgresStore) ListProperties(ctx context.Context, filter PropertyFilter) ([]model.Property, error) {
	query := `SELECT id, address, property_type, square_footage, bedrooms, bathrooms, year_built, lot_size, latitude, longitude FROM properties WHERE true`
	args := []any{}
	argIdx := 1

	if filter.PropertyType != "" {
		query += fmt.Sprintf(` AND property_type = $%d`, argIdx)
		args = append(args, string(filter.PropertyType))
		argIdx++
	}
	query += ` ORDER BY address ASC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list properties")
	}
	defer rows.Close()

	var props []model.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan property")
		}
		props = append(props, *p)
	}
	return props, eris.Wrap(rows.Err(), "postgres: list properties iterate")
}

func (s *PostgresStore) CreateSale(ctx context.Context, sale model.Sale) (*model.Sale, error) {
	if sale.ID == "" {
		sale.ID = uuid.New().String()
	}
	if sale.Status == "" {
		sale.Status = model.SaleStatusSold
	}
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO property_sales (id, property_id, sale_price, sale_date, list_price, days_on_market, status, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		sale.ID, sale.PropertyID, sale.SalePrice, sale.SaleDate,
		sale.ListPrice, sale.DaysOnMarket, string(sale.Status), now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert sale for property %s", sale.PropertyID)
	}
	return &sale, nil
}

func (s *PostgresStore) ListSales(ctx context.Context, propertyID string) ([]model.Sale, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, property_id, sale_price, sale_date, list_price, days_on_market, status FROM property_sales WHERE property_id = $1 ORDER BY sale_date DESC`,
		propertyID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list sales for property %s", propertyID)
	}
	defer rows.Close()

	var sales []model.Sale
	for rows.Next() {
		sale, err := scanSale(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan sale")
		}
		sales = append(sales, *sale)
	}
	return sales, eris.Wrap(rows.Err(), "postgres: list sales iterate")
}

func (s *PostgresStore) ListCandidates(ctx context.Context, since time.Time) ([]model.Candidate, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT p.id, p.address, p.property_type, p.square_footage, p.bedrooms, p.bathrooms, p.year_built, p.lot_size, p.latitude, p.longitude,
		        s.id, s.property_id, s.sale_price, s.sale_date, s.list_price, s.days_on_market, s.status
		 FROM property_sales s
		 JOIN properties p ON p.id = s.property_id
		 WHERE s.status = 'sold' AND s.sale_date >= $1
		 ORDER BY s.sale_date DESC`,
		since,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list candidates")
	}
	defer rows.Close()

	var cands []model.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan candidate")
		}
		cands = append(cands, *c)
	}
	return cands, eris.Wrap(rows.Err(), "postgres: list candidates iterate")
}

func (s *PostgresStore) SaveAnalysis(ctx context.Context, a model.Analysis) (*model.Analysis, error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO analyses (id, property_id, estimated_low, estimated_high, most_likely, confidence, comparable_count, result, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		a.ID, a.PropertyID, a.EstimatedLow, a.EstimatedHigh, a.MostLikely,
		a.Confidence, a.ComparableCount, []byte(a.Result), a.CreatedAt,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: insert analysis for property %s", a.PropertyID)
	}
	return &a, nil
}

func (s *PostgresStore) GetAnalysis(ctx context.Context, id string) (*model.Analysis, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, property_id, estimated_low, estimated_high, most_likely, confidence, comparable_count, result, created_at FROM analyses WHERE id = $1`,
		id,
	)
	a, err := scanAnalysis(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get analysis %s", id)
	}
	return a, nil
}

func (s *PostgresStore) ListAnalyses(ctx context.Context, filter AnalysisFilter) ([]model.Analysis, error) {
	query := `SELECT id, property_id, estimated_low, estimated_high, most_likely, confidence, comparable_count, result, created_at FROM analyses WHERE true`
	args := []any{}
	argIdx := 1

	if filter.PropertyID != "" {
		query += fmt.Sprintf(` AND property_id = $%d`, argIdx)
		args = append(args, filter.PropertyID)
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list analyses")
	}
	defer rows.Close()

	var analyses []model.Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan analysis")
		}
		analyses = append(analyses, *a)
	}
	return analyses, eris.Wrap(rows.Err(), "postgres: list analyses iterate")
}

func coordsLat(c *model.Coordinates) *float64 {
	if c == nil {
		return nil
	}
	return &c.Latitude
}

func coordsLng(c *model.Coordinates) *float64 {
	if c == nil {
		return nil
	}
	return &c.Longitude
}
