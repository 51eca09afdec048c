package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"imoscraper/models"
)

// PostgresWriter persists canonical listings to PostgreSQL.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection to PostgreSQL, runs schema migrations,
// and returns a ready-to-use PostgresWriter.
func NewPostgresWriter(dsn string) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	for i := 0; i < 10; i++ {
		if err = db.Ping(); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: ping failed after retries: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}

	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS listings (
			id               SERIAL PRIMARY KEY,
			source           VARCHAR(50)   NOT NULL,
			source_id        VARCHAR(120)  NOT NULL,
			title            TEXT          NOT NULL DEFAULT '',
			price            NUMERIC(14,2) NOT NULL DEFAULT 0,
			currency         VARCHAR(8)    NOT NULL DEFAULT 'EUR',
			property_kind    VARCHAR(30)   NOT NULL,
			transaction_kind VARCHAR(10)   NOT NULL,
			city             TEXT          NOT NULL DEFAULT '',
			region           TEXT          NOT NULL DEFAULT '',
			country          TEXT          NOT NULL DEFAULT '',
			latitude         DOUBLE PRECISION,
			longitude        DOUBLE PRECISION,
			address          TEXT          NOT NULL DEFAULT '',
			bedrooms         INT,
			bathrooms        INT,
			area_m2          NUMERIC(10,2),
			floor            INT,
			has_pool         BOOLEAN NOT NULL DEFAULT FALSE,
			has_garage       BOOLEAN NOT NULL DEFAULT FALSE,
			has_elevator     BOOLEAN NOT NULL DEFAULT FALSE,
			has_terrace      BOOLEAN NOT NULL DEFAULT FALSE,
			has_garden       BOOLEAN NOT NULL DEFAULT FALSE,
			has_air_con      BOOLEAN NOT NULL DEFAULT FALSE,
			is_furnished     BOOLEAN NOT NULL DEFAULT FALSE,
			has_sea_view     BOOLEAN NOT NULL DEFAULT FALSE,
			features         TEXT          NOT NULL DEFAULT '',
			url              TEXT          NOT NULL DEFAULT '',
			captured_at      TIMESTAMPTZ   NOT NULL,
			UNIQUE (source, source_id)
		);

		CREATE INDEX IF NOT EXISTS idx_listings_price ON listings(price);
		CREATE INDEX IF NOT EXISTS idx_listings_city  ON listings(city);
		CREATE INDEX IF NOT EXISTS idx_listings_kind  ON listings(property_kind);
	`)
	return err
}

// Persist batch-inserts listings. Records whose (source, source_id) already
// exists are left untouched, so re-running a crawl never duplicates.
func (pw *PostgresWriter) Persist(listings []*models.Listing) error {
	const batchSize = 50
	for i := 0; i < len(listings); i += batchSize {
		end := i + batchSize
		if end > len(listings) {
			end = len(listings)
		}
		if err := pw.insertBatch(listings[i:end]); err != nil {
			return err
		}
	}
	return nil
}

const listingColumns = 28

func (pw *PostgresWriter) insertBatch(batch []*models.Listing) error {
	if len(batch) == 0 {
		return nil
	}

	valueStrings := make([]string, 0, len(batch))
	valueArgs := make([]interface{}, 0, len(batch)*listingColumns)

	for idx, l := range batch {
		base := idx * listingColumns
		placeholders := make([]string, listingColumns)
		for c := 0; c < listingColumns; c++ {
			placeholders[c] = fmt.Sprintf("$%d", base+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs,
			l.Source, l.SourceID, l.Title, l.Price, l.Currency,
			l.PropertyKind, l.TransactionKind, l.City, l.Region, l.Country,
			l.Latitude, l.Longitude, l.Address,
			l.Bedrooms, l.Bathrooms, l.AreaM2, l.Floor,
			l.Amenities.Pool, l.Amenities.Garage, l.Amenities.Elevator,
			l.Amenities.Terrace, l.Amenities.Garden, l.Amenities.AirConditioning,
			l.Amenities.Furnished, l.Amenities.SeaView,
			strings.Join(l.Features, "|"), l.URL, l.CapturedAt,
		)
	}

	query := fmt.Sprintf(`
		INSERT INTO listings (
			source, source_id, title, price, currency,
			property_kind, transaction_kind, city, region, country,
			latitude, longitude, address,
			bedrooms, bathrooms, area_m2, floor,
			has_pool, has_garage, has_elevator, has_terrace, has_garden,
			has_air_con, is_furnished, has_sea_view,
			features, url, captured_at
		)
		VALUES %s
		ON CONFLICT (source, source_id) DO NOTHING
	`, strings.Join(valueStrings, ","))

	_, err := pw.db.Exec(query, valueArgs...)
	return err
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// FetchAll retrieves all stored listings — used by the insight service.
func (pw *PostgresWriter) FetchAll() ([]*models.Listing, error) {
	rows, err := pw.db.Query(`
		SELECT source, source_id, title, price, currency,
		       property_kind, transaction_kind, city, region, country,
		       latitude, longitude, address,
		       bedrooms, bathrooms, area_m2, floor,
		       has_pool, has_garage, has_elevator, has_terrace, has_garden,
		       has_air_con, is_furnished, has_sea_view,
		       features, url, captured_at
		FROM listings
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("postgres: fetch all: %w", err)
	}
	defer rows.Close()

	var listings []*models.Listing
	for rows.Next() {
		l := &models.Listing{}
		var features string
		if err := rows.Scan(
			&l.Source, &l.SourceID, &l.Title, &l.Price, &l.Currency,
			&l.PropertyKind, &l.TransactionKind, &l.City, &l.Region, &l.Country,
			&l.Latitude, &l.Longitude, &l.Address,
			&l.Bedrooms, &l.Bathrooms, &l.AreaM2, &l.Floor,
			&l.Amenities.Pool, &l.Amenities.Garage, &l.Amenities.Elevator,
			&l.Amenities.Terrace, &l.Amenities.Garden, &l.Amenities.AirConditioning,
			&l.Amenities.Furnished, &l.Amenities.SeaView,
			&features, &l.URL, &l.CapturedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan row: %w", err)
		}
		if features != "" {
			l.Features = strings.Split(features, "|")
		}
		listings = append(listings, l)
	}
	return listings, rows.Err()
}
