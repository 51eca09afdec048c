package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"imoscraper/models"
)

// CSVWriter exports canonical listings to a CSV file alongside the
// database sink. It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)

	if err := w.Write([]string{
		"source", "source_id", "title", "price", "currency",
		"property_kind", "transaction_kind", "city", "region", "country",
		"address", "bedrooms", "bathrooms", "area_m2", "floor",
		"has_pool", "has_garage", "has_elevator", "has_terrace",
		"features", "url", "captured_at",
	}); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// Persist appends the listings as CSV rows.
func (c *CSVWriter) Persist(listings []*models.Listing) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, l := range listings {
		row := []string{
			l.Source,
			l.SourceID,
			l.Title,
			strconv.FormatFloat(l.Price, 'f', 2, 64),
			l.Currency,
			l.PropertyKind,
			l.TransactionKind,
			l.City,
			l.Region,
			l.Country,
			l.Address,
			formatIntPtr(l.Bedrooms),
			formatIntPtr(l.Bathrooms),
			formatFloatPtr(l.AreaM2),
			formatIntPtr(l.Floor),
			strconv.FormatBool(l.Amenities.Pool),
			strconv.FormatBool(l.Amenities.Garage),
			strconv.FormatBool(l.Amenities.Elevator),
			strconv.FormatBool(l.Amenities.Terrace),
			strings.Join(l.Features, "|"),
			l.URL,
			l.CapturedAt.Format(time.RFC3339),
		}
		if err := c.writer.Write(row); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

func formatIntPtr(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}
