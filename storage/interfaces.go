package storage

import "imoscraper/models"

// ListingWriter is the interface any persistence backend must satisfy.
// Persist must be idempotent keyed by (source, source_id): re-persisting
// the same identifier never duplicates.
type ListingWriter interface {
	Persist(listings []*models.Listing) error
	Close() error
}
