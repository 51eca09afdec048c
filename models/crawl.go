package models

import "fmt"

// TransactionKind selects the portal search mode for a crawl.
type TransactionKind string

const (
	TransactionSale TransactionKind = "sale"
	TransactionRent TransactionKind = "rent"
)

// StopReason explains why a location's crawl reached its terminal state.
type StopReason string

const (
	StopCompleted        StopReason = "completed"
	StopLimitReached     StopReason = "limitReached"
	StopPageLimitReached StopReason = "pageLimitReached"
	StopNoMorePages      StopReason = "noMorePages"
	StopBlocked          StopReason = "blocked"
	StopFatalError       StopReason = "fatalError"
	StopCancelled        StopReason = "cancelled"
)

// CrawlJob is the immutable input to one per-location crawl run.
type CrawlJob struct {
	Location    string
	Transaction TransactionKind
	PageLimit   int
	RecordLimit int // 0 means unlimited
}

// Validate checks the job bounds before any fetch occurs.
func (j CrawlJob) Validate() error {
	if j.Location == "" {
		return fmt.Errorf("crawl job: empty location")
	}
	if j.PageLimit < 1 {
		return fmt.Errorf("crawl job %q: page limit %d, must be >= 1", j.Location, j.PageLimit)
	}
	if j.RecordLimit < 0 {
		return fmt.Errorf("crawl job %q: record limit %d, must be >= 0", j.Location, j.RecordLimit)
	}
	if j.Transaction != TransactionSale && j.Transaction != TransactionRent {
		return fmt.Errorf("crawl job %q: unknown transaction kind %q", j.Location, j.Transaction)
	}
	return nil
}

// CrawlOutcome is the terminal result of one location's crawl. It is always
// produced, even on blocking or error, so callers can tell "ran cleanly,
// found nothing" apart from "crashed".
type CrawlOutcome struct {
	Location     string
	Records      []*Listing
	PagesVisited int
	StopReason   StopReason
}
