package imovirtual

import (
	"context"
	"errors"
	"fmt"
	"time"

	"imoscraper/config"
	"imoscraper/models"
	"imoscraper/utils"
)

// pageFetcher is the slice of the fetcher the controller consumes.
type pageFetcher interface {
	FetchPage(ctx context.Context, job models.CrawlJob, pageIndex int) (*models.PageSnapshot, error)
}

// itemNormalizer maps raw items into canonical records.
type itemNormalizer interface {
	Normalize(item *models.RawItem, contextLocation string) *models.Listing
}

// crawlState enumerates the per-location state machine.
type crawlState int

const (
	stateFetching crawlState = iota
	stateEvaluating
	statePacing
	stateDone
)

// Crawler drives the page-by-page and location-by-location iteration:
// limits, pacing, retry budget, blocking policy and run summary. Execution
// is strictly sequential — bursty fetching is exactly the access pattern
// the portal's defenses are tuned to detect, so the controller trades
// throughput for a human-plausible cadence.
type Crawler struct {
	fetcher    pageFetcher
	normalizer itemNormalizer
	logger     *utils.Logger

	minDelay      time.Duration
	maxDelay      time.Duration
	locationDelay time.Duration
	globalLimit   int
	blockPolicy   config.BlockPolicy
	retry         *utils.RetryConfig

	// nextDelay and pause are injected so tests can run the state machine
	// without real elapsed time.
	nextDelay DelayFunc
	pause     func(ctx context.Context, d time.Duration) error
}

// NewCrawler builds the controller from configuration.
func NewCrawler(fetcher pageFetcher, normalizer itemNormalizer, cfg *config.Config, logger *utils.Logger) *Crawler {
	return &Crawler{
		fetcher:       fetcher,
		normalizer:    normalizer,
		logger:        logger,
		minDelay:      time.Duration(cfg.MinDelayMs) * time.Millisecond,
		maxDelay:      time.Duration(cfg.MaxDelayMs) * time.Millisecond,
		locationDelay: time.Duration(cfg.LocationDelayMs) * time.Millisecond,
		globalLimit:   cfg.MaxRecords,
		blockPolicy:   cfg.BlockPolicy,
		retry: &utils.RetryConfig{
			MaxAttempts: cfg.MaxRetries + 1,
			BaseDelay:   2 * time.Second,
			Logger:      logger,
		},
		nextDelay: NextDelay,
		pause:     sleep,
	}
}

// Run executes every job in order. All jobs are validated before the first
// fetch: an invalid bound is a configuration error and fails the whole run
// up front. The returned run-level reason is completed when every location
// drained naturally, limitReached when the global record cap cut the run
// short, blocked when the abort policy ended it, or cancelled.
func (c *Crawler) Run(ctx context.Context, jobs []models.CrawlJob) ([]models.CrawlOutcome, models.StopReason, error) {
	for _, job := range jobs {
		if err := job.Validate(); err != nil {
			return nil, models.StopFatalError, err
		}
	}

	seen := utils.NewIDSet()
	outcomes := make([]models.CrawlOutcome, 0, len(jobs))
	runReason := models.StopCompleted
	collected := 0

	for i, job := range jobs {
		budget := 0
		if c.globalLimit > 0 {
			budget = c.globalLimit - collected
			if budget <= 0 {
				runReason = models.StopLimitReached
				break
			}
		}

		c.logger.Info("[crawl] Location %d/%d: %q (%s, up to %d pages)",
			i+1, len(jobs), job.Location, job.Transaction, job.PageLimit)

		outcome := c.crawlLocation(ctx, job, budget, seen)
		outcomes = append(outcomes, outcome)
		collected += len(outcome.Records)

		c.logger.Info("[crawl] Location %q done: %d records over %d pages (%s)",
			job.Location, len(outcome.Records), outcome.PagesVisited, outcome.StopReason)

		if outcome.StopReason == models.StopCancelled {
			runReason = models.StopCancelled
			break
		}
		if outcome.StopReason == models.StopBlocked && c.blockPolicy == config.BlockAbort {
			c.logger.Warn("[crawl] Block policy is abort — ending run")
			runReason = models.StopBlocked
			break
		}
		if c.globalLimit > 0 && collected >= c.globalLimit {
			runReason = models.StopLimitReached
			break
		}

		if i < len(jobs)-1 {
			gap := c.locationDelay + c.nextDelay(c.minDelay, c.maxDelay)
			c.logger.Debug("[crawl] Inter-location gap: %v", gap)
			if err := c.pause(ctx, gap); err != nil {
				runReason = models.StopCancelled
				break
			}
		}
	}

	return outcomes, runReason, nil
}

// crawlLocation runs the per-location state machine:
// fetching → evaluating → (pacing → fetching) | done.
func (c *Crawler) crawlLocation(ctx context.Context, job models.CrawlJob, budget int, seen *utils.IDSet) models.CrawlOutcome {
	outcome := models.CrawlOutcome{Location: job.Location}

	recordLimit := job.RecordLimit
	if budget > 0 && (recordLimit == 0 || budget < recordLimit) {
		recordLimit = budget
	}

	var snapshot *models.PageSnapshot
	pageIndex := 1
	state := stateFetching

	for state != stateDone {
		switch state {
		case stateFetching:
			snap, err := c.fetchWithRetry(ctx, job, pageIndex)
			outcome.PagesVisited++
			switch {
			case err == nil:
				snapshot = snap
				state = stateEvaluating
			case errors.Is(err, ErrBlocked):
				// No retry and no further pages for this location; records
				// from earlier pages are kept.
				c.logger.Warn("[crawl] %q page %d blocked by defensive challenge", job.Location, pageIndex)
				outcome.StopReason = models.StopBlocked
				state = stateDone
			case ctx.Err() != nil:
				outcome.StopReason = models.StopCancelled
				state = stateDone
			default:
				c.logger.Error("[crawl] %q page %d failed: %v — aborting location", job.Location, pageIndex, err)
				outcome.StopReason = models.StopFatalError
				state = stateDone
			}

		case stateEvaluating:
			for i := range snapshot.Items {
				record := c.normalizer.Normalize(&snapshot.Items[i], job.Location)
				if !seen.Add(record.Source + ":" + record.SourceID) {
					c.logger.Debug("[crawl] Duplicate record %s skipped", record.SourceID)
					continue
				}
				outcome.Records = append(outcome.Records, record)
			}

			// Stop-condition precedence: record cap, then page cap, then
			// pagination exhaustion.
			switch {
			case recordLimit > 0 && len(outcome.Records) >= recordLimit:
				outcome.Records = outcome.Records[:recordLimit]
				outcome.StopReason = models.StopLimitReached
				state = stateDone
			case pageIndex >= job.PageLimit:
				outcome.StopReason = models.StopPageLimitReached
				state = stateDone
			case !snapshot.HasNextPage():
				outcome.StopReason = models.StopNoMorePages
				state = stateDone
			default:
				state = statePacing
			}

		case statePacing:
			gap := c.nextDelay(c.minDelay, c.maxDelay)
			c.logger.Debug("[crawl] %q page gap: %v", job.Location, gap)
			if err := c.pause(ctx, gap); err != nil {
				outcome.StopReason = models.StopCancelled
				state = stateDone
				break
			}
			pageIndex++
			state = stateFetching
		}
	}

	return outcome
}

// fetchWithRetry applies the bounded transient-retry budget. A blocked page
// is permanent: retrying a detected block is assumed counterproductive.
func (c *Crawler) fetchWithRetry(ctx context.Context, job models.CrawlJob, pageIndex int) (*models.PageSnapshot, error) {
	var snapshot *models.PageSnapshot
	name := fmt.Sprintf("%s-page-%d", job.Location, pageIndex)

	err := c.retry.Do(ctx, name, func() error {
		snap, err := c.fetcher.FetchPage(ctx, job, pageIndex)
		if err != nil {
			if errors.Is(err, ErrBlocked) {
				return utils.Permanent(err)
			}
			return err
		}
		snapshot = snap
		return nil
	})
	if err != nil {
		return nil, err
	}
	return snapshot, nil
}
