package imovirtual

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"imoscraper/models"
	"imoscraper/utils"
)

const baseURL = "https://www.imovirtual.com"

// ErrBlocked means the settle pass could not clear a defensive challenge.
// It ends the location's crawl immediately: retrying a detected block only
// feeds the fingerprint.
var ErrBlocked = errors.New("defensive challenge unresolved")

// Renderer obtains a rendered page for a URL. *Browser implements it; the
// crawler never talks to chromedp directly.
type Renderer interface {
	Open(ctx context.Context, url string) (PageHandle, error)
}

// settler is the slice of the evasion coordinator the fetcher consumes.
type settler interface {
	Settle(ctx context.Context, page PageHandle) ChallengeState
}

// SearchURL builds the deterministic results-page URL for a job and page
// index.
func SearchURL(job models.CrawlJob, pageIndex int) string {
	segment := "comprar"
	if job.Transaction == models.TransactionRent {
		segment = "arrendar"
	}
	location := url.PathEscape(strings.ToLower(strings.TrimSpace(job.Location)))
	return fmt.Sprintf("%s/pt/resultados/%s/%s?page=%d", baseURL, segment, location, pageIndex)
}

// Fetcher turns (job, pageIndex) into a page snapshot or a typed failure:
// ErrBlocked for an unresolved challenge, any other error for a transient
// transport problem. A page whose embedded state is missing or malformed is
// not an error — it degrades to an empty snapshot with pagination closed.
type Fetcher struct {
	renderer Renderer
	evasion  settler
	logger   *utils.Logger
}

// NewFetcher wires a renderer and an evasion coordinator into a Fetcher.
func NewFetcher(renderer Renderer, evasion settler, logger *utils.Logger) *Fetcher {
	return &Fetcher{renderer: renderer, evasion: evasion, logger: logger}
}

// FetchPage renders one results page, settles it and extracts its snapshot.
func (f *Fetcher) FetchPage(ctx context.Context, job models.CrawlJob, pageIndex int) (*models.PageSnapshot, error) {
	pageURL := SearchURL(job, pageIndex)
	f.logger.Debug("[fetch] Page %d — %s", pageIndex, pageURL)

	page, err := f.renderer.Open(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", pageIndex, err)
	}
	defer page.Close()

	if state := f.evasion.Settle(ctx, page); state == ChallengeUnresolved {
		return nil, fmt.Errorf("page %d: %w", pageIndex, ErrBlocked)
	}

	document, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("read page %d: %w", pageIndex, err)
	}

	snapshot, err := extractState(document)
	switch {
	case err == nil:
		return snapshot, nil
	case errors.Is(err, ErrMissingState), errors.Is(err, ErrMalformedState):
		// An empty page may legitimately mean "no results here".
		f.logger.Warn("[fetch] Page %d has no usable embedded state (%v) — treating as empty", pageIndex, err)
		return &models.PageSnapshot{Page: pageIndex, TotalPages: pageIndex}, nil
	default:
		return nil, fmt.Errorf("extract page %d: %w", pageIndex, err)
	}
}
