package imovirtual

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"imoscraper/models"
)

// stateSelector locates the embedded search-results snapshot the portal's
// server-rendering framework serializes into every listings page.
const stateSelector = `script#__NEXT_DATA__`

var (
	// ErrMissingState means the document carries no embedded state at all —
	// the expected outcome when a challenge page is served instead of
	// listings, so it must stay distinguishable from a decode bug.
	ErrMissingState = errors.New("embedded state not found in document")
	// ErrMalformedState means the state container is present but does not
	// decode into the expected schema.
	ErrMalformedState = errors.New("embedded state is malformed")
)

// embeddedState mirrors the portal's serialized page props down to the
// search-results node. Everything outside that path is ignored.
type embeddedState struct {
	Props struct {
		PageProps struct {
			Data struct {
				SearchAds struct {
					Items      []models.RawItem `json:"items"`
					Pagination struct {
						Page         int `json:"page"`
						TotalPages   int `json:"totalPages"`
						TotalResults int `json:"totalResults"`
					} `json:"pagination"`
				} `json:"searchAds"`
			} `json:"data"`
		} `json:"pageProps"`
	} `json:"props"`
}

// extractState parses a rendered document and returns the page snapshot
// embedded in it. It is a pure function: all failure is returned as a
// wrapped sentinel error, never a panic, for any input string.
func extractState(document string) (*models.PageSnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(document))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}

	raw := strings.TrimSpace(doc.Find(stateSelector).First().Text())
	if raw == "" {
		return nil, ErrMissingState
	}

	var state embeddedState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}

	ads := state.Props.PageProps.Data.SearchAds
	snapshot := &models.PageSnapshot{
		Items:      ads.Items,
		Page:       ads.Pagination.Page,
		TotalPages: ads.Pagination.TotalPages,
		TotalCount: ads.Pagination.TotalResults,
	}

	// A decoded blob that carries no pagination at all is a different page
	// type (detail page, error page) serialized by the same framework.
	if snapshot.Page == 0 && snapshot.TotalPages == 0 && len(snapshot.Items) == 0 {
		return nil, fmt.Errorf("%w: no search results in state", ErrMalformedState)
	}

	if snapshot.Page < 1 {
		snapshot.Page = 1
	}
	if snapshot.TotalPages < snapshot.Page {
		snapshot.TotalPages = snapshot.Page
	}
	if snapshot.TotalCount < 0 {
		snapshot.TotalCount = 0
	}

	return snapshot, nil
}
