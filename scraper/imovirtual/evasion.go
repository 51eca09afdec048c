package imovirtual

import (
	"context"
	"strings"
	"time"

	"imoscraper/utils"
)

// ChallengeState classifies a rendered page after the settle pass.
type ChallengeState int

const (
	// ChallengeClear — no defensive challenge was observed.
	ChallengeClear ChallengeState = iota
	// ChallengePresent — a challenge was observed but cleared itself during
	// the mitigation pass.
	ChallengePresent
	// ChallengeUnresolved — the challenge survived mitigation. This is the
	// only state that turns into the blocked crawl outcome.
	ChallengeUnresolved
)

func (s ChallengeState) String() string {
	switch s {
	case ChallengeClear:
		return "clear"
	case ChallengePresent:
		return "challengePresent"
	default:
		return "challengeUnresolved"
	}
}

// PageHandle is the slice of a rendered tab the evasion and fetch layers
// need. *browserPage implements it; tests substitute fakes.
type PageHandle interface {
	Content() (string, error)
	ClickFirst(selectors []string) (bool, error)
	ScrollThrough(steps int, pause time.Duration) error
	Close()
}

// consentSelectors is the prioritized list of recognized cookie/consent
// dismissal targets. The first one that clicks wins.
var consentSelectors = []string{
	`#onetrust-accept-btn-handler`,
	`button[data-testid="cookies-accept"]`,
	`button[data-cy="dialog-accept-cookies"]`,
	`#didomi-notice-agree-button`,
	`button[aria-label="Aceitar"]`,
	`button[mode="primary"]`,
}

// challengeMarkers are fingerprints of known defensive interstitials.
// Matching is lower-cased substring search over the whole document.
var challengeMarkers = []string{
	"just a moment",
	"attention required",
	"cf-chl",
	"challenge-platform",
	"datadome",
	"geo.captcha-delivery.com",
	"verify you are human",
	"confirme que é humano",
	"enable javascript and cookies to continue",
}

// EvasionCoordinator drives the human-like settle pass against each freshly
// rendered page: consent dismissal, staged scrolling and challenge probing.
type EvasionCoordinator struct {
	logger      *utils.Logger
	scrollSteps int
	scrollPause time.Duration
	mitigation  time.Duration
}

// NewEvasionCoordinator returns a coordinator with the default interaction
// bounds.
func NewEvasionCoordinator(logger *utils.Logger) *EvasionCoordinator {
	return &EvasionCoordinator{
		logger:      logger,
		scrollSteps: 3,
		scrollPause: 800 * time.Millisecond,
		mitigation:  6 * time.Second,
	}
}

// Settle runs the interaction sequence against one rendered page and
// classifies the result. Interaction failures are logged and tolerated —
// only the final challenge probe decides the state.
func (e *EvasionCoordinator) Settle(ctx context.Context, page PageHandle) ChallengeState {
	if dismissed, err := page.ClickFirst(consentSelectors); err != nil {
		e.logger.Warn("[evasion] Consent dismissal failed: %v", err)
	} else if dismissed {
		e.logger.Debug("[evasion] Consent prompt dismissed")
	}

	if err := page.ScrollThrough(e.scrollSteps, e.scrollPause); err != nil {
		e.logger.Warn("[evasion] Scroll pass failed: %v", err)
	}

	html, err := page.Content()
	if err != nil {
		e.logger.Warn("[evasion] Could not read document for challenge probe: %v", err)
		return ChallengeUnresolved
	}
	if !looksChallenged(html) {
		return ChallengeClear
	}

	// One mitigation pass: wait the challenge out, nudge the page, re-probe.
	e.logger.Warn("[evasion] Challenge fingerprint detected — attempting mitigation")
	if err := sleep(ctx, e.mitigation); err != nil {
		return ChallengeUnresolved
	}
	if err := page.ScrollThrough(1, e.scrollPause); err != nil {
		e.logger.Debug("[evasion] Mitigation scroll failed: %v", err)
	}

	html, err = page.Content()
	if err != nil || looksChallenged(html) {
		return ChallengeUnresolved
	}
	e.logger.Info("[evasion] Challenge cleared after mitigation")
	return ChallengePresent
}

// looksChallenged reports whether the document carries a known defensive
// interstitial fingerprint. Pure string scan, unit-testable without a
// browser.
func looksChallenged(document string) bool {
	document = strings.ToLower(document)
	for _, marker := range challengeMarkers {
		if strings.Contains(document, marker) {
			return true
		}
	}
	return false
}
