package imovirtual

import (
	"context"
	"testing"
	"time"

	"imoscraper/utils"
)

// fakePage replays a sequence of document contents, one per Content call,
// sticking on the last one.
type fakePage struct {
	contents   []string
	contentIdx int
	clicked    bool
	scrolls    int
	closed     bool
}

func (p *fakePage) Content() (string, error) {
	if p.contentIdx < len(p.contents)-1 {
		c := p.contents[p.contentIdx]
		p.contentIdx++
		return c, nil
	}
	return p.contents[len(p.contents)-1], nil
}

func (p *fakePage) ClickFirst(selectors []string) (bool, error) {
	p.clicked = true
	return true, nil
}

func (p *fakePage) ScrollThrough(steps int, pause time.Duration) error {
	p.scrolls += steps
	return nil
}

func (p *fakePage) Close() { p.closed = true }

func fastCoordinator() *EvasionCoordinator {
	c := NewEvasionCoordinator(utils.NewLogger(false))
	c.scrollPause = 0
	c.mitigation = 0
	return c
}

const cleanListingPage = `<html><body><div id="__next">Apartamentos em Lisboa</div></body></html>`
const challengePage = `<html><head><title>Just a moment...</title></head><body>checking your browser</body></html>`

func TestLooksChallenged(t *testing.T) {
	tests := []struct {
		document string
		want     bool
	}{
		{cleanListingPage, false},
		{challengePage, true},
		{`<html><body><div class="datadome-captcha"></div></body></html>`, true},
		{`<html><body>Attention Required! | Cloudflare</body></html>`, true},
		{`<html><body>Confirme que é humano</body></html>`, true},
		{"", false},
	}

	for _, tt := range tests {
		if got := looksChallenged(tt.document); got != tt.want {
			t.Errorf("looksChallenged(%.40q) = %v; want %v", tt.document, got, tt.want)
		}
	}
}

func TestSettleClear(t *testing.T) {
	page := &fakePage{contents: []string{cleanListingPage}}

	state := fastCoordinator().Settle(context.Background(), page)
	if state != ChallengeClear {
		t.Errorf("Settle = %s; want clear", state)
	}
	if !page.clicked {
		t.Error("consent dismissal was never attempted")
	}
	if page.scrolls == 0 {
		t.Error("scroll pass was never performed")
	}
}

func TestSettleChallengeClearsAfterMitigation(t *testing.T) {
	page := &fakePage{contents: []string{challengePage, cleanListingPage}}

	state := fastCoordinator().Settle(context.Background(), page)
	if state != ChallengePresent {
		t.Errorf("Settle = %s; want challengePresent", state)
	}
}

func TestSettleChallengePersists(t *testing.T) {
	page := &fakePage{contents: []string{challengePage}}

	state := fastCoordinator().Settle(context.Background(), page)
	if state != ChallengeUnresolved {
		t.Errorf("Settle = %s; want challengeUnresolved", state)
	}
}

func TestSettleCancelledDuringMitigation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	coord := NewEvasionCoordinator(utils.NewLogger(false))
	coord.scrollPause = 0
	coord.mitigation = time.Minute

	page := &fakePage{contents: []string{challengePage}}
	if state := coord.Settle(ctx, page); state != ChallengeUnresolved {
		t.Errorf("Settle = %s; want challengeUnresolved on cancellation", state)
	}
}
