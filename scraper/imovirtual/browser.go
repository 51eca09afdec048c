package imovirtual

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/chromedp/chromedp"

	"imoscraper/utils"
)

// Browser owns the chromedp exec allocator shared by all navigations of a
// run. It is an explicitly acquired resource: callers must Close it on
// every exit path.
type Browser struct {
	allocCtx    context.Context
	cancelAlloc context.CancelFunc
	cancelCtx   context.CancelFunc
	navTimeout  time.Duration
	logger      *utils.Logger
}

// NewBrowser starts a headless browser allocator. The user agent and the
// automation-control flag are overridden so the session profiles like a
// regular desktop visitor.
func NewBrowser(chromeBin string, navTimeout time.Duration, logger *utils.Logger) (*Browser, error) {
	bin := chromeBin
	if bin == "" {
		bin = findChromeBinary()
	}
	logger.Info("[browser] Using browser binary: %s", bin)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("lang", "pt-PT"),
		chromedp.UserAgent("Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 "+
			"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)
	if bin != "" {
		opts = append(opts, chromedp.ExecPath(bin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)

	// Suppress chromedp log noise
	silentCtx, cancelSilent := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	return &Browser{
		allocCtx:    silentCtx,
		cancelAlloc: cancelAlloc,
		cancelCtx:   cancelSilent,
		navTimeout:  navTimeout,
		logger:      logger,
	}, nil
}

// Close releases the browser allocator and every tab opened from it.
func (b *Browser) Close() {
	b.cancelCtx()
	b.cancelAlloc()
}

// Open navigates a fresh tab to url and returns its page handle. The
// navigation is bounded by the configured timeout; the caller owns the
// returned page and must Close it.
func (b *Browser) Open(ctx context.Context, url string) (PageHandle, error) {
	tabCtx, cancelTab := chromedp.NewContext(b.allocCtx)
	runCtx, cancelTimeout := context.WithTimeout(tabCtx, b.navTimeout)

	// Propagate caller cancellation into the tab.
	stop := context.AfterFunc(ctx, cancelTimeout)

	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		stop()
		cancelTimeout()
		cancelTab()
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}

	return &browserPage{
		ctx: runCtx,
		close: func() {
			stop()
			cancelTimeout()
			cancelTab()
		},
	}, nil
}

// browserPage is one rendered tab. All interaction goes through JS
// evaluation rather than CDP node queries so a missing element is an
// answer, not a timeout.
type browserPage struct {
	ctx   context.Context
	close func()
}

func (p *browserPage) Close() { p.close() }

// Content returns the current serialized document.
func (p *browserPage) Content() (string, error) {
	var html string
	if err := chromedp.Run(p.ctx, chromedp.OuterHTML("html", &html)); err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	return html, nil
}

// ClickFirst tries each selector in order and clicks the first one present
// and visible. Returns whether anything was clicked.
func (p *browserPage) ClickFirst(selectors []string) (bool, error) {
	for _, sel := range selectors {
		var clicked bool
		js := fmt.Sprintf(`
			(function() {
				var el = document.querySelector(%q);
				if (el && el.offsetParent !== null) { el.click(); return true; }
				return false;
			})()
		`, sel)
		if err := chromedp.Run(p.ctx, chromedp.Evaluate(js, &clicked)); err != nil {
			return false, fmt.Errorf("click %q: %w", sel, err)
		}
		if clicked {
			return true, nil
		}
	}
	return false, nil
}

// ScrollThrough performs a staged scroll to the bottom of the page in the
// given number of steps, pausing between steps. This triggers lazy-loaded
// content and resembles a human scanning the results.
func (p *browserPage) ScrollThrough(steps int, pause time.Duration) error {
	for i := 1; i <= steps; i++ {
		js := fmt.Sprintf(`window.scrollTo(0, document.body.scrollHeight * %d / %d)`, i, steps)
		if err := chromedp.Run(p.ctx,
			chromedp.Evaluate(js, nil),
			chromedp.Sleep(pause),
		); err != nil {
			return fmt.Errorf("scroll step %d: %w", i, err)
		}
	}
	return nil
}

// findChromeBinary locates a Chrome/Chromium binary on the host.
func findChromeBinary() string {
	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
