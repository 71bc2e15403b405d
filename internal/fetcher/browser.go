package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"golang.org/x/time/rate"

	"github.com/IshaanNene/lorekeeper/internal/config"
	"github.com/IshaanNene/lorekeeper/internal/observability"
	"github.com/IshaanNene/lorekeeper/internal/types"
)

// BrowserFetcher implements Fetcher using a headless browser via Rod.
// It drives a single tab since the crawl is sequential.
type BrowserFetcher struct {
	browser    *rod.Browser
	page       *rod.Page
	cfg        *config.BrowserConfig
	timeout    time.Duration
	userAgents []string
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
	mu         sync.Mutex
}

// NewBrowserFetcher launches Chromium and opens the working tab.
func NewBrowserFetcher(ctx context.Context, cfg *config.Config, metrics *observability.Metrics, logger *slog.Logger) (*BrowserFetcher, error) {
	bf := &BrowserFetcher{
		cfg:        &cfg.Browser,
		timeout:    cfg.Fetcher.RequestTimeout,
		userAgents: cfg.Fetcher.UserAgents,
		limiter:    newLimiter(cfg.Fetcher.PolitenessDelay),
		metrics:    metrics,
		logger:     logger.With("component", "browser_fetcher"),
	}

	launchURL, err := bf.launchBrowser()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	bf.browser = browser

	var page *rod.Page
	if bf.cfg.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	if len(bf.userAgents) > 0 {
		err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: bf.userAgents[0]})
		if err != nil {
			bf.logger.Warn("failed to set user agent", "error", err)
		}
	}
	bf.page = page

	bf.logger.Info("browser fetcher ready", "stealth", bf.cfg.Stealth, "headless", bf.cfg.Headless)
	return bf, nil
}

// launchBrowser starts a Chromium instance with appropriate flags.
func (bf *BrowserFetcher) launchBrowser() (string, error) {
	l := launcher.New().
		Headless(bf.cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-blink-features", "AutomationControlled")

	if bf.cfg.Bin != "" {
		l = l.Bin(bf.cfg.Bin)
	}
	if bf.cfg.WindowSize != "" {
		l = l.Set("window-size", bf.cfg.WindowSize)
	}

	return l.Launch()
}

// Fetch navigates to loc and returns the rendered page content.
func (bf *BrowserFetcher) Fetch(ctx context.Context, loc types.Locator) (*types.Page, error) {
	if err := bf.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	bf.mu.Lock()
	defer bf.mu.Unlock()

	start := time.Now()
	bf.metrics.RequestsTotal.Add(1)
	page := bf.page.Context(ctx).Timeout(bf.timeout)
	defer page.CancelTimeout()

	// The main document's response carries the status code; sub-resources
	// are ignored. The listener ends when the timed context is cancelled.
	statusCh := make(chan int, 1)
	wait := page.EachEvent(func(e *proto.NetworkResponseReceived) bool {
		if e.Type != proto.NetworkResourceTypeDocument {
			return false
		}
		statusCh <- e.Response.Status
		return true
	})
	go wait()

	if err := page.Navigate(string(loc)); err != nil {
		return nil, &types.FetchError{URL: string(loc), Err: err, Retryable: ctx.Err() == nil && isTransientNavigationError(err)}
	}
	if err := page.WaitStable(bf.cfg.SettleTime); err != nil {
		bf.logger.Warn("page stability timeout, continuing", "url", string(loc), "error", err)
	}

	statusCode := http.StatusOK
	select {
	case statusCode = <-statusCh:
	default:
		bf.logger.Debug("document status not observed, assuming 200", "url", string(loc))
	}
	bf.metrics.ObserveStatus(statusCode)
	if err := statusError(loc, statusCode); err != nil {
		return nil, err
	}

	html, err := page.HTML()
	if err != nil {
		return nil, &types.FetchError{URL: string(loc), Err: err, Retryable: ctx.Err() == nil && isTransientNavigationError(err)}
	}

	finalURL := string(loc)
	if info, err := page.Info(); err == nil && info != nil {
		finalURL = info.URL
	}
	bf.metrics.BytesDownloaded.Add(int64(len(html)))

	duration := time.Since(start)
	bf.logger.Debug("browser fetch complete",
		"url", string(loc),
		"final_url", finalURL,
		"status", statusCode,
		"size", len(html),
		"duration", duration,
	)

	return types.NewRenderedPage(loc, statusCode, []byte(html), finalURL, duration), nil
}

// transientNetErrors are Chromium net error codes worth retrying.
var transientNetErrors = []string{
	"net::ERR_CONNECTION_RESET",
	"net::ERR_CONNECTION_REFUSED",
	"net::ERR_CONNECTION_CLOSED",
	"net::ERR_CONNECTION_ABORTED",
	"net::ERR_CONNECTION_TIMED_OUT",
	"net::ERR_TIMED_OUT",
	"net::ERR_EMPTY_RESPONSE",
	"net::ERR_NETWORK_CHANGED",
	"net::ERR_INTERNET_DISCONNECTED",
}

// isTransientNavigationError classifies a navigation failure. Chromium
// reports network errors as net::ERR_* text; anything unrecognised, such as
// an unresolvable host or an invalid URL, is terminal.
func isTransientNavigationError(err error) bool {
	if err == nil {
		return false
	}
	if isRetryableError(err) {
		return true
	}
	msg := err.Error()
	for _, code := range transientNetErrors {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}

// statusError maps a non-2xx document status to a FetchError: 429 and 5xx
// are transient, every other status is terminal.
func statusError(loc types.Locator, code int) error {
	if code >= 200 && code < 300 {
		return nil
	}
	return &types.FetchError{
		URL:        string(loc),
		StatusCode: code,
		Err:        fmt.Errorf("HTTP %d", code),
		Retryable:  code == http.StatusTooManyRequests || code >= 500,
	}
}

// Close shuts down the browser and releases resources.
func (bf *BrowserFetcher) Close() error {
	if bf.page != nil {
		_ = bf.page.Close()
	}
	if bf.browser != nil {
		return bf.browser.Close()
	}
	return nil
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}
