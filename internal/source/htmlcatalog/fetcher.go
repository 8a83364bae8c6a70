package htmlcatalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chromedp/chromedp"
	"golang.org/x/net/html/charset"

	"tcgprice/internal/config"
)

// Fetcher returns the HTML of a page.
type Fetcher interface {
	Fetch(ctx context.Context, pageURL string) (string, error)
}

// StatusError reports a non-200 response.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
}

// HTTPFetcher downloads pages with a plain HTTP GET and decodes them to UTF-8.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
}

// NewHTTPFetcher constructs a fetcher with the given request timeout.
func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ja,en-US;q=0.8,en;q=0.6")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
		return "", &StatusError{URL: pageURL, StatusCode: resp.StatusCode}
	}

	// Many shop sites still serve Shift_JIS or EUC-JP.
	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", pageURL, err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", pageURL, err)
	}
	return string(body), nil
}

// BrowserFetcher renders pages in headless Chrome for catalogs that build
// their listings with JavaScript.
type BrowserFetcher struct {
	execPath  string
	userAgent string
	timeout   time.Duration
	wait      time.Duration
}

// NewBrowserFetcher constructs a headless Chrome fetcher. An empty execPath
// lets chromedp find the browser.
func NewBrowserFetcher(execPath, userAgent string, timeout, wait time.Duration) *BrowserFetcher {
	return &BrowserFetcher{execPath: execPath, userAgent: userAgent, timeout: timeout, wait: wait}
}

// Fetch implements Fetcher.
func (f *BrowserFetcher) Fetch(ctx context.Context, pageURL string) (string, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
	)
	if f.userAgent != "" {
		opts = append(opts, chromedp.UserAgent(f.userAgent))
	}
	if f.execPath != "" {
		opts = append(opts, chromedp.ExecPath(f.execPath))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()
	runCtx, cancel := context.WithTimeout(browserCtx, f.timeout)
	defer cancel()

	var html string
	if err := chromedp.Run(runCtx,
		chromedp.Navigate(pageURL),
		chromedp.WaitVisible(`body`, chromedp.ByQuery),
		chromedp.Sleep(f.wait),
		chromedp.OuterHTML(`html`, &html, chromedp.ByQuery),
	); err != nil {
		return "", fmt.Errorf("render %s: %w", pageURL, err)
	}
	return html, nil
}

// NewFetcher returns the fetcher matching a source's render mode.
func NewFetcher(sc config.Scraper, render string) Fetcher {
	if render == "browser" {
		return NewBrowserFetcher(
			sc.ChromePath,
			sc.UserAgent,
			time.Duration(sc.BrowserTimeout)*time.Second,
			time.Duration(sc.BrowserWaitSeconds)*time.Second,
		)
	}
	return NewHTTPFetcher(time.Duration(sc.RequestTimeout)*time.Second, sc.UserAgent)
}
