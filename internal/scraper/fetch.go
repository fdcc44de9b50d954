package scraper

import (
	"fmt"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"jmorrell/tyrescraper/pkg/errors"
)

const fetchUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// RateLimitedFetcher issues single HTTP GETs and enforces a minimum
// inter-request interval. The interval is measured from the completion of the
// previous request, so slow responses self-throttle the next call. It is not
// safe for concurrent use; the crawl is single-threaded by design.
type RateLimitedFetcher struct {
	client    *http.Client
	interval  time.Duration
	lastFetch time.Time
	metrics   *Metrics
}

// NewRateLimitedFetcher creates a fetcher with the given minimum gap between
// request completions. A nil client falls back to a default with a timeout.
func NewRateLimitedFetcher(interval time.Duration, client *http.Client, metrics *Metrics) *RateLimitedFetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &RateLimitedFetcher{
		client:   client,
		interval: interval,
		metrics:  metrics,
	}
}

// Fetch gets a URL and parses the body into a goquery document. A non-2xx
// response is a fetch error; there are no retries.
func (f *RateLimitedFetcher) Fetch(source Source, url string) (*goquery.Document, error) {
	if !f.lastFetch.IsZero() {
		if elapsed := time.Since(f.lastFetch); elapsed < f.interval {
			time.Sleep(f.interval - elapsed)
		}
	}

	f.metrics.IncRequest("fetch")

	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.NewFetch(string(source), url, "failed to create request", err)
	}
	req.Header.Set("User-Agent", fetchUserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		f.lastFetch = time.Now()
		return nil, errors.NewFetch(string(source), url, "request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		f.lastFetch = time.Now()
		return nil, errors.NewFetch(string(source), url,
			fmt.Sprintf("unexpected status code %d", resp.StatusCode), nil)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	f.lastFetch = time.Now()
	if err != nil {
		return nil, errors.NewFetch(string(source), url, "failed to parse response body", err)
	}
	return doc, nil
}
