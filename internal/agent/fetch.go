package agent

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const defaultSnippetLimit = 2000

// MarketFetcher pulls the visible text of a reference web page so the
// product analyzer can ground its market analysis in something real.
type MarketFetcher struct {
	client       *http.Client
	snippetLimit int
}

// NewMarketFetcher creates a fetcher with a bounded request timeout.
func NewMarketFetcher() *MarketFetcher {
	return &MarketFetcher{
		client:       &http.Client{Timeout: 10 * time.Second},
		snippetLimit: defaultSnippetLimit,
	}
}

// FetchText retrieves the page and returns its text content with scripts,
// styles and extra whitespace stripped, capped at the snippet limit.
func (f *MarketFetcher) FetchText(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: unexpected status %d", pageURL, resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", pageURL, err)
	}

	doc.Find("script, style, noscript").Remove()
	text := strings.Join(strings.Fields(doc.Find("body").Text()), " ")

	if len(text) > f.snippetLimit {
		text = text[:f.snippetLimit]
	}
	return text, nil
}
