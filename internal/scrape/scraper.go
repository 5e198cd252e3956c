// Package scrape fetches web pages and extracts visible text and metadata
// for prompt injection.
package scrape

import (
	"context"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/triptomat/trip-analyzer/internal/model"
)

const userAgent = "Mozilla/5.0 (compatible; TripBot/1.0)"

// maxBodyBytes caps how much of a page is read before parsing.
const maxBodyBytes = 1 << 20

// WebScraper fetches pages via net/http and parses them with goquery.
type WebScraper struct {
	client *http.Client
}

// Option configures the WebScraper.
type Option func(*WebScraper)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(s *WebScraper) {
		s.client = hc
	}
}

// New creates a WebScraper with sensible defaults.
func New(timeout time.Duration, opts ...Option) *WebScraper {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := &WebScraper{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExtractText returns the page's visible text with scripts, styles, and
// chrome elements removed and whitespace collapsed to single spaces.
func (s *WebScraper) ExtractText(ctx context.Context, url string) (string, error) {
	doc, err := s.fetch(ctx, url)
	if err != nil {
		return "", err
	}

	doc.Find("script, style, nav, footer, header").Remove()
	return strings.Join(strings.Fields(doc.Text()), " "), nil
}

// Metadata extracts the page title and representative image via Open Graph
// meta tags. Title falls back to the <title> tag, then empty string; image
// has no fallback.
func (s *WebScraper) Metadata(ctx context.Context, url string) (model.SourceMetadata, error) {
	doc, err := s.fetch(ctx, url)
	if err != nil {
		return model.SourceMetadata{}, err
	}

	title, _ := doc.Find(`meta[property="og:title"]`).Attr("content")
	if title == "" {
		title = doc.Find("title").First().Text()
	}

	image, _ := doc.Find(`meta[property="og:image"]`).Attr("content")

	return model.SourceMetadata{
		Title: strings.TrimSpace(title),
		Image: image,
	}, nil
}

// ResolveRedirect follows redirects to the canonical URL. On any failure it
// returns the input URL unchanged.
func (s *WebScraper) ResolveRedirect(ctx context.Context, url string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return url
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return url
	}
	defer resp.Body.Close() //nolint:errcheck
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))

	return resp.Request.URL.String()
}

// fetch retrieves a URL and parses it into a goquery document.
func (s *WebScraper) fetch(ctx context.Context, url string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: create request")
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "scrape: fetch")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("scrape: status %d for %s", resp.StatusCode, url)
	}

	doc, err := goquery.NewDocumentFromReader(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "scrape: parse html")
	}
	return doc, nil
}
