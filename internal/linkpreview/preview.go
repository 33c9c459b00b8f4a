// Package linkpreview fetches promotion links and extracts the metadata a
// reviewer needs to judge them without leaving the dashboard.
package linkpreview

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

const maxDescriptionLen = 300

type Preview struct {
	Platform    string    `json:"platform"`
	URL         string    `json:"url"`
	Title       string    `json:"title,omitempty"`
	Description string    `json:"description,omitempty"`
	Image       string    `json:"image,omitempty"`
	SiteName    string    `json:"site_name,omitempty"`
	Error       string    `json:"error,omitempty"`
	FetchedAt   time.Time `json:"fetched_at"`
}

type Fetcher struct {
	httpClient *http.Client
	log        *zap.Logger
	maxRetries int
	backoff    time.Duration
}

func NewFetcher(timeoutMS, maxRetries int, log *zap.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: time.Duration(timeoutMS) * time.Millisecond,
		},
		log:        log,
		maxRetries: maxRetries,
		backoff:    500 * time.Millisecond,
	}
}

// Fetch loads url and parses its Open Graph and HTML metadata. Failed
// attempts are retried with a linear backoff.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Preview, error) {
	var doc *goquery.Document
	var lastErr error

	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt) * f.backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")

		resp, err := f.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
			continue
		}

		doc, err = goquery.NewDocumentFromReader(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		lastErr = nil
		break
	}

	if lastErr != nil {
		f.log.Debug("link preview failed", zap.String("url", url), zap.Error(lastErr))
		return nil, lastErr
	}

	return parse(doc, url), nil
}

// FetchAll previews every platform link. Per-link failures are recorded on
// the item and never abort the batch.
func (f *Fetcher) FetchAll(ctx context.Context, links map[string]string) []Preview {
	previews := make([]Preview, 0, len(links))
	for platform, url := range links {
		p, err := f.Fetch(ctx, url)
		if err != nil {
			previews = append(previews, Preview{Platform: platform, URL: url, Error: err.Error(), FetchedAt: time.Now()})
			continue
		}
		p.Platform = platform
		previews = append(previews, *p)
	}
	return previews
}

func parse(doc *goquery.Document, url string) *Preview {
	p := &Preview{URL: url, FetchedAt: time.Now()}

	p.Title = firstNonEmpty(meta(doc, "og:title"), meta(doc, "twitter:title"), doc.Find("title").First().Text())
	p.Description = firstNonEmpty(meta(doc, "og:description"), meta(doc, "twitter:description"), meta(doc, "description"))
	p.Image = firstNonEmpty(meta(doc, "og:image"), meta(doc, "twitter:image"))
	p.SiteName = meta(doc, "og:site_name")

	p.Description = truncate(p.Description, maxDescriptionLen)
	return p
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// meta reads <meta property=name> or <meta name=name>.
func meta(doc *goquery.Document, name string) string {
	var value string
	doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		prop, _ := s.Attr("property")
		n, _ := s.Attr("name")
		if !strings.EqualFold(prop, name) && !strings.EqualFold(n, name) {
			return true
		}
		value, _ = s.Attr("content")
		return false
	})
	return strings.TrimSpace(value)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
