// Package enrich fetches a content item's reference link and extracts a
// readable brief (title plus excerpt) for the writer to start from.
package enrich

import (
	"context"
	"fmt"
	"io"
	"net/http"
	nurl "net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/go-readability"
)

const (
	// maxExcerptLength caps the stored brief; a brief is a starting point,
	// not an archive of the source page.
	maxExcerptLength = 2000
	// minTextLength is the minimum content length to accept as a valid
	// extraction. Pages returning less are likely login walls, cookie walls,
	// or empty pages.
	minTextLength = 100
	// maxRetries is the number of fetch attempts before giving up.
	maxRetries = 3
	// maxBodySize is the maximum HTTP response body size (5MB).
	maxBodySize = 5 * 1024 * 1024
)

// Brief is the readable core of a reference page.
type Brief struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	Author  string `json:"author,omitempty"`
}

// Extractor turns a reference URL into a Brief.
type Extractor interface {
	Extract(ctx context.Context, url string) (*Brief, error)
}

// HTTPExtractor fetches web pages and extracts readable content using
// go-readability.
type HTTPExtractor struct {
	client *http.Client
}

// NewHTTPExtractor creates a new HTTP-based brief extractor.
func NewHTTPExtractor(timeout time.Duration) *HTTPExtractor {
	return &HTTPExtractor{
		client: &http.Client{Timeout: timeout},
	}
}

// Extract fetches the URL and extracts a brief with automatic retry.
func (e *HTTPExtractor) Extract(ctx context.Context, url string) (*Brief, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * 2 * time.Second
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		brief, err := e.doExtract(ctx, url)
		if err == nil {
			return brief, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
	return nil, fmt.Errorf("after %d attempts: %w", maxRetries, lastErr)
}

// doExtract performs a single extraction attempt.
func (e *HTTPExtractor) doExtract(ctx context.Context, url string) (*Brief, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	// Use a realistic browser User-Agent to avoid being blocked by sites.
	req.Header.Set("User-Agent", "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, url)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	parsedURL, _ := nurl.Parse(url)
	article, err := readability.FromReader(strings.NewReader(string(body)), parsedURL)
	if err != nil {
		return nil, fmt.Errorf("readability: %w", err)
	}

	text := normalizeText(article.TextContent)

	// Content quality validation: reject suspiciously short content.
	if utf8.RuneCountInString(text) < minTextLength {
		return nil, fmt.Errorf("extracted content too short (%d chars), possibly blocked or empty page", utf8.RuneCountInString(text))
	}

	if utf8.RuneCountInString(text) > maxExcerptLength {
		runes := []rune(text)
		text = string(runes[:maxExcerptLength]) + "…"
	}

	return &Brief{
		Title:   strings.TrimSpace(article.Title),
		Excerpt: text,
		Author:  strings.TrimSpace(article.Byline),
	}, nil
}

// Text renders the brief as the plain text stored on an item.
func (b Brief) Text() string {
	var sb strings.Builder
	if b.Title != "" {
		sb.WriteString(b.Title)
		sb.WriteString("\n\n")
	}
	sb.WriteString(b.Excerpt)
	if b.Author != "" {
		sb.WriteString("\n\n— ")
		sb.WriteString(b.Author)
	}
	return sb.String()
}

var multiSpace = regexp.MustCompile(`[ \t]+`)
var multiNewline = regexp.MustCompile(`\n{3,}`)

func normalizeText(s string) string {
	s = strings.TrimSpace(s)
	s = multiSpace.ReplaceAllString(s, " ")
	s = multiNewline.ReplaceAllString(s, "\n\n")
	return s
}
