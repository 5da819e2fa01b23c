package enrich

import "context"

// StubExtractor returns canned briefs. Used when outbound fetching is
// disabled and in tests.
type StubExtractor struct{}

func (e *StubExtractor) Extract(_ context.Context, url string) (*Brief, error) {
	return &Brief{
		Title:   "Reference: " + url,
		Excerpt: "Stub brief for " + url + ". Enable enrichment to fetch the real page.",
	}, nil
}
