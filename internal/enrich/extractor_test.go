package enrich

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func articleHTML(title, body string) string {
	return `<!DOCTYPE html>
<html>
<head><title>` + title + `</title></head>
<body>
<article>
<h1>` + title + `</h1>
<p>` + body + `</p>
</article>
</body>
</html>`
}

func TestExtract_Success(t *testing.T) {
	body := strings.Repeat("A sentence about production planning. ", 20)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Mozilla") {
			t.Errorf("User-Agent = %q, want a browser-style UA", ua)
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articleHTML("Planning Deep Dive", body)))
	}))
	defer srv.Close()

	e := NewHTTPExtractor(5 * time.Second)
	brief, err := e.Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if brief.Title != "Planning Deep Dive" {
		t.Errorf("Title = %q, want %q", brief.Title, "Planning Deep Dive")
	}
	if !strings.Contains(brief.Excerpt, "production planning") {
		t.Errorf("Excerpt missing article text: %q", brief.Excerpt)
	}
}

func TestExtract_ExcerptCapped(t *testing.T) {
	body := strings.Repeat("word ", 3000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articleHTML("Long Read", body)))
	}))
	defer srv.Close()

	e := NewHTTPExtractor(5 * time.Second)
	brief, err := e.Extract(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	// maxExcerptLength runes plus the ellipsis.
	if got := len([]rune(brief.Excerpt)); got != maxExcerptLength+1 {
		t.Errorf("excerpt length = %d runes, want %d", got, maxExcerptLength+1)
	}
	if !strings.HasSuffix(brief.Excerpt, "…") {
		t.Error("capped excerpt should end with ellipsis")
	}
}

func TestDoExtract_RejectsShortContent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(articleHTML("Login", "Please sign in.")))
	}))
	defer srv.Close()

	e := NewHTTPExtractor(5 * time.Second)
	_, err := e.doExtract(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for near-empty page")
	}
}

func TestDoExtract_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	e := NewHTTPExtractor(5 * time.Second)
	_, err := e.doExtract(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Errorf("error = %v, want HTTP 403", err)
	}
}

func TestExtract_ContextCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	e := NewHTTPExtractor(5 * time.Second)
	start := time.Now()
	_, err := e.Extract(ctx, srv.URL)
	if err == nil {
		t.Fatal("expected error")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Extract held the retry loop for %v after cancellation", elapsed)
	}
}

func TestBriefText(t *testing.T) {
	tests := []struct {
		name  string
		brief Brief
		want  string
	}{
		{
			"title and excerpt",
			Brief{Title: "T", Excerpt: "body"},
			"T\n\nbody",
		},
		{
			"with author",
			Brief{Title: "T", Excerpt: "body", Author: "Jo"},
			"T\n\nbody\n\n— Jo",
		},
		{
			"excerpt only",
			Brief{Excerpt: "body"},
			"body",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.brief.Text(); got != tt.want {
				t.Errorf("Text() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNormalizeText(t *testing.T) {
	in := "  a   b\tc\n\n\n\nd  "
	want := "a b c\n\nd"
	if got := normalizeText(in); got != want {
		t.Errorf("normalizeText = %q, want %q", got, want)
	}
}
