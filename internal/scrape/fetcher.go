// Package scrape fetches psyfinder profile pages and heuristically extracts
// structured fields from them.
package scrape

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

const (
	// BaseURL is the fixed profile path; the slug is appended verbatim.
	BaseURL = "https://www.psychologie.ch/en/psyfinder/"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

	profileTimeout = 10 * time.Second
)

// Fetcher downloads one profile page at a time. One fetch blocks until the
// response arrives or times out; the caller owns pacing between fetches.
type Fetcher struct {
	logger *slog.Logger
}

func NewFetcher(logger *slog.Logger) *Fetcher {
	return &Fetcher{logger: logger}
}

// ProfileURL returns the full page URL for a slug.
func ProfileURL(slug string) string {
	return BaseURL + slug
}

// ProfilePage fetches and parses the profile page for a slug. A timeout or
// non-2xx status comes back as an error; the caller treats it as a soft,
// per-record failure.
func (f *Fetcher) ProfilePage(slug string) (*goquery.Document, error) {
	url := ProfileURL(slug)

	c := colly.NewCollector(
		colly.AllowedDomains("www.psychologie.ch", "psychologie.ch"),
		colly.UserAgent(userAgent),
		colly.AllowURLRevisit(),
	)
	c.SetRequestTimeout(profileTimeout)

	var (
		doc      *goquery.Document
		parseErr error
	)
	c.OnResponse(func(r *colly.Response) {
		doc, parseErr = goquery.NewDocumentFromReader(bytes.NewReader(r.Body))
	})

	if err := c.Visit(url); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	if parseErr != nil {
		return nil, fmt.Errorf("parse %s: %w", url, parseErr)
	}
	if doc == nil {
		return nil, fmt.Errorf("no response body for %s", url)
	}
	return doc, nil
}
