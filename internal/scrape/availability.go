package scrape

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
)

const probeTimeout = 5 * time.Second

var availabilityLabelRe = regexp.MustCompile(`(?i)Availability`)

// AvailabilityClient scrapes the availability badge from a profile page and
// runs lightweight existence probes during failed-URL analysis.
type AvailabilityClient struct {
	pages  *resty.Client
	probes *resty.Client
}

func NewAvailabilityClient() *AvailabilityClient {
	return &AvailabilityClient{
		pages: resty.New().
			SetTimeout(profileTimeout).
			SetHeader("User-Agent", userAgent),
		probes: resty.New().
			SetTimeout(probeTimeout).
			SetHeader("User-Agent", userAgent),
	}
}

// AvailabilityText fetches a profile URL and extracts the availability
// badge text. A page without the badge returns "", nil; transport failures
// return an error.
func (c *AvailabilityClient) AvailabilityText(ctx context.Context, url string) (string, error) {
	res, err := c.pages.R().SetContext(ctx).Get(url)
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", url, err)
	}
	if !res.IsSuccess() {
		return "", fmt.Errorf("fetch %s: status %d", url, res.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewBuffer(res.Body()))
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", url, err)
	}
	return extractAvailability(doc), nil
}

// extractAvailability looks inside the availability flex row for a badge
// div, then falls back to walking from the "Availability" label.
func extractAvailability(doc *goquery.Document) string {
	var text string
	doc.Find("div.d-flex.align-items-start div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if class, ok := s.Attr("class"); ok && strings.Contains(class, "bg-pumpkin-500") {
			text = textOf(s)
			return false
		}
		return true
	})
	if text != "" {
		return text
	}

	page := NewPage(doc)
	label := page.FindByText("", availabilityLabelRe)
	if label.Length() == 0 {
		return ""
	}
	next := label.Parent().NextAllFiltered("div").First()
	if next.Length() == 0 {
		return ""
	}
	if class, ok := next.Attr("class"); ok && strings.Contains(class, "bg-pumpkin-500") {
		return textOf(next)
	}
	return ""
}

// Probe issues a HEAD request with the short timeout and reports the status
// code; used to validate constructed URLs without downloading pages.
func (c *AvailabilityClient) Probe(ctx context.Context, url string) (int, error) {
	res, err := c.probes.R().SetContext(ctx).Head(url)
	if err != nil {
		return 0, fmt.Errorf("probe %s: %w", url, err)
	}
	return res.StatusCode(), nil
}
