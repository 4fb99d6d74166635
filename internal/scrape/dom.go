package scrape

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Page is the small DOM capability the extractor works against: find an
// element by its own text, walk to a following sibling of given tags, read
// text. Keeping the strategies on this surface keeps them independent of
// the parser underneath.
type Page struct {
	doc      *goquery.Document
	fullText string
}

func NewPage(doc *goquery.Document) *Page {
	return &Page{doc: doc}
}

// ownText concatenates the direct text-node children of the first element
// in the selection, excluding descendant element text. This mirrors
// matching on a text node and taking its parent.
func ownText(s *goquery.Selection) string {
	if len(s.Nodes) == 0 {
		return ""
	}
	var b strings.Builder
	for n := s.Nodes[0].FirstChild; n != nil; n = n.NextSibling {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
	}
	return strings.TrimSpace(b.String())
}

// FindByText returns the first element (optionally restricted to a tag
// selector) whose own text matches the pattern. The result may be empty.
func (p *Page) FindByText(tags string, pattern *regexp.Regexp) *goquery.Selection {
	if tags == "" {
		tags = "*"
	}
	found := p.doc.Find("")
	p.doc.Find(tags).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if pattern.MatchString(ownText(s)) {
			found = s
			return false
		}
		return true
	})
	return found
}

// EachByText visits every element whose own text matches the pattern.
func (p *Page) EachByText(tags string, pattern *regexp.Regexp, fn func(*goquery.Selection)) {
	if tags == "" {
		tags = "*"
	}
	p.doc.Find(tags).Each(func(_ int, s *goquery.Selection) {
		if pattern.MatchString(ownText(s)) {
			fn(s)
		}
	})
}

// HasText reports whether the pattern occurs anywhere in the page text.
func (p *Page) HasText(pattern *regexp.Regexp) bool {
	return pattern.MatchString(p.FullText())
}

// FindByClass returns the first element of the tag selector whose class
// attribute matches the pattern.
func (p *Page) FindByClass(tags string, pattern *regexp.Regexp) *goquery.Selection {
	found := p.doc.Find("")
	p.doc.Find(tags).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if class, ok := s.Attr("class"); ok && pattern.MatchString(class) {
			found = s
			return false
		}
		return true
	})
	return found
}

// EachByClass visits every element of the tag selector whose class
// attribute matches the pattern.
func (p *Page) EachByClass(tags string, pattern *regexp.Regexp, fn func(*goquery.Selection)) {
	p.doc.Find(tags).Each(func(_ int, s *goquery.Selection) {
		if class, ok := s.Attr("class"); ok && pattern.MatchString(class) {
			fn(s)
		}
	})
}

// textNodes collects the non-empty text nodes beneath a selection, in
// document order. Used for label sections that carry bare text instead of
// list items.
func textNodes(s *goquery.Selection) []string {
	var out []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type == html.TextNode {
				if t := strings.TrimSpace(c.Data); t != "" {
					out = append(out, t)
				}
				continue
			}
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return out
}

// Find exposes a plain selector query.
func (p *Page) Find(selector string) *goquery.Selection {
	return p.doc.Find(selector)
}

// FullText returns the concatenated text of the whole document, computed
// once per page.
func (p *Page) FullText() string {
	if p.fullText == "" {
		p.fullText = p.doc.Text()
	}
	return p.fullText
}

// nextSiblingMatching returns the first following sibling among the given
// tags, skipping siblings of other tags.
func nextSiblingMatching(s *goquery.Selection, tags string) *goquery.Selection {
	return s.NextAllFiltered(tags).First()
}

// textOf is the whitespace-trimmed text of a selection including its
// descendants.
func textOf(s *goquery.Selection) string {
	return strings.TrimSpace(s.Text())
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// normalizeSpace collapses whitespace runs into single spaces.
func normalizeSpace(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}
