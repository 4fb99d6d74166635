package scrape

import (
	"log/slog"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"psychscraper/internal/model"
)

// Identity is what is already known about a profile before its page is
// fetched.
type Identity struct {
	ID        int64
	UserID    int64
	FirstName string
	LastName  string
	URL       string
}

// Extractor turns a parsed profile page into scraped fields. Every field is
// tried independently with an ordered list of strategies; a field that
// cannot be located is simply absent from the result. Extract never fails.
type Extractor struct {
	maxServices  int
	maxLanguages int
	logger       *slog.Logger
}

func NewExtractor(maxServices, maxLanguages int, logger *slog.Logger) *Extractor {
	return &Extractor{
		maxServices:  maxServices,
		maxLanguages: maxLanguages,
		logger:       logger,
	}
}

var (
	nameTitleClassRe = regexp.MustCompile(`(?i)name|title`)
	practiceRe       = regexp.MustCompile(`(?i)Praxis|Practice|Cabinet|Studio`)

	streetRe      = regexp.MustCompile(`(?i)strasse|straße|weg|platz|rue|avenue|via|street|road`)
	addressLineRe = regexp.MustCompile(`([A-Za-zäöüÄÖÜ\s]+\d{1,3}[A-Za-zäöüÄÖÜ\s]*),\s*(\d{4})\s+([A-Za-zäöüÄÖÜ\s]+)`)
	dupCommaRe    = regexp.MustCompile(`,\s*,`)

	phoneRe      = regexp.MustCompile(`\+?41[\s\-./]?\d(?:[\s\-./]?\d){7,10}`)
	phoneStripRe = regexp.MustCompile(`[^+\d]`)

	onlineSessionsRe = regexp.MustCompile(`(?i)Online sessions?`)
	availStatusRe    = regexp.MustCompile(`(?i)(Available|Unavailable)`)

	avatarClassRe = regexp.MustCompile(`(?i)br-16px|profile|avatar`)

	fspTitleRe = regexp.MustCompile(`(?i)Fachpsychologin|Fachpsychologe|Eidgenössisch`)

	specLabelRe   = regexp.MustCompile(`(?i)Specialisation`)
	specKeywordRe = regexp.MustCompile(`(?i)therapie|psychologie|systemisch|hypnose|cognitive|behavioral|trauma`)
	nonWordRe     = regexp.MustCompile(`[^\w\s]`)

	aboutHeaderRe = regexp.MustCompile(`(?i)about me|über mich|à propos|biographie`)

	offerLabelRe        = regexp.MustCompile(`(?i)Offer`)
	offerClassRe        = regexp.MustCompile(`(?i)content|services|offer`)
	capitalizedPhraseRe = regexp.MustCompile(`\b[A-Z][a-z]+(?:\s+[a-z]+){0,3}\b`)
	connectorSplitRe    = regexp.MustCompile(`\s+and\s+|\s+or\s+`)

	targetGroupsLabelRe = regexp.MustCompile(`(?i)Target groups`)
	languagesLabelRe    = regexp.MustCompile(`(?i)Languages`)
	billingLabelRe      = regexp.MustCompile(`(?i)Billing`)
	camelBoundaryRe     = regexp.MustCompile(`([a-z])([A-Z])`)
)

// serviceBoundaryRe marks where run-on service text breaks into separate
// entries ("Depression Panic attacks and anxiety Burnout").
var serviceBoundaryRe = regexp.MustCompile(strings.Join([]string{
	"Unemployment", "Work stoppage", "Dissatisfaction", "Bulling", "Psychosocial",
	"Relationship", "Divorce", "Family", "Gender", "Sexual", "Retirement",
	"Loneliness", "Behavioural", "Substance", "Food", "Stress", "Bereavement",
	"Suicidal", "Existential", "Sleep", "Chronic", "Depression", "Panic",
	"Burnout", "Self-esteem",
}, "|"))

var serviceKeywords = []string{
	"Unemployment", "Work stoppage", "Dissatisfaction with job", "Bullying", "Psychosocial risks",
	"Relationship problems", "Divorce", "Separation", "Family problems", "Gender identity",
	"Sexual orientation", "Retirement", "Loneliness", "Behavioural addictions", "Substance addictions",
	"Food-related problems", "Behavioural problems", "Stress related to learning", "Bullying/harassment",
	"Bereavement", "Suicidal thoughts", "Stress", "Existential crisis", "Sleep-related problems",
	"Chronic pain", "Depression", "Panic attacks", "Anxiety", "Burnout", "Self-esteem",
}

var serviceKeywordRes = compileWordPatterns(serviceKeywords)

var fallbackServiceTerms = []string{
	"Depression", "Anxiety", "Therapy", "Counseling", "Psychotherapy", "Burnout",
	"Stress", "Trauma", "Divorce", "Bereavement", "Panic attacks",
}

var fallbackServiceRes = compileWordPatterns(fallbackServiceTerms)

// serviceNoiseTerms are nav/legal boilerplate phrases that leak into
// keyword scans of the surrounding page chrome.
var serviceNoiseTerms = []string{
	"offer", "services", "and", "with", "for", "the", "to", "of", "in", "at", "by", "on",
	"greater protection for patients", "the role of the", "who pays what", "rights", "online intervention",
	"training", "formapsy", "how to obtain", "qualification", "postgraduate", "become a member",
	"registration", "next", "fsp", "federation", "about us", "affiliated institutions", "working at",
	"job offers", "contact", "declaration", "confidentiality", "terms and conditions", "impressum",
}

var specExcludeTerms = []string{
	"http", "https", "var ", "function", "redirect", "role of the fsp",
	"psychologie.ch", "afp.psychologie.ch", "gtm.", "google", "facebook",
}

var specConfirmTerms = []string{
	"therapie", "psychologie", "systemisch", "hypnose", "trauma",
	"kognitiv", "behavioral", "psychoanalyse", "gestalt", "familie",
}

var bioIndicatorTerms = []string{
	"born", "trained", "studied", "worked", "experience", "therapist", "psychologist",
	"university", "degree", "practice", "clinic", "hospital", "i ", "je ", "my ",
	"worked as", "specialized in",
}

var bioSectionTerms = []string{"billing", "offer", "languages", "telephone", "email"}

var bioFallbackSectionTerms = []string{
	"billing", "offer", "languages", "telephone", "email", "website", "address",
}

var bioFirstPersonTerms = []string{"i ", "je ", "my ", "me ", "born", "trained", "studied", "worked"}

var languageTerms = []string{"German", "French", "Italian", "English", "Swiss German"}

var languageHeaderWords = map[string]bool{
	"Languages": true, "Sprachen": true, "Langues": true, "Lingue": true,
}

var billingKeywordRes = compilePatterns([]string{
	"covered by", "supplementary", "basic insurance", "paid by yourself",
})

func compileWordPatterns(terms []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(terms))
	for i, t := range terms {
		out[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(t) + `\b`)
	}
	return out
}

func compilePatterns(terms []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(terms))
	for i, t := range terms {
		out[i] = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(t))
	}
	return out
}

// Extract runs every field strategy over the page and returns the fields
// that yielded a value, plus the identity echo. A failing field is logged
// and skipped; it never aborts the remaining fields.
func (e *Extractor) Extract(id Identity, doc *goquery.Document) model.Profile {
	page := NewPage(doc)
	out := model.Profile{
		"id":        id.ID,
		"user_id":   id.UserID,
		"firstname": id.FirstName,
		"lastname":  id.LastName,
		"url":       id.URL,
	}

	e.field(out, "full_name", func() (any, bool) { return extractFullName(page) })
	e.field(out, "practice_name", func() (any, bool) { return extractPracticeName(page) })
	e.field(out, "address", func() (any, bool) { return extractAddress(page) })
	e.field(out, "phone", func() (any, bool) { return extractPhone(page) })
	e.field(out, "email", func() (any, bool) { return extractEmail(page) })
	e.field(out, "website", func() (any, bool) { return extractWebsite(page) })
	e.field(out, "online_sessions", func() (any, bool) { return extractOnlineSessions(page) })
	e.field(out, "profile_image", func() (any, bool) { return extractProfileImage(page, id) })
	e.field(out, "fsp_titles", func() (any, bool) { return listValue(extractFSPTitles(page)) })
	e.field(out, "specialisations", func() (any, bool) { return listValue(extractSpecialisations(page)) })
	e.field(out, "about_me", func() (any, bool) { return extractAboutMe(page) })
	e.field(out, "offer", func() (any, bool) { return listValue(e.extractOffer(page)) })
	e.field(out, "target_groups", func() (any, bool) { return listValue(extractTargetGroups(page)) })
	e.field(out, "languages", func() (any, bool) { return listValue(e.extractLanguages(page)) })
	e.field(out, "billing", func() (any, bool) { return listValue(extractBilling(page)) })

	return out
}

// field guards one strategy chain; heuristics over arbitrary HTML are not
// allowed to take the rest of the extraction down with them.
func (e *Extractor) field(out model.Profile, name string, fn func() (any, bool)) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("field extraction failed", "field", name, "panic", r)
		}
	}()
	if v, ok := fn(); ok {
		out[name] = v
	}
}

func listValue(values []string) (any, bool) {
	if len(values) == 0 {
		return nil, false
	}
	return values, true
}

func extractFullName(page *Page) (string, bool) {
	if name := textOf(page.Find("h1").First()); name != "" {
		return name, true
	}
	if s := page.FindByClass("*", nameTitleClassRe); s.Length() > 0 {
		if name := textOf(s); name != "" {
			return name, true
		}
	}
	return "", false
}

func extractPracticeName(page *Page) (string, bool) {
	s := page.FindByText("", practiceRe)
	if s.Length() == 0 {
		return "", false
	}
	switch goquery.NodeName(s) {
	case "h2", "h3", "div", "p":
		return textOf(s), true
	}
	return ownText(s), true
}

func extractAddress(page *Page) (string, bool) {
	var address string
	page.EachByText("div, p, span", streetRe, func(s *goquery.Selection) {
		if address != "" {
			return
		}
		text := textOf(s)
		if len(text) > 10 && !strings.HasPrefix(text, "(") &&
			!strings.Contains(strings.ToLower(text), "function") {
			address = text
		}
	})

	if address == "" {
		if m := addressLineRe.FindStringSubmatch(page.FullText()); m != nil {
			address = strings.TrimSpace(m[1]) + ", " + m[2] + " " + strings.TrimSpace(m[3])
		}
	}
	if address == "" {
		return "", false
	}

	address = normalizeSpace(address)
	address = dupCommaRe.ReplaceAllString(address, ",")
	return address, true
}

func extractPhone(page *Page) (string, bool) {
	match := phoneRe.FindString(page.FullText())
	if match == "" {
		return "", false
	}
	phone := phoneStripRe.ReplaceAllString(match, "")
	if len(phone) < 10 {
		return "", false
	}
	return phone, true
}

func extractEmail(page *Page) (string, bool) {
	href, ok := page.Find(`a[href^="mailto:"]`).First().Attr("href")
	if !ok {
		return "", false
	}
	return strings.TrimPrefix(href, "mailto:"), true
}

func extractWebsite(page *Page) (string, bool) {
	var website string
	page.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href, _ := s.Attr("href")
		if strings.HasPrefix(href, "http") && !strings.Contains(href, "psychologie.ch") {
			website = href
			return false
		}
		return true
	})
	return website, website != ""
}

func extractOnlineSessions(page *Page) (string, bool) {
	label := page.FindByText("", onlineSessionsRe)
	if label.Length() > 0 {
		if m := availStatusRe.FindStringSubmatch(textOf(label)); m != nil {
			return strings.ToLower(m[1]), true
		}
		context := label
		if goquery.NodeName(label) != "div" {
			context = label.ParentsFiltered("div").First()
		}
		if context.Length() > 0 {
			if m := availStatusRe.FindStringSubmatch(textOf(context)); m != nil {
				return strings.ToLower(m[1]), true
			}
		}
	}

	// Last resort: the whole page text.
	text := page.FullText()
	if onlineSessionsRe.MatchString(text) {
		if strings.Contains(text, "Unavailable") {
			return "unavailable", true
		}
		if strings.Contains(text, "Available") {
			return "available", true
		}
	}
	return "", false
}

func extractProfileImage(page *Page, id Identity) (string, bool) {
	if img := page.FindByClass("img", avatarClassRe); img.Length() > 0 {
		if src, ok := img.Attr("src"); ok && src != "" {
			return src, true
		}
	}

	nameRe := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(id.FirstName) + `|` + regexp.QuoteMeta(id.LastName))
	var src string
	page.Find("img[alt]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		alt, _ := s.Attr("alt")
		if nameRe.MatchString(alt) {
			if v, ok := s.Attr("src"); ok && v != "" {
				src = v
				return false
			}
		}
		return true
	})
	return src, src != ""
}

func extractFSPTitles(page *Page) []string {
	var titles []string
	seen := make(map[string]bool)
	page.EachByText("", fspTitleRe, func(s *goquery.Selection) {
		title := textOf(s)
		// Anything longer is a surrounding block, not a title.
		if title == "" || len(title) >= 200 || seen[title] {
			return
		}
		seen[title] = true
		titles = append(titles, title)
	})
	return titles
}

func extractSpecialisations(page *Page) []string {
	var specs []string

	if label := page.FindByText("", specLabelRe); label.Length() > 0 {
		container := nextSiblingMatching(label, "div, p")
		if container.Length() > 0 {
			text := textOf(container)
			if len(text) > 10 && len(text) < 1000 {
				text = strings.Trim(text, `"'`)
				if text != "" {
					specs = append(specs, text)
				}
			}
		}
	}

	// Supplemental scan over therapy-domain keywords, bounded to the first
	// few matching elements to avoid boilerplate spam.
	examined := 0
	page.EachByText("p, div", specKeywordRe, func(s *goquery.Selection) {
		if examined >= 3 {
			return
		}
		examined++
		text := textOf(s)
		lower := strings.ToLower(text)
		if len(text) <= 15 || len(text) >= 200 {
			return
		}
		if containsAny(lower, specExcludeTerms) || !containsAny(lower, specConfirmTerms) {
			return
		}
		specs = append(specs, text)
	})

	// Deduplicate on a punctuation-free lowercase key, cap at 3.
	var unique []string
	seen := make(map[string]bool)
	for _, spec := range specs {
		key := strings.TrimSpace(nonWordRe.ReplaceAllString(strings.ToLower(spec), ""))
		if len(key) <= 10 || seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, spec)
		if len(unique) == 3 {
			break
		}
	}
	return unique
}

func extractAboutMe(page *Page) (string, bool) {
	var found string

	page.EachByText("h2, h3, h4, div, strong", aboutHeaderRe, func(header *goquery.Selection) {
		if found != "" {
			return
		}
		if next := nextSiblingMatching(header, "p, div"); next.Length() > 0 {
			text := textOf(next)
			if isBiography(text, 50, 3000) && containsAny(strings.ToLower(text), bioIndicatorTerms) {
				found = text
				return
			}
		}

		// The header's section may hold the biography as following sibling
		// paragraphs instead of one block.
		parent := goquery.NodeName(header.Parent())
		if parent != "div" && parent != "section" {
			return
		}
		var parts []string
		header.NextAllFiltered("p, div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if text := textOf(s); len(text) > 20 {
				parts = append(parts, text)
			}
			return len(parts) < 3
		})
		if combined := strings.Join(parts, " "); len(combined) > 100 {
			found = combined
		}
	})

	if found == "" {
		page.Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			text := textOf(s)
			lower := strings.ToLower(text)
			if len(text) <= 80 || len(text) >= 2000 ||
				strings.HasPrefix(text, "http") || strings.Contains(lower, "var ") {
				return true
			}
			if s.ParentsFiltered("ul, ol, table, header, nav").Length() > 0 {
				return true
			}
			if containsAny(lower, bioFallbackSectionTerms) {
				return true
			}
			if !containsAny(lower, bioFirstPersonTerms) {
				return true
			}
			if strings.HasPrefix(lower, "news") || strings.HasPrefix(lower, "psychologists") ||
				strings.HasPrefix(lower, "psyfinder") {
				return true
			}
			found = text
			return false
		})
	}

	if found == "" {
		return "", false
	}
	found = strings.Trim(normalizeSpace(found), ".,;:- ")
	return truncateRunes(found, 3000), true
}

func isBiography(text string, minLen, maxLen int) bool {
	if len(text) <= minLen || len(text) >= maxLen {
		return false
	}
	if strings.HasPrefix(text, "http") || strings.Contains(strings.ToLower(text), "var ") {
		return false
	}
	return !containsAny(text, bioSectionTerms)
}

func (e *Extractor) extractOffer(page *Page) []string {
	var services []string

	if label := page.FindByText("", offerLabelRe); label.Length() > 0 {
		container := nextSiblingMatching(label, "div, ul, p")
		if container.Length() > 0 {
			items := container.Find("li")
			if items.Length() > 0 {
				items.Each(func(_ int, li *goquery.Selection) {
					text := textOf(li)
					if len(text) > 2 && !strings.HasPrefix(text, "http") {
						services = append(services, text)
					}
				})
			} else if text := textOf(container); len(text) > 10 {
				services = append(services, splitServiceRunOn(text)...)
			}
		}
	}

	// A sparse result usually means the offer section is an unlabeled
	// content block; mine capitalized phrases out of those.
	if len(services) < 10 {
		page.EachByClass("div, section", offerClassRe, func(s *goquery.Selection) {
			text := textOf(s)
			lower := strings.ToLower(text)
			if len(text) <= 50 {
				return
			}
			if !strings.Contains(lower, "depression") && !strings.Contains(lower, "anxiety") &&
				!strings.Contains(lower, "therapy") && !strings.Contains(lower, "stress") {
				return
			}
			for _, candidate := range capitalizedPhraseRe.FindAllString(text, -1) {
				candidate = strings.TrimSpace(candidate)
				if len(candidate) > 3 && len(candidate) < 50 && !isSectionWord(candidate) {
					services = append(services, candidate)
				}
			}
		})
	}

	// Keyword presence scan fills in services the layout hid entirely.
	text := page.FullText()
	for i, re := range serviceKeywordRes {
		if re.MatchString(text) {
			services = append(services, serviceKeywords[i])
		}
	}

	cleaned := cleanServices(services, e.maxServices)
	if len(cleaned) > 0 {
		return cleaned
	}

	// Nothing survived cleaning: fall back to a minimal term scan.
	var fallback []string
	for i, re := range fallbackServiceRes {
		if re.MatchString(text) {
			fallback = append(fallback, fallbackServiceTerms[i])
		}
	}
	return fallback
}

// splitServiceRunOn breaks concatenated service text on the known service
// phrase boundaries, then splits leftover long phrases on connectors.
func splitServiceRunOn(text string) []string {
	var parts []string
	indices := serviceBoundaryRe.FindAllStringIndex(text, -1)
	prev := 0
	for _, idx := range indices {
		// Only break where a boundary phrase starts a new word.
		if idx[0] > prev && text[idx[0]-1] == ' ' {
			parts = append(parts, text[prev:idx[0]])
			prev = idx[0]
		}
	}
	parts = append(parts, text[prev:])

	var out []string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if len(part) <= 2 || strings.HasPrefix(part, "http") {
			continue
		}
		if len(strings.Fields(part)) <= 4 {
			out = append(out, part)
			continue
		}
		for _, sub := range connectorSplitRe.Split(part, -1) {
			if sub = strings.TrimSpace(sub); sub != "" {
				out = append(out, sub)
			}
		}
	}
	return out
}

func isSectionWord(s string) bool {
	switch strings.ToLower(s) {
	case "offer", "services", "target", "groups", "languages", "billing", "about", "specialisation":
		return true
	}
	return false
}

func cleanServices(services []string, limit int) []string {
	var cleaned []string
	seen := make(map[string]bool)
	for _, service := range services {
		service = strings.TrimSpace(service)
		if len(service) < 3 || len(service) > 100 || seen[service] {
			continue
		}
		lower := strings.ToLower(service)
		if isNoiseTerm(lower) {
			continue
		}
		seen[service] = true
		cleaned = append(cleaned, service)
		if limit > 0 && len(cleaned) == limit {
			break
		}
	}
	return cleaned
}

// isNoiseTerm matches stopwords exactly and boilerplate phrases as
// substrings; substring matching on short words would swallow real
// services ("Depression" contains "on").
func isNoiseTerm(lower string) bool {
	for _, noise := range serviceNoiseTerms {
		if lower == noise {
			return true
		}
		if len(noise) > 4 && strings.Contains(lower, noise) {
			return true
		}
	}
	return false
}

func extractTargetGroups(page *Page) []string {
	label := page.FindByText("", targetGroupsLabelRe)
	if label.Length() == 0 {
		return nil
	}
	container := nextSiblingMatching(label, "div, ul")
	if container.Length() == 0 {
		return nil
	}

	var groups []string
	for _, text := range listItemsOrText(container) {
		if len(text) > 2 && !strings.HasPrefix(text, "http") {
			groups = append(groups, text)
		}
		if len(groups) == 15 {
			break
		}
	}
	return groups
}

func (e *Extractor) extractLanguages(page *Page) []string {
	if label := page.FindByText("", languagesLabelRe); label.Length() > 0 {
		container := nextSiblingMatching(label, "div, ul")
		if container.Length() > 0 {
			var languages []string
			for _, text := range listItemsOrText(container) {
				if len(text) > 2 && !languageHeaderWords[text] {
					languages = append(languages, text)
				}
				if e.maxLanguages > 0 && len(languages) == e.maxLanguages {
					break
				}
			}
			if len(languages) > 0 {
				return languages
			}
		}
	}

	// Fallback: test the fixed national-language vocabulary against the
	// page text.
	var languages []string
	text := page.FullText()
	for _, lang := range languageTerms {
		re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(lang) + `\b`)
		if re.MatchString(text) {
			languages = append(languages, lang)
		}
	}
	return languages
}

func extractBilling(page *Page) []string {
	var billing []string

	if label := page.FindByText("", billingLabelRe); label.Length() > 0 {
		container := nextSiblingMatching(label, "div, ul, p")
		if container.Length() > 0 {
			if goquery.NodeName(container) == "ul" {
				container.Find("li").Each(func(_ int, li *goquery.Selection) {
					if text := textOf(li); len(text) > 3 {
						billing = append(billing, text)
					}
				})
			} else if text := textOf(container); text != "" {
				// Run-on blocks like "Covered by basic insuranceTo be paid
				// by yourself" get sentence breaks at case boundaries.
				text = camelBoundaryRe.ReplaceAllString(text, "$1. $2")
				billing = append(billing, normalizeSpace(text))
			}
		}
	}

	for _, re := range billingKeywordRes {
		page.EachByText("", re, func(s *goquery.Selection) {
			text := normalizeSpace(textOf(s))
			if len(text) > 10 {
				billing = append(billing, text)
			}
		})
	}

	var unique []string
	seen := make(map[string]bool)
	for _, b := range billing {
		if seen[b] {
			continue
		}
		seen[b] = true
		unique = append(unique, b)
		if len(unique) == 3 {
			break
		}
	}
	return unique
}

// listItemsOrText prefers <li> children and falls back to the container's
// bare text nodes.
func listItemsOrText(container *goquery.Selection) []string {
	items := container.Find("li")
	if items.Length() > 0 {
		var out []string
		items.Each(func(_ int, li *goquery.Selection) {
			if text := textOf(li); text != "" {
				out = append(out, text)
			}
		})
		return out
	}
	return textNodes(container)
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
