package scrape

import (
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func parsePage(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

const profileHTML = `<html><body>
<h1>Jean-François Briefer</h1>
<img class="br-16px" src="https://storage.psychologie.ch/avatar123.jpg" alt="Jean-François Briefer">
<div>Praxis am See</div>
<p>Seestrasse 12, 8002 Zürich</p>
<p>Telephone: +41 79 123 45 67</p>
<a href="mailto:jf.briefer@example.ch">Email</a>
<a href="https://www.psychologie.ch/en/about">About FSP</a>
<a href="https://www.praxis-briefer.ch">My practice site</a>
<div><span>Online sessions</span> <span>Available</span></div>
<div>Fachpsychologin für Psychotherapie FSP</div>
<div>Specialisation</div><p>Systemische Therapie und Hypnose für Erwachsene</p>
<h3>About me</h3>
<p>I trained as a psychologist at the University of Geneva and worked in a
clinic for many years before opening my own practice with a focus on adults.</p>
<div>Offer</div>
<ul><li>Depression</li><li>Panic attacks</li><li>Burnout</li></ul>
<div>Target groups</div>
<ul><li>Adults</li><li>Adolescents</li></ul>
<div>Languages</div>
<ul><li>French</li><li>German</li><li>English</li></ul>
<div>Billing</div>
<ul><li>Covered by supplementary insurance</li><li>To be paid by yourself</li></ul>
</body></html>`

func testIdentity() Identity {
	return Identity{
		ID:        570737,
		UserID:    99,
		FirstName: "Jean-François",
		LastName:  "Briefer",
		URL:       BaseURL + "jean-francois-briefer",
	}
}

func TestExtractFullProfile(t *testing.T) {
	doc := parsePage(t, profileHTML)
	e := NewExtractor(10, 10, testLogger())

	p := e.Extract(testIdentity(), doc)

	require.Equal(t, int64(570737), p["id"])
	require.Equal(t, "Jean-François Briefer", p.Str("full_name"))
	require.Equal(t, "+41791234567", p.Str("phone"))
	require.Equal(t, "jf.briefer@example.ch", p.Str("email"))
	require.Equal(t, "https://www.praxis-briefer.ch", p.Str("website"))
	require.Equal(t, "available", p.Str("online_sessions"))
	require.Equal(t, "https://storage.psychologie.ch/avatar123.jpg", p.Str("profile_image"))
	require.Equal(t, "Praxis am See", p.Str("practice_name"))
	require.Contains(t, p.Str("address"), "Seestrasse 12")

	offer := p.List("offer")
	require.Contains(t, offer, "Depression")
	require.Contains(t, offer, "Panic attacks")
	require.Contains(t, offer, "Burnout")

	require.Equal(t, []string{"Adults", "Adolescents"}, p.List("target_groups"))
	require.Equal(t, []string{"French", "German", "English"}, p.List("languages"))

	require.Contains(t, p.List("fsp_titles"), "Fachpsychologin für Psychotherapie FSP")
	require.NotEmpty(t, p.List("billing"))

	about := p.Str("about_me")
	require.Contains(t, about, "University of Geneva")
}

func TestExtractEmptyPage(t *testing.T) {
	doc := parsePage(t, "<html><body><p>Nothing here.</p></body></html>")
	e := NewExtractor(10, 10, testLogger())

	p := e.Extract(testIdentity(), doc)

	require.Equal(t, "", p.Str("phone"))
	require.Equal(t, "", p.Str("email"))
	require.Empty(t, p.List("target_groups"))
	// Identity echo survives even on an empty page.
	require.Equal(t, "Jean-François", p.Str("firstname"))
	require.Equal(t, "Briefer", p.Str("lastname"))
}

func TestExtractPhoneFormats(t *testing.T) {
	testCases := []struct {
		html string
		want string
	}{
		{"<p>+41 79 123 45 67</p>", "+41791234567"},
		{"<p>Tel. 041-123-45-67</p>", "411234567"},
		{"<p>+41791234567</p>", "+41791234567"},
	}
	for _, tc := range testCases {
		page := NewPage(parsePage(t, "<html><body>"+tc.html+"</body></html>"))
		got, ok := extractPhone(page)
		if len(tc.want) < 10 {
			require.False(t, ok, "html %q", tc.html)
			continue
		}
		require.True(t, ok, "html %q", tc.html)
		require.Equal(t, tc.want, got)
	}
}

func TestExtractOnlineSessionsUnavailable(t *testing.T) {
	doc := parsePage(t, `<html><body>
		<div><span>Online sessions</span><span>Unavailable</span></div>
	</body></html>`)
	got, ok := extractOnlineSessions(NewPage(doc))
	require.True(t, ok)
	require.Equal(t, "unavailable", got)
}

func TestExtractLanguagesFallback(t *testing.T) {
	doc := parsePage(t, `<html><body>
		<p>Consultations in German and French, English on request.</p>
	</body></html>`)
	e := NewExtractor(10, 10, testLogger())
	langs := e.extractLanguages(NewPage(doc))
	require.Contains(t, langs, "German")
	require.Contains(t, langs, "French")
	require.Contains(t, langs, "English")
	require.NotContains(t, langs, "Italian")
}

func TestSplitServiceRunOn(t *testing.T) {
	parts := splitServiceRunOn("Depression Panic attacks Burnout")
	require.Equal(t, []string{"Depression", "Panic attacks", "Burnout"}, parts)

	// Boundary words inside larger words must not split.
	parts = splitServiceRunOn("Stressful situations")
	require.Equal(t, []string{"Stressful situations"}, parts)
}

func TestCleanServices(t *testing.T) {
	got := cleanServices([]string{
		"Depression", " Depression ", "Burnout", "Job offers", "xx",
		strings.Repeat("a", 120),
	}, 2)
	require.Equal(t, []string{"Depression", "Burnout"}, got)
}

func TestProfileURL(t *testing.T) {
	require.Equal(t,
		"https://www.psychologie.ch/en/psyfinder/jean-francois-briefer",
		ProfileURL("jean-francois-briefer"))
}
