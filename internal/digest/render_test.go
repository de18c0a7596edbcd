package digest

import (
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsletter/internal/domain"
)

func newTestRenderer() *Renderer {
	r := NewRenderer(RendererConfig{
		Brand:        "Learnly",
		BaseURL:      "https://learnly.example/",
		SiteURL:      "https://learnly.example",
		ContactEmail: "hello@learnly.example",
	})
	r.now = func() time.Time { return time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC) }
	return r
}

func testArticles() []domain.Article {
	return []domain.Article{
		{
			Title:       "Kenya startup raises <$5M>",
			Link:        "https://news.example/a?id=1&ref=rss",
			PublishedAt: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC),
			Description: "Funding round led by local investors.",
			Source:      "TechCabal",
			Category:    "Startups",
		},
		{
			Title:       "Coding bootcamp opens in Accra",
			Link:        "https://news.example/b",
			PublishedAt: time.Date(2025, 1, 4, 0, 0, 0, 0, time.UTC),
			Source:      "eLearning Industry",
			Category:    "Education",
		},
		{
			Title:       "Seed funding for edtech",
			Link:        "https://news.example/c#top",
			PublishedAt: time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC),
			Source:      "Disrupt Africa",
			Category:    "Startups",
		},
	}
}

func parseDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	return doc
}

func TestRender_WithoutLogID(t *testing.T) {
	r := newTestRenderer()
	articles := testArticles()

	html, err := r.Render(articles, "")
	require.NoError(t, err)

	doc := parseDoc(t, html)

	links := doc.Find("a.article-link")
	require.Equal(t, 3, links.Length())

	// grouped by category in first-seen order
	expected := []string{articles[0].Link, articles[2].Link, articles[1].Link}
	links.Each(func(i int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		assert.Equal(t, expected[i], href)
	})

	badges := doc.Find(".badge")
	require.Equal(t, 2, badges.Length())
	assert.Equal(t, "Startups", badges.Eq(0).Text())
	assert.Equal(t, "Education", badges.Eq(1).Text())

	assert.Equal(t, 0, doc.Find("img").Length())
	assert.Equal(t, Greeting, doc.Find(".greeting").Text())
	assert.Contains(t, html, "Monday, January 6, 2025")
	assert.Contains(t, doc.Find(".byline").First().Text(), "TechCabal • Jan 5, 2025")
	assert.Equal(t, "Kenya startup raises <$5M>", links.First().Text())
	assert.NotContains(t, html, "{{")
}

func TestRender_WithLogID(t *testing.T) {
	r := newTestRenderer()
	articles := testArticles()

	html, err := r.Render(articles, "log-42")
	require.NoError(t, err)

	doc := parseDoc(t, html)

	byTitle := map[string]string{}
	for _, a := range articles {
		byTitle[a.Title] = a.Link
	}

	doc.Find("a.article-link").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		want := "https://learnly.example/email-tracking?type=click&logId=log-42&url=" +
			url.QueryEscape(byTitle[sel.Text()])
		assert.Equal(t, want, href)

		parsed, err := url.Parse(href)
		require.NoError(t, err)
		assert.Equal(t, byTitle[sel.Text()], parsed.Query().Get("url"))
	})

	imgs := doc.Find("img")
	require.Equal(t, 1, imgs.Length())
	src, _ := imgs.Attr("src")
	assert.Equal(t, "https://learnly.example/email-tracking?type=open&logId=log-42", src)
	assert.Equal(t, "1", imgs.AttrOr("width", ""))
	assert.Equal(t, "1", imgs.AttrOr("height", ""))

	// pixel sits right before the closing body tag
	pixelAt := strings.Index(html, "<img")
	bodyAt := strings.Index(html, "</body>")
	require.Positive(t, pixelAt)
	assert.Equal(t, "", strings.TrimSpace(html[strings.Index(html[pixelAt:], "/>")+pixelAt+2:bodyAt]))
}

func TestPersonalize(t *testing.T) {
	r := newTestRenderer()
	html, err := r.Render(testArticles(), "")
	require.NoError(t, err)

	personalized := Personalize(html, "Ada")
	assert.Contains(t, personalized, "Hello Ada!")
	assert.NotContains(t, personalized, Greeting)
	assert.Contains(t, html, Greeting, "shared document must stay generic")

	escaped := Personalize(html, "<script>")
	assert.Contains(t, escaped, "Hello &lt;script&gt;!")

	assert.Equal(t, html, Personalize(html, "  "))
}

func TestSubject(t *testing.T) {
	got := Subject("Learnly", time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "Learnly Weekly Digest - Monday, January 6, 2025", got)
}
