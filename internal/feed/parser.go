package feed

import (
	"html"
	"regexp"
	"strings"
	"time"

	"newsletter/internal/domain"
)

// Parser extracts articles from one feed's XML text. Items without a title or a
// link are dropped; titles and descriptions come back cleaned but untruncated.
type Parser interface {
	ParseFeedItems(xmlText string, feed domain.SourceFeed) []domain.Article
}

var (
	itemExpr        = regexp.MustCompile(`(?is)<item\b[^>]*>(.*?)</item>`)
	titleExpr       = regexp.MustCompile(`(?is)<title\b[^>]*>(.*?)</title>`)
	linkExpr        = regexp.MustCompile(`(?is)<link\b[^>]*>(.*?)</link>`)
	pubDateExpr     = regexp.MustCompile(`(?is)<pubDate\b[^>]*>(.*?)</pubDate>`)
	descriptionExpr = regexp.MustCompile(`(?is)<description\b[^>]*>(.*?)</description>`)
	cdataExpr       = regexp.MustCompile(`(?s)^\s*<!\[CDATA\[(.*?)\]\]>\s*$`)
)

var pubDateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC822Z,
	time.RFC822,
	time.RFC3339,
}

// RegexParser extracts RSS 2.0 items with tolerant text matching instead of a full
// XML decoder, so malformed neighbours do not take a whole feed down.
type RegexParser struct {
	now func() time.Time
}

func NewRegexParser() *RegexParser {
	return &RegexParser{now: time.Now}
}

func (p *RegexParser) ParseFeedItems(xmlText string, feed domain.SourceFeed) []domain.Article {
	blocks := itemExpr.FindAllStringSubmatch(xmlText, -1)
	articles := make([]domain.Article, 0, len(blocks))

	for _, block := range blocks {
		body := block[1]

		title := CleanText(extractField(titleExpr, body))
		link := strings.TrimSpace(html.UnescapeString(extractField(linkExpr, body)))
		if title == "" || link == "" {
			continue
		}

		articles = append(articles, domain.Article{
			Title:       title,
			Link:        link,
			PublishedAt: parsePubDate(extractField(pubDateExpr, body), p.now),
			Description: CleanText(extractField(descriptionExpr, body)),
			Source:      feed.Name,
			Category:    feed.Category,
		})
	}

	return articles
}

func extractField(expr *regexp.Regexp, body string) string {
	m := expr.FindStringSubmatch(body)
	if m == nil {
		return ""
	}
	value := m[1]
	if c := cdataExpr.FindStringSubmatch(value); c != nil {
		value = c[1]
	}
	return strings.TrimSpace(value)
}

// parsePubDate falls back to now for missing or unparseable dates, which ranks such
// items as just published.
func parsePubDate(raw string, now func() time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now()
	}
	for _, layout := range pubDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return now()
}
