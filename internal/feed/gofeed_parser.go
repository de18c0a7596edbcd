package feed

import (
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"newsletter/internal/domain"
)

// GofeedParser parses feeds with a real XML decoder. It also understands Atom and
// JSON feeds, but malformed documents yield no items at all.
type GofeedParser struct {
	parser *gofeed.Parser
	now    func() time.Time
}

func NewGofeedParser() *GofeedParser {
	return &GofeedParser{
		parser: gofeed.NewParser(),
		now:    time.Now,
	}
}

func (p *GofeedParser) ParseFeedItems(xmlText string, feed domain.SourceFeed) []domain.Article {
	parsed, err := p.parser.ParseString(xmlText)
	if err != nil {
		return nil
	}

	articles := make([]domain.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}

		title := CleanText(item.Title)
		link := strings.TrimSpace(item.Link)
		if title == "" || link == "" {
			continue
		}

		publishedAt := p.now()
		if item.PublishedParsed != nil {
			publishedAt = *item.PublishedParsed
		}

		articles = append(articles, domain.Article{
			Title:       title,
			Link:        link,
			PublishedAt: publishedAt,
			Description: CleanText(item.Description),
			Source:      feed.Name,
			Category:    feed.Category,
		})
	}

	return articles
}
