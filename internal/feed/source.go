package feed

import (
	"context"
	"log/slog"

	"newsletter/internal/domain"
)

// Source turns the configured feeds into relevance-filtered articles.
type Source struct {
	fetcher *Fetcher
	parser  Parser
	filter  *KeywordFilter
	feeds   []domain.SourceFeed
	logger  *slog.Logger
}

func NewSource(
	fetcher *Fetcher,
	parser Parser,
	filter *KeywordFilter,
	feeds []domain.SourceFeed,
	logger *slog.Logger,
) *Source {
	return &Source{
		fetcher: fetcher,
		parser:  parser,
		filter:  filter,
		feeds:   feeds,
		logger:  logger.With("component", "feed_source"),
	}
}

// FetchArticles returns the accepted articles of every feed, concatenated in
// configured feed order. Failed feeds contribute nothing.
func (s *Source) FetchArticles(ctx context.Context) ([]domain.Article, error) {
	results := s.fetcher.FetchAll(ctx, s.feeds)

	var articles []domain.Article
	for _, res := range results {
		if res.Err != nil || res.Body == "" {
			continue
		}

		parsed := s.parser.ParseFeedItems(res.Body, res.Feed)
		accepted := s.filter.Apply(parsed)

		s.logger.Info("feed processed",
			"feed", res.Feed.Name,
			"items", len(parsed),
			"accepted", len(accepted),
		)

		articles = append(articles, accepted...)
	}

	return articles, nil
}
