package feed

import (
	"strings"

	"golang.org/x/text/cases"

	"newsletter/internal/domain"
)

// KeywordFilter keeps articles whose title or description mentions a keyword.
type KeywordFilter struct {
	keywords          []string
	maxPerFeed        int
	descriptionLength int
}

func NewKeywordFilter(keywords []string, maxPerFeed, descriptionLength int) *KeywordFilter {
	folded := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		folded = append(folded, cases.Fold().String(kw))
	}

	return &KeywordFilter{
		keywords:          folded,
		maxPerFeed:        maxPerFeed,
		descriptionLength: descriptionLength,
	}
}

// Relevant reports whether the article mentions at least one keyword.
// A Caser is stateful, so each call folds with its own.
func (f *KeywordFilter) Relevant(article domain.Article) bool {
	text := cases.Fold().String(article.Title + " " + article.Description)
	for _, kw := range f.keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Apply keeps relevant articles in feed order, stops after maxPerFeed accepted ones
// and truncates their descriptions. Rejected articles do not count toward the cap.
func (f *KeywordFilter) Apply(articles []domain.Article) []domain.Article {
	accepted := make([]domain.Article, 0, min(len(articles), max(f.maxPerFeed, 0)))
	for _, article := range articles {
		if f.maxPerFeed > 0 && len(accepted) >= f.maxPerFeed {
			break
		}
		if !f.Relevant(article) {
			continue
		}
		article.Description = Truncate(article.Description, f.descriptionLength)
		accepted = append(accepted, article)
	}
	return accepted
}
