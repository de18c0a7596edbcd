package digest

import (
	"slices"

	"newsletter/internal/domain"
)

// Select orders articles newest first and keeps at most limit of them. Articles with
// equal timestamps keep their input order. The input slice is not modified.
func Select(articles []domain.Article, limit int) []domain.Article {
	sorted := slices.Clone(articles)
	slices.SortStableFunc(sorted, func(a, b domain.Article) int {
		return b.PublishedAt.Compare(a.PublishedAt)
	})

	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

// Category is one section of the digest.
type Category struct {
	Name     string
	Articles []domain.Article
}

// GroupByCategory buckets articles by category, ordering sections by the first time
// each category appears.
func GroupByCategory(articles []domain.Article) []Category {
	var groups []Category
	index := make(map[string]int)

	for _, a := range articles {
		i, ok := index[a.Category]
		if !ok {
			i = len(groups)
			index[a.Category] = i
			groups = append(groups, Category{Name: a.Category})
		}
		groups[i].Articles = append(groups[i].Articles, a)
	}

	return groups
}
