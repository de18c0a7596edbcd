package digest

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsletter/internal/domain"
)

func TestSelect_SortsAndCaps(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	var articles []domain.Article
	for i := 0; i < 20; i++ {
		// scrambled hours so the input is not already ordered
		articles = append(articles, domain.Article{
			Title:       fmt.Sprintf("a%d", i),
			PublishedAt: base.Add(time.Duration((i*7)%20) * time.Hour),
		})
	}

	selected := Select(articles, 15)
	require.Len(t, selected, 15)

	for i := 1; i < len(selected); i++ {
		assert.False(t, selected[i-1].PublishedAt.Before(selected[i].PublishedAt),
			"position %d is older than position %d", i-1, i)
	}
	assert.Equal(t, base.Add(19*time.Hour), selected[0].PublishedAt)

	// input untouched
	assert.Equal(t, "a0", articles[0].Title)
}

func TestSelect_EqualTimestampsKeepOrder(t *testing.T) {
	ts := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	articles := []domain.Article{
		{Title: "first", PublishedAt: ts},
		{Title: "newer", PublishedAt: ts.Add(time.Minute)},
		{Title: "second", PublishedAt: ts},
	}

	selected := Select(articles, 15)
	require.Len(t, selected, 3)
	assert.Equal(t, []string{"newer", "first", "second"}, titles(selected))
}

func TestSelect_Empty(t *testing.T) {
	assert.Empty(t, Select(nil, 15))
}

func TestGroupByCategory(t *testing.T) {
	articles := []domain.Article{
		{Title: "1", Category: "Startups"},
		{Title: "2", Category: "Education"},
		{Title: "3", Category: "Startups"},
		{Title: "4", Category: "Global"},
	}

	groups := GroupByCategory(articles)
	require.Len(t, groups, 3)

	assert.Equal(t, "Startups", groups[0].Name)
	assert.Equal(t, []string{"1", "3"}, titles(groups[0].Articles))
	assert.Equal(t, "Education", groups[1].Name)
	assert.Equal(t, "Global", groups[2].Name)
}

func titles(articles []domain.Article) []string {
	out := make([]string, 0, len(articles))
	for _, a := range articles {
		out = append(out, a.Title)
	}
	return out
}
