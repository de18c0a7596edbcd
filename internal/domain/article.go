package domain

import "time"

// SourceFeed is a configured RSS source.
type SourceFeed struct {
	URL      string
	Name     string
	Category string
}

type Article struct {
	Title       string    `json:"title"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"`
	Description string    `json:"description"`
	Source      string    `json:"source"`
	Category    string    `json:"category"`
}

// Contact is a newsletter recipient owned by the contact store.
type Contact struct {
	ID        string `db:"id"`
	Email     string `db:"email"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
}
