package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"newsletter/internal/domain"
)

type ContactStore struct {
	db *sqlx.DB
}

func NewContactStore(db *sqlx.DB) *ContactStore {
	return &ContactStore{db: db}
}

func (s *ContactStore) ListContacts(ctx context.Context) ([]domain.Contact, error) {
	query := `
		SELECT id, email, COALESCE(first_name, '') AS first_name, COALESCE(last_name, '') AS last_name
		FROM contacts
		ORDER BY created_at, id`

	var contacts []domain.Contact
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &contacts, query); err != nil {
		return nil, err
	}
	return contacts, nil
}

// Add inserts a contact, or refreshes the names of an existing email, and returns its id.
func (s *ContactStore) Add(ctx context.Context, contact *domain.Contact) (string, error) {
	query := `
		INSERT INTO contacts (email, first_name, last_name)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''))
		ON CONFLICT (email) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name
		RETURNING id`

	var id string
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &id, query,
		contact.Email, contact.FirstName, contact.LastName)
	if err != nil {
		return "", err
	}
	return id, nil
}
