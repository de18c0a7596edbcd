package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"newsletter/internal/domain"
)

var ErrLogNotFound = errors.New("email log not found")

type EmailLogStore struct {
	db *sqlx.DB
}

func NewEmailLogStore(db *sqlx.DB) *EmailLogStore {
	return &EmailLogStore{db: db}
}

func (s *EmailLogStore) Create(ctx context.Context, log *domain.EmailLog) (string, error) {
	query := `
		INSERT INTO email_logs (subject, contact_id, status, sent_at, error_message)
		VALUES ($1, NULLIF($2, '')::uuid, $3, $4, $5)
		RETURNING id`

	sentAt := log.SentAt
	if sentAt.IsZero() {
		sentAt = time.Now()
	}

	var id string
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &id, query,
		log.Subject,
		log.ContactID,
		log.Status,
		sentAt,
		log.ErrorMessage,
	)
	if err != nil {
		return "", err
	}

	log.ID = id
	log.SentAt = sentAt
	return id, nil
}

func (s *EmailLogStore) UpdateStatus(ctx context.Context, id string, status domain.LogStatus) error {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"UPDATE email_logs SET status = $2 WHERE id = $1",
		id, status,
	)
	if err != nil {
		return err
	}
	return expectAffected(res, id)
}

// MarkEvent stamps opened_at or clicked_at, keeping the first recorded time.
func (s *EmailLogStore) MarkEvent(ctx context.Context, id string, eventType domain.EventType, at time.Time) error {
	var query string
	switch eventType {
	case domain.EventTypeOpen:
		query = "UPDATE email_logs SET opened_at = COALESCE(opened_at, $2) WHERE id = $1"
	case domain.EventTypeClick:
		// a click implies the message was opened
		query = `UPDATE email_logs
			SET clicked_at = COALESCE(clicked_at, $2), opened_at = COALESCE(opened_at, $2)
			WHERE id = $1`
	default:
		return fmt.Errorf("unknown event type %q", eventType)
	}

	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, query, id, at)
	if err != nil {
		return err
	}
	return expectAffected(res, id)
}

func (s *EmailLogStore) Get(ctx context.Context, id string) (*domain.EmailLog, error) {
	var log domain.EmailLog
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &log, `
		SELECT id, subject, COALESCE(contact_id::text, '') AS contact_id, status, sent_at,
			error_message, opened_at, clicked_at
		FROM email_logs
		WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrLogNotFound
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func expectAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrLogNotFound, id)
	}
	return nil
}
