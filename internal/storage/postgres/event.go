package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"newsletter/internal/domain"
)

type EventStore struct {
	db *sqlx.DB
}

func NewEventStore(db *sqlx.DB) *EventStore {
	return &EventStore{db: db}
}

func (s *EventStore) Insert(ctx context.Context, event *domain.TrackingEvent) (int64, error) {
	query := `
		INSERT INTO email_events (log_id, event_type, url, user_agent, ip, occurred_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''), $6)
		RETURNING id`

	var id int64
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &id, query,
		event.LogID,
		event.Type,
		event.URL,
		event.UserAgent,
		event.IP,
		event.OccurredAt,
	)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (s *EventStore) ListByLog(ctx context.Context, logID string) ([]domain.TrackingEvent, error) {
	query := `
		SELECT id, log_id, event_type, COALESCE(url, '') AS url, COALESCE(user_agent, '') AS user_agent,
			COALESCE(ip, '') AS ip, occurred_at
		FROM email_events
		WHERE log_id = $1
		ORDER BY occurred_at, id`

	var events []domain.TrackingEvent
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &events, query, logID); err != nil {
		return nil, err
	}
	return events, nil
}
