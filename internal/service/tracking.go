package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"newsletter/internal/domain"
	"newsletter/internal/metrics"
)

var ErrInvalidEvent = errors.New("invalid tracking event")

type TrackingService struct {
	logs      EmailLogStore
	events    EventStore
	txManager TransactionManager
	logger    *slog.Logger
	now       func() time.Time
}

func NewTrackingService(
	logs EmailLogStore,
	events EventStore,
	txManager TransactionManager,
	logger *slog.Logger,
) *TrackingService {
	return &TrackingService{
		logs:      logs,
		events:    events,
		txManager: txManager,
		logger:    logger.With("component", "tracking"),
		now:       time.Now,
	}
}

// Record stores an open or click and stamps the matching email log. Only the first
// open and the first click set the log's timestamps.
func (s *TrackingService) Record(ctx context.Context, event *domain.TrackingEvent) error {
	if !event.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, event.Type)
	}
	if strings.TrimSpace(event.LogID) == "" {
		return fmt.Errorf("%w: missing log id", ErrInvalidEvent)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now()
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		id, err := s.events.Insert(txCtx, event)
		if err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		event.ID = id

		if err := s.logs.MarkEvent(txCtx, event.LogID, event.Type, event.OccurredAt); err != nil {
			return fmt.Errorf("mark email log: %w", err)
		}

		return nil
	})
	if err != nil {
		metrics.RecordTrackingEvent(string(event.Type), "failed")
		return err
	}

	metrics.RecordTrackingEvent(string(event.Type), "ok")
	s.logger.Debug("tracking event recorded", "type", event.Type, "log_id", event.LogID)

	return nil
}
