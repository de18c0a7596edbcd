package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"newsletter/internal/domain"
)

type Source interface {
	FetchArticles(ctx context.Context) ([]domain.Article, error)
}

type ContactStore interface {
	ListContacts(ctx context.Context) ([]domain.Contact, error)
}

type EmailLogStore interface {
	Create(ctx context.Context, log *domain.EmailLog) (string, error)
	UpdateStatus(ctx context.Context, id string, status domain.LogStatus) error
	MarkEvent(ctx context.Context, id string, eventType domain.EventType, at time.Time) error
}

type EventStore interface {
	Insert(ctx context.Context, event *domain.TrackingEvent) (int64, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Renderer interface {
	Render(articles []domain.Article, logID string) (string, error)
}

type Mailer interface {
	Send(ctx context.Context, msg domain.Message) error
}

type Publisher interface {
	Publish(ctx context.Context, event *domain.DeliveryEvent) error
	Close() error
}

// RunLock guards against overlapping runs. ok is false when another run holds the lock.
type RunLock interface {
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}
