package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"newsletter/internal/digest"
	"newsletter/internal/domain"
	"newsletter/internal/metrics"
)

const (
	MessageDelivered  = "Newsletter sent successfully"
	MessageNoArticles = "No news articles found. Newsletter not sent."
	MessageNoContacts = "No contacts found"
)

var ErrRunInProgress = errors.New("newsletter run already in progress")

// NewsletterConfig holds the per-run settings of the newsletter service.
type NewsletterConfig struct {
	Brand         string
	From          string
	MaxArticles   int
	Concurrency   int
	RatePerSecond float64
}

type NewsletterService struct {
	source    Source
	contacts  ContactStore
	logs      EmailLogStore
	renderer  Renderer
	mailer    Mailer
	publisher Publisher
	lock      RunLock
	limiter   *rate.Limiter
	logger    *slog.Logger
	config    NewsletterConfig
	now       func() time.Time
}

func NewNewsletterService(
	source Source,
	contacts ContactStore,
	logs EmailLogStore,
	renderer Renderer,
	mailer Mailer,
	publisher Publisher,
	lock RunLock,
	logger *slog.Logger,
	cfg NewsletterConfig,
) *NewsletterService {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	return &NewsletterService{
		source:    source,
		contacts:  contacts,
		logs:      logs,
		renderer:  renderer,
		mailer:    mailer,
		publisher: publisher,
		lock:      lock,
		limiter:   limiter,
		logger:    logger.With("component", "newsletter"),
		config:    cfg,
		now:       time.Now,
	}
}

// Run executes one full newsletter run: fetch, select, then deliver to every contact.
// Empty digests and empty contact lists end the run early with a message and no sends.
func (s *NewsletterService) Run(ctx context.Context) (*domain.RunResult, error) {
	if s.lock != nil {
		release, ok, err := s.lock.TryAcquire(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			return nil, ErrRunInProgress
		}
		defer release()
	}

	startTime := time.Now()
	runID := uuid.NewString()
	logger := s.logger.With("run_id", runID)

	logger.Info("starting newsletter run")

	result, err := s.run(ctx, runID, logger)
	if err != nil {
		metrics.RecordRun("error", 0, time.Since(startTime).Seconds())
		logger.Error("newsletter run failed", "error", err)
		return nil, err
	}

	result.Duration = time.Since(startTime)
	metrics.RecordRun(string(result.Outcome), result.ArticlesIncluded, result.Duration.Seconds())

	logger.Info("newsletter run completed",
		"outcome", result.Outcome,
		"articles", result.ArticlesIncluded,
		"sent", result.Sent,
		"failed", result.Failed,
		"duration", result.Duration,
	)

	return result, nil
}

func (s *NewsletterService) run(ctx context.Context, runID string, logger *slog.Logger) (*domain.RunResult, error) {
	articles, err := s.source.FetchArticles(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch articles: %w", err)
	}

	selected := digest.Select(articles, s.config.MaxArticles)
	logger.Info("selected articles", "candidates", len(articles), "selected", len(selected))

	if len(selected) == 0 {
		return &domain.RunResult{
			RunID:   runID,
			Outcome: domain.OutcomeNoArticles,
			Message: MessageNoArticles,
		}, nil
	}

	contacts, err := s.contacts.ListContacts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}

	if len(contacts) == 0 {
		return &domain.RunResult{
			RunID:            runID,
			Outcome:          domain.OutcomeNoContacts,
			Message:          MessageNoContacts,
			ArticlesIncluded: len(selected),
		}, nil
	}

	plans := PlanSends(contacts, digest.Subject(s.config.Brand, s.now()))
	results := s.executeSendPlan(ctx, runID, plans, selected, logger)

	result := &domain.RunResult{
		RunID:            runID,
		Outcome:          domain.OutcomeDelivered,
		Message:          MessageDelivered,
		ArticlesIncluded: len(selected),
		Results:          results,
	}
	for _, r := range results {
		if r.Status == domain.LogStatusSent {
			result.Sent++
		} else {
			result.Failed++
		}
	}

	return result, nil
}
