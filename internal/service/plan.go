package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"newsletter/internal/digest"
	"newsletter/internal/domain"
	"newsletter/internal/metrics"
)

// PlanSends decides who receives the digest. It has no side effects; every contact
// gets exactly one plan, in contact order.
func PlanSends(contacts []domain.Contact, subject string) []domain.SendPlan {
	plans := make([]domain.SendPlan, 0, len(contacts))
	for _, c := range contacts {
		plans = append(plans, domain.SendPlan{
			Contact:   c,
			Subject:   subject,
			FirstName: strings.TrimSpace(c.FirstName),
		})
	}
	return plans
}

// executeSendPlan carries out every plan and returns one result per plan, in plan order.
// A failed send never stops the remaining ones.
func (s *NewsletterService) executeSendPlan(
	ctx context.Context,
	runID string,
	plans []domain.SendPlan,
	articles []domain.Article,
	logger *slog.Logger,
) []domain.SendResult {
	results := make([]domain.SendResult, len(plans))

	var g errgroup.Group
	g.SetLimit(s.config.Concurrency)

	for i, plan := range plans {
		g.Go(func() error {
			results[i] = s.deliver(ctx, runID, plan, articles, logger)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *NewsletterService) deliver(
	ctx context.Context,
	runID string,
	plan domain.SendPlan,
	articles []domain.Article,
	logger *slog.Logger,
) domain.SendResult {
	logger = logger.With("contact_id", plan.Contact.ID)
	result := domain.SendResult{Contact: plan.Contact}

	logID, err := s.logs.Create(ctx, &domain.EmailLog{
		Subject:   plan.Subject,
		ContactID: plan.Contact.ID,
		Status:    domain.LogStatusSending,
		SentAt:    s.now(),
	})
	if err != nil {
		// the send still goes out, just without tracking
		logger.Error("failed to create email log", "error", err)
		logID = ""
	}
	result.LogID = logID

	err = s.send(ctx, plan, articles, logID)
	if err != nil {
		logger.Warn("send failed", "email", plan.Contact.Email, "error", err)
		result.Status = domain.LogStatusFailed
		result.Err = err
		s.recordFailure(ctx, plan, err, logger)
	} else {
		result.Status = domain.LogStatusSent
		if logID != "" {
			if err := s.logs.UpdateStatus(ctx, logID, domain.LogStatusSent); err != nil {
				logger.Error("failed to mark email log sent", "log_id", logID, "error", err)
			}
		}
	}

	metrics.RecordSend(string(result.Status))
	s.publish(ctx, runID, plan, result, logger)

	return result
}

func (s *NewsletterService) send(ctx context.Context, plan domain.SendPlan, articles []domain.Article, logID string) error {
	html, err := s.renderer.Render(articles, logID)
	if err != nil {
		return fmt.Errorf("render digest: %w", err)
	}
	html = digest.Personalize(html, plan.FirstName)

	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for rate limiter: %w", err)
	}

	if err := s.mailer.Send(ctx, domain.Message{
		From:    s.config.From,
		To:      plan.Contact.Email,
		Subject: plan.Subject,
		HTML:    html,
	}); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	return nil
}

func (s *NewsletterService) recordFailure(ctx context.Context, plan domain.SendPlan, sendErr error, logger *slog.Logger) {
	msg := sendErr.Error()
	if _, err := s.logs.Create(ctx, &domain.EmailLog{
		Subject:      plan.Subject,
		ContactID:    plan.Contact.ID,
		Status:       domain.LogStatusFailed,
		SentAt:       s.now(),
		ErrorMessage: &msg,
	}); err != nil {
		logger.Error("failed to record failed email log", "error", err)
	}
}

func (s *NewsletterService) publish(
	ctx context.Context,
	runID string,
	plan domain.SendPlan,
	result domain.SendResult,
	logger *slog.Logger,
) {
	if s.publisher == nil {
		return
	}

	event := &domain.DeliveryEvent{
		RunID:     runID,
		LogID:     result.LogID,
		ContactID: plan.Contact.ID,
		Email:     plan.Contact.Email,
		Subject:   plan.Subject,
		Status:    result.Status,
		Timestamp: s.now(),
	}
	if result.Err != nil {
		event.Error = result.Err.Error()
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.Warn("failed to publish delivery event", "error", err)
	}
}
