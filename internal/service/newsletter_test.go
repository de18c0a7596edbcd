package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"newsletter/internal/domain"
	"newsletter/internal/service/mocks"
)

const renderedDigest = "<html><body><p>Hello Good People!</p></body></html>"

type NewsletterServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	source    *mocks.MockSource
	contacts  *mocks.MockContactStore
	logs      *mocks.MockEmailLogStore
	renderer  *mocks.MockRenderer
	mailer    *mocks.MockMailer
	publisher *mocks.MockPublisher
	lock      *mocks.MockRunLock

	service *NewsletterService
	cfg     NewsletterConfig
	logger  *slog.Logger
	now     time.Time

	mu      sync.Mutex
	created []domain.EmailLog
	sent    []domain.Message
}

func (s *NewsletterServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.source = mocks.NewMockSource(s.ctrl)
	s.contacts = mocks.NewMockContactStore(s.ctrl)
	s.logs = mocks.NewMockEmailLogStore(s.ctrl)
	s.renderer = mocks.NewMockRenderer(s.ctrl)
	s.mailer = mocks.NewMockMailer(s.ctrl)
	s.publisher = mocks.NewMockPublisher(s.ctrl)
	s.lock = mocks.NewMockRunLock(s.ctrl)

	s.cfg = NewsletterConfig{
		Brand:       "Learnly",
		From:        "Learnly <news@learnly.example>",
		MaxArticles: 15,
		Concurrency: 1,
	}
	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s.now = time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	s.created = nil
	s.sent = nil

	s.service = s.newService(s.cfg, s.publisher)
}

func (s *NewsletterServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestNewsletterServiceTestSuite(t *testing.T) {
	suite.Run(t, new(NewsletterServiceTestSuite))
}

func (s *NewsletterServiceTestSuite) newService(cfg NewsletterConfig, publisher Publisher) *NewsletterService {
	svc := NewNewsletterService(
		s.source,
		s.contacts,
		s.logs,
		s.renderer,
		s.mailer,
		publisher,
		s.lock,
		s.logger,
		cfg,
	)
	svc.now = func() time.Time { return s.now }
	return svc
}

func (s *NewsletterServiceTestSuite) expectLock() {
	s.lock.EXPECT().TryAcquire(gomock.Any()).Return(func() {}, true, nil)
}

// expectLogCreates hands out sequential ids and keeps every created entry.
func (s *NewsletterServiceTestSuite) expectLogCreates(times int) {
	s.logs.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, log *domain.EmailLog) (string, error) {
			s.mu.Lock()
			defer s.mu.Unlock()
			s.created = append(s.created, *log)
			return fmt.Sprintf("log-%d", len(s.created)), nil
		},
	).Times(times)
}

func (s *NewsletterServiceTestSuite) expectSends(failFor string, times int) {
	s.mailer.EXPECT().Send(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, msg domain.Message) error {
			s.mu.Lock()
			s.sent = append(s.sent, msg)
			s.mu.Unlock()
			if msg.To == failFor {
				return errors.New("mailbox unavailable")
			}
			return nil
		},
	).Times(times)
}

func testArticles() []domain.Article {
	base := time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)
	return []domain.Article{
		{Title: "Older", Link: "https://news.example/1", PublishedAt: base.Add(-time.Hour), Category: "Startups"},
		{Title: "Newer", Link: "https://news.example/2", PublishedAt: base, Category: "Education"},
	}
}

func testContacts() []domain.Contact {
	return []domain.Contact{
		{ID: "c1", Email: "ada@example.com", FirstName: "Ada"},
		{ID: "c2", Email: "bola@example.com", FirstName: "Bola"},
		{ID: "c3", Email: "chidi@example.com"},
	}
}

func (s *NewsletterServiceTestSuite) TestRun_Delivered() {
	ctx := context.Background()

	s.expectLock()
	s.source.EXPECT().FetchArticles(ctx).Return(testArticles(), nil)
	s.contacts.EXPECT().ListContacts(ctx).Return(testContacts(), nil)
	s.expectLogCreates(3)
	s.renderer.EXPECT().Render(gomock.Any(), gomock.Any()).DoAndReturn(
		func(articles []domain.Article, logID string) (string, error) {
			s.Require().Len(articles, 2)
			s.Equal("Newer", articles[0].Title)
			s.NotEmpty(logID)
			return renderedDigest, nil
		},
	).Times(3)
	s.expectSends("", 3)
	s.logs.EXPECT().UpdateStatus(ctx, gomock.Any(), domain.LogStatusSent).Return(nil).Times(3)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil).Times(3)

	result, err := s.service.Run(ctx)

	s.Require().NoError(err)
	s.Equal(domain.OutcomeDelivered, result.Outcome)
	s.Equal(MessageDelivered, result.Message)
	s.Equal(3, result.Sent)
	s.Equal(0, result.Failed)
	s.Equal(2, result.ArticlesIncluded)
	s.NotEmpty(result.RunID)

	s.Require().Len(s.sent, 3)
	s.Equal("Learnly Weekly Digest - Monday, January 6, 2025", s.sent[0].Subject)
	s.Equal(s.cfg.From, s.sent[0].From)
	s.Equal("ada@example.com", s.sent[0].To)
	s.Contains(s.sent[0].HTML, "Hello Ada!")
	s.Contains(s.sent[1].HTML, "Hello Bola!")
	s.Contains(s.sent[2].HTML, "Hello Good People!")

	for _, log := range s.created {
		s.Equal(domain.LogStatusSending, log.Status)
		s.Equal(s.sent[0].Subject, log.Subject)
	}
}

func (s *NewsletterServiceTestSuite) TestRun_SecondContactFails() {
	ctx := context.Background()

	s.expectLock()
	s.source.EXPECT().FetchArticles(ctx).Return(testArticles(), nil)
	s.contacts.EXPECT().ListContacts(ctx).Return(testContacts(), nil)
	// three "sending" entries plus one "failed" entry
	s.expectLogCreates(4)
	s.renderer.EXPECT().Render(gomock.Any(), gomock.Any()).Return(renderedDigest, nil).Times(3)
	s.expectSends("bola@example.com", 3)
	s.logs.EXPECT().UpdateStatus(ctx, gomock.Any(), domain.LogStatusSent).Return(nil).Times(2)

	var events []*domain.DeliveryEvent
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).DoAndReturn(
		func(_ context.Context, event *domain.DeliveryEvent) error {
			events = append(events, event)
			return nil
		},
	).Times(3)

	result, err := s.service.Run(ctx)

	s.Require().NoError(err)
	s.Equal(2, result.Sent)
	s.Equal(1, result.Failed)
	s.Equal(2, result.ArticlesIncluded)
	s.Equal(len(testContacts()), result.Sent+result.Failed)

	s.Require().Len(result.Results, 3)
	s.Equal(domain.LogStatusSent, result.Results[0].Status)
	s.Equal(domain.LogStatusFailed, result.Results[1].Status)
	s.ErrorContains(result.Results[1].Err, "mailbox unavailable")
	s.Equal(domain.LogStatusSent, result.Results[2].Status)

	var failed []domain.EmailLog
	for _, log := range s.created {
		if log.Status == domain.LogStatusFailed {
			failed = append(failed, log)
		}
	}
	s.Require().Len(failed, 1)
	s.Equal("c2", failed[0].ContactID)
	s.Require().NotNil(failed[0].ErrorMessage)
	s.Contains(*failed[0].ErrorMessage, "mailbox unavailable")

	s.Require().Len(events, 3)
	s.Equal(domain.LogStatusFailed, events[1].Status)
	s.Contains(events[1].Error, "mailbox unavailable")
	s.Equal(result.RunID, events[0].RunID)
}

func (s *NewsletterServiceTestSuite) TestRun_ConcurrentDeliveryIsolatesFailures() {
	ctx := context.Background()
	cfg := s.cfg
	cfg.Concurrency = 3
	cfg.RatePerSecond = 1000
	service := s.newService(cfg, nil)

	s.expectLock()
	s.source.EXPECT().FetchArticles(ctx).Return(testArticles(), nil)
	s.contacts.EXPECT().ListContacts(ctx).Return(testContacts(), nil)
	s.expectLogCreates(4)
	s.renderer.EXPECT().Render(gomock.Any(), gomock.Any()).Return(renderedDigest, nil).Times(3)
	s.expectSends("chidi@example.com", 3)
	s.logs.EXPECT().UpdateStatus(ctx, gomock.Any(), domain.LogStatusSent).Return(nil).Times(2)

	result, err := service.Run(ctx)

	s.Require().NoError(err)
	s.Equal(2, result.Sent)
	s.Equal(1, result.Failed)
	s.Equal("c3", result.Results[2].Contact.ID)
	s.Equal(domain.LogStatusFailed, result.Results[2].Status)
}

func (s *NewsletterServiceTestSuite) TestRun_NoArticles() {
	ctx := context.Background()

	s.expectLock()
	s.source.EXPECT().FetchArticles(ctx).Return(nil, nil)

	result, err := s.service.Run(ctx)

	s.Require().NoError(err)
	s.Equal(domain.OutcomeNoArticles, result.Outcome)
	s.Equal(MessageNoArticles, result.Message)
	s.Zero(result.Sent)
	s.Zero(result.Failed)
	s.Empty(s.created)
	s.Empty(s.sent)
}

func (s *NewsletterServiceTestSuite) TestRun_NoContacts() {
	ctx := context.Background()

	s.expectLock()
	s.source.EXPECT().FetchArticles(ctx).Return(testArticles(), nil)
	s.contacts.EXPECT().ListContacts(ctx).Return([]domain.Contact{}, nil)

	result, err := s.service.Run(ctx)

	s.Require().NoError(err)
	s.Equal(domain.OutcomeNoContacts, result.Outcome)
	s.Equal(MessageNoContacts, result.Message)
	s.Empty(s.sent)
}

func (s *NewsletterServiceTestSuite) TestRun_ContactStoreError() {
	ctx := context.Background()

	s.expectLock()
	s.source.EXPECT().FetchArticles(ctx).Return(testArticles(), nil)
	s.contacts.EXPECT().ListContacts(ctx).Return(nil, errors.New("connection refused"))

	result, err := s.service.Run(ctx)

	s.Error(err)
	s.Nil(result)
	s.Contains(err.Error(), "list contacts")
}

func (s *NewsletterServiceTestSuite) TestRun_LogCreateFailureStillSends() {
	ctx := context.Background()
	contacts := testContacts()[:1]

	s.expectLock()
	s.source.EXPECT().FetchArticles(ctx).Return(testArticles(), nil)
	s.contacts.EXPECT().ListContacts(ctx).Return(contacts, nil)
	s.logs.EXPECT().Create(ctx, gomock.Any()).Return("", errors.New("insert failed"))
	// without a log id the digest is rendered untracked
	s.renderer.EXPECT().Render(gomock.Any(), "").Return(renderedDigest, nil)
	s.expectSends("", 1)
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(errors.New("broker down"))

	result, err := s.service.Run(ctx)

	s.Require().NoError(err)
	s.Equal(1, result.Sent)
	s.Equal(0, result.Failed)
	s.Empty(result.Results[0].LogID)
}

func (s *NewsletterServiceTestSuite) TestRun_UpdateFailureCountsAsSent() {
	ctx := context.Background()

	s.expectLock()
	s.source.EXPECT().FetchArticles(ctx).Return(testArticles(), nil)
	s.contacts.EXPECT().ListContacts(ctx).Return(testContacts()[:1], nil)
	s.expectLogCreates(1)
	s.renderer.EXPECT().Render(gomock.Any(), "log-1").Return(renderedDigest, nil)
	s.expectSends("", 1)
	s.logs.EXPECT().UpdateStatus(ctx, "log-1", domain.LogStatusSent).Return(errors.New("timeout"))
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	result, err := s.service.Run(ctx)

	s.Require().NoError(err)
	s.Equal(1, result.Sent)
}

func (s *NewsletterServiceTestSuite) TestRun_RenderFailureRecordedAsFailed() {
	ctx := context.Background()

	s.expectLock()
	s.source.EXPECT().FetchArticles(ctx).Return(testArticles(), nil)
	s.contacts.EXPECT().ListContacts(ctx).Return(testContacts()[:1], nil)
	s.expectLogCreates(2)
	s.renderer.EXPECT().Render(gomock.Any(), gomock.Any()).Return("", errors.New("bad template"))
	s.publisher.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	result, err := s.service.Run(ctx)

	s.Require().NoError(err)
	s.Equal(0, result.Sent)
	s.Equal(1, result.Failed)
	s.Empty(s.sent)
	s.Equal(domain.LogStatusFailed, s.created[1].Status)
}

func (s *NewsletterServiceTestSuite) TestRun_AlreadyInProgress() {
	s.lock.EXPECT().TryAcquire(gomock.Any()).Return(nil, false, nil)

	result, err := s.service.Run(context.Background())

	s.ErrorIs(err, ErrRunInProgress)
	s.Nil(result)
}

func (s *NewsletterServiceTestSuite) TestRun_LockError() {
	s.lock.EXPECT().TryAcquire(gomock.Any()).Return(nil, false, errors.New("redis unreachable"))

	result, err := s.service.Run(context.Background())

	s.Error(err)
	s.NotErrorIs(err, ErrRunInProgress)
	s.Nil(result)
}

func (s *NewsletterServiceTestSuite) TestRun_ReleasesLock() {
	ctx := context.Background()
	released := false

	s.lock.EXPECT().TryAcquire(gomock.Any()).Return(func() { released = true }, true, nil)
	s.source.EXPECT().FetchArticles(ctx).Return(nil, errors.New("unexpected"))

	_, err := s.service.Run(ctx)

	s.Error(err)
	s.True(released)
}

func (s *NewsletterServiceTestSuite) TestPlanSends() {
	contacts := []domain.Contact{
		{ID: "1", Email: "a@example.com", FirstName: "  Ada "},
		{ID: "2", Email: "b@example.com"},
	}

	plans := PlanSends(contacts, "Subject")

	s.Require().Len(plans, 2)
	s.Equal("Ada", plans[0].FirstName)
	s.Equal("Subject", plans[0].Subject)
	s.Equal("", plans[1].FirstName)
	s.Equal(contacts[1], plans[1].Contact)
	s.Empty(PlanSends(nil, "Subject"))
}
