package feed

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"newsletter/internal/domain"
	"newsletter/internal/metrics"
)

// FetcherConfig holds feed fetching settings.
type FetcherConfig struct {
	UserAgent    string
	Timeout      time.Duration
	MaxBodyBytes int64
}

// FetchResult is the raw body of one feed, or the error that replaced it.
type FetchResult struct {
	Feed domain.SourceFeed
	Body string
	Err  error
}

type Fetcher struct {
	httpClient   *http.Client
	userAgent    string
	maxBodyBytes int64
	logger       *slog.Logger
}

func NewFetcher(cfg FetcherConfig, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		userAgent:    cfg.UserAgent,
		maxBodyBytes: cfg.MaxBodyBytes,
		logger:       logger.With("component", "fetcher"),
	}
}

// FetchAll requests every feed concurrently and waits for all of them. Results keep
// the order of feeds; a failed feed has Err set and an empty Body.
func (f *Fetcher) FetchAll(ctx context.Context, feeds []domain.SourceFeed) []FetchResult {
	results := make([]FetchResult, len(feeds))

	var g errgroup.Group
	for i, feed := range feeds {
		g.Go(func() error {
			body, err := f.fetch(ctx, feed.URL)
			results[i] = FetchResult{Feed: feed, Body: body, Err: err}

			if err != nil {
				f.logger.Warn("feed fetch failed",
					"feed", feed.Name,
					"url", feed.URL,
					"error", err,
				)
				metrics.RecordFeedFetch(feed.Name, "failed")
				return nil
			}

			f.logger.Debug("fetched feed", "feed", feed.Name, "bytes", len(body))
			metrics.RecordFeedFetch(feed.Name, "ok")
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (f *Fetcher) fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml;q=0.9, */*;q=0.8")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var reader io.Reader = resp.Body
	if f.maxBodyBytes > 0 {
		reader = io.LimitReader(resp.Body, f.maxBodyBytes)
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	return string(data), nil
}
