package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/scholarslab/nlfeatures/internal/model"
)

// Ensure RetryStore implements model.FeatureStore.
var _ model.FeatureStore = (*RetryStore)(nil)

// RetryStore is a decorator that retries writes rejected because the SQLite
// database is locked by another connection. Reads pass straight through.
type RetryStore struct {
	model.FeatureStore
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
}

// NewRetryStore wraps a FeatureStore with retry logic.
// maxRetries is the number of additional attempts after the first failure.
// baseDelay is the delay before the first retry, doubled on each subsequent retry.
func NewRetryStore(inner model.FeatureStore, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *RetryStore {
	return &RetryStore{
		FeatureStore: inner,
		maxRetries:   maxRetries,
		baseDelay:    baseDelay,
		logger:       logger,
	}
}

func (s *RetryStore) AddElementText(ctx context.Context, et model.ElementText) (model.ElementText, error) {
	return do(ctx, s, "add element text", func() (model.ElementText, error) {
		return s.FeatureStore.AddElementText(ctx, et)
	})
}

func (s *RetryStore) RemoveElementTexts(ctx context.Context, itemID, elementID int64) error {
	_, err := do(ctx, s, "remove element texts", func() (struct{}, error) {
		return struct{}{}, s.FeatureStore.RemoveElementTexts(ctx, itemID, elementID)
	})
	return err
}

func (s *RetryStore) RemoveItemFeatures(ctx context.Context, itemID int64) error {
	_, err := do(ctx, s, "remove features", func() (struct{}, error) {
		return struct{}{}, s.FeatureStore.RemoveItemFeatures(ctx, itemID)
	})
	return err
}

func (s *RetryStore) CreateFeatures(ctx context.Context, itemID int64, params []model.FeatureParams) ([]model.Feature, error) {
	return do(ctx, s, "create features", func() ([]model.Feature, error) {
		return s.FeatureStore.CreateFeatures(ctx, itemID, params)
	})
}

func (s *RetryStore) UpdateFeatures(ctx context.Context, itemID int64, params []model.FeatureParams) ([]model.Feature, error) {
	return do(ctx, s, "update features", func() ([]model.Feature, error) {
		return s.FeatureStore.UpdateFeatures(ctx, itemID, params)
	})
}

func (s *RetryStore) ReplaceCoverage(ctx context.Context, itemID int64, texts []model.ElementText, params []model.FeatureParams) ([]model.Feature, error) {
	return do(ctx, s, "replace coverage", func() ([]model.Feature, error) {
		return s.FeatureStore.ReplaceCoverage(ctx, itemID, texts, params)
	})
}

// do runs fn, retrying while it fails with a lock error.
func do[T any](ctx context.Context, s *RetryStore, op string, fn func() (T, error)) (T, error) {
	v, err := fn()
	if err == nil || !isRetryable(err) {
		return v, err
	}

	lastErr := err
	for attempt := 1; attempt <= s.maxRetries; attempt++ {
		delay := s.backoffDelay(attempt)

		s.logger.Warn("retrying locked write",
			"op", op,
			"attempt", attempt,
			"max_retries", s.maxRetries,
			"delay", delay,
			"error", lastErr,
		)

		select {
		case <-ctx.Done():
			var zero T
			return zero, fmt.Errorf("retry cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		v, err = fn()
		if err == nil || !isRetryable(err) {
			return v, err
		}
		lastErr = err
	}

	var zero T
	return zero, lastErr
}

// backoffDelay computes the delay for a given attempt with ±30% jitter.
func (s *RetryStore) backoffDelay(attempt int) time.Duration {
	// Exponential: baseDelay * 2^(attempt-1)
	delay := s.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	jitter := float64(delay) * 0.3
	return time.Duration(float64(delay) + (rand.Float64()*2-1)*jitter)
}

// isRetryable reports whether err is SQLite refusing a write because another
// connection holds the lock.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}
