package retry

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/scholarslab/nlfeatures/internal/model"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var errLocked = errors.New("database is locked (5) (SQLITE_BUSY)")

// mockStore calls a function on each UpdateFeatures, tracking call count.
// Other methods panic through the nil embedded interface if reached.
type mockStore struct {
	model.FeatureStore
	calls int
	fn    func(attempt int) ([]model.Feature, error)
}

func (m *mockStore) UpdateFeatures(_ context.Context, _ int64, _ []model.FeatureParams) ([]model.Feature, error) {
	m.calls++
	return m.fn(m.calls)
}

func (m *mockStore) ItemFeatures(_ context.Context, _ int64) ([]model.Feature, error) {
	m.calls++
	return nil, errLocked
}

func TestRetry_SucceedsOnFirstAttempt(t *testing.T) {
	mock := &mockStore{fn: func(_ int) ([]model.Feature, error) {
		return []model.Feature{{ID: 1}}, nil
	}}

	rs := NewRetryStore(mock, 2, 10*time.Millisecond, discardLogger())
	got, err := rs.UpdateFeatures(context.Background(), 7, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("unexpected features: %v", got)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call, got %d", mock.calls)
	}
}

func TestRetry_RetriesLocked_SucceedsOnSecondAttempt(t *testing.T) {
	mock := &mockStore{fn: func(attempt int) ([]model.Feature, error) {
		if attempt == 1 {
			return nil, errLocked
		}
		return []model.Feature{{ID: 1}}, nil
	}}

	rs := NewRetryStore(mock, 2, 10*time.Millisecond, discardLogger())
	got, err := rs.UpdateFeatures(context.Background(), 7, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(got))
	}
	if mock.calls != 2 {
		t.Fatalf("expected 2 calls, got %d", mock.calls)
	}
}

func TestRetry_DoesNotRetryParamErrors(t *testing.T) {
	mock := &mockStore{fn: func(_ int) ([]model.Feature, error) {
		return nil, &model.ParamError{Field: "zoom", Value: 99, Err: model.ErrOutOfRange}
	}}

	rs := NewRetryStore(mock, 2, 10*time.Millisecond, discardLogger())
	_, err := rs.UpdateFeatures(context.Background(), 7, nil)
	var pe *model.ParamError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParamError, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call (no retry), got %d", mock.calls)
	}
}

func TestRetry_GivesUpAfterMaxRetries(t *testing.T) {
	mock := &mockStore{fn: func(_ int) ([]model.Feature, error) {
		return nil, errLocked
	}}

	rs := NewRetryStore(mock, 2, 10*time.Millisecond, discardLogger())
	_, err := rs.UpdateFeatures(context.Background(), 7, nil)
	if !errors.Is(err, errLocked) {
		t.Fatalf("expected lock error after max retries, got %v", err)
	}
	// 1 initial + 2 retries = 3
	if mock.calls != 3 {
		t.Fatalf("expected 3 calls (1 + 2 retries), got %d", mock.calls)
	}
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	mock := &mockStore{fn: func(_ int) ([]model.Feature, error) {
		return nil, errLocked
	}}

	ctx, cancel := context.WithCancel(context.Background())
	// Cancel immediately so the backoff sleep is interrupted.
	cancel()

	rs := NewRetryStore(mock, 2, time.Second, discardLogger())
	_, err := rs.UpdateFeatures(ctx, 7, nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected 1 call before cancellation, got %d", mock.calls)
	}
}

func TestRetry_ReadsPassThrough(t *testing.T) {
	mock := &mockStore{}
	rs := NewRetryStore(mock, 2, 10*time.Millisecond, discardLogger())
	if _, err := rs.ItemFeatures(context.Background(), 7); !errors.Is(err, errLocked) {
		t.Fatalf("expected inner error, got %v", err)
	}
	if mock.calls != 1 {
		t.Fatalf("expected reads not to be retried, got %d calls", mock.calls)
	}
}
