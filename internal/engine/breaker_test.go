package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cliffyan/go-biz-search/internal/search"
)

type stubAdapter struct {
	calls int
	err   error
}

func (s *stubAdapter) Name() string { return "stub" }

func (s *stubAdapter) Search(ctx context.Context, query string, limit int) ([]search.RawResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []search.RawResult{{Title: query, URL: "https://stub.example/"}}, nil
}

func TestBreaker_OpensAfterConsecutiveFailures(t *testing.T) {
	inner := &stubAdapter{err: errors.New("blocked")}
	b := WithBreaker(inner, BreakerSettings{ConsecutiveFailures: 2, OpenTimeout: time.Minute}, nil)

	for i := 0; i < 2; i++ {
		_, err := b.Search(context.Background(), "q", 5)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, b.State())

	_, err := b.Search(context.Background(), "q", 5)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Contains(t, err.Error(), "circuit open")
	assert.Equal(t, 2, inner.calls)
}

func TestBreaker_HalfOpenRecovers(t *testing.T) {
	inner := &stubAdapter{err: errors.New("blocked")}
	b := WithBreaker(inner, BreakerSettings{ConsecutiveFailures: 1, OpenTimeout: 20 * time.Millisecond}, nil)

	_, err := b.Search(context.Background(), "q", 5)
	require.Error(t, err)
	require.Equal(t, gobreaker.StateOpen, b.State())

	time.Sleep(30 * time.Millisecond)
	inner.err = nil
	results, err := b.Search(context.Background(), "q", 5)

	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, gobreaker.StateClosed, b.State())
}

func TestBreaker_CancellationDoesNotTrip(t *testing.T) {
	inner := &stubAdapter{err: context.Canceled}
	b := WithBreaker(inner, BreakerSettings{ConsecutiveFailures: 1}, nil)

	for i := 0; i < 3; i++ {
		_, err := b.Search(context.Background(), "q", 5)
		assert.ErrorIs(t, err, context.Canceled)
	}
	assert.Equal(t, gobreaker.StateClosed, b.State())
	assert.Equal(t, "stub", b.Name())
}
