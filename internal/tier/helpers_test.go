package tier_test

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/questai/mongodb-tools-api/internal/constant"
	"github.com/questai/mongodb-tools-api/internal/tier"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// stubFetcher returns the tier mapped to the bearer token, or err when set.
// With delay set it answers late, failing early if ctx is done first.
type stubFetcher struct {
	tiers map[string]tier.Tier
	err   error
	delay time.Duration
	calls atomic.Int64
}

func (s *stubFetcher) FetchTier(ctx context.Context, _ string, headers map[string]string) (tier.Tier, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return tier.Free, ctx.Err()
		}
	}
	if s.err != nil {
		return tier.Free, s.err
	}
	token := strings.TrimPrefix(headers[constant.HeaderAuthorization], constant.BearerPrefix)
	return s.tiers[token], nil
}

func (s *stubFetcher) Calls() int {
	return int(s.calls.Load())
}

func bearer(token string) map[string]string {
	return map[string]string{constant.HeaderAuthorization: constant.BearerPrefix + token}
}
