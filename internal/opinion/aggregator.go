package opinion

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/peacoop/campaign-site/internal/normalize"
	"github.com/peacoop/campaign-site/internal/types"
)

// OpinionFetcher lists the raw opinion rows.
type OpinionFetcher interface {
	FetchOpinions(ctx context.Context) ([]types.Row, error)
}

// AggregatorOptions configures an Aggregator.
type AggregatorOptions struct {
	Fetcher  OpinionFetcher
	Limit    int
	MinScale float64
	MaxScale float64
	Timeout  time.Duration // bounds a scheduled reload; zero means no bound
	Logger   *zap.Logger
}

// Aggregator keeps the current tag cloud.
type Aggregator struct {
	fetcher  OpinionFetcher
	limit    int
	minScale float64
	maxScale float64
	timeout  time.Duration
	logger   *zap.Logger

	mu        sync.RWMutex
	cloud     []types.TagCount
	pending   *time.Timer
	listeners []func([]types.TagCount)
}

// NewAggregator creates an aggregator with an empty cloud.
func NewAggregator(opts AggregatorOptions) *Aggregator {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultTagLimit
	}
	minScale, maxScale := opts.MinScale, opts.MaxScale
	if minScale == 0 && maxScale == 0 {
		minScale, maxScale = DefaultMinScale, DefaultMaxScale
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{
		fetcher:  opts.Fetcher,
		limit:    limit,
		minScale: minScale,
		maxScale: maxScale,
		timeout:  opts.Timeout,
		logger:   logger.Named("opinion"),
		cloud:    []types.TagCount{},
	}
}

// Cloud returns a copy of the current tag cloud.
func (a *Aggregator) Cloud() []types.TagCount {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]types.TagCount, len(a.cloud))
	copy(out, a.cloud)
	return out
}

// Subscribe registers fn to receive every cloud set by Reload, including the
// empty cloud of a failed reload. fn runs on the reloading goroutine.
func (a *Aggregator) Subscribe(fn func([]types.TagCount)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.listeners = append(a.listeners, fn)
}

// Reload rebuilds the cloud from every stored opinion. An unreachable store
// or a store error leaves an empty cloud; the error is returned for logging.
func (a *Aggregator) Reload(ctx context.Context) ([]types.TagCount, error) {
	rows, err := a.fetcher.FetchOpinions(ctx)
	if err != nil {
		a.logger.Warn("Failed to load opinions", zap.Error(err))
		a.set([]types.TagCount{})
		return []types.TagCount{}, err
	}

	opinions := normalize.Opinions(rows)
	cloud := Scale(BuildTagFrequency(opinions, a.limit), a.minScale, a.maxScale)
	a.set(cloud)

	a.logger.Debug("Tag cloud rebuilt", zap.Int("opinions", len(opinions)), zap.Int("tags", len(cloud)))
	return a.Cloud(), nil
}

// ReloadAfter schedules a Reload once delay has passed. A reload scheduled
// earlier that has not started yet is replaced.
func (a *Aggregator) ReloadAfter(delay time.Duration) *time.Timer {
	timer := time.AfterFunc(delay, func() {
		ctx := context.Background()
		if a.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.timeout)
			defer cancel()
		}
		_, _ = a.Reload(ctx)
	})

	a.mu.Lock()
	if a.pending != nil {
		a.pending.Stop()
	}
	a.pending = timer
	a.mu.Unlock()
	return timer
}

// Stop cancels the scheduled reload, if it has not started yet.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.pending != nil {
		a.pending.Stop()
		a.pending = nil
	}
}

func (a *Aggregator) set(cloud []types.TagCount) {
	a.mu.Lock()
	a.cloud = cloud
	listeners := append(([]func([]types.TagCount))(nil), a.listeners...)
	a.mu.Unlock()

	for _, fn := range listeners {
		out := make([]types.TagCount, len(cloud))
		copy(out, cloud)
		fn(out)
	}
}
