// Package prefetch refreshes chart caches on a timer so request-time reads
// land on warm entries.
package prefetch

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/JakeFAU/melon-chart-api/internal/melon"
	"github.com/JakeFAU/melon-chart-api/internal/metrics"
)

// DefaultInterval sits just under the default one minute chart TTL.
const DefaultInterval = 50 * time.Second

// ErrInvalidInterval rejects a non-positive refresh interval.
var ErrInvalidInterval = errors.New("prefetch interval must be positive")

// ChartSource reads a chart through the same cache path as inbound requests.
// Entries older than maxAge are recomputed; younger ones are returned as is.
type ChartSource interface {
	RefreshChart(ctx context.Context, ct melon.ChartType, maxAge time.Duration) ([]melon.Track, error)
}

// Config controls the scheduler. Nil callbacks fall back to logging.
type Config struct {
	Enabled   bool
	Interval  time.Duration
	OnSuccess func(ct melon.ChartType)
	OnError   func(ct melon.ChartType, err error)
}

// Update is a partial Config. Nil fields keep their current value.
type Update struct {
	Enabled   *bool
	Interval  *time.Duration
	OnSuccess func(ct melon.ChartType)
	OnError   func(ct melon.ChartType, err error)
}

// Scheduler runs one periodic refresh per chart kind.
type Scheduler struct {
	source ChartSource
	logger *zap.Logger

	mu    sync.Mutex
	cfg   Config
	tasks map[melon.ChartType]context.CancelFunc
}

// New builds a stopped Scheduler.
func New(source ChartSource, cfg Config, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	metrics.Init()
	s := &Scheduler{
		source: source,
		logger: logger.Named("prefetch"),
		tasks:  make(map[melon.ChartType]context.CancelFunc),
	}
	s.cfg = s.withDefaultCallbacks(cfg)
	return s
}

func (s *Scheduler) withDefaultCallbacks(cfg Config) Config {
	if cfg.OnSuccess == nil {
		cfg.OnSuccess = func(ct melon.ChartType) {
			s.logger.Info("chart prefetched", zap.String("chart", string(ct)))
		}
	}
	if cfg.OnError == nil {
		cfg.OnError = func(ct melon.ChartType, err error) {
			s.logger.Error("chart prefetch failed", zap.String("chart", string(ct)), zap.Error(err))
		}
	}
	return cfg
}

// Start refreshes every chart once in the background, then arms one ticker
// per chart. It is a no-op when already running or disabled.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startLocked()
}

func (s *Scheduler) startLocked() {
	if len(s.tasks) > 0 || !s.cfg.Enabled {
		return
	}
	cfg := s.cfg

	go func() {
		_ = s.prefetchAll(context.Background(), cfg)
	}()

	for _, ct := range melon.ChartTypes() {
		ctx, cancel := context.WithCancel(context.Background())
		s.tasks[ct] = cancel
		go s.run(ctx, ct, cfg)
	}
	metrics.SetPrefetchActive(true)
	s.logger.Info("prefetcher started", zap.Duration("interval", cfg.Interval))
}

// Stop cancels every ticker. Refreshes already running finish on their own.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

func (s *Scheduler) stopLocked() {
	if len(s.tasks) == 0 {
		return
	}
	for ct, cancel := range s.tasks {
		cancel()
		delete(s.tasks, ct)
	}
	metrics.SetPrefetchActive(false)
	s.logger.Info("prefetcher stopped")
}

// IsActive reports whether the tickers are armed.
func (s *Scheduler) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks) > 0
}

// UpdateConfig applies u. A running scheduler is restarted with the new
// settings, or left stopped when u disables it.
func (s *Scheduler) UpdateConfig(u Update) error {
	if u.Interval != nil && *u.Interval <= 0 {
		return ErrInvalidInterval
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	wasRunning := len(s.tasks) > 0
	s.stopLocked()

	if u.Enabled != nil {
		s.cfg.Enabled = *u.Enabled
	}
	if u.Interval != nil {
		s.cfg.Interval = *u.Interval
	}
	if u.OnSuccess != nil {
		s.cfg.OnSuccess = u.OnSuccess
	}
	if u.OnError != nil {
		s.cfg.OnError = u.OnError
	}

	if wasRunning {
		s.startLocked()
	}
	return nil
}

// PrefetchAll refreshes every chart concurrently and returns the first error.
// Each failure is also reported through the error callback.
func (s *Scheduler) PrefetchAll(ctx context.Context) error {
	s.mu.Lock()
	cfg := s.cfg
	s.mu.Unlock()
	return s.prefetchAll(ctx, cfg)
}

func (s *Scheduler) prefetchAll(ctx context.Context, cfg Config) error {
	var g errgroup.Group
	for _, ct := range melon.ChartTypes() {
		g.Go(func() error {
			return s.refresh(ctx, ct, cfg)
		})
	}
	return g.Wait()
}

func (s *Scheduler) run(ctx context.Context, ct melon.ChartType, cfg Config) {
	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()
	s.loop(ctx, ct, cfg, ticker.C)
}

func (s *Scheduler) loop(ctx context.Context, ct melon.ChartType, cfg Config, ticks <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticks:
			// select picks at random when a tick and Stop are both ready.
			if ctx.Err() != nil {
				return
			}
			_ = s.refresh(ctx, ct, cfg)
		}
	}
}

// maxAge is the entry age past which a tick recomputes. Half the interval
// keeps a refresh from hitting the entry the previous tick stored.
func maxAge(cfg Config) time.Duration {
	return cfg.Interval / 2
}

// refresh reads ct through the source. The read is detached from ctx so a
// Stop does not abort a fetch that other callers may be sharing.
func (s *Scheduler) refresh(ctx context.Context, ct melon.ChartType, cfg Config) error {
	_, err := s.source.RefreshChart(context.WithoutCancel(ctx), ct, maxAge(cfg))
	if err != nil {
		metrics.ObservePrefetch(string(ct), "error")
		s.callback(func() { cfg.OnError(ct, err) })
		return err
	}
	metrics.ObservePrefetch(string(ct), "ok")
	s.callback(func() { cfg.OnSuccess(ct) })
	return nil
}

func (s *Scheduler) callback(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("prefetch callback panicked", zap.Any("panic", r))
		}
	}()
	fn()
}
