package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

var (
	ErrAlreadyRunning = errors.New("poll loop already running")
	ErrInvalidConfig  = errors.New("invalid poll loop config")
)

// State is the per-loop request state. Ticks arriving while a request is
// in flight are dropped, never queued.
type State int32

const (
	StateIdle State = iota
	StateInFlight
)

func (s State) String() string {
	if s == StateInFlight {
		return "in_flight"
	}
	return "idle"
}

// FetchFunc performs one request. It must honour ctx cancellation.
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Sink receives the outcome of each poll. Calls are serialized per loop and
// never happen after Stop has returned.
type Sink[T any] interface {
	OnSuccess(value T)
	OnFailure(err error)
}

// Observer is notified of poll outcomes, typically a metrics recorder.
type Observer interface {
	ObservePoll(loop, outcome string, d time.Duration)
	TickSkipped(loop string)
}

// Config holds the timing of a poll loop
type Config struct {
	Name     string
	Interval time.Duration
	Timeout  time.Duration
	// Immediate fires the first poll on Start instead of one interval later
	Immediate bool
}

// Validate validates the loop timing
func (c Config) Validate() error {
	if c.Interval <= 0 {
		return fmt.Errorf("%w: interval must be positive", ErrInvalidConfig)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	return nil
}

// Stats is a snapshot of loop counters
type Stats struct {
	Ticks     int64
	Skipped   int64
	Succeeded int64
	Failed    int64
}

// Loop polls a source on a fixed interval with at most one request in flight.
type Loop[T any] struct {
	cfg      Config
	fetch    FetchFunc[T]
	sink     Sink[T]
	observer Observer
	classify func(error) string
	logger   *slog.Logger

	state atomic.Int32

	// mu guards ctx/cancel and serializes commits against Stop
	mu     sync.Mutex
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	ticks     atomic.Int64
	skipped   atomic.Int64
	succeeded atomic.Int64
	failed    atomic.Int64
}

// Option customizes a Loop
type Option func(*options)

type options struct {
	logger   *slog.Logger
	observer Observer
	classify func(error) string
}

// WithLogger sets the loop logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithObserver sets the outcome observer
func WithObserver(observer Observer) Option {
	return func(o *options) { o.observer = observer }
}

// WithClassifier sets the function mapping a poll error to an outcome label
func WithClassifier(classify func(error) string) Option {
	return func(o *options) { o.classify = classify }
}

// New creates a stopped loop. Call Start to begin polling.
func New[T any](cfg Config, fetch FetchFunc[T], sink Sink[T], opts ...Option) *Loop[T] {
	o := options{
		logger:   slog.Default(),
		observer: noopObserver{},
		classify: DefaultClassify,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.observer == nil {
		o.observer = noopObserver{}
	}

	return &Loop[T]{
		cfg:      cfg,
		fetch:    fetch,
		sink:     sink,
		observer: o.observer,
		classify: o.classify,
		logger:   o.logger.With("component", "poller", "loop", cfg.Name),
	}
}

// Start begins ticking. The loop runs until Stop is called or parent is cancelled.
func (l *Loop[T]) Start(parent context.Context) error {
	if err := l.cfg.Validate(); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.cancel != nil {
		return ErrAlreadyRunning
	}

	l.ctx, l.cancel = context.WithCancel(parent)
	l.wg.Add(1)
	go l.run(l.ctx)

	l.logger.Debug("Poll loop started",
		"interval", l.cfg.Interval,
		"timeout", l.cfg.Timeout,
	)
	return nil
}

// Stop cancels the ticker and any in-flight request and waits for both to finish.
// No sink call happens after Stop returns.
func (l *Loop[T]) Stop() {
	l.mu.Lock()
	if l.cancel == nil {
		l.mu.Unlock()
		return
	}
	l.cancel()
	l.cancel = nil
	l.mu.Unlock()

	l.wg.Wait()
	l.state.Store(int32(StateIdle))
	l.logger.Debug("Poll loop stopped", "ticks", l.ticks.Load(), "skipped", l.skipped.Load())
}

// Running reports whether Start has been called without a matching Stop.
func (l *Loop[T]) Running() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancel != nil
}

// State returns the current request state.
func (l *Loop[T]) State() State {
	return State(l.state.Load())
}

// Stats returns the loop counters.
func (l *Loop[T]) Stats() Stats {
	return Stats{
		Ticks:     l.ticks.Load(),
		Skipped:   l.skipped.Load(),
		Succeeded: l.succeeded.Load(),
		Failed:    l.failed.Load(),
	}
}

func (l *Loop[T]) run(ctx context.Context) {
	defer l.wg.Done()

	ticker := time.NewTicker(l.cfg.Interval)
	defer ticker.Stop()

	if l.cfg.Immediate {
		l.tick(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

// tick issues a request unless one is already in flight.
func (l *Loop[T]) tick(ctx context.Context) bool {
	l.ticks.Add(1)

	if ctx.Err() != nil {
		return false
	}
	if !l.state.CompareAndSwap(int32(StateIdle), int32(StateInFlight)) {
		l.skipped.Add(1)
		l.observer.TickSkipped(l.cfg.Name)
		l.logger.Debug("Skipping tick, request still in flight")
		return false
	}

	l.wg.Add(1)
	go l.poll(ctx)
	return true
}

func (l *Loop[T]) poll(ctx context.Context) {
	defer l.wg.Done()
	defer l.state.Store(int32(StateIdle))

	reqCtx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	start := time.Now()
	value, err := l.fetch(reqCtx)
	l.observer.ObservePoll(l.cfg.Name, l.classify(err), time.Since(start))

	l.mu.Lock()
	defer l.mu.Unlock()

	// torn down while the request was out: drop the result
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		l.failed.Add(1)
		l.logger.Debug("Poll failed", "error", err)
		l.sink.OnFailure(err)
		return
	}

	l.succeeded.Add(1)
	l.sink.OnSuccess(value)
}

// DefaultClassify maps an error to a coarse outcome label.
func DefaultClassify(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "error"
	}
}

type noopObserver struct{}

func (noopObserver) ObservePoll(string, string, time.Duration) {}
func (noopObserver) TickSkipped(string)                        {}
