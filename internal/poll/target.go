package poll

import (
	"context"
	"log"
	"sync"
	"time"
)

// Poller is the type-erased view of a Target that the Scheduler manages.
type Poller interface {
	Name() string
	Interval() time.Duration
	Start() bool
	Stop()
	Active() bool
	Refresh(ctx context.Context) error
	Status() Status
	Wait()
}

// Status is a point-in-time copy of a target's state.
type Status struct {
	Name      string    `json:"name"`
	Active    bool      `json:"active"`
	Interval  string    `json:"interval"`
	Degraded  bool      `json:"degraded"`
	Value     any       `json:"value,omitempty"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
	Fetches   int       `json:"fetches"`
}

type Logger interface {
	Printf(format string, args ...any)
}

// Config describes one periodically refreshed remote snapshot.
type Config[T any] struct {
	Name     string
	Interval time.Duration
	// Timeout bounds each fetch. Zero leaves fetches unbounded.
	Timeout time.Duration
	Fetch   func(ctx context.Context) (T, error)
	Render  func(value T)
	Degrade func(err error)
	Logger  Logger
}

// Target polls one endpoint. While active every tick starts its own fetch;
// a slow fetch does not hold back the next tick, and whichever completes
// last sets the state. Renders follow completion order and an outcome older
// than one already rendered is dropped, so the sink never ends on a value
// other than Last.
type Target[T any] struct {
	cfg Config[T]
	ctx context.Context

	mu        sync.Mutex
	active    bool
	stop      chan struct{}
	lastValue T
	hasValue  bool
	lastError error
	updatedAt time.Time
	fetches   int
	completed uint64

	renderMu sync.Mutex
	rendered uint64

	inflight sync.WaitGroup
}

// NewTarget binds the target to ctx. Fetches run under ctx rather than under
// the start/stop lifecycle, so Stop never aborts a fetch already in flight.
func NewTarget[T any](ctx context.Context, cfg Config[T]) *Target[T] {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	return &Target[T]{cfg: cfg, ctx: ctx}
}

func (t *Target[T]) Name() string { return t.cfg.Name }

func (t *Target[T]) Interval() time.Duration { return t.cfg.Interval }

// Start fetches immediately and then on every interval. It returns false and
// does nothing if the target is already active.
func (t *Target[T]) Start() bool {
	t.mu.Lock()
	if t.active {
		t.mu.Unlock()
		return false
	}
	t.active = true
	stop := make(chan struct{})
	t.stop = stop
	t.mu.Unlock()

	t.tick(stop)
	if t.cfg.Interval > 0 {
		go t.loop(stop)
	}
	return true
}

// Stop cancels the timer. Calling it on an inactive target is a no-op.
func (t *Target[T]) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return
	}
	t.active = false
	close(t.stop)
	t.stop = nil
}

func (t *Target[T]) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Refresh runs one synchronous fetch-and-render, independent of the timer.
func (t *Target[T]) Refresh(ctx context.Context) error {
	t.inflight.Add(1)
	defer t.inflight.Done()
	return t.fetch(ctx)
}

// Wait blocks until every fetch started so far has completed.
func (t *Target[T]) Wait() {
	t.inflight.Wait()
}

// Last returns the most recent successful value.
func (t *Target[T]) Last() (T, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastValue, t.hasValue
}

func (t *Target[T]) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := Status{
		Name:      t.cfg.Name,
		Active:    t.active,
		Interval:  t.cfg.Interval.String(),
		Degraded:  t.lastError != nil,
		UpdatedAt: t.updatedAt,
		Fetches:   t.fetches,
	}
	if t.hasValue {
		s.Value = t.lastValue
	}
	if t.lastError != nil {
		s.Error = t.lastError.Error()
	}
	return s
}

func (t *Target[T]) loop(stop chan struct{}) {
	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.ctx.Done():
			return
		case <-ticker.C:
			t.tick(stop)
		}
	}
}

// tick starts a fetch unless the run that armed it has been stopped.
func (t *Target[T]) tick(stop chan struct{}) {
	t.mu.Lock()
	if !t.active || t.stop != stop {
		t.mu.Unlock()
		return
	}
	t.inflight.Add(1)
	t.mu.Unlock()

	go func() {
		defer t.inflight.Done()
		_ = t.fetch(t.ctx)
	}()
}

func (t *Target[T]) fetch(ctx context.Context) error {
	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}
	value, err := t.cfg.Fetch(ctx)

	t.mu.Lock()
	t.fetches++
	t.completed++
	seq := t.completed
	t.updatedAt = time.Now()
	if err != nil {
		t.lastError = err
	} else {
		t.lastError = nil
		t.lastValue = value
		t.hasValue = true
	}
	t.mu.Unlock()

	if err != nil {
		t.cfg.Logger.Printf("poll %s: %v", t.cfg.Name, err)
	}
	t.render(seq, value, err)
	return err
}

func (t *Target[T]) render(seq uint64, value T, err error) {
	t.renderMu.Lock()
	defer t.renderMu.Unlock()
	if seq < t.rendered {
		return
	}
	t.rendered = seq
	switch {
	case err != nil && t.cfg.Degrade != nil:
		t.cfg.Degrade(err)
	case err == nil && t.cfg.Render != nil:
		t.cfg.Render(value)
	}
}
