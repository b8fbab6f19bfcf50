package bode

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
)

const (
	EventProgress EventKind = iota
	EventLog
	EventResult
	EventError
	EventFinished
)

// ErrAlreadyRunning is returned when starting a runner that is busy
var ErrAlreadyRunning = errors.New("measurement is already running")

// EventKind identifies what an Event reports
type EventKind int

func (k EventKind) String() string {
	switch k {
	case EventProgress:
		return "progress"
	case EventLog:
		return "log"
	case EventResult:
		return "result"
	case EventError:
		return "error"
	case EventFinished:
		return "finished"
	}
	return "unknown"
}

// Event is a run-control notification. Only the fields of its kind are set.
type Event struct {
	Kind     EventKind
	Progress int
	Message  string
	Samples  []Sample
	Err      error
}

// Run drives m one state at a time until it finishes or ctx is cancelled,
// delivering events to handler. On failure an error event is delivered
// and m is reset, discarding the partial samples. A finished event always
// closes the run.
func Run(ctx context.Context, m *Measurement, handler func(Event)) error {
	if handler == nil {
		handler = func(Event) {}
	}

	m.emit = handler
	defer func() {
		m.emit = func(Event) {}
		handler(Event{Kind: EventFinished})
	}()

	for !m.Finished() {
		err := ctx.Err()
		if err == nil {
			err = m.Step(ctx)
		}
		if err != nil {
			m.logger.Error("measurement aborted", slog.String("state", m.State().String()), slog.Any("error", err))
			m.Reset()
			handler(Event{Kind: EventError, Err: err})
			return err
		}
	}

	handler(Event{Kind: EventResult, Samples: m.Result()})
	return nil
}

// WithRunnerLogger sets the logger for the runner
func WithRunnerLogger(logger *slog.Logger) func(r *Runner) {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithBuffer sets the capacity of the event channel
func WithBuffer(size int) func(r *Runner) {
	return func(r *Runner) {
		r.buffer = size
	}
}

// Runner executes one measurement at a time on a dedicated goroutine
type Runner struct {
	isRunning atomic.Bool
	mu        sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup

	buffer int
	logger *slog.Logger
}

func NewRunner(options ...func(r *Runner)) *Runner {
	r := Runner{
		buffer: 16,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&r)
	}

	return &r
}

// Start runs m in the background. The returned channel receives the run's
// events and is closed after the finished event.
func (r *Runner) Start(ctx context.Context, m *Measurement) (<-chan Event, error) {
	if !r.isRunning.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}

	m.Reset()

	r.mu.Lock()
	ctx, r.cancel = context.WithCancel(ctx)
	r.mu.Unlock()

	events := make(chan Event, r.buffer)

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer r.isRunning.Store(false)
		defer close(events)

		r.logger.Info("measurement started", slog.String("mode", m.Config().Mode.String()))

		err := Run(ctx, m, func(e Event) {
			events <- e
		})
		if err != nil {
			r.logger.Error("measurement failed", slog.Any("error", err))
			return
		}

		r.logger.Info("measurement finished", slog.Int("samples", len(m.Result())))
	}()

	return events, nil
}

// Stop cancels the running measurement and waits for it to return. The
// measurement stops at the next state boundary. Events not yet consumed
// must be drained by the caller for Stop to return.
func (r *Runner) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// IsRunning returns true while a measurement is in progress
func (r *Runner) IsRunning() bool {
	return r.isRunning.Load()
}
