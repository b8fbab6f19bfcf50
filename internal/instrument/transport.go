package instrument

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	// DefaultTimeout bounds a single write or query round trip
	DefaultTimeout = 5 * time.Second

	terminator = "\n"
)

// Transport is a serialized write/query channel to one physical instrument.
// Implementations are not required to be safe for concurrent use, Delayed is.
type Transport interface {
	Write(ctx context.Context, cmd string) error
	Query(ctx context.Context, cmd string) (string, error)
	Close() error
}

// WithDelay sets the post-operation delay
func WithDelay(delay time.Duration) func(d *Delayed) {
	return func(d *Delayed) {
		d.delay = delay
	}
}

// WithTimeout sets the per-operation timeout, zero disables it
func WithTimeout(timeout time.Duration) func(d *Delayed) {
	return func(d *Delayed) {
		d.timeout = timeout
	}
}

// WithLogger sets the logger for the transport
func WithLogger(logger *slog.Logger) func(d *Delayed) {
	return func(d *Delayed) {
		d.logger = logger
	}
}

// Delayed wraps a Transport, serializing operations, sleeping a fixed delay
// after each of them and bounding each one with a timeout.
type Delayed struct {
	next Transport

	mu      sync.Mutex
	delay   time.Duration
	timeout time.Duration
	closed  bool
	stalled bool

	closeOnce sync.Once
	closeErr  error

	logger *slog.Logger
}

// NewDelayed creates a new Delayed transport with a discard logger
func NewDelayed(next Transport, options ...func(d *Delayed)) *Delayed {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // nil logger

	d := Delayed{
		next:    next,
		timeout: DefaultTimeout,
		logger:  logger,
	}

	for _, option := range options {
		option(&d)
	}

	return &d
}

// SetDelay changes the post-operation delay
func (d *Delayed) SetDelay(delay time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.delay = delay
}

// Delay returns the post-operation delay
func (d *Delayed) Delay() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.delay
}

func (d *Delayed) Write(ctx context.Context, cmd string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	if d.stalled {
		return ErrStalled
	}

	d.logger.Debug("write", slog.String("cmd", cmd))

	_, err := d.do(ctx, func(ctx context.Context) (string, error) {
		return "", d.next.Write(ctx, cmd)
	})
	if err != nil {
		return fmt.Errorf("writing %q: %w", cmd, err)
	}
	return nil
}

func (d *Delayed) Query(ctx context.Context, cmd string) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return "", ErrClosed
	}
	if d.stalled {
		return "", ErrStalled
	}

	reply, err := d.do(ctx, func(ctx context.Context) (string, error) {
		return d.next.Query(ctx, cmd)
	})
	if err != nil {
		return "", fmt.Errorf("querying %q: %w", cmd, err)
	}

	d.logger.Debug("query", slog.String("cmd", cmd), slog.String("reply", reply))
	return reply, nil
}

// do runs op with the timeout applied and sleeps the delay afterward. An op
// still running when do returns stalls the transport for good.
// Must be called with mu held.
func (d *Delayed) do(ctx context.Context, op func(ctx context.Context) (string, error)) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	opCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		opCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	type result struct {
		reply string
		err   error
	}

	done := make(chan result, 1)
	go func() {
		reply, err := op(opCtx)
		done <- result{reply, err}
	}()

	var res result
	select {
	case res = <-done:
	case <-opCtx.Done():
		select {
		case res = <-done:
		default:
			res.err = opCtx.Err()
			d.stalled = true
			d.logger.Warn("operation abandoned, transport stalled", slog.Any("error", res.err))
		}
	}
	if res.err != nil {
		switch {
		case ctx.Err() != nil:
			return "", ctx.Err()
		case errors.Is(opCtx.Err(), context.DeadlineExceeded):
			return "", ErrTimeout
		}
		return "", res.err
	}

	if d.delay > 0 {
		timer := time.NewTimer(d.delay)
		defer timer.Stop()

		select {
		case <-timer.C:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return strings.TrimSpace(res.reply), nil
}

// Close closes the underlying transport exactly once
func (d *Delayed) Close() error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		defer d.mu.Unlock()

		d.closed = true
		d.closeErr = d.next.Close()
	})

	return d.closeErr
}

// ParseFloat parses a numeric instrument reply
func ParseFloat(reply string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(reply), 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrMalformedReply, reply)
	}
	return v, nil
}

// FormatFloat formats a numeric command argument as decimal text
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
