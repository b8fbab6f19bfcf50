package instrument

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

type recordingTransport struct {
	mu      sync.Mutex
	writes  []string
	replies map[string]string
	block   chan struct{}
	closed  int
}

func (r *recordingTransport) Write(_ context.Context, cmd string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.writes = append(r.writes, cmd)
	return nil
}

func (r *recordingTransport) Query(ctx context.Context, cmd string) (string, error) {
	if r.block != nil {
		select {
		case <-r.block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	reply, ok := r.replies[cmd]
	if !ok {
		return "", errors.New("unexpected query " + cmd)
	}
	return reply + "\n", nil
}

func (r *recordingTransport) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.closed++
	return nil
}

func TestDelayed_Delay(t *testing.T) {
	next := &recordingTransport{replies: map[string]string{"*IDN?": "A,B,C,D"}}
	d := NewDelayed(next, WithDelay(20*time.Millisecond))

	start := time.Now()
	if err := d.Write(context.Background(), "*RST"); err != nil {
		t.Fatalf("write: %v", err)
	}
	reply, err := d.Query(context.Background(), "*IDN?")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("expected at least two delays, took %v", elapsed)
	}
	if reply != "A,B,C,D" {
		t.Errorf("expected trimmed reply, got %q", reply)
	}
}

func TestDelayed_SetDelay(t *testing.T) {
	d := NewDelayed(&recordingTransport{}, WithDelay(time.Second))
	d.SetDelay(10 * time.Millisecond)

	if d.Delay() != 10*time.Millisecond {
		t.Errorf("expected 10ms delay, got %v", d.Delay())
	}
}

func TestDelayed_Timeout(t *testing.T) {
	next := &recordingTransport{block: make(chan struct{})}
	defer close(next.block)

	d := NewDelayed(next, WithTimeout(10*time.Millisecond))

	_, err := d.Query(context.Background(), ":MEAS:VPP? CHAN1")
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

// deafTransport answers queries only once released, ignoring the context
type deafTransport struct {
	recordingTransport
	release chan struct{}
}

func (d *deafTransport) Query(_ context.Context, _ string) (string, error) {
	<-d.release
	return "1.0\n", nil
}

func TestDelayed_StalledAfterTimeout(t *testing.T) {
	next := &deafTransport{release: make(chan struct{})}
	defer close(next.release)

	d := NewDelayed(next, WithTimeout(10*time.Millisecond))
	ctx := context.Background()

	if _, err := d.Query(ctx, ":MEAS:VPP? CHAN1"); !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}

	if err := d.Write(ctx, "*CLS"); !errors.Is(err, ErrStalled) {
		t.Errorf("expected ErrStalled on write, got %v", err)
	}
	if _, err := d.Query(ctx, "*IDN?"); !errors.Is(err, ErrStalled) {
		t.Errorf("expected ErrStalled on query, got %v", err)
	}

	next.mu.Lock()
	defer next.mu.Unlock()
	if len(next.writes) != 0 {
		t.Errorf("expected no writes to reach the bus, got %v", next.writes)
	}
}

func TestDelayed_Cancelled(t *testing.T) {
	next := &recordingTransport{block: make(chan struct{})}
	defer close(next.block)

	d := NewDelayed(next)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Query(ctx, ":MEAS:VPP? CHAN1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestDelayed_CloseOnce(t *testing.T) {
	next := &recordingTransport{}
	d := NewDelayed(next)

	for i := 0; i < 3; i++ {
		if err := d.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	}
	if next.closed != 1 {
		t.Errorf("expected one close, got %d", next.closed)
	}

	if err := d.Write(context.Background(), "*CLS"); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed after close, got %v", err)
	}
}

func TestParseFloat(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    float64
		wantErr bool
	}{
		{"plain", "1.25", 1.25, false},
		{"scientific", "+9.9E+37", 9.9e37, false},
		{"whitespace", " 2.5\n", 2.5, false},
		{"garbage", "ERROR", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFloat(tt.reply)
			if tt.wantErr {
				if !errors.Is(err, ErrMalformedReply) {
					t.Fatalf("expected ErrMalformedReply, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestStream_Query(t *testing.T) {
	rw := &pipe{reply: "1.5\n"}
	s := NewStream(rw)

	reply, err := s.Query(context.Background(), ":CHAN1:RANG?")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if reply != "1.5\n" {
		t.Errorf("unexpected reply %q", reply)
	}
	if rw.written.String() != ":CHAN1:RANG?\n" {
		t.Errorf("expected terminated command, got %q", rw.written.String())
	}
}

func TestStream_DeadlineError(t *testing.T) {
	rw := &deadlinePipe{}
	s := NewStream(rw)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if _, err := s.Query(ctx, ":CHAN1:RANG?"); !errors.Is(err, errDeadline) {
		t.Fatalf("expected the deadline error, got %v", err)
	}
	if rw.written.Len() != 0 {
		t.Errorf("expected nothing written, got %q", rw.written.String())
	}
}

var errDeadline = errors.New("deadline not supported")

type deadlinePipe struct {
	pipe
}

func (p *deadlinePipe) SetDeadline(time.Time) error {
	return errDeadline
}

type pipe struct {
	written strings.Builder
	reply   string
}

func (p *pipe) Read(b []byte) (int, error) {
	n := copy(b, p.reply)
	p.reply = p.reply[n:]
	return n, nil
}

func (p *pipe) Write(b []byte) (int, error) {
	return p.written.Write(b)
}

func (p *pipe) Close() error {
	return nil
}
