package instrument

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/tarm/serial"
)

const serialReadTimeout = 2 * time.Second

// deadliner is implemented by connections supporting I/O deadlines
type deadliner interface {
	SetDeadline(t time.Time) error
}

// Stream is a newline-terminated transport over a byte stream
type Stream struct {
	rwc    io.ReadWriteCloser
	reader *bufio.Reader
}

func NewStream(rwc io.ReadWriteCloser) *Stream {
	return &Stream{
		rwc:    rwc,
		reader: bufio.NewReader(rwc),
	}
}

func (s *Stream) applyDeadline(ctx context.Context) error {
	dl, ok := s.rwc.(deadliner)
	if !ok {
		return nil
	}
	deadline, _ := ctx.Deadline()
	if err := dl.SetDeadline(deadline); err != nil { // zero deadline clears it
		return fmt.Errorf("setting deadline: %w", err)
	}
	return nil
}

func (s *Stream) Write(ctx context.Context, cmd string) error {
	if err := s.applyDeadline(ctx); err != nil {
		return err
	}

	if _, err := io.WriteString(s.rwc, cmd+terminator); err != nil {
		return err
	}
	return nil
}

func (s *Stream) Query(ctx context.Context, cmd string) (string, error) {
	if err := s.Write(ctx, cmd); err != nil {
		return "", err
	}

	line, err := s.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading reply: %w", err)
	}
	return line, nil
}

func (s *Stream) Close() error {
	return s.rwc.Close()
}

// OpenSocket opens a raw SCPI socket, usually port 5025 (Keysight) or 5555 (Rigol)
func OpenSocket(ctx context.Context, r Resource) (Transport, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(r.Address, strconv.Itoa(r.Port)))
	if err != nil {
		return nil, fmt.Errorf("dialing: %w", err)
	}
	return NewStream(conn), nil
}

// OpenSerial opens an RS-232 instrument port, 8N1
func OpenSerial(_ context.Context, r Resource) (Transport, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        r.Address,
		Baud:        r.Port,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
		ReadTimeout: serialReadTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("opening serial port: %w", err)
	}
	return NewStream(port), nil
}
