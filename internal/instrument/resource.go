package instrument

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
)

const (
	InterfaceTCPIP Interface = "TCPIP"
	InterfaceASRL  Interface = "ASRL"
	InterfaceGPIB  Interface = "GPIB"
	InterfaceUSB   Interface = "USB"
	InterfaceSim   Interface = "SIM"

	defaultSocketPort = 5025
	defaultBaudRate   = 9600
)

// Interface is the bus type prefix of a resource name
type Interface string

func (i Interface) String() string {
	return string(i)
}

// Resource is a parsed resource name, e.g. "TCPIP::192.168.1.5::5025::SOCKET",
// "ASRL::/dev/ttyUSB0::9600", "GPIB::/dev/ttyUSB0::10",
// "USB::0x0957::0x1796::MY12345678::INSTR" or "SIM::scope".
type Resource struct {
	Name      string
	Interface Interface

	// Address is the host, the serial device path or the simulated role
	Address string

	// Port is the TCP port, the baud rate or the GPIB primary address
	Port int

	VendorID  uint16
	ProductID uint16
	Serial    string
}

// ParseResource parses a resource name
func ParseResource(name string) (Resource, error) {
	r := Resource{Name: name}

	parts := strings.Split(strings.TrimSpace(name), "::")
	if len(parts) < 2 {
		return r, fmt.Errorf("%w: %q", ErrResourceNotFound, name)
	}

	// drop the trailing resource class
	if last := strings.ToUpper(parts[len(parts)-1]); last == "INSTR" || last == "SOCKET" {
		parts = parts[:len(parts)-1]
	}

	// board numbers such as TCPIP0 or USB0 are accepted and ignored
	prefix := strings.TrimRight(strings.ToUpper(parts[0]), "0123456789")
	r.Interface = Interface(prefix)

	var err error
	switch r.Interface {
	case InterfaceTCPIP:
		r.Address = parts[1]
		r.Port = defaultSocketPort
		if len(parts) > 2 {
			r.Port, err = strconv.Atoi(parts[2])
		}

	case InterfaceASRL:
		r.Address = parts[1]
		r.Port = defaultBaudRate
		if len(parts) > 2 {
			r.Port, err = strconv.Atoi(parts[2])
		}

	case InterfaceGPIB:
		if len(parts) < 3 {
			return r, fmt.Errorf("%w: %q: missing GPIB address", ErrResourceNotFound, name)
		}
		r.Address = parts[1]
		r.Port, err = strconv.Atoi(parts[2])

	case InterfaceUSB:
		if len(parts) < 3 {
			return r, fmt.Errorf("%w: %q: missing product ID", ErrResourceNotFound, name)
		}
		var vid, pid uint64
		if vid, err = strconv.ParseUint(parts[1], 0, 16); err != nil {
			break
		}
		if pid, err = strconv.ParseUint(parts[2], 0, 16); err != nil {
			break
		}
		r.VendorID, r.ProductID = uint16(vid), uint16(pid)
		if len(parts) > 3 {
			r.Serial = parts[3]
		}

	case InterfaceSim:
		r.Address = strings.ToLower(parts[1])

	default:
		return r, fmt.Errorf("%w: %q: unknown interface %q", ErrResourceNotFound, name, parts[0])
	}
	if err != nil {
		return r, fmt.Errorf("%w: %q: %w", ErrResourceNotFound, name, err)
	}

	return r, nil
}

// Backend opens a raw transport for a parsed resource
type Backend func(ctx context.Context, r Resource) (Transport, error)

// WithBackend registers a backend for an interface
func WithBackend(i Interface, b Backend) func(m *Manager) {
	return func(m *Manager) {
		m.backends[i] = b
	}
}

// WithManagerLogger sets the logger for the manager and the transports it opens
func WithManagerLogger(logger *slog.Logger) func(m *Manager) {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithTransportOptions sets options applied to every opened Delayed transport
func WithTransportOptions(options ...func(d *Delayed)) func(m *Manager) {
	return func(m *Manager) {
		m.transportOptions = append(m.transportOptions, options...)
	}
}

// Manager opens transports from resource names
type Manager struct {
	backends         map[Interface]Backend
	transportOptions []func(d *Delayed)
	logger           *slog.Logger
}

// NewManager creates a Manager with the TCP, serial, GPIB and USB backends
func NewManager(options ...func(m *Manager)) *Manager {
	m := Manager{
		backends: map[Interface]Backend{
			InterfaceTCPIP: OpenSocket,
			InterfaceASRL:  OpenSerial,
			InterfaceGPIB:  OpenGPIB,
			InterfaceUSB:   OpenUSBTMC,
		},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	for _, option := range options {
		option(&m)
	}

	return &m
}

// Open parses the resource name and opens a delayed transport to it
func (m *Manager) Open(ctx context.Context, name string) (*Delayed, error) {
	r, err := ParseResource(name)
	if err != nil {
		return nil, err
	}

	backend, ok := m.backends[r.Interface]
	if !ok {
		return nil, fmt.Errorf("%w: %q: interface %s is not available", ErrResourceNotFound, name, r.Interface)
	}

	t, err := backend(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %w", ErrResourceNotFound, name, err)
	}

	logger := m.logger.With(slog.String("resource", name))
	options := append([]func(d *Delayed){WithLogger(logger)}, m.transportOptions...)

	return NewDelayed(t, options...), nil
}
