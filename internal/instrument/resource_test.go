package instrument

import (
	"context"
	"errors"
	"testing"
)

func TestParseResource(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Resource
		wantErr bool
	}{
		{
			name:  "socket with port",
			input: "TCPIP::192.168.1.5::5555::SOCKET",
			want:  Resource{Interface: InterfaceTCPIP, Address: "192.168.1.5", Port: 5555},
		},
		{
			name:  "socket default port with board",
			input: "TCPIP0::scope.lab",
			want:  Resource{Interface: InterfaceTCPIP, Address: "scope.lab", Port: 5025},
		},
		{
			name:  "serial",
			input: "ASRL::/dev/ttyUSB0::57600::INSTR",
			want:  Resource{Interface: InterfaceASRL, Address: "/dev/ttyUSB0", Port: 57600},
		},
		{
			name:  "gpib",
			input: "GPIB::/dev/ttyUSB1::10",
			want:  Resource{Interface: InterfaceGPIB, Address: "/dev/ttyUSB1", Port: 10},
		},
		{
			name:  "usb with serial",
			input: "USB0::0x0957::0x1796::MY12345678::INSTR",
			want:  Resource{Interface: InterfaceUSB, VendorID: 0x0957, ProductID: 0x1796, Serial: "MY12345678"},
		},
		{
			name:  "simulated",
			input: "SIM::Scope",
			want:  Resource{Interface: InterfaceSim, Address: "scope"},
		},
		{name: "no separator", input: "scope", wantErr: true},
		{name: "unknown interface", input: "VXI::1::INSTR", wantErr: true},
		{name: "gpib without address", input: "GPIB::/dev/ttyUSB1", wantErr: true},
		{name: "bad vendor", input: "USB::vendor::0x1796", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResource(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrResourceNotFound) {
					t.Fatalf("expected ErrResourceNotFound, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			tt.want.Name = tt.input
			if got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestManager_Open(t *testing.T) {
	var opened Resource
	m := NewManager(WithBackend(InterfaceSim, func(_ context.Context, r Resource) (Transport, error) {
		opened = r
		return &recordingTransport{}, nil
	}))

	d, err := m.Open(context.Background(), "SIM::generator")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer d.Close()

	if opened.Address != "generator" {
		t.Errorf("expected backend to receive the parsed resource, got %+v", opened)
	}
}

func TestManager_OpenFailure(t *testing.T) {
	m := NewManager(WithBackend(InterfaceSim, func(context.Context, Resource) (Transport, error) {
		return nil, errors.New("no such bench")
	}))

	if _, err := m.Open(context.Background(), "SIM::scope"); !errors.Is(err, ErrResourceNotFound) {
		t.Errorf("expected ErrResourceNotFound, got %v", err)
	}
}
