package instrument

import (
	"context"
	"errors"
	"testing"
)

func TestParseIdentity(t *testing.T) {
	tests := []struct {
		name    string
		reply   string
		want    Identity
		wantErr bool
	}{
		{
			name:  "full",
			reply: "AGILENT TECHNOLOGIES,DSO6014A,MY44000123,05.16.0001\n",
			want:  Identity{"AGILENT TECHNOLOGIES", "DSO6014A", "MY44000123", "05.16.0001"},
		},
		{
			name:  "firmware with commas",
			reply: "RIGOL TECHNOLOGIES,DS4014,DS4A0001,00.02.03,SP2",
			want:  Identity{"RIGOL TECHNOLOGIES", "DS4014", "DS4A0001", "00.02.03,SP2"},
		},
		{
			name:  "model only",
			reply: "Agilent Technologies,33220A",
			want:  Identity{Manufacturer: "Agilent Technologies", Model: "33220A"},
		},
		{name: "empty", reply: "  ", wantErr: true},
		{name: "no model", reply: "ACME", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseIdentity(tt.reply)
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
				t.Errorf("expected %+v, got %+v", tt.want, got)
			}
		})
	}
}

func TestRegistry_Resolve(t *testing.T) {
	type driver struct {
		name string
		id   Identity
	}

	registry := NewRegistry(RoleOscilloscope,
		Entry[*driver]{Brand: "Agilent", Model: "DSO6014A", New: func(_ Transport, id Identity) *driver {
			return &driver{name: "dso6014a", id: id}
		}},
		Entry[*driver]{Brand: "Rigol", Model: "DS4014", New: func(_ Transport, id Identity) *driver {
			return &driver{name: "ds4014", id: id}
		}},
	)

	t.Run("match is case insensitive", func(t *testing.T) {
		tr := &recordingTransport{replies: map[string]string{"*IDN?": "RIGOL TECHNOLOGIES,ds4014,X,1"}}

		d, id, err := registry.Resolve(context.Background(), tr)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if d.name != "ds4014" || id.Model != "ds4014" {
			t.Errorf("unexpected driver %+v", d)
		}
	})

	t.Run("unknown model", func(t *testing.T) {
		tr := &recordingTransport{replies: map[string]string{"*IDN?": "Tektronix,TDS2002,X,1"}}

		if _, _, err := registry.Resolve(context.Background(), tr); !errors.Is(err, ErrDeviceNotFound) {
			t.Errorf("expected ErrDeviceNotFound, got %v", err)
		}
	})

	t.Run("register replaces", func(t *testing.T) {
		r := NewRegistry[*driver](RoleGenerator)
		r.Register(Entry[*driver]{Model: "33220A"})
		r.Register(Entry[*driver]{Brand: "Keysight", Model: "33220a"})

		if len(r.Models()) != 1 {
			t.Fatalf("expected one model, got %d", len(r.Models()))
		}
		if e, _ := r.Lookup("33220A"); e.Brand != "Keysight" {
			t.Errorf("expected the later entry to win, got %+v", e)
		}
	})
}
