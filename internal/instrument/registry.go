package instrument

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Role of an instrument on the bench
type Role string

const (
	RoleOscilloscope Role = "oscilloscope"
	RoleGenerator    Role = "generator"
)

// Entry describes one supported model and how to build its driver
type Entry[T any] struct {
	Brand string
	Model string
	New   func(t Transport, id Identity) T
}

// Registry maps reported model strings to driver constructors for one role.
// It is populated once at startup and then passed to device resolution.
type Registry[T any] struct {
	role    Role
	entries []Entry[T]
}

func NewRegistry[T any](role Role, entries ...Entry[T]) *Registry[T] {
	r := &Registry[T]{role: role}
	for _, e := range entries {
		r.Register(e)
	}
	return r
}

// Register adds an entry, replacing any previous entry for the same model
func (r *Registry[T]) Register(e Entry[T]) {
	i := slices.IndexFunc(r.entries, func(x Entry[T]) bool {
		return strings.EqualFold(x.Model, e.Model)
	})
	if i >= 0 {
		r.entries[i] = e
		return
	}
	r.entries = append(r.entries, e)
}

func (r *Registry[T]) Role() Role {
	return r.role
}

// Models returns the registered entries in registration order
func (r *Registry[T]) Models() []Entry[T] {
	return slices.Clone(r.entries)
}

// Lookup finds the entry matching the reported model
func (r *Registry[T]) Lookup(model string) (Entry[T], bool) {
	model = strings.TrimSpace(model)
	for _, e := range r.entries {
		if strings.EqualFold(e.Model, model) {
			return e, true
		}
	}
	return Entry[T]{}, false
}

// Resolve identifies the instrument behind t and builds the matching driver
func (r *Registry[T]) Resolve(ctx context.Context, t Transport) (driver T, id Identity, err error) {
	reply, err := t.Query(ctx, "*IDN?")
	if err != nil {
		err = fmt.Errorf("identifying %s: %w", r.role, err)
		return
	}

	if id, err = ParseIdentity(reply); err != nil {
		err = fmt.Errorf("identifying %s: %w", r.role, err)
		return
	}

	e, ok := r.Lookup(id.Model)
	if !ok {
		err = fmt.Errorf("%w: %s model %q", ErrDeviceNotFound, r.role, id.Model)
		return
	}

	return e.New(t, id), id, nil
}
