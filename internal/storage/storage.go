package storage

import (
	"context"

	"github.com/roman-kulish/labtool/internal/bode"
)

// Store provides an interface for persisting measurement sessions and their
// samples. All operations that write to the database should be considered
// atomic.
type Store interface {
	// CreateSession records a new measurement run and returns its unique identifier.
	//
	// Parameters:
	//   - ctx: Context for cancellation and timeouts
	//   - mode: Measurement kind (e.g., "bode", "impedance")
	//   - scope, generator: Identities of the instruments used
	//   - config: Optional run configuration. Can be string, []byte, or JSON-serializable object
	CreateSession(ctx context.Context, mode, scope, generator string, config any) (sessionID int64, err error)

	// Session retrieves a specific session by its ID.
	Session(ctx context.Context, id int64) (session *Session, err error)

	// Sessions returns all sessions ordered by start time in ascending order.
	Sessions(ctx context.Context) (sessions []*Session, err error)

	// StoreSamples saves the samples of a session in sweep order. All samples
	// are stored in a single transaction.
	StoreSamples(ctx context.Context, sessionID int64, samples []bode.Sample) error

	// Samples returns the samples of a session in sweep order, optionally
	// restricted with WithFrequencyRange.
	Samples(ctx context.Context, sessionID int64, opts ...ReadOption) ([]bode.Sample, error)

	// Close releases all database connections and resources.
	// It is safe to call Close multiple times.
	Close() error
}
