package storage

import (
	"time"
)

// Session represents a single measurement run with one oscilloscope and
// generator pair
type Session struct {
	ID        int64     `json:"ID"`                      // Unique identifier for the session
	StartTime time.Time `json:"startTime"`               // When the measurement began
	Mode      string    `json:"mode"`                    // Measurement kind ("bode", "impedance")
	Scope     string    `json:"scope"`                   // Oscilloscope identity
	Generator string    `json:"generator"`               // Function generator identity
	Config    *string   `json:"config,string,omitempty"` // Optional run configuration in JSON format
}
