package store

import (
	"time"

	"github.com/jpalmerr/meshweather/weather"
)

// State summarizes how fresh a station's data is.
type State string

const (
	// StatePending means the station has not been polled successfully yet.
	StatePending State = "pending"

	// StateOK means the latest poll succeeded.
	StateOK State = "ok"

	// StateStale means the latest poll failed; Snapshot is from an earlier success.
	StateStale State = "stale"
)

// StationStatus is the read model of one station, optimized for JSON
// serialization (used by the REST API and SSE).
type StationStatus struct {
	// Name is the station's display name.
	Name string `json:"name"`

	// URL is the node's data URL.
	URL string `json:"url"`

	// Title is the node name reported by the device, or Name when it reports none.
	Title string `json:"title"`

	State State `json:"state"`

	// Labels contains key-value metadata for grouping and filtering.
	Labels map[string]string `json:"labels"`

	// Snapshot is the latest successfully parsed snapshot. Nil while pending.
	// Holders must treat it as read-only.
	Snapshot *weather.Snapshot `json:"snapshot"`

	// Condition is the display category of the current condition code.
	Condition weather.Condition `json:"condition,omitempty"`

	// AlertCount is the number of active alerts in Snapshot.
	AlertCount int `json:"alert_count"`

	// IntervalSeconds is the delay before the station is polled again.
	IntervalSeconds float64 `json:"interval_seconds"`

	// ResponseTimeMs is the latency of the latest poll in milliseconds.
	ResponseTimeMs int64 `json:"response_time_ms"`

	// CheckedAt is when the latest poll started.
	CheckedAt time.Time `json:"checked_at"`

	// UpdatedAt is when Snapshot was obtained. Zero while pending.
	UpdatedAt time.Time `json:"updated_at"`

	// Error contains the message of the latest poll failure, nil after a success.
	Error *string `json:"error"`

	// ErrorKind classifies Error: cannot_connect, invalid_data or unknown.
	ErrorKind string `json:"error_kind,omitempty"`
}

// Store defines the interface for storing and subscribing to station updates.
//
// Store implementations must be safe for concurrent access. The pub/sub
// mechanism allows real-time updates to be pushed to connected clients
// (e.g., via Server-Sent Events).
type Store interface {
	// Update stores a station status and notifies all subscribers.
	// Statuses are keyed by Name, so subsequent updates replace previous values.
	Update(status StationStatus)

	// Get returns the status of one station.
	Get(name string) (StationStatus, bool)

	// GetAll returns all stored statuses ordered by name.
	// The returned slice is a copy; modifications do not affect the store.
	GetAll() []StationStatus

	// Subscribe returns a channel that receives status updates.
	// The returned channel has a buffer; slow consumers may miss updates.
	// Caller must call Unsubscribe when done to prevent resource leaks.
	Subscribe() <-chan StationStatus

	// Unsubscribe removes a subscription and closes the channel.
	// Safe to call with a channel that was already unsubscribed.
	Unsubscribe(ch <-chan StationStatus)
}
