package models

import "time"

// EarthquakeEvent is the canonical record for one seismic event. Events are
// immutable once built by the normalizer; re-ingesting the same id replaces
// the whole record.
type EarthquakeEvent struct {
	ID        string    `json:"id"` // unique per physical event, the dedup key
	Magnitude float64   `json:"magnitude"`
	Location  Location  `json:"location"`
	Depth     float64   `json:"depth"` // kilometers
	Timestamp time.Time `json:"timestamp"`
	Tsunami   int       `json:"tsunami"`
	Alert     string    `json:"alert,omitempty"` // source-provided severity tag, opaque
	URL       string    `json:"url,omitempty"`
	Source    string    `json:"source,omitempty"` // "snapshot", "realtime" or "placeholder"

	// Distance is derived from the user's location at the read boundary.
	// Nil when the user location is unknown; never a source of truth.
	Distance *float64 `json:"distance,omitempty"`
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Place     string  `json:"place"`
}

// UserLocation is the device position, if known. Its absence disables
// distance-dependent behavior but must never break anything.
type UserLocation struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy,omitempty"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// WithDistance returns a copy of the event annotated with the given distance.
func (e EarthquakeEvent) WithDistance(km float64) EarthquakeEvent {
	e.Distance = &km
	return e
}
