// Package normalize converts raw wire payloads into canonical earthquake
// events. Both the snapshot source and the realtime channel deliver loosely
// typed JSON; nothing downstream of this package touches raw data.
package normalize

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mr1hm/go-quake-alerts/internal/models"
)

// UnknownPlace is the sentinel used when a payload carries no place name.
const UnknownPlace = "Unknown location"

// RawEvent is the intermediate shape decoded from the wire. Field types are
// deliberately loose; Normalize coerces them.
type RawEvent struct {
	ID        any         `json:"id"`
	Magnitude any         `json:"magnitude"`
	Location  rawLocation `json:"location"`
	Depth     any         `json:"depth"`
	Timestamp any         `json:"timestamp"`
	Tsunami   any         `json:"tsunami"`
	Alert     any         `json:"alert"`
	URL       any         `json:"url"`
}

type rawLocation struct {
	Latitude  any `json:"latitude"`
	Longitude any `json:"longitude"`
	Place     any `json:"place"`
}

// Decode parses a wire payload into a RawEvent. A payload that is not valid
// JSON yields a zero RawEvent; Normalize turns that into an all-defaults
// event rather than an error.
func Decode(payload []byte) RawEvent {
	var raw RawEvent
	_ = json.Unmarshal(payload, &raw)
	return raw
}

// Normalize builds a structurally valid event from a raw payload. Every field
// is defensively coerced: non-numeric numbers become 0, a missing place
// becomes UnknownPlace, a missing timestamp becomes the current time. A
// missing id is assigned a synthetic value; that synthetic id is a fallback,
// not a stable identity, so redelivery of an id-less payload reads as a new
// event. Normalize never fails.
func Normalize(raw RawEvent) models.EarthquakeEvent {
	id := toString(raw.ID)
	if id == "" {
		id = "unknown-" + uuid.NewString()
	}

	place := toString(raw.Location.Place)
	if place == "" {
		place = UnknownPlace
	}

	return models.EarthquakeEvent{
		ID:        id,
		Magnitude: toFloat(raw.Magnitude),
		Location: models.Location{
			Latitude:  toFloat(raw.Location.Latitude),
			Longitude: toFloat(raw.Location.Longitude),
			Place:     place,
		},
		Depth:     toFloat(raw.Depth),
		Timestamp: toTime(raw.Timestamp),
		Tsunami:   int(toFloat(raw.Tsunami)),
		Alert:     toString(raw.Alert),
		URL:       toString(raw.URL),
	}
}

func toFloat(v any) float64 {
	switch x := v.(type) {
	case float64:
		return x
	case int:
		return float64(x)
	case json.Number:
		f, _ := x.Float64()
		return f
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return f
		}
	}
	return 0
}

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// toTime accepts RFC 3339 strings and unix-millisecond numbers, the two
// timestamp encodings seen on the wire. Anything else defaults to now.
func toTime(v any) time.Time {
	switch x := v.(type) {
	case string:
		if t, err := time.Parse(time.RFC3339, x); err == nil {
			return t
		}
	case float64:
		if x > 0 {
			return time.UnixMilli(int64(x))
		}
	}
	return time.Now()
}
