// Package filter evaluates user-adjustable criteria against earthquake
// events. Evaluation is pure: Apply never mutates its input and re-applying
// the same criteria is a no-op.
package filter

import (
	"strings"

	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/go-quake-alerts/internal/models"
)

// clock is a package-level time source so tests can freeze the recency
// window via SetClock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

type TimeRange string

const (
	TimeRangeAll TimeRange = "all"
	TimeRange24h TimeRange = "24h"
	TimeRange7d  TimeRange = "7d"
	TimeRange30d TimeRange = "30d"
)

// hours returns the window bound in hours, or 0 for an unbounded range.
func (r TimeRange) hours() float64 {
	switch r {
	case TimeRange24h:
		return 24
	case TimeRange7d:
		return 24 * 7
	case TimeRange30d:
		return 24 * 30
	default:
		return 0
	}
}

// Criteria is the conjunction of filters applied to the event collection.
// Degenerate ranges (MinMagnitude > MaxMagnitude) are evaluated literally.
type Criteria struct {
	MinMagnitude float64   `json:"min_magnitude"`
	MaxMagnitude float64   `json:"max_magnitude"`
	Location     string    `json:"location,omitempty"` // case-insensitive substring of place
	TimeRange    TimeRange `json:"time_range"`
	MaxDistance  *float64  `json:"max_distance,omitempty"` // km; only enforced when event distance is known
	MaxDepth     *float64  `json:"max_depth,omitempty"`    // km
}

// DefaultCriteria matches everything.
func DefaultCriteria() Criteria {
	return Criteria{
		MinMagnitude: 0,
		MaxMagnitude: 10,
		TimeRange:    TimeRangeAll,
	}
}

// Matches reports whether the event passes every configured criterion.
func Matches(ev models.EarthquakeEvent, c Criteria) bool {
	if ev.Magnitude < c.MinMagnitude || ev.Magnitude > c.MaxMagnitude {
		return false
	}

	if c.Location != "" {
		if !strings.Contains(strings.ToLower(ev.Location.Place), strings.ToLower(c.Location)) {
			return false
		}
	}

	if bound := c.TimeRange.hours(); bound > 0 {
		age := clock.Now().Sub(ev.Timestamp)
		if age.Hours() > bound {
			return false
		}
	}

	if c.MaxDistance != nil && ev.Distance != nil && *ev.Distance > *c.MaxDistance {
		return false
	}

	if c.MaxDepth != nil && ev.Depth > *c.MaxDepth {
		return false
	}

	return true
}

// Apply returns the events matching the criteria, preserving input order.
func Apply(events []models.EarthquakeEvent, c Criteria) []models.EarthquakeEvent {
	out := make([]models.EarthquakeEvent, 0, len(events))
	for _, ev := range events {
		if Matches(ev, c) {
			out = append(out, ev)
		}
	}
	return out
}

// Merge overlays the non-nil fields of a partial update onto the criteria.
// Used by the store's SetFilters entry point.
type Partial struct {
	MinMagnitude *float64   `json:"min_magnitude,omitempty"`
	MaxMagnitude *float64   `json:"max_magnitude,omitempty"`
	Location     *string    `json:"location,omitempty"`
	TimeRange    *TimeRange `json:"time_range,omitempty"`
	MaxDistance  *float64   `json:"max_distance,omitempty"`
	MaxDepth     *float64   `json:"max_depth,omitempty"`
}

func Merge(c Criteria, p Partial) Criteria {
	if p.MinMagnitude != nil {
		c.MinMagnitude = *p.MinMagnitude
	}
	if p.MaxMagnitude != nil {
		c.MaxMagnitude = *p.MaxMagnitude
	}
	if p.Location != nil {
		c.Location = *p.Location
	}
	if p.TimeRange != nil {
		c.TimeRange = *p.TimeRange
	}
	if p.MaxDistance != nil {
		c.MaxDistance = p.MaxDistance
	}
	if p.MaxDepth != nil {
		c.MaxDepth = p.MaxDepth
	}
	return c
}
