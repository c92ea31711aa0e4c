package models

// NotificationSettings is the user-owned alerting configuration. Mutated only
// through explicit user action; read by the alert policy engine.
type NotificationSettings struct {
	Enabled          bool       `json:"enabled"`
	MinimumMagnitude float64    `json:"minimum_magnitude"` // inclusive lower bound
	MaxDistance      float64    `json:"max_distance"`      // km, inclusive; enforced only when distance is known
	EnableSound      bool       `json:"enable_sound"`
	EnableVibration  bool       `json:"enable_vibration"`
	QuietHours       QuietHours `json:"quiet_hours"`
}

// QuietHours suppresses alerts while the wall-clock hour falls inside the
// configured window. The window may wrap past midnight (StartHour >= EndHour).
type QuietHours struct {
	Enabled   bool `json:"enabled"`
	StartHour int  `json:"start_hour"` // 0..23
	EndHour   int  `json:"end_hour"`   // 0..23
}

// Contains reports whether the given hour falls inside the quiet window.
// A same-day window (start < end) covers [start, end); a window wrapping
// midnight covers [start, 24) plus [0, end). StartHour == EndHour is read as
// a full-day window, evaluated literally rather than rejected.
func (q QuietHours) Contains(hour int) bool {
	if !q.Enabled {
		return false
	}
	if q.StartHour < q.EndHour {
		return hour >= q.StartHour && hour < q.EndHour
	}
	return hour >= q.StartHour || hour < q.EndHour
}
