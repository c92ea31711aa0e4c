package models

import "time"

type AlertTier string

const (
	AlertTierLow      AlertTier = "low"
	AlertTierMedium   AlertTier = "medium"
	AlertTierHigh     AlertTier = "high"
	AlertTierCritical AlertTier = "critical"
)

// TierForMagnitude maps Richter magnitude to an alert tier.
func TierForMagnitude(magnitude float64) AlertTier {
	switch {
	case magnitude >= 7.0:
		return AlertTierCritical
	case magnitude >= 5.5:
		return AlertTierHigh
	case magnitude >= 4.0:
		return AlertTierMedium
	default:
		return AlertTierLow
	}
}

type SuppressReason string

const (
	SuppressNone       SuppressReason = ""
	SuppressDisabled   SuppressReason = "disabled"
	SuppressQuietHours SuppressReason = "quiet_hours"
	SuppressMagnitude  SuppressReason = "magnitude"
	SuppressDistance   SuppressReason = "distance"
)

// AlertDecision is the outcome of evaluating one event against the user's
// notification settings.
type AlertDecision struct {
	Suppressed bool           `json:"suppressed"`
	Reason     SuppressReason `json:"reason,omitempty"`
	Tier       AlertTier      `json:"tier"`
	PlaySound  bool           `json:"play_sound"`
	Vibrate    bool           `json:"vibrate"`

	// DistanceKm is the distance used for the range check, nil when the user
	// location was unknown at decision time.
	DistanceKm *float64 `json:"distance_km,omitempty"`
}

// AlertEvent pairs a fired (non-suppressed) decision with its event, for
// fan-out to in-app subscribers.
type AlertEvent struct {
	Event    EarthquakeEvent `json:"event"`
	Decision AlertDecision   `json:"decision"`
	FiredAt  time.Time       `json:"fired_at"`
}
