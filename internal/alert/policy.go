// Package alert decides whether an incoming earthquake warrants user-facing
// feedback and drives the side-effect sinks when it does. The decision is a
// two-gate design: suppression is all-or-nothing policy, and once an event is
// not suppressed some feedback always fires, with sound reserved for the
// higher tiers.
package alert

import (
	"github.com/jonboulle/clockwork"

	"github.com/mr1hm/go-quake-alerts/internal/geo"
	"github.com/mr1hm/go-quake-alerts/internal/models"
)

type Engine struct {
	clock clockwork.Clock
}

func NewEngine() *Engine {
	return &Engine{clock: clockwork.NewRealClock()}
}

// NewEngineWithClock builds an engine on an injected time source so tests can
// pin the wall clock for quiet-hours evaluation.
func NewEngineWithClock(c clockwork.Clock) *Engine {
	return &Engine{clock: c}
}

// Decide evaluates one event against the user's settings and location.
// Suppression checks run in a fixed order: master switch, quiet hours,
// magnitude threshold (inclusive), distance cap (inclusive, skipped when the
// location is unknown; missing data errs toward alerting).
func (e *Engine) Decide(ev models.EarthquakeEvent, settings models.NotificationSettings, loc *models.UserLocation) models.AlertDecision {
	d := models.AlertDecision{Tier: models.TierForMagnitude(ev.Magnitude)}

	if !settings.Enabled {
		return suppress(d, models.SuppressDisabled)
	}

	if settings.QuietHours.Contains(e.clock.Now().Hour()) {
		return suppress(d, models.SuppressQuietHours)
	}

	if ev.Magnitude < settings.MinimumMagnitude {
		return suppress(d, models.SuppressMagnitude)
	}

	if loc != nil {
		km := geo.DistanceKm(loc.Latitude, loc.Longitude, ev.Location.Latitude, ev.Location.Longitude)
		d.DistanceKm = &km
		if km > settings.MaxDistance {
			return suppress(d, models.SuppressDistance)
		}
	}

	d.PlaySound = settings.EnableSound &&
		(d.Tier == models.AlertTierHigh || d.Tier == models.AlertTierCritical)
	d.Vibrate = settings.EnableVibration
	return d
}

func suppress(d models.AlertDecision, reason models.SuppressReason) models.AlertDecision {
	d.Suppressed = true
	d.Reason = reason
	return d
}
