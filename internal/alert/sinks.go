package alert

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/mr1hm/go-quake-alerts/internal/models"
	"github.com/mr1hm/go-quake-alerts/internal/observability"
)

// SoundPlayer starts and stops the looping alert sound.
type SoundPlayer interface {
	PlayAlert()
	StopAlert()
}

// Vibrator triggers one vibration pattern.
type Vibrator interface {
	Vibrate(pattern VibrationPattern)
}

// Notifier shows one platform notification.
type Notifier interface {
	Notify(title, body string)
}

// VibrationPattern is alternating wait/vibrate durations in milliseconds,
// starting with a wait.
type VibrationPattern struct {
	Name     string
	PulsesMs []int64
}

var (
	PatternStrong = VibrationPattern{Name: "strong", PulsesMs: []int64{0, 500, 200, 500}}
	PatternMedium = VibrationPattern{Name: "medium", PulsesMs: []int64{0, 500}}
	PatternLight  = VibrationPattern{Name: "light", PulsesMs: []int64{0, 200}}
)

// PatternForTier maps an alert tier to its vibration intensity.
func PatternForTier(tier models.AlertTier) VibrationPattern {
	switch tier {
	case models.AlertTierCritical, models.AlertTierHigh:
		return PatternStrong
	case models.AlertTierMedium:
		return PatternMedium
	default:
		return PatternLight
	}
}

// Dispatcher turns one non-suppressed decision into side effects: at most one
// sound start, one vibration, one notification and one broadcast per event.
// Idempotence per event id is the coordinator's job; the dispatcher trusts it
// is called once per genuinely new event.
type Dispatcher struct {
	sound       SoundPlayer
	vibrator    Vibrator
	notifier    Notifier
	broadcaster *Broadcaster
}

func NewDispatcher(sound SoundPlayer, vibrator Vibrator, notifier Notifier, b *Broadcaster) *Dispatcher {
	return &Dispatcher{
		sound:       sound,
		vibrator:    vibrator,
		notifier:    notifier,
		broadcaster: b,
	}
}

func (d *Dispatcher) Dispatch(ev models.EarthquakeEvent, decision models.AlertDecision) {
	if decision.Suppressed {
		observability.AlertsSuppressed.WithLabelValues(string(decision.Reason)).Inc()
		slog.Debug("alert suppressed", "id", ev.ID, "reason", decision.Reason)
		return
	}

	observability.AlertsFired.WithLabelValues(string(decision.Tier)).Inc()

	if decision.PlaySound && d.sound != nil {
		d.sound.PlayAlert()
	}
	if decision.Vibrate && d.vibrator != nil {
		d.vibrator.Vibrate(PatternForTier(decision.Tier))
	}
	if d.notifier != nil && tierAtLeastHigh(decision.Tier) {
		d.notifier.Notify(notificationTitle(ev), notificationBody(ev, decision))
	}
	if d.broadcaster != nil {
		d.broadcaster.Broadcast(models.AlertEvent{
			Event:    ev,
			Decision: decision,
			FiredAt:  time.Now(),
		})
	}

	slog.Info("alert fired",
		"id", ev.ID,
		"magnitude", ev.Magnitude,
		"tier", decision.Tier,
		"sound", decision.PlaySound,
		"vibrate", decision.Vibrate,
	)
}

func tierAtLeastHigh(tier models.AlertTier) bool {
	return tier == models.AlertTierHigh || tier == models.AlertTierCritical
}

func notificationTitle(ev models.EarthquakeEvent) string {
	return fmt.Sprintf("Earthquake Alert - M%.1f", ev.Magnitude)
}

func notificationBody(ev models.EarthquakeEvent, decision models.AlertDecision) string {
	var b strings.Builder
	b.WriteString(ev.Location.Place)
	fmt.Fprintf(&b, "\nDepth: %.0fkm", ev.Depth)
	if decision.DistanceKm != nil {
		fmt.Fprintf(&b, "\nDistance: %.0fkm", *decision.DistanceKm)
	}
	return b.String()
}

// LogSinks returns sound, vibration and notification sinks that only log.
// Used for headless runs and as the default wiring; platform builds swap in
// real implementations behind the same interfaces.
func LogSinks() (SoundPlayer, Vibrator, Notifier) {
	return &logSound{}, logVibrator{}, logNotifier{}
}

type logSound struct {
	mu      sync.Mutex
	playing bool
}

func (l *logSound) PlayAlert() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.playing {
		return
	}
	l.playing = true
	slog.Info("alert sound started")
}

func (l *logSound) StopAlert() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.playing {
		return
	}
	l.playing = false
	slog.Info("alert sound stopped")
}

type logVibrator struct{}

func (logVibrator) Vibrate(pattern VibrationPattern) {
	slog.Info("vibration triggered", "pattern", pattern.Name)
}

type logNotifier struct{}

func (logNotifier) Notify(title, body string) {
	slog.Info("notification shown", "title", title, "body", body)
}
