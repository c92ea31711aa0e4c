// Package store holds the canonical in-memory earthquake collection: one
// deduplicated, retention-capped, newest-first sequence plus a filtered view
// recomputed on every mutation. It is the single source of truth for the API
// surface and the ingestion coordinator.
package store

import (
	"sort"
	"sync"

	"github.com/mr1hm/go-quake-alerts/internal/filter"
	"github.com/mr1hm/go-quake-alerts/internal/geo"
	"github.com/mr1hm/go-quake-alerts/internal/models"
)

// DefaultCapacity bounds held events when no capacity is configured.
const DefaultCapacity = 100

type Store struct {
	mu       sync.RWMutex
	events   []models.EarthquakeEvent // newest-first
	filtered []models.EarthquakeEvent // cache, recomputed on every mutation
	criteria filter.Criteria
	capacity int

	userLocation *models.UserLocation
	selected     *models.EarthquakeEvent
	settings     models.NotificationSettings
}

func New(capacity int, defaults models.NotificationSettings) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		criteria: filter.DefaultCriteria(),
		capacity: capacity,
		settings: defaults,
	}
}

// ReplaceAll swaps the held collection for the supplied one, deduplicating by
// id (last occurrence wins) and enforcing ordering and the retention cap.
// Used for snapshot loads.
func (s *Store) ReplaceAll(events []models.EarthquakeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := make(map[string]int, len(events))
	deduped := make([]models.EarthquakeEvent, 0, len(events))
	for _, ev := range events {
		if i, ok := seen[ev.ID]; ok {
			deduped[i] = ev
			continue
		}
		seen[ev.ID] = len(deduped)
		deduped = append(deduped, ev)
	}

	s.events = deduped
	s.reorder()
	s.recompute()
}

// Upsert inserts the event or, when its id is already held, replaces the
// existing record in place. Returns true only for a genuinely new id; the
// coordinator uses that to fire alerts exactly once per event.
func (s *Store) Upsert(ev models.EarthquakeEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.events {
		if s.events[i].ID == ev.ID {
			s.events[i] = ev
			s.reorder()
			s.recompute()
			return false
		}
	}

	// Prepend as newest; the stable re-sort keeps it ahead of ties.
	s.events = append([]models.EarthquakeEvent{ev}, s.events...)
	s.reorder()
	s.recompute()
	s.selected = &ev
	return true
}

// reorder sorts newest-first by timestamp (ties keep insertion order) and
// evicts past the retention cap, oldest first. Callers hold the lock.
func (s *Store) reorder() {
	sort.SliceStable(s.events, func(i, j int) bool {
		return s.events[i].Timestamp.After(s.events[j].Timestamp)
	})
	if len(s.events) > s.capacity {
		s.events = s.events[:s.capacity]
	}
}

// recompute rebuilds the filtered view cache. Distance-dependent criteria see
// a transient annotated copy when the user location is known; the annotation
// is never written back to the held events. Callers hold the lock.
func (s *Store) recompute() {
	s.filtered = filter.Apply(s.annotate(s.events), s.criteria)
}

func (s *Store) annotate(events []models.EarthquakeEvent) []models.EarthquakeEvent {
	out := make([]models.EarthquakeEvent, len(events))
	copy(out, events)
	if s.userLocation == nil {
		return out
	}
	for i, ev := range out {
		out[i] = ev.WithDistance(geo.DistanceKm(
			s.userLocation.Latitude, s.userLocation.Longitude,
			ev.Location.Latitude, ev.Location.Longitude,
		))
	}
	return out
}

// SetFilters overlays a partial criteria update and recomputes the view.
func (s *Store) SetFilters(p filter.Partial) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.criteria = filter.Merge(s.criteria, p)
	s.recompute()
}

func (s *Store) Criteria() filter.Criteria {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.criteria
}

// SetUserLocation stores the device position. Held events are not rewritten;
// distance is annotated at the read boundary. The filtered view is recomputed
// because a distance criterion may change membership.
func (s *Store) SetUserLocation(loc models.UserLocation) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userLocation = &loc
	s.recompute()
}

func (s *Store) UserLocation() *models.UserLocation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.userLocation == nil {
		return nil
	}
	loc := *s.userLocation
	return &loc
}

func (s *Store) Settings() models.NotificationSettings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

func (s *Store) UpdateSettings(settings models.NotificationSettings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = settings
}

// Filtered returns the current filtered view, distance-annotated when the
// user location is known. The returned slice is the caller's to keep.
func (s *Store) Filtered() []models.EarthquakeEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.annotate(s.filtered)
}

// Events returns the full held collection, newest-first, distance-annotated
// when the user location is known.
func (s *Store) Events() []models.EarthquakeEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.annotate(s.events)
}

func (s *Store) Get(id string) (models.EarthquakeEvent, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ev := range s.events {
		if ev.ID == id {
			return s.annotate([]models.EarthquakeEvent{ev})[0], true
		}
	}
	return models.EarthquakeEvent{}, false
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

// Selected is the most recently inserted realtime event, if any.
func (s *Store) Selected() *models.EarthquakeEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.selected == nil {
		return nil
	}
	ev := *s.selected
	return &ev
}

// Stats summarizes the full held collection, ignoring filters.
type Stats struct {
	Count        int     `json:"count"`
	MaxMagnitude float64 `json:"max_magnitude"`
	AvgMagnitude float64 `json:"avg_magnitude"`
	TsunamiCount int     `json:"tsunami_count"`
}

func (s *Store) Statistics() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Count: len(s.events)}
	if st.Count == 0 {
		return st
	}
	var sum float64
	for _, ev := range s.events {
		sum += ev.Magnitude
		if ev.Magnitude > st.MaxMagnitude {
			st.MaxMagnitude = ev.Magnitude
		}
		if ev.Tsunami > 0 {
			st.TsunamiCount++
		}
	}
	st.AvgMagnitude = sum / float64(st.Count)
	return st
}

// Reset drops all events and restores default criteria. Settings and user
// location survive a reset.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
	s.filtered = nil
	s.selected = nil
	s.criteria = filter.DefaultCriteria()
}
