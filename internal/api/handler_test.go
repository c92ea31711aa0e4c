package api

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-quake-alerts/internal/alert"
	"github.com/mr1hm/go-quake-alerts/internal/ingestion"
	"github.com/mr1hm/go-quake-alerts/internal/models"
	"github.com/mr1hm/go-quake-alerts/internal/store"
)

type fakeIngestor struct {
	status     ingestion.Status
	refreshErr error
	refreshed  int
}

func (f *fakeIngestor) Status() ingestion.Status { return f.status }

func (f *fakeIngestor) Refresh(ctx context.Context) error {
	f.refreshed++
	return f.refreshErr
}

func setupTest(t *testing.T) (*gin.Engine, *store.Store, *fakeIngestor, *alert.Broadcaster) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := store.New(100, models.NotificationSettings{Enabled: true, MinimumMagnitude: 4.0, MaxDistance: 500})
	ing := &fakeIngestor{status: ingestion.Status{State: ingestion.StateConnected}}
	b := alert.NewBroadcaster()
	t.Cleanup(b.Close)

	router := gin.New()
	NewHandler(s, ing, b).RegisterRoutes(router)
	return router, s, ing, b
}

func seedEvents(s *store.Store) {
	s.ReplaceAll([]models.EarthquakeEvent{
		{
			ID:        "big",
			Magnitude: 6.5,
			Location:  models.Location{Latitude: 34.0, Longitude: -118.0, Place: "Los Angeles, CA"},
			Depth:     15,
			Timestamp: time.Now(),
		},
		{
			ID:        "small",
			Magnitude: 2.1,
			Location:  models.Location{Latitude: 36.0, Longitude: 138.0, Place: "Nagano, Japan"},
			Depth:     40,
			Timestamp: time.Now().Add(-time.Hour),
		},
	})
}

func TestGetEarthquakes_ReturnsFilteredView(t *testing.T) {
	router, s, _, _ := setupTest(t)
	seedEvents(s)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/earthquakes", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var events []models.EarthquakeEvent
	if err := json.Unmarshal(w.Body.Bytes(), &events); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].ID != "big" {
		t.Errorf("expected newest-first ordering, got %s first", events[0].ID)
	}
}

func TestGetEarthquakes_GeoJSONFormat(t *testing.T) {
	router, s, _, _ := setupTest(t)
	seedEvents(s)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/earthquakes?format=geojson", nil)
	router.ServeHTTP(w, req)

	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/geo+json") {
		t.Errorf("expected geo+json content type, got %s", ct)
	}

	var fc FeatureCollection
	if err := json.Unmarshal(w.Body.Bytes(), &fc); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if fc.Type != "FeatureCollection" || len(fc.Features) != 2 {
		t.Fatalf("unexpected collection: type=%s features=%d", fc.Type, len(fc.Features))
	}
	if fc.Features[0].Geometry.Coordinates[0] != -118.0 {
		t.Errorf("expected [lon, lat, depth] coordinate order")
	}
}

func TestPatchFilters_NarrowsView(t *testing.T) {
	router, s, _, _ := setupTest(t)
	seedEvents(s)

	w := httptest.NewRecorder()
	body := bytes.NewBufferString(`{"min_magnitude": 4.0}`)
	req, _ := http.NewRequest("PATCH", "/api/filters", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if got := len(s.Filtered()); got != 1 {
		t.Errorf("expected 1 event after filtering, got %d", got)
	}
}

func TestPatchFilters_RejectsBadPayload(t *testing.T) {
	router, _, _, _ := setupTest(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PATCH", "/api/filters", bytes.NewBufferString("not json"))
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestPutSettings_Roundtrip(t *testing.T) {
	router, s, _, _ := setupTest(t)

	body := bytes.NewBufferString(`{
		"enabled": true,
		"minimum_magnitude": 5.0,
		"max_distance": 250,
		"enable_sound": false,
		"enable_vibration": true,
		"quiet_hours": {"enabled": true, "start_hour": 22, "end_hour": 7}
	}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/settings", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	settings := s.Settings()
	if settings.MinimumMagnitude != 5.0 || !settings.QuietHours.Enabled || settings.QuietHours.StartHour != 22 {
		t.Errorf("settings not applied: %+v", settings)
	}
}

func TestPutLocation_EnablesDistanceAnnotation(t *testing.T) {
	router, s, _, _ := setupTest(t)
	seedEvents(s)

	body := bytes.NewBufferString(`{"latitude": 34.0522, "longitude": -118.2437}`)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("PUT", "/api/location", body)
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest("GET", "/api/earthquakes", nil)
	router.ServeHTTP(w, req)

	var events []models.EarthquakeEvent
	if err := json.Unmarshal(w.Body.Bytes(), &events); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	for _, ev := range events {
		if ev.Distance == nil {
			t.Errorf("expected distance annotation on %s", ev.ID)
		}
	}
}

func TestGetStatistics(t *testing.T) {
	router, s, _, _ := setupTest(t)
	seedEvents(s)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/earthquakes/statistics", nil)
	router.ServeHTTP(w, req)

	var stats store.Stats
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if stats.Count != 2 || stats.MaxMagnitude != 6.5 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestGetStatus(t *testing.T) {
	router, _, ing, _ := setupTest(t)
	ing.status.LastError = "keepalive timeout"
	ing.status.State = ingestion.StateDisconnected

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/status", nil)
	router.ServeHTTP(w, req)

	var resp struct {
		Connection ingestion.Status `json:"connection"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Connection.State != ingestion.StateDisconnected || resp.Connection.LastError == "" {
		t.Errorf("unexpected status: %+v", resp.Connection)
	}
}

func TestTriggerFetch(t *testing.T) {
	router, _, ing, _ := setupTest(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", "/api/earthquakes/fetch", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusOK || ing.refreshed != 1 {
		t.Errorf("expected refresh to run, code=%d refreshed=%d", w.Code, ing.refreshed)
	}

	ing.refreshErr = errors.New("backend down")
	w = httptest.NewRecorder()
	req, _ = http.NewRequest("POST", "/api/earthquakes/fetch", nil)
	router.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Errorf("expected status 502 on refresh failure, got %d", w.Code)
	}
}

func TestAlertStream_DeliversFiredAlerts(t *testing.T) {
	router, _, _, b := setupTest(t)

	srv := httptest.NewServer(router)
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, "GET", srv.URL+"/api/alerts/stream", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("stream request failed: %v", err)
	}
	defer resp.Body.Close()

	// Wait for the handler to subscribe before broadcasting.
	deadline := time.Now().Add(2 * time.Second)
	for b.SubscriberCount() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	b.Broadcast(models.AlertEvent{
		Event:    models.EarthquakeEvent{ID: "q1", Magnitude: 7.2},
		Decision: models.AlertDecision{Tier: models.AlertTierCritical, PlaySound: true},
		FiredAt:  time.Now(),
	})

	reader := bufio.NewReader(resp.Body)
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("stream closed before alert arrived: %v", err)
		}
		if strings.HasPrefix(line, "data:") {
			if !strings.Contains(line, "q1") {
				t.Errorf("unexpected event payload: %s", line)
			}
			return
		}
	}
}

func TestRateLimitMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(RateLimitMiddleware(2))
	router.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make(map[int]int)
	for i := 0; i < 10; i++ {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/ping", nil)
		router.ServeHTTP(w, req)
		codes[w.Code]++
	}

	if codes[http.StatusTooManyRequests] == 0 {
		t.Error("expected some requests to be rate limited")
	}
	if codes[http.StatusOK] == 0 {
		t.Error("expected some requests to pass")
	}
}
