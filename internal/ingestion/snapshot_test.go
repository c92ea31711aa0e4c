package ingestion

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshotClient_FetchNormalizes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/earthquakes", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id": "a", "magnitude": 6.5, "location": {"latitude": 34.0, "longitude": -118.0, "place": "LA"}, "timestamp": "2026-08-30T12:00:00Z"},
			{"id": "b", "magnitude": "4.2", "location": {}}
		]`))
	}))
	defer srv.Close()

	client := NewSnapshotClient(srv.URL, time.Second)
	events, err := client.Fetch(context.Background(), SnapshotParams{Limit: 30})

	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "a", events[0].ID)
	assert.Equal(t, "snapshot", events[0].Source)
	assert.Equal(t, 4.2, events[1].Magnitude, "loose field types are coerced")
	assert.Equal(t, "Unknown location", events[1].Location.Place)
}

func TestSnapshotClient_EncodesFilterParams(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	minMag := 4.5
	client := NewSnapshotClient(srv.URL, time.Second)
	_, err := client.Fetch(context.Background(), SnapshotParams{
		MinMagnitude: &minMag,
		Location:     "japan",
		Limit:        50,
	})

	require.NoError(t, err)
	assert.Contains(t, query, "minMagnitude=4.5")
	assert.Contains(t, query, "location=japan")
	assert.Contains(t, query, "limit=50")
}

func TestSnapshotClient_Non200IsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client := NewSnapshotClient(srv.URL, time.Second)
	_, err := client.Fetch(context.Background(), SnapshotParams{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestSnapshotClient_TransportFailureIsExplicit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // refuse connections

	client := NewSnapshotClient(srv.URL, time.Second)
	events, err := client.Fetch(context.Background(), SnapshotParams{})

	require.Error(t, err, "failure must never read as silently empty data")
	assert.Nil(t, events)
}

func TestPlaceholderEvents_AreMarked(t *testing.T) {
	events := PlaceholderEvents()
	require.NotEmpty(t, events)
	for _, ev := range events {
		assert.Equal(t, "placeholder", ev.Source)
	}
}
