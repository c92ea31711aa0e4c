package normalize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize_FullPayload(t *testing.T) {
	raw := Decode([]byte(`{
		"id": "us7000abcd",
		"magnitude": 6.5,
		"location": {"latitude": 34.0522, "longitude": -118.2437, "place": "Los Angeles, CA"},
		"depth": 15.2,
		"timestamp": "2026-08-30T12:00:00Z",
		"tsunami": 1,
		"alert": "orange",
		"url": "https://example.com/us7000abcd"
	}`))

	ev := Normalize(raw)

	assert.Equal(t, "us7000abcd", ev.ID)
	assert.Equal(t, 6.5, ev.Magnitude)
	assert.Equal(t, 34.0522, ev.Location.Latitude)
	assert.Equal(t, -118.2437, ev.Location.Longitude)
	assert.Equal(t, "Los Angeles, CA", ev.Location.Place)
	assert.Equal(t, 15.2, ev.Depth)
	assert.Equal(t, time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC), ev.Timestamp.UTC())
	assert.Equal(t, 1, ev.Tsunami)
	assert.Equal(t, "orange", ev.Alert)
}

func TestNormalize_MissingFieldsDefault(t *testing.T) {
	before := time.Now()
	ev := Normalize(Decode([]byte(`{"id": "x1"}`)))

	assert.Equal(t, "x1", ev.ID)
	assert.Equal(t, 0.0, ev.Magnitude)
	assert.Equal(t, 0.0, ev.Depth)
	assert.Equal(t, 0.0, ev.Location.Latitude)
	assert.Equal(t, 0.0, ev.Location.Longitude)
	assert.Equal(t, UnknownPlace, ev.Location.Place)
	assert.Equal(t, 0, ev.Tsunami)
	assert.Empty(t, ev.Alert)
	assert.False(t, ev.Timestamp.Before(before))
}

func TestNormalize_WrongTypesCoerced(t *testing.T) {
	ev := Normalize(Decode([]byte(`{
		"id": "x2",
		"magnitude": "5.1",
		"depth": "not a number",
		"location": {"latitude": "33.5", "longitude": null, "place": 42},
		"tsunami": "1"
	}`)))

	assert.Equal(t, 5.1, ev.Magnitude)
	assert.Equal(t, 0.0, ev.Depth)
	assert.Equal(t, 33.5, ev.Location.Latitude)
	assert.Equal(t, 0.0, ev.Location.Longitude)
	assert.Equal(t, UnknownPlace, ev.Location.Place)
	assert.Equal(t, 1, ev.Tsunami)
}

func TestNormalize_MissingIDGetsSyntheticUnique(t *testing.T) {
	a := Normalize(Decode([]byte(`{"magnitude": 3.0}`)))
	b := Normalize(Decode([]byte(`{"magnitude": 3.0}`)))

	require.NotEmpty(t, a.ID)
	require.NotEmpty(t, b.ID)
	assert.NotEqual(t, a.ID, b.ID, "synthetic ids must not collide under rapid delivery")
	assert.Contains(t, a.ID, "unknown-")
}

func TestNormalize_UnixMillisTimestamp(t *testing.T) {
	ev := Normalize(Decode([]byte(`{"id": "x3", "timestamp": 1756555200000}`)))
	assert.Equal(t, time.UnixMilli(1756555200000).Unix(), ev.Timestamp.Unix())
}

func TestNormalize_GarbagePayloadNeverPanics(t *testing.T) {
	for _, payload := range []string{"", "not json", "[]", `"string"`, `{"location": "flat"}`} {
		ev := Normalize(Decode([]byte(payload)))
		assert.NotEmpty(t, ev.ID)
		assert.Equal(t, UnknownPlace, ev.Location.Place)
	}
}
