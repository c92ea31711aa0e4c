package api

import (
	"github.com/mr1hm/go-quake-alerts/internal/models"
)

type FeatureCollection struct {
	Type     string    `json:"type"`
	Features []Feature `json:"features"`
}
type Feature struct {
	Type       string         `json:"type"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}
type Geometry struct {
	Type        string    `json:"type"`
	Coordinates []float64 `json:"coordinates"`
}

// toGeoJSON renders events as a FeatureCollection for map consumers.
// Coordinates follow the GeoJSON [lon, lat, depth] convention.
func toGeoJSON(events []models.EarthquakeEvent) FeatureCollection {
	features := make([]Feature, 0, len(events))

	for _, ev := range events {
		props := map[string]any{
			"id":        ev.ID,
			"magnitude": ev.Magnitude,
			"place":     ev.Location.Place,
			"depth":     ev.Depth,
			"tsunami":   ev.Tsunami,
			"timestamp": ev.Timestamp,
			"tier":      models.TierForMagnitude(ev.Magnitude),
		}
		if ev.Alert != "" {
			props["alert"] = ev.Alert
		}
		if ev.Distance != nil {
			props["distance"] = *ev.Distance
		}

		features = append(features, Feature{
			Type: "Feature",
			Geometry: Geometry{
				Type:        "Point",
				Coordinates: []float64{ev.Location.Longitude, ev.Location.Latitude, ev.Depth},
			},
			Properties: props,
		})
	}

	return FeatureCollection{
		Type:     "FeatureCollection",
		Features: features,
	}
}
