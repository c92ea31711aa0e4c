package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mr1hm/go-quake-alerts/internal/models"
	"github.com/mr1hm/go-quake-alerts/internal/normalize"
)

// SnapshotClient fetches recent events from the backend REST API.
type SnapshotClient struct {
	baseURL string
	client  *http.Client
}

func NewSnapshotClient(baseURL string, timeout time.Duration) *SnapshotClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &SnapshotClient{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch retrieves a bounded set of recent events. Transport failures and
// non-200 responses come back as errors so the coordinator can report
// connectivity honestly.
func (c *SnapshotClient) Fetch(ctx context.Context, params SnapshotParams) ([]models.EarthquakeEvent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/earthquakes", nil)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}
	req.URL.RawQuery = encodeParams(params)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error while doing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d - status: %s", resp.StatusCode, resp.Status)
	}

	var payloads []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&payloads); err != nil {
		return nil, fmt.Errorf("error decoding resp.Body: %w", err)
	}

	events := make([]models.EarthquakeEvent, 0, len(payloads))
	for _, p := range payloads {
		ev := normalize.Normalize(normalize.Decode(p))
		ev.Source = "snapshot"
		events = append(events, ev)
	}
	return events, nil
}

func encodeParams(params SnapshotParams) string {
	q := url.Values{}
	if params.MinMagnitude != nil {
		q.Set("minMagnitude", strconv.FormatFloat(*params.MinMagnitude, 'f', -1, 64))
	}
	if params.MaxMagnitude != nil {
		q.Set("maxMagnitude", strconv.FormatFloat(*params.MaxMagnitude, 'f', -1, 64))
	}
	if params.Location != "" {
		q.Set("location", params.Location)
	}
	if !params.StartDate.IsZero() {
		q.Set("startDate", params.StartDate.Format(time.RFC3339))
	}
	if !params.EndDate.IsZero() {
		q.Set("endDate", params.EndDate.Format(time.RFC3339))
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	return q.Encode()
}

// PlaceholderEvents is the offline demo fallback. The Source tag keeps
// placeholder data distinguishable from live events everywhere downstream.
func PlaceholderEvents() []models.EarthquakeEvent {
	return []models.EarthquakeEvent{
		{
			ID:        "placeholder-1",
			Magnitude: 6.5,
			Location: models.Location{
				Latitude:  34.0522,
				Longitude: -118.2437,
				Place:     "Los Angeles, CA",
			},
			Depth:     15,
			Timestamp: time.Now(),
			Source:    "placeholder",
		},
	}
}
