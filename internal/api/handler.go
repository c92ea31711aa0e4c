// Package api exposes the client core over HTTP: read access to the event
// collection and the only mutation entry points for filters, settings and
// user location.
package api

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-quake-alerts/internal/alert"
	"github.com/mr1hm/go-quake-alerts/internal/filter"
	"github.com/mr1hm/go-quake-alerts/internal/ingestion"
	"github.com/mr1hm/go-quake-alerts/internal/models"
	"github.com/mr1hm/go-quake-alerts/internal/store"
)

// Ingestor is the slice of the coordinator the API needs.
type Ingestor interface {
	Status() ingestion.Status
	Refresh(ctx context.Context) error
}

type Handler struct {
	store       *store.Store
	ingestor    Ingestor
	broadcaster *alert.Broadcaster
}

func NewHandler(s *store.Store, ingestor Ingestor, broadcaster *alert.Broadcaster) *Handler {
	return &Handler{
		store:       s,
		ingestor:    ingestor,
		broadcaster: broadcaster,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.health)

	r.GET("/api/earthquakes", h.getEarthquakes)
	r.GET("/api/earthquakes/statistics", h.getStatistics)
	r.POST("/api/earthquakes/fetch", h.triggerFetch)

	r.GET("/api/filters", h.getFilters)
	r.PATCH("/api/filters", h.patchFilters)

	r.GET("/api/settings", h.getSettings)
	r.PUT("/api/settings", h.putSettings)

	r.PUT("/api/location", h.putLocation)

	r.GET("/api/status", h.getStatus)
	r.GET("/api/alerts/stream", h.streamAlerts)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// getEarthquakes returns the filtered view, newest-first and
// distance-annotated when the user location is known. ?format=geojson yields
// a FeatureCollection for map consumers.
func (h *Handler) getEarthquakes(c *gin.Context) {
	events := h.store.Filtered()

	if c.Query("format") == "geojson" {
		c.Header("Content-Type", "application/geo+json")
		c.JSON(http.StatusOK, toGeoJSON(events))
		return
	}
	c.JSON(http.StatusOK, events)
}

func (h *Handler) getStatistics(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Statistics())
}

func (h *Handler) triggerFetch(c *gin.Context) {
	if err := h.ingestor.Refresh(c.Request.Context()); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "snapshot fetch failed",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "snapshot merged"})
}

func (h *Handler) getFilters(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Criteria())
}

// patchFilters overlays the supplied fields onto the current criteria and
// recomputes the filtered view before responding.
func (h *Handler) patchFilters(c *gin.Context) {
	var partial filter.Partial
	if err := c.ShouldBindJSON(&partial); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid filter payload"})
		return
	}

	h.store.SetFilters(partial)
	c.JSON(http.StatusOK, h.store.Criteria())
}

func (h *Handler) getSettings(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.Settings())
}

// putSettings replaces the notification settings wholesale. Degenerate
// values (equal quiet-hour bounds, zero max distance) are accepted and
// evaluated literally by the policy engine.
func (h *Handler) putSettings(c *gin.Context) {
	var settings models.NotificationSettings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings payload"})
		return
	}

	h.store.UpdateSettings(settings)
	c.JSON(http.StatusOK, settings)
}

func (h *Handler) putLocation(c *gin.Context) {
	var loc models.UserLocation
	if err := c.ShouldBindJSON(&loc); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid location payload"})
		return
	}

	h.store.SetUserLocation(loc)
	c.JSON(http.StatusOK, gin.H{"message": "location updated"})
}

func (h *Handler) getStatus(c *gin.Context) {
	status := h.ingestor.Status()
	resp := gin.H{
		"connection": status,
		"filtered":   len(h.store.Filtered()),
	}
	if selected := h.store.Selected(); selected != nil {
		resp["selected"] = selected
	}
	c.JSON(http.StatusOK, resp)
}

// streamAlerts pushes fired alerts to the client as server-sent events until
// the client goes away or the broadcaster closes.
func (h *Handler) streamAlerts(c *gin.Context) {
	id, ch := h.broadcaster.Subscribe()
	defer h.broadcaster.Unsubscribe(id)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	// Flush headers immediately so clients see the stream open before the
	// first alert fires.
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case fired, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("alert", fired)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
