// Package ingestion merges the one-shot snapshot fetch and the continuous
// realtime feed into the event store, and fires the alert pipeline exactly
// once per genuinely new event.
package ingestion

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mr1hm/go-quake-alerts/internal/alert"
	"github.com/mr1hm/go-quake-alerts/internal/models"
	"github.com/mr1hm/go-quake-alerts/internal/normalize"
	"github.com/mr1hm/go-quake-alerts/internal/observability"
	"github.com/mr1hm/go-quake-alerts/internal/store"
	"github.com/mr1hm/go-quake-alerts/internal/worker"
)

type ConnectionState string

const (
	StateDisconnected ConnectionState = "disconnected"
	StateConnecting   ConnectionState = "connecting"
	StateConnected    ConnectionState = "connected"
)

// SnapshotParams narrows a snapshot fetch. Zero values mean "no constraint".
type SnapshotParams struct {
	MinMagnitude *float64
	MaxMagnitude *float64
	Location     string
	StartDate    time.Time
	EndDate      time.Time
	Limit        int
}

// SnapshotSource is the request/response collaborator returning recent
// events. Transport failures must surface as errors, never as empty data.
type SnapshotSource interface {
	Fetch(ctx context.Context, params SnapshotParams) ([]models.EarthquakeEvent, error)
}

// ChannelHandlers are the callbacks a RealtimeChannel drives. Reconnection
// policy belongs to the channel; the coordinator only reacts to transitions.
type ChannelHandlers struct {
	OnConnect    func()
	OnDisconnect func(err error)
	OnMessage    func(payload []byte)
}

// RealtimeChannel is the persistent subscription delivering raw event
// payloads as they occur.
type RealtimeChannel interface {
	Connect(ctx context.Context, handlers ChannelHandlers) error
	Close()
}

// Status is the coordinator's externally visible connectivity surface.
type Status struct {
	State      ConnectionState `json:"state"`
	LastError  string          `json:"last_error,omitempty"`
	LastUpdate *time.Time      `json:"last_update,omitempty"`
	EventsHeld int             `json:"events_held"`
}

type Options struct {
	SnapshotLimit    int
	SnapshotFallback bool // serve the placeholder event when the seed fetch fails
	Workers          int
	BufferSize       int
}

type Coordinator struct {
	store      *store.Store
	engine     *alert.Engine
	dispatcher *alert.Dispatcher
	snapshot   SnapshotSource
	channel    RealtimeChannel
	opts       Options

	pool   *worker.Pool[[]byte]
	active atomic.Bool

	// stopCtx is canceled at the start of Stop so a callback blocked on a
	// full pool buffer gives up instead of holding submitMu forever.
	stopCtx    context.Context
	stopCancel context.CancelFunc

	// submitMu serializes message callbacks against Stop so no callback can
	// touch the pool after shutdown began.
	submitMu sync.RWMutex

	mu         sync.RWMutex
	state      ConnectionState
	lastErr    string
	lastUpdate *time.Time
}

func NewCoordinator(s *store.Store, engine *alert.Engine, dispatcher *alert.Dispatcher, snapshot SnapshotSource, channel RealtimeChannel, opts Options) *Coordinator {
	if opts.SnapshotLimit <= 0 {
		opts.SnapshotLimit = 30
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 64
	}
	stopCtx, stopCancel := context.WithCancel(context.Background())
	return &Coordinator{
		store:      s,
		engine:     engine,
		dispatcher: dispatcher,
		snapshot:   snapshot,
		channel:    channel,
		opts:       opts,
		state:      StateDisconnected,
		stopCtx:    stopCtx,
		stopCancel: stopCancel,
	}
}

// Start seeds the store from the snapshot source, then opens the realtime
// subscription. A failed seed degrades to live-only ingestion; a failed
// channel connect is returned, with held events intact either way.
func (c *Coordinator) Start(ctx context.Context) error {
	c.active.Store(true)
	c.setState(StateConnecting, "")

	c.seed(ctx)

	c.pool = worker.NewPool(c.opts.Workers, c.opts.BufferSize, c.process)
	c.pool.Start(ctx)

	err := c.channel.Connect(ctx, ChannelHandlers{
		OnConnect: func() {
			c.setState(StateConnected, "")
			observability.ConnectionState.Set(1)
			slog.Info("realtime channel connected")
		},
		OnDisconnect: func(err error) {
			msg := ""
			if err != nil {
				msg = err.Error()
			}
			c.setState(StateDisconnected, msg)
			observability.ConnectionState.Set(0)
			slog.Warn("realtime channel disconnected", "error", msg)
		},
		OnMessage: c.handleMessage,
	})
	if err != nil {
		c.setState(StateDisconnected, err.Error())
		return err
	}
	return nil
}

// seed performs the one-shot snapshot fetch and replaces the store contents.
// Seed events never alert; they are what the user already missed.
func (c *Coordinator) seed(ctx context.Context) {
	source := "snapshot"
	events, err := c.snapshot.Fetch(ctx, SnapshotParams{Limit: c.opts.SnapshotLimit})
	if err != nil {
		observability.SnapshotFetches.WithLabelValues("error").Inc()
		c.setState(StateConnecting, err.Error())
		slog.Error("snapshot seed failed", "error", err)

		if c.opts.SnapshotFallback {
			events = PlaceholderEvents()
			source = "placeholder"
			slog.Warn("serving placeholder snapshot data", "count", len(events))
		} else {
			return
		}
	} else {
		observability.SnapshotFetches.WithLabelValues("ok").Inc()
	}

	c.store.ReplaceAll(events)
	// Len after ReplaceAll is the number actually held: fetch results can
	// carry duplicate ids, and the fallback is not real snapshot data.
	held := c.store.Len()
	observability.StoreSize.Set(float64(held))
	observability.EventsInserted.WithLabelValues(source).Add(float64(held))
	c.touch()
	slog.Info("snapshot seeded", "count", held)
}

// handleMessage is the realtime delivery callback. It is a no-op once Stop
// has begun.
func (c *Coordinator) handleMessage(payload []byte) {
	c.submitMu.RLock()
	defer c.submitMu.RUnlock()
	if !c.active.Load() {
		return
	}
	c.pool.Submit(c.stopCtx, payload)
}

// process ingests one realtime payload: normalize, upsert, and alert only
// when the id was genuinely unknown. Redelivered ids are counted and dropped.
func (c *Coordinator) process(_ context.Context, payload []byte) error {
	if !c.active.Load() {
		return nil
	}

	observability.MessagesReceived.Inc()

	ev := normalize.Normalize(normalize.Decode(payload))
	ev.Source = "realtime"

	inserted := c.store.Upsert(ev)
	observability.StoreSize.Set(float64(c.store.Len()))
	c.touch()

	if !inserted {
		observability.DuplicatesSkipped.Inc()
		slog.Debug("duplicate event skipped", "id", ev.ID)
		return nil
	}

	observability.EventsInserted.WithLabelValues("realtime").Inc()
	slog.Info("event ingested", "id", ev.ID, "magnitude", ev.Magnitude, "place", ev.Location.Place)

	decision := c.engine.Decide(ev, c.store.Settings(), c.store.UserLocation())
	c.dispatcher.Dispatch(ev, decision)
	return nil
}

// Refresh re-runs the snapshot fetch and merges it through Upsert, so events
// that arrived since the seed still alert exactly once.
func (c *Coordinator) Refresh(ctx context.Context) error {
	events, err := c.snapshot.Fetch(ctx, SnapshotParams{Limit: c.opts.SnapshotLimit})
	if err != nil {
		observability.SnapshotFetches.WithLabelValues("error").Inc()
		return err
	}
	observability.SnapshotFetches.WithLabelValues("ok").Inc()

	for _, ev := range events {
		if !c.store.Upsert(ev) {
			continue
		}
		observability.EventsInserted.WithLabelValues("snapshot").Inc()
		decision := c.engine.Decide(ev, c.store.Settings(), c.store.UserLocation())
		c.dispatcher.Dispatch(ev, decision)
	}
	observability.StoreSize.Set(float64(c.store.Len()))
	c.touch()
	return nil
}

// Stop closes the channel and drains the pool. Safe to call at any time; any
// callback delivered after Stop completes is a no-op.
func (c *Coordinator) Stop() {
	c.stopCancel()
	c.submitMu.Lock()
	wasActive := c.active.Swap(false)
	c.submitMu.Unlock()
	if !wasActive {
		return
	}

	c.channel.Close()
	if c.pool != nil {
		c.pool.Stop()
	}
	c.setState(StateDisconnected, "")
	observability.ConnectionState.Set(0)
	slog.Info("ingestion stopped")
}

func (c *Coordinator) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return Status{
		State:      c.state,
		LastError:  c.lastErr,
		LastUpdate: c.lastUpdate,
		EventsHeld: c.store.Len(),
	}
}

func (c *Coordinator) setState(state ConnectionState, errMsg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = state
	c.lastErr = errMsg
}

func (c *Coordinator) touch() {
	now := time.Now()
	c.mu.Lock()
	c.lastUpdate = &now
	c.mu.Unlock()
}
