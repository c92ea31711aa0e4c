// Package observability holds the module's prometheus instrumentation.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	MessagesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quake_messages_received_total",
		Help: "Total realtime messages delivered by the channel.",
	})

	EventsInserted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quake_events_inserted_total",
		Help: "Total genuinely new events inserted into the store, labelled by source.",
	}, []string{"source"})

	DuplicatesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quake_duplicates_skipped_total",
		Help: "Total realtime messages whose id was already known.",
	})

	AlertsFired = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quake_alerts_fired_total",
		Help: "Total alerts fired, labelled by tier.",
	}, []string{"tier"})

	AlertsSuppressed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quake_alerts_suppressed_total",
		Help: "Total alerts suppressed by policy, labelled by reason.",
	}, []string{"reason"})

	SnapshotFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quake_snapshot_fetches_total",
		Help: "Total snapshot fetch attempts, labelled by status.",
	}, []string{"status"})

	ConnectionState = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quake_realtime_connected",
		Help: "1 while the realtime channel is connected, 0 otherwise.",
	})

	StoreSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quake_store_events",
		Help: "Events currently held by the store.",
	})
)
