package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AssignTotal counts box assignment attempts by outcome
	// (ok, conflict, validation, not_found, error).
	AssignTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "clinibox_assign_total",
		Help: "Box assignment attempts by outcome.",
	}, []string{"outcome"})

	FinalizeTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clinibox_finalize_total",
		Help: "Completed attention episodes.",
	})

	AutosaveBatches = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clinibox_autosave_batches_total",
		Help: "Autosave batch writes applied.",
	})

	SnapshotFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clinibox_snapshot_failures_total",
		Help: "Audit snapshot writes that failed and were swallowed.",
	})

	Broadcasts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "clinibox_ws_broadcasts_total",
		Help: "state-changed events pushed to the websocket hub.",
	})
)
