package room

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ingestedBatches = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rooms",
		Subsystem: "engine",
		Name:      "ingested_batches_total",
		Help:      "Server batches merged into local state",
	})

	suppressedAIMessages = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rooms",
		Subsystem: "engine",
		Name:      "suppressed_ai_messages_total",
		Help:      "AI replies dropped by the freshness filter",
	})

	reactionRollbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rooms",
		Subsystem: "engine",
		Name:      "reaction_rollbacks_total",
		Help:      "Optimistic reaction toggles rolled back after a failed dispatch",
	})

	stuckSendSweeps = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rooms",
		Subsystem: "engine",
		Name:      "stuck_send_sweeps_total",
		Help:      "Messages forced out of the sending state by the sweep",
	})
)
