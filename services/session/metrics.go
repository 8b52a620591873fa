package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricSessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "territoryd_sessions_created_total",
		Help: "Sessions created.",
	})

	metricSessionsEnded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "territoryd_sessions_ended_total",
		Help: "Sessions ended, by cause.",
	}, []string{"cause"})

	metricSweepFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "territoryd_sweep_row_failures_total",
		Help: "Expired sessions the sweep failed to end.",
	})

	metricSweepRuns = promauto.NewCounter(prometheus.CounterOpts{
		Name: "territoryd_sweep_runs_total",
		Help: "Completed sweep cycles.",
	})

	metricJoins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "territoryd_joins_total",
		Help: "Join attempts, by outcome.",
	}, []string{"outcome"})

	metricParticipantRecordFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "territoryd_participant_record_failures_total",
		Help: "Best-effort participant inserts that failed.",
	})
)
