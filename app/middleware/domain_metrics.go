package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Task executions partitioned by kind and terminal outcome
	tasksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adpilot_tasks_total",
			Help: "Total number of tasks driven to a terminal state",
		},
		[]string{"kind", "outcome"},
	)

	// Publish runs partitioned by outcome (published, failed)
	publishRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adpilot_publish_runs_total",
			Help: "Total number of completed campaign publish runs",
		},
		[]string{"outcome"},
	)

	// Remote objects seen per sync pass, partitioned by hierarchy level
	syncObjectsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adpilot_sync_objects_total",
			Help: "Total number of remote objects enumerated by sync passes",
		},
		[]string{"level"},
	)

	// Insight rows written or rejected by sync passes
	insightRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "adpilot_insight_rows_total",
			Help: "Total number of insight rows processed by sync passes",
		},
		[]string{"result"},
	)
)

// ObserveTask records one task reaching a terminal state
func ObserveTask(kind, outcome string) {
	tasksTotal.WithLabelValues(kind, outcome).Inc()
}

// ObservePublishRun records one completed publish run
func ObservePublishRun(success bool) {
	outcome := "published"
	if !success {
		outcome = "failed"
	}
	publishRunsTotal.WithLabelValues(outcome).Inc()
}

// ObserveSyncObjects records enumerated object counts for one level
func ObserveSyncObjects(level string, count int) {
	if count > 0 {
		syncObjectsTotal.WithLabelValues(level).Add(float64(count))
	}
}

// ObserveInsightRows records upserted and rejected insight row counts
func ObserveInsightRows(upserted, failed int) {
	if upserted > 0 {
		insightRowsTotal.WithLabelValues("upserted").Add(float64(upserted))
	}
	if failed > 0 {
		insightRowsTotal.WithLabelValues("failed").Add(float64(failed))
	}
}
