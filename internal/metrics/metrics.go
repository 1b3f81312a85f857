package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ObservationLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "langfuse_observation_lookups_total",
		Help: "Observation lookups by store tier and outcome",
	}, []string{"tier", "result"})

	CSVExportRows = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "langfuse_csv_export_rows",
		Help:    "Rows per dataset run CSV export",
		Buckets: []float64{0, 10, 50, 100, 500, 1000, 5000, 10000},
	})

	RemoteExperimentTriggers = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "langfuse_remote_experiment_triggers_total",
		Help: "Remote experiment webhook calls by outcome",
	}, []string{"status"})
)
