package execution

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts binding decisions and buffering. A nil registerer keeps the metrics unregistered.
type Metrics struct {
	joinAlgorithm *prometheus.CounterVec
	sortRows      prometheus.Counter
	boundNodes    *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		joinAlgorithm: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "qexec",
			Name:      "join_algorithm_total",
			Help:      "Number of joins bound, by chosen algorithm.",
		}, []string{"algorithm"}),
		sortRows: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Namespace: "qexec",
			Name:      "sort_materialized_rows_total",
			Help:      "Number of rows buffered by sorts.",
		}),
		boundNodes: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Namespace: "qexec",
			Name:      "bound_nodes_total",
			Help:      "Number of plan nodes bound to executors, by node kind.",
		}, []string{"kind"}),
	}
}
