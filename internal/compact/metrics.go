package compact

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// filterTotal counts FilterK calls by outcome
	filterTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "simtree_compact_filter_total",
		Help: "Total filter_k calls by result",
	}, []string{"result"})

	// selectedEntities tracks how many entities each call kept
	selectedEntities = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "simtree_compact_selected_entities",
		Help:    "Number of entities written to real slots per filter_k call",
		Buckets: []float64{0, 1, 4, 16, 64, 256, 1024, 4096},
	})

	// droppedEntities counts entities lost to capacity truncation
	droppedEntities = promauto.NewCounter(prometheus.CounterOpts{
		Name: "simtree_compact_dropped_entities_total",
		Help: "Total masked entities dropped because the capacity was exceeded",
	})
)
