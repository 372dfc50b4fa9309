package tagging

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Sync failure kinds, used as the "kind" label of SyncFailures.
const (
	FailureConflict = "conflict"
	FailurePartial  = "partial"
	FailureStorage  = "storage"
)

// Metrics counts tagging writes. Pass a nil registerer to get working but
// unregistered collectors.
type Metrics struct {
	TagsCreated         prometheus.Counter
	TaggingsCreated     prometheus.Counter
	TaggingsRemoved     prometheus.Counter
	TaggingsSpecialised prometheus.Counter
	ConflictRetries     prometheus.Counter
	SyncFailures        *prometheus.CounterVec
}

// NewMetrics creates the tagging collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	counter := func(name, help string) prometheus.Counter {
		return factory.NewCounter(prometheus.CounterOpts{
			Namespace: "tagtical",
			Subsystem: "tagging",
			Name:      name,
			Help:      help,
		})
	}

	return &Metrics{
		TagsCreated:         counter("tags_created_total", "Tag records created by find-or-create"),
		TaggingsCreated:     counter("taggings_created_total", "Tagging rows inserted"),
		TaggingsRemoved:     counter("taggings_removed_total", "Tagging rows deleted by synchronization or explicit removal"),
		TaggingsSpecialised: counter("taggings_specialised_total", "Taggings moved to a more specific tag type"),
		ConflictRetries:     counter("conflict_retries_total", "Find-or-create attempts that lost a uniqueness race"),
		SyncFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tagtical",
			Subsystem: "tagging",
			Name:      "sync_failures_total",
			Help:      "Save cycles that reported an error, by kind",
		}, []string{"kind"}),
	}
}
