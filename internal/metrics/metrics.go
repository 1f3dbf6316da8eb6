package metrics

import (
	"errors"
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	regOK atomic.Bool

	workoutsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mapty",
			Subsystem: "workouts",
			Name:      "created_total",
			Help:      "Number of workouts created, by type.",
		}, []string{"type"},
	)
	validationFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mapty",
			Subsystem: "form",
			Name:      "validation_failures_total",
			Help:      "Number of rejected form submissions, by offending field.",
		}, []string{"field"},
	)
	storeSaves = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mapty",
			Subsystem: "store",
			Name:      "saves_total",
			Help:      "Number of full-blob writes, by result.",
		}, []string{"result"},
	)
	storeLoadFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mapty",
			Subsystem: "store",
			Name:      "load_failures_total",
			Help:      "Number of loads that fell back to an empty store.",
		},
	)
	storedWorkouts = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "mapty",
			Subsystem: "store",
			Name:      "workouts",
			Help:      "Number of workouts currently held in the store.",
		},
	)
)

// Register registers all collectors with r. Calling it again after success is a no-op.
func Register(r prometheus.Registerer) error {
	if regOK.Load() {
		return nil
	}
	cs := []prometheus.Collector{workoutsCreated, validationFailures, storeSaves, storeLoadFailures, storedWorkouts}
	for _, c := range cs {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	regOK.Store(true)
	return nil
}

// Handler serves the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

func WorkoutCreated(kind string) { workoutsCreated.WithLabelValues(kind).Inc() }

func ValidationFailed(field string) { validationFailures.WithLabelValues(field).Inc() }

func StoreSaved(err error) {
	if err != nil {
		storeSaves.WithLabelValues("error").Inc()
		return
	}
	storeSaves.WithLabelValues("ok").Inc()
}

func StoreLoadFailed() { storeLoadFailures.Inc() }

func SetStoredWorkouts(n int) { storedWorkouts.Set(float64(n)) }
