package occupancy

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Fetch outcomes recorded in washroom_fetch_total.
const (
	fetchOK             = "ok"
	fetchStale          = "stale"
	fetchSessionExpired = "session_expired"
	fetchFailed         = "failed"
	fetchCanceled       = "canceled"
)

// Metrics holds the engine's prometheus collectors.
type Metrics struct {
	Fetches         *prometheus.CounterVec
	Actions         *prometheus.CounterVec
	AvailableStalls prometheus.Gauge
	Waiting         prometheus.Gauge
}

// NewMetrics creates the collectors and registers them with reg when it is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Fetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "washroom",
			Name:      "fetch_total",
			Help:      "Snapshot fetches by outcome.",
		}, []string{"result"}),
		Actions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "washroom",
			Name:      "action_total",
			Help:      "Stall actions by kind and outcome.",
		}, []string{"action", "result"}),
		AvailableStalls: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "washroom",
			Name:      "available_stalls",
			Help:      "Sum of the server-reported available counts in the installed snapshot.",
		}),
		Waiting: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "washroom",
			Name:      "waitlist_size",
			Help:      "Stalls this client is waiting on.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Fetches, m.Actions, m.AvailableStalls, m.Waiting)
	}
	return m
}
