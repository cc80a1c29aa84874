// Package obs holds Prometheus instrumentation for the booking core.
// All consumers treat a nil *Metrics as "metrics disabled", so tests
// can construct core components without touching the default registry.
package obs

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the collectors exported by the booking core.
type Metrics struct {
	AcquireTotal *prometheus.CounterVec // result=granted|denied
	LocksHeld    prometheus.Gauge       // active (unexpired) checkout locks
	ExpiredTotal prometheus.Counter     // locks removed by expiry (lazy or sweep)
	SweepTotal   prometheus.Counter     // sweep passes executed
	TimedOutOrders prometheus.Counter   // pending orders auto-cancelled by the sweep
}

// NewMetrics constructs the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AcquireTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_lock_acquire_total",
				Help: "Checkout lock acquire attempts by result",
			},
			[]string{"result"},
		),
		LocksHeld: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "booking_locks_held",
			Help: "Currently active checkout locks",
		}),
		ExpiredTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booking_locks_expired_total",
			Help: "Checkout locks removed after TTL expiry",
		}),
		SweepTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booking_sweep_total",
			Help: "Maintenance sweep passes executed",
		}),
		TimedOutOrders: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "booking_orders_timed_out_total",
			Help: "Pending-payment orders auto-cancelled past their deadline",
		}),
	}
	reg.MustRegister(m.AcquireTotal, m.LocksHeld, m.ExpiredTotal, m.SweepTotal, m.TimedOutOrders)
	return m
}

// IncAcquire records one acquire attempt.  Nil-safe.
func (m *Metrics) IncAcquire(result string) {
	if m == nil {
		return
	}
	m.AcquireTotal.WithLabelValues(result).Inc()
}

// SetLocksHeld updates the active-lock gauge.  Nil-safe.
func (m *Metrics) SetLocksHeld(n int) {
	if m == nil {
		return
	}
	m.LocksHeld.Set(float64(n))
}

// AddExpired counts locks removed by expiry.  Nil-safe.
func (m *Metrics) AddExpired(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ExpiredTotal.Add(float64(n))
}

// IncSweep counts one sweep pass.  Nil-safe.
func (m *Metrics) IncSweep() {
	if m == nil {
		return
	}
	m.SweepTotal.Inc()
}

// AddTimedOutOrders counts auto-cancelled pending orders.  Nil-safe.
func (m *Metrics) AddTimedOutOrders(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.TimedOutOrders.Add(float64(n))
}
