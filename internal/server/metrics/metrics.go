// Package metrics exposes Prometheus counters for the session core. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcomes recorded for register and login attempts.
const (
	OutcomeSuccess    = "success"
	OutcomeInvalid    = "invalid_credentials"
	OutcomeValidation = "validation_error"
	OutcomeConflict   = "conflict"
	OutcomeError      = "error"
)

type Metrics struct {
	sessionResolutions *prometheus.CounterVec
	authAttempts       *prometheus.CounterVec
	authDuration       *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		sessionResolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gophauth_session_resolutions_total",
				Help: "Session resolutions by result reason",
			},
			[]string{"reason"},
		),
		authAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gophauth_auth_attempts_total",
				Help: "Register and login attempts by outcome",
			},
			[]string{"operation", "outcome"},
		),
		authDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gophauth_auth_duration_seconds",
				Help:    "Register and login latency in seconds, password hashing included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}

	for _, c := range []prometheus.Collector{m.sessionResolutions, m.authAttempts, m.authDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) RecordResolution(reason string) {
	if m == nil {
		return
	}
	m.sessionResolutions.WithLabelValues(reason).Inc()
}

func (m *Metrics) RecordAuthAttempt(operation, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.authAttempts.WithLabelValues(operation, outcome).Inc()
	m.authDuration.WithLabelValues(operation).Observe(elapsed.Seconds())
}
