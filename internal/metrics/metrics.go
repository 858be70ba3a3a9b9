// Package metrics exposes Prometheus collectors for the rental core.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by the quote and booking counters.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Recorder records domain events. A nil *Recorder is valid and records nothing.
type Recorder struct {
	checks   *prometheus.CounterVec
	quotes   *prometheus.CounterVec
	bookings *prometheus.CounterVec
	fleet    *prometheus.HistogramVec
}

// NewRecorder registers the collectors on reg, or on the default registerer when
// reg is nil. Collectors that are already registered are reused.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	checks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rental_availability_checks_total",
		Help: "Availability checks by reason code",
	}, []string{"reason"})
	quotes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rental_quotes_total",
		Help: "Price calculations by outcome",
	}, []string{"outcome"})
	bookings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "rental_bookings_total",
		Help: "Booking attempts by operation and outcome",
	}, []string{"operation", "outcome"})
	fleet := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "rental_fleet_scan_duration_seconds",
		Help:    "Wall time of fleet availability scans",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	var err error
	if checks, err = register(reg, checks); err != nil {
		return nil, err
	}
	if quotes, err = register(reg, quotes); err != nil {
		return nil, err
	}
	if bookings, err = register(reg, bookings); err != nil {
		return nil, err
	}
	if fleet, err = register(reg, fleet); err != nil {
		return nil, err
	}

	return &Recorder{checks: checks, quotes: quotes, bookings: bookings, fleet: fleet}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (r *Recorder) ObserveCheck(reason string) {
	if r == nil {
		return
	}
	r.checks.WithLabelValues(reason).Inc()
}

func (r *Recorder) ObserveQuote(outcome string) {
	if r == nil {
		return
	}
	r.quotes.WithLabelValues(outcome).Inc()
}

// ObserveBooking counts a booking operation ("create" or "cancel").
func (r *Recorder) ObserveBooking(operation, outcome string) {
	if r == nil {
		return
	}
	r.bookings.WithLabelValues(operation, outcome).Inc()
}

func (r *Recorder) ObserveFleetScan(d time.Duration, outcome string) {
	if r == nil {
		return
	}
	r.fleet.WithLabelValues(outcome).Observe(d.Seconds())
}
