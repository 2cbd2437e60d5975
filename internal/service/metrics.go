package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups the planner's Prometheus collectors.
type Metrics struct {
	ItemsCreated           *prometheus.CounterVec
	MonthPlansCreated      prometheus.Counter
	MemorableRegenerations *prometheus.CounterVec
	ItemsConverted         prometheus.Counter
	ConstraintViolations   *prometheus.CounterVec
}

// NewMetrics builds the collectors and registers them on reg when it is not nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ItemsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planner",
			Name:      "calendar_items_created_total",
			Help:      "Calendar items created, by item type.",
		}, []string{"type"}),
		MonthPlansCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "planner",
			Name:      "month_plans_created_total",
			Help:      "Month plans created.",
		}),
		MemorableRegenerations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planner",
			Name:      "memorable_regenerations_total",
			Help:      "Memorable event regenerations, by trigger.",
		}, []string{"trigger"}),
		ItemsConverted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "planner",
			Name:      "timezone_items_converted_total",
			Help:      "Calendar items moved to a new timezone.",
		}),
		ConstraintViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "planner",
			Name:      "constraint_violations_total",
			Help:      "Constraint violations found during validation, by kind.",
		}, []string{"kind"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ItemsCreated,
			m.MonthPlansCreated,
			m.MemorableRegenerations,
			m.ItemsConverted,
			m.ConstraintViolations,
		)
	}
	return m
}
