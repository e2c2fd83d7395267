package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Recon counts reconciliation outcomes. A nil *Recon is a no-op so domain
// services can be built without a registry in tests.
type Recon struct {
	allocations *prometheus.CounterVec
	unallocated prometheus.Counter
	drift       *prometheus.CounterVec
	settlements *prometheus.CounterVec
	notifyFails *prometheus.CounterVec
}

// NewRecon registers the reconciliation collectors.
func NewRecon(registerer prometheus.Registerer) *Recon {
	allocations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hardworker_check_allocations_total",
		Help: "Check allocation runs partitioned by action.",
	}, []string{"action"})
	unallocated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "hardworker_check_unallocated_total",
		Help: "Check saves that left part of the face value unused.",
	})
	drift := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hardworker_installment_drift_total",
		Help: "Installment plans whose rows no longer sum to the source amount.",
	}, []string{"stage"})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hardworker_payroll_settlements_total",
		Help: "Payroll settlement rows touched by reconciliation.",
	}, []string{"action"})
	notifyFails := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "hardworker_calendar_notify_failures_total",
		Help: "Calendar notifications that could not be delivered.",
	}, []string{"category"})
	registerer.MustRegister(allocations, unallocated, drift, settlements, notifyFails)
	return &Recon{
		allocations: allocations,
		unallocated: unallocated,
		drift:       drift,
		settlements: settlements,
		notifyFails: notifyFails,
	}
}

// CheckAllocated records a save or delete of a check.
func (r *Recon) CheckAllocated(action string, unallocated decimal.Decimal) {
	if r == nil {
		return
	}
	r.allocations.WithLabelValues(action).Inc()
	if unallocated.IsPositive() {
		r.unallocated.Inc()
	}
}

// PlanDrift records an unbalanced installment plan.
func (r *Recon) PlanDrift(stage string) {
	if r == nil {
		return
	}
	r.drift.WithLabelValues(stage).Inc()
}

// SettlementsTouched records created or updated payroll rows.
func (r *Recon) SettlementsTouched(action string, count int) {
	if r == nil || count <= 0 {
		return
	}
	r.settlements.WithLabelValues(action).Add(float64(count))
}

// NotifyFailed records a calendar notification failure.
func (r *Recon) NotifyFailed(category string) {
	if r == nil {
		return
	}
	r.notifyFails.WithLabelValues(category).Inc()
}
