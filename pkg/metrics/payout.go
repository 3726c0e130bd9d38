package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PayoutMetrics records settlement activity counters.
type PayoutMetrics struct {
	batchesCreated  *prometheus.CounterVec
	batchesRolled   prometheus.Counter
	itemsSettled    prometheus.Counter
	refundsApplied  *prometheus.CounterVec
	duplicateGroups prometheus.Counter
}

// NewPayoutMetrics registers the settlement metrics on the provided registerer.
func NewPayoutMetrics(reg prometheus.Registerer) *PayoutMetrics {
	if reg == nil {
		return &PayoutMetrics{}
	}
	batchesCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "settlement_batches_created",
		Help: "Settlement batches created, by vendor.",
	}, []string{"vendor"})
	batchesRolled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_batches_rolled_back",
		Help: "Settlement batches removed by compensating rollback.",
	})
	itemsSettled := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "settlement_items_settled",
		Help: "Line items attached to settlement batches.",
	})
	refundsApplied := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "refunds_applied",
		Help: "Refunds applied to line items, by refund type.",
	}, []string{"type"})
	duplicateGroups := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "duplicate_groups_detected",
		Help: "Duplicate line item groups detected per scan.",
	})
	reg.MustRegister(batchesCreated, batchesRolled, itemsSettled, refundsApplied, duplicateGroups)
	return &PayoutMetrics{
		batchesCreated:  batchesCreated,
		batchesRolled:   batchesRolled,
		itemsSettled:    itemsSettled,
		refundsApplied:  refundsApplied,
		duplicateGroups: duplicateGroups,
	}
}

// IncBatchCreated increments the created-batch counter for the vendor.
func (p *PayoutMetrics) IncBatchCreated(vendor string) {
	if p == nil || p.batchesCreated == nil {
		return
	}
	p.batchesCreated.WithLabelValues(normalizeLabel(vendor)).Inc()
}

// IncBatchRolledBack increments the rollback counter.
func (p *PayoutMetrics) IncBatchRolledBack() {
	if p == nil || p.batchesRolled == nil {
		return
	}
	p.batchesRolled.Inc()
}

// AddItemsSettled adds n to the settled line item counter.
func (p *PayoutMetrics) AddItemsSettled(n int) {
	if p == nil || p.itemsSettled == nil || n <= 0 {
		return
	}
	p.itemsSettled.Add(float64(n))
}

// IncRefundApplied increments the refund counter for the given refund type.
func (p *PayoutMetrics) IncRefundApplied(refundType string) {
	if p == nil || p.refundsApplied == nil {
		return
	}
	p.refundsApplied.WithLabelValues(normalizeLabel(refundType)).Inc()
}

// AddDuplicateGroups adds n to the detected duplicate group counter.
func (p *PayoutMetrics) AddDuplicateGroups(n int) {
	if p == nil || p.duplicateGroups == nil || n <= 0 {
		return
	}
	p.duplicateGroups.Add(float64(n))
}
