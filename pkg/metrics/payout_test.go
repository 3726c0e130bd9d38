package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func TestPayoutMetricsExportsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewPayoutMetrics(reg)

	metrics.IncBatchCreated("acme supply")
	metrics.IncBatchCreated("acme supply")
	metrics.IncBatchRolledBack()
	metrics.AddItemsSettled(7)
	metrics.IncRefundApplied("partial")
	metrics.AddDuplicateGroups(3)

	mfs, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}

	if got, err := fetchCounterValue(mfs, "settlement_batches_created", "vendor", "acme supply"); err != nil {
		t.Fatalf("fetch batches created: %v", err)
	} else if got != 2 {
		t.Fatalf("expected batches created=2, got %f", got)
	}

	if got, err := fetchCounterValue(mfs, "refunds_applied", "type", "partial"); err != nil {
		t.Fatalf("fetch refunds applied: %v", err)
	} else if got != 1 {
		t.Fatalf("expected refunds applied=1, got %f", got)
	}

	mf := findMetricFamily(mfs, "settlement_items_settled")
	if mf == nil || len(mf.GetMetric()) == 0 {
		t.Fatal("settlement_items_settled not exported")
	}
	if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 7 {
		t.Fatalf("expected items settled=7, got %f", got)
	}

	mf = findMetricFamily(mfs, "duplicate_groups_detected")
	if mf == nil || len(mf.GetMetric()) == 0 {
		t.Fatal("duplicate_groups_detected not exported")
	}
	if got := mf.GetMetric()[0].GetCounter().GetValue(); got != 3 {
		t.Fatalf("expected duplicate groups=3, got %f", got)
	}
}

func TestPayoutMetricsNilSafe(t *testing.T) {
	var metrics *PayoutMetrics
	metrics.IncBatchCreated("x")
	metrics.IncBatchRolledBack()
	metrics.AddItemsSettled(1)
	metrics.IncRefundApplied("full")
	metrics.AddDuplicateGroups(1)

	empty := NewPayoutMetrics(nil)
	empty.IncBatchCreated("x")
	empty.AddItemsSettled(-1)
}
