package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew_RegistersAll(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RecordGenerated(1)
	m.ObserveRender(0.01)
	m.RecordValidationError("empty")
	m.RecordStorageError("save")
	m.RecordDownload("ok")
	m.RecordRateLimited()

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	if len(families) != 7 {
		t.Errorf("gathered %d metric families, want 7", len(families))
	}
}

func TestNew_SeparateRegistries(t *testing.T) {
	// Each registry gets its own collectors, so repeated construction must not panic.
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}

func TestRecordGenerated(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordGenerated(1)
	m.RecordGenerated(2)
	m.RecordGenerated(3)

	if got := testutil.ToFloat64(m.PlotsGenerated); got != 3 {
		t.Errorf("PlotsGenerated = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.StoredPlots); got != 3 {
		t.Errorf("StoredPlots = %v, want 3", got)
	}
}

func TestRecordValidationError(t *testing.T) {
	m := New(prometheus.NewRegistry())

	reasons := []string{"empty", "too_many_points", "non_numeric", "empty"}
	for _, r := range reasons {
		m.RecordValidationError(r)
	}

	if got := testutil.ToFloat64(m.ValidationErrors.WithLabelValues("empty")); got != 2 {
		t.Errorf("empty = %v, want 2", got)
	}
	if count := testutil.CollectAndCount(m.ValidationErrors); count != 3 {
		t.Errorf("expected 3 label combinations, got %d", count)
	}
}

func TestRecordStorageErrorAndDownload(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordStorageError("load")
	m.RecordDownload("not_found")
	m.RecordDownload("ok")

	if got := testutil.ToFloat64(m.StorageErrors.WithLabelValues("load")); got != 1 {
		t.Errorf("storage load errors = %v, want 1", got)
	}
	if count := testutil.CollectAndCount(m.Downloads); count != 2 {
		t.Errorf("expected 2 download outcomes, got %d", count)
	}
}

func TestObserveRender(t *testing.T) {
	m := New(prometheus.NewRegistry())

	for range 10 {
		m.ObserveRender(0.05)
	}

	if count := testutil.CollectAndCount(m.RenderDuration); count != 1 {
		t.Errorf("expected 1 histogram, got %d", count)
	}
}
