package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.RecordAcquisition("success")
	m.RecordAcquisition("success")
	m.RecordAcquisition("not_found")
	m.RecordCapture(10*time.Millisecond, 3)

	if got := testutil.ToFloat64(m.Acquisitions.WithLabelValues("success")); got != 2 {
		t.Errorf("Expected 2 successful acquisitions, got %v", got)
	}
	if got := testutil.ToFloat64(m.Acquisitions.WithLabelValues("not_found")); got != 1 {
		t.Errorf("Expected 1 not_found acquisition, got %v", got)
	}
	if got := testutil.ToFloat64(m.Captures); got != 1 {
		t.Errorf("Expected 1 capture, got %v", got)
	}
	if got := testutil.ToFloat64(m.GallerySize); got != 3 {
		t.Errorf("Expected gallery size 3, got %v", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	// nil でもパニックしないこと
	m.RecordAcquisition("success")
	m.RecordCapture(time.Millisecond, 1)
	if m.Registry() != nil {
		t.Error("Expected nil registry")
	}
}
