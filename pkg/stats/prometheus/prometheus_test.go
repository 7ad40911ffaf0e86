package prometheus

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func gather(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	t.Fatalf("metric %s not found in registry", name)
	return nil
}

func TestNew_DefaultRegistry(t *testing.T) {
	c := New(nil)
	if c.registry == nil {
		t.Error("registry should not be nil")
	}
}

func TestCollector_IncCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.IncCounter("test_requests_total", 5)
	c.IncCounter("test_requests_total", 3)

	val := gather(t, reg, "test_requests_total").GetMetric()[0].GetCounter().GetValue()
	if val != 8 {
		t.Errorf("counter value = %v, want 8", val)
	}
}

func TestCollector_SetGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.SetGauge("test_entries", 10)
	c.SetGauge("test_entries", 4)

	val := gather(t, reg, "test_entries").GetMetric()[0].GetGauge().GetValue()
	if val != 4 {
		t.Errorf("gauge value = %v, want 4", val)
	}
}

func TestCollector_ObserveHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(reg)

	c.ObserveHistogram("test_route_seconds", 0.02)
	c.ObserveHistogram("test_route_seconds", 0.2)

	h := gather(t, reg, "test_route_seconds").GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 2 {
		t.Errorf("sample count = %d, want 2", h.GetSampleCount())
	}
}

func TestCollector_SharedRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	a := New(reg)
	b := New(reg)

	a.IncCounter("test_shared_total", 1)
	b.IncCounter("test_shared_total", 2)

	val := gather(t, reg, "test_shared_total").GetMetric()[0].GetCounter().GetValue()
	if val != 3 {
		t.Errorf("counter value = %v, want 3", val)
	}
}
