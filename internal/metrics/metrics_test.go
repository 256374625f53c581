package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewRegistersOnPrivateRegistry(t *testing.T) {
	m := New()
	reg := prometheus.NewRegistry()
	reg.MustRegister(m.collectors()...)

	m.Admissions.WithLabelValues("accepted").Inc()
	m.Admissions.WithLabelValues("rejected").Add(2)

	if got := testutil.ToFloat64(m.Admissions.WithLabelValues("rejected")); got != 2 {
		t.Fatalf("expected 2 rejected admissions, got %v", got)
	}
	if n := testutil.CollectAndCount(m.Admissions); n != 2 {
		t.Fatalf("expected 2 label sets, got %d", n)
	}
}

func TestGlobalIsSingleton(t *testing.T) {
	if Global() != Global() {
		t.Fatalf("expected Global to return the same instance")
	}
}
