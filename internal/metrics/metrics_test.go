package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// gathered sums every sample of the named family.
func gathered(t *testing.T, name string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				sum += m.GetCounter().GetValue()
			case m.GetGauge() != nil:
				sum += m.GetGauge().GetValue()
			}
		}
	}
	return sum
}

func TestCounters(t *testing.T) {
	Init()
	Init()

	before := gathered(t, "casebinder_cases_total")
	ObserveCase("ok", 20*time.Millisecond)
	if got := gathered(t, "casebinder_cases_total"); got != before+1 {
		t.Errorf("cases_total = %v, want %v", got, before+1)
	}

	AddPages("combined", 3)
	if got := gathered(t, "casebinder_pages_emitted_total"); got < 3 {
		t.Errorf("pages_emitted_total = %v", got)
	}

	base := gathered(t, "casebinder_jobs_inflight")
	JobQueued()
	JobQueued()
	JobFinished()
	if got := gathered(t, "casebinder_jobs_inflight"); got != base+1 {
		t.Errorf("jobs_inflight = %v, want %v", got, base+1)
	}
}
