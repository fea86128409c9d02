package diag

import "testing"

func TestProbe_Deterministic(t *testing.T) {
	a, b := NewProbe(200), NewProbe(200)
	for i := 0; i < 1000; i++ {
		ma, mb := a.Measure(), b.Measure()
		if ma != mb {
			t.Fatalf("iteration %d: probes diverged: %+v vs %+v", i, ma, mb)
		}
	}
}

func TestProbe_MeasurementRanges(t *testing.T) {
	p := NewProbe(200)
	for i := 0; i < 1000; i++ {
		m := p.Measure()
		if m.LatencyUS < 150 || m.LatencyUS > 189 {
			t.Fatalf("latency %d outside synthesis range", m.LatencyUS)
		}
		if m.JitterUS < 1 || m.JitterUS > 3 {
			t.Fatalf("jitter %d outside synthesis range", m.JitterUS)
		}
		if m.Coherence < 0 || m.Coherence > 1 {
			t.Fatalf("coherence %f outside [0,1]", m.Coherence)
		}
		if !p.WithinBound(m) {
			t.Fatalf("latency %d flagged against 200us ceiling", m.LatencyUS)
		}
	}
}

func TestProbe_AdvisoryBound(t *testing.T) {
	p := NewProbe(160)
	sawOver := false
	for i := 0; i < 100; i++ {
		if m := p.Measure(); !p.WithinBound(m) {
			sawOver = true
		}
	}
	if !sawOver {
		t.Error("expected some measurements over a 160us ceiling")
	}
}
