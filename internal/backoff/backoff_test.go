package backoff

import "testing"

func TestDelayIsCapped(t *testing.T) {
	p := Policy{Base: 10 * 1e6, Max: 100 * 1e6} // 10ms base, 100ms cap (durations in ns)
	for attempt := 0; attempt < 20; attempt++ {
		d := p.Delay(attempt)
		if d > p.Max {
			t.Fatalf("attempt %d: delay %v exceeds cap %v", attempt, d, p.Max)
		}
		if d < 0 {
			t.Fatalf("attempt %d: delay %v is negative", attempt, d)
		}
	}
}

func TestDelayGrows(t *testing.T) {
	p := DefaultPolicy
	// Not a strict monotonic guarantee (jitter), but the base schedule
	// should generally trend upward before hitting the cap.
	first := p.Delay(0)
	later := p.Delay(5)
	if first <= 0 || later <= 0 {
		t.Fatal("delays must be positive")
	}
	if later <= first {
		t.Fatalf("Delay(5) = %v, want more than Delay(0) = %v", later, first)
	}
}
