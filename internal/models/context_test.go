package models

import "testing"

func TestAggregationContext_Normalize(t *testing.T) {
	tests := []struct {
		name          string
		k             int
		threshold     float64
		wantK         int
		wantThreshold float64
	}{
		{"valid", 3, 0.5, 3, 0.5},
		{"zero_k", 0, 0.8, 1, 0.8},
		{"negative_threshold", 5, -1, 5, 0},
		{"threshold_above_one", 5, 2, 5, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := AggregationContext{K: tt.k, Threshold: tt.threshold}.Normalize()
			if c.K != tt.wantK || c.Threshold != tt.wantThreshold {
				t.Errorf("Normalize() = K=%d threshold=%f, want K=%d threshold=%f",
					c.K, c.Threshold, tt.wantK, tt.wantThreshold)
			}
		})
	}
}

func TestAggregationContext_SelectionLifecycle(t *testing.T) {
	base := NewAggregationContext("chess", "openings-v2", "accuracy")
	pinned := base.WithSelection("gpt-5", []string{"r1.json", "r2.json"})

	if got := pinned.Selection("gpt-5"); len(got) != 2 {
		t.Fatalf("expected 2 pinned runs, got %v", got)
	}
	if base.Selection("gpt-5") != nil {
		t.Error("WithSelection mutated the receiver")
	}

	// Metric and threshold changes keep the pin.
	if got := pinned.WithMetric("f1").Selection("gpt-5"); len(got) != 2 {
		t.Error("metric change should keep custom selections")
	}
	if got := pinned.WithThreshold(0.5).Selection("gpt-5"); len(got) != 2 {
		t.Error("threshold change should keep custom selections")
	}

	// K and view changes clear it.
	if got := pinned.WithK(3).Selection("gpt-5"); got != nil {
		t.Error("K change should clear custom selections")
	}
	if got := pinned.WithView("chess", "endgames").Selection("gpt-5"); got != nil {
		t.Error("view change should clear custom selections")
	}
}

func TestAggregationContext_WithSelectionCopiesMap(t *testing.T) {
	a := NewAggregationContext("t", "d", "m").WithSelection("m1", []string{"a.json"})
	b := a.WithSelection("m2", []string{"b.json"})

	if a.Selection("m2") != nil {
		t.Error("adding a selection to a derived context leaked into the original")
	}
	if b.Selection("m1") == nil {
		t.Error("derived context lost the original selection")
	}
}
