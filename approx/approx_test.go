package approx

import "testing"

func TestComparisons(t *testing.T) {
	tests := []struct {
		name   string
		a, b   float64
		gt, lt bool
		eq     bool
	}{
		{"equal", 1, 1, false, false, true},
		{"drift below epsilon", 1, 1 + Epsilon/2, false, false, true},
		{"clearly greater", 1.1, 1, true, false, false},
		{"clearly less", 0.9, 1, false, true, false},
		{"zero vs tiny", 0, 1e-9, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := GT(tt.a, tt.b); got != tt.gt {
				t.Errorf("GT(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.gt)
			}
			if got := LT(tt.a, tt.b); got != tt.lt {
				t.Errorf("LT(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.lt)
			}
			if got := Eq(tt.a, tt.b); got != tt.eq {
				t.Errorf("Eq(%v, %v) = %v, want %v", tt.a, tt.b, got, tt.eq)
			}
			if GE(tt.a, tt.b) != !tt.lt {
				t.Errorf("GE(%v, %v) inconsistent with LT", tt.a, tt.b)
			}
			if LE(tt.a, tt.b) != !tt.gt {
				t.Errorf("LE(%v, %v) inconsistent with GT", tt.a, tt.b)
			}
		})
	}
}

func TestZero(t *testing.T) {
	if !Zero(Epsilon / 10) {
		t.Error("Zero(Epsilon/10) = false, want true")
	}
	if Zero(-Epsilon * 10) {
		t.Error("Zero(-10*Epsilon) = true, want false")
	}
}
