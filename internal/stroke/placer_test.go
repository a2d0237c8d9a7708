package stroke

import (
	"math"
	"testing"

	"github.com/gogpu/paint/internal/brush"
)

func TestPlaceSpacing(t *testing.T) {
	pr := brush.New(brush.Params{Size: 20, Opacity: 1, Spacing: 0.1})
	dabs := Place(pr, 1, []Sample{{X: 0, Y: 0, Pressure: 1}, {X: 100, Y: 0, Pressure: 1}})
	if len(dabs) != 50 {
		t.Fatalf("len(dabs) = %d, want 50", len(dabs))
	}
	for i, d := range dabs {
		want := float64(2 * (i + 1))
		if math.Abs(d.X-want) > 1e-9 || d.Y != 0 {
			t.Errorf("dab %d at (%v,%v), want (%v,0)", i, d.X, d.Y, want)
		}
		if d.Size != 20 || d.Opacity != 1 {
			t.Errorf("dab %d size/opacity = %v/%v", i, d.Size, d.Opacity)
		}
	}
}

func TestPlaceCount(t *testing.T) {
	tests := []struct {
		name    string
		size    float64
		spacing float64
		d       float64
	}{
		{"zero distance", 20, 0.1, 0},
		{"sub step", 20, 0.1, 0.5},
		{"exact multiple", 20, 0.25, 50},
		{"fractional", 13, 0.3, 77.7},
		{"step floor of one pixel", 3, 0.1, 10.5},
		{"diagonal long", 64, 0.05, 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pr := brush.New(brush.Params{Size: tt.size, Opacity: 1, Spacing: tt.spacing})
			dabs := Place(pr, 7, []Sample{{X: 5, Y: 5, Pressure: 1}, {X: 5 + tt.d, Y: 5, Pressure: 1}})
			s := math.Max(1, tt.size*tt.spacing)
			want := max(1, int(math.Ceil(tt.d/s)))
			if len(dabs) != want {
				t.Errorf("len(dabs) = %d, want %d", len(dabs), want)
			}
			prevX := 5.0
			for _, d := range dabs {
				if gap := d.X - prevX; gap > s+1e-9 {
					t.Errorf("gap %v exceeds step %v", gap, s)
				}
				prevX = d.X
			}
		})
	}
}

func TestPlaceTap(t *testing.T) {
	pr := brush.Default()
	dabs := Place(pr, 0, []Sample{{X: 10, Y: 10, Pressure: 1}, {X: 10, Y: 10, Pressure: 1}, {X: 10, Y: 10, Pressure: 1}})
	if len(dabs) != 1 || dabs[0].X != 10 || dabs[0].Y != 10 {
		t.Errorf("tap dabs = %+v, want one dab at (10,10)", dabs)
	}
	if got := Place(pr, 0, nil); got != nil {
		t.Errorf("empty stroke = %v", got)
	}
}

func TestPlacerStreaming(t *testing.T) {
	pr := brush.New(brush.Params{Size: 10, Opacity: 1, Spacing: 0.5})
	pl := NewPlacer(pr, 3)
	pl.Begin(Sample{X: 0, Pressure: 1})

	var dabs []Dab
	dabs = pl.Add(dabs, Sample{X: 12, Pressure: 1})
	if len(dabs) != 3 {
		t.Fatalf("after first segment len = %d, want 3", len(dabs))
	}
	dabs = pl.Add(dabs, Sample{X: 12, Y: 5, Pressure: 1})
	if len(dabs) != 4 {
		t.Fatalf("after second segment len = %d, want 4", len(dabs))
	}
	dabs = pl.End(dabs)
	if len(dabs) != 4 || pl.Count() != 4 {
		t.Errorf("End added dabs to a moving stroke: %d", len(dabs))
	}
	if pl.Active() {
		t.Error("placer still active after End")
	}
}

func TestPlacePressure(t *testing.T) {
	pr := brush.New(brush.Params{Size: 20, Opacity: 1, Spacing: 0.5})
	dabs := Place(pr, 0, []Sample{{X: 0, Pressure: 0}, {X: 20, Pressure: 1}})
	if len(dabs) != 2 {
		t.Fatalf("len = %d, want 2", len(dabs))
	}
	if dabs[0].Size != 10 || dabs[1].Size != 20 {
		t.Errorf("sizes = %v, %v, want 10, 20", dabs[0].Size, dabs[1].Size)
	}
	if dabs[0].Opacity != 0.5 {
		t.Errorf("opacity = %v, want 0.5", dabs[0].Opacity)
	}
}

func TestPlaceSmoothing(t *testing.T) {
	pr := brush.New(brush.Params{Size: 10, Opacity: 1, Spacing: 0.1, Smoothing: 0.5})
	dabs := Place(pr, 0, []Sample{{X: 0, Pressure: 1}, {X: 100, Pressure: 1}})
	last := dabs[len(dabs)-1]
	if math.Abs(last.X-50) > 1e-9 {
		t.Errorf("smoothed end = %v, want 50", last.X)
	}
}

func TestPlaceJitterDeterministic(t *testing.T) {
	pr := brush.New(brush.Params{Size: 30, Opacity: 1, Scatter: 1, AngleJitter: 1})
	samples := []Sample{{X: 0, Pressure: 1}, {X: 90, Y: 40, Pressure: 1}}
	a := Place(pr, 99, samples)
	b := Place(pr, 99, samples)
	if len(a) != len(b) {
		t.Fatal("replay changed dab count")
	}
	moved := false
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("dab %d differs on replay", i)
		}
		if a[i].Rotation != 0 {
			moved = true
		}
	}
	if !moved {
		t.Error("angle jitter had no effect")
	}
	c := Place(pr, 100, samples)
	if c[0] == a[0] {
		t.Error("different seed reproduced the same jitter")
	}
}
