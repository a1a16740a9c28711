package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/hybridsim/internal/dynamo"
	"github.com/san-kum/hybridsim/internal/sim"
)

func sample(step int, d, dm, q float64) sim.Sample {
	return sim.Sample{
		Step: step,
		Disp: dynamo.Vector{d},
		Elements: []sim.ElementSample{
			{ID: 1, Trial: dynamo.Vector{d}, Measured: dynamo.Vector{dm}, Force: dynamo.Vector{q}},
		},
	}
}

func TestHystereticEnergyElasticCycle(t *testing.T) {
	h := NewHystereticEnergy()
	// load to 1 and back along the same path
	for i, d := range []float64{0, 0.5, 1, 0.5, 0} {
		h.Observe(sample(i, d, d, 100*d))
	}
	if math.Abs(h.Value()) > 1e-12 {
		t.Errorf("expected no dissipation, got %v", h.Value())
	}
}

func TestHystereticEnergyLoop(t *testing.T) {
	h := NewHystereticEnergy()
	// rigid-plastic square loop with yield force 1 and travel 2
	path := [][2]float64{{0, 1}, {1, 1}, {1, -1}, {-1, -1}, {-1, 1}, {0, 1}}
	for i, p := range path {
		h.Observe(sample(i, p[0], p[0], p[1]))
	}
	if math.Abs(h.Value()-4) > 1e-12 {
		t.Errorf("expected 4, got %v", h.Value())
	}
	if h.Element(1) != h.Value() {
		t.Errorf("expected per-element energy %v, got %v", h.Value(), h.Element(1))
	}

	h.Reset()
	if h.Value() != 0 {
		t.Errorf("expected 0 after reset, got %v", h.Value())
	}
}

func TestControlError(t *testing.T) {
	c := NewControlError()
	if c.Value() != 0 {
		t.Errorf("expected 0 before observe, got %v", c.Value())
	}
	c.Observe(sample(0, 1, 0.7, 0))
	c.Observe(sample(1, 1, 1.4, 0))

	want := math.Sqrt((0.09 + 0.16) / 2)
	if math.Abs(c.Value()-want) > 1e-12 {
		t.Errorf("expected %v, got %v", want, c.Value())
	}
	if math.Abs(c.Max()-0.4) > 1e-12 {
		t.Errorf("expected max 0.4, got %v", c.Max())
	}
}

func TestPeaks(t *testing.T) {
	f, d := NewPeakForce(), NewPeakDisp()
	for i, v := range []float64{0.1, -0.3, 0.2} {
		s := sample(i, v, v, 10*v)
		f.Observe(s)
		d.Observe(s)
	}
	if math.Abs(f.Value()-3) > 1e-12 {
		t.Errorf("expected peak force 3, got %v", f.Value())
	}
	if math.Abs(d.Value()-0.3) > 1e-12 {
		t.Errorf("expected peak disp 0.3, got %v", d.Value())
	}
}

func TestStability(t *testing.T) {
	s := NewStability(1)
	if s.Value() != 1 {
		t.Errorf("expected 1 with no samples, got %v", s.Value())
	}
	for i, v := range []float64{0.5, 2, math.NaN(), 0.1} {
		s.Observe(sample(i, v, v, 0))
	}
	if s.Value() != 0.5 {
		t.Errorf("expected 0.5, got %v", s.Value())
	}
}

func TestFromName(t *testing.T) {
	for _, name := range List() {
		m, err := FromName(name, 1)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if m.Name() != name {
			t.Errorf("expected %s, got %s", name, m.Name())
		}
	}
	if _, err := FromName("nope", 0); err == nil {
		t.Error("expected error for unknown metric")
	}
}
