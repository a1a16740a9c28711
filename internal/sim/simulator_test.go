package sim

import (
	"context"
	"errors"
	"math"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/hybridsim/internal/dynamo"
)

// rampIntegrator imposes d = rate * t on every free DOF.
type rampIntegrator struct {
	rate  float64
	steps int
	fail  int
}

func (r *rampIntegrator) Name() string { return "ramp" }

func (r *rampIntegrator) Step(d *Domain, dt float64) error {
	r.steps++
	if r.fail > 0 && r.steps == r.fail {
		return errors.New("boom")
	}
	t := d.CurrentTime() + dt
	d.SetTime(t)
	disp := dynamo.NewVector(d.NumEq())
	for i := range disp {
		disp[i] = r.rate * t
	}
	d.SetTrial(disp, nil, nil)
	if err := d.Update(); err != nil {
		return err
	}
	return d.Commit()
}

type countMetric struct {
	n int
}

func (c *countMetric) Name() string     { return "count" }
func (c *countMetric) Observe(s Sample) { c.n++ }
func (c *countMetric) Value() float64   { return float64(c.n) }
func (c *countMetric) Reset()           { c.n = 0 }

type recorder struct {
	samples []Sample
}

func (r *recorder) OnStep(s Sample) { r.samples = append(r.samples, s) }

func TestSimulatorRun(t *testing.T) {
	g := NewWithT(t)
	d, _, st := sdof(t, 100, 1)
	s := New(d, &rampIntegrator{rate: 0.01})
	s.AddMetric(&countMetric{})
	rec := &recorder{}
	s.AddObserver(rec)

	result, err := s.Run(context.Background(), Config{Dt: 0.1, Duration: 1.0})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(result.StepsTaken).To(Equal(10))
	g.Expect(result.Samples).To(HaveLen(11))
	g.Expect(result.Times).To(HaveLen(11))
	g.Expect(rec.samples).To(HaveLen(11))
	g.Expect(result.Metrics["count"]).To(Equal(11.0))

	last := result.Samples[10]
	g.Expect(last.Time).To(BeNumerically("~", 1.0, 1e-12))
	g.Expect(last.Disp[0]).To(BeNumerically("~", 0.01, 1e-12))
	g.Expect(last.Elements).To(HaveLen(1))
	g.Expect(last.Elements[0].Force[0]).To(BeNumerically("~", 1.0, 1e-9))

	trial, measured, force := result.Element(1)
	g.Expect(trial).To(HaveLen(11))
	g.Expect(measured[5][0]).To(BeNumerically("~", 0.005, 1e-12))
	g.Expect(force[5][0]).To(BeNumerically("~", 0.5, 1e-9))

	g.Expect(st.Stats().Commits).To(Equal(11))
}

func TestSimulatorInvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"zero dt", Config{Dt: 0, Duration: 1}},
		{"zero duration", Config{Dt: 0.1, Duration: 0}},
		{"bad ground dir", Config{Dt: 0.1, Duration: 1, Ground: Sine{}, GroundDir: 6}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, _, _ := sdof(t, 100, 1)
			s := New(d, &rampIntegrator{})
			if _, err := s.Run(context.Background(), tt.cfg); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestSimulatorStepFailure(t *testing.T) {
	g := NewWithT(t)
	d, _, _ := sdof(t, 100, 1)
	s := New(d, &rampIntegrator{rate: 1, fail: 3})

	result, err := s.Run(context.Background(), Config{Dt: 0.1, Duration: 1})
	var simErr SimError
	g.Expect(errors.As(err, &simErr)).To(BeTrue())
	g.Expect(simErr.Step).To(Equal(3))
	g.Expect(result.StepsTaken).To(Equal(2))
	g.Expect(result.Errors).To(HaveLen(1))

	n2, _ := d.Node(2)
	g.Expect(n2.TrialDisp()[0]).To(BeNumerically("~", 0.2, 1e-12))
}

func TestSimulatorCancel(t *testing.T) {
	g := NewWithT(t)
	d, _, _ := sdof(t, 100, 1)
	s := New(d, &rampIntegrator{rate: 1})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := s.Run(ctx, Config{Dt: 0.1, Duration: 1})
	g.Expect(err).To(MatchError(context.Canceled))
	g.Expect(result.Samples).To(HaveLen(1))
}

func TestEnsemble(t *testing.T) {
	g := NewWithT(t)
	var sims []*Simulator
	for _, rate := range []float64{0.01, 0.02, 0.03} {
		d, _, _ := sdof(t, 100, 1)
		sims = append(sims, New(d, &rampIntegrator{rate: rate}))
	}

	results, err := NewEnsemble(sims...).Run(context.Background(), Config{Dt: 0.1, Duration: 1})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(results).To(HaveLen(3))
	for i, r := range results {
		want := 0.01 * float64(i+1)
		if got := r.Samples[10].Disp[0]; math.Abs(got-want) > 1e-12 {
			t.Errorf("run %d: expected %v, got %v", i, want, got)
		}
	}
}

func TestEnsembleConfigCount(t *testing.T) {
	g := NewWithT(t)
	var sims []*Simulator
	for i := 0; i < 2; i++ {
		d, _, _ := sdof(t, 100, 1)
		sims = append(sims, New(d, &rampIntegrator{rate: 0.01}))
	}
	ens := NewEnsemble(sims...)

	_, err := ens.Run(context.Background())
	g.Expect(err).To(MatchError(ContainSubstring("given 0 configs")))

	_, err = ens.Run(context.Background(), Config{Dt: 0.1, Duration: 1}, Config{Dt: 0.1, Duration: 1}, Config{Dt: 0.1, Duration: 1})
	g.Expect(err).To(MatchError(ContainSubstring("given 3 configs")))

	results, err := ens.Run(context.Background(), Config{Dt: 0.1, Duration: 0.5}, Config{Dt: 0.1, Duration: 1})
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(results[0].StepsTaken).To(Equal(5))
	g.Expect(results[1].StepsTaken).To(Equal(10))
}
