package rig

import (
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/hybridsim/internal/dynamo"
)

func TestElasticEcho(t *testing.T) {
	g := NewWithT(t)
	e := NewElastic(100, 50)
	g.Expect(e.SetSize(dynamo.CtrlSizes(2), dynamo.DaqSizes(2))).To(Succeed())
	g.Expect(e.SetTrial(dynamo.Vector{0.01, 0.02}, dynamo.Vector{1, 2}, dynamo.Vector{3, 4}, nil, 0.25)).To(Succeed())

	r, err := e.Daq()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(r.Force[0]).To(BeNumerically("~", 1.0, 1e-12))
	g.Expect(r.Force[1]).To(BeNumerically("~", 1.0, 1e-12))
	g.Expect(r.Disp).To(Equal(dynamo.Vector{0.01, 0.02}))
	g.Expect(r.Vel).To(Equal(dynamo.Vector{1, 2}))
	g.Expect(r.Time).To(Equal(dynamo.Vector{0.25}))
}

func TestSpecimenRejectsBadSizes(t *testing.T) {
	e := NewElastic(1)
	if err := e.SetSize(dynamo.CtrlSizes(1), dynamo.DaqSizes(2)); err == nil {
		t.Error("expected size mismatch")
	}
	e.SetSize(dynamo.CtrlSizes(1), dynamo.DaqSizes(1))
	if err := e.SetTrial(dynamo.Vector{1, 2}, nil, nil, nil, 0); err == nil {
		t.Error("expected trial length error")
	}
}

func TestBilinearYieldAndUnload(t *testing.T) {
	g := NewWithT(t)
	b, err := NewBilinear([]float64{100}, []float64{1}, 0.1)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(b.SetSize(dynamo.CtrlSizes(1), dynamo.DaqSizes(1))).To(Succeed())

	force := func(d float64) float64 {
		g.Expect(b.SetTrial(dynamo.Vector{d}, nil, nil, nil, 0)).To(Succeed())
		r, _ := b.Daq()
		return r.Force[0]
	}

	g.Expect(force(0.005)).To(BeNumerically("~", 0.5, 1e-12))
	// past yield at d=0.01 the slope drops to 10
	g.Expect(force(0.02)).To(BeNumerically("~", 1.1, 1e-12))
	g.Expect(b.Commit()).To(Succeed())
	// elastic unloading from the committed plastic state
	g.Expect(force(0.015)).To(BeNumerically("~", 0.6, 1e-12))
	// uncommitted trials do not accumulate plastic strain
	g.Expect(force(0.02)).To(BeNumerically("~", 1.1, 1e-12))
}

func TestBilinearValidation(t *testing.T) {
	tests := []struct {
		name      string
		k, fy     []float64
		hardening float64
	}{
		{"zero stiffness", []float64{0}, []float64{1}, 0},
		{"no yield force", []float64{1}, nil, 0},
		{"negative yield", []float64{1, 1}, []float64{1, -1}, 0},
		{"hardening 1", []float64{1}, []float64{1}, 1},
	}
	for _, tt := range tests {
		if _, err := NewBilinear(tt.k, tt.fy, tt.hardening); err == nil {
			t.Errorf("%s: expected error", tt.name)
		}
	}
}

func TestBilinearPerDirection(t *testing.T) {
	g := NewWithT(t)
	b, err := NewBilinear([]float64{1000, 100}, []float64{1e6, 1}, 0)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(b.SetSize(dynamo.CtrlSizes(3), dynamo.DaqSizes(3))).To(Succeed())
	g.Expect(b.SetTrial(dynamo.Vector{0.01, 0.02, 0.005}, nil, nil, nil, 0)).To(Succeed())
	r, _ := b.Daq()
	g.Expect(r.Force[0]).To(BeNumerically("~", 10, 1e-9))
	g.Expect(r.Force[1]).To(BeNumerically("~", 1, 1e-12))
	g.Expect(r.Force[2]).To(BeNumerically("~", 0.5, 1e-12))
}

func TestActuatorLag(t *testing.T) {
	g := NewWithT(t)
	a := &Actuator{Specimen: NewElastic(100), Lag: 0.2}
	g.Expect(a.SetSize(dynamo.CtrlSizes(1), dynamo.DaqSizes(1))).To(Succeed())

	g.Expect(a.SetTrial(dynamo.Vector{0.01}, nil, nil, nil, 0)).To(Succeed())
	r, _ := a.Daq()
	g.Expect(r.Disp[0]).To(BeNumerically("~", 0.008, 1e-15))
	g.Expect(r.Force[0]).To(BeNumerically("~", 0.8, 1e-12))

	g.Expect(a.Commit()).To(Succeed())
	g.Expect(a.SetTrial(dynamo.Vector{0.01}, nil, nil, nil, 0)).To(Succeed())
	r, _ = a.Daq()
	g.Expect(r.Disp[0]).To(BeNumerically("~", 0.0096, 1e-15))

	bad := &Actuator{Specimen: NewElastic(1), Lag: 1}
	g.Expect(bad.SetSize(dynamo.CtrlSizes(1), dynamo.DaqSizes(1))).NotTo(Succeed())
}
