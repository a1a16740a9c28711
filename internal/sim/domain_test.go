package sim

import (
	"errors"
	"math"
	"testing"

	. "github.com/onsi/gomega"
	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/hybridsim/internal/dynamo"
	"github.com/san-kum/hybridsim/internal/element"
	"github.com/san-kum/hybridsim/internal/rig"
	"github.com/san-kum/hybridsim/internal/site"
	"github.com/san-kum/hybridsim/internal/transform"
)

// sdof is a 2-D truss from a fixed node 1 to node 2 that moves along x only.
func sdof(t *testing.T, k, m float64) (*Domain, *element.Element, *site.Local) {
	t.Helper()
	d := NewDomain(zerolog.Nop())
	n1 := NewNode(1, []float64{0, 0}, 2)
	n2 := NewNode(2, []float64{1, 0}, 2)
	if err := n1.Fix(0, 1); err != nil {
		t.Fatal(err)
	}
	if err := n2.Fix(1); err != nil {
		t.Fatal(err)
	}
	if err := n2.SetMass(m, 0); err != nil {
		t.Fatal(err)
	}
	geom, err := transform.NewTruss(2, 2)
	if err != nil {
		t.Fatal(err)
	}
	cfg := element.DefaultConfig()
	cfg.KInit = mat.NewDense(1, 1, []float64{k})
	st := site.NewLocal(rig.NewElastic(k))
	e := element.New(1, []int{1, 2}, geom, st, cfg)
	for _, n := range []*Node{n1, n2} {
		if err := d.AddNode(n); err != nil {
			t.Fatal(err)
		}
	}
	if err := d.AddElement(e); err != nil {
		t.Fatal(err)
	}
	return d, e, st
}

func TestDomainSetup(t *testing.T) {
	g := NewWithT(t)
	d, e, _ := sdof(t, 100, 1)

	g.Expect(d.Setup()).To(Succeed())
	g.Expect(d.NumEq()).To(Equal(1))
	g.Expect(e.State()).To(Equal(element.Attached))

	n2, ok := d.Node(2)
	g.Expect(ok).To(BeTrue())
	g.Expect(n2.eq).To(Equal([]int{0, -1}))
}

func TestDomainDuplicatesAndUnknownNodes(t *testing.T) {
	g := NewWithT(t)
	d := NewDomain(zerolog.Nop())
	g.Expect(d.AddNode(NewNode(1, []float64{0, 0}, 2))).To(Succeed())
	err := d.AddNode(NewNode(1, []float64{1, 0}, 2))
	g.Expect(errors.Is(err, ErrDuplicateTag)).To(BeTrue())

	geom, _ := transform.NewTruss(2, 2)
	e := element.New(7, []int{1, 9}, geom, site.NewLocal(rig.NewElastic(1)), element.DefaultConfig())
	g.Expect(d.AddElement(e)).To(Succeed())
	err = d.Setup()
	g.Expect(errors.Is(err, ErrUnknownNode)).To(BeTrue())
}

func TestDomainAllFixed(t *testing.T) {
	g := NewWithT(t)
	d := NewDomain(zerolog.Nop())
	n := NewNode(1, []float64{0, 0}, 2)
	g.Expect(n.Fix(0, 1)).To(Succeed())
	g.Expect(d.AddNode(n)).To(Succeed())
	g.Expect(d.Setup()).To(MatchError(ErrNoEquations))
	g.Expect(n.Fix(2)).NotTo(Succeed())
}

func TestDomainInertElementSkipped(t *testing.T) {
	g := NewWithT(t)
	d, e, _ := sdof(t, 100, 1)
	n2, _ := d.Node(2)
	n2.coords = []float64{0, 0}

	g.Expect(d.Setup()).To(Succeed())
	g.Expect(e.Inert()).To(BeTrue())

	p, err := d.Unbalance()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(p).To(Equal(dynamo.Vector{0}))
}

func TestDomainUnbalance(t *testing.T) {
	g := NewWithT(t)
	d, _, _ := sdof(t, 100, 2)
	g.Expect(d.Setup()).To(Succeed())

	d.SetTrial(dynamo.Vector{0.01}, nil, nil)
	g.Expect(d.Update()).To(Succeed())
	p, err := d.Unbalance()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(p[0]).To(BeNumerically("~", -1.0, 1e-12))

	d.SetGroundMotion(0, Sine{Amplitude: 3, Period: 4})
	d.SetTime(1)
	p, err = d.Unbalance()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(p[0]).To(BeNumerically("~", -1.0-2*3, 1e-12))
}

func TestDomainGroundLoadIncludesElementMass(t *testing.T) {
	g := NewWithT(t)
	d := NewDomain(zerolog.Nop())
	n1 := NewNode(1, []float64{0, 0}, 2)
	n2 := NewNode(2, []float64{2, 0}, 2)
	g.Expect(n1.Fix(0, 1)).To(Succeed())
	g.Expect(n2.Fix(1)).To(Succeed())
	g.Expect(d.AddNode(n1)).To(Succeed())
	g.Expect(d.AddNode(n2)).To(Succeed())

	geom, _ := transform.NewTruss(2, 2)
	cfg := element.DefaultConfig()
	cfg.Mass = 4
	e := element.New(1, []int{1, 2}, geom, site.NewLocal(rig.NewElastic(0)), cfg)
	g.Expect(d.AddElement(e)).To(Succeed())
	g.Expect(d.Setup()).To(Succeed())

	m, err := d.Mass()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(m.At(0, 0)).To(BeNumerically("~", 2, 1e-12))

	d.SetGroundMotion(0, Record{Dt: 1, Values: []float64{1, 1}})
	g.Expect(d.Update()).To(Succeed())
	p, err := d.Unbalance()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(p[0]).To(BeNumerically("~", -2, 1e-12))
}

func TestDomainStartInitialAccel(t *testing.T) {
	g := NewWithT(t)
	d, _, _ := sdof(t, 100, 2)
	n2, _ := d.Node(2)
	g.Expect(n2.SetInitial(dynamo.Vector{0.02, 5}, dynamo.Vector{0, 0})).To(Succeed())
	g.Expect(n2.TrialDisp()).To(Equal(dynamo.Vector{0.02, 0}))

	g.Expect(d.Setup()).To(Succeed())
	g.Expect(d.Start()).To(Succeed())
	g.Expect(d.Accel()[0]).To(BeNumerically("~", -1.0, 1e-12))
	g.Expect(n2.cAccel[0]).To(BeNumerically("~", -1.0, 1e-12))
}

func TestDomainNotReady(t *testing.T) {
	g := NewWithT(t)
	d, _, _ := sdof(t, 100, 1)
	_, err := d.Unbalance()
	g.Expect(errors.Is(err, dynamo.ErrNotAttached)).To(BeTrue())
}

func TestSolve(t *testing.T) {
	g := NewWithT(t)
	a := mat.NewDense(2, 2, []float64{4, 1, 1, 3})
	x, err := Solve(a, dynamo.Vector{1, 2})
	g.Expect(err).NotTo(HaveOccurred())
	y := MulVec(a, x)
	g.Expect(y[0]).To(BeNumerically("~", 1, 1e-12))
	g.Expect(y[1]).To(BeNumerically("~", 2, 1e-12))

	_, err = Solve(mat.NewDense(2, 2, []float64{1, 2, 2, 4}), dynamo.Vector{1, 1})
	g.Expect(err).To(MatchError(ErrSingular))
	g.Expect(math.IsNaN(x[0])).To(BeFalse())
}
