package sim

import (
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/hybridsim/internal/dynamo"
	"github.com/san-kum/hybridsim/internal/element"
)

var (
	ErrUnknownNode  = errors.New("sim: unknown node")
	ErrDuplicateTag = errors.New("sim: duplicate tag")
	ErrNoEquations  = errors.New("sim: no free degrees of freedom")
	ErrSingular     = errors.New("sim: singular system matrix")
)

// Domain owns the nodes and elements of a hybrid model and assembles the
// equations of motion over the free DOFs.
type Domain struct {
	nodes    []*Node
	byTag    map[int]*Node
	elements []*element.Element
	elemEq   [][]int
	neq      int
	time     float64
	ready    bool

	ground    GroundMotion
	groundDir int

	log zerolog.Logger
}

func NewDomain(log zerolog.Logger) *Domain {
	return &Domain{byTag: make(map[int]*Node), log: log}
}

func (d *Domain) AddNode(n *Node) error {
	if _, ok := d.byTag[n.tag]; ok {
		return fmt.Errorf("%w: node %d", ErrDuplicateTag, n.tag)
	}
	d.nodes = append(d.nodes, n)
	d.byTag[n.tag] = n
	d.ready = false
	return nil
}

func (d *Domain) AddElement(e *element.Element) error {
	for _, other := range d.elements {
		if other.ID() == e.ID() {
			return fmt.Errorf("%w: element %d", ErrDuplicateTag, e.ID())
		}
	}
	d.elements = append(d.elements, e)
	d.ready = false
	return nil
}

func (d *Domain) Node(tag int) (*Node, bool) {
	n, ok := d.byTag[tag]
	return n, ok
}

func (d *Domain) Nodes() []*Node               { return d.nodes }
func (d *Domain) Elements() []*element.Element { return d.elements }
func (d *Domain) NumEq() int                   { return d.neq }
func (d *Domain) CurrentTime() float64         { return d.time }
func (d *Domain) SetTime(t float64)            { d.time = t }

// SetGroundMotion excites every node along dof with the given history. A nil
// motion removes the excitation.
func (d *Domain) SetGroundMotion(dof int, gm GroundMotion) {
	d.ground, d.groundDir = gm, dof
}

func (d *Domain) GroundAccel() float64 {
	if d.ground == nil {
		return 0
	}
	return d.ground.Accel(d.time)
}

// Setup numbers the free DOFs and attaches every element. An element that
// fails configuration is left inert and the analysis continues without it;
// any other attach failure is returned.
func (d *Domain) Setup() error {
	d.neq = 0
	for _, n := range d.nodes {
		n.eq = make([]int, n.ndf)
		for i := range n.eq {
			if n.fixed[i] {
				n.eq[i] = -1
				continue
			}
			n.eq[i] = d.neq
			d.neq++
		}
	}
	if d.neq == 0 {
		return ErrNoEquations
	}

	d.elemEq = make([][]int, len(d.elements))
	for k, e := range d.elements {
		tags := e.ExternalNodes()
		nodes := make([]element.Node, len(tags))
		var eq []int
		for i, tag := range tags {
			n, ok := d.byTag[tag]
			if !ok {
				return fmt.Errorf("element %d: %w %d", e.ID(), ErrUnknownNode, tag)
			}
			nodes[i] = n
			eq = append(eq, n.eq...)
		}
		d.elemEq[k] = eq

		if err := e.Attach(nodes, d); err != nil {
			var ce *dynamo.ConfigError
			if errors.As(err, &ce) {
				d.log.Warn().Err(err).Int("element", e.ID()).Msg("element left inert")
				continue
			}
			return err
		}
	}
	d.ready = true
	d.log.Info().Int("nodes", len(d.nodes)).Int("elements", len(d.elements)).Int("equations", d.neq).Msg("domain ready")
	return nil
}

func (d *Domain) active(fn func(k int, e *element.Element) error) error {
	if !d.ready {
		return fmt.Errorf("%w: domain not set up", dynamo.ErrNotAttached)
	}
	for k, e := range d.elements {
		if e.Inert() {
			continue
		}
		if err := fn(k, e); err != nil {
			return err
		}
	}
	return nil
}

func (d *Domain) gather(get func(*Node) dynamo.Vector) dynamo.Vector {
	v := dynamo.NewVector(d.neq)
	for _, n := range d.nodes {
		src := get(n)
		for i, q := range n.eq {
			if q >= 0 {
				v[q] = src[i]
			}
		}
	}
	return v
}

func (d *Domain) Disp() dynamo.Vector  { return d.gather(func(n *Node) dynamo.Vector { return n.disp }) }
func (d *Domain) Vel() dynamo.Vector   { return d.gather(func(n *Node) dynamo.Vector { return n.vel }) }
func (d *Domain) Accel() dynamo.Vector { return d.gather(func(n *Node) dynamo.Vector { return n.accel }) }

// SetTrial scatters free-DOF vectors onto the nodal trial state; nil leaves a
// quantity unchanged.
func (d *Domain) SetTrial(disp, vel, accel dynamo.Vector) {
	for _, n := range d.nodes {
		for i, q := range n.eq {
			if q < 0 {
				continue
			}
			if disp != nil {
				n.disp[i] = disp[q]
			}
			if vel != nil {
				n.vel[i] = vel[q]
			}
			if accel != nil {
				n.accel[i] = accel[q]
			}
		}
	}
}

// Update pushes the nodal trial state through every active element.
func (d *Domain) Update() error {
	return d.active(func(_ int, e *element.Element) error { return e.Update() })
}

func (d *Domain) Commit() error {
	if err := d.active(func(_ int, e *element.Element) error { return e.CommitState() }); err != nil {
		return err
	}
	for _, n := range d.nodes {
		n.commit()
	}
	return nil
}

func (d *Domain) Revert() {
	for _, n := range d.nodes {
		n.revert()
	}
}

func (d *Domain) addMatrix(dst, k *mat.Dense, eq []int) {
	for i, qi := range eq {
		if qi < 0 {
			continue
		}
		for j, qj := range eq {
			if qj < 0 {
				continue
			}
			dst.Set(qi, qj, dst.At(qi, qj)+k.At(i, j))
		}
	}
}

func (d *Domain) Mass() (*mat.Dense, error) {
	m := mat.NewDense(d.neq, d.neq, nil)
	for _, n := range d.nodes {
		for i, q := range n.eq {
			if q >= 0 {
				m.Set(q, q, m.At(q, q)+n.mass[i])
			}
		}
	}
	err := d.active(func(k int, e *element.Element) error {
		d.addMatrix(m, e.Mass(), d.elemEq[k])
		return nil
	})
	return m, err
}

func (d *Domain) Damp() (*mat.Dense, error) {
	c := mat.NewDense(d.neq, d.neq, nil)
	err := d.active(func(k int, e *element.Element) error {
		ce, err := e.Damp()
		if err != nil {
			return err
		}
		d.addMatrix(c, ce, d.elemEq[k])
		return nil
	})
	return c, err
}

func (d *Domain) InitialStiff() (*mat.Dense, error) {
	kd := mat.NewDense(d.neq, d.neq, nil)
	err := d.active(func(k int, e *element.Element) error {
		ke, err := e.InitialStiff()
		if err != nil {
			return err
		}
		d.addMatrix(kd, ke, d.elemEq[k])
		return nil
	})
	return kd, err
}

func (d *Domain) TangentStiff() (*mat.Dense, error) {
	kd := mat.NewDense(d.neq, d.neq, nil)
	err := d.active(func(k int, e *element.Element) error {
		ke, err := e.TangentStiff()
		if err != nil {
			return err
		}
		d.addMatrix(kd, ke, d.elemEq[k])
		return nil
	})
	return kd, err
}

// groundVector is the influence vector of one element for the excited DOF.
func (d *Domain) groundVector(e *element.Element, ag float64) dynamo.Vector {
	v := dynamo.NewVector(e.NumDOF())
	ndf := e.Geometry().DOFPerNode()
	if d.groundDir >= ndf {
		return v
	}
	for i := 0; i < e.NumExternalNodes(); i++ {
		v[i*ndf+d.groundDir] = ag
	}
	return v
}

// Unbalance returns P - R over the free DOFs at the current trial state,
// with the ground motion applied as effective inertia load.
func (d *Domain) Unbalance() (dynamo.Vector, error) {
	p := dynamo.NewVector(d.neq)
	ag := d.GroundAccel()
	if ag != 0 {
		for _, n := range d.nodes {
			if d.groundDir < n.ndf && n.eq[d.groundDir] >= 0 {
				p[n.eq[d.groundDir]] -= n.mass[d.groundDir] * ag
			}
		}
	}
	err := d.active(func(k int, e *element.Element) error {
		e.ZeroLoad()
		if ag != 0 {
			if err := e.AddInertiaLoadToUnbalance(d.groundVector(e, ag)); err != nil {
				return err
			}
		}
		r, err := e.ResistingForce()
		if err != nil {
			return err
		}
		for i, q := range d.elemEq[k] {
			if q >= 0 {
				p[q] -= r[i]
			}
		}
		return nil
	})
	return p, err
}

// Sample captures the committed state for recording.
func (d *Domain) Sample(step int) (Sample, error) {
	s := Sample{Step: step, Time: d.time, Ground: d.GroundAccel(), Disp: d.Disp()}
	err := d.active(func(_ int, e *element.Element) error {
		dm, err := e.DaqDisp()
		if err != nil {
			return err
		}
		q, err := e.BasicForce()
		if err != nil {
			return err
		}
		s.Elements = append(s.Elements, ElementSample{ID: e.ID(), Trial: e.BasicDisp(), Measured: dm, Force: q})
		return nil
	})
	return s, err
}

// Solve returns x with a x = b.
func Solve(a *mat.Dense, b dynamo.Vector) (dynamo.Vector, error) {
	n, _ := a.Dims()
	var lu mat.LU
	lu.Factorize(a)
	if det := lu.Det(); det == 0 || math.IsNaN(det) {
		return nil, ErrSingular
	}
	var x mat.VecDense
	if err := lu.SolveVecTo(&x, false, mat.NewVecDense(n, append([]float64(nil), b...))); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return nil, err
		}
	}
	out := dynamo.NewVector(n)
	for i := range out {
		out[i] = x.AtVec(i)
	}
	return out, nil
}

// MulVec returns a x for a square assembled matrix.
func MulVec(a *mat.Dense, x dynamo.Vector) dynamo.Vector {
	n, _ := a.Dims()
	var y mat.VecDense
	y.MulVec(a, mat.NewVecDense(n, append([]float64(nil), x...)))
	out := dynamo.NewVector(n)
	for i := range out {
		out[i] = y.AtVec(i)
	}
	return out
}

// Start computes the initial acceleration from M a = P - R - C v and commits
// the initial state.
func (d *Domain) Start() error {
	if err := d.Update(); err != nil {
		return err
	}
	p, err := d.Unbalance()
	if err != nil {
		return err
	}
	m, err := d.Mass()
	if err != nil {
		return err
	}
	c, err := d.Damp()
	if err != nil {
		return err
	}
	a, err := Solve(m, p.Sub(MulVec(c, d.Vel())))
	if err != nil {
		return fmt.Errorf("initial acceleration: %w", err)
	}
	d.SetTrial(nil, nil, a)
	return d.Commit()
}
