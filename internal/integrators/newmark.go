// Package integrators holds the explicit step schemes that drive a hybrid
// domain. Each step pushes one predicted displacement per element, reads the
// measured restoring force and commits.
package integrators

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/hybridsim/internal/dynamo"
	"github.com/san-kum/hybridsim/internal/sim"
)

// ExplicitNewmark is Newmark with beta = 0. Gamma = 0.5 is the central
// difference method; larger values add numerical damping.
type ExplicitNewmark struct {
	Gamma float64

	dPred, vPred dynamo.Vector
}

func NewExplicitNewmark(gamma float64) (*ExplicitNewmark, error) {
	if gamma < 0.5 {
		return nil, fmt.Errorf("newmark gamma must be >= 0.5, got %g", gamma)
	}
	return &ExplicitNewmark{Gamma: gamma}, nil
}

func NewCentralDifference() *ExplicitNewmark {
	return &ExplicitNewmark{Gamma: 0.5}
}

func (n *ExplicitNewmark) Name() string {
	if n.Gamma == 0.5 {
		return "central-difference"
	}
	return "newmark"
}

func (n *ExplicitNewmark) ensureScratch(neq int) {
	if len(n.dPred) != neq {
		n.dPred = make(dynamo.Vector, neq)
		n.vPred = make(dynamo.Vector, neq)
	}
}

func (n *ExplicitNewmark) Step(d *sim.Domain, dt float64) error {
	neq := d.NumEq()
	n.ensureScratch(neq)

	disp, vel, acc := d.Disp(), d.Vel(), d.Accel()
	dt2 := 0.5 * dt * dt
	for i := 0; i < neq; i++ {
		n.dPred[i] = disp[i] + dt*vel[i] + dt2*acc[i]
		n.vPred[i] = vel[i] + (1-n.Gamma)*dt*acc[i]
	}

	d.SetTime(d.CurrentTime() + dt)
	d.SetTrial(n.dPred, n.vPred, acc)
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

	lhs := mat.NewDense(neq, neq, nil)
	lhs.Scale(n.Gamma*dt, c)
	lhs.Add(lhs, m)
	rhs := p.Sub(sim.MulVec(c, n.vPred))

	a, err := sim.Solve(lhs, rhs)
	if err != nil {
		return err
	}
	v := n.vPred.Add(a.Scale(n.Gamma * dt))

	d.SetTrial(nil, v, a)
	if err := d.Update(); err != nil {
		return err
	}
	return d.Commit()
}
