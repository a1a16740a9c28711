package integrators

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/hybridsim/internal/dynamo"
	"github.com/san-kum/hybridsim/internal/sim"
)

// AlphaOS is the alpha operator-splitting scheme: the predictor is pushed to
// the rig and the corrector uses the assembled initial stiffness, so no
// iteration on the specimen is needed. Alpha lies in [-1/3, 0].
type AlphaOS struct {
	Alpha float64
	Beta  float64
	Gamma float64

	kInit   *mat.Dense
	started bool

	// previous step: unbalance, predictor and velocity
	uPrev, dPredPrev dynamo.Vector
}

func NewAlphaOS(alpha float64) (*AlphaOS, error) {
	if alpha < -1.0/3 || alpha > 0 {
		return nil, fmt.Errorf("alpha-OS alpha must be in [-1/3, 0], got %g", alpha)
	}
	return &AlphaOS{
		Alpha: alpha,
		Beta:  (1 - alpha) * (1 - alpha) / 4,
		Gamma: (1 - 2*alpha) / 2,
	}, nil
}

func (o *AlphaOS) Name() string { return "alpha-os" }

func (o *AlphaOS) start(d *sim.Domain) error {
	k, err := d.InitialStiff()
	if err != nil {
		return err
	}
	o.kInit = k
	o.dPredPrev = d.Disp()
	o.uPrev, err = d.Unbalance()
	if err != nil {
		return err
	}
	o.started = true
	return nil
}

func (o *AlphaOS) Step(d *sim.Domain, dt float64) error {
	if !o.started || len(o.dPredPrev) != d.NumEq() {
		if err := o.start(d); err != nil {
			return err
		}
	}
	neq := d.NumEq()
	disp, vel, acc := d.Disp(), d.Vel(), d.Accel()

	dPred := dynamo.NewVector(neq)
	vPred := dynamo.NewVector(neq)
	for i := 0; i < neq; i++ {
		dPred[i] = disp[i] + dt*vel[i] + dt*dt*(0.5-o.Beta)*acc[i]
		vPred[i] = vel[i] + dt*(1-o.Gamma)*acc[i]
	}

	d.SetTime(d.CurrentTime() + dt)
	d.SetTrial(dPred, vPred, acc)
	if err := d.Update(); err != nil {
		return err
	}

	u, err := d.Unbalance()
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

	a1 := 1 + o.Alpha
	lhs := mat.NewDense(neq, neq, nil)
	lhs.Scale(a1*o.Gamma*dt, c)
	lhs.Add(lhs, m)
	var kTerm mat.Dense
	kTerm.Scale(a1*o.Beta*dt*dt, o.kInit)
	lhs.Add(lhs, &kTerm)

	rhs := u.Scale(a1).Sub(o.uPrev.Scale(o.Alpha))
	rhs = rhs.Sub(sim.MulVec(c, vPred).Scale(a1))
	rhs = rhs.Add(sim.MulVec(c, vel).Scale(o.Alpha))
	rhs = rhs.Add(sim.MulVec(o.kInit, disp.Sub(o.dPredPrev)).Scale(o.Alpha))

	a, err := sim.Solve(lhs, rhs)
	if err != nil {
		return err
	}
	dNew := dPred.Add(a.Scale(o.Beta * dt * dt))
	vNew := vPred.Add(a.Scale(o.Gamma * dt))

	d.SetTrial(dNew, vNew, a)
	if err := d.Commit(); err != nil {
		return err
	}
	o.uPrev = u
	o.dPredPrev = dPred
	return nil
}
