package element

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/hybridsim/internal/correction"
	"github.com/san-kum/hybridsim/internal/dynamo"
	"github.com/san-kum/hybridsim/internal/transform"
)

// basicForce returns the measured basic force after control-error
// correction and zero-channel fallback.
func (e *Element) basicForce() (dynamo.Vector, error) {
	if err := e.fetchDaq(); err != nil {
		return nil, err
	}
	q := e.qm.Clone()
	if e.cfg.IMod {
		if len(e.groups) > 0 {
			q = correction.SharedIMod(q, e.kInit, e.dm, e.db, e.groups)
		} else {
			q = correction.IMod(q, e.kInit, e.dm, e.db)
		}
	}
	if e.cfg.ZeroForceFallback {
		var replaced []int
		q, replaced = correction.FallbackZero(q, e.qm, e.kInit, e.db)
		if len(replaced) > 0 {
			e.log.Debug().Ints("channels", replaced).Msg("zero force channels replaced by elastic estimate")
		}
	}
	return q, nil
}

func (e *Element) pdelta() (transform.LocalTransform, bool) {
	if !e.cfg.PDelta.Active() {
		return nil, false
	}
	lt, ok := e.geom.(transform.LocalTransform)
	return lt, ok
}

// localForce maps q to the local frame, adding the P-Delta correction.
func (e *Element) localForce(lt transform.LocalTransform, q dynamo.Vector) dynamo.Vector {
	ql := lt.BasicToLocalForce(q)
	if pd, ok := e.pdelta(); ok {
		lay := pd.Layout()
		ul := pd.GlobalToLocal(e.dg)
		e.cfg.PDelta.AddForce(ql, ul, q[lay.AxialDir], e.geom.Length(), lay)
	}
	return ql
}

// ResistingForce returns the nodal resisting force minus applied loads.
// An inert element reports zeros.
func (e *Element) ResistingForce() (dynamo.Vector, error) {
	if e.err != nil {
		return dynamo.NewVector(e.geom.NumDOF()), nil
	}
	if err := e.ready(); err != nil {
		return nil, err
	}
	q, err := e.basicForce()
	if err != nil {
		return nil, err
	}
	var pg dynamo.Vector
	if lt, ok := e.pdelta(); ok {
		pg = lt.LocalForceToGlobal(e.localForce(lt, q))
	} else {
		pg = e.geom.ForceToGlobal(q, e.dg)
	}
	return pg.Sub(e.load), nil
}

// ResistingForceIncInertia adds inertia and damping forces.
func (e *Element) ResistingForceIncInertia() (dynamo.Vector, error) {
	p, err := e.ResistingForce()
	if err != nil || e.err != nil {
		return p, err
	}
	m := e.Mass()
	p = p.Add(transform.MulVec(m, e.ag, false))
	if !e.rayleigh.IsZero() || e.cfg.MaterialDamping != nil {
		c, err := e.Damp()
		if err != nil {
			return nil, err
		}
		p = p.Add(transform.MulVec(c, e.vg, false))
	}
	return p, nil
}

// basicTangent returns the estimated basic stiffness, or the initial
// stiffness with a one-time warning when no estimator is configured.
func (e *Element) basicTangent() (*mat.Dense, error) {
	if e.cfg.Estimator == nil {
		if !e.warned {
			e.warned = true
			e.log.Warn().Msg("no tangent stiffness estimator, using initial stiffness")
		}
		return e.kInit, nil
	}
	if err := e.fetchDaq(); err != nil {
		return nil, err
	}
	dd := e.dm.Sub(e.dmCommitted)
	dq := e.qm.Sub(e.qmCommitted)
	e.kTrial = e.cfg.Estimator.Update(dd, dq, e.kInit, e.kPrev)
	return e.kTrial, nil
}

func (e *Element) toGlobalStiff(kb *mat.Dense) (*mat.Dense, error) {
	if lt, ok := e.pdelta(); ok {
		q, err := e.basicForce()
		if err != nil {
			return nil, err
		}
		lay := lt.Layout()
		kl := lt.BasicToLocalStiff(kb)
		e.cfg.PDelta.AddStiff(kl, q[lay.AxialDir], e.geom.Length(), lay)
		return lt.LocalStiffToGlobal(kl), nil
	}
	if e.geom.Corotational() {
		q, err := e.basicForce()
		if err != nil {
			return nil, err
		}
		return e.geom.StiffToGlobal(kb, q, e.dg), nil
	}
	return e.geom.StiffToGlobal(kb, nil, e.dg), nil
}

// TangentStiff returns the nodal tangent stiffness. An inert element
// reports zeros.
func (e *Element) TangentStiff() (*mat.Dense, error) {
	nd := e.geom.NumDOF()
	if e.err != nil {
		return mat.NewDense(nd, nd, nil), nil
	}
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.pending(); err != nil {
		return nil, err
	}
	kb, err := e.basicTangent()
	if err != nil {
		return nil, err
	}
	kg, err := e.toGlobalStiff(kb)
	if err != nil {
		return nil, err
	}
	e.ktLast = kg
	return kg, nil
}

// InitialStiff returns the initial stiffness in nodal coordinates.
func (e *Element) InitialStiff() (*mat.Dense, error) {
	nd := e.geom.NumDOF()
	if e.err != nil {
		return mat.NewDense(nd, nd, nil), nil
	}
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.geom.StiffToGlobal(e.kInit, dynamo.NewVector(e.nb), dynamo.NewVector(nd)), nil
}

// Mass returns the lumped or consistent mass matrix, zero when no mass is
// configured.
func (e *Element) Mass() *mat.Dense {
	nd := e.geom.NumDOF()
	ndm, ndf, nn := e.geom.NDM(), e.geom.DOFPerNode(), e.geom.NumNodes()
	switch {
	case e.err != nil:
		return mat.NewDense(nd, nd, nil)
	case e.cfg.Mass > 0:
		return correction.LumpedMass(ndm, ndf, nn, e.cfg.Mass)
	case e.cfg.Rho > 0 && nn == 2 && e.cfg.ConsistentMass:
		return correction.ConsistentMass(ndm, ndf, e.cfg.Rho, e.geom.Length())
	case e.cfg.Rho > 0:
		return correction.LumpedMass(ndm, ndf, nn, e.cfg.Rho*e.geom.Length())
	}
	return mat.NewDense(nd, nd, nil)
}

// Damp returns the Rayleigh damping plus the material damping of the
// geometry mapped to nodal coordinates.
func (e *Element) Damp() (*mat.Dense, error) {
	nd := e.geom.NumDOF()
	out := mat.NewDense(nd, nd, nil)
	if e.err != nil {
		return out, nil
	}
	if err := e.ready(); err != nil {
		return nil, err
	}
	if !e.rayleigh.IsZero() {
		var kt, k0 *mat.Dense
		if e.rayleigh.BetaK != 0 {
			var err error
			if kt, err = e.TangentStiff(); err != nil {
				return nil, err
			}
		}
		if e.rayleigh.BetaK0 != 0 {
			k0, _ = e.InitialStiff()
		}
		out.Add(out, e.rayleigh.Damp(nd, e.Mass(), kt, k0, e.kCommit))
	}
	if e.cfg.MaterialDamping != nil {
		out.Add(out, e.geom.StiffToGlobal(e.cfg.MaterialDamping, dynamo.NewVector(e.nb), e.dg))
	}
	return out, nil
}

func (e *Element) ZeroLoad() {
	if e.load != nil {
		e.load.Zero()
	}
}

// AddLoad accumulates an external nodal load.
func (e *Element) AddLoad(p dynamo.Vector) error {
	if err := e.ready(); err != nil {
		return err
	}
	if len(p) != len(e.load) {
		return fmt.Errorf("element %d: load: %w: %d values, want %d", e.id, dynamo.ErrSizeMismatch, len(p), len(e.load))
	}
	copy(e.load, e.load.Add(p))
	return nil
}

// AddInertiaLoadToUnbalance adds -M*accel for a support acceleration given
// per nodal DOF.
func (e *Element) AddInertiaLoadToUnbalance(accel dynamo.Vector) error {
	if err := e.ready(); err != nil {
		return err
	}
	if len(accel) != len(e.load) {
		return fmt.Errorf("element %d: inertia load: %w: %d values, want %d", e.id, dynamo.ErrSizeMismatch, len(accel), len(e.load))
	}
	m := e.Mass()
	if mat.Sum(m) == 0 {
		return nil
	}
	copy(e.load, e.load.Sub(transform.MulVec(m, accel, false)))
	return nil
}
