package element

import (
	"fmt"

	"github.com/san-kum/hybridsim/internal/dynamo"
)

func (e *Element) ready() error {
	if e.err != nil {
		return e.inertError()
	}
	if e.state == Unattached {
		return fmt.Errorf("element %d: %w", e.id, dynamo.ErrNotAttached)
	}
	return nil
}

// gather concatenates one nodal quantity over all nodes.
func (e *Element) gather(dst dynamo.Vector, get func(Node) dynamo.Vector) {
	ndf := e.geom.DOFPerNode()
	dst.Zero()
	for i, n := range e.nodes {
		copy(dst[i*ndf:(i+1)*ndf], get(n))
	}
}

// Update maps the nodal trial state to basic coordinates and pushes it to
// the site when the basic displacement moved by more than the tolerance
// since the last push.
func (e *Element) Update() error {
	if err := e.ready(); err != nil {
		return err
	}
	e.gather(e.dg, Node.TrialDisp)
	e.gather(e.vg, Node.TrialVel)
	e.gather(e.ag, Node.TrialAccel)

	db, vb, ab := e.geom.Basic(e.dg, e.vg, e.ag)
	copy(e.db, db)
	copy(e.vb, vb)
	copy(e.ab, ab)
	if e.clock != nil {
		e.tb = e.clock.CurrentTime()
	}
	e.state = Updated

	if e.pushedValid && e.db.Sub(e.pushed).MaxAbs() <= e.cfg.Tolerance {
		return nil
	}
	e.daqValid = false
	if err := e.site.SetTrialResponse(e.db, e.vb, e.ab, nil, e.tb); err != nil {
		e.pushedValid = false
		e.pushErr = fmt.Errorf("element %d: set trial response: %w", e.id, err)
		return e.pushErr
	}
	e.pushed = e.db.Clone()
	e.pushedValid = true
	e.pushErr = nil
	return nil
}

// pending reports the failed push of the current trial, if any. The measured
// state is unusable until a later Update succeeds.
func (e *Element) pending() error {
	return e.pushErr
}

// CommitState commits the step on the site and makes the trial the new
// push baseline.
func (e *Element) CommitState() error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := e.pending(); err != nil {
		return err
	}
	if e.cfg.Estimator != nil {
		if err := e.fetchDaq(); err != nil {
			return err
		}
	}
	if err := e.site.CommitState(e.tb); err != nil {
		return fmt.Errorf("element %d: commit: %w", e.id, err)
	}
	copy(e.dbCommitted, e.db)
	e.tCommitted = e.tb
	e.pushed = e.db.Clone()
	e.pushedValid = true
	if e.daqValid {
		copy(e.dmCommitted, e.dm)
		copy(e.qmCommitted, e.qm)
	}
	if e.kTrial != nil {
		e.kPrev = e.kTrial
	}
	e.kCommit = e.ktLast
	e.daqValid = false
	e.state = Committed
	return nil
}

// fetchDaq pulls the measured state once per trial.
func (e *Element) fetchDaq() error {
	if err := e.pending(); err != nil {
		return err
	}
	if e.daqValid {
		return nil
	}
	fetch := []struct {
		dst dynamo.Vector
		get func() (dynamo.Vector, error)
		k   dynamo.Kind
	}{
		{e.dm, e.site.Disp, dynamo.Disp},
		{e.vm, e.site.Vel, dynamo.Vel},
		{e.am, e.site.Accel, dynamo.Accel},
		{e.qm, e.site.Force, dynamo.Force},
	}
	for _, f := range fetch {
		v, err := f.get()
		if err != nil {
			return fmt.Errorf("element %d: get %s: %w", e.id, f.k, err)
		}
		if len(v) != len(f.dst) {
			return fmt.Errorf("element %d: measured %s: %w: %d values, want %d", e.id, f.k, dynamo.ErrSizeMismatch, len(v), len(f.dst))
		}
		copy(f.dst, v)
	}
	t, err := e.site.Time()
	if err != nil {
		return fmt.Errorf("element %d: get time: %w", e.id, err)
	}
	if len(t) > 0 {
		e.tm = t[0]
	}
	e.daqValid = true
	return nil
}
