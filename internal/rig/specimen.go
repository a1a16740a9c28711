// Package rig emulates a test rig: in-process specimens and a controller
// that serves them over the wire protocol.
package rig

import (
	"fmt"
	"math"

	"github.com/san-kum/hybridsim/internal/dynamo"
	"github.com/san-kum/hybridsim/internal/protocol"
	"github.com/san-kum/hybridsim/internal/site"
)

// trial holds the last commanded state of a specimen.
type trial struct {
	ctrl, daq dynamo.Sizes
	d, v, a   dynamo.Vector
	t         float64
}

func (s *trial) setSize(ctrl, daq dynamo.Sizes) error {
	nb := daq[dynamo.Force]
	if nb == 0 || ctrl[dynamo.Disp] != nb || daq[dynamo.Disp] != nb {
		return fmt.Errorf("%w: specimen needs equal disp and force channels, got ctrl %v daq %v", dynamo.ErrSizeMismatch, ctrl, daq)
	}
	s.ctrl, s.daq = ctrl, daq
	s.d, s.v, s.a = dynamo.NewVector(nb), dynamo.NewVector(nb), dynamo.NewVector(nb)
	return nil
}

func (s *trial) set(d, v, a dynamo.Vector, t float64) error {
	if len(d) != len(s.d) {
		return fmt.Errorf("%w: trial disp has %d values, want %d", dynamo.ErrSizeMismatch, len(d), len(s.d))
	}
	copy(s.d, d)
	if len(v) == len(s.v) {
		copy(s.v, v)
	}
	if len(a) == len(s.a) {
		copy(s.a, a)
	}
	s.t = t
	return nil
}

func (s *trial) response(force dynamo.Vector) protocol.Response {
	resize := func(v dynamo.Vector, n int) dynamo.Vector {
		out := dynamo.NewVector(n)
		copy(out, v)
		return out
	}
	return protocol.Response{
		Disp:  resize(s.d, s.daq[dynamo.Disp]),
		Vel:   resize(s.v, s.daq[dynamo.Vel]),
		Accel: resize(s.a, s.daq[dynamo.Accel]),
		Force: resize(force, s.daq[dynamo.Force]),
		Time:  resize(dynamo.Vector{s.t}, s.daq[dynamo.Time]),
	}
}

func stiffnessAt(k []float64, i int) float64 {
	switch {
	case len(k) == 0:
		return 0
	case i < len(k):
		return k[i]
	}
	return k[len(k)-1]
}

// Elastic reports force = K*d per direction.
type Elastic struct {
	K []float64
	trial
}

func NewElastic(k ...float64) *Elastic { return &Elastic{K: k} }

func (e *Elastic) SetSize(ctrl, daq dynamo.Sizes) error { return e.setSize(ctrl, daq) }

func (e *Elastic) SetTrial(d, v, a, f dynamo.Vector, t float64) error { return e.set(d, v, a, t) }

func (e *Elastic) Commit() error { return nil }

func (e *Elastic) Daq() (protocol.Response, error) {
	f := dynamo.NewVector(len(e.d))
	for i, x := range e.d {
		f[i] = stiffnessAt(e.K, i) * x
	}
	return e.response(f), nil
}

// Bilinear is an elastoplastic spring with kinematic hardening per
// direction; Hardening is the post-yield to elastic stiffness ratio. K and Fy
// repeat their last value for further directions.
type Bilinear struct {
	K, Fy     []float64
	Hardening float64
	trial

	ep, back   []float64 // committed plastic disp and back force
	epT, backT []float64
	force      dynamo.Vector
}

func NewBilinear(k, fy []float64, hardening float64) (*Bilinear, error) {
	if len(k) == 0 || len(fy) == 0 {
		return nil, fmt.Errorf("bilinear specimen needs k and fy")
	}
	for i := range k {
		if k[i] <= 0 {
			return nil, fmt.Errorf("bilinear specimen needs k > 0, got k[%d]=%g", i, k[i])
		}
	}
	for i := range fy {
		if fy[i] <= 0 {
			return nil, fmt.Errorf("bilinear specimen needs fy > 0, got fy[%d]=%g", i, fy[i])
		}
	}
	if hardening < 0 || hardening >= 1 {
		return nil, fmt.Errorf("bilinear hardening ratio %g outside [0,1)", hardening)
	}
	return &Bilinear{K: k, Fy: fy, Hardening: hardening}, nil
}

func (b *Bilinear) SetSize(ctrl, daq dynamo.Sizes) error {
	if err := b.setSize(ctrl, daq); err != nil {
		return err
	}
	n := daq[dynamo.Force]
	b.ep, b.back = make([]float64, n), make([]float64, n)
	b.epT, b.backT = make([]float64, n), make([]float64, n)
	b.force = dynamo.NewVector(n)
	return nil
}

func (b *Bilinear) SetTrial(d, v, a, f dynamo.Vector, t float64) error {
	if err := b.set(d, v, a, t); err != nil {
		return err
	}
	for i, x := range b.d {
		k, fy := stiffnessAt(b.K, i), stiffnessAt(b.Fy, i)
		hk := b.Hardening * k / (1 - b.Hardening)
		fTrial := k * (x - b.ep[i])
		xi := fTrial - b.back[i]
		yield := math.Abs(xi) - fy
		if yield <= 0 {
			b.force[i] = fTrial
			b.epT[i], b.backT[i] = b.ep[i], b.back[i]
			continue
		}
		dg := yield / (k + hk)
		sign := math.Copysign(1, xi)
		b.force[i] = fTrial - k*dg*sign
		b.epT[i] = b.ep[i] + dg*sign
		b.backT[i] = b.back[i] + hk*dg*sign
	}
	return nil
}

func (b *Bilinear) Commit() error {
	copy(b.ep, b.epT)
	copy(b.back, b.backT)
	return nil
}

func (b *Bilinear) Daq() (protocol.Response, error) {
	return b.response(b.force), nil
}

// Actuator wraps a specimen with a first-order tracking error: the achieved
// displacement lags the command by Lag times the commanded step.
type Actuator struct {
	Specimen site.Test
	Lag      float64

	prev, achieved dynamo.Vector
}

func (a *Actuator) SetSize(ctrl, daq dynamo.Sizes) error {
	if a.Lag < 0 || a.Lag >= 1 {
		return fmt.Errorf("actuator lag %g outside [0,1)", a.Lag)
	}
	n := ctrl[dynamo.Disp]
	a.prev, a.achieved = dynamo.NewVector(n), dynamo.NewVector(n)
	return a.Specimen.SetSize(ctrl, daq)
}

func (a *Actuator) SetTrial(d, v, acc, f dynamo.Vector, t float64) error {
	for i := range a.achieved {
		if i < len(d) {
			a.achieved[i] = d[i] - a.Lag*(d[i]-a.prev[i])
		}
	}
	return a.Specimen.SetTrial(a.achieved, v, acc, f, t)
}

func (a *Actuator) Commit() error {
	copy(a.prev, a.achieved)
	return a.Specimen.Commit()
}

func (a *Actuator) Daq() (protocol.Response, error) { return a.Specimen.Daq() }
