package sim

import (
	"fmt"

	"github.com/san-kum/hybridsim/internal/dynamo"
)

// Node is a host-model node with per-DOF fixity and lumped mass. Fixed DOFs
// stay at zero relative displacement.
type Node struct {
	tag    int
	coords []float64
	ndf    int
	fixed  []bool
	mass   dynamo.Vector
	eq     []int

	disp, vel, accel    dynamo.Vector
	cDisp, cVel, cAccel dynamo.Vector
}

func NewNode(tag int, coords []float64, ndf int) *Node {
	return &Node{
		tag:    tag,
		coords: append([]float64(nil), coords...),
		ndf:    ndf,
		fixed:  make([]bool, ndf),
		mass:   dynamo.NewVector(ndf),
		disp:   dynamo.NewVector(ndf),
		vel:    dynamo.NewVector(ndf),
		accel:  dynamo.NewVector(ndf),
		cDisp:  dynamo.NewVector(ndf),
		cVel:   dynamo.NewVector(ndf),
		cAccel: dynamo.NewVector(ndf),
	}
}

func (n *Node) Tag() int                     { return n.tag }
func (n *Node) Coords() []float64            { return n.coords }
func (n *Node) NumDOF() int                  { return n.ndf }
func (n *Node) TrialDisp() dynamo.Vector     { return n.disp }
func (n *Node) TrialVel() dynamo.Vector      { return n.vel }
func (n *Node) TrialAccel() dynamo.Vector    { return n.accel }
func (n *Node) CommittedDisp() dynamo.Vector { return n.cDisp }
func (n *Node) Mass() dynamo.Vector          { return n.mass }

// Fix restrains the given DOFs.
func (n *Node) Fix(dofs ...int) error {
	for _, dof := range dofs {
		if dof < 0 || dof >= n.ndf {
			return fmt.Errorf("node %d: dof %d out of range [0, %d)", n.tag, dof, n.ndf)
		}
		n.fixed[dof] = true
	}
	return nil
}

func (n *Node) Fixed(dof int) bool { return n.fixed[dof] }

func (n *Node) SetMass(m ...float64) error {
	if len(m) != n.ndf {
		return fmt.Errorf("node %d: %w: %d masses for %d dofs", n.tag, dynamo.ErrSizeMismatch, len(m), n.ndf)
	}
	copy(n.mass, m)
	return nil
}

// SetInitial sets the committed and trial displacement and velocity.
func (n *Node) SetInitial(disp, vel dynamo.Vector) error {
	if len(disp) != n.ndf || len(vel) != n.ndf {
		return fmt.Errorf("node %d: %w: initial conditions", n.tag, dynamo.ErrSizeMismatch)
	}
	for i := 0; i < n.ndf; i++ {
		if n.fixed[i] {
			continue
		}
		n.disp[i], n.cDisp[i] = disp[i], disp[i]
		n.vel[i], n.cVel[i] = vel[i], vel[i]
	}
	return nil
}

func (n *Node) commit() {
	copy(n.cDisp, n.disp)
	copy(n.cVel, n.vel)
	copy(n.cAccel, n.accel)
}

func (n *Node) revert() {
	copy(n.disp, n.cDisp)
	copy(n.vel, n.cVel)
	copy(n.accel, n.cAccel)
}
