package transform

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/hybridsim/internal/dynamo"
)

// Transform maps the generalized (global) degrees of freedom of one component
// to the basic coordinates tested on the rig and maps measured basic forces
// and stiffnesses back.
type Transform interface {
	Name() string
	NumNodes() int
	NDM() int
	DOFPerNode() int
	NumDOF() int
	NumBasic() int

	// Build computes orientation and transformation matrices from the
	// reference nodal coordinates, coords[node][ndm].
	Build(coords [][]float64) error
	Length() float64

	Basic(dg, vg, ag dynamo.Vector) (db, vb, ab dynamo.Vector)
	ForceToGlobal(qb, dg dynamo.Vector) dynamo.Vector
	StiffToGlobal(kb *mat.Dense, qb, dg dynamo.Vector) *mat.Dense
	Corotational() bool
}

// LocalTransform is implemented by linear geometries whose global-to-local
// and local-to-basic maps are fixed after Build.
type LocalTransform interface {
	Transform
	GlobalToLocal(vg dynamo.Vector) dynamo.Vector
	BasicToLocalForce(qb dynamo.Vector) dynamo.Vector
	LocalForceToGlobal(ql dynamo.Vector) dynamo.Vector
	BasicToLocalStiff(kb *mat.Dense) *mat.Dense
	LocalStiffToGlobal(kl *mat.Dense) *mat.Dense
	Layout() Layout
}

// Layout locates the local DOFs a second-order correction acts on. Index
// pairs are {node I, node J}; -1 marks an absent DOF.
type Layout struct {
	AxialDir int // row of the axial direction in the basic vector
	NodeDOF  int
	ShearY   [2]int
	ShearZ   [2]int
	RotY     [2]int
	RotZ     [2]int
}

func noLayout() Layout {
	return Layout{AxialDir: -1, ShearY: [2]int{-1, -1}, ShearZ: [2]int{-1, -1}, RotY: [2]int{-1, -1}, RotZ: [2]int{-1, -1}}
}

// SensorGroup lists basic directions that share one load cell together with
// the share of the combined correction each direction receives.
type SensorGroup struct {
	Dirs   []int
	Ratios []float64
}

// SharedSensors is implemented by geometries whose directions share load cells.
type SharedSensors interface {
	SensorGroups() []SensorGroup
}

// Linear holds the fixed transformation matrices of a linear geometry.
type Linear struct {
	Tgl *mat.Dense // [nlocal][ndof]
	Tlb *mat.Dense // [nbasic][nlocal]
}

func (l *Linear) GlobalToLocal(vg dynamo.Vector) dynamo.Vector {
	return MulVec(l.Tgl, vg, false)
}

func (l *Linear) LocalToBasic(vl dynamo.Vector) dynamo.Vector {
	return MulVec(l.Tlb, vl, false)
}

func (l *Linear) Basic(dg, vg, ag dynamo.Vector) (db, vb, ab dynamo.Vector) {
	db = l.LocalToBasic(l.GlobalToLocal(dg))
	vb = l.LocalToBasic(l.GlobalToLocal(vg))
	ab = l.LocalToBasic(l.GlobalToLocal(ag))
	return
}

func (l *Linear) BasicToLocalForce(qb dynamo.Vector) dynamo.Vector {
	return MulVec(l.Tlb, qb, true)
}

func (l *Linear) LocalForceToGlobal(ql dynamo.Vector) dynamo.Vector {
	return MulVec(l.Tgl, ql, true)
}

func (l *Linear) ForceToGlobal(qb, _ dynamo.Vector) dynamo.Vector {
	return l.LocalForceToGlobal(l.BasicToLocalForce(qb))
}

func (l *Linear) BasicToLocalStiff(kb *mat.Dense) *mat.Dense {
	return Congruent(l.Tlb, kb)
}

func (l *Linear) LocalStiffToGlobal(kl *mat.Dense) *mat.Dense {
	return Congruent(l.Tgl, kl)
}

func (l *Linear) StiffToGlobal(kb *mat.Dense, _, _ dynamo.Vector) *mat.Dense {
	return l.LocalStiffToGlobal(l.BasicToLocalStiff(kb))
}

func (l *Linear) Corotational() bool { return false }

// MulVec returns a*x, or trans(a)*x when trans is set.
func MulVec(a *mat.Dense, x dynamo.Vector, trans bool) dynamo.Vector {
	r, c := a.Dims()
	var m mat.Matrix = a
	if trans {
		r, c = c, r
		m = a.T()
	}
	out := dynamo.NewVector(r)
	for i := 0; i < r; i++ {
		sum := 0.0
		for j := 0; j < c && j < len(x); j++ {
			sum += m.At(i, j) * x[j]
		}
		out[i] = sum
	}
	return out
}

// Congruent returns trans(t) * k * t.
func Congruent(t, k *mat.Dense) *mat.Dense {
	var out mat.Dense
	out.Product(t.T(), k, t)
	return &out
}

func coordsOf(coords [][]float64, i, ndm int) []float64 {
	out := make([]float64, ndm)
	if i < len(coords) {
		copy(out, coords[i])
	}
	return out
}
