package correction

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/hybridsim/internal/dynamo"
	"github.com/san-kum/hybridsim/internal/transform"
)

const lengthTol = 1e-12

// PDelta redistributes the second-order moment N*Delta between the ends of a
// two-node component. Ratios are the shares of the moment taken by
// {rz at I, rz at J, ry at I, ry at J}; the rest is carried as shear.
type PDelta struct {
	Ratios [4]float64
}

func (p PDelta) Active() bool {
	for _, r := range p.Ratios {
		if r != 0 {
			return true
		}
	}
	return false
}

func validPair(p [2]int) bool { return p[0] >= 0 && p[1] >= 0 }

// Validate checks the ratios against the local DOFs the geometry offers.
func (p PDelta) Validate(lay transform.Layout) error {
	if !p.Active() {
		return nil
	}
	if lay.AxialDir < 0 {
		return fmt.Errorf("%w: P-Delta needs an axial basic direction", dynamo.ErrNotImplemented)
	}
	if !validPair(lay.ShearY) {
		return fmt.Errorf("%w: P-Delta needs transverse local DOFs", dynamo.ErrNotImplemented)
	}
	if (p.Ratios[0] != 0 || p.Ratios[1] != 0) && !validPair(lay.RotZ) {
		return fmt.Errorf("%w: rz P-Delta ratios without rotational DOFs", dynamo.ErrDOFMismatch)
	}
	if (p.Ratios[2] != 0 || p.Ratios[3] != 0) && !(validPair(lay.RotY) && validPair(lay.ShearZ)) {
		return fmt.Errorf("%w: ry P-Delta ratios without rotational DOFs", dynamo.ErrDOFMismatch)
	}
	for i, r := range p.Ratios {
		if r < 0 || r > 1 {
			return fmt.Errorf("P-Delta ratio %d = %g outside [0,1]", i, r)
		}
	}
	if p.Ratios[0]+p.Ratios[1] > 1 || p.Ratios[2]+p.Ratios[3] > 1 {
		return fmt.Errorf("P-Delta ratios of one plane sum above 1")
	}
	return nil
}

type plane struct {
	shear [2]int
	rot   [2]int
	rI    float64
	rJ    float64
	sign  float64
}

func (p PDelta) planes(lay transform.Layout) []plane {
	var out []plane
	if validPair(lay.ShearY) {
		out = append(out, plane{shear: lay.ShearY, rot: lay.RotZ, rI: p.Ratios[0], rJ: p.Ratios[1], sign: 1})
	}
	if validPair(lay.ShearZ) {
		out = append(out, plane{shear: lay.ShearZ, rot: lay.RotY, rI: p.Ratios[2], rJ: p.Ratios[3], sign: -1})
	}
	return out
}

// AddForce adds the correction for axial force n to the local force vector
// ql, given the local displacements ul and the chord length.
func (p PDelta) AddForce(ql, ul dynamo.Vector, n, length float64, lay transform.Layout) {
	for _, pl := range p.planes(lay) {
		delta := ul[pl.shear[1]] - ul[pl.shear[0]]
		if validPair(pl.rot) {
			ql[pl.rot[0]] += pl.sign * pl.rI * n * delta
			ql[pl.rot[1]] += pl.sign * pl.rJ * n * delta
		}
		if length > lengthTol {
			v := (1 - pl.rI - pl.rJ) * n * delta / length
			ql[pl.shear[0]] -= v
			ql[pl.shear[1]] += v
		}
	}
}

// AddStiff adds the matching geometric stiffness to the local stiffness kl.
func (p PDelta) AddStiff(kl *mat.Dense, n, length float64, lay transform.Layout) {
	add := func(i, j int, v float64) { kl.Set(i, j, kl.At(i, j)+v) }
	for _, pl := range p.planes(lay) {
		sI, sJ := pl.shear[0], pl.shear[1]
		if validPair(pl.rot) {
			for k, r := range []float64{pl.rI, pl.rJ} {
				m := pl.sign * r * n
				add(pl.rot[k], sJ, m)
				add(pl.rot[k], sI, -m)
			}
		}
		if length > lengthTol {
			c := (1 - pl.rI - pl.rJ) * n / length
			add(sI, sI, c)
			add(sI, sJ, -c)
			add(sJ, sI, -c)
			add(sJ, sJ, c)
		}
	}
}
