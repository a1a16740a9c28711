package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/hybridsim/internal/dynamo"
)

// CorotTruss is a two-node axial member whose basic deformation is the
// change of the current chord length. Velocities and accelerations include
// the terms from the rotating chord.
type CorotTruss struct {
	ndm, ndf int
	x0       [2][3]float64
	length   float64
	frame    Frame
}

func NewCorotTruss(ndm, ndf int) (*CorotTruss, error) {
	if !validTrussDOF(ndm, ndf) {
		return nil, fmt.Errorf("%w: corotTruss ndm=%d ndf=%d", dynamo.ErrDOFMismatch, ndm, ndf)
	}
	return &CorotTruss{ndm: ndm, ndf: ndf}, nil
}

func (c *CorotTruss) Name() string       { return "corotTruss" }
func (c *CorotTruss) NumNodes() int      { return 2 }
func (c *CorotTruss) NDM() int           { return c.ndm }
func (c *CorotTruss) DOFPerNode() int    { return c.ndf }
func (c *CorotTruss) NumDOF() int        { return 2 * c.ndf }
func (c *CorotTruss) NumBasic() int      { return 1 }
func (c *CorotTruss) Length() float64    { return c.length }
func (c *CorotTruss) Corotational() bool { return true }
func (c *CorotTruss) Frame() Frame       { return c.frame }

func (c *CorotTruss) Build(coords [][]float64) error {
	xi, xj := coordsOf(coords, 0, c.ndm), coordsOf(coords, 1, c.ndm)
	f, length, err := BuildFrame(xi, xj, nil, nil)
	if err != nil {
		return err
	}
	c.frame, c.length = f, length
	for k := 0; k < c.ndm; k++ {
		c.x0[0][k] = xi[k]
		c.x0[1][k] = xj[k]
	}
	return nil
}

// chord returns the unit vector and length of the deformed chord.
func (c *CorotTruss) chord(dg dynamo.Vector) ([3]float64, float64) {
	var d [3]float64
	for k := 0; k < c.ndm; k++ {
		d[k] = c.x0[1][k] - c.x0[0][k]
		if len(dg) == 2*c.ndf {
			d[k] += dg[c.ndf+k] - dg[k]
		}
	}
	ln := math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
	if ln <= eps {
		return [3]float64{c.frame.X.X, c.frame.X.Y, c.frame.X.Z}, ln
	}
	for k := range d {
		d[k] /= ln
	}
	return d, ln
}

func (c *CorotTruss) relative(v dynamo.Vector) [3]float64 {
	var out [3]float64
	if len(v) != 2*c.ndf {
		return out
	}
	for k := 0; k < c.ndm; k++ {
		out[k] = v[c.ndf+k] - v[k]
	}
	return out
}

func dot3(a, b [3]float64) float64 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func (c *CorotTruss) Basic(dg, vg, ag dynamo.Vector) (db, vb, ab dynamo.Vector) {
	n, ln := c.chord(dg)
	dv, da := c.relative(vg), c.relative(ag)

	vn := dot3(n, dv)
	db = dynamo.Vector{ln - c.length}
	vb = dynamo.Vector{vn}
	acc := dot3(n, da)
	if ln > eps {
		acc += (dot3(dv, dv) - vn*vn) / ln
	}
	ab = dynamo.Vector{acc}
	return
}

func (c *CorotTruss) ForceToGlobal(qb, dg dynamo.Vector) dynamo.Vector {
	n, _ := c.chord(dg)
	out := dynamo.NewVector(2 * c.ndf)
	q := 0.0
	if len(qb) > 0 {
		q = qb[0]
	}
	for k := 0; k < c.ndm; k++ {
		out[k] = -q * n[k]
		out[c.ndf+k] = q * n[k]
	}
	return out
}

func (c *CorotTruss) StiffToGlobal(kb *mat.Dense, qb, dg dynamo.Vector) *mat.Dense {
	n, ln := c.chord(dg)
	k := 0.0
	if kb != nil {
		k = kb.At(0, 0)
	}
	q := 0.0
	if len(qb) > 0 {
		q = qb[0]
	}
	geo := 0.0
	if ln > eps {
		geo = q / ln
	}

	nd := 2 * c.ndf
	out := mat.NewDense(nd, nd, nil)
	for a := 0; a < c.ndm; a++ {
		for b := 0; b < c.ndm; b++ {
			v := k*n[a]*n[b] - geo*n[a]*n[b]
			if a == b {
				v += geo
			}
			out.Set(a, b, v)
			out.Set(c.ndf+a, c.ndf+b, v)
			out.Set(a, c.ndf+b, -v)
			out.Set(c.ndf+a, b, -v)
		}
	}
	return out
}
