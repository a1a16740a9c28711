package transform

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/hybridsim/internal/dynamo"
)

const eps = 1e-12

// Frame is an orthonormal basis; rows of Matrix are the local x, y and z axes
// expressed in global coordinates.
type Frame struct {
	X, Y, Z r3.Vec

	// Explicit is set when user axes were used although the end nodes
	// define a non-zero chord.
	Explicit bool
}

func toVec(v []float64) r3.Vec {
	var out r3.Vec
	if len(v) > 0 {
		out.X = v[0]
	}
	if len(v) > 1 {
		out.Y = v[1]
	}
	if len(v) > 2 {
		out.Z = v[2]
	}
	return out
}

// BuildFrame derives the local frame of a two-node component. Explicit axes
// take precedence over the chord xi->xj. It returns the chord length.
func BuildFrame(xi, xj, xAxis, yAxis []float64) (Frame, float64, error) {
	var f Frame
	chord := r3.Sub(toVec(xj), toVec(xi))
	length := r3.Norm(chord)

	var x r3.Vec
	switch {
	case len(xAxis) > 0:
		x = toVec(xAxis)
		f.Explicit = length > eps
	case length <= eps:
		return f, length, dynamo.ErrZeroLength
	default:
		x = chord
	}

	var y r3.Vec
	if len(yAxis) > 0 {
		y = toVec(yAxis)
	} else {
		y = r3.Vec{X: -x.Y, Y: x.X}
		if r3.Norm(y) <= eps {
			y = r3.Vec{Y: 1}
		}
	}

	z := r3.Cross(x, y)
	y = r3.Cross(z, x)

	nx, ny, nz := r3.Norm(x), r3.Norm(y), r3.Norm(z)
	if nx <= eps || ny <= eps || nz <= eps {
		return f, length, fmt.Errorf("%w: |x|=%g |y|=%g |z|=%g", dynamo.ErrDegenerateGeometry, nx, ny, nz)
	}
	f.X = r3.Scale(1/nx, x)
	f.Y = r3.Scale(1/ny, y)
	f.Z = r3.Scale(1/nz, z)
	return f, length, nil
}

func (f Frame) Matrix() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		f.X.X, f.X.Y, f.X.Z,
		f.Y.X, f.Y.Y, f.Y.Z,
		f.Z.X, f.Z.Y, f.Z.Z,
	})
}
