package transform

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/hybridsim/internal/dynamo"
)

func validTrussDOF(ndm, ndf int) bool {
	switch ndm {
	case 1:
		return ndf == 1
	case 2:
		return ndf == 2 || ndf == 3
	case 3:
		return ndf == 3 || ndf == 6
	}
	return false
}

// Truss is a two-node axial member with a single basic direction, the
// change of length measured along the reference chord.
type Truss struct {
	Linear
	ndm, ndf int
	length   float64
	frame    Frame
}

func NewTruss(ndm, ndf int) (*Truss, error) {
	if !validTrussDOF(ndm, ndf) {
		return nil, fmt.Errorf("%w: truss ndm=%d ndf=%d", dynamo.ErrDOFMismatch, ndm, ndf)
	}
	return &Truss{ndm: ndm, ndf: ndf}, nil
}

func (t *Truss) Name() string    { return "truss" }
func (t *Truss) NumNodes() int   { return 2 }
func (t *Truss) NDM() int        { return t.ndm }
func (t *Truss) DOFPerNode() int { return t.ndf }
func (t *Truss) NumDOF() int     { return 2 * t.ndf }
func (t *Truss) NumBasic() int   { return 1 }
func (t *Truss) Length() float64 { return t.length }
func (t *Truss) Frame() Frame    { return t.frame }
func (t *Truss) Layout() Layout {
	l := noLayout()
	l.AxialDir = 0
	l.NodeDOF = 1
	return l
}

func (t *Truss) Build(coords [][]float64) error {
	f, length, err := BuildFrame(coordsOf(coords, 0, t.ndm), coordsOf(coords, 1, t.ndm), nil, nil)
	if err != nil {
		return err
	}
	t.frame, t.length = f, length

	x := [3]float64{f.X.X, f.X.Y, f.X.Z}
	t.Tgl = mat.NewDense(2, 2*t.ndf, nil)
	for k := 0; k < t.ndm; k++ {
		t.Tgl.Set(0, k, x[k])
		t.Tgl.Set(1, t.ndf+k, x[k])
	}
	t.Tlb = mat.NewDense(1, 2, []float64{-1, 1})
	return nil
}
