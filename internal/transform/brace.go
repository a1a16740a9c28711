package transform

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/hybridsim/internal/dynamo"
)

// InvertedVBrace is a planar three-node chevron: two legs from bottom nodes
// 0 and 1 meet at the top node 2 through rigid offsets. Each leg is tested
// in ux, uy and rz, giving six basic directions.
type InvertedVBrace struct {
	Linear
	offsets [2][2]float64
	legs    [2]float64
}

func NewInvertedVBrace() *InvertedVBrace { return &InvertedVBrace{} }

func (b *InvertedVBrace) Name() string    { return "invertedVBrace" }
func (b *InvertedVBrace) NumNodes() int   { return 3 }
func (b *InvertedVBrace) NDM() int        { return 2 }
func (b *InvertedVBrace) DOFPerNode() int { return 3 }
func (b *InvertedVBrace) NumDOF() int     { return 9 }
func (b *InvertedVBrace) NumBasic() int   { return 6 }
func (b *InvertedVBrace) Length() float64 { return (b.legs[0] + b.legs[1]) / 2 }
func (b *InvertedVBrace) Layout() Layout  { return noLayout() }

// LegLengths returns the lengths of the two rigid-offset diagonals.
func (b *InvertedVBrace) LegLengths() [2]float64 { return b.legs }

func (b *InvertedVBrace) Build(coords [][]float64) error {
	top := coordsOf(coords, 2, 2)
	for k := 0; k < 2; k++ {
		x := coordsOf(coords, k, 2)
		dx, dy := x[0]-top[0], x[1]-top[1]
		b.offsets[k] = [2]float64{dx, dy}
		b.legs[k] = math.Hypot(dx, dy)
		if b.legs[k] <= eps {
			return fmt.Errorf("%w: brace leg %d", dynamo.ErrZeroLength, k)
		}
	}

	b.Tgl = mat.NewDense(9, 9, nil)
	for i := 0; i < 9; i++ {
		b.Tgl.Set(i, i, 1)
	}
	b.Tlb = mat.NewDense(6, 9, nil)
	for k := 0; k < 2; k++ {
		dx, dy := b.offsets[k][0], b.offsets[k][1]
		r := 3 * k
		b.Tlb.Set(r, r, -1)
		b.Tlb.Set(r, 6, 1)
		b.Tlb.Set(r, 8, -dy)
		b.Tlb.Set(r+1, r+1, -1)
		b.Tlb.Set(r+1, 7, 1)
		b.Tlb.Set(r+1, 8, dx)
		b.Tlb.Set(r+2, r+2, -1)
		b.Tlb.Set(r+2, 8, 1)
	}
	return nil
}

// SensorGroups pairs the matching directions of the two legs; each leg takes
// the share given by the length of the other leg.
func (b *InvertedVBrace) SensorGroups() []SensorGroup {
	sum := b.legs[0] + b.legs[1]
	r := []float64{0.5, 0.5}
	if sum > eps {
		r = []float64{b.legs[1] / sum, b.legs[0] / sum}
	}
	return []SensorGroup{
		{Dirs: []int{0, 3}, Ratios: r},
		{Dirs: []int{1, 4}, Ratios: r},
	}
}
