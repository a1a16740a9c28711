package transform

import (
	"errors"
	"math"
	"testing"

	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/hybridsim/internal/dynamo"
)

func TestBuildFrameOrthonormal(t *testing.T) {
	g := NewWithT(t)
	chords := [][]float64{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 2},
		{3, -4, 0},
		{1, 2, 3},
		{-0.2, 0.7, -1.1},
	}
	for _, c := range chords {
		f, length, err := BuildFrame([]float64{0, 0, 0}, c, nil, nil)
		g.Expect(err).NotTo(HaveOccurred())
		g.Expect(length).To(BeNumerically("~", math.Sqrt(c[0]*c[0]+c[1]*c[1]+c[2]*c[2]), 1e-12))
		for _, v := range []r3.Vec{f.X, f.Y, f.Z} {
			g.Expect(r3.Norm(v)).To(BeNumerically("~", 1, 1e-12))
		}
		g.Expect(r3.Dot(f.X, f.Y)).To(BeNumerically("~", 0, 1e-12))
		g.Expect(r3.Dot(f.X, f.Z)).To(BeNumerically("~", 0, 1e-12))
		g.Expect(r3.Dot(f.Y, f.Z)).To(BeNumerically("~", 0, 1e-12))
		g.Expect(f.Explicit).To(BeFalse())
	}
}

func TestBuildFrameDegenerate(t *testing.T) {
	tests := []struct {
		name   string
		xi, xj []float64
		x, y   []float64
		want   error
	}{
		{"coincident nodes", []float64{1, 1}, []float64{1, 1}, nil, nil, dynamo.ErrZeroLength},
		{"parallel axes", []float64{0, 0, 0}, []float64{1, 0, 0}, []float64{1, 0, 0}, []float64{2, 0, 0}, dynamo.ErrDegenerateGeometry},
		{"zero x axis", []float64{0, 0, 0}, []float64{0, 0, 0}, []float64{0, 0, 0}, []float64{0, 1, 0}, dynamo.ErrDegenerateGeometry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := BuildFrame(tt.xi, tt.xj, tt.x, tt.y)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestBuildFrameExplicitAxes(t *testing.T) {
	g := NewWithT(t)

	f, length, err := BuildFrame([]float64{0, 0}, []float64{0, 0}, []float64{0, 1}, nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(length).To(BeZero())
	g.Expect(f.Explicit).To(BeFalse())
	g.Expect(f.X.Y).To(BeNumerically("~", 1, 1e-12))

	f, _, err = BuildFrame([]float64{0, 0}, []float64{2, 0}, []float64{0, 1}, nil)
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(f.Explicit).To(BeTrue())
}

func TestFrameMatrixRows(t *testing.T) {
	g := NewWithT(t)
	f, _, err := BuildFrame([]float64{0, 0, 0}, []float64{0, 3, 0}, nil, nil)
	g.Expect(err).NotTo(HaveOccurred())
	m := f.Matrix()
	g.Expect(m.At(0, 1)).To(BeNumerically("~", 1, 1e-12))
	g.Expect(m.At(1, 0)).To(BeNumerically("~", -1, 1e-12))
	g.Expect(m.At(2, 2)).To(BeNumerically("~", 1, 1e-12))
}
