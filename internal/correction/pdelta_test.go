package correction

import (
	"errors"
	"testing"

	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/hybridsim/internal/dynamo"
	"github.com/san-kum/hybridsim/internal/transform"
)

func planarLayout() transform.Layout {
	return transform.Layout{
		AxialDir: 0,
		NodeDOF:  3,
		ShearY:   [2]int{1, 4},
		ShearZ:   [2]int{-1, -1},
		RotY:     [2]int{-1, -1},
		RotZ:     [2]int{2, 5},
	}
}

func TestPDeltaInactiveWithZeroRatios(t *testing.T) {
	g := NewWithT(t)
	var p PDelta
	g.Expect(p.Active()).To(BeFalse())
	g.Expect(p.Validate(transform.Layout{AxialDir: -1})).To(Succeed())
}

func TestPDeltaMomentEquilibrium(t *testing.T) {
	tests := []struct {
		name   string
		ratios [4]float64
	}{
		{"all shear", [4]float64{1e-12, 0, 0, 0}},
		{"split", [4]float64{0.5, 0.5, 0, 0}},
		{"bottom heavy", [4]float64{0.8, 0.1, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			p := PDelta{Ratios: tt.ratios}
			lay := planarLayout()
			g.Expect(p.Validate(lay)).To(Succeed())

			const n, length, delta = -50.0, 2.0, 0.03
			ul := dynamo.Vector{0, 0, 0, 0, delta, 0}
			ql := dynamo.NewVector(6)
			p.AddForce(ql, ul, n, length, lay)

			// shear couple plus end moments balance N*Delta
			moment := ql[4]*length + ql[2] + ql[5]
			g.Expect(moment).To(BeNumerically("~", n*delta, 1e-12))
			g.Expect(ql[1] + ql[4]).To(BeNumerically("~", 0, 1e-12))
		})
	}
}

func TestPDeltaStiffnessMatchesForce(t *testing.T) {
	g := NewWithT(t)
	p := PDelta{Ratios: [4]float64{0.3, 0.2, 0, 0}}
	lay := planarLayout()
	const n, length = 20.0, 1.5

	kl := mat.NewDense(6, 6, nil)
	p.AddStiff(kl, n, length, lay)

	ul := dynamo.Vector{0, 0.01, 0, 0, 0.04, 0}
	ql := dynamo.NewVector(6)
	p.AddForce(ql, ul, n, length, lay)

	for i := 0; i < 6; i++ {
		sum := 0.0
		for j := 0; j < 6; j++ {
			sum += kl.At(i, j) * ul[j]
		}
		g.Expect(sum).To(BeNumerically("~", ql[i], 1e-12), "row %d", i)
	}
}

func TestPDeltaValidate(t *testing.T) {
	noRot := planarLayout()
	noRot.RotZ = [2]int{-1, -1}
	p := PDelta{Ratios: [4]float64{0.5, 0, 0, 0}}
	if err := p.Validate(noRot); !errors.Is(err, dynamo.ErrDOFMismatch) {
		t.Errorf("expected ErrDOFMismatch, got %v", err)
	}

	truss := transform.Layout{AxialDir: 0, ShearY: [2]int{-1, -1}, ShearZ: [2]int{-1, -1}, RotY: [2]int{-1, -1}, RotZ: [2]int{-1, -1}}
	if err := p.Validate(truss); !errors.Is(err, dynamo.ErrNotImplemented) {
		t.Errorf("expected ErrNotImplemented, got %v", err)
	}

	over := PDelta{Ratios: [4]float64{0.7, 0.7, 0, 0}}
	if err := over.Validate(planarLayout()); err == nil {
		t.Error("expected error for ratios summing above 1")
	}
}
