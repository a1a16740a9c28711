package correction

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/hybridsim/internal/dynamo"
)

const estimatorTol = 1e-14

// Estimator updates the basic tangent stiffness from measured increments.
type Estimator interface {
	Name() string
	Update(dd, dq dynamo.Vector, kInit, kPrev *mat.Dense) *mat.Dense
	Responses() []string
	Response(name string) (dynamo.Vector, bool)
}

type estimatorCtor func() Estimator

var estimators = map[string]estimatorCtor{
	"broyden": func() Estimator { return &Broyden{} },
	"bfgs":    func() Estimator { return &BFGS{} },
}

// EstimatorFromName returns a fresh estimator; an empty name means none.
func EstimatorFromName(name string) (Estimator, error) {
	if name == "" || name == "none" {
		return nil, nil
	}
	ctor, ok := estimators[name]
	if !ok {
		return nil, fmt.Errorf("unknown estimator: %s", name)
	}
	return ctor(), nil
}

func ListEstimators() []string {
	names := make([]string, 0, len(estimators))
	for n := range estimators {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type estimatorState struct {
	k       *mat.Dense
	updates int
	skipped int
}

func (s *estimatorState) base(kInit, kPrev *mat.Dense) *mat.Dense {
	var k mat.Dense
	if kPrev != nil {
		k.CloneFrom(kPrev)
	} else {
		k.CloneFrom(kInit)
	}
	return &k
}

func (s *estimatorState) Responses() []string { return []string{"stiff", "updates", "skipped"} }

func (s *estimatorState) Response(name string) (dynamo.Vector, bool) {
	switch name {
	case "stiff":
		if s.k == nil {
			return dynamo.Vector{}, true
		}
		r, c := s.k.Dims()
		out := dynamo.NewVector(r * c)
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				out[i*c+j] = s.k.At(i, j)
			}
		}
		return out, true
	case "updates":
		return dynamo.Vector{float64(s.updates)}, true
	case "skipped":
		return dynamo.Vector{float64(s.skipped)}, true
	}
	return nil, false
}

// Broyden applies the rank-one secant update
// K += (dq - K*dd) dd' / (dd'dd).
type Broyden struct {
	estimatorState
}

func (b *Broyden) Name() string { return "broyden" }

func (b *Broyden) Update(dd, dq dynamo.Vector, kInit, kPrev *mat.Dense) *mat.Dense {
	k := b.base(kInit, kPrev)
	den := dot(dd, dd)
	if den < estimatorTol {
		b.skipped++
		b.k = k
		return k
	}
	kd := mulVec(k, dd)
	r := dq.Sub(kd)
	n := len(dd)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			k.Set(i, j, k.At(i, j)+r[i]*dd[j]/den)
		}
	}
	b.updates++
	b.k = k
	return k
}

// BFGS applies the symmetric rank-two update
// K += dq dq'/(dq'dd) - K dd dd' K/(dd' K dd).
type BFGS struct {
	estimatorState
}

func (b *BFGS) Name() string { return "bfgs" }

func (b *BFGS) Update(dd, dq dynamo.Vector, kInit, kPrev *mat.Dense) *mat.Dense {
	k := b.base(kInit, kPrev)
	curv := dot(dq, dd)
	kd := mulVec(k, dd)
	dkd := dot(dd, kd)
	if curv < estimatorTol || dkd < estimatorTol {
		b.skipped++
		b.k = k
		return k
	}
	n := len(dd)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			k.Set(i, j, k.At(i, j)+dq[i]*dq[j]/curv-kd[i]*kd[j]/dkd)
		}
	}
	b.updates++
	b.k = k
	return k
}

func dot(a, b dynamo.Vector) float64 {
	sum := 0.0
	for i := range a {
		if i < len(b) {
			sum += a[i] * b[i]
		}
	}
	return sum
}

func mulVec(k *mat.Dense, x dynamo.Vector) dynamo.Vector {
	r, c := k.Dims()
	out := dynamo.NewVector(r)
	for i := 0; i < r; i++ {
		for j := 0; j < c && j < len(x); j++ {
			out[i] += k.At(i, j) * x[j]
		}
	}
	return out
}
