package dynamo

import (
	"fmt"
	"math"
)

// Vector is a fixed-length block of doubles in the basic (or global)
// coordinate system of one component.
type Vector []float64

func NewVector(n int) Vector {
	return make(Vector, n)
}

func (v Vector) Clone() Vector {
	c := make(Vector, len(v))
	copy(c, v)
	return c
}

func (v Vector) IsValid() bool {
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	return true
}

func (v Vector) Norm() float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// MaxAbs returns the infinity norm.
func (v Vector) MaxAbs() float64 {
	m := 0.0
	for _, x := range v {
		if a := math.Abs(x); a > m {
			m = a
		}
	}
	return m
}

func (v Vector) Add(other Vector) Vector {
	result := make(Vector, len(v))
	for i := range v {
		if i < len(other) {
			result[i] = v[i] + other[i]
		} else {
			result[i] = v[i]
		}
	}
	return result
}

func (v Vector) Sub(other Vector) Vector {
	result := make(Vector, len(v))
	for i := range v {
		if i < len(other) {
			result[i] = v[i] - other[i]
		} else {
			result[i] = v[i]
		}
	}
	return result
}

func (v Vector) Scale(factor float64) Vector {
	result := make(Vector, len(v))
	for i := range v {
		result[i] = v[i] * factor
	}
	return result
}

func (v Vector) Zero() {
	for i := range v {
		v[i] = 0
	}
}

// Kind names one measured or commanded quantity.
type Kind int

const (
	Disp Kind = iota
	Vel
	Accel
	Force
	Time
)

// Kinds lists the quantities in wire order.
var Kinds = [...]Kind{Disp, Vel, Accel, Force, Time}

func (k Kind) String() string {
	switch k {
	case Disp:
		return "disp"
	case Vel:
		return "vel"
	case Accel:
		return "accel"
	case Force:
		return "force"
	case Time:
		return "time"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Sizes holds the number of scalar channels per quantity, indexed by Kind.
type Sizes [5]int

func (s Sizes) Get(k Kind) int { return s[k] }

func (s Sizes) Total() int {
	n := 0
	for _, v := range s {
		n += v
	}
	return n
}

func (s Sizes) Ints() []int32 {
	out := make([]int32, len(s))
	for i, v := range s {
		out[i] = int32(v)
	}
	return out
}

// CtrlSizes are the sizes a component submits as trial state.
func CtrlSizes(nb int) Sizes {
	return Sizes{nb, nb, nb, 0, 1}
}

// DaqSizes are the sizes a component expects back from the rig.
func DaqSizes(nb int) Sizes {
	return Sizes{nb, nb, nb, nb, 1}
}
