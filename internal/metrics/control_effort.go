package metrics

import (
	"math"

	"github.com/san-kum/hybridsim/internal/sim"
)

// ControlError is the RMS difference between the commanded and the measured
// basic displacement over all elements and samples.
type ControlError struct {
	name    string
	sumSq   float64
	max     float64
	samples int
}

func NewControlError() *ControlError {
	return &ControlError{
		name: "control_error",
	}
}

func (c *ControlError) Name() string {
	return c.name
}

func (c *ControlError) Observe(s sim.Sample) {
	for _, es := range s.Elements {
		for i := range es.Trial {
			e := es.Trial[i] - es.Measured[i]
			c.sumSq += e * e
			c.max = math.Max(c.max, math.Abs(e))
			c.samples++
		}
	}
}

func (c *ControlError) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return math.Sqrt(c.sumSq / float64(c.samples))
}

func (c *ControlError) Max() float64 { return c.max }

func (c *ControlError) Reset() {
	c.sumSq = 0
	c.max = 0
	c.samples = 0
}
