package sim

import (
	"fmt"

	"github.com/san-kum/hybridsim/internal/dynamo"
)

// Integrator advances the domain by one step and commits it.
type Integrator interface {
	Name() string
	Step(d *Domain, dt float64) error
}

// GroundMotion is a uniform support acceleration history.
type GroundMotion interface {
	Accel(t float64) float64
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(s Sample)
}

type ElementSample struct {
	ID       int
	Trial    dynamo.Vector // basic trial displacement
	Measured dynamo.Vector // basic measured displacement
	Force    dynamo.Vector // basic resisting force
}

// Sample is the committed state of the domain after one step.
type Sample struct {
	Step     int
	Time     float64
	Ground   float64
	Disp     dynamo.Vector // free DOF displacements
	Elements []ElementSample
}

type Config struct {
	Dt            float64
	Duration      float64
	Ground        GroundMotion
	GroundDir     int // DOF index excited at every node
	ValidateState bool
}

type Result struct {
	Samples    []Sample
	Times      []float64
	StepsTaken int
	Metrics    map[string]float64
	Errors     []error
}

// Element returns the history of one element as parallel slices.
func (r *Result) Element(id int) (trial, measured, force []dynamo.Vector) {
	for _, s := range r.Samples {
		for _, es := range s.Elements {
			if es.ID == id {
				trial = append(trial, es.Trial)
				measured = append(measured, es.Measured)
				force = append(force, es.Force)
			}
		}
	}
	return trial, measured, force
}

type SimError struct {
	Time    float64
	Step    int
	Message string
	Err     error
}

func (e SimError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("step %d (t=%.4f): %s: %v", e.Step, e.Time, e.Message, e.Err)
	}
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}

func (e SimError) Unwrap() error { return e.Err }
