package sim

import (
	"context"
	"fmt"
	"math"
)

type Simulator struct {
	domain     *Domain
	integrator Integrator
	metrics    []Metric
	observers  []Observer
}

func New(domain *Domain, integrator Integrator) *Simulator {
	return &Simulator{
		domain:     domain,
		integrator: integrator,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }
func (s *Simulator) Domain() *Domain        { return s.domain }
func (s *Simulator) Integrator() Integrator { return s.integrator }

// Run sets up the domain, computes the initial state and steps it to
// cfg.Duration. A failed step stops the run; the partial result is returned
// with the error.
func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	result := &Result{
		Samples: make([]Sample, 0, steps+1),
		Times:   make([]float64, 0, steps+1),
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	d := s.domain
	d.SetGroundMotion(cfg.GroundDir, cfg.Ground)
	if !d.ready {
		if err := d.Setup(); err != nil {
			return nil, err
		}
	}
	if err := d.Start(); err != nil {
		return nil, SimError{Time: d.time, Step: 0, Message: "initial state", Err: err}
	}
	if err := s.record(result, 0); err != nil {
		return result, err
	}

	for i := 1; i <= steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if err := s.integrator.Step(d, cfg.Dt); err != nil {
			d.Revert()
			simErr := SimError{Time: d.time, Step: i, Message: s.integrator.Name(), Err: err}
			result.Errors = append(result.Errors, simErr)
			s.finish(result)
			return result, simErr
		}

		if cfg.ValidateState && !d.Disp().IsValid() {
			result.Errors = append(result.Errors, SimError{Time: d.time, Step: i, Message: "invalid state (NaN/Inf)"})
			break
		}

		result.StepsTaken++
		if err := s.record(result, i); err != nil {
			s.finish(result)
			return result, err
		}
	}

	s.finish(result)
	return result, nil
}

func (s *Simulator) record(result *Result, step int) error {
	sample, err := s.domain.Sample(step)
	if err != nil {
		return SimError{Time: s.domain.time, Step: step, Message: "sample", Err: err}
	}
	result.Samples = append(result.Samples, sample)
	result.Times = append(result.Times, sample.Time)
	for _, m := range s.metrics {
		m.Observe(sample)
	}
	for _, obs := range s.observers {
		obs.OnStep(sample)
	}
	return nil
}

func (s *Simulator) finish(result *Result) {
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	if cfg.Ground != nil && (cfg.GroundDir < 0 || cfg.GroundDir > 5) {
		return fmt.Errorf("ground direction must be in [0, 5], got %d", cfg.GroundDir)
	}
	if s.integrator == nil {
		return fmt.Errorf("no integrator")
	}
	return nil
}
