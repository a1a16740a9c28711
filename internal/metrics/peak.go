package metrics

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/hybridsim/internal/sim"
)

type PeakForce struct {
	name string
	peak float64
}

func NewPeakForce() *PeakForce { return &PeakForce{name: "peak_force"} }

func (p *PeakForce) Name() string { return p.name }

func (p *PeakForce) Observe(s sim.Sample) {
	for _, es := range s.Elements {
		p.peak = math.Max(p.peak, es.Force.MaxAbs())
	}
}

func (p *PeakForce) Value() float64 { return p.peak }
func (p *PeakForce) Reset()         { p.peak = 0 }

type PeakDisp struct {
	name string
	peak float64
}

func NewPeakDisp() *PeakDisp { return &PeakDisp{name: "peak_disp"} }

func (p *PeakDisp) Name() string { return p.name }

func (p *PeakDisp) Observe(s sim.Sample) {
	p.peak = math.Max(p.peak, s.Disp.MaxAbs())
}

func (p *PeakDisp) Value() float64 { return p.peak }
func (p *PeakDisp) Reset()         { p.peak = 0 }

var registry = map[string]func(param float64) sim.Metric{
	"hysteretic_energy": func(float64) sim.Metric { return NewHystereticEnergy() },
	"control_error":     func(float64) sim.Metric { return NewControlError() },
	"peak_force":        func(float64) sim.Metric { return NewPeakForce() },
	"peak_disp":         func(float64) sim.Metric { return NewPeakDisp() },
	"stability":         func(limit float64) sim.Metric { return NewStability(limit) },
}

// FromName builds a metric; param is the limit for "stability".
func FromName(name string, param float64) (sim.Metric, error) {
	f, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric: %s", name)
	}
	return f(param), nil
}

func List() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
