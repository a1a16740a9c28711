package metrics

import "github.com/san-kum/hybridsim/internal/sim"

// HystereticEnergy is the work done on the specimens, integrated with the
// trapezoidal rule over measured displacement and measured force.
type HystereticEnergy struct {
	name   string
	total  float64
	prev   map[int]sim.ElementSample
	perEle map[int]float64
}

func NewHystereticEnergy() *HystereticEnergy {
	h := &HystereticEnergy{name: "hysteretic_energy"}
	h.Reset()
	return h
}

func (h *HystereticEnergy) Name() string { return h.name }

func (h *HystereticEnergy) Observe(s sim.Sample) {
	for _, es := range s.Elements {
		if p, ok := h.prev[es.ID]; ok {
			w := 0.0
			for i := range es.Measured {
				w += 0.5 * (p.Force[i] + es.Force[i]) * (es.Measured[i] - p.Measured[i])
			}
			h.total += w
			h.perEle[es.ID] += w
		}
		h.prev[es.ID] = es
	}
}

func (h *HystereticEnergy) Value() float64 { return h.total }

// Element returns the energy dissipated by one element.
func (h *HystereticEnergy) Element(id int) float64 { return h.perEle[id] }

func (h *HystereticEnergy) Reset() {
	h.total = 0
	h.prev = make(map[int]sim.ElementSample)
	h.perEle = make(map[int]float64)
}
