package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/hybridsim/internal/config"
	"github.com/san-kum/hybridsim/internal/integrators"
	"github.com/san-kum/hybridsim/internal/metrics"
	"github.com/san-kum/hybridsim/internal/rig"
	"github.com/san-kum/hybridsim/internal/sim"
	"github.com/san-kum/hybridsim/internal/site"
	"github.com/san-kum/hybridsim/internal/transform"
)

const defaultDriftLimit = 1.0

type Registry struct {
	geometries  map[string]func(config.ElementConfig) (transform.Transform, error)
	specimens   map[string]func(config.SpecimenConfig) (site.Test, error)
	integrators map[string]func(*config.Config) (sim.Integrator, error)
}

func linkOptions(ec config.ElementConfig) transform.LinkOptions {
	opts := transform.DefaultLinkOptions()
	opts.XAxis, opts.YAxis = ec.XAxis, ec.YAxis
	if ec.ShearDist != nil {
		opts.ShearDistI = *ec.ShearDist
	}
	return opts
}

func NewRegistry() *Registry {
	r := &Registry{
		geometries:  make(map[string]func(config.ElementConfig) (transform.Transform, error)),
		specimens:   make(map[string]func(config.SpecimenConfig) (site.Test, error)),
		integrators: make(map[string]func(*config.Config) (sim.Integrator, error)),
	}

	r.geometries["truss"] = func(ec config.ElementConfig) (transform.Transform, error) {
		return transform.NewTruss(ec.NDM, ec.NDF)
	}
	r.geometries["corotTruss"] = func(ec config.ElementConfig) (transform.Transform, error) {
		return transform.NewCorotTruss(ec.NDM, ec.NDF)
	}
	r.geometries["twoNodeLink"] = func(ec config.ElementConfig) (transform.Transform, error) {
		if len(ec.Directions) == 0 {
			return nil, fmt.Errorf("twoNodeLink needs at least one direction")
		}
		dirs := make([]int, len(ec.Directions))
		for i, name := range ec.Directions {
			d, err := transform.ParseDir(name)
			if err != nil {
				return nil, err
			}
			dirs[i] = d
		}
		return transform.NewTwoNodeLink(ec.NDM, ec.NDF, dirs, linkOptions(ec))
	}
	r.geometries["bearing"] = func(ec config.ElementConfig) (transform.Transform, error) {
		return transform.NewBearing(ec.NDM, linkOptions(ec))
	}
	r.geometries["invertedVBrace"] = func(ec config.ElementConfig) (transform.Transform, error) {
		if ec.NDM != 0 && ec.NDM != 2 {
			return nil, fmt.Errorf("invertedVBrace is 2-D only, got ndm=%d", ec.NDM)
		}
		return transform.NewInvertedVBrace(), nil
	}

	r.specimens["elastic"] = func(sc config.SpecimenConfig) (site.Test, error) {
		if len(sc.K) == 0 {
			return nil, fmt.Errorf("elastic specimen needs k")
		}
		return rig.NewElastic(sc.K...), nil
	}
	r.specimens["bilinear"] = func(sc config.SpecimenConfig) (site.Test, error) {
		return rig.NewBilinear(sc.K, sc.Fy, sc.Hardening)
	}

	r.integrators["central-difference"] = func(*config.Config) (sim.Integrator, error) {
		return integrators.NewCentralDifference(), nil
	}
	r.integrators["newmark"] = func(cfg *config.Config) (sim.Integrator, error) {
		return integrators.NewExplicitNewmark(cfg.Gamma)
	}
	r.integrators["alpha-os"] = func(cfg *config.Config) (sim.Integrator, error) {
		return integrators.NewAlphaOS(cfg.Alpha)
	}

	return r
}

func (r *Registry) GetGeometry(ec config.ElementConfig) (transform.Transform, error) {
	fn, ok := r.geometries[ec.Geometry]
	if !ok {
		return nil, fmt.Errorf("unknown geometry: %s", ec.Geometry)
	}
	return fn(ec)
}

// GetSpecimen builds the in-process specimen, wrapped in an actuator when a
// tracking lag is configured.
func (r *Registry) GetSpecimen(sc config.SpecimenConfig) (site.Test, error) {
	fn, ok := r.specimens[sc.Model]
	if !ok {
		return nil, fmt.Errorf("unknown specimen: %s", sc.Model)
	}
	test, err := fn(sc)
	if err != nil {
		return nil, err
	}
	if sc.ActuatorLag > 0 {
		return &rig.Actuator{Specimen: test, Lag: sc.ActuatorLag}, nil
	}
	return test, nil
}

func (r *Registry) GetIntegrator(cfg *config.Config) (sim.Integrator, error) {
	fn, ok := r.integrators[cfg.Integrator]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", cfg.Integrator)
	}
	return fn(cfg)
}

func sortedKeys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListGeometries() []string  { return sortedKeys(r.geometries) }
func (r *Registry) ListSpecimens() []string   { return sortedKeys(r.specimens) }
func (r *Registry) ListIntegrators() []string { return sortedKeys(r.integrators) }

func (r *Registry) DefaultMetrics(cfg *config.Config) ([]sim.Metric, error) {
	limit := cfg.DriftLimit
	if limit <= 0 {
		limit = defaultDriftLimit
	}
	names := cfg.Metrics
	if len(names) == 0 {
		names = []string{"hysteretic_energy", "control_error", "peak_force", "stability"}
	}
	out := make([]sim.Metric, 0, len(names))
	for _, name := range names {
		m, err := metrics.FromName(name, limit)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, nil
}
