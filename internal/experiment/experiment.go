// Package experiment turns a run configuration into a hybrid simulation:
// host nodes, experimental elements with their sites, an integrator and the
// run metrics.
package experiment

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/hybridsim/internal/channel"
	"github.com/san-kum/hybridsim/internal/config"
	"github.com/san-kum/hybridsim/internal/correction"
	"github.com/san-kum/hybridsim/internal/element"
	"github.com/san-kum/hybridsim/internal/sim"
	"github.com/san-kum/hybridsim/internal/site"
)

// Dialer opens the channel of a remote site.
type Dialer func(sc config.SiteConfig) (channel.Channel, error)

// DefaultDialer connects over TCP or a serial port.
func DefaultDialer(sc config.SiteConfig) (channel.Channel, error) {
	switch sc.Kind {
	case "tcp":
		return channel.DialTCP(sc.Addr, sc.Timeout)
	case "serial":
		return channel.OpenSerial(sc.Addr, sc.Baud, sc.Timeout)
	}
	return nil, fmt.Errorf("unknown site kind: %s", sc.Kind)
}

type Option func(*Experiment)

func WithLogger(log zerolog.Logger) Option { return func(e *Experiment) { e.log = log } }
func WithRegistry(r *Registry) Option      { return func(e *Experiment) { e.reg = r } }
func WithDialer(d Dialer) Option           { return func(e *Experiment) { e.dial = d } }

// WithGroundScale multiplies the configured ground motion.
func WithGroundScale(f float64) Option { return func(e *Experiment) { e.scale = f } }

type Experiment struct {
	cfg   *config.Config
	reg   *Registry
	log   zerolog.Logger
	dial  Dialer
	scale float64

	domain    *sim.Domain
	simulator *sim.Simulator
	sites     []site.Site
	ground    sim.GroundMotion
}

func New(cfg *config.Config, opts ...Option) *Experiment {
	e := &Experiment{cfg: cfg, log: zerolog.Nop(), dial: DefaultDialer, scale: 1}
	for _, opt := range opts {
		opt(e)
	}
	if e.reg == nil {
		e.reg = NewRegistry()
	}
	return e
}

// Setup builds the domain and attaches every element. Sites opened before a
// failure are closed again.
func (e *Experiment) Setup() (err error) {
	if err := e.cfg.Validate(); err != nil {
		return err
	}
	defer func() {
		if err != nil {
			e.Close()
		}
	}()

	e.domain = sim.NewDomain(e.log)
	for _, nc := range e.cfg.Nodes {
		n, err := buildNode(nc)
		if err != nil {
			return err
		}
		if err := e.domain.AddNode(n); err != nil {
			return err
		}
	}

	for _, ec := range e.cfg.Elements {
		el, err := e.buildElement(ec)
		if err != nil {
			return err
		}
		if err := e.domain.AddElement(el); err != nil {
			return err
		}
	}

	if err := e.domain.Setup(); err != nil {
		return err
	}

	integ, err := e.reg.GetIntegrator(e.cfg)
	if err != nil {
		return err
	}
	e.simulator = sim.New(e.domain, integ)
	ms, err := e.reg.DefaultMetrics(e.cfg)
	if err != nil {
		return err
	}
	for _, m := range ms {
		e.simulator.AddMetric(m)
	}

	e.ground, err = e.groundMotion()
	return err
}

func buildNode(nc config.NodeConfig) (*sim.Node, error) {
	if len(nc.Coords) == 0 {
		return nil, fmt.Errorf("node %d: no coordinates", nc.Tag)
	}
	n := sim.NewNode(nc.Tag, nc.Coords, nc.NDF)
	if err := n.Fix(nc.Fix...); err != nil {
		return nil, err
	}
	if len(nc.Mass) > 0 {
		if err := n.SetMass(nc.Mass...); err != nil {
			return nil, err
		}
	}
	if len(nc.InitDisp) > 0 || len(nc.InitVel) > 0 {
		disp, vel := make([]float64, nc.NDF), make([]float64, nc.NDF)
		copy(disp, nc.InitDisp)
		copy(vel, nc.InitVel)
		if err := n.SetInitial(disp, vel); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// square reads a diagonal (n values) or row-major (n*n values) matrix.
func square(name string, vals []float64, n int) (*mat.Dense, error) {
	switch len(vals) {
	case 0:
		return nil, nil
	case n:
		m := mat.NewDense(n, n, nil)
		for i, v := range vals {
			m.Set(i, i, v)
		}
		return m, nil
	case n * n:
		return mat.NewDense(n, n, append([]float64(nil), vals...)), nil
	}
	return nil, fmt.Errorf("%s: %d values for %d basic directions", name, len(vals), n)
}

func (e *Experiment) buildElement(ec config.ElementConfig) (*element.Element, error) {
	geom, err := e.reg.GetGeometry(ec)
	if err != nil {
		return nil, fmt.Errorf("element %d: %w", ec.ID, err)
	}
	nb := geom.NumBasic()

	cfg := element.DefaultConfig()
	if cfg.KInit, err = square("kinit", ec.KInit, nb); err != nil {
		return nil, fmt.Errorf("element %d: %w", ec.ID, err)
	}
	if cfg.MaterialDamping, err = square("material_damping", ec.MaterialDamping, nb); err != nil {
		return nil, fmt.Errorf("element %d: %w", ec.ID, err)
	}
	cfg.IMod = ec.IMod
	cfg.SharedSensors = ec.SharedSensors
	if ec.ZeroForceFallback != nil {
		cfg.ZeroForceFallback = *ec.ZeroForceFallback
	}
	copy(cfg.PDelta.Ratios[:], ec.PDelta)
	cfg.Mass, cfg.Rho, cfg.ConsistentMass = ec.Mass, ec.Rho, ec.ConsistentMass
	if ec.Tolerance > 0 {
		cfg.Tolerance = ec.Tolerance
	}
	if cfg.Estimator, err = correction.EstimatorFromName(ec.Estimator); err != nil {
		return nil, fmt.Errorf("element %d: %w", ec.ID, err)
	}
	log := e.log
	cfg.Logger = &log

	st, err := e.openSite(e.cfg.SiteFor(ec))
	if err != nil {
		return nil, fmt.Errorf("element %d: site: %w", ec.ID, err)
	}
	e.sites = append(e.sites, st)

	el := element.New(ec.ID, ec.Nodes, geom, st, cfg)
	el.SetRayleigh(e.cfg.Rayleigh)
	return el, nil
}

func (e *Experiment) openSite(sc config.SiteConfig) (site.Site, error) {
	switch sc.Kind {
	case "", "local":
		test, err := e.reg.GetSpecimen(sc.Specimen)
		if err != nil {
			return nil, err
		}
		return site.NewLocal(test), nil
	case "tcp", "serial":
		ch, err := e.dial(sc)
		if err != nil {
			return nil, err
		}
		opts := []site.Option{site.WithLogger(e.log)}
		if sc.MaxRate > 0 {
			opts = append(opts, site.WithMaxRate(sc.MaxRate))
		}
		return site.NewRemote(ch, opts...)
	}
	return nil, fmt.Errorf("unknown site kind: %s", sc.Kind)
}

func (e *Experiment) groundMotion() (sim.GroundMotion, error) {
	gm := e.cfg.GroundMotion
	scale := gm.Scale
	if scale == 0 {
		scale = 1
	}
	scale *= e.scale

	var motion sim.GroundMotion
	switch gm.Kind {
	case "", "none":
		return nil, nil
	case "sine":
		motion = sim.Sine{Amplitude: gm.Amplitude, Period: gm.Period, Cycles: gm.Cycles}
	case "record":
		rec, err := sim.LoadRecord(gm.File, gm.Dt)
		if err != nil {
			return nil, err
		}
		motion = rec
	default:
		return nil, fmt.Errorf("unknown ground motion: %s", gm.Kind)
	}
	if scale != 1 {
		motion = sim.Scaled{Motion: motion, Factor: scale}
	}
	return motion, nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	simCfg := sim.Config{
		Dt:            e.cfg.Dt,
		Duration:      e.cfg.Duration,
		Ground:        e.ground,
		GroundDir:     e.cfg.GroundMotion.Direction,
		ValidateState: true,
	}

	return e.simulator.Run(ctx, simCfg)
}

// Close releases every site; remote sites are told to terminate.
func (e *Experiment) Close() error {
	var errs []error
	for _, st := range e.sites {
		if err := st.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	e.sites = nil
	return errors.Join(errs...)
}

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

func (e *Experiment) Domain() *sim.Domain    { return e.domain }
func (e *Experiment) Config() *config.Config { return e.cfg }

// Sweep sets up one experiment per ground-motion scale and runs them
// concurrently. Only in-process sites are allowed, since every run needs its
// own specimen.
func Sweep(ctx context.Context, cfg *config.Config, scales []float64, opts ...Option) ([]*sim.Result, error) {
	if cfg.Site.Kind != "" && cfg.Site.Kind != "local" {
		return nil, fmt.Errorf("sweep needs local sites, got %s", cfg.Site.Kind)
	}
	for _, ec := range cfg.Elements {
		if ec.Site != nil && ec.Site.Kind != "" && ec.Site.Kind != "local" {
			return nil, fmt.Errorf("sweep needs local sites, element %d uses %s", ec.ID, ec.Site.Kind)
		}
	}

	sims := make([]*sim.Simulator, len(scales))
	cfgs := make([]sim.Config, len(scales))
	for i, s := range scales {
		exp := New(cfg, append(opts, WithGroundScale(s))...)
		if err := exp.Setup(); err != nil {
			return nil, fmt.Errorf("scale %g: %w", s, err)
		}
		sims[i] = exp.simulator
		cfgs[i] = sim.Config{
			Dt:            cfg.Dt,
			Duration:      cfg.Duration,
			Ground:        exp.ground,
			GroundDir:     cfg.GroundMotion.Direction,
			ValidateState: true,
		}
	}
	return sim.NewEnsemble(sims...).Run(ctx, cfgs...)
}
