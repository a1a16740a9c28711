// Package element implements the experimental component: it maps nodal
// trial state to the basic coordinates a rig tests, pushes the trial through
// its site and turns the measured response back into nodal force and
// stiffness.
package element

import (
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/hybridsim/internal/correction"
	"github.com/san-kum/hybridsim/internal/dynamo"
	"github.com/san-kum/hybridsim/internal/site"
	"github.com/san-kum/hybridsim/internal/transform"
)

// Node is the host-model view of one attached node.
type Node interface {
	Tag() int
	Coords() []float64
	NumDOF() int
	TrialDisp() dynamo.Vector
	TrialVel() dynamo.Vector
	TrialAccel() dynamo.Vector
	CommittedDisp() dynamo.Vector
}

// Clock supplies the current analysis time.
type Clock interface {
	CurrentTime() float64
}

type State int

const (
	Unattached State = iota
	Attached
	Updated
	Committed
)

func (s State) String() string {
	switch s {
	case Unattached:
		return "unattached"
	case Attached:
		return "attached"
	case Updated:
		return "updated"
	case Committed:
		return "committed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

const DefaultTolerance = 1e-14

type Config struct {
	KInit             *mat.Dense // basic initial stiffness, nb x nb
	IMod              bool
	SharedSensors     bool
	ZeroForceFallback bool
	PDelta            correction.PDelta
	Mass              float64 // total lumped mass
	Rho               float64 // mass per length
	ConsistentMass    bool
	MaterialDamping   *mat.Dense // basic damping tangent, nb x nb
	Estimator         correction.Estimator
	Tolerance         float64
	Logger            *zerolog.Logger
}

func DefaultConfig() Config {
	return Config{ZeroForceFallback: true, Tolerance: DefaultTolerance}
}

type Element struct {
	id       int
	nodeTags []int
	geom     transform.Transform
	site     site.Site
	cfg      Config
	log      zerolog.Logger

	nodes  []Node
	clock  Clock
	state  State
	err    error
	warned bool

	nb, nd int
	kInit  *mat.Dense
	kTrial *mat.Dense
	kPrev  *mat.Dense
	groups []transform.SensorGroup

	// trial state in basic coordinates
	db, vb, ab dynamo.Vector
	tb         float64
	dg, vg, ag dynamo.Vector

	pushed      dynamo.Vector
	pushedValid bool
	pushErr     error
	dbCommitted dynamo.Vector
	tCommitted  float64

	// measured state
	dm, vm, am, qm dynamo.Vector
	tm             float64
	daqValid       bool
	dmCommitted    dynamo.Vector
	qmCommitted    dynamo.Vector

	load     dynamo.Vector
	rayleigh correction.Rayleigh
	kCommit  *mat.Dense
	ktLast   *mat.Dense

	responses []string
}

func New(id int, nodeTags []int, geom transform.Transform, st site.Site, cfg Config) *Element {
	e := &Element{
		id:       id,
		nodeTags: append([]int(nil), nodeTags...),
		geom:     geom,
		site:     st,
		cfg:      cfg,
		log:      zerolog.Nop(),
	}
	if cfg.Logger != nil {
		e.log = cfg.Logger.With().Int("element", id).Str("geometry", geom.Name()).Logger()
	}
	if e.cfg.Tolerance <= 0 {
		e.cfg.Tolerance = DefaultTolerance
	}
	return e
}

func (e *Element) ID() int                       { return e.id }
func (e *Element) NumExternalNodes() int         { return e.geom.NumNodes() }
func (e *Element) ExternalNodes() []int          { return e.nodeTags }
func (e *Element) NumDOF() int                   { return e.geom.NumDOF() }
func (e *Element) NumBasicDOF() int              { return e.geom.NumBasic() }
func (e *Element) State() State                  { return e.state }
func (e *Element) Geometry() transform.Transform { return e.geom }
func (e *Element) Site() site.Site               { return e.site }

// Err returns the configuration error that disabled the element, if any.
func (e *Element) Err() error { return e.err }

func (e *Element) Inert() bool { return e.err != nil }

// configError disables the element and logs the cause once.
func (e *Element) configError(quantity string, err error) error {
	ce := &dynamo.ConfigError{Element: e.id, Quantity: quantity, Wrapped: err}
	if e.err == nil {
		e.err = ce
		e.log.Error().Err(err).Str("quantity", quantity).Msg("element disabled")
	}
	return ce
}

func (e *Element) inertError() error {
	return fmt.Errorf("element %d: %w: %w", e.id, dynamo.ErrInert, e.err)
}

type framed interface {
	Frame() transform.Frame
}

// Attach resolves the nodes, builds the transformation and negotiates sizes
// with the site. A configuration error leaves the element inert.
func (e *Element) Attach(nodes []Node, clock Clock) error {
	if e.err != nil {
		return e.inertError()
	}
	if len(nodes) != e.geom.NumNodes() {
		return e.configError("nodes", fmt.Errorf("%w: got %d nodes, want %d", dynamo.ErrDOFMismatch, len(nodes), e.geom.NumNodes()))
	}
	coords := make([][]float64, len(nodes))
	for i, n := range nodes {
		if n.NumDOF() != e.geom.DOFPerNode() {
			return e.configError("dof per node", fmt.Errorf("%w: node %d has %d, want %d", dynamo.ErrDOFMismatch, n.Tag(), n.NumDOF(), e.geom.DOFPerNode()))
		}
		coords[i] = n.Coords()
	}
	if err := e.geom.Build(coords); err != nil {
		return e.configError("geometry", err)
	}
	if f, ok := e.geom.(framed); ok && f.Frame().Explicit {
		e.log.Warn().Msg("explicit orientation vectors override the node coordinates")
	}

	e.nb, e.nd = e.geom.NumBasic(), e.geom.NumDOF()
	e.kInit = mat.NewDense(e.nb, e.nb, nil)
	if e.cfg.KInit != nil {
		if err := e.SetInitialStiff(e.cfg.KInit); err != nil {
			return err
		}
	}
	if e.cfg.MaterialDamping != nil {
		if r, c := e.cfg.MaterialDamping.Dims(); r != e.nb || c != e.nb {
			return e.configError("material damping", fmt.Errorf("%w: %dx%d, want %dx%d", dynamo.ErrSizeMismatch, r, c, e.nb, e.nb))
		}
	}
	if e.cfg.PDelta.Active() {
		lt, ok := e.geom.(transform.LocalTransform)
		if !ok || e.geom.Corotational() {
			return e.configError("pdelta", fmt.Errorf("%w: P-Delta for %s", dynamo.ErrNotImplemented, e.geom.Name()))
		}
		if err := e.cfg.PDelta.Validate(lt.Layout()); err != nil {
			return e.configError("pdelta", err)
		}
	}
	if e.cfg.SharedSensors {
		ss, ok := e.geom.(transform.SharedSensors)
		if !ok {
			return e.configError("shared sensors", fmt.Errorf("%w: %s has no shared load cells", dynamo.ErrNotImplemented, e.geom.Name()))
		}
		e.groups = ss.SensorGroups()
	}

	e.nodes, e.clock = nodes, clock
	e.db, e.vb, e.ab = dynamo.NewVector(e.nb), dynamo.NewVector(e.nb), dynamo.NewVector(e.nb)
	e.dg, e.vg, e.ag = dynamo.NewVector(e.nd), dynamo.NewVector(e.nd), dynamo.NewVector(e.nd)
	e.dm, e.vm, e.am, e.qm = dynamo.NewVector(e.nb), dynamo.NewVector(e.nb), dynamo.NewVector(e.nb), dynamo.NewVector(e.nb)
	e.dbCommitted = dynamo.NewVector(e.nb)
	e.dmCommitted, e.qmCommitted = dynamo.NewVector(e.nb), dynamo.NewVector(e.nb)
	e.load = dynamo.NewVector(e.nd)
	e.pushedValid = false
	e.pushErr = nil

	if err := e.site.SetSize(dynamo.CtrlSizes(e.nb), dynamo.DaqSizes(e.nb)); err != nil {
		return fmt.Errorf("element %d: site setup: %w", e.id, err)
	}
	e.state = Attached
	e.log.Debug().Int("nb", e.nb).Float64("length", e.geom.Length()).Msg("element attached")
	return nil
}

// SetInitialStiff sets the basic initial stiffness; a wrong size disables
// the element.
func (e *Element) SetInitialStiff(k *mat.Dense) error {
	if e.err != nil {
		return e.inertError()
	}
	nb := e.geom.NumBasic()
	if r, c := k.Dims(); r != nb || c != nb {
		return e.configError("initial stiffness", fmt.Errorf("%w: %dx%d, want %dx%d", dynamo.ErrSizeMismatch, r, c, nb, nb))
	}
	e.kInit = mat.DenseCopyOf(k)
	return nil
}

func (e *Element) SetRayleigh(r correction.Rayleigh) { e.rayleigh = r }
