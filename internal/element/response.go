package element

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/hybridsim/internal/dynamo"
	"github.com/san-kum/hybridsim/internal/transform"
)

func (e *Element) BasicDisp() dynamo.Vector  { return e.db.Clone() }
func (e *Element) BasicVel() dynamo.Vector   { return e.vb.Clone() }
func (e *Element) BasicAccel() dynamo.Vector { return e.ab.Clone() }
func (e *Element) BasicTime() float64        { return e.tb }

// BasicForce returns the corrected measured basic force.
func (e *Element) BasicForce() (dynamo.Vector, error) {
	if e.err != nil {
		return dynamo.NewVector(e.geom.NumBasic()), nil
	}
	if err := e.ready(); err != nil {
		return nil, err
	}
	return e.basicForce()
}

func (e *Element) daq(v *dynamo.Vector) (dynamo.Vector, error) {
	if e.err != nil {
		return dynamo.NewVector(e.geom.NumBasic()), nil
	}
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := e.fetchDaq(); err != nil {
		return nil, err
	}
	return v.Clone(), nil
}

func (e *Element) DaqDisp() (dynamo.Vector, error)  { return e.daq(&e.dm) }
func (e *Element) DaqVel() (dynamo.Vector, error)   { return e.daq(&e.vm) }
func (e *Element) DaqAccel() (dynamo.Vector, error) { return e.daq(&e.am) }
func (e *Element) DaqForce() (dynamo.Vector, error) { return e.daq(&e.qm) }

func (e *Element) DaqTime() (float64, error) {
	if _, err := e.daq(&e.dm); err != nil {
		return 0, err
	}
	return e.tm, nil
}

// Response names accepted by SetResponse.
const (
	RespGlobalForce  = "globalForce"
	RespLocalForce   = "localForce"
	RespBasicForce   = "basicForce"
	RespCtrlDisp     = "ctrlDisp"
	RespCtrlVel      = "ctrlVel"
	RespCtrlAccel    = "ctrlAccel"
	RespDaqDisp      = "daqDisp"
	RespDaqVel       = "daqVel"
	RespDaqAccel     = "daqAccel"
	RespDaqForce     = "daqForce"
	RespDefoAndForce = "defoANDforce"
	RespTangStif     = "tangStif"

	estimatorPrefix = "estimator."
)

var responseAliases = map[string]string{
	"force":  RespGlobalForce,
	"forces": RespGlobalForce,
}

var responseNames = map[string]bool{
	RespGlobalForce: true, RespLocalForce: true, RespBasicForce: true,
	RespCtrlDisp: true, RespCtrlVel: true, RespCtrlAccel: true,
	RespDaqDisp: true, RespDaqVel: true, RespDaqAccel: true, RespDaqForce: true,
	RespDefoAndForce: true, RespTangStif: true,
}

// ResponseNames lists the responses this element can record.
func (e *Element) ResponseNames() []string {
	out := make([]string, 0, len(responseNames))
	for n := range responseNames {
		if n == RespLocalForce {
			if _, ok := e.geom.(transform.LocalTransform); !ok {
				continue
			}
		}
		out = append(out, n)
	}
	if e.cfg.Estimator != nil {
		for _, n := range e.cfg.Estimator.Responses() {
			out = append(out, estimatorPrefix+n)
		}
	}
	sort.Strings(out)
	return out
}

// SetResponse registers a named response and returns its handle.
func (e *Element) SetResponse(name string) (int, error) {
	if alias, ok := responseAliases[name]; ok {
		name = alias
	}
	switch {
	case strings.HasPrefix(name, estimatorPrefix):
		if e.cfg.Estimator == nil {
			return -1, fmt.Errorf("element %d: response %s: no estimator", e.id, name)
		}
		sub := strings.TrimPrefix(name, estimatorPrefix)
		if _, ok := e.cfg.Estimator.Response(sub); !ok {
			return -1, fmt.Errorf("element %d: unknown estimator response: %s", e.id, sub)
		}
	case name == RespLocalForce:
		if _, ok := e.geom.(transform.LocalTransform); !ok {
			return -1, fmt.Errorf("element %d: %w: local force of %s", e.id, dynamo.ErrNotImplemented, e.geom.Name())
		}
	case !responseNames[name]:
		return -1, fmt.Errorf("element %d: unknown response: %s", e.id, name)
	}
	for i, n := range e.responses {
		if n == name {
			return i, nil
		}
	}
	e.responses = append(e.responses, name)
	return len(e.responses) - 1, nil
}

func flatten(m *mat.Dense) dynamo.Vector {
	r, c := m.Dims()
	out := dynamo.NewVector(r * c)
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			out[i*c+j] = m.At(i, j)
		}
	}
	return out
}

// GetResponse evaluates a response registered with SetResponse.
func (e *Element) GetResponse(id int) (dynamo.Vector, error) {
	if id < 0 || id >= len(e.responses) {
		return nil, fmt.Errorf("element %d: unknown response handle %d", e.id, id)
	}
	name := e.responses[id]
	if strings.HasPrefix(name, estimatorPrefix) {
		v, _ := e.cfg.Estimator.Response(strings.TrimPrefix(name, estimatorPrefix))
		return v, nil
	}
	switch name {
	case RespGlobalForce:
		return e.ResistingForce()
	case RespLocalForce:
		if e.err != nil {
			return dynamo.NewVector(e.geom.NumDOF()), nil
		}
		q, err := e.BasicForce()
		if err != nil {
			return nil, err
		}
		return e.localForce(e.geom.(transform.LocalTransform), q), nil
	case RespBasicForce:
		return e.BasicForce()
	case RespCtrlDisp:
		return e.BasicDisp(), nil
	case RespCtrlVel:
		return e.BasicVel(), nil
	case RespCtrlAccel:
		return e.BasicAccel(), nil
	case RespDaqDisp:
		return e.DaqDisp()
	case RespDaqVel:
		return e.DaqVel()
	case RespDaqAccel:
		return e.DaqAccel()
	case RespDaqForce:
		return e.DaqForce()
	case RespDefoAndForce:
		q, err := e.BasicForce()
		if err != nil {
			return nil, err
		}
		return append(e.BasicDisp(), q...), nil
	case RespTangStif:
		if e.err != nil {
			return dynamo.NewVector(e.geom.NumBasic() * e.geom.NumBasic()), nil
		}
		if err := e.ready(); err != nil {
			return nil, err
		}
		kb, err := e.basicTangent()
		if err != nil {
			return nil, err
		}
		return flatten(kb), nil
	}
	return nil, fmt.Errorf("element %d: unknown response: %s", e.id, name)
}
