// Package site is the single point of contact between a component and the
// rig that tests it, either in-process or over a channel.
package site

import (
	"github.com/san-kum/hybridsim/internal/dynamo"
	"github.com/san-kum/hybridsim/internal/protocol"
)

type Site interface {
	SetSize(ctrl, daq dynamo.Sizes) error
	SetTrialResponse(d, v, a, f dynamo.Vector, t float64) error
	CommitState(t float64) error
	Disp() (dynamo.Vector, error)
	Vel() (dynamo.Vector, error)
	Accel() (dynamo.Vector, error)
	Force() (dynamo.Vector, error)
	Time() (dynamo.Vector, error)
	Close() error
}

// Test is an in-process specimen: it takes trial states and reports the
// measured response.
type Test interface {
	SetSize(ctrl, daq dynamo.Sizes) error
	SetTrial(d, v, a, f dynamo.Vector, t float64) error
	Commit() error
	Daq() (protocol.Response, error)
}

// Stats counts site traffic.
type Stats struct {
	Trials  int
	Commits int
	Queries int
	Sends   int
	Recvs   int
}

// Counted is implemented by sites that keep Stats.
type Counted interface {
	Stats() Stats
}

// Local calls an in-process Test directly.
type Local struct {
	test  Test
	ctrl  dynamo.Sizes
	daq   dynamo.Sizes
	cache *protocol.Response
	stats Stats
}

func NewLocal(test Test) *Local {
	return &Local{test: test}
}

func (l *Local) Test() Test { return l.test }

func (l *Local) SetSize(ctrl, daq dynamo.Sizes) error {
	l.ctrl, l.daq = ctrl, daq
	return l.test.SetSize(ctrl, daq)
}

func (l *Local) SetTrialResponse(d, v, a, f dynamo.Vector, t float64) error {
	l.cache = nil
	l.stats.Trials++
	return l.test.SetTrial(d, v, a, f, t)
}

func (l *Local) CommitState(t float64) error {
	l.cache = nil
	l.stats.Commits++
	return l.test.Commit()
}

func (l *Local) query(k dynamo.Kind) (dynamo.Vector, error) {
	l.stats.Queries++
	if l.cache == nil {
		r, err := l.test.Daq()
		if err != nil {
			return nil, err
		}
		l.cache = &r
	}
	return l.cache.Get(k).Clone(), nil
}

func (l *Local) Disp() (dynamo.Vector, error)  { return l.query(dynamo.Disp) }
func (l *Local) Vel() (dynamo.Vector, error)   { return l.query(dynamo.Vel) }
func (l *Local) Accel() (dynamo.Vector, error) { return l.query(dynamo.Accel) }
func (l *Local) Force() (dynamo.Vector, error) { return l.query(dynamo.Force) }
func (l *Local) Time() (dynamo.Vector, error)  { return l.query(dynamo.Time) }

func (l *Local) Close() error { return nil }

func (l *Local) Stats() Stats { return l.stats }
