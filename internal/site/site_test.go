package site

import (
	"errors"
	"testing"

	. "github.com/onsi/gomega"

	"github.com/san-kum/hybridsim/internal/dynamo"
	"github.com/san-kum/hybridsim/internal/protocol"
)

// echoTest reports force = k * trial displacement.
type echoTest struct {
	k       float64
	d, v, a dynamo.Vector
	t       float64
	reads   int
	commits int
}

func (e *echoTest) SetSize(ctrl, daq dynamo.Sizes) error { return nil }

func (e *echoTest) SetTrial(d, v, a, f dynamo.Vector, t float64) error {
	e.d, e.v, e.a, e.t = d.Clone(), v.Clone(), a.Clone(), t
	return nil
}

func (e *echoTest) Commit() error { e.commits++; return nil }

func (e *echoTest) Daq() (protocol.Response, error) {
	e.reads++
	return protocol.Response{
		Disp:  e.d.Clone(),
		Vel:   e.v.Clone(),
		Accel: e.a.Clone(),
		Force: e.d.Scale(e.k),
		Time:  dynamo.Vector{e.t},
	}, nil
}

// fakeChannel records traffic and replays queued receive blocks.
type fakeChannel struct {
	setups  int
	ints    [][]int32
	sends   [][]float64
	recvs   []int
	replies [][]float64
	closed  bool
	failAt  int
}

func (f *fakeChannel) Setup() error { f.setups++; return nil }

func (f *fakeChannel) SendInts(v []int32) error {
	f.ints = append(f.ints, append([]int32(nil), v...))
	return nil
}

func (f *fakeChannel) RecvInts(v []int32) error { return errors.New("unexpected int receive") }

func (f *fakeChannel) Send(v []float64) error {
	if f.failAt > 0 && len(f.sends)+1 == f.failAt {
		return errors.New("link down")
	}
	f.sends = append(f.sends, append([]float64(nil), v...))
	return nil
}

func (f *fakeChannel) Recv(v []float64) error {
	f.recvs = append(f.recvs, len(v))
	if len(f.replies) == 0 {
		return errors.New("no reply queued")
	}
	copy(v, f.replies[0])
	f.replies = f.replies[1:]
	return nil
}

func (f *fakeChannel) Close() error { f.closed = true; return nil }

func TestLocalCachesMeasuredState(t *testing.T) {
	g := NewWithT(t)
	test := &echoTest{k: 100}
	s := NewLocal(test)
	g.Expect(s.SetSize(dynamo.CtrlSizes(1), dynamo.DaqSizes(1))).To(Succeed())
	g.Expect(s.SetTrialResponse(dynamo.Vector{0.01}, dynamo.Vector{0}, dynamo.Vector{0}, nil, 0.5)).To(Succeed())

	f, err := s.Force()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(f[0]).To(BeNumerically("~", 1.0, 1e-12))
	d, _ := s.Disp()
	g.Expect(d).To(Equal(dynamo.Vector{0.01}))
	tm, _ := s.Time()
	g.Expect(tm).To(Equal(dynamo.Vector{0.5}))
	g.Expect(test.reads).To(Equal(1))

	g.Expect(s.CommitState(0.5)).To(Succeed())
	_, _ = s.Force()
	g.Expect(test.reads).To(Equal(2))
	g.Expect(test.commits).To(Equal(1))
	g.Expect(s.Stats()).To(Equal(Stats{Trials: 1, Commits: 1, Queries: 4}))
}

func TestRemoteHandshake(t *testing.T) {
	g := NewWithT(t)
	ch := &fakeChannel{}
	r, err := NewRemote(ch)
	g.Expect(err).NotTo(HaveOccurred())

	g.Expect(r.SetSize(dynamo.Sizes{1, 1, 1, 0, 1}, dynamo.Sizes{1, 1, 1, 1, 1})).To(Succeed())
	g.Expect(ch.setups).To(Equal(1))
	g.Expect(ch.ints).To(HaveLen(1))
	g.Expect(ch.ints[0]).To(HaveLen(11))
	g.Expect(ch.ints[0]).To(Equal([]int32{1, 1, 1, 0, 1, 1, 1, 1, 1, 1, 5}))

	// same sizes again is a no-op, different sizes are rejected
	g.Expect(r.SetSize(dynamo.Sizes{1, 1, 1, 0, 1}, dynamo.Sizes{1, 1, 1, 1, 1})).To(Succeed())
	g.Expect(ch.ints).To(HaveLen(1))
	err = r.SetSize(dynamo.CtrlSizes(2), dynamo.DaqSizes(2))
	g.Expect(errors.Is(err, dynamo.ErrSizeMismatch)).To(BeTrue())
}

func TestRemoteGetForceIsOneRoundTrip(t *testing.T) {
	g := NewWithT(t)
	ch := &fakeChannel{replies: [][]float64{{0.01, 0.1, 1, 1.0, 0.5}}}
	r, _ := NewRemote(ch)
	g.Expect(r.SetSize(dynamo.CtrlSizes(1), dynamo.DaqSizes(1))).To(Succeed())

	f, err := r.Force()
	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(f).To(Equal(dynamo.Vector{1.0}))
	g.Expect(ch.sends).To(HaveLen(1))
	g.Expect(ch.sends[0]).To(Equal([]float64{float64(protocol.GetForce), 0, 0, 0, 0}))
	g.Expect(ch.recvs).To(Equal([]int{5}))

	// remaining queries are served from the same block
	d, _ := r.Disp()
	g.Expect(d).To(Equal(dynamo.Vector{0.01}))
	g.Expect(ch.sends).To(HaveLen(1))
	g.Expect(ch.recvs).To(HaveLen(1))
}

func TestRemoteTrialAndCommitAreSendOnly(t *testing.T) {
	g := NewWithT(t)
	ch := &fakeChannel{}
	r, _ := NewRemote(ch)
	g.Expect(r.SetSize(dynamo.CtrlSizes(1), dynamo.DaqSizes(1))).To(Succeed())

	g.Expect(r.SetTrialResponse(dynamo.Vector{0.02}, dynamo.Vector{0.3}, dynamo.Vector{4}, nil, 1.5)).To(Succeed())
	g.Expect(r.CommitState(1.5)).To(Succeed())
	g.Expect(ch.sends).To(Equal([][]float64{
		{float64(protocol.SetTrialResponse), 0.02, 0.3, 4, 1.5},
		{float64(protocol.CommitState), 0, 0, 0, 0},
	}))
	g.Expect(ch.recvs).To(BeEmpty())
	g.Expect(r.Stats().Trials).To(Equal(1))
}

func TestRemoteCloseSendsTerminate(t *testing.T) {
	g := NewWithT(t)
	ch := &fakeChannel{}
	r, _ := NewRemote(ch)
	g.Expect(r.SetSize(dynamo.CtrlSizes(1), dynamo.DaqSizes(1))).To(Succeed())
	g.Expect(r.Close()).To(Succeed())
	g.Expect(ch.sends).To(HaveLen(1))
	g.Expect(ch.sends[0][0]).To(Equal(float64(protocol.Terminate)))
	g.Expect(ch.closed).To(BeTrue())
}

func TestRemoteTransportFailure(t *testing.T) {
	g := NewWithT(t)
	ch := &fakeChannel{failAt: 1}
	r, _ := NewRemote(ch)
	g.Expect(r.SetSize(dynamo.CtrlSizes(1), dynamo.DaqSizes(1))).To(Succeed())
	err := r.SetTrialResponse(dynamo.Vector{1}, dynamo.Vector{0}, dynamo.Vector{0}, nil, 0)
	g.Expect(err).To(MatchError(ContainSubstring("link down")))

	_, err = r.Force()
	g.Expect(err).To(HaveOccurred())
}

func TestRemoteRequiresSizes(t *testing.T) {
	r, _ := NewRemote(&fakeChannel{})
	if err := r.CommitState(0); !errors.Is(err, dynamo.ErrNotAttached) {
		t.Errorf("expected ErrNotAttached, got %v", err)
	}
}
