package site

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/time/rate"

	"github.com/san-kum/hybridsim/internal/channel"
	"github.com/san-kum/hybridsim/internal/dynamo"
	"github.com/san-kum/hybridsim/internal/protocol"
)

// Remote talks to a rig controller over a Channel. Each command is one send;
// the first query after a trial or commit adds one receive and the measured
// block is reused until the next trial or commit.
type Remote struct {
	ch      channel.Channel
	hs      protocol.Handshake
	sized   bool
	sendBuf []float64
	recvBuf []float64
	cache   *protocol.Response
	limiter *rate.Limiter
	log     zerolog.Logger
	stats   Stats

	commands metric.Int64Counter
	failures metric.Int64Counter
}

type Option func(*Remote)

// WithMaxRate paces commands to at most perSecond; zero disables pacing.
func WithMaxRate(perSecond float64) Option {
	return func(r *Remote) {
		if perSecond > 0 {
			r.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
		}
	}
}

func WithLogger(log zerolog.Logger) Option {
	return func(r *Remote) { r.log = log }
}

func NewRemote(ch channel.Channel, opts ...Option) (*Remote, error) {
	r := &Remote{ch: ch, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}

	m := meter()
	var err error
	r.commands, err = m.Int64Counter(
		"site.commands",
		metric.WithDescription("Commands sent to the rig"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating command counter: %w", err)
	}
	r.failures, err = m.Int64Counter(
		"site.failures",
		metric.WithDescription("Failed rig round trips"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failure counter: %w", err)
	}
	return r, nil
}

func (r *Remote) Handshake() protocol.Handshake { return r.hs }

// SetSize opens the channel and sends the setup block.
func (r *Remote) SetSize(ctrl, daq dynamo.Sizes) error {
	hs := protocol.NewHandshake(ctrl, daq)
	if r.sized {
		if hs != r.hs {
			return fmt.Errorf("%w: site already sized as %v/%v", dynamo.ErrSizeMismatch, r.hs.Ctrl, r.hs.Daq)
		}
		return nil
	}
	if err := r.ch.Setup(); err != nil {
		return fmt.Errorf("site setup: %w", err)
	}
	if err := r.ch.SendInts(hs.Ints()); err != nil {
		return fmt.Errorf("site handshake: %w", err)
	}
	r.hs = hs
	r.sendBuf = make([]float64, hs.Payload)
	r.recvBuf = make([]float64, hs.Payload)
	r.sized = true
	r.stats.Sends++
	r.log.Debug().Ints32("handshake", hs.Ints()).Msg("rig handshake sent")
	return nil
}

func (r *Remote) pace() {
	if r.limiter == nil {
		return
	}
	if d := r.limiter.Reserve().Delay(); d > 0 {
		time.Sleep(d)
	}
}

func (r *Remote) send(req *protocol.Request) error {
	if !r.sized {
		return fmt.Errorf("%w: site has no sizes", dynamo.ErrNotAttached)
	}
	r.pace()
	attrs := metric.WithAttributes(attribute.String("tag", req.Tag.String()))
	r.commands.Add(context.Background(), 1, attrs)
	if err := req.Encode(r.sendBuf, r.hs); err != nil {
		return err
	}
	if err := r.ch.Send(r.sendBuf); err != nil {
		r.failures.Add(context.Background(), 1, attrs)
		return fmt.Errorf("%s: %w", req.Tag, err)
	}
	r.stats.Sends++
	return nil
}

func (r *Remote) SetTrialResponse(d, v, a, f dynamo.Vector, t float64) error {
	r.cache = nil
	req := protocol.Request{Tag: protocol.SetTrialResponse, Disp: d, Vel: v, Accel: a, Time: dynamo.Vector{t}}
	if r.hs.Ctrl[dynamo.Force] > 0 {
		req.Force = f
	}
	if r.hs.Ctrl[dynamo.Time] == 0 {
		req.Time = nil
	}
	r.stats.Trials++
	return r.send(&req)
}

func (r *Remote) CommitState(t float64) error {
	r.cache = nil
	r.stats.Commits++
	return r.send(&protocol.Request{Tag: protocol.CommitState})
}

func (r *Remote) query(tag protocol.Tag, k dynamo.Kind) (dynamo.Vector, error) {
	r.stats.Queries++
	if r.cache == nil {
		if err := r.send(&protocol.Request{Tag: tag}); err != nil {
			return nil, err
		}
		if err := r.ch.Recv(r.recvBuf); err != nil {
			r.failures.Add(context.Background(), 1, metric.WithAttributes(attribute.String("tag", tag.String())))
			return nil, fmt.Errorf("%s: %w", tag, err)
		}
		r.stats.Recvs++
		resp, err := protocol.DecodeResponse(r.recvBuf, r.hs)
		if err != nil {
			return nil, err
		}
		r.cache = &resp
	}
	return r.cache.Get(k).Clone(), nil
}

func (r *Remote) Disp() (dynamo.Vector, error)  { return r.query(protocol.GetDisp, dynamo.Disp) }
func (r *Remote) Vel() (dynamo.Vector, error)   { return r.query(protocol.GetVel, dynamo.Vel) }
func (r *Remote) Accel() (dynamo.Vector, error) { return r.query(protocol.GetAccel, dynamo.Accel) }
func (r *Remote) Force() (dynamo.Vector, error) { return r.query(protocol.GetForce, dynamo.Force) }
func (r *Remote) Time() (dynamo.Vector, error)  { return r.query(protocol.GetTime, dynamo.Time) }

// Close tells the controller to terminate and releases the channel.
func (r *Remote) Close() error {
	var sendErr error
	if r.sized {
		sendErr = r.send(&protocol.Request{Tag: protocol.Terminate})
		r.sized = false
	}
	if err := r.ch.Close(); err != nil {
		return err
	}
	return sendErr
}

func (r *Remote) Stats() Stats { return r.stats }
