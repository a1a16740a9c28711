package rig

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/san-kum/hybridsim/internal/channel"
	"github.com/san-kum/hybridsim/internal/dynamo"
	"github.com/san-kum/hybridsim/internal/protocol"
	"github.com/san-kum/hybridsim/internal/site"
)

// Status is a snapshot of the controller for the HTTP endpoint.
type Status struct {
	Connected bool           `json:"connected"`
	Sessions  int            `json:"sessions"`
	Ctrl      dynamo.Sizes   `json:"ctrl_sizes"`
	Daq       dynamo.Sizes   `json:"daq_sizes"`
	Payload   int            `json:"payload"`
	Commands  map[string]int `json:"commands"`
	Time      float64        `json:"time"`
	Disp      []float64      `json:"disp"`
	Force     []float64      `json:"force"`
	LastError string         `json:"last_error,omitempty"`
}

// Server is a rig controller serving one client at a time.
type Server struct {
	test    site.Test
	log     zerolog.Logger
	timeout time.Duration

	mu     sync.Mutex
	status Status
}

func NewServer(test site.Test, log zerolog.Logger) *Server {
	return &Server{
		test:   test,
		log:    log,
		status: Status{Commands: map[string]int{}},
	}
}

// SetTimeout bounds every read and write on accepted connections.
func (s *Server) SetTimeout(d time.Duration) { s.timeout = d }

func (s *Server) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.status
	out.Commands = make(map[string]int, len(s.status.Commands))
	for k, v := range s.status.Commands {
		out.Commands[k] = v
	}
	out.Disp = append([]float64(nil), s.status.Disp...)
	out.Force = append([]float64(nil), s.status.Force...)
	return out
}

func (s *Server) update(fn func(st *Status)) {
	s.mu.Lock()
	fn(&s.status)
	s.mu.Unlock()
}

// Serve accepts connections until ctx is done or the listener fails.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		s.log.Info().Str("remote", conn.RemoteAddr().String()).Msg("client connected")
		ch := channel.NewStream(conn, s.timeout)
		if err := s.ServeConn(ch); err != nil {
			s.log.Error().Err(err).Msg("session ended")
		}
		ch.Close()
	}
}

// ServeConn runs one session: handshake, then commands until terminate.
func (s *Server) ServeConn(ch channel.Channel) error {
	s.update(func(st *Status) { st.Connected = true; st.Sessions++ })
	defer s.update(func(st *Status) { st.Connected = false })

	ints := make([]int32, protocol.HandshakeLen)
	if err := ch.RecvInts(ints); err != nil {
		return s.fail(fmt.Errorf("handshake: %w", err))
	}
	hs, err := protocol.ParseHandshake(ints)
	if err != nil {
		return s.fail(err)
	}
	if err := s.test.SetSize(hs.Ctrl, hs.Daq); err != nil {
		return s.fail(err)
	}
	s.update(func(st *Status) { st.Ctrl, st.Daq, st.Payload = hs.Ctrl, hs.Daq, hs.Payload })
	s.log.Debug().Ints32("handshake", ints).Msg("sizes negotiated")

	in := make([]float64, hs.Payload)
	out := make([]float64, hs.Payload)
	for {
		if err := ch.Recv(in); err != nil {
			return s.fail(fmt.Errorf("recv: %w", err))
		}
		req, err := protocol.DecodeRequest(in, hs)
		if err != nil {
			return s.fail(err)
		}
		s.update(func(st *Status) { st.Commands[req.Tag.String()]++ })

		switch {
		case req.Tag == protocol.Terminate:
			s.log.Info().Msg("client terminated session")
			return nil
		case req.Tag == protocol.SetTrialResponse:
			t := 0.0
			if len(req.Time) > 0 {
				t = req.Time[0]
			}
			if err := s.test.SetTrial(req.Disp, req.Vel, req.Accel, req.Force, t); err != nil {
				return s.fail(err)
			}
		case req.Tag == protocol.CommitState:
			if err := s.test.Commit(); err != nil {
				return s.fail(err)
			}
		case req.Tag.IsQuery():
			resp, err := s.test.Daq()
			if err != nil {
				return s.fail(err)
			}
			if err := resp.Encode(out, hs); err != nil {
				return s.fail(err)
			}
			if err := ch.Send(out); err != nil {
				return s.fail(fmt.Errorf("send: %w", err))
			}
			s.update(func(st *Status) {
				st.Disp = append(st.Disp[:0], resp.Disp...)
				st.Force = append(st.Force[:0], resp.Force...)
				if len(resp.Time) > 0 {
					st.Time = resp.Time[0]
				}
			})
		default:
			return s.fail(fmt.Errorf("%w: %s", dynamo.ErrUnknownTag, req.Tag))
		}
	}
}

func (s *Server) fail(err error) error {
	if errors.Is(err, net.ErrClosed) {
		return err
	}
	s.update(func(st *Status) { st.LastError = err.Error() })
	return err
}
