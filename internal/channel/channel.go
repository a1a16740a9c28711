// Package channel provides the byte transports a remote site talks to the
// rig over: fixed-length blocks of int32 and float64 values.
package channel

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrNotConnected is returned when a block is sent on a closed or unset stream.
	ErrNotConnected = errors.New("channel: not connected")

	dataOrder = binary.LittleEndian
)

// Channel moves fixed-length blocks; the receiver must know the length.
type Channel interface {
	Setup() error
	SendInts(v []int32) error
	RecvInts(v []int32) error
	Send(v []float64) error
	Recv(v []float64) error
	Close() error
}

// Stream implements Channel over any io.ReadWriteCloser.
type Stream struct {
	mu      sync.Mutex
	rwc     io.ReadWriteCloser
	timeout time.Duration
	buf     []byte
	closed  atomic.Bool
}

func NewStream(rwc io.ReadWriteCloser, timeout time.Duration) *Stream {
	return &Stream{rwc: rwc, timeout: timeout}
}

func (s *Stream) Setup() error {
	if s.rwc == nil || s.closed.Load() {
		return ErrNotConnected
	}
	return nil
}

func (s *Stream) ensureBuf(n int) []byte {
	if cap(s.buf) < n {
		s.buf = make([]byte, n)
	}
	return s.buf[:n]
}

type deadliner interface {
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
}

func (s *Stream) deadline(write bool) {
	if s.timeout <= 0 {
		return
	}
	d, ok := s.rwc.(deadliner)
	if !ok {
		return
	}
	t := time.Now().Add(s.timeout)
	if write {
		d.SetWriteDeadline(t)
	} else {
		d.SetReadDeadline(t)
	}
}

func (s *Stream) write(b []byte) error {
	if s.rwc == nil || s.closed.Load() {
		return ErrNotConnected
	}
	s.deadline(true)
	_, err := s.rwc.Write(b)
	if err != nil {
		return fmt.Errorf("channel send: %w", err)
	}
	return nil
}

func (s *Stream) read(b []byte) error {
	if s.rwc == nil || s.closed.Load() {
		return ErrNotConnected
	}
	s.deadline(false)
	if _, err := io.ReadFull(s.rwc, b); err != nil {
		return fmt.Errorf("channel recv: %w", err)
	}
	return nil
}

func (s *Stream) SendInts(v []int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.ensureBuf(4 * len(v))
	for i, x := range v {
		dataOrder.PutUint32(b[4*i:], uint32(x))
	}
	return s.write(b)
}

func (s *Stream) RecvInts(v []int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.ensureBuf(4 * len(v))
	if err := s.read(b); err != nil {
		return err
	}
	for i := range v {
		v[i] = int32(dataOrder.Uint32(b[4*i:]))
	}
	return nil
}

func (s *Stream) Send(v []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.ensureBuf(8 * len(v))
	for i, x := range v {
		dataOrder.PutUint64(b[8*i:], math.Float64bits(x))
	}
	return s.write(b)
}

func (s *Stream) Recv(v []float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.ensureBuf(8 * len(v))
	if err := s.read(b); err != nil {
		return err
	}
	for i := range v {
		v[i] = math.Float64frombits(dataOrder.Uint64(b[8*i:]))
	}
	return nil
}

// Close may be called while another goroutine is blocked in Recv.
func (s *Stream) Close() error {
	if s.rwc == nil || s.closed.Swap(true) {
		return nil
	}
	return s.rwc.Close()
}

// Pipe returns two connected in-memory streams.
func Pipe() (*Stream, *Stream) {
	a, b := net.Pipe()
	return NewStream(a, 0), NewStream(b, 0)
}
