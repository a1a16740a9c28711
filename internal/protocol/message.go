package protocol

import (
	"fmt"
	"math"

	"github.com/san-kum/hybridsim/internal/dynamo"
)

// Request is one command to the rig. Only the set-trial command carries
// state; every other command travels as a tag-only block.
type Request struct {
	Tag   Tag
	Disp  dynamo.Vector
	Vel   dynamo.Vector
	Accel dynamo.Vector
	Force dynamo.Vector
	Time  dynamo.Vector
}

func (r *Request) fields() []dynamo.Vector {
	return []dynamo.Vector{r.Disp, r.Vel, r.Accel, r.Force, r.Time}
}

// Encode writes the request into buf, which must hold h.Payload values.
func (r *Request) Encode(buf []float64, h Handshake) error {
	if len(buf) < h.Payload {
		return fmt.Errorf("%w: request buffer %d < payload %d", dynamo.ErrSizeMismatch, len(buf), h.Payload)
	}
	for i := range buf {
		buf[i] = 0
	}
	buf[0] = float64(r.Tag)
	if r.Tag != SetTrialResponse {
		return nil
	}
	off := 1
	for i, v := range r.fields() {
		n := h.Ctrl[i]
		if n == 0 {
			continue
		}
		if len(v) != n {
			return fmt.Errorf("%w: %s has %d values, want %d", dynamo.ErrSizeMismatch, dynamo.Kinds[i], len(v), n)
		}
		copy(buf[off:off+n], v)
		off += n
	}
	return nil
}

// DecodeRequest is the rig-side inverse of Encode.
func DecodeRequest(buf []float64, h Handshake) (Request, error) {
	var r Request
	if len(buf) < h.Payload || len(buf) == 0 {
		return r, fmt.Errorf("%w: request block %d < payload %d", dynamo.ErrSizeMismatch, len(buf), h.Payload)
	}
	tag := Tag(math.Round(buf[0]))
	if !tag.Valid() {
		return r, fmt.Errorf("%w: %v", dynamo.ErrUnknownTag, buf[0])
	}
	r.Tag = tag
	if tag != SetTrialResponse {
		return r, nil
	}
	off := 1
	dst := []*dynamo.Vector{&r.Disp, &r.Vel, &r.Accel, &r.Force, &r.Time}
	for i, p := range dst {
		n := h.Ctrl[i]
		if n == 0 {
			continue
		}
		*p = dynamo.Vector(buf[off : off+n]).Clone()
		off += n
	}
	return r, nil
}

// Response is the measured state returned for a query.
type Response struct {
	Disp  dynamo.Vector
	Vel   dynamo.Vector
	Accel dynamo.Vector
	Force dynamo.Vector
	Time  dynamo.Vector
}

// Get returns the block of one quantity.
func (r *Response) Get(k dynamo.Kind) dynamo.Vector {
	switch k {
	case dynamo.Disp:
		return r.Disp
	case dynamo.Vel:
		return r.Vel
	case dynamo.Accel:
		return r.Accel
	case dynamo.Force:
		return r.Force
	case dynamo.Time:
		return r.Time
	}
	return nil
}

func (r *Response) Encode(buf []float64, h Handshake) error {
	if len(buf) < h.Payload {
		return fmt.Errorf("%w: response buffer %d < payload %d", dynamo.ErrSizeMismatch, len(buf), h.Payload)
	}
	for i := range buf {
		buf[i] = 0
	}
	off := 0
	for _, k := range dynamo.Kinds {
		n := h.Daq[k]
		v := r.Get(k)
		if len(v) != n {
			return fmt.Errorf("%w: measured %s has %d values, want %d", dynamo.ErrSizeMismatch, k, len(v), n)
		}
		copy(buf[off:off+n], v)
		off += n
	}
	return nil
}

func DecodeResponse(buf []float64, h Handshake) (Response, error) {
	var r Response
	if len(buf) < h.Daq.Total() {
		return r, fmt.Errorf("%w: response block %d < %d", dynamo.ErrSizeMismatch, len(buf), h.Daq.Total())
	}
	off := 0
	dst := []*dynamo.Vector{&r.Disp, &r.Vel, &r.Accel, &r.Force, &r.Time}
	for i, p := range dst {
		n := h.Daq[i]
		*p = dynamo.Vector(buf[off : off+n]).Clone()
		off += n
	}
	return r, nil
}
