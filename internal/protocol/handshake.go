package protocol

import (
	"fmt"

	"github.com/san-kum/hybridsim/internal/dynamo"
)

// HandshakeLen is the number of int32 values in the setup block.
const HandshakeLen = 11

// Handshake is sent once when a remote site connects:
// ctrl sizes, daq sizes, payload block size.
type Handshake struct {
	Ctrl    dynamo.Sizes
	Daq     dynamo.Sizes
	Payload int
}

func NewHandshake(ctrl, daq dynamo.Sizes) Handshake {
	return Handshake{Ctrl: ctrl, Daq: daq, Payload: PayloadSize(ctrl, daq)}
}

// PayloadSize is the length of every request and response block: large
// enough for the tag plus the trial state, and for the measured state.
func PayloadSize(ctrl, daq dynamo.Sizes) int {
	n := 1 + ctrl.Total()
	if d := daq.Total(); d > n {
		n = d
	}
	if n < 1 {
		n = 1
	}
	return n
}

func (h Handshake) Ints() []int32 {
	out := make([]int32, 0, HandshakeLen)
	out = append(out, h.Ctrl.Ints()...)
	out = append(out, h.Daq.Ints()...)
	return append(out, int32(h.Payload))
}

func ParseHandshake(v []int32) (Handshake, error) {
	var h Handshake
	if len(v) != HandshakeLen {
		return h, fmt.Errorf("%w: handshake has %d values, want %d", dynamo.ErrSizeMismatch, len(v), HandshakeLen)
	}
	for i := 0; i < 5; i++ {
		if v[i] < 0 || v[5+i] < 0 {
			return h, fmt.Errorf("%w: negative channel count in handshake", dynamo.ErrSizeMismatch)
		}
		h.Ctrl[i] = int(v[i])
		h.Daq[i] = int(v[5+i])
	}
	h.Payload = int(v[10])
	if want := PayloadSize(h.Ctrl, h.Daq); h.Payload < want {
		return h, fmt.Errorf("%w: payload %d smaller than %d", dynamo.ErrSizeMismatch, h.Payload, want)
	}
	return h, nil
}
