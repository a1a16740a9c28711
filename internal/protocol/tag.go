// Package protocol defines the rig wire protocol: command tags, the setup
// handshake and the fixed-layout request and response blocks.
package protocol

import "fmt"

// Tag is the command code carried in element 0 of every request block.
type Tag int

const (
	SetTrialResponse Tag = 3
	CommitState      Tag = 5
	GetDisp          Tag = 6
	GetVel           Tag = 7
	GetAccel         Tag = 8
	GetForce         Tag = 9
	GetTime          Tag = 10
	Terminate        Tag = 99
)

var TagNames = map[Tag]string{
	SetTrialResponse: "SET_TRIAL_RESPONSE",
	CommitState:      "COMMIT_STATE",
	GetDisp:          "GET_DISP",
	GetVel:           "GET_VEL",
	GetAccel:         "GET_ACCEL",
	GetForce:         "GET_FORCE",
	GetTime:          "GET_TIME",
	Terminate:        "TERMINATE",
}

func (t Tag) String() string {
	if n, ok := TagNames[t]; ok {
		return n
	}
	return fmt.Sprintf("TAG(%d)", int(t))
}

func (t Tag) Valid() bool {
	_, ok := TagNames[t]
	return ok
}

// IsQuery reports whether the rig answers the command with a response block.
func (t Tag) IsQuery() bool {
	switch t {
	case GetDisp, GetVel, GetAccel, GetForce, GetTime:
		return true
	}
	return false
}
