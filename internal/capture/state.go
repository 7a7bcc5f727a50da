// Package capture holds the still-capture handshake: the AF lock and AE
// precapture sequence driven by per-frame metadata.
package capture

import (
	"github.com/bilbercode/stillcam/internal/hal"
)

type State int32

const (
	StateIdle State = iota
	StateWaitingLock
	StateWaitingPrecapture
	StateWaitingNonPrecapture
	StatePictureTaken
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateWaitingLock:
		return "waiting_lock"
	case StateWaitingPrecapture:
		return "waiting_precapture"
	case StateWaitingNonPrecapture:
		return "waiting_non_precapture"
	case StatePictureTaken:
		return "picture_taken"
	default:
		return "unknown"
	}
}

// Action is the request the caller must submit after a transition.
type Action int

const (
	ActionNone Action = iota
	ActionCaptureStill
	ActionRunPrecapture
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionCaptureStill:
		return "capture_still"
	case ActionRunPrecapture:
		return "run_precapture"
	default:
		return "unknown"
	}
}

// Advance evaluates one metadata frame, partial or complete, against the
// current state. Missing AE metadata never stalls the sequence: it falls
// through to the still capture.
func Advance(state State, result hal.Result) (State, Action) {
	switch state {
	case StateWaitingLock:
		af := result.AFState
		switch {
		case af == hal.AFStateAbsent:
			return StatePictureTaken, ActionCaptureStill
		case af.Locked():
			ae := result.AEState
			if ae == hal.AEStateAbsent || ae == hal.AEStateConverged {
				return StatePictureTaken, ActionCaptureStill
			}
			return StateWaitingPrecapture, ActionRunPrecapture
		}
	case StateWaitingPrecapture:
		switch result.AEState {
		case hal.AEStateAbsent, hal.AEStatePrecapture, hal.AEStateFlashRequired:
			return StateWaitingNonPrecapture, ActionNone
		}
	case StateWaitingNonPrecapture:
		if result.AEState != hal.AEStatePrecapture {
			return StatePictureTaken, ActionCaptureStill
		}
	}
	return state, ActionNone
}
