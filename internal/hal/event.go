package hal

// AFState zero value means the frame did not report an AF state.
type AFState int

const (
	AFStateAbsent AFState = iota
	AFStateInactive
	AFStatePassiveScan
	AFStatePassiveFocused
	AFStateActiveScan
	AFStateFocusedLocked
	AFStateNotFocusedLocked
	AFStatePassiveUnfocused
)

func (s AFState) String() string {
	switch s {
	case AFStateAbsent:
		return "absent"
	case AFStateInactive:
		return "inactive"
	case AFStatePassiveScan:
		return "passive_scan"
	case AFStatePassiveFocused:
		return "passive_focused"
	case AFStateActiveScan:
		return "active_scan"
	case AFStateFocusedLocked:
		return "focused_locked"
	case AFStateNotFocusedLocked:
		return "not_focused_locked"
	case AFStatePassiveUnfocused:
		return "passive_unfocused"
	default:
		return "unknown"
	}
}

// Locked reports whether AF finished a triggered scan, successfully or not.
func (s AFState) Locked() bool {
	return s == AFStateFocusedLocked || s == AFStateNotFocusedLocked
}

// AEState zero value means the frame did not report an AE state.
type AEState int

const (
	AEStateAbsent AEState = iota
	AEStateInactive
	AEStateSearching
	AEStateConverged
	AEStateLocked
	AEStateFlashRequired
	AEStatePrecapture
)

func (s AEState) String() string {
	switch s {
	case AEStateAbsent:
		return "absent"
	case AEStateInactive:
		return "inactive"
	case AEStateSearching:
		return "searching"
	case AEStateConverged:
		return "converged"
	case AEStateLocked:
		return "locked"
	case AEStateFlashRequired:
		return "flash_required"
	case AEStatePrecapture:
		return "precapture"
	default:
		return "unknown"
	}
}

// Result is the metadata reported for one frame of a request.
type Result struct {
	FrameNumber int64
	Partial     bool
	AFState     AFState
	AEState     AEState
}

type EventType int

const (
	EventTypeUnknown EventType = iota
	EventDeviceOpened
	EventDeviceDisconnected
	EventDeviceError
	EventSessionConfigured
	EventSessionConfigureFailed
	EventCaptureProgressed
	EventCaptureCompleted
	EventCaptureFailed
	EventImageAvailable
)

func (t EventType) String() string {
	switch t {
	case EventDeviceOpened:
		return "device_opened"
	case EventDeviceDisconnected:
		return "device_disconnected"
	case EventDeviceError:
		return "device_error"
	case EventSessionConfigured:
		return "session_configured"
	case EventSessionConfigureFailed:
		return "session_configure_failed"
	case EventCaptureProgressed:
		return "capture_progressed"
	case EventCaptureCompleted:
		return "capture_completed"
	case EventCaptureFailed:
		return "capture_failed"
	case EventImageAvailable:
		return "image_available"
	default:
		return "unknown"
	}
}

// Event is a single hardware callback. Only the fields relevant to Type are set.
type Event struct {
	Type    EventType
	Device  Device
	Session Session
	Request Request
	Result  Result
	Image   []byte
	Err     error
}
