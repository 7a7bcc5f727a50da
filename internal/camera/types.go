package camera

import (
	"context"
	"time"

	"github.com/bilbercode/stillcam/internal/capture"
	"github.com/bilbercode/stillcam/internal/geometry"
	"github.com/bilbercode/stillcam/internal/hal"
)

type FlashState int

const (
	FlashOff FlashState = iota
	FlashOn
	FlashAuto
)

func (f FlashState) String() string {
	switch f {
	case FlashOff:
		return "off"
	case FlashOn:
		return "on"
	case FlashAuto:
		return "auto"
	default:
		return "unknown"
	}
}

// Shell is the user interface the controller drives. Calls arrive from the
// worker goroutine as well as from the caller of Resume and friends.
type Shell interface {
	DrawFocusIndicator(x, y float64)
	SetFlashAvailability(available bool)
	SetCameraAvailability(available bool)
	UpdateFlashState(state FlashState)
	ToggleCaptureButtons(enabled bool)
	DeviceOrientation() int

	PreviewViewSize() geometry.Size
	DisplaySize() geometry.Size
	SetPreviewAspectRatio(width, height int)
	// ShowResolutionPicker presents the sizes for the current facing and calls
	// done once the user closed the picker.
	ShowResolutionPicker(front bool, photo, video []geometry.Size, done func())
}

type Preferences interface {
	PhotoResolutionIndex(front bool) int
}

// Photo is a finished still ready for post-processing.
type Photo struct {
	Data               []byte
	Rotation           int
	JPEGOrientation    int
	Front              bool
	Target             string
	ImageCaptureIntent bool
}

type PhotoProcessor interface {
	Process(ctx context.Context, photo *Photo) error
}

type TouchAction int

const (
	TouchDown TouchAction = iota
	TouchMove
	TouchUp
	TouchCancel
)

type TouchEvent struct {
	Action   TouchAction
	Pointers []geometry.Point
	Time     time.Time
}

type Config struct {
	OpenTimeout time.Duration
	MaxPreview  geometry.Size
	// A down/up pair counts as a tap when it is shorter than TapTimeout and
	// moves less than TapSlop pixels on each axis.
	TapTimeout time.Duration
	TapSlop    float64
	InboxSize  int
}

func DefaultConfig() Config {
	return Config{
		OpenTimeout: 2500 * time.Millisecond,
		MaxPreview:  geometry.Size{Width: 1920, Height: 1080},
		TapTimeout:  250 * time.Millisecond,
		TapSlop:     20,
		InboxSize:   64,
	}
}

// Service is the capture controller. Resume, Pause and ToggleFrontBackCamera
// block on the device permit; every other call only posts to the worker
// started by Start.
type Service interface {
	hal.Sink

	Start(ctx context.Context) error

	Resume()
	Pause()
	ToggleFrontBackCamera()

	SetTargetOutput(locator string)
	SetImageCaptureIntentMode(enabled bool)
	SetFlashState(state FlashState)
	ToggleFlash()
	TakePicture()
	InitPhotoMode()
	InitVideoMode() bool
	CurrentCaptureState() capture.State
	ShowResolutionPicker()
	HandleTouch(ev TouchEvent)
}
