package hal

import (
	"github.com/bilbercode/stillcam/internal/geometry"
)

type Template string

const (
	TemplatePreview      Template = "PREVIEW"
	TemplateStillCapture Template = "STILL_CAPTURE"
)

func (t Template) String() string {
	return string(t)
}

type Target int

const (
	TargetPreview Target = iota
	TargetImage
)

type AFMode int

const (
	AFModeOff AFMode = iota
	AFModeAuto
	AFModeContinuousPicture
	AFModeContinuousVideo
)

// AFTrigger zero value leaves the trigger unset on the request.
type AFTrigger int

const (
	AFTriggerUnset AFTrigger = iota
	AFTriggerIdle
	AFTriggerStart
	AFTriggerCancel
)

type AEMode int

const (
	AEModeOff AEMode = iota
	AEModeOn
	AEModeOnAutoFlash
)

type AEPrecaptureTrigger int

const (
	AEPrecaptureIdle AEPrecaptureTrigger = iota
	AEPrecaptureStart
)

type FlashMode int

const (
	FlashModeOff FlashMode = iota
	FlashModeSingle
	FlashModeTorch
)

type ControlMode int

const (
	ControlModeUnset ControlMode = iota
	ControlModeAuto
)

type CaptureIntent int

const (
	CaptureIntentPreview CaptureIntent = iota
	CaptureIntentStillCapture
)

// Request is an immutable capture parameter set. The With* methods return a
// modified copy and never touch the receiver.
type Request struct {
	Template            Template
	Target              Target
	AFMode              AFMode
	AFTrigger           AFTrigger
	AFRegions           []geometry.MeteringRect
	AEMode              AEMode
	AEPrecaptureTrigger AEPrecaptureTrigger
	FlashMode           FlashMode
	ControlMode         ControlMode
	CaptureIntent       CaptureIntent
	CropRegion          geometry.Rect
	JPEGOrientation     int
	Tag                 string
}

func (r Request) WithAFTrigger(t AFTrigger) Request {
	r.AFTrigger = t
	return r
}

func (r Request) WithAFRegions(regions ...geometry.MeteringRect) Request {
	r.AFRegions = append([]geometry.MeteringRect(nil), regions...)
	return r
}

func (r Request) WithAEPrecaptureTrigger(t AEPrecaptureTrigger) Request {
	r.AEPrecaptureTrigger = t
	return r
}

func (r Request) WithFlash(flash FlashMode, ae AEMode) Request {
	r.FlashMode = flash
	r.AEMode = ae
	return r
}

func (r Request) WithControlMode(m ControlMode) Request {
	r.ControlMode = m
	return r
}

func (r Request) WithCropRegion(crop geometry.Rect) Request {
	r.CropRegion = crop
	return r
}

func (r Request) WithTag(tag string) Request {
	r.Tag = tag
	return r
}
