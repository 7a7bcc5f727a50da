package hal

import "errors"

var (
	// ErrDeviceBusy is returned when the open/close permit could not be
	// acquired in time. The device stays unavailable and the caller may retry.
	ErrDeviceBusy = errors.New("camera device busy")
	// ErrDeviceAccess covers permission and hardware rejections.
	ErrDeviceAccess = errors.New("camera device unavailable")
	// ErrConfiguration reports a missing stream size or device for the
	// requested facing. Callers fall back to best-effort defaults.
	ErrConfiguration = errors.New("camera configuration")
	// ErrSessionRace is returned by sessions and devices used after teardown.
	ErrSessionRace = errors.New("capture session already closed")
)
