package devices

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilbercode/stillcam/internal/geometry"
	"github.com/bilbercode/stillcam/internal/hal"
	"github.com/bilbercode/stillcam/internal/hal/haltest"
	"github.com/bilbercode/stillcam/internal/streamconfig"
)

const testTimeout = 50 * time.Millisecond

func openRequest(chars *hal.Characteristics) OpenRequest {
	return OpenRequest{
		ID:              chars.ID,
		Characteristics: chars,
		Streams: streamconfig.Config{
			Preview: geometry.Size{Width: 1440, Height: 1080},
			Still:   geometry.Size{Width: 4000, Height: 3000},
		},
	}
}

func newTestService(t *testing.T) (*service, *haltest.Backend) {
	t.Helper()
	backend := haltest.NewBackend(haltest.BackCamera("0"), haltest.FrontCamera("1"))
	svc := NewService(backend, &haltest.Sink{}, testTimeout).(*service)
	return svc, backend
}

func TestOpenHoldsPermitUntilOpened(t *testing.T) {
	svc, backend := newTestService(t)

	require.NoError(t, svc.Open(openRequest(backend.Cameras[0])))
	assert.Equal(t, StateOpening, svc.State())
	assert.True(t, svc.permit.Held())
	assert.Equal(t, []string{"0"}, backend.Opens)
	require.Len(t, backend.Readers, 1)
	assert.Equal(t, geometry.Size{Width: 4000, Height: 3000}, backend.Readers[0].Size())

	dev := haltest.NewDevice("0")
	assert.True(t, svc.Opened(dev))
	assert.Equal(t, StateOpen, svc.State())
	assert.False(t, svc.permit.Held())
	assert.Equal(t, dev, svc.Device())
}

func TestOpenTimesOutWhilePermitHeld(t *testing.T) {
	svc, backend := newTestService(t)
	require.NoError(t, svc.Open(openRequest(backend.Cameras[0])))

	started := time.Now()
	err := svc.Open(openRequest(backend.Cameras[1]))
	assert.True(t, errors.Is(err, hal.ErrDeviceBusy))
	assert.GreaterOrEqual(t, time.Since(started), testTimeout)
	assert.Len(t, backend.Opens, 1)
}

func TestOpenFailureReleasesPermit(t *testing.T) {
	svc, backend := newTestService(t)
	backend.OpenErr = errors.New("permission denied")

	err := svc.Open(openRequest(backend.Cameras[0]))
	assert.True(t, errors.Is(err, hal.ErrDeviceAccess))
	assert.Equal(t, StateClosed, svc.State())
	assert.False(t, svc.permit.Held())
	assert.Equal(t, 1, backend.Readers[0].Closed)
}

func TestFailedReleasesPermitAndPublishes(t *testing.T) {
	svc, backend := newTestService(t)
	var events []*Event
	deregister := svc.Subscribe(func(ev *Event) { events = append(events, ev) })
	defer deregister()

	require.NoError(t, svc.Open(openRequest(backend.Cameras[0])))
	dev := haltest.NewDevice("0")
	assert.True(t, svc.Failed(dev, errors.New("camera in use")))

	assert.Equal(t, StateClosed, svc.State())
	assert.False(t, svc.permit.Held())
	assert.Equal(t, 1, dev.Closed)
	assert.Equal(t, 1, backend.Readers[0].Closed)
	require.Len(t, events, 1)
	assert.Equal(t, EventTypeUnavailable, events[0].Type)
	assert.True(t, errors.Is(events[0].Err, hal.ErrDeviceAccess))
}

func TestFailureOfClosedDeviceLeavesNewOpenAlone(t *testing.T) {
	svc, backend := newTestService(t)
	var events []*Event
	deregister := svc.Subscribe(func(ev *Event) { events = append(events, ev) })
	defer deregister()

	require.NoError(t, svc.Open(openRequest(backend.Cameras[0])))
	back := haltest.NewDevice("0")
	require.True(t, svc.Opened(back))
	svc.Close()

	require.NoError(t, svc.Open(openRequest(backend.Cameras[1])))
	assert.False(t, svc.Failed(back, errors.New("disconnected")))
	assert.Equal(t, StateOpening, svc.State())
	assert.True(t, svc.permit.Held())
	require.Len(t, backend.Readers, 2)
	assert.Equal(t, 0, backend.Readers[1].Closed)
	assert.Equal(t, 1, back.Closed)

	front := haltest.NewDevice("1")
	assert.True(t, svc.Opened(front))
	assert.Equal(t, StateOpen, svc.State())
	assert.False(t, svc.permit.Held())

	// once open, only the current device can fail it
	assert.False(t, svc.Failed(back, errors.New("disconnected")))
	assert.Equal(t, StateOpen, svc.State())
	assert.Equal(t, front, svc.Device())

	require.Len(t, events, 2)
	assert.Equal(t, EventTypeAvailable, events[1].Type)
	assert.Equal(t, "1", events[1].DeviceID)
}

func TestCloseTearsDownInOrder(t *testing.T) {
	svc, backend := newTestService(t)
	require.NoError(t, svc.Open(openRequest(backend.Cameras[0])))
	dev := haltest.NewDevice("0")
	require.True(t, svc.Opened(dev))
	session := &haltest.Session{}
	require.True(t, svc.SessionConfigured(session))

	svc.Close()

	assert.Equal(t, StateClosed, svc.State())
	assert.Equal(t, 1, session.Closed)
	assert.Equal(t, 1, dev.Closed)
	assert.Equal(t, 1, backend.Readers[0].Closed)
	assert.Nil(t, svc.Session())
	assert.Nil(t, svc.Device())
	assert.False(t, svc.permit.Held())
}

func TestCloseIsIdempotent(t *testing.T) {
	svc, backend := newTestService(t)
	require.NoError(t, svc.Open(openRequest(backend.Cameras[0])))
	dev := haltest.NewDevice("0")
	require.True(t, svc.Opened(dev))

	svc.Close()
	started := time.Now()
	svc.Close()
	svc.Close()
	assert.Less(t, time.Since(started), testTimeout)
	assert.Equal(t, 1, dev.Closed)

	// a double release would let two acquisitions through
	g1, err := svc.permit.Acquire(testTimeout)
	require.NoError(t, err)
	_, err = svc.permit.Acquire(testTimeout)
	assert.True(t, errors.Is(err, hal.ErrDeviceBusy))
	g1.Release()
}

func TestCloseNeverOpened(t *testing.T) {
	svc, _ := newTestService(t)
	svc.Close()
	assert.Equal(t, StateClosed, svc.State())
	assert.False(t, svc.permit.Held())
}

func TestLateOpenedAfterAbandonedOpen(t *testing.T) {
	svc, backend := newTestService(t)
	require.NoError(t, svc.Open(openRequest(backend.Cameras[0])))

	// the pending open holds the permit so close gives up waiting and tears
	// down what it has
	svc.Close()
	assert.Equal(t, StateClosed, svc.State())
	assert.True(t, svc.permit.Held())

	dev := haltest.NewDevice("0")
	assert.False(t, svc.Opened(dev))
	assert.Equal(t, 1, dev.Closed)
	assert.Nil(t, svc.Device())
	assert.False(t, svc.permit.Held())
}

func TestSessionConfiguredAfterClose(t *testing.T) {
	svc, backend := newTestService(t)
	require.NoError(t, svc.Open(openRequest(backend.Cameras[0])))
	require.True(t, svc.Opened(haltest.NewDevice("0")))
	svc.Close()

	assert.False(t, svc.SessionConfigured(&haltest.Session{}))
	assert.Nil(t, svc.Session())
}

func TestOpenWhileOpenIsNoop(t *testing.T) {
	svc, backend := newTestService(t)
	require.NoError(t, svc.Open(openRequest(backend.Cameras[0])))
	require.True(t, svc.Opened(haltest.NewDevice("0")))

	require.NoError(t, svc.Open(openRequest(backend.Cameras[0])))
	assert.Len(t, backend.Opens, 1)
	assert.False(t, svc.permit.Held())
}

func TestSubscribeDeregister(t *testing.T) {
	svc, backend := newTestService(t)
	calls := 0
	deregister := svc.Subscribe(func(ev *Event) { calls++ })

	require.NoError(t, svc.Open(openRequest(backend.Cameras[0])))
	svc.Opened(haltest.NewDevice("0"))
	assert.Equal(t, 1, calls)

	deregister()
	svc.Close()
	require.NoError(t, svc.Open(openRequest(backend.Cameras[0])))
	svc.Opened(haltest.NewDevice("0"))
	assert.Equal(t, 1, calls)
}

func TestFindDevice(t *testing.T) {
	back, front := haltest.BackCamera("0"), haltest.FrontCamera("1")
	backend := haltest.NewBackend(back, front)

	got, err := FindDevice(backend, hal.FacingFront)
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID)

	got, err = FindDevice(backend, hal.FacingBack)
	require.NoError(t, err)
	assert.Equal(t, "0", got.ID)

	got, err = FindDevice(haltest.NewBackend(back), hal.FacingFront)
	assert.True(t, errors.Is(err, hal.ErrConfiguration))
	assert.Equal(t, "0", got.ID)

	external := haltest.BackCamera("usb")
	external.Facing = hal.FacingExternal
	got, err = FindDevice(haltest.NewBackend(external), hal.FacingFront)
	require.NoError(t, err)
	assert.Equal(t, "usb", got.ID)

	_, err = FindDevice(haltest.NewBackend(), hal.FacingBack)
	assert.True(t, errors.Is(err, hal.ErrDeviceAccess))
}
