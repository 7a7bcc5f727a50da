package devices

import (
	"fmt"

	"github.com/bilbercode/stillcam/internal/hal"
)

// FindDevice returns the characteristics of the first device facing the
// requested way. External devices match either facing. When nothing matches
// the first device is returned together with hal.ErrConfiguration.
func FindDevice(backend hal.Backend, facing hal.Facing) (*hal.Characteristics, error) {
	ids, err := backend.DeviceIDs()
	if err != nil {
		return nil, fmt.Errorf("failed to list cameras: %w", err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no cameras present", hal.ErrDeviceAccess)
	}

	var first *hal.Characteristics
	for _, id := range ids {
		chars, err := backend.Characteristics(id)
		if err != nil {
			return nil, fmt.Errorf("failed to read characteristics of camera %s: %w", id, err)
		}
		if first == nil {
			first = chars
		}
		if chars.Facing == facing || chars.Facing == hal.FacingExternal {
			return chars, nil
		}
	}
	return first, fmt.Errorf("%w: no %s facing camera, using %s", hal.ErrConfiguration, facing, first.ID)
}
