package hal

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bilbercode/stillcam/internal/geometry"
)

func TestRequestWithLeavesReceiverUntouched(t *testing.T) {
	base := Request{Template: TemplatePreview, AFMode: AFModeContinuousPicture}

	started := base.WithAFTrigger(AFTriggerStart).WithTag("focus")

	assert.Equal(t, AFTriggerUnset, base.AFTrigger)
	assert.Empty(t, base.Tag)
	assert.Equal(t, AFTriggerStart, started.AFTrigger)
	assert.Equal(t, "focus", started.Tag)
}

func TestRequestWithAFRegionsCopies(t *testing.T) {
	regions := []geometry.MeteringRect{{Rect: geometry.Rect{Right: 10, Bottom: 10}, Weight: 1000}}
	req := Request{}.WithAFRegions(regions...)

	regions[0].Weight = 1
	assert.Equal(t, 1000, req.AFRegions[0].Weight)
}

func TestAFStateLocked(t *testing.T) {
	assert.True(t, AFStateFocusedLocked.Locked())
	assert.True(t, AFStateNotFocusedLocked.Locked())
	assert.False(t, AFStateActiveScan.Locked())
	assert.False(t, AFStateAbsent.Locked())
}
