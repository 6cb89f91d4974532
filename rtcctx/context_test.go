package rtcctx

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVerbose(t *testing.T) {
	ctx := context.Background()
	assert.False(t, IsVerbose(ctx))
	assert.True(t, IsVerbose(SetVerbose(ctx, true)))
}

func TestDeviceIndex(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, -1, DeviceIndex(ctx))
	assert.Equal(t, 2, DeviceIndex(SetDeviceIndex(ctx, 2)))
}
