package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckSuccessIsNil(t *testing.T) {
	assert.NoError(t, Check("vkCreateFence", 0, ""))
}

func TestCheckRecordsCallSite(t *testing.T) {
	err := Check("vkQueueSubmit", -4, "device lost")
	require.Error(t, err)

	var de *DeviceError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "vkQueueSubmit", de.Op)
	assert.Equal(t, int64(-4), de.Code)
	assert.Equal(t, "errors_test.go", de.File)
	assert.NotZero(t, de.Line)
	assert.Contains(t, err.Error(), "vkQueueSubmit failed in errors_test.go")
}

func TestDeviceErrorUnwrapsSentinel(t *testing.T) {
	err := fmt.Errorf("present: %w", NewDeviceError("vkQueuePresentKHR", -4, "", ErrDeviceLost))
	assert.True(t, errors.Is(err, ErrDeviceLost))
	assert.False(t, errors.Is(err, ErrOutOfMemory))
}
