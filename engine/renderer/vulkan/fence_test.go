package vulkan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFenceWaitOnCompletedValueIgnoresContext(t *testing.T) {
	f := newFence(nil, 5)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, f.Wait(ctx, 3))
	require.NoError(t, f.Wait(ctx, 5))
}

func TestFenceWaitRejectsValueNeverSignaled(t *testing.T) {
	f := newFence(nil, 2)
	err := f.Wait(context.Background(), 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "never signaled")
}

func TestSignaledVulkanFenceDoesNotBlock(t *testing.T) {
	vf := &VulkanFence{IsSignaled: true}
	ok, err := vf.FenceWait(nil, 0)
	require.NoError(t, err)
	assert.True(t, ok)
}
