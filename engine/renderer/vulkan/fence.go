package vulkan

import (
	"context"
	"fmt"
	"math"
	"sync"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

func NewFence(context *VulkanContext, createSignaled bool) (*VulkanFence, error) {
	fence := &VulkanFence{
		// Make sure to signal the fence if required.
		IsSignaled: createSignaled,
	}

	fenceCreateInfo := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if fence.IsSignaled {
		fenceCreateInfo.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}

	var pFence vk.Fence
	if err := vkCheck("vkCreateFence", vk.CreateFence(context.Device.LogicalDevice, &fenceCreateInfo, context.Allocator, &pFence)); err != nil {
		return nil, err
	}
	fence.Handle = pFence
	return fence, nil
}

func (vf *VulkanFence) FenceDestroy(context *VulkanContext) {
	if vf.Handle != nil {
		vk.DestroyFence(context.Device.LogicalDevice, vf.Handle, context.Allocator)
		vf.Handle = nil
	}
	vf.IsSignaled = false
}

// FenceWait reports whether the fence signaled within timeoutNs.
func (vf *VulkanFence) FenceWait(context *VulkanContext, timeoutNs uint64) (bool, error) {
	if vf.IsSignaled {
		return true, nil
	}
	result := vk.WaitForFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	switch result {
	case vk.Success:
		vf.IsSignaled = true
		return true, nil
	case vk.Timeout:
		return false, nil
	}
	return false, vkCheck("vkWaitForFences", result)
}

func (vf *VulkanFence) FenceReset(context *VulkanContext) error {
	if vf.IsSignaled {
		if err := vkCheck("vkResetFences", vk.ResetFences(context.Device.LogicalDevice, 1, []vk.Fence{vf.Handle})); err != nil {
			return err
		}
		vf.IsSignaled = false
	}
	return nil
}

type pendingSignal struct {
	value uint64
	fence *VulkanFence
}

/**
 * @brief A monotonically increasing counter built from binary fences: every
 * Signal submits one VkFence tagged with the value it stands for, and the
 * completed value is the highest tag whose fence has signaled. Signals
 * complete in submission order, so only the oldest pending fence is polled.
 */
type Fence struct {
	context *VulkanContext

	mu        sync.Mutex
	completed uint64
	pending   []pendingSignal
	free      []*VulkanFence
}

func newFence(context *VulkanContext, initialValue uint64) *Fence {
	return &Fence{context: context, completed: initialValue}
}

// acquire hands out an unsignaled VkFence for the next Signal.
func (f *Fence) acquire() (*VulkanFence, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if n := len(f.free); n > 0 {
		vf := f.free[n-1]
		f.free = f.free[:n-1]
		return vf, nil
	}
	return NewFence(f.context, false)
}

func (f *Fence) enqueue(value uint64, vf *VulkanFence) {
	f.mu.Lock()
	f.pending = append(f.pending, pendingSignal{value: value, fence: vf})
	f.mu.Unlock()
}

// retire moves every signaled fence at the head of the queue to the free list.
func (f *Fence) retire() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for len(f.pending) > 0 {
		head := f.pending[0]
		res := vk.GetFenceStatus(f.context.Device.LogicalDevice, head.fence.Handle)
		if res == vk.NotReady {
			return nil
		}
		if res != vk.Success {
			return vkCheck("vkGetFenceStatus", res)
		}
		head.fence.IsSignaled = true
		if err := head.fence.FenceReset(f.context); err != nil {
			return err
		}
		f.free = append(f.free, head.fence)
		if head.value > f.completed {
			f.completed = head.value
		}
		f.pending = f.pending[1:]
	}
	return nil
}

func (f *Fence) CompletedValue() uint64 {
	if err := f.retire(); err != nil {
		core.LogError("fence status: %s", err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

// Wait blocks once on the VkFence that stands for value. The wait is
// unbounded, so ctx is not consulted.
func (f *Fence) Wait(_ context.Context, value uint64) error {
	if err := f.retire(); err != nil {
		return err
	}
	f.mu.Lock()
	if f.completed >= value {
		f.mu.Unlock()
		return nil
	}
	var target *VulkanFence
	for _, p := range f.pending {
		if p.value >= value {
			target = p.fence
			break
		}
	}
	f.mu.Unlock()
	if target == nil {
		return fmt.Errorf("fence value %d was never signaled", value)
	}
	if _, err := target.FenceWait(f.context, math.MaxUint64); err != nil {
		return err
	}
	return f.retire()
}

func (f *Fence) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.pending {
		p.fence.FenceDestroy(f.context)
	}
	for _, vf := range f.free {
		vf.FenceDestroy(f.context)
	}
	f.pending, f.free = nil, nil
}
