package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
)

// VulkanContext holds the instance-level objects every other part of the
// backend needs.
type VulkanContext struct {
	Instance  vk.Instance
	Allocator *vk.AllocationCallbacks
	Surface   vk.Surface

	// Only set when validation is enabled.
	debugMessenger vk.DebugReportCallback

	Device *VulkanDevice

	// Single-use command buffers for uploads are submitted here.
	locks *VulkanLockPool
}

func (vc *VulkanContext) FindMemoryIndex(typeFilter, propertyFlags uint32) int32 {
	var memoryProperties vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(vc.Device.PhysicalDevice, &memoryProperties)
	memoryProperties.Deref()

	for i := uint32(0); i < memoryProperties.MemoryTypeCount; i++ {
		// Check each memory type to see if its bit is set to 1.
		memoryProperties.MemoryTypes[i].Deref()
		if (typeFilter&(1<<i)) != 0 && (uint32(memoryProperties.MemoryTypes[i].PropertyFlags)&propertyFlags) == propertyFlags {
			return int32(i)
		}
	}
	core.LogWarn("Unable to find suitable memory type!")
	return -1
}

// allocate backs requirements with memory of the given properties.
func (vc *VulkanContext) allocate(requirements vk.MemoryRequirements, properties vk.MemoryPropertyFlagBits) (vk.DeviceMemory, error) {
	requirements.Deref()
	index := vc.FindMemoryIndex(requirements.MemoryTypeBits, uint32(properties))
	if index < 0 {
		return nil, core.NewDeviceError("vkAllocateMemory", -1, fmt.Sprintf("no memory type with properties %#x", uint32(properties)), core.ErrOutOfMemory)
	}
	info := vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: uint32(index),
	}
	var memory vk.DeviceMemory
	if err := vkCheck("vkAllocateMemory", vk.AllocateMemory(vc.Device.LogicalDevice, &info, vc.Allocator, &memory)); err != nil {
		return nil, err
	}
	return memory, nil
}

/**
 * @brief Records work into a throwaway command buffer, submits it and waits
 * for the graphics queue to go idle. Used for uploads and the initial
 * layout of new images, never while a frame is being recorded.
 */
func (vc *VulkanContext) immediate(record func(cb *VulkanCommandBuffer)) error {
	return vc.locks.SafeQueueCall(uint32(vc.Device.GraphicsQueueIndex), func() error {
		cb, err := AllocateAndBeginSingleUse(vc, vc.Device.GraphicsCommandPool)
		if err != nil {
			return err
		}
		record(cb)
		return cb.EndSingleUse(vc, vc.Device.GraphicsCommandPool, vc.Device.GraphicsQueue)
	})
}
