package vulkan

import (
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

// Buffer implements gpu.Buffer. Host-visible buffers stay mapped until Release.
type Buffer struct {
	context *VulkanContext
	name    string
	size    uint64
	usage   gpu.BufferUsage
	handle  vk.Buffer
	memory  vk.DeviceMemory
	mapped  []byte
	// Descriptor sets that point into this buffer, keyed by offset.
	sets map[uint64]vk.DescriptorSet
	// Set when the buffer is released so cached sets can be freed.
	onRelease func(b *Buffer)
}

func newBuffer(context *VulkanContext, name string, size uint64, usage vk.BufferUsageFlagBits, hostVisible bool) (*Buffer, error) {
	b := &Buffer{context: context, name: name, size: size}
	info := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       vk.BufferUsageFlags(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	device := context.Device.LogicalDevice
	if err := vkCheck("vkCreateBuffer", vk.CreateBuffer(device, &info, context.Allocator, &b.handle)); err != nil {
		return nil, err
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, b.handle, &requirements)
	properties := vk.MemoryPropertyDeviceLocalBit
	if hostVisible {
		properties = vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit
	}
	memory, err := context.allocate(requirements, properties)
	if err != nil {
		vk.DestroyBuffer(device, b.handle, context.Allocator)
		return nil, err
	}
	b.memory = memory
	if err := vkCheck("vkBindBufferMemory", vk.BindBufferMemory(device, b.handle, memory, 0)); err != nil {
		b.Release()
		return nil, err
	}

	if hostVisible {
		var data unsafe.Pointer
		if err := vkCheck("vkMapMemory", vk.MapMemory(device, memory, 0, vk.DeviceSize(size), 0, &data)); err != nil {
			b.Release()
			return nil, err
		}
		b.mapped = unsafe.Slice((*byte)(data), size)
	}
	return b, nil
}

func bufferUsage(u gpu.BufferUsage) vk.BufferUsageFlagBits {
	switch u {
	case gpu.BufferUsageConstant:
		return vk.BufferUsageUniformBufferBit
	case gpu.BufferUsageStructured:
		return vk.BufferUsageStorageBufferBit
	case gpu.BufferUsageVertex:
		return vk.BufferUsageVertexBufferBit
	case gpu.BufferUsageIndex:
		return vk.BufferUsageIndexBufferBit
	}
	return vk.BufferUsageStorageBufferBit
}

/**
 * @brief Creates a device-local buffer and fills it through a staging copy.
 */
func newStaticBuffer(context *VulkanContext, name string, usage gpu.BufferUsage, data []byte) (*Buffer, error) {
	size := uint64(len(data))
	b, err := newBuffer(context, name, size, bufferUsage(usage)|vk.BufferUsageTransferDstBit, false)
	if err != nil {
		return nil, err
	}
	b.usage = usage
	staging, err := newBuffer(context, name+"_staging", size, vk.BufferUsageTransferSrcBit, true)
	if err != nil {
		b.Release()
		return nil, err
	}
	defer staging.Release()
	copy(staging.Mapped(), data)

	err = context.immediate(func(cb *VulkanCommandBuffer) {
		region := vk.BufferCopy{Size: vk.DeviceSize(size)}
		vk.CmdCopyBuffer(cb.Handle, staging.handle, b.handle, 1, []vk.BufferCopy{region})
	})
	if err != nil {
		b.Release()
		return nil, err
	}
	return b, nil
}

func (b *Buffer) Name() string {
	return b.name
}

func (b *Buffer) Size() uint64 {
	return b.size
}

func (b *Buffer) Mapped() []byte {
	return b.mapped
}

func (b *Buffer) Release() {
	if b.handle == nil {
		return
	}
	if b.onRelease != nil {
		b.onRelease(b)
	}
	device := b.context.Device.LogicalDevice
	if b.mapped != nil {
		vk.UnmapMemory(device, b.memory)
		b.mapped = nil
	}
	vk.DestroyBuffer(device, b.handle, b.context.Allocator)
	vk.FreeMemory(device, b.memory, b.context.Allocator)
	b.handle = nil
}
