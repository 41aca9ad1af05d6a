package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

const (
	// Buffer descriptor sets live in one pool shared by every root signature.
	maxBufferSets = 8192

	heapBinding2D   = 0
	heapBindingCube = 1
)

// allGraphicsStages is what every binding and push constant range is visible to.
var allGraphicsStages = vk.ShaderStageFlags(vk.ShaderStageVertexBit) | vk.ShaderStageFlags(vk.ShaderStageFragmentBit)

/**
 * @brief Descriptor set layouts and pools for root buffer parameters. Each
 * constant or structured buffer parameter is its own set holding a single
 * binding, so a (buffer, offset) pair maps to exactly one reusable set.
 */
type bufferDescriptors struct {
	context       *VulkanContext
	uniformLayout vk.DescriptorSetLayout
	storageLayout vk.DescriptorSetLayout
	pool          vk.DescriptorPool
}

func newBufferDescriptors(context *VulkanContext) (*bufferDescriptors, error) {
	bd := &bufferDescriptors{context: context}
	var err error
	if bd.uniformLayout, err = singleBindingLayout(context, vk.DescriptorTypeUniformBuffer); err != nil {
		return nil, err
	}
	if bd.storageLayout, err = singleBindingLayout(context, vk.DescriptorTypeStorageBuffer); err != nil {
		bd.destroy()
		return nil, err
	}
	poolSizes := []vk.DescriptorPoolSize{
		{Type: vk.DescriptorTypeUniformBuffer, DescriptorCount: maxBufferSets},
		{Type: vk.DescriptorTypeStorageBuffer, DescriptorCount: maxBufferSets / 4},
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		Flags:         vk.DescriptorPoolCreateFlags(vk.DescriptorPoolCreateFreeDescriptorSetBit),
		MaxSets:       maxBufferSets + maxBufferSets/4,
		PoolSizeCount: uint32(len(poolSizes)),
		PPoolSizes:    poolSizes,
	}
	if err := vkCheck("vkCreateDescriptorPool", vk.CreateDescriptorPool(context.Device.LogicalDevice, &poolInfo, context.Allocator, &bd.pool)); err != nil {
		bd.destroy()
		return nil, err
	}
	return bd, nil
}

func singleBindingLayout(context *VulkanContext, kind vk.DescriptorType) (vk.DescriptorSetLayout, error) {
	binding := vk.DescriptorSetLayoutBinding{
		Binding:         0,
		DescriptorType:  kind,
		DescriptorCount: 1,
		StageFlags:      allGraphicsStages,
	}
	info := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings:    []vk.DescriptorSetLayoutBinding{binding},
	}
	var layout vk.DescriptorSetLayout
	err := vkCheck("vkCreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(context.Device.LogicalDevice, &info, context.Allocator, &layout))
	return layout, err
}

func (bd *bufferDescriptors) layout(kind gpu.RootParamKind) vk.DescriptorSetLayout {
	if kind == gpu.RootParamShaderResource {
		return bd.storageLayout
	}
	return bd.uniformLayout
}

// set returns the descriptor set that binds buf at offset, creating it on
// first use. Constant buffers are bound with the largest range the device
// allows; structured buffers are bound whole.
func (bd *bufferDescriptors) set(buf *Buffer, kind gpu.RootParamKind, offset uint64) (vk.DescriptorSet, error) {
	var out vk.DescriptorSet
	err := bd.context.locks.SafeCall(DescriptorManagement, func() error {
		if s, ok := buf.sets[offset]; ok {
			out = s
			return nil
		}
		if offset >= buf.size {
			return core.NewDeviceError("vkUpdateDescriptorSets", -1, fmt.Sprintf("offset %d is past the end of %s", offset, buf.name), nil)
		}
		info := vk.DescriptorSetAllocateInfo{
			SType:              vk.StructureTypeDescriptorSetAllocateInfo,
			DescriptorPool:     bd.pool,
			DescriptorSetCount: 1,
			PSetLayouts:        []vk.DescriptorSetLayout{bd.layout(kind)},
		}
		var set vk.DescriptorSet
		if err := vkCheck("vkAllocateDescriptorSets", vk.AllocateDescriptorSets(bd.context.Device.LogicalDevice, &info, &set)); err != nil {
			return err
		}

		rng := buf.size - offset
		descriptorType := vk.DescriptorTypeStorageBuffer
		if kind == gpu.RootParamConstantBuffer {
			descriptorType = vk.DescriptorTypeUniformBuffer
			rng = min(rng, uint64(bd.context.Device.Properties.Limits.MaxUniformBufferRange))
		}
		write := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          set,
			DstBinding:      0,
			DescriptorCount: 1,
			DescriptorType:  descriptorType,
			PBufferInfo: []vk.DescriptorBufferInfo{{
				Buffer: buf.handle,
				Offset: vk.DeviceSize(offset),
				Range:  vk.DeviceSize(rng),
			}},
		}
		vk.UpdateDescriptorSets(bd.context.Device.LogicalDevice, 1, []vk.WriteDescriptorSet{write}, 0, nil)

		if buf.sets == nil {
			buf.sets = make(map[uint64]vk.DescriptorSet)
			buf.onRelease = bd.free
		}
		buf.sets[offset] = set
		out = set
		return nil
	})
	return out, err
}

func (bd *bufferDescriptors) free(buf *Buffer) {
	_ = bd.context.locks.SafeCall(DescriptorManagement, func() error {
		sets := make([]vk.DescriptorSet, 0, len(buf.sets))
		for _, s := range buf.sets {
			sets = append(sets, s)
		}
		if len(sets) > 0 {
			vk.FreeDescriptorSets(bd.context.Device.LogicalDevice, bd.pool, uint32(len(sets)), sets)
		}
		buf.sets = nil
		return nil
	})
}

func (bd *bufferDescriptors) destroy() {
	device := bd.context.Device.LogicalDevice
	if bd.pool != nil {
		vk.DestroyDescriptorPool(device, bd.pool, bd.context.Allocator)
	}
	if bd.uniformLayout != nil {
		vk.DestroyDescriptorSetLayout(device, bd.uniformLayout, bd.context.Allocator)
	}
	if bd.storageLayout != nil {
		vk.DestroyDescriptorSetLayout(device, bd.storageLayout, bd.context.Allocator)
	}
}

/**
 * @brief The shader-visible texture heap: one descriptor set with a 2D and
 * a cube array of the same capacity. A slot holds its texture in the
 * matching array and a null texture in the other one.
 */
type DescriptorHeap struct {
	context  *VulkanContext
	capacity int
	layout   vk.DescriptorSetLayout
	pool     vk.DescriptorPool
	set      vk.DescriptorSet
	null2D   *Texture
	nullCube *Texture
}

func newDescriptorHeap(context *VulkanContext, capacity int) (*DescriptorHeap, error) {
	if capacity <= 0 {
		return nil, core.NewDeviceError("CreateDescriptorHeap", -1, "capacity must be positive", nil)
	}
	h := &DescriptorHeap{context: context, capacity: capacity}
	device := context.Device.LogicalDevice

	bindings := []vk.DescriptorSetLayoutBinding{
		{Binding: heapBinding2D, DescriptorType: vk.DescriptorTypeSampledImage, DescriptorCount: uint32(capacity), StageFlags: allGraphicsStages},
		{Binding: heapBindingCube, DescriptorType: vk.DescriptorTypeSampledImage, DescriptorCount: uint32(capacity), StageFlags: allGraphicsStages},
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
		PBindings:    bindings,
	}
	if err := vkCheck("vkCreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(device, &layoutInfo, context.Allocator, &h.layout)); err != nil {
		return nil, err
	}

	poolSizes := []vk.DescriptorPoolSize{{Type: vk.DescriptorTypeSampledImage, DescriptorCount: uint32(2 * capacity)}}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: 1,
		PPoolSizes:    poolSizes,
	}
	if err := vkCheck("vkCreateDescriptorPool", vk.CreateDescriptorPool(device, &poolInfo, context.Allocator, &h.pool)); err != nil {
		h.Release()
		return nil, err
	}
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     h.pool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{h.layout},
	}
	if err := vkCheck("vkAllocateDescriptorSets", vk.AllocateDescriptorSets(device, &allocInfo, &h.set)); err != nil {
		h.Release()
		return nil, err
	}

	var err error
	if h.null2D, err = nullTexture(context, false); err != nil {
		h.Release()
		return nil, err
	}
	if h.nullCube, err = nullTexture(context, true); err != nil {
		h.Release()
		return nil, err
	}
	for i := 0; i < capacity; i++ {
		if err := h.SetNull(i, false); err != nil {
			h.Release()
			return nil, err
		}
	}
	return h, nil
}

func nullTexture(context *VulkanContext, cube bool) (*Texture, error) {
	desc := gpu.TextureDesc{
		Name:      "null_2d",
		Width:     1,
		Height:    1,
		MipLevels: 1,
		ArraySize: 1,
		Format:    gpu.FormatRGBA8Unorm,
		Usage:     gpu.UsageSampled,
		State:     gpu.StateGenericRead,
	}
	if cube {
		desc.Name, desc.ArraySize, desc.Cube = "null_cube", 6, true
	}
	data := make([][]byte, desc.ArraySize)
	for i := range data {
		data[i] = make([]byte, 4)
	}
	return ImageCreate(context, desc, data)
}

func (h *DescriptorHeap) Capacity() int {
	return h.capacity
}

func (h *DescriptorHeap) write(index int, flat, cube *Texture) error {
	if index < 0 || index >= h.capacity {
		return core.NewDeviceError("SetTexture", -1, fmt.Sprintf("slot %d outside heap of %d", index, h.capacity), nil)
	}
	image := func(t *Texture) []vk.DescriptorImageInfo {
		return []vk.DescriptorImageInfo{{
			ImageView:   t.image.SampledView,
			ImageLayout: imageLayout(gpu.StateGenericRead, t.depth()),
		}}
	}
	writes := []vk.WriteDescriptorSet{
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          h.set,
			DstBinding:      heapBinding2D,
			DstArrayElement: uint32(index),
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeSampledImage,
			PImageInfo:      image(flat),
		},
		{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DstSet:          h.set,
			DstBinding:      heapBindingCube,
			DstArrayElement: uint32(index),
			DescriptorCount: 1,
			DescriptorType:  vk.DescriptorTypeSampledImage,
			PImageInfo:      image(cube),
		},
	}
	vk.UpdateDescriptorSets(h.context.Device.LogicalDevice, uint32(len(writes)), writes, 0, nil)
	return nil
}

func (h *DescriptorHeap) SetTexture(index int, tex gpu.Texture) error {
	t, ok := tex.(*Texture)
	if !ok || t.image.Handle == nil {
		return core.NewDeviceError("SetTexture", -1, fmt.Sprintf("slot %d: not a live vulkan texture", index), nil)
	}
	if t.desc.Cube {
		return h.write(index, h.null2D, t)
	}
	return h.write(index, t, h.nullCube)
}

func (h *DescriptorHeap) SetNull(index int, cube bool) error {
	return h.write(index, h.null2D, h.nullCube)
}

func (h *DescriptorHeap) Release() {
	device := h.context.Device.LogicalDevice
	if h.null2D != nil {
		h.null2D.Release()
	}
	if h.nullCube != nil {
		h.nullCube.Release()
	}
	if h.pool != nil {
		vk.DestroyDescriptorPool(device, h.pool, h.context.Allocator)
		h.pool = nil
	}
	if h.layout != nil {
		vk.DestroyDescriptorSetLayout(device, h.layout, h.context.Allocator)
		h.layout = nil
	}
}
