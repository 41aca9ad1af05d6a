package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

type VulkanImage struct {
	Handle vk.Image
	Memory vk.DeviceMemory
	// View covers every aspect; attachments use it.
	View vk.ImageView
	// SampledView only covers depth for depth formats. Equal to View otherwise.
	SampledView vk.ImageView
	Format      vk.Format
	Width       uint32
	Height      uint32
	// Swapchain images are owned by the swapchain.
	external bool
}

// Texture implements gpu.Texture.
type Texture struct {
	context *VulkanContext
	desc    gpu.TextureDesc
	image   VulkanImage
	// Drops cached framebuffers that reference the views.
	onRelease func(t *Texture)
}

func (t *Texture) Desc() gpu.TextureDesc {
	return t.desc
}

func (t *Texture) depth() bool {
	return t.desc.Format.IsDepth()
}

func (t *Texture) aspect() vk.ImageAspectFlags {
	if t.depth() {
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit) | vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

func (t *Texture) subresources() vk.ImageSubresourceRange {
	return vk.ImageSubresourceRange{
		AspectMask:     t.aspect(),
		BaseMipLevel:   0,
		LevelCount:     max(t.desc.MipLevels, 1),
		BaseArrayLayer: 0,
		LayerCount:     max(t.desc.ArraySize, 1),
	}
}

func (t *Texture) Release() {
	if t.image.Handle == nil {
		return
	}
	if t.onRelease != nil {
		t.onRelease(t)
	}
	device := t.context.Device.LogicalDevice
	if t.image.SampledView != t.image.View {
		vk.DestroyImageView(device, t.image.SampledView, t.context.Allocator)
	}
	vk.DestroyImageView(device, t.image.View, t.context.Allocator)
	if !t.image.external {
		vk.DestroyImage(device, t.image.Handle, t.context.Allocator)
		vk.FreeMemory(device, t.image.Memory, t.context.Allocator)
	}
	t.image = VulkanImage{}
}

/**
 * @brief Creates a device-local image with its views, uploads data through a
 * staging buffer and leaves the image in desc.State.
 */
func ImageCreate(context *VulkanContext, desc gpu.TextureDesc, data [][]byte) (*Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, core.NewDeviceError("vkCreateImage", -1, fmt.Sprintf("texture %s has zero size", desc.Name), core.ErrSwapchainBooting)
	}
	desc.MipLevels = max(desc.MipLevels, 1)
	desc.ArraySize = max(desc.ArraySize, 1)

	t := &Texture{context: context, desc: desc}
	format := vulkanFormat(desc.Format, context.Device.DepthFormat)

	usage := vk.ImageUsageFlags(vk.ImageUsageSampledBit)
	if len(data) > 0 {
		usage |= vk.ImageUsageFlags(vk.ImageUsageTransferDstBit)
	}
	if desc.Usage&gpu.UsageRenderTarget != 0 {
		usage |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	}
	if desc.Usage&gpu.UsageDepthStencil != 0 {
		usage |= vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
	}
	var flags vk.ImageCreateFlags
	if desc.Cube {
		flags = vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
	}

	imageCreateInfo := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		Flags:     flags,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  desc.Width,
			Height: desc.Height,
			Depth:  1,
		},
		MipLevels:     desc.MipLevels,
		ArrayLayers:   desc.ArraySize,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         usage,
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	device := context.Device.LogicalDevice
	if err := vkCheck("vkCreateImage", vk.CreateImage(device, &imageCreateInfo, context.Allocator, &t.image.Handle)); err != nil {
		return nil, err
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, t.image.Handle, &requirements)
	memory, err := context.allocate(requirements, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		vk.DestroyImage(device, t.image.Handle, context.Allocator)
		return nil, err
	}
	t.image.Memory = memory
	if err := vkCheck("vkBindImageMemory", vk.BindImageMemory(device, t.image.Handle, memory, 0)); err != nil {
		t.Release()
		return nil, err
	}
	t.image.Format = format
	t.image.Width, t.image.Height = desc.Width, desc.Height

	viewType := vk.ImageViewType2d
	if desc.Cube {
		viewType = vk.ImageViewTypeCube
	} else if desc.ArraySize > 1 {
		viewType = vk.ImageViewType2dArray
	}
	if t.image.View, err = createImageView(context, t.image.Handle, viewType, format, t.subresources()); err != nil {
		t.Release()
		return nil, err
	}
	t.image.SampledView = t.image.View
	if t.depth() {
		sampled := t.subresources()
		sampled.AspectMask = vk.ImageAspectFlags(vk.ImageAspectDepthBit)
		if t.image.SampledView, err = createImageView(context, t.image.Handle, viewType, format, sampled); err != nil {
			t.Release()
			return nil, err
		}
	}

	if err := t.upload(data); err != nil {
		t.Release()
		return nil, err
	}
	return t, nil
}

func createImageView(context *VulkanContext, image vk.Image, viewType vk.ImageViewType, format vk.Format, subresources vk.ImageSubresourceRange) (vk.ImageView, error) {
	viewInfo := vk.ImageViewCreateInfo{
		SType:            vk.StructureTypeImageViewCreateInfo,
		Image:            image,
		ViewType:         viewType,
		Format:           format,
		SubresourceRange: subresources,
	}
	var view vk.ImageView
	if err := vkCheck("vkCreateImageView", vk.CreateImageView(context.Device.LogicalDevice, &viewInfo, context.Allocator, &view)); err != nil {
		return nil, err
	}
	return view, nil
}

// upload copies data, one slice per (layer, mip) with mips varying fastest,
// and transitions the image into its initial state.
func (t *Texture) upload(data [][]byte) error {
	var staging *Buffer
	regions := make([]vk.BufferImageCopy, 0, len(data))
	if len(data) > 0 {
		var total uint64
		offsets := make([]uint64, len(data))
		for i, d := range data {
			offsets[i] = total
			total += alignUp(uint64(len(d)), 16)
		}
		var err error
		staging, err = newBuffer(t.context, t.desc.Name+"_staging", total, vk.BufferUsageTransferSrcBit, true)
		if err != nil {
			return err
		}
		defer staging.Release()

		mapped := staging.Mapped()
		for i, d := range data {
			copy(mapped[offsets[i]:], d)
			layer := uint32(i) / t.desc.MipLevels
			mip := uint32(i) % t.desc.MipLevels
			regions = append(regions, vk.BufferImageCopy{
				BufferOffset: vk.DeviceSize(offsets[i]),
				ImageSubresource: vk.ImageSubresourceLayers{
					AspectMask:     vk.ImageAspectFlags(vk.ImageAspectColorBit),
					MipLevel:       mip,
					BaseArrayLayer: layer,
					LayerCount:     1,
				},
				ImageExtent: vk.Extent3D{
					Width:  max(t.desc.Width>>mip, 1),
					Height: max(t.desc.Height>>mip, 1),
					Depth:  1,
				},
			})
		}
	}

	return t.context.immediate(func(cb *VulkanCommandBuffer) {
		if staging != nil {
			t.transition(cb.Handle, vk.ImageLayoutUndefined, vk.ImageLayoutTransferDstOptimal, 0, vk.AccessFlags(vk.AccessTransferWriteBit))
			vk.CmdCopyBufferToImage(cb.Handle, staging.handle, t.image.Handle, vk.ImageLayoutTransferDstOptimal, uint32(len(regions)), regions)
			t.transition(cb.Handle, vk.ImageLayoutTransferDstOptimal, imageLayout(t.desc.State, t.depth()), vk.AccessFlags(vk.AccessTransferWriteBit), accessMask(t.desc.State))
			return
		}
		t.transition(cb.Handle, vk.ImageLayoutUndefined, imageLayout(t.desc.State, t.depth()), 0, accessMask(t.desc.State))
	})
}

func (t *Texture) transition(cmd vk.CommandBuffer, from, to vk.ImageLayout, src, dst vk.AccessFlags) {
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       src,
		DstAccessMask:       dst,
		OldLayout:           from,
		NewLayout:           to,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               t.image.Handle,
		SubresourceRange:    t.subresources(),
	}
	vk.CmdPipelineBarrier(cmd,
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
}

func alignUp(v, alignment uint64) uint64 {
	return (v + alignment - 1) &^ (alignment - 1)
}
