package vulkan

import (
	"fmt"
	"math"
	"sync"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

type VulkanSwapchainSupportInfo struct {
	Capabilities     vk.SurfaceCapabilities
	FormatCount      uint32
	Formats          []vk.SurfaceFormat
	PresentModeCount uint32
	PresentModes     []vk.PresentMode
}

/**
 * @brief The window's swapchain. The next image is acquired as soon as the
 * previous one is presented, so CurrentBackBuffer is always valid between
 * frames. The first submission after an acquire waits on it, and Present
 * waits on that submission.
 */
type Swapchain struct {
	device *Device

	mu          sync.Mutex
	ImageFormat vk.SurfaceFormat
	Handle      vk.Swapchain
	ImageCount  uint32
	Images      []vk.Image
	textures    []*Texture
	width       uint32
	height      uint32
	vsync       bool

	imageIndex     uint32
	imageAvailable []vk.Semaphore
	renderComplete []vk.Semaphore
	semaphoreIndex int
	// Semaphore the next submission waits on, nil once consumed.
	acquireWait vk.Semaphore
	// Semaphore the next present waits on.
	presentWait vk.Semaphore
}

func SwapchainCreate(device *Device, width, height uint32, vsync bool) (*Swapchain, error) {
	sc := &Swapchain{device: device, vsync: vsync}
	if err := sc.create(width, height, nil); err != nil {
		return nil, err
	}
	return sc, nil
}

func (sc *Swapchain) Width() uint32 {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.width
}

func (sc *Swapchain) Height() uint32 {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.height
}

func (sc *Swapchain) Format() gpu.Format {
	return engineFormat(sc.ImageFormat.Format)
}

func (sc *Swapchain) BufferCount() int {
	return int(sc.ImageCount)
}

func (sc *Swapchain) CurrentBackBuffer() gpu.Texture {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.textures[sc.imageIndex]
}

func (sc *Swapchain) create(width, height uint32, old vk.Swapchain) error {
	context := sc.device.context
	support := &context.Device.SwapchainSupport
	if err := DeviceQuerySwapchainSupport(context.Device.PhysicalDevice, context.Surface, support); err != nil {
		return err
	}
	if support.FormatCount == 0 {
		return core.NewDeviceError("vkGetPhysicalDeviceSurfaceFormats", -1, "surface reports no formats", nil)
	}

	// Choose a swap surface format.
	sc.ImageFormat = support.Formats[0]
	for _, format := range support.Formats {
		format.Deref()
		if format.Format == vk.FormatB8g8r8a8Unorm && format.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			sc.ImageFormat = format
			break
		}
	}

	presentMode := vk.PresentModeFifo
	if !sc.vsync {
		for _, mode := range support.PresentModes {
			if mode == vk.PresentModeMailbox || mode == vk.PresentModeImmediate {
				presentMode = mode
				break
			}
		}
	}

	// Swapchain extent
	capabilities := support.Capabilities
	capabilities.Deref()
	capabilities.CurrentExtent.Deref()
	capabilities.MinImageExtent.Deref()
	capabilities.MaxImageExtent.Deref()
	extent := vk.Extent2D{Width: width, Height: height}
	if capabilities.CurrentExtent.Width != math.MaxUint32 {
		extent = capabilities.CurrentExtent
	}
	// Clamp to the value allowed by the GPU.
	extent.Width = MathClamp(extent.Width, capabilities.MinImageExtent.Width, capabilities.MaxImageExtent.Width)
	extent.Height = MathClamp(extent.Height, capabilities.MinImageExtent.Height, capabilities.MaxImageExtent.Height)
	if extent.Width == 0 || extent.Height == 0 {
		return core.NewDeviceError("vkCreateSwapchainKHR", -1, "window has zero size", core.ErrSwapchainBooting)
	}

	imageCount := capabilities.MinImageCount + 1
	if capabilities.MaxImageCount > 0 && imageCount > capabilities.MaxImageCount {
		imageCount = capabilities.MaxImageCount
	}

	swapchainCreateInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          context.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      sc.ImageFormat.Format,
		ImageColorSpace:  sc.ImageFormat.ColorSpace,
		ImageExtent:      extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      presentMode,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}
	// Setup the queue family indices
	if context.Device.GraphicsQueueIndex != context.Device.PresentQueueIndex {
		swapchainCreateInfo.ImageSharingMode = vk.SharingModeConcurrent
		swapchainCreateInfo.QueueFamilyIndexCount = 2
		swapchainCreateInfo.PQueueFamilyIndices = []uint32{
			uint32(context.Device.GraphicsQueueIndex),
			uint32(context.Device.PresentQueueIndex),
		}
	}

	logical := context.Device.LogicalDevice
	var handle vk.Swapchain
	if err := vkCheck("vkCreateSwapchainKHR", vk.CreateSwapchain(logical, &swapchainCreateInfo, context.Allocator, &handle)); err != nil {
		return err
	}
	if old != nil {
		vk.DestroySwapchain(logical, old, context.Allocator)
	}
	sc.Handle = handle
	sc.width, sc.height = extent.Width, extent.Height

	// Images
	if err := vkCheck("vkGetSwapchainImagesKHR", vk.GetSwapchainImages(logical, handle, &sc.ImageCount, nil)); err != nil {
		return err
	}
	sc.Images = make([]vk.Image, sc.ImageCount)
	if err := vkCheck("vkGetSwapchainImagesKHR", vk.GetSwapchainImages(logical, handle, &sc.ImageCount, sc.Images)); err != nil {
		return err
	}

	sc.textures = make([]*Texture, sc.ImageCount)
	for i, img := range sc.Images {
		t := &Texture{
			context: context,
			desc: gpu.TextureDesc{
				Name:      fmt.Sprintf("back_buffer_%d", i),
				Width:     extent.Width,
				Height:    extent.Height,
				MipLevels: 1,
				ArraySize: 1,
				Format:    engineFormat(sc.ImageFormat.Format),
				Usage:     gpu.UsageRenderTarget,
				State:     gpu.StatePresent,
			},
			image: VulkanImage{
				Handle:   img,
				Format:   sc.ImageFormat.Format,
				Width:    extent.Width,
				Height:   extent.Height,
				external: true,
			},
			onRelease: sc.device.passes.forget,
		}
		view, err := createImageView(context, img, vk.ImageViewType2d, sc.ImageFormat.Format, t.subresources())
		if err != nil {
			return err
		}
		t.image.View, t.image.SampledView = view, view
		sc.textures[i] = t
	}

	// Back buffers are handed out in the present state.
	err := context.immediate(func(cb *VulkanCommandBuffer) {
		for _, t := range sc.textures {
			t.transition(cb.Handle, vk.ImageLayoutUndefined, vk.ImageLayoutPresentSrc, 0, 0)
		}
	})
	if err != nil {
		return err
	}

	if err := sc.createSemaphores(); err != nil {
		return err
	}
	core.LogInfo("Swapchain created successfully (%dx%d, %d images).", extent.Width, extent.Height, sc.ImageCount)
	return sc.acquire()
}

func (sc *Swapchain) createSemaphores() error {
	context := sc.device.context
	info := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	count := int(sc.ImageCount) + 1
	for len(sc.imageAvailable) < count {
		var s vk.Semaphore
		if err := vkCheck("vkCreateSemaphore", vk.CreateSemaphore(context.Device.LogicalDevice, &info, context.Allocator, &s)); err != nil {
			return err
		}
		sc.imageAvailable = append(sc.imageAvailable, s)
	}
	for len(sc.renderComplete) < int(sc.ImageCount) {
		var s vk.Semaphore
		if err := vkCheck("vkCreateSemaphore", vk.CreateSemaphore(context.Device.LogicalDevice, &info, context.Allocator, &s)); err != nil {
			return err
		}
		sc.renderComplete = append(sc.renderComplete, s)
	}
	return nil
}

func (sc *Swapchain) acquire() error {
	context := sc.device.context
	sem := sc.imageAvailable[sc.semaphoreIndex]
	var index uint32
	result := vk.AcquireNextImage(context.Device.LogicalDevice, sc.Handle, math.MaxUint64, sem, nil, &index)
	if result != vk.Success && result != vk.Suboptimal {
		return vkCheck("vkAcquireNextImageKHR", result)
	}
	sc.imageIndex = index
	sc.acquireWait = sem
	sc.presentWait = nil
	return nil
}

// submitSemaphores hands the queue what the next submission must wait on
// and signal. Only the first submission after an acquire gets them.
func (sc *Swapchain) submitSemaphores() (wait, signal vk.Semaphore) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.acquireWait == nil {
		return nil, nil
	}
	wait = sc.acquireWait
	signal = sc.renderComplete[sc.imageIndex]
	sc.acquireWait = nil
	sc.presentWait = signal
	return wait, signal
}

func (sc *Swapchain) Present(vsync bool) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	context := sc.device.context

	presentInfo := vk.PresentInfo{
		SType:          vk.StructureTypePresentInfo,
		SwapchainCount: 1,
		PSwapchains:    []vk.Swapchain{sc.Handle},
		PImageIndices:  []uint32{sc.imageIndex},
	}
	if sc.presentWait != nil {
		presentInfo.WaitSemaphoreCount = 1
		presentInfo.PWaitSemaphores = []vk.Semaphore{sc.presentWait}
	}

	var result vk.Result
	_ = context.locks.SafeQueueCall(uint32(context.Device.PresentQueueIndex), func() error {
		result = vk.QueuePresent(context.Device.PresentQueue, &presentInfo)
		return nil
	})

	sc.semaphoreIndex = (sc.semaphoreIndex + 1) % len(sc.imageAvailable)
	if result == vk.ErrorOutOfDate || result == vk.Suboptimal || vsync != sc.vsync {
		// Swapchain is out of date, suboptimal or the present mode changed.
		sc.vsync = vsync
		return sc.recreate(sc.width, sc.height)
	}
	if result != vk.Success {
		return vkCheck("vkQueuePresentKHR", result)
	}
	return sc.acquire()
}

func (sc *Swapchain) Resize(width, height uint32) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.recreate(width, height)
}

func (sc *Swapchain) recreate(width, height uint32) error {
	if err := sc.device.WaitIdle(); err != nil {
		return err
	}
	old := sc.Handle
	sc.releaseImages()
	// The semaphores may still carry an unconsumed acquire; start fresh.
	sc.destroySemaphores()
	sc.acquireWait, sc.presentWait = nil, nil
	sc.semaphoreIndex = 0
	return sc.create(width, height, old)
}

func (sc *Swapchain) releaseImages() {
	// Only destroy the views, not the images, since those are owned by the swapchain and are thus
	// destroyed when it is.
	for _, t := range sc.textures {
		t.Release()
	}
	sc.textures = nil
	sc.Images = nil
}

func (sc *Swapchain) destroySemaphores() {
	context := sc.device.context
	for _, s := range sc.imageAvailable {
		vk.DestroySemaphore(context.Device.LogicalDevice, s, context.Allocator)
	}
	for _, s := range sc.renderComplete {
		vk.DestroySemaphore(context.Device.LogicalDevice, s, context.Allocator)
	}
	sc.imageAvailable, sc.renderComplete = nil, nil
}

func (sc *Swapchain) SwapchainDestroy() {
	context := sc.device.context
	sc.releaseImages()
	sc.destroySemaphores()
	if sc.Handle != nil {
		vk.DestroySwapchain(context.Device.LogicalDevice, sc.Handle, context.Allocator)
		sc.Handle = nil
	}
}
