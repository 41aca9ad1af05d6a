package vulkan

import (
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

// Options configures New.
type Options struct {
	AppName    string
	Window     *glfw.Window
	Width      uint32
	Height     uint32
	VSync      bool
	Validation bool
}

// Device implements gpu.Device on top of a single graphics queue.
type Device struct {
	context   *VulkanContext
	queue     *Queue
	swapchain *Swapchain

	passes  *renderpassCache
	buffers *bufferDescriptors
	heap    *DescriptorHeap

	mu    sync.Mutex
	lists []*CommandList
}

func New(opts Options) (*Device, error) {
	if opts.Window == nil {
		return nil, core.NewDeviceError("New", -1, "a window is required", nil)
	}
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return nil, core.NewDeviceError("GetInstanceProcAddress", -1, "GetInstanceProcAddress is nil", nil)
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return nil, core.NewDeviceError("vk.Init", -1, err.Error(), nil)
	}

	d := &Device{
		context: &VulkanContext{
			// TODO: custom allocator.
			Allocator: nil,
			Device:    &VulkanDevice{},
			locks:     NewVulkanLockPool(),
		},
	}
	d.queue = &Queue{device: d}

	if err := d.createInstance(opts); err != nil {
		return nil, err
	}

	// Surface
	core.LogDebug("Creating Vulkan surface...")
	surface, err := opts.Window.CreateWindowSurface(d.context.Instance, nil)
	if err != nil {
		d.Close()
		return nil, core.NewDeviceError("CreateWindowSurface", -1, err.Error(), nil)
	}
	d.context.Surface = vk.SurfaceFromPointer(surface)
	core.LogDebug("Vulkan surface created.")

	// Device creation
	if err := DeviceCreate(d.context); err != nil {
		d.Close()
		return nil, err
	}

	d.passes = newRenderpassCache(d.context)
	if d.buffers, err = newBufferDescriptors(d.context); err != nil {
		d.Close()
		return nil, err
	}

	// Swapchain
	if d.swapchain, err = SwapchainCreate(d, opts.Width, opts.Height, opts.VSync); err != nil {
		d.Close()
		return nil, err
	}

	core.LogInfo("Vulkan renderer initialized successfully.")
	return d, nil
}

func (d *Device) createInstance(opts Options) error {
	// Setup Vulkan instance.
	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(opts.AppName),
		PEngineName:        VulkanSafeString("Lumen"),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	// Obtain a list of required extensions
	requiredExtensions := []string{"VK_KHR_surface"} // Generic surface extension
	requiredExtensions = append(requiredExtensions, opts.Window.GetRequiredInstanceExtensions()...)
	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
		// VK_INSTANCE_CREATE_ENUMERATE_PORTABILITY_BIT_KHR
		createInfo.Flags |= 1
	}
	if opts.Validation {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugReportExtensionName)
		core.LogInfo("Required extensions:")
		for _, name := range requiredExtensions {
			core.LogInfo(name)
		}
	}
	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	// Validation layers should only be enabled on non-release builds.
	var layers []string
	if opts.Validation {
		core.LogInfo("Validation layers enabled. Enumerating...")
		layers = []string{"VK_LAYER_KHRONOS_validation"}
		if err := checkLayers(layers); err != nil {
			return err
		}
		core.LogInfo("All required validation layers are present.")
	}
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	if err := vkCheck("vkCreateInstance", vk.CreateInstance(&createInfo, d.context.Allocator, &d.context.Instance)); err != nil {
		return err
	}
	if err := vk.InitInstance(d.context.Instance); err != nil {
		return core.NewDeviceError("vk.InitInstance", -1, err.Error(), nil)
	}
	core.LogInfo("Vulkan Instance created.")

	// Debugger
	if opts.Validation {
		core.LogDebug("Creating Vulkan debugger...")
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vkCheck("vkCreateDebugReportCallbackEXT", vk.CreateDebugReportCallback(d.context.Instance, &debugCreateInfo, nil, &dbg)); err != nil {
			return err
		}
		d.context.debugMessenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}
	return nil
}

func checkLayers(required []string) error {
	var count uint32
	if err := vkCheck("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&count, nil)); err != nil {
		return err
	}
	available := make([]vk.LayerProperties, count)
	if err := vkCheck("vkEnumerateInstanceLayerProperties", vk.EnumerateInstanceLayerProperties(&count, available)); err != nil {
		return err
	}
	names := make(map[string]struct{}, count)
	for i := range available {
		available[i].Deref()
		name := available[i].LayerName[:]
		names[string(name[:FindFirstZeroInByteArray(name)])] = struct{}{}
	}
	for _, layer := range required {
		core.LogInfo("Searching for layer: %s...", layer)
		if _, ok := names[layer]; !ok {
			return core.NewDeviceError("vkCreateInstance", -1, fmt.Sprintf("required validation layer is missing: %s", layer), nil)
		}
	}
	return nil
}

func (d *Device) Queue() gpu.Queue {
	return d.queue
}

func (d *Device) Swapchain() gpu.Swapchain {
	return d.swapchain
}

func (d *Device) CreateFence(initialValue uint64) (gpu.Fence, error) {
	return newFence(d.context, initialValue), nil
}

func (d *Device) CreateCommandAllocator() (gpu.CommandAllocator, error) {
	return newCommandAllocator(d.context)
}

func (d *Device) CreateCommandList(alloc gpu.CommandAllocator) (gpu.CommandList, error) {
	a, ok := alloc.(*CommandAllocator)
	if !ok {
		return nil, core.NewDeviceError("CreateCommandList", -1, "allocator is not a vulkan command pool", nil)
	}
	l, err := newCommandList(d, a)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.lists = append(d.lists, l)
	d.mu.Unlock()
	return l, nil
}

func (d *Device) CreateUploadBuffer(name string, size uint64, usage gpu.BufferUsage) (gpu.Buffer, error) {
	b, err := newBuffer(d.context, name, size, bufferUsage(usage), true)
	if err != nil {
		return nil, err
	}
	b.usage = usage
	return b, nil
}

func (d *Device) CreateBuffer(name string, usage gpu.BufferUsage, data []byte) (gpu.Buffer, error) {
	return newStaticBuffer(d.context, name, usage, data)
}

func (d *Device) CreateTexture(desc gpu.TextureDesc, data [][]byte) (gpu.Texture, error) {
	t, err := ImageCreate(d.context, desc, data)
	if err != nil {
		return nil, err
	}
	t.onRelease = d.passes.forget
	return t, nil
}

func (d *Device) CreateDescriptorHeap(capacity int) (gpu.DescriptorHeap, error) {
	heap, err := newDescriptorHeap(d.context, capacity)
	if err != nil {
		return nil, err
	}
	d.heap = heap
	return heap, nil
}

func (d *Device) CreateRootSignature(desc gpu.RootSignatureDesc) (gpu.RootSignature, error) {
	return newRootSignature(d.context, d.buffers, d.heap, desc)
}

func (d *Device) CreatePipelineState(desc gpu.PipelineStateDesc) (gpu.PipelineState, error) {
	return NewGraphicsPipeline(d.context, d.passes, desc)
}

func (d *Device) WaitIdle() error {
	if d.context.Device.LogicalDevice == nil {
		return nil
	}
	return vkCheck("vkDeviceWaitIdle", vk.DeviceWaitIdle(d.context.Device.LogicalDevice))
}

// Close destroys everything the device still owns, in the opposite order of
// creation. Objects handed out to callers must be released before.
func (d *Device) Close() error {
	err := d.WaitIdle()

	d.mu.Lock()
	for _, l := range d.lists {
		l.release()
	}
	d.lists = nil
	d.mu.Unlock()

	if d.swapchain != nil {
		d.swapchain.SwapchainDestroy()
		d.swapchain = nil
	}
	if d.passes != nil {
		d.passes.destroy()
		d.passes = nil
	}
	if d.buffers != nil {
		d.buffers.destroy()
		d.buffers = nil
	}

	core.LogDebug("Destroying Vulkan device...")
	DeviceDestroy(d.context)

	core.LogDebug("Destroying Vulkan surface...")
	if d.context.Surface != vk.NullSurface {
		vk.DestroySurface(d.context.Instance, d.context.Surface, d.context.Allocator)
		d.context.Surface = vk.NullSurface
	}

	if d.context.debugMessenger != vk.NullDebugReportCallback {
		core.LogDebug("Destroying Vulkan debugger...")
		vk.DestroyDebugReportCallback(d.context.Instance, d.context.debugMessenger, d.context.Allocator)
		d.context.debugMessenger = vk.NullDebugReportCallback
	}

	if d.context.Instance != nil {
		core.LogDebug("Destroying Vulkan instance...")
		vk.DestroyInstance(d.context.Instance, d.context.Allocator)
		d.context.Instance = nil
	}
	return err
}

// Queue implements gpu.Queue on the graphics queue.
type Queue struct {
	device *Device
}

func (q *Queue) Execute(lists ...gpu.CommandList) error {
	handles := make([]vk.CommandBuffer, 0, len(lists))
	for _, list := range lists {
		l, ok := list.(*CommandList)
		if !ok {
			return core.NewDeviceError("vkQueueSubmit", -1, "command list is not a vulkan command list", nil)
		}
		if l.open {
			return core.NewDeviceError("vkQueueSubmit", -1, "command list is still recording", nil)
		}
		l.current.UpdateSubmitted()
		handles = append(handles, l.current.Handle)
	}

	submit := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: uint32(len(handles)),
		PCommandBuffers:    handles,
	}
	if wait, signal := q.device.swapchain.submitSemaphores(); wait != nil {
		submit.WaitSemaphoreCount = 1
		submit.PWaitSemaphores = []vk.Semaphore{wait}
		// Each semaphore waits on the corresponding pipeline stage to complete.
		submit.PWaitDstStageMask = []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)}
		submit.SignalSemaphoreCount = 1
		submit.PSignalSemaphores = []vk.Semaphore{signal}
	}

	context := q.device.context
	return context.locks.SafeQueueCall(uint32(context.Device.GraphicsQueueIndex), func() error {
		return vkCheck("vkQueueSubmit", vk.QueueSubmit(context.Device.GraphicsQueue, 1, []vk.SubmitInfo{submit}, vk.NullFence))
	})
}

// Signal submits an empty batch carrying a binary fence tagged with value.
func (q *Queue) Signal(fence gpu.Fence, value uint64) error {
	f, ok := fence.(*Fence)
	if !ok {
		return core.NewDeviceError("vkQueueSubmit", -1, "fence is not a vulkan fence", nil)
	}
	vf, err := f.acquire()
	if err != nil {
		return err
	}
	context := q.device.context
	err = context.locks.SafeQueueCall(uint32(context.Device.GraphicsQueueIndex), func() error {
		return vkCheck("vkQueueSubmit", vk.QueueSubmit(context.Device.GraphicsQueue, 0, nil, vf.Handle))
	})
	if err != nil {
		return err
	}
	f.enqueue(value, vf)
	return nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("ERROR: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE WARNING: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("INFORMATION: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.False
}
