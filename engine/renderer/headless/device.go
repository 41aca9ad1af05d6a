// Package headless implements the gpu interfaces in memory. Command lists
// record what they were asked to do, fences only advance when told to, and
// resource state transitions are checked as they are recorded.
package headless

import (
	"fmt"
	"sync"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

type Options struct {
	Width       uint32
	Height      uint32
	BufferCount int
	// AutoComplete makes every Signal complete immediately, as if the GPU
	// finished the work the moment it was submitted.
	AutoComplete bool
}

type Device struct {
	mu         sync.Mutex
	opts       Options
	queue      *Queue
	swapchain  *Swapchain
	violations []string
	closed     bool
}

func New(opts Options) *Device {
	if opts.BufferCount <= 0 {
		opts.BufferCount = 2
	}
	d := &Device{opts: opts}
	d.queue = &Queue{device: d}
	d.swapchain = newSwapchain(d, opts.Width, opts.Height, opts.BufferCount)
	core.LogDebug("headless device created (%dx%d, %d back buffers)", opts.Width, opts.Height, opts.BufferCount)
	return d
}

func (d *Device) Queue() gpu.Queue {
	return d.queue
}

// HeadlessQueue exposes the recording queue for inspection.
func (d *Device) HeadlessQueue() *Queue {
	return d.queue
}

func (d *Device) Swapchain() gpu.Swapchain {
	return d.swapchain
}

func (d *Device) HeadlessSwapchain() *Swapchain {
	return d.swapchain
}

func (d *Device) SetAutoComplete(v bool) {
	d.mu.Lock()
	d.opts.AutoComplete = v
	d.mu.Unlock()
}

func (d *Device) autoComplete() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.opts.AutoComplete
}

func (d *Device) violate(format string, args ...interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.violations = append(d.violations, fmt.Sprintf(format, args...))
}

// Violations lists every misuse detected while recording, such as a barrier
// whose before-state does not match the tracked state.
func (d *Device) Violations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.violations...)
}

func (d *Device) CreateFence(initialValue uint64) (gpu.Fence, error) {
	return newFence(initialValue), nil
}

func (d *Device) CreateCommandAllocator() (gpu.CommandAllocator, error) {
	return &CommandAllocator{}, nil
}

func (d *Device) CreateCommandList(alloc gpu.CommandAllocator) (gpu.CommandList, error) {
	a, ok := alloc.(*CommandAllocator)
	if !ok || a == nil {
		return nil, core.NewDeviceError("CreateCommandList", -1, "allocator does not belong to this device", nil)
	}
	return &CommandList{device: d, alloc: a, open: true}, nil
}

func (d *Device) CreateUploadBuffer(name string, size uint64, usage gpu.BufferUsage) (gpu.Buffer, error) {
	if size == 0 {
		return nil, core.NewDeviceError("CreateUploadBuffer", -1, fmt.Sprintf("buffer %q has zero size", name), nil)
	}
	return &Buffer{name: name, usage: usage, data: make([]byte, size), mapped: true}, nil
}

func (d *Device) CreateBuffer(name string, usage gpu.BufferUsage, data []byte) (gpu.Buffer, error) {
	if len(data) == 0 {
		return nil, core.NewDeviceError("CreateBuffer", -1, fmt.Sprintf("buffer %q has no data", name), nil)
	}
	return &Buffer{name: name, usage: usage, data: append([]byte(nil), data...)}, nil
}

func (d *Device) CreateTexture(desc gpu.TextureDesc, data [][]byte) (gpu.Texture, error) {
	if desc.Width == 0 || desc.Height == 0 {
		return nil, core.NewDeviceError("CreateTexture", -1, fmt.Sprintf("texture %q has zero extent", desc.Name), nil)
	}
	if desc.MipLevels == 0 {
		desc.MipLevels = 1
	}
	if desc.ArraySize == 0 {
		desc.ArraySize = 1
	}
	if data != nil && len(data) != int(desc.MipLevels*desc.ArraySize) {
		return nil, core.NewDeviceError("CreateTexture", -1,
			fmt.Sprintf("texture %q expects %d subresources, got %d", desc.Name, desc.MipLevels*desc.ArraySize, len(data)), nil)
	}
	return &Texture{desc: desc, state: desc.State}, nil
}

func (d *Device) CreateDescriptorHeap(capacity int) (gpu.DescriptorHeap, error) {
	if capacity <= 0 {
		return nil, core.NewDeviceError("CreateDescriptorHeap", -1, "capacity must be positive", nil)
	}
	return &DescriptorHeap{slots: make([]Slot, capacity)}, nil
}

func (d *Device) CreateRootSignature(desc gpu.RootSignatureDesc) (gpu.RootSignature, error) {
	for i, p := range desc.Params {
		if p.Kind == gpu.RootParamDescriptorTable && p.Count == 0 {
			return nil, core.NewDeviceError("CreateRootSignature", -1, fmt.Sprintf("%s: table %d is empty", desc.Name, i), nil)
		}
	}
	return &RootSignature{desc: desc}, nil
}

func (d *Device) CreatePipelineState(desc gpu.PipelineStateDesc) (gpu.PipelineState, error) {
	switch {
	case desc.RootSignature == nil:
		return nil, core.NewDeviceError("CreatePipelineState", -1, fmt.Sprintf("%s: missing root signature", desc.Name), nil)
	case len(desc.VS) == 0:
		return nil, core.NewDeviceError("CreatePipelineState", -1, fmt.Sprintf("%s: missing vertex shader", desc.Name), core.ErrShaderCompile)
	case desc.DepthStencil.DepthEnable && desc.DSFormat == gpu.FormatUnknown:
		return nil, core.NewDeviceError("CreatePipelineState", -1, fmt.Sprintf("%s: depth test without a depth format", desc.Name), nil)
	case len(desc.RTFormats) > 8:
		return nil, core.NewDeviceError("CreatePipelineState", -1, fmt.Sprintf("%s: too many render targets", desc.Name), nil)
	}
	return &PipelineState{desc: desc.Clone()}, nil
}

// WaitIdle completes every pending signal.
func (d *Device) WaitIdle() error {
	d.queue.Drain()
	return nil
}

func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
