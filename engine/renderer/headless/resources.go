package headless

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

type Buffer struct {
	name     string
	usage    gpu.BufferUsage
	data     []byte
	mapped   bool
	released bool
}

func (b *Buffer) Name() string {
	return b.name
}

func (b *Buffer) Size() uint64 {
	return uint64(len(b.data))
}

func (b *Buffer) Mapped() []byte {
	if !b.mapped || b.released {
		return nil
	}
	return b.data
}

// Bytes returns the contents regardless of mapping, for inspection.
func (b *Buffer) Bytes() []byte {
	return b.data
}

func (b *Buffer) Released() bool {
	return b.released
}

func (b *Buffer) Release() {
	b.released = true
}

type Texture struct {
	desc     gpu.TextureDesc
	state    gpu.ResourceState
	released bool
}

func (t *Texture) Desc() gpu.TextureDesc {
	return t.desc
}

// State is the state recorded by the last barrier.
func (t *Texture) State() gpu.ResourceState {
	return t.state
}

func (t *Texture) Release() {
	t.released = true
}

func (t *Texture) Released() bool {
	return t.released
}

type Slot struct {
	Texture gpu.Texture
	Null    bool
	Cube    bool
}

type DescriptorHeap struct {
	slots []Slot
}

func (h *DescriptorHeap) Capacity() int {
	return len(h.slots)
}

func (h *DescriptorHeap) SetTexture(index int, tex gpu.Texture) error {
	if index < 0 || index >= len(h.slots) {
		return core.NewDeviceError("CreateShaderResourceView", -1, fmt.Sprintf("heap index %d out of range", index), nil)
	}
	h.slots[index] = Slot{Texture: tex, Cube: tex.Desc().Cube}
	return nil
}

func (h *DescriptorHeap) SetNull(index int, cube bool) error {
	if index < 0 || index >= len(h.slots) {
		return core.NewDeviceError("CreateShaderResourceView", -1, fmt.Sprintf("heap index %d out of range", index), nil)
	}
	h.slots[index] = Slot{Null: true, Cube: cube}
	return nil
}

func (h *DescriptorHeap) Slot(index int) Slot {
	return h.slots[index]
}

func (h *DescriptorHeap) Release() {}

type RootSignature struct {
	desc gpu.RootSignatureDesc
}

func (r *RootSignature) Desc() gpu.RootSignatureDesc {
	return r.desc
}

func (r *RootSignature) Release() {}

type PipelineState struct {
	desc gpu.PipelineStateDesc
}

func (p *PipelineState) Desc() gpu.PipelineStateDesc {
	return p.desc
}

func (p *PipelineState) Release() {}

// Swapchain is an offscreen ring of back buffers.
type Swapchain struct {
	device   *Device
	width    uint32
	height   uint32
	buffers  []*Texture
	current  int
	presents int
}

func newSwapchain(d *Device, width, height uint32, count int) *Swapchain {
	s := &Swapchain{device: d}
	s.allocate(width, height, count)
	return s
}

func (s *Swapchain) allocate(width, height uint32, count int) {
	s.width, s.height = width, height
	s.buffers = make([]*Texture, count)
	for i := range s.buffers {
		s.buffers[i] = &Texture{
			desc: gpu.TextureDesc{
				Name:      fmt.Sprintf("back_buffer_%d", i),
				Width:     width,
				Height:    height,
				MipLevels: 1,
				ArraySize: 1,
				Format:    gpu.FormatRGBA8Unorm,
				Usage:     gpu.UsageRenderTarget,
				State:     gpu.StatePresent,
			},
			state: gpu.StatePresent,
		}
	}
	s.current = 0
}

func (s *Swapchain) Width() uint32 { return s.width }
func (s *Swapchain) Height() uint32 { return s.height }
func (s *Swapchain) Format() gpu.Format { return gpu.FormatRGBA8Unorm }
func (s *Swapchain) BufferCount() int { return len(s.buffers) }
func (s *Swapchain) Presents() int { return s.presents }
func (s *Swapchain) CurrentIndex() int { return s.current }

func (s *Swapchain) CurrentBackBuffer() gpu.Texture {
	return s.buffers[s.current]
}

func (s *Swapchain) Present(vsync bool) error {
	bb := s.buffers[s.current]
	if bb.state != gpu.StatePresent {
		s.device.violate("present: %s is in %s", bb.desc.Name, bb.state)
	}
	s.presents++
	s.current = (s.current + 1) % len(s.buffers)
	return nil
}

func (s *Swapchain) Resize(width, height uint32) error {
	if width == 0 || height == 0 {
		return core.NewDeviceError("ResizeBuffers", -1, "zero extent", core.ErrSwapchainBooting)
	}
	s.allocate(width, height, len(s.buffers))
	return nil
}
