package gpu

import "context"

// Device creates every GPU object. Implementations: vulkan (windowed) and
// headless (in-memory, used by tests and CI runs).
type Device interface {
	Queue() Queue
	Swapchain() Swapchain

	CreateFence(initialValue uint64) (Fence, error)
	CreateCommandAllocator() (CommandAllocator, error)
	CreateCommandList(alloc CommandAllocator) (CommandList, error)

	// CreateUploadBuffer returns a host-visible buffer that stays mapped until Release.
	CreateUploadBuffer(name string, size uint64, usage BufferUsage) (Buffer, error)
	// CreateBuffer returns a device-local buffer initialized with data.
	CreateBuffer(name string, usage BufferUsage, data []byte) (Buffer, error)
	// CreateTexture creates a texture. data holds one slice per (layer, mip) with
	// mips varying fastest. It is nil for render and depth targets.
	CreateTexture(desc TextureDesc, data [][]byte) (Texture, error)

	CreateDescriptorHeap(capacity int) (DescriptorHeap, error)
	CreateRootSignature(desc RootSignatureDesc) (RootSignature, error)
	CreatePipelineState(desc PipelineStateDesc) (PipelineState, error)

	// WaitIdle blocks until all submitted work is done.
	WaitIdle() error
	Close() error
}

// Fence is a monotonically increasing counter the GPU advances as it finishes work.
type Fence interface {
	CompletedValue() uint64
	// Wait blocks until CompletedValue() >= value.
	Wait(ctx context.Context, value uint64) error
	Release()
}

type Queue interface {
	Execute(lists ...CommandList) error
	// Signal sets the fence to value once all previously executed work completes.
	Signal(fence Fence, value uint64) error
}

type CommandAllocator interface {
	Reset() error
	Release()
}

type Buffer interface {
	Name() string
	Size() uint64
	// Mapped returns the persistently mapped bytes of an upload buffer, nil otherwise.
	Mapped() []byte
	Release()
}

type Texture interface {
	Desc() TextureDesc
	Release()
}

// DescriptorHeap is a flat array of shader-visible texture slots.
type DescriptorHeap interface {
	Capacity() int
	SetTexture(index int, tex Texture) error
	// SetNull fills a slot with an empty 2D or cube texture.
	SetNull(index int, cube bool) error
	Release()
}

type Swapchain interface {
	Width() uint32
	Height() uint32
	Format() Format
	BufferCount() int
	// CurrentBackBuffer is the image the next frame renders into. Its state is
	// StatePresent when handed out.
	CurrentBackBuffer() Texture
	Present(vsync bool) error
	Resize(width, height uint32) error
}

type CommandList interface {
	Reset(alloc CommandAllocator, initial PipelineState) error
	Close() error

	ResourceBarrier(tex Texture, before, after ResourceState)

	SetViewport(vp Viewport)
	SetScissor(r Rect)
	SetRenderTargets(colors []Texture, depth Texture)
	ClearRenderTarget(tex Texture, color [4]float32)
	ClearDepthStencil(tex Texture, depth float32, stencil uint8)

	SetRootSignature(rs RootSignature)
	SetDescriptorHeap(heap DescriptorHeap)
	SetPipelineState(pso PipelineState)
	SetStencilRef(ref uint32)

	SetConstantBuffer(param int, buf Buffer, offset uint64)
	SetShaderResource(param int, buf Buffer)
	SetDescriptorTable(param int, baseIndex int)
	SetRootConstant(param int, value uint32)

	SetVertexBuffer(buf Buffer, stride uint32)
	SetIndexBuffer(buf Buffer, format IndexFormat)
	SetPrimitiveTopology(t Topology)
	DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32)
	DrawInstanced(vertexCount, instanceCount, startVertex, startInstance uint32)
}
