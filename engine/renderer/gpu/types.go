package gpu

// Format of a texture or render target.
type Format uint8

const (
	FormatUnknown Format = iota
	FormatRGBA8Unorm
	FormatBGRA8Unorm
	FormatRGBA16Float
	FormatR16Unorm
	FormatR32Float
	FormatD24UnormS8Uint
	FormatD32FloatS8Uint
)

func (f Format) String() string {
	switch f {
	case FormatRGBA8Unorm:
		return "RGBA8_UNORM"
	case FormatBGRA8Unorm:
		return "BGRA8_UNORM"
	case FormatRGBA16Float:
		return "RGBA16_FLOAT"
	case FormatR16Unorm:
		return "R16_UNORM"
	case FormatR32Float:
		return "R32_FLOAT"
	case FormatD24UnormS8Uint:
		return "D24_UNORM_S8_UINT"
	case FormatD32FloatS8Uint:
		return "D32_FLOAT_S8_UINT"
	}
	return "UNKNOWN"
}

// IsDepth reports whether the format carries depth (and stencil).
func (f Format) IsDepth() bool {
	return f == FormatD24UnormS8Uint || f == FormatD32FloatS8Uint
}

// BytesPerPixel of color formats. Depth formats return 4.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatRGBA16Float:
		return 8
	case FormatR16Unorm:
		return 2
	case FormatUnknown:
		return 0
	}
	return 4
}

// ResourceState is the usage a texture is currently prepared for. Transitions
// are explicit through CommandList.ResourceBarrier.
type ResourceState uint8

const (
	StateCommon ResourceState = iota
	StateGenericRead
	StateRenderTarget
	StateDepthWrite
	StatePresent
	StateCopyDest
)

func (s ResourceState) String() string {
	switch s {
	case StateCommon:
		return "COMMON"
	case StateGenericRead:
		return "GENERIC_READ"
	case StateRenderTarget:
		return "RENDER_TARGET"
	case StateDepthWrite:
		return "DEPTH_WRITE"
	case StatePresent:
		return "PRESENT"
	case StateCopyDest:
		return "COPY_DEST"
	}
	return "UNKNOWN"
}

type TextureUsage uint8

const (
	UsageSampled TextureUsage = 1 << iota
	UsageRenderTarget
	UsageDepthStencil
)

type BufferUsage uint8

const (
	BufferUsageConstant BufferUsage = iota
	BufferUsageStructured
	BufferUsageVertex
	BufferUsageIndex
)

type IndexFormat uint8

const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

type Topology uint8

const (
	TopologyTriangleList Topology = iota
	TopologyLineList
)

type Viewport struct {
	X, Y, Width, Height float32
	MinDepth, MaxDepth  float32
}

type Rect struct {
	Left, Top, Right, Bottom int32
}

// NewViewport covers a width x height target with the full depth range.
func NewViewport(width, height uint32) Viewport {
	return Viewport{Width: float32(width), Height: float32(height), MinDepth: 0, MaxDepth: 1}
}

func NewRect(width, height uint32) Rect {
	return Rect{Right: int32(width), Bottom: int32(height)}
}

type TextureDesc struct {
	Name      string
	Width     uint32
	Height    uint32
	MipLevels uint32
	// 6 for cube maps
	ArraySize uint32
	Cube      bool
	Format    Format
	Usage     TextureUsage
	// Initial state after creation.
	State ResourceState
}
