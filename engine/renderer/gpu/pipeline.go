package gpu

type RootParamKind uint8

const (
	// A constant buffer bound by address, with a per-draw offset.
	RootParamConstantBuffer RootParamKind = iota
	// A structured (storage) buffer bound whole.
	RootParamShaderResource
	// A contiguous range of the descriptor heap starting at a base index.
	RootParamDescriptorTable
	// 32-bit constants written inline.
	RootParamConstants
)

type RootParam struct {
	Kind RootParamKind
	// Shader register (b#, t#) in the parameter's space.
	Register uint32
	// Number of descriptors of a table, or of 32-bit values for constants.
	Count uint32
}

type Filter uint8

const (
	FilterPoint Filter = iota
	FilterLinear
	FilterAnisotropic
)

type AddressMode uint8

const (
	AddressWrap AddressMode = iota
	AddressClamp
	AddressBorder
)

type BorderColor uint8

const (
	BorderOpaqueBlack BorderColor = iota
	BorderOpaqueWhite
	BorderTransparentBlack
)

type ComparisonFunc uint8

const (
	CompareNever ComparisonFunc = iota
	CompareLess
	CompareEqual
	CompareLessEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterEqual
	CompareAlways
)

type SamplerDesc struct {
	Register      uint32
	Filter        Filter
	Address       AddressMode
	MipLODBias    float32
	MaxAnisotropy uint32
	// Comparison samplers set Compare to true.
	Compare     bool
	CompareFunc ComparisonFunc
	Border      BorderColor
}

type RootSignatureDesc struct {
	Name           string
	Params         []RootParam
	StaticSamplers []SamplerDesc
}

type RootSignature interface {
	Desc() RootSignatureDesc
	Release()
}

type CullMode uint8

const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

type RasterizerDesc struct {
	Cull                  CullMode
	FrontCounterClockwise bool
	Wireframe             bool
	DepthBias             int32
	DepthBiasClamp        float32
	SlopeScaledDepthBias  float32
}

type Blend uint8

const (
	BlendZero Blend = iota
	BlendOne
	BlendSrcAlpha
	BlendInvSrcAlpha
)

type BlendOp uint8

const (
	BlendOpAdd BlendOp = iota
	BlendOpSubtract
)

type ColorWrite uint8

const (
	ColorWriteRed ColorWrite = 1 << iota
	ColorWriteGreen
	ColorWriteBlue
	ColorWriteAlpha
	ColorWriteAll = ColorWriteRed | ColorWriteGreen | ColorWriteBlue | ColorWriteAlpha
)

type BlendDesc struct {
	Enable    bool
	Src       Blend
	Dst       Blend
	Op        BlendOp
	SrcAlpha  Blend
	DstAlpha  Blend
	AlphaOp   BlendOp
	WriteMask ColorWrite
}

type StencilOp uint8

const (
	StencilKeep StencilOp = iota
	StencilZero
	StencilReplace
	StencilIncrSat
	StencilDecrSat
	StencilInvert
	StencilIncr
	StencilDecr
)

type StencilOpDesc struct {
	Fail      StencilOp
	DepthFail StencilOp
	Pass      StencilOp
	Func      ComparisonFunc
}

type DepthStencilDesc struct {
	DepthEnable      bool
	DepthWrite       bool
	DepthFunc        ComparisonFunc
	StencilEnable    bool
	StencilReadMask  uint8
	StencilWriteMask uint8
	Front            StencilOpDesc
	Back             StencilOpDesc
}

type VertexFormat uint8

const (
	VertexFloat2 VertexFormat = iota
	VertexFloat3
	VertexFloat4
)

type VertexAttribute struct {
	Semantic string
	Location uint32
	Format   VertexFormat
	Offset   uint32
}

type PipelineStateDesc struct {
	Name          string
	RootSignature RootSignature
	VS            []byte
	PS            []byte
	// Empty for passes that generate their vertices in the shader.
	InputLayout  []VertexAttribute
	VertexStride uint32
	Rasterizer   RasterizerDesc
	Blend        BlendDesc
	DepthStencil DepthStencilDesc
	Topology     Topology
	RTFormats    []Format
	DSFormat     Format
	SampleCount  uint32
}

type PipelineState interface {
	Desc() PipelineStateDesc
	Release()
}

// DefaultRasterizer culls back faces with clockwise front faces.
func DefaultRasterizer() RasterizerDesc {
	return RasterizerDesc{Cull: CullBack}
}

func DefaultBlend() BlendDesc {
	return BlendDesc{
		Src:       BlendOne,
		Dst:       BlendZero,
		Op:        BlendOpAdd,
		SrcAlpha:  BlendOne,
		DstAlpha:  BlendZero,
		AlphaOp:   BlendOpAdd,
		WriteMask: ColorWriteAll,
	}
}

func DefaultDepthStencil() DepthStencilDesc {
	keep := StencilOpDesc{Fail: StencilKeep, DepthFail: StencilKeep, Pass: StencilKeep, Func: CompareAlways}
	return DepthStencilDesc{
		DepthEnable:      true,
		DepthWrite:       true,
		DepthFunc:        CompareLess,
		StencilReadMask:  0xff,
		StencilWriteMask: 0xff,
		Front:            keep,
		Back:             keep,
	}
}

// Clone returns a copy whose slices can be modified independently.
func (d PipelineStateDesc) Clone() PipelineStateDesc {
	out := d
	out.InputLayout = append([]VertexAttribute(nil), d.InputLayout...)
	out.RTFormats = append([]Format(nil), d.RTFormats...)
	return out
}
