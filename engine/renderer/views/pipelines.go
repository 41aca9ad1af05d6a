package views

import (
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
	"github.com/spaghettifunk/lumen/engine/systems"
)

// Pipeline state names.
const (
	PipelineOpaque            = "opaque"
	PipelineSky               = "sky"
	PipelineDebug             = "debug"
	PipelineMarkMirrors       = "mark_stencil_mirrors"
	PipelineStencilReflection = "draw_stencil_reflections"
	PipelineTransparent       = "transparent"
	PipelineAlphaTested       = "alpha_tested"
	PipelineShadow            = "shadow_opaque"
	PipelineNormals           = "draw_normals"
	PipelineSsao              = "ssao"
	PipelineSsaoBlur          = "ssao_blur"
)

const (
	DepthStencilFormat = gpu.FormatD24UnormS8Uint
	NormalMapFormat    = gpu.FormatRGBA16Float
	AmbientMapFormat   = gpu.FormatR16Unorm
)

/**
 * @brief The six samplers shared by every material shader plus the shadow
 * comparison sampler, registers s0 to s6.
 */
func StaticSamplers() []gpu.SamplerDesc {
	return []gpu.SamplerDesc{
		{Register: 0, Filter: gpu.FilterPoint, Address: gpu.AddressWrap},
		{Register: 1, Filter: gpu.FilterPoint, Address: gpu.AddressClamp},
		{Register: 2, Filter: gpu.FilterLinear, Address: gpu.AddressWrap},
		{Register: 3, Filter: gpu.FilterLinear, Address: gpu.AddressClamp},
		{Register: 4, Filter: gpu.FilterAnisotropic, Address: gpu.AddressWrap, MaxAnisotropy: 8},
		{Register: 5, Filter: gpu.FilterAnisotropic, Address: gpu.AddressClamp, MaxAnisotropy: 8},
		{Register: 6, Filter: gpu.FilterLinear, Address: gpu.AddressBorder, MaxAnisotropy: 16,
			Compare: true, CompareFunc: gpu.CompareLessEqual, Border: gpu.BorderOpaqueBlack},
	}
}

// SsaoSamplers are point/linear clamp, depth border and linear wrap. Depth
// outside the map reads as the far plane.
func SsaoSamplers() []gpu.SamplerDesc {
	return []gpu.SamplerDesc{
		{Register: 0, Filter: gpu.FilterPoint, Address: gpu.AddressClamp},
		{Register: 1, Filter: gpu.FilterLinear, Address: gpu.AddressClamp},
		{Register: 2, Filter: gpu.FilterLinear, Address: gpu.AddressBorder, Border: gpu.BorderOpaqueWhite},
		{Register: 3, Filter: gpu.FilterLinear, Address: gpu.AddressWrap},
	}
}

// BuildRootSignatures creates the main and SSAO root signatures.
func BuildRootSignatures(ps *systems.PipelineSystem) (main, ssao gpu.RootSignature, err error) {
	main, err = ps.BuildRootSignature(gpu.RootSignatureDesc{
		Name: "main",
		Params: []gpu.RootParam{
			RootObjectCB:       {Kind: gpu.RootParamConstantBuffer, Register: 0},
			RootPassCB:         {Kind: gpu.RootParamConstantBuffer, Register: 1},
			RootMaterialBuffer: {Kind: gpu.RootParamShaderResource, Register: 0},
			RootSceneMaps:      {Kind: gpu.RootParamDescriptorTable, Register: 0, Count: SceneMapCount},
			RootTextureTable:   {Kind: gpu.RootParamDescriptorTable, Register: SceneMapCount, Count: TextureTableSize},
		},
		StaticSamplers: StaticSamplers(),
	})
	if err != nil {
		return nil, nil, err
	}
	ssao, err = ps.BuildRootSignature(gpu.RootSignatureDesc{
		Name: "ssao",
		Params: []gpu.RootParam{
			RootSsaoCB:          {Kind: gpu.RootParamConstantBuffer, Register: 0},
			RootSsaoConstants:   {Kind: gpu.RootParamConstants, Register: 1, Count: 1},
			RootSsaoNormalDepth: {Kind: gpu.RootParamDescriptorTable, Register: 0, Count: 2},
			RootSsaoInput:       {Kind: gpu.RootParamDescriptorTable, Register: 2, Count: 1},
		},
		StaticSamplers: SsaoSamplers(),
	})
	if err != nil {
		return nil, nil, err
	}
	return main, ssao, nil
}

/**
 * @brief Creates every pipeline state the passes use. Called once at
 * initialization; nothing is compiled while drawing.
 * @param backBuffer The swapchain format.
 */
func BuildPipelines(ps *systems.PipelineSystem, shaders *systems.ShaderSystem, main, ssao gpu.RootSignature, backBuffer gpu.Format) error {
	standardVS, standardPS, err := shaders.Program("standard", "standard")
	if err != nil {
		return err
	}

	opaque := gpu.PipelineStateDesc{
		Name:          PipelineOpaque,
		RootSignature: main,
		VS:            standardVS,
		PS:            standardPS,
		InputLayout:   metadata.VertexLayout,
		VertexStride:  metadata.VertexByteStride,
		Rasterizer:    gpu.DefaultRasterizer(),
		Blend:         gpu.DefaultBlend(),
		DepthStencil:  gpu.DefaultDepthStencil(),
		Topology:      gpu.TopologyTriangleList,
		RTFormats:     []gpu.Format{backBuffer},
		DSFormat:      DepthStencilFormat,
		SampleCount:   1,
	}
	descs := []gpu.PipelineStateDesc{opaque}

	// Mirrors only write stencil.
	mark := opaque.Clone()
	mark.Name = PipelineMarkMirrors
	mark.Blend.WriteMask = 0
	mark.DepthStencil.DepthWrite = false
	mark.DepthStencil.StencilEnable = true
	replace := gpu.StencilOpDesc{Fail: gpu.StencilKeep, DepthFail: gpu.StencilKeep, Pass: gpu.StencilReplace, Func: gpu.CompareAlways}
	mark.DepthStencil.Front = replace
	mark.DepthStencil.Back = replace
	descs = append(descs, mark)

	// Reflections draw where the stencil was marked. Reflecting flips the
	// winding, so front faces become counter-clockwise.
	reflect := opaque.Clone()
	reflect.Name = PipelineStencilReflection
	reflect.DepthStencil.StencilEnable = true
	equal := gpu.StencilOpDesc{Fail: gpu.StencilKeep, DepthFail: gpu.StencilKeep, Pass: gpu.StencilKeep, Func: gpu.CompareEqual}
	reflect.DepthStencil.Front = equal
	reflect.DepthStencil.Back = equal
	reflect.Rasterizer.Cull = gpu.CullBack
	reflect.Rasterizer.FrontCounterClockwise = true
	descs = append(descs, reflect)

	transparent := opaque.Clone()
	transparent.Name = PipelineTransparent
	transparent.Blend = gpu.BlendDesc{
		Enable:    true,
		Src:       gpu.BlendSrcAlpha,
		Dst:       gpu.BlendInvSrcAlpha,
		Op:        gpu.BlendOpAdd,
		SrcAlpha:  gpu.BlendOne,
		DstAlpha:  gpu.BlendZero,
		AlphaOp:   gpu.BlendOpAdd,
		WriteMask: gpu.ColorWriteAll,
	}
	descs = append(descs, transparent)

	alphaPS, err := shaders.Load("alpha_tested.frag")
	if err != nil {
		return err
	}
	alpha := opaque.Clone()
	alpha.Name = PipelineAlphaTested
	alpha.PS = alphaPS.Code
	alpha.Rasterizer.Cull = gpu.CullNone
	descs = append(descs, alpha)

	skyVS, skyPS, err := shaders.Program("sky", "sky")
	if err != nil {
		return err
	}
	sky := opaque.Clone()
	sky.Name = PipelineSky
	sky.VS, sky.PS = skyVS, skyPS
	// The camera sits inside the sphere, and the sky is drawn at depth 1.
	sky.Rasterizer.Cull = gpu.CullNone
	sky.DepthStencil.DepthFunc = gpu.CompareLessEqual
	descs = append(descs, sky)

	debugVS, debugPS, err := shaders.Program("debug", "debug")
	if err != nil {
		return err
	}
	debug := opaque.Clone()
	debug.Name = PipelineDebug
	debug.VS, debug.PS = debugVS, debugPS
	descs = append(descs, debug)

	shadowVS, shadowPS, err := shaders.Program("shadow", "shadow")
	if err != nil {
		return err
	}
	shadow := opaque.Clone()
	shadow.Name = PipelineShadow
	shadow.VS, shadow.PS = shadowVS, shadowPS
	shadow.Rasterizer.DepthBias = 100000
	shadow.Rasterizer.DepthBiasClamp = 0
	shadow.Rasterizer.SlopeScaledDepthBias = 1
	shadow.RTFormats = nil
	descs = append(descs, shadow)

	normalsVS, normalsPS, err := shaders.Program("normals", "normals")
	if err != nil {
		return err
	}
	normals := opaque.Clone()
	normals.Name = PipelineNormals
	normals.VS, normals.PS = normalsVS, normalsPS
	normals.RTFormats = []gpu.Format{NormalMapFormat}
	descs = append(descs, normals)

	ssaoVS, ssaoPS, err := shaders.Program("ssao", "ssao")
	if err != nil {
		return err
	}
	occlusion := gpu.PipelineStateDesc{
		Name:          PipelineSsao,
		RootSignature: ssao,
		VS:            ssaoVS,
		PS:            ssaoPS,
		Rasterizer:    gpu.DefaultRasterizer(),
		Blend:         gpu.DefaultBlend(),
		DepthStencil:  gpu.DepthStencilDesc{},
		Topology:      gpu.TopologyTriangleList,
		RTFormats:     []gpu.Format{AmbientMapFormat},
		SampleCount:   1,
	}
	descs = append(descs, occlusion)

	blurVS, blurPS, err := shaders.Program("ssao_blur", "ssao_blur")
	if err != nil {
		return err
	}
	blur := occlusion.Clone()
	blur.Name = PipelineSsaoBlur
	blur.VS, blur.PS = blurVS, blurPS
	descs = append(descs, blur)

	for _, d := range descs {
		if _, err := ps.Build(d); err != nil {
			return err
		}
	}
	return nil
}
