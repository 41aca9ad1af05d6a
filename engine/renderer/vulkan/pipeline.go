package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

// maxPushConstantBytes is the size every device guarantees.
const maxPushConstantBytes = 128

/**
 * @brief A root signature as a pipeline layout. Buffer parameters get one
 * descriptor set each, in parameter order. The texture heap and the static
 * samplers follow as the last two sets. Descriptor table base indices and
 * root constants share one push constant block, 4 bytes per value, also in
 * parameter order.
 */
type RootSignature struct {
	context *VulkanContext
	desc    gpu.RootSignatureDesc

	Layout vk.PipelineLayout
	// Set bound for each buffer parameter, -1 for the others.
	setIndex []int
	// Byte offset into the push constant block for tables and constants.
	pushOffset []uint32
	pushSize   uint32
	heapSet    uint32
	samplerSet uint32

	samplers      []vk.Sampler
	samplerLayout vk.DescriptorSetLayout
	samplerPool   vk.DescriptorPool
	samplerDesc   vk.DescriptorSet
}

func newRootSignature(context *VulkanContext, buffers *bufferDescriptors, heap *DescriptorHeap, desc gpu.RootSignatureDesc) (*RootSignature, error) {
	if heap == nil {
		return nil, core.NewDeviceError("CreateRootSignature", -1, "the descriptor heap must be created first", nil)
	}
	rs := &RootSignature{
		context:    context,
		desc:       desc,
		setIndex:   make([]int, len(desc.Params)),
		pushOffset: make([]uint32, len(desc.Params)),
	}

	setLayouts := make([]vk.DescriptorSetLayout, 0, len(desc.Params)+2)
	for i, p := range desc.Params {
		rs.setIndex[i] = -1
		switch p.Kind {
		case gpu.RootParamConstantBuffer, gpu.RootParamShaderResource:
			rs.setIndex[i] = len(setLayouts)
			setLayouts = append(setLayouts, buffers.layout(p.Kind))
		case gpu.RootParamDescriptorTable:
			rs.pushOffset[i] = rs.pushSize
			rs.pushSize += 4
		case gpu.RootParamConstants:
			rs.pushOffset[i] = rs.pushSize
			rs.pushSize += 4 * max(p.Count, 1)
		}
	}
	if rs.pushSize > maxPushConstantBytes {
		return nil, core.NewDeviceError("CreateRootSignature", -1, fmt.Sprintf("%s: %d bytes of root constants, at most %d fit", desc.Name, rs.pushSize, maxPushConstantBytes), nil)
	}

	if err := rs.createSamplers(); err != nil {
		rs.Release()
		return nil, err
	}
	rs.heapSet = uint32(len(setLayouts))
	setLayouts = append(setLayouts, heap.layout)
	rs.samplerSet = uint32(len(setLayouts))
	setLayouts = append(setLayouts, rs.samplerLayout)

	pipelineLayoutCreateInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}
	if rs.pushSize > 0 {
		pipelineLayoutCreateInfo.PushConstantRangeCount = 1
		pipelineLayoutCreateInfo.PPushConstantRanges = []vk.PushConstantRange{{
			StageFlags: allGraphicsStages,
			Offset:     0,
			Size:       rs.pushSize,
		}}
	}
	if err := vkCheck("vkCreatePipelineLayout", vk.CreatePipelineLayout(context.Device.LogicalDevice, &pipelineLayoutCreateInfo, context.Allocator, &rs.Layout)); err != nil {
		rs.Release()
		return nil, err
	}
	core.LogDebug("root signature %s: %d sets, %d push constant bytes", desc.Name, len(setLayouts), rs.pushSize)
	return rs, nil
}

// createSamplers builds the static samplers as immutable samplers of a set
// that never needs to be written.
func (rs *RootSignature) createSamplers() error {
	device := rs.context.Device.LogicalDevice
	for _, s := range rs.desc.StaticSamplers {
		filter, mipmap := samplerFilter(s.Filter)
		info := vk.SamplerCreateInfo{
			SType:        vk.StructureTypeSamplerCreateInfo,
			MagFilter:    filter,
			MinFilter:    filter,
			MipmapMode:   mipmap,
			AddressModeU: addressMode(s.Address),
			AddressModeV: addressMode(s.Address),
			AddressModeW: addressMode(s.Address),
			MipLodBias:   s.MipLODBias,
			MinLod:       0,
			MaxLod:       1000,
			BorderColor:  borderColor(s.Border),
		}
		if s.Filter == gpu.FilterAnisotropic {
			info.AnisotropyEnable = vk.True
			info.MaxAnisotropy = float32(max(s.MaxAnisotropy, 1))
		}
		if s.Compare {
			info.CompareEnable = vk.True
			info.CompareOp = compareOp(s.CompareFunc)
		}
		var sampler vk.Sampler
		if err := vkCheck("vkCreateSampler", vk.CreateSampler(device, &info, rs.context.Allocator, &sampler)); err != nil {
			return err
		}
		rs.samplers = append(rs.samplers, sampler)
	}

	count := uint32(max(len(rs.samplers), 1))
	binding := vk.DescriptorSetLayoutBinding{
		Binding:            0,
		DescriptorType:     vk.DescriptorTypeSampler,
		DescriptorCount:    count,
		StageFlags:         allGraphicsStages,
		PImmutableSamplers: rs.samplers,
	}
	if len(rs.samplers) == 0 {
		binding.DescriptorCount = 0
	}
	layoutInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: 1,
		PBindings:    []vk.DescriptorSetLayoutBinding{binding},
	}
	if err := vkCheck("vkCreateDescriptorSetLayout", vk.CreateDescriptorSetLayout(device, &layoutInfo, rs.context.Allocator, &rs.samplerLayout)); err != nil {
		return err
	}
	poolInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       1,
		PoolSizeCount: 1,
		PPoolSizes:    []vk.DescriptorPoolSize{{Type: vk.DescriptorTypeSampler, DescriptorCount: count}},
	}
	if err := vkCheck("vkCreateDescriptorPool", vk.CreateDescriptorPool(device, &poolInfo, rs.context.Allocator, &rs.samplerPool)); err != nil {
		return err
	}
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     rs.samplerPool,
		DescriptorSetCount: 1,
		PSetLayouts:        []vk.DescriptorSetLayout{rs.samplerLayout},
	}
	return vkCheck("vkAllocateDescriptorSets", vk.AllocateDescriptorSets(device, &allocInfo, &rs.samplerDesc))
}

func (rs *RootSignature) Desc() gpu.RootSignatureDesc {
	return rs.desc
}

func (rs *RootSignature) Release() {
	device := rs.context.Device.LogicalDevice
	if rs.Layout != nil {
		vk.DestroyPipelineLayout(device, rs.Layout, rs.context.Allocator)
		rs.Layout = nil
	}
	if rs.samplerPool != nil {
		vk.DestroyDescriptorPool(device, rs.samplerPool, rs.context.Allocator)
		rs.samplerPool = nil
	}
	if rs.samplerLayout != nil {
		vk.DestroyDescriptorSetLayout(device, rs.samplerLayout, rs.context.Allocator)
		rs.samplerLayout = nil
	}
	for _, s := range rs.samplers {
		vk.DestroySampler(device, s, rs.context.Allocator)
	}
	rs.samplers = nil
}

/**
 * @brief Holds a Vulkan pipeline. The layout belongs to the root signature.
 */
type VulkanPipeline struct {
	context *VulkanContext
	desc    gpu.PipelineStateDesc
	/** @brief The internal pipeline handle. */
	Handle vk.Pipeline
	root   *RootSignature
}

func NewGraphicsPipeline(context *VulkanContext, passes *renderpassCache, desc gpu.PipelineStateDesc) (*VulkanPipeline, error) {
	root, ok := desc.RootSignature.(*RootSignature)
	if !ok {
		return nil, core.NewDeviceError("CreatePipelineState", -1, fmt.Sprintf("%s: root signature is not a vulkan one", desc.Name), nil)
	}
	outPipeline := &VulkanPipeline{context: context, desc: desc.Clone(), root: root}

	vs, err := NewShaderModule(context, desc.Name+".vert", desc.VS, vk.ShaderStageVertexBit)
	if err != nil {
		return nil, err
	}
	defer vs.Destroy(context)
	ps, err := NewShaderModule(context, desc.Name+".frag", desc.PS, vk.ShaderStageFragmentBit)
	if err != nil {
		return nil, err
	}
	defer ps.Destroy(context)

	colorFormats := make([]vk.Format, len(desc.RTFormats))
	for i, f := range desc.RTFormats {
		colorFormats[i] = vulkanFormat(f, context.Device.DepthFormat)
	}
	depthFormat := vk.FormatUndefined
	if desc.DSFormat != gpu.FormatUnknown {
		depthFormat = vulkanFormat(desc.DSFormat, context.Device.DepthFormat)
	}
	key, err := newRenderpassKey(colorFormats, depthFormat, false)
	if err != nil {
		return nil, core.NewDeviceError("CreatePipelineState", -1, desc.Name+": "+err.Error(), nil)
	}
	renderpass, err := passes.renderpass(key)
	if err != nil {
		return nil, err
	}

	// Viewport and scissor are dynamic; only the counts matter here.
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	// Rasterizer
	rasterizerCreateInfo := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		FrontFace:               vk.FrontFaceClockwise,
	}
	if desc.Rasterizer.Wireframe {
		rasterizerCreateInfo.PolygonMode = vk.PolygonModeLine
	}
	if desc.Rasterizer.FrontCounterClockwise {
		rasterizerCreateInfo.FrontFace = vk.FrontFaceCounterClockwise
	}
	switch desc.Rasterizer.Cull {
	case gpu.CullNone:
		rasterizerCreateInfo.CullMode = vk.CullModeFlags(vk.CullModeNone)
	case gpu.CullFront:
		rasterizerCreateInfo.CullMode = vk.CullModeFlags(vk.CullModeFrontBit)
	default:
		rasterizerCreateInfo.CullMode = vk.CullModeFlags(vk.CullModeBackBit)
	}
	if desc.Rasterizer.DepthBias != 0 || desc.Rasterizer.SlopeScaledDepthBias != 0 {
		rasterizerCreateInfo.DepthBiasEnable = vk.True
		rasterizerCreateInfo.DepthBiasConstantFactor = float32(desc.Rasterizer.DepthBias)
		rasterizerCreateInfo.DepthBiasClamp = desc.Rasterizer.DepthBiasClamp
		rasterizerCreateInfo.DepthBiasSlopeFactor = desc.Rasterizer.SlopeScaledDepthBias
	}

	// Multisampling.
	multisamplingCreateInfo := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	// Depth and stencil testing.
	ds := desc.DepthStencil
	stencilState := func(s gpu.StencilOpDesc) vk.StencilOpState {
		return vk.StencilOpState{
			FailOp:      stencilOp(s.Fail),
			PassOp:      stencilOp(s.Pass),
			DepthFailOp: stencilOp(s.DepthFail),
			CompareOp:   compareOp(s.Func),
			CompareMask: uint32(ds.StencilReadMask),
			WriteMask:   uint32(ds.StencilWriteMask),
		}
	}
	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vkBool(ds.DepthEnable),
		DepthWriteEnable:  vkBool(ds.DepthWrite),
		DepthCompareOp:    compareOp(ds.DepthFunc),
		StencilTestEnable: vkBool(ds.StencilEnable),
		Front:             stencilState(ds.Front),
		Back:              stencilState(ds.Back),
		MaxDepthBounds:    1,
	}

	blendAttachments := make([]vk.PipelineColorBlendAttachmentState, len(desc.RTFormats))
	for i := range blendAttachments {
		blendAttachments[i] = vk.PipelineColorBlendAttachmentState{
			BlendEnable:         vkBool(desc.Blend.Enable),
			SrcColorBlendFactor: blendFactor(desc.Blend.Src),
			DstColorBlendFactor: blendFactor(desc.Blend.Dst),
			ColorBlendOp:        blendOp(desc.Blend.Op),
			SrcAlphaBlendFactor: blendFactor(desc.Blend.SrcAlpha),
			DstAlphaBlendFactor: blendFactor(desc.Blend.DstAlpha),
			AlphaBlendOp:        blendOp(desc.Blend.AlphaOp),
			ColorWriteMask:      colorWriteMask(desc.Blend.WriteMask),
		}
	}
	colorBlendStateCreateInfo := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	// Dynamic state
	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
		vk.DynamicStateStencilReference,
	}
	dynamicStateCreateInfo := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	// Vertex input. Passes that build vertices in the shader have no layout.
	vertexInputInfo := vk.PipelineVertexInputStateCreateInfo{
		SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
	}
	if len(desc.InputLayout) > 0 {
		attributes := make([]vk.VertexInputAttributeDescription, len(desc.InputLayout))
		for i, a := range desc.InputLayout {
			attributes[i] = vk.VertexInputAttributeDescription{
				Location: a.Location,
				Binding:  0,
				Format:   vertexFormat(a.Format),
				Offset:   a.Offset,
			}
		}
		vertexInputInfo.VertexBindingDescriptionCount = 1
		vertexInputInfo.PVertexBindingDescriptions = []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    desc.VertexStride,
			InputRate: vk.VertexInputRateVertex, // Move to next data entry for each vertex.
		}}
		vertexInputInfo.VertexAttributeDescriptionCount = uint32(len(attributes))
		vertexInputInfo.PVertexAttributeDescriptions = attributes
	}

	// Input assembly
	topology := vk.PrimitiveTopologyTriangleList
	if desc.Topology == gpu.TopologyLineList {
		topology = vk.PrimitiveTopologyLineList
	}
	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               topology,
		PrimitiveRestartEnable: vk.False,
	}

	stages := []vk.PipelineShaderStageCreateInfo{vs.ShaderStageCreateInfo, ps.ShaderStageCreateInfo}

	// Pipeline create
	pipelineCreateInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInputInfo,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizerCreateInfo,
		PMultisampleState:   &multisamplingCreateInfo,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlendStateCreateInfo,
		PDynamicState:       &dynamicStateCreateInfo,
		Layout:              root.Layout,
		RenderPass:          renderpass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pPipelines := make([]vk.Pipeline, 1)
	if err := vkCheck("vkCreateGraphicsPipelines", vk.CreateGraphicsPipelines(
		context.Device.LogicalDevice,
		vk.NullPipelineCache,
		1,
		[]vk.GraphicsPipelineCreateInfo{pipelineCreateInfo},
		context.Allocator,
		pPipelines)); err != nil {
		return nil, err
	}
	outPipeline.Handle = pPipelines[0]

	core.LogDebug("Graphics pipeline %s created!", desc.Name)
	return outPipeline, nil
}

func vkBool(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

func (pipeline *VulkanPipeline) Desc() gpu.PipelineStateDesc {
	return pipeline.desc
}

func (pipeline *VulkanPipeline) Release() {
	if pipeline.Handle != nil {
		vk.DestroyPipeline(pipeline.context.Device.LogicalDevice, pipeline.Handle, pipeline.context.Allocator)
		pipeline.Handle = nil
	}
}
