package vulkan

import (
	"encoding/binary"
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

/**
 * @brief Records into one command buffer per allocator it has been reset
 * with. Render passes begin lazily at the first draw after the targets
 * change and end at the next barrier, clear, target change or Close.
 * Recording calls have no error return: the first failure is kept and
 * reported by Close.
 */
type CommandList struct {
	device  *Device
	buffers map[*CommandAllocator]*VulkanCommandBuffer
	current *VulkanCommandBuffer
	open    bool
	err     error

	root      *RootSignature
	heap      *DescriptorHeap
	sets      []vk.DescriptorSet
	setsDirty bool
	push      [maxPushConstantBytes]byte
	pushDirty bool

	colors []*Texture
	depth  *Texture
	inPass bool
}

func newCommandList(device *Device, alloc *CommandAllocator) (*CommandList, error) {
	l := &CommandList{device: device, buffers: make(map[*CommandAllocator]*VulkanCommandBuffer)}
	if err := l.begin(alloc); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *CommandList) begin(alloc *CommandAllocator) error {
	cb, ok := l.buffers[alloc]
	if !ok {
		var err error
		if cb, err = NewVulkanCommandBuffer(l.device.context, alloc.Handle, true); err != nil {
			return err
		}
		l.buffers[alloc] = cb
	}
	if err := cb.Begin(true, false, false); err != nil {
		return err
	}
	l.current = cb
	l.open = true
	l.err = nil
	l.root, l.heap, l.sets = nil, nil, nil
	l.colors, l.depth, l.inPass = nil, nil, false
	l.setsDirty, l.pushDirty = false, false
	return nil
}

func (l *CommandList) fail(err error) {
	if err == nil {
		return
	}
	if l.err == nil {
		l.err = err
	}
	core.LogError("command list: %s", err)
}

func (l *CommandList) Reset(alloc gpu.CommandAllocator, initial gpu.PipelineState) error {
	if l.open {
		return core.NewDeviceError("Reset", -1, "command list is still recording", nil)
	}
	a, ok := alloc.(*CommandAllocator)
	if !ok {
		return core.NewDeviceError("Reset", -1, "allocator is not a vulkan command pool", nil)
	}
	if err := l.begin(a); err != nil {
		return err
	}
	if initial != nil {
		l.SetPipelineState(initial)
	}
	return nil
}

func (l *CommandList) Close() error {
	if !l.open {
		return core.NewDeviceError("Close", -1, "command list is not recording", nil)
	}
	l.endPass()
	l.open = false
	if err := l.current.End(); err != nil {
		l.fail(err)
	}
	return l.err
}

func (l *CommandList) cmd() vk.CommandBuffer {
	return l.current.Handle
}

func (l *CommandList) texture(tex gpu.Texture) *Texture {
	t, ok := tex.(*Texture)
	if !ok || t == nil {
		l.fail(fmt.Errorf("%T is not a vulkan texture", tex))
		return nil
	}
	return t
}

func (l *CommandList) buffer(buf gpu.Buffer) *Buffer {
	b, ok := buf.(*Buffer)
	if !ok || b == nil {
		l.fail(fmt.Errorf("%T is not a vulkan buffer", buf))
		return nil
	}
	return b
}

func (l *CommandList) ResourceBarrier(tex gpu.Texture, before, after gpu.ResourceState) {
	t := l.texture(tex)
	if t == nil {
		return
	}
	l.endPass()
	t.transition(l.cmd(), imageLayout(before, t.depth()), imageLayout(after, t.depth()), accessMask(before), accessMask(after))
}

// SetViewport flips Y with a negative height so clip space matches the
// top-left origin the passes assume.
func (l *CommandList) SetViewport(vp gpu.Viewport) {
	viewport := vk.Viewport{
		X:        vp.X,
		Y:        vp.Y + vp.Height,
		Width:    vp.Width,
		Height:   -vp.Height,
		MinDepth: vp.MinDepth,
		MaxDepth: vp.MaxDepth,
	}
	vk.CmdSetViewport(l.cmd(), 0, 1, []vk.Viewport{viewport})
}

func (l *CommandList) SetScissor(r gpu.Rect) {
	scissor := vk.Rect2D{
		Offset: vk.Offset2D{X: r.Left, Y: r.Top},
		Extent: vk.Extent2D{Width: uint32(r.Right - r.Left), Height: uint32(r.Bottom - r.Top)},
	}
	vk.CmdSetScissor(l.cmd(), 0, 1, []vk.Rect2D{scissor})
}

func (l *CommandList) SetRenderTargets(colors []gpu.Texture, depth gpu.Texture) {
	l.endPass()
	l.colors = l.colors[:0]
	for _, c := range colors {
		if t := l.texture(c); t != nil {
			l.colors = append(l.colors, t)
		}
	}
	l.depth = nil
	if depth != nil {
		l.depth = l.texture(depth)
	}
}

func (l *CommandList) ClearRenderTarget(tex gpu.Texture, color [4]float32) {
	t := l.texture(tex)
	if t == nil {
		return
	}
	l.endPass()
	var value vk.ClearValue
	value.SetColor(color[:])
	l.fail(l.beginPass([]*Texture{t}, nil, true, []vk.ClearValue{value}))
	l.endPass()
}

func (l *CommandList) ClearDepthStencil(tex gpu.Texture, depth float32, stencil uint8) {
	t := l.texture(tex)
	if t == nil {
		return
	}
	l.endPass()
	var value vk.ClearValue
	value.SetDepthStencil(depth, uint32(stencil))
	l.fail(l.beginPass(nil, t, true, []vk.ClearValue{value}))
	l.endPass()
}

func (l *CommandList) beginPass(colors []*Texture, depth *Texture, clear bool, clearValues []vk.ClearValue) error {
	formats := make([]vk.Format, len(colors))
	views := make([]vk.ImageView, 0, len(colors)+1)
	var width, height uint32
	for i, c := range colors {
		formats[i] = c.image.Format
		views = append(views, c.image.View)
		width, height = c.desc.Width, c.desc.Height
	}
	depthFormat := vk.FormatUndefined
	if depth != nil {
		depthFormat = depth.image.Format
		views = append(views, depth.image.View)
		if len(colors) == 0 {
			width, height = depth.desc.Width, depth.desc.Height
		}
	}
	if len(views) == 0 {
		return fmt.Errorf("draw recorded without render targets")
	}

	key, err := newRenderpassKey(formats, depthFormat, clear)
	if err != nil {
		return err
	}
	rp, err := l.device.passes.renderpass(key)
	if err != nil {
		return err
	}
	fb, err := l.device.passes.framebuffer(key, views, width, height)
	if err != nil {
		return err
	}
	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  rp.Handle,
		Framebuffer: fb.Handle,
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{Width: width, Height: height},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(l.cmd(), &beginInfo, vk.SubpassContentsInline)
	l.current.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
	l.inPass = true
	return nil
}

func (l *CommandList) endPass() {
	if !l.inPass {
		return
	}
	vk.CmdEndRenderPass(l.cmd())
	l.current.State = COMMAND_BUFFER_STATE_RECORDING
	l.inPass = false
}

func (l *CommandList) SetRootSignature(rs gpu.RootSignature) {
	root, ok := rs.(*RootSignature)
	if !ok {
		l.fail(fmt.Errorf("%T is not a vulkan root signature", rs))
		return
	}
	if root == l.root {
		return
	}
	l.root = root
	l.sets = make([]vk.DescriptorSet, len(root.desc.Params))
	l.push = [maxPushConstantBytes]byte{}
	l.setsDirty, l.pushDirty = true, true
}

func (l *CommandList) SetDescriptorHeap(heap gpu.DescriptorHeap) {
	h, ok := heap.(*DescriptorHeap)
	if !ok {
		l.fail(fmt.Errorf("%T is not a vulkan descriptor heap", heap))
		return
	}
	l.heap = h
	l.setsDirty = true
}

func (l *CommandList) SetPipelineState(pso gpu.PipelineState) {
	p, ok := pso.(*VulkanPipeline)
	if !ok {
		l.fail(fmt.Errorf("%T is not a vulkan pipeline", pso))
		return
	}
	vk.CmdBindPipeline(l.cmd(), vk.PipelineBindPointGraphics, p.Handle)
}

func (l *CommandList) SetStencilRef(ref uint32) {
	faces := vk.StencilFaceFlags(vk.StencilFaceFrontBit) | vk.StencilFaceFlags(vk.StencilFaceBackBit)
	vk.CmdSetStencilReference(l.cmd(), faces, ref)
}

func (l *CommandList) param(index int, kinds ...gpu.RootParamKind) bool {
	if l.root == nil {
		l.fail(fmt.Errorf("root parameter %d set before a root signature", index))
		return false
	}
	if index < 0 || index >= len(l.root.desc.Params) {
		l.fail(fmt.Errorf("root parameter %d outside %s", index, l.root.desc.Name))
		return false
	}
	for _, k := range kinds {
		if l.root.desc.Params[index].Kind == k {
			return true
		}
	}
	l.fail(fmt.Errorf("root parameter %d of %s has the wrong kind", index, l.root.desc.Name))
	return false
}

func (l *CommandList) bindBuffer(index int, buf gpu.Buffer, kind gpu.RootParamKind, offset uint64) {
	if !l.param(index, kind) {
		return
	}
	b := l.buffer(buf)
	if b == nil {
		return
	}
	set, err := l.device.buffers.set(b, kind, offset)
	if err != nil {
		l.fail(err)
		return
	}
	l.sets[index] = set
	l.setsDirty = true
}

func (l *CommandList) SetConstantBuffer(param int, buf gpu.Buffer, offset uint64) {
	l.bindBuffer(param, buf, gpu.RootParamConstantBuffer, offset)
}

func (l *CommandList) SetShaderResource(param int, buf gpu.Buffer) {
	l.bindBuffer(param, buf, gpu.RootParamShaderResource, 0)
}

func (l *CommandList) SetDescriptorTable(param int, baseIndex int) {
	if !l.param(param, gpu.RootParamDescriptorTable) {
		return
	}
	binary.LittleEndian.PutUint32(l.push[l.root.pushOffset[param]:], uint32(baseIndex))
	l.pushDirty = true
}

func (l *CommandList) SetRootConstant(param int, value uint32) {
	if !l.param(param, gpu.RootParamConstants) {
		return
	}
	binary.LittleEndian.PutUint32(l.push[l.root.pushOffset[param]:], value)
	l.pushDirty = true
}

func (l *CommandList) SetVertexBuffer(buf gpu.Buffer, stride uint32) {
	if b := l.buffer(buf); b != nil {
		vk.CmdBindVertexBuffers(l.cmd(), 0, 1, []vk.Buffer{b.handle}, []vk.DeviceSize{0})
	}
}

func (l *CommandList) SetIndexBuffer(buf gpu.Buffer, format gpu.IndexFormat) {
	b := l.buffer(buf)
	if b == nil {
		return
	}
	indexType := vk.IndexTypeUint16
	if format == gpu.IndexFormatUint32 {
		indexType = vk.IndexTypeUint32
	}
	vk.CmdBindIndexBuffer(l.cmd(), b.handle, 0, indexType)
}

// SetPrimitiveTopology is part of the pipeline in Vulkan.
func (l *CommandList) SetPrimitiveTopology(t gpu.Topology) {}

// prepareDraw begins the render pass and flushes bindings changed since the
// last draw.
func (l *CommandList) prepareDraw() bool {
	if l.root == nil {
		l.fail(fmt.Errorf("draw recorded without a root signature"))
		return false
	}
	if !l.inPass {
		if err := l.beginPass(l.colors, l.depth, false, nil); err != nil {
			l.fail(err)
			return false
		}
	}
	layout := l.root.Layout
	if l.setsDirty {
		for i, set := range l.sets {
			if set == nil || l.root.setIndex[i] < 0 {
				continue
			}
			vk.CmdBindDescriptorSets(l.cmd(), vk.PipelineBindPointGraphics, layout, uint32(l.root.setIndex[i]), 1, []vk.DescriptorSet{set}, 0, nil)
		}
		if l.heap != nil {
			vk.CmdBindDescriptorSets(l.cmd(), vk.PipelineBindPointGraphics, layout, l.root.heapSet, 1, []vk.DescriptorSet{l.heap.set}, 0, nil)
		}
		vk.CmdBindDescriptorSets(l.cmd(), vk.PipelineBindPointGraphics, layout, l.root.samplerSet, 1, []vk.DescriptorSet{l.root.samplerDesc}, 0, nil)
		l.setsDirty = false
	}
	if l.pushDirty && l.root.pushSize > 0 {
		vk.CmdPushConstants(l.cmd(), layout, allGraphicsStages, 0, l.root.pushSize, unsafe.Pointer(&l.push[0]))
		l.pushDirty = false
	}
	return true
}

func (l *CommandList) DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	if l.prepareDraw() {
		vk.CmdDrawIndexed(l.cmd(), indexCount, instanceCount, startIndex, baseVertex, startInstance)
	}
}

func (l *CommandList) DrawInstanced(vertexCount, instanceCount, startVertex, startInstance uint32) {
	if l.prepareDraw() {
		vk.CmdDraw(l.cmd(), vertexCount, instanceCount, startVertex, startInstance)
	}
}

func (l *CommandList) release() {
	for alloc, cb := range l.buffers {
		if alloc.Handle != nil {
			cb.Free(l.device.context, alloc.Handle)
		}
	}
	l.buffers = nil
}
