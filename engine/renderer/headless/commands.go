package headless

import (
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

type Op uint8

const (
	OpBarrier Op = iota
	OpViewport
	OpScissor
	OpSetRenderTargets
	OpClearRenderTarget
	OpClearDepthStencil
	OpSetRootSignature
	OpSetDescriptorHeap
	OpSetPipelineState
	OpSetStencilRef
	OpSetConstantBuffer
	OpSetShaderResource
	OpSetDescriptorTable
	OpSetRootConstant
	OpSetVertexBuffer
	OpSetIndexBuffer
	OpSetTopology
	OpDrawIndexed
	OpDraw
)

var opNames = [...]string{
	OpBarrier:            "Barrier",
	OpViewport:           "Viewport",
	OpScissor:            "Scissor",
	OpSetRenderTargets:   "SetRenderTargets",
	OpClearRenderTarget:  "ClearRenderTarget",
	OpClearDepthStencil:  "ClearDepthStencil",
	OpSetRootSignature:   "SetRootSignature",
	OpSetDescriptorHeap:  "SetDescriptorHeap",
	OpSetPipelineState:   "SetPipelineState",
	OpSetStencilRef:      "SetStencilRef",
	OpSetConstantBuffer:  "SetConstantBuffer",
	OpSetShaderResource:  "SetShaderResource",
	OpSetDescriptorTable: "SetDescriptorTable",
	OpSetRootConstant:    "SetRootConstant",
	OpSetVertexBuffer:    "SetVertexBuffer",
	OpSetIndexBuffer:     "SetIndexBuffer",
	OpSetTopology:        "SetTopology",
	OpDrawIndexed:        "DrawIndexed",
	OpDraw:               "Draw",
}

func (o Op) String() string {
	return opNames[o]
}

// Command is one recorded call. Only the fields relevant to Op are set.
type Command struct {
	Op       Op
	Resource string
	Before   gpu.ResourceState
	After    gpu.ResourceState
	Param    int
	Offset   uint64
	Value    uint64
	Count    uint32
	Start    uint32
	Base     int32
	Color    [4]float32
	Depth    float32
	Viewport gpu.Viewport
	Targets  []string
}

type CommandList struct {
	device   *Device
	alloc    *CommandAllocator
	open     bool
	commands []Command

	pso      gpu.PipelineState
	rootSig  gpu.RootSignature
	hasDepth bool
	colors   int
}

func (c *CommandList) Reset(alloc gpu.CommandAllocator, initial gpu.PipelineState) error {
	a, ok := alloc.(*CommandAllocator)
	if !ok {
		return core.NewDeviceError("CommandList.Reset", -1, "foreign allocator", nil)
	}
	if c.open {
		return core.NewDeviceError("CommandList.Reset", -1, "command list is still recording", nil)
	}
	c.alloc = a
	c.open = true
	c.commands = c.commands[:0]
	c.pso = initial
	c.rootSig = nil
	return nil
}

func (c *CommandList) Close() error {
	if !c.open {
		return core.NewDeviceError("CommandList.Close", -1, "command list is already closed", nil)
	}
	c.open = false
	return nil
}

// Commands returns what was recorded since the last Reset.
func (c *CommandList) Commands() []Command {
	return c.commands
}

func (c *CommandList) record(cmd Command) {
	if !c.open {
		c.device.violate("%s recorded on a closed command list", cmd.Op)
		return
	}
	c.commands = append(c.commands, cmd)
}

func (c *CommandList) ResourceBarrier(tex gpu.Texture, before, after gpu.ResourceState) {
	name := tex.Desc().Name
	if t, ok := tex.(*Texture); ok {
		if t.state != before {
			c.device.violate("barrier on %s: before is %s but resource is in %s", name, before, t.state)
		}
		t.state = after
	}
	c.record(Command{Op: OpBarrier, Resource: name, Before: before, After: after})
}

func (c *CommandList) SetViewport(vp gpu.Viewport) {
	c.record(Command{Op: OpViewport, Viewport: vp})
}

func (c *CommandList) SetScissor(r gpu.Rect) {
	c.record(Command{Op: OpScissor, Count: uint32(r.Right - r.Left), Start: uint32(r.Bottom - r.Top)})
}

func (c *CommandList) SetRenderTargets(colors []gpu.Texture, depth gpu.Texture) {
	cmd := Command{Op: OpSetRenderTargets}
	for _, t := range colors {
		c.expectState(t, gpu.StateRenderTarget, "render target")
		cmd.Targets = append(cmd.Targets, t.Desc().Name)
	}
	if depth != nil {
		c.expectState(depth, gpu.StateDepthWrite, "depth target")
		cmd.Resource = depth.Desc().Name
	}
	c.colors = len(colors)
	c.hasDepth = depth != nil
	c.record(cmd)
}

func (c *CommandList) expectState(tex gpu.Texture, want gpu.ResourceState, role string) {
	if t, ok := tex.(*Texture); ok && t.state != want {
		c.device.violate("%s %s bound in %s, want %s", role, t.desc.Name, t.state, want)
	}
}

func (c *CommandList) ClearRenderTarget(tex gpu.Texture, color [4]float32) {
	c.expectState(tex, gpu.StateRenderTarget, "cleared target")
	c.record(Command{Op: OpClearRenderTarget, Resource: tex.Desc().Name, Color: color})
}

func (c *CommandList) ClearDepthStencil(tex gpu.Texture, depth float32, stencil uint8) {
	c.expectState(tex, gpu.StateDepthWrite, "cleared depth")
	c.record(Command{Op: OpClearDepthStencil, Resource: tex.Desc().Name, Depth: depth, Value: uint64(stencil)})
}

func (c *CommandList) SetRootSignature(rs gpu.RootSignature) {
	c.rootSig = rs
	c.record(Command{Op: OpSetRootSignature, Resource: rs.Desc().Name})
}

func (c *CommandList) SetDescriptorHeap(heap gpu.DescriptorHeap) {
	c.record(Command{Op: OpSetDescriptorHeap, Count: uint32(heap.Capacity())})
}

func (c *CommandList) SetPipelineState(pso gpu.PipelineState) {
	c.pso = pso
	c.record(Command{Op: OpSetPipelineState, Resource: pso.Desc().Name})
}

func (c *CommandList) SetStencilRef(ref uint32) {
	c.record(Command{Op: OpSetStencilRef, Value: uint64(ref)})
}

func (c *CommandList) SetConstantBuffer(param int, buf gpu.Buffer, offset uint64) {
	if offset%256 != 0 {
		c.device.violate("constant buffer %s bound at unaligned offset %d", buf.Name(), offset)
	}
	c.record(Command{Op: OpSetConstantBuffer, Param: param, Resource: buf.Name(), Offset: offset})
}

func (c *CommandList) SetShaderResource(param int, buf gpu.Buffer) {
	c.record(Command{Op: OpSetShaderResource, Param: param, Resource: buf.Name()})
}

func (c *CommandList) SetDescriptorTable(param int, baseIndex int) {
	c.record(Command{Op: OpSetDescriptorTable, Param: param, Value: uint64(baseIndex)})
}

func (c *CommandList) SetRootConstant(param int, value uint32) {
	c.record(Command{Op: OpSetRootConstant, Param: param, Value: uint64(value)})
}

func (c *CommandList) SetVertexBuffer(buf gpu.Buffer, stride uint32) {
	c.record(Command{Op: OpSetVertexBuffer, Resource: buf.Name(), Count: stride})
}

func (c *CommandList) SetIndexBuffer(buf gpu.Buffer, format gpu.IndexFormat) {
	c.record(Command{Op: OpSetIndexBuffer, Resource: buf.Name(), Value: uint64(format)})
}

func (c *CommandList) SetPrimitiveTopology(t gpu.Topology) {
	c.record(Command{Op: OpSetTopology, Value: uint64(t)})
}

func (c *CommandList) checkDraw() {
	if c.pso == nil {
		c.device.violate("draw without a pipeline state")
		return
	}
	if c.rootSig == nil {
		c.device.violate("draw with %s but no root signature", c.pso.Desc().Name)
	}
	desc := c.pso.Desc()
	if len(desc.RTFormats) != c.colors {
		c.device.violate("%s expects %d render targets, %d bound", desc.Name, len(desc.RTFormats), c.colors)
	}
	if desc.DSFormat != gpu.FormatUnknown && !c.hasDepth {
		c.device.violate("%s expects a depth target", desc.Name)
	}
}

func (c *CommandList) DrawIndexedInstanced(indexCount, instanceCount, startIndex uint32, baseVertex int32, startInstance uint32) {
	c.checkDraw()
	c.record(Command{Op: OpDrawIndexed, Count: indexCount, Start: startIndex, Base: baseVertex, Value: uint64(instanceCount)})
}

func (c *CommandList) DrawInstanced(vertexCount, instanceCount, startVertex, startInstance uint32) {
	c.checkDraw()
	c.record(Command{Op: OpDraw, Count: vertexCount, Start: startVertex, Value: uint64(instanceCount)})
}
