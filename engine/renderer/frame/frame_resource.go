package frame

import (
	"fmt"

	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/metadata"
)

type SlotState uint8

const (
	SlotIdle SlotState = iota
	SlotRecording
	SlotSubmitted
)

func (s SlotState) String() string {
	switch s {
	case SlotIdle:
		return "idle"
	case SlotRecording:
		return "recording"
	case SlotSubmitted:
		return "submitted"
	}
	return "unknown"
}

// Counts sizes the buffers of a frame resource.
type Counts struct {
	Passes    int
	Objects   int
	Materials int
}

// FrameResource holds everything the CPU writes for one frame. The GPU may
// still be reading it until the fence reaches Fence.
type FrameResource struct {
	Index     int
	Allocator gpu.CommandAllocator

	PassCB         *UploadBuffer[metadata.PassConstants]
	ObjectCB       *UploadBuffer[metadata.ObjectConstants]
	MaterialBuffer *UploadBuffer[metadata.MaterialData]
	SsaoCB         *UploadBuffer[metadata.SsaoConstants]

	// Fence value that marks the commands up to this frame. Zero until first submitted.
	Fence uint64
	State SlotState
}

func NewFrameResource(device gpu.Device, index int, counts Counts) (*FrameResource, error) {
	fr := &FrameResource{Index: index}
	var err error
	if fr.Allocator, err = device.CreateCommandAllocator(); err != nil {
		return nil, err
	}
	name := func(kind string) string { return fmt.Sprintf("frame%d_%s", index, kind) }
	if fr.PassCB, err = NewUploadBuffer[metadata.PassConstants](device, name("pass_cb"), counts.Passes, true); err != nil {
		fr.Close()
		return nil, err
	}
	if fr.ObjectCB, err = NewUploadBuffer[metadata.ObjectConstants](device, name("object_cb"), counts.Objects, true); err != nil {
		fr.Close()
		return nil, err
	}
	if fr.MaterialBuffer, err = NewUploadBuffer[metadata.MaterialData](device, name("material_buffer"), counts.Materials, false); err != nil {
		fr.Close()
		return nil, err
	}
	if fr.SsaoCB, err = NewUploadBuffer[metadata.SsaoConstants](device, name("ssao_cb"), 1, true); err != nil {
		fr.Close()
		return nil, err
	}
	return fr, nil
}

// Writes is the number of uploads into the object and material buffers.
func (fr *FrameResource) Writes() int {
	return fr.ObjectCB.Writes() + fr.MaterialBuffer.Writes()
}

func (fr *FrameResource) Close() {
	if fr.PassCB != nil {
		fr.PassCB.Close()
	}
	if fr.ObjectCB != nil {
		fr.ObjectCB.Close()
	}
	if fr.MaterialBuffer != nil {
		fr.MaterialBuffer.Close()
	}
	if fr.SsaoCB != nil {
		fr.SsaoCB.Close()
	}
	if fr.Allocator != nil {
		fr.Allocator.Release()
		fr.Allocator = nil
	}
}
