package frame

import (
	"context"
	"fmt"

	"github.com/spaghettifunk/lumen/engine/containers"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

// DefaultFrameResources is how many frames the CPU may run ahead of the GPU.
const DefaultFrameResources = 3

type Stats struct {
	Advances int
	// Waits counts advances that found their slot still in use by the GPU.
	Waits int
}

// FrameRing cycles through frame resources, blocking only when the next slot
// has not been retired by the GPU yet.
type FrameRing struct {
	ring    *containers.Ring[*FrameResource]
	queue   gpu.Queue
	fence   gpu.Fence
	current uint64
	stats   Stats
}

func NewFrameRing(device gpu.Device, n int, counts Counts) (*FrameRing, error) {
	if n < 1 {
		return nil, fmt.Errorf("frame ring needs at least one frame resource, got %d", n)
	}
	fence, err := device.CreateFence(0)
	if err != nil {
		return nil, err
	}
	var built []*FrameResource
	ring, err := containers.NewRing(n, func(i int) (*FrameResource, error) {
		fr, err := NewFrameResource(device, i, counts)
		if err == nil {
			built = append(built, fr)
		}
		return fr, err
	})
	if err != nil {
		for _, fr := range built {
			fr.Close()
		}
		fence.Release()
		return nil, err
	}
	core.LogDebug("frame ring created with %d frame resources", n)
	return &FrameRing{
		ring:  ring,
		queue: device.Queue(),
		fence: fence,
	}, nil
}

// Advance moves to the next frame resource and waits until the GPU has
// finished with it.
func (r *FrameRing) Advance(ctx context.Context) (*FrameResource, error) {
	_, fr := r.ring.Advance()
	r.stats.Advances++
	if fr.State == SlotSubmitted {
		if r.fence.CompletedValue() < fr.Fence {
			r.stats.Waits++
			if err := r.WaitForSlot(ctx, fr.Fence); err != nil {
				return nil, err
			}
		}
		fr.State = SlotIdle
	}
	fr.State = SlotRecording
	return fr, nil
}

// WaitForSlot blocks until the fence reaches value. It is the only place the
// frame loop waits on the GPU.
func (r *FrameRing) WaitForSlot(ctx context.Context, value uint64) error {
	if err := r.fence.Wait(ctx, value); err != nil {
		return fmt.Errorf("waiting for fence %d: %w", value, err)
	}
	return nil
}

// SubmitFrame executes lists and marks the current frame resource with a new fence value.
func (r *FrameRing) SubmitFrame(lists ...gpu.CommandList) (uint64, error) {
	fr := r.ring.Current()
	if err := r.queue.Execute(lists...); err != nil {
		return 0, err
	}
	next := r.current + 1
	if err := r.queue.Signal(r.fence, next); err != nil {
		return 0, err
	}
	r.current = next
	fr.Fence = next
	fr.State = SlotSubmitted
	return r.current, nil
}

// Flush waits until the GPU has finished all submitted work.
func (r *FrameRing) Flush(ctx context.Context) error {
	r.current++
	if err := r.queue.Signal(r.fence, r.current); err != nil {
		return err
	}
	if err := r.WaitForSlot(ctx, r.current); err != nil {
		return err
	}
	r.ring.Each(func(_ int, fr *FrameResource) {
		fr.State = SlotIdle
	})
	return nil
}

func (r *FrameRing) Current() *FrameResource {
	return r.ring.Current()
}

func (r *FrameRing) Index() int {
	return r.ring.Index()
}

func (r *FrameRing) Len() int {
	return r.ring.Len()
}

func (r *FrameRing) Slot(i int) *FrameResource {
	return r.ring.At(i)
}

func (r *FrameRing) CurrentFenceValue() uint64 {
	return r.current
}

func (r *FrameRing) Fence() gpu.Fence {
	return r.fence
}

func (r *FrameRing) Stats() Stats {
	return r.stats
}

// Close releases every frame resource. Flush first if the GPU may still be busy.
func (r *FrameRing) Close() {
	r.ring.Each(func(_ int, fr *FrameResource) {
		fr.Close()
	})
	r.fence.Release()
}
