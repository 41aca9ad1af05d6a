package frame

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
	"github.com/spaghettifunk/lumen/engine/renderer/headless"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testCounts = Counts{Passes: 3, Objects: 1, Materials: 1}

func newTestRing(t *testing.T, opts headless.Options) (*headless.Device, *FrameRing) {
	t.Helper()
	if opts.Width == 0 {
		opts.Width, opts.Height = 8, 8
	}
	dev := headless.New(opts)
	ring, err := NewFrameRing(dev, DefaultFrameResources, testCounts)
	require.NoError(t, err)
	t.Cleanup(ring.Close)
	return dev, ring
}

func TestRingFencesIncreaseStrictly(t *testing.T) {
	_, ring := newTestRing(t, headless.Options{AutoComplete: true})
	ctx := context.Background()

	var last uint64
	for i := 0; i < 3*ring.Len(); i++ {
		fr, err := ring.Advance(ctx)
		require.NoError(t, err)
		assert.Equal(t, i%ring.Len(), fr.Index)
		assert.Equal(t, SlotRecording, fr.State)

		v, err := ring.SubmitFrame()
		require.NoError(t, err)
		assert.Greater(t, v, last)
		assert.Equal(t, v, fr.Fence)
		assert.Equal(t, SlotSubmitted, fr.State)
		last = v
	}
	assert.Zero(t, ring.Stats().Waits)
}

func TestFourthAdvanceBlocksUntilFirstFrameRetires(t *testing.T) {
	dev, ring := newTestRing(t, headless.Options{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := ring.Advance(ctx)
		require.NoError(t, err)
		_, err = ring.SubmitFrame()
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		assert.Equal(t, uint64(i+1), ring.Slot(i).Fence)
	}
	assert.Zero(t, ring.Stats().Waits)
	assert.Equal(t, []uint64{1, 2, 3}, dev.HeadlessQueue().Signals())

	done := make(chan *FrameResource, 1)
	go func() {
		fr, err := ring.Advance(ctx)
		assert.NoError(t, err)
		done <- fr
	}()

	select {
	case <-done:
		t.Fatal("advance returned before the GPU finished frame 1")
	case <-time.After(50 * time.Millisecond):
	}

	dev.HeadlessQueue().Retire(1)

	select {
	case fr := <-done:
		assert.Equal(t, 0, fr.Index)
		assert.Equal(t, uint64(1), ring.Fence().CompletedValue())
	case <-time.After(2 * time.Second):
		t.Fatal("advance did not return after the fence was signaled")
	}
	assert.Equal(t, 1, ring.Stats().Waits)
	assert.Equal(t, 1, ring.Fence().(*headless.Fence).Waits())
}

func TestAdvanceDoesNotWaitOnRetiredSlot(t *testing.T) {
	dev, ring := newTestRing(t, headless.Options{})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := ring.Advance(ctx)
		require.NoError(t, err)
		_, err = ring.SubmitFrame()
		require.NoError(t, err)
	}
	dev.HeadlessQueue().Retire(3)

	_, err := ring.Advance(ctx)
	require.NoError(t, err)
	assert.Zero(t, ring.Stats().Waits)
}

func TestWaitForSlotHonoursCancellation(t *testing.T) {
	_, ring := newTestRing(t, headless.Options{})
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := ring.WaitForSlot(ctx, 99)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestFlushRetiresEverything(t *testing.T) {
	_, ring := newTestRing(t, headless.Options{AutoComplete: true})
	ctx := context.Background()
	_, err := ring.Advance(ctx)
	require.NoError(t, err)
	_, err = ring.SubmitFrame()
	require.NoError(t, err)

	require.NoError(t, ring.Flush(ctx))
	assert.Equal(t, ring.CurrentFenceValue(), ring.Fence().CompletedValue())
	for i := 0; i < ring.Len(); i++ {
		assert.Equal(t, SlotIdle, ring.Slot(i).State)
	}
}

func TestCancelledAdvanceLeavesSlotSubmitted(t *testing.T) {
	_, ring := newTestRing(t, headless.Options{})
	for i := 0; i < 3; i++ {
		_, err := ring.Advance(context.Background())
		require.NoError(t, err)
		_, err = ring.SubmitFrame()
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := ring.Advance(ctx)
	require.Error(t, err)
	assert.Equal(t, SlotSubmitted, ring.Slot(0).State)
	assert.Equal(t, uint64(1), ring.Slot(0).Fence)
}

type failingSignalQueue struct {
	gpu.Queue
}

func (failingSignalQueue) Signal(gpu.Fence, uint64) error {
	return errors.New("device lost")
}

func TestFailedSignalKeepsSlotFence(t *testing.T) {
	_, ring := newTestRing(t, headless.Options{AutoComplete: true})
	ctx := context.Background()
	_, err := ring.Advance(ctx)
	require.NoError(t, err)
	_, err = ring.SubmitFrame()
	require.NoError(t, err)

	fr, err := ring.Advance(ctx)
	require.NoError(t, err)
	ring.queue = failingSignalQueue{ring.queue}
	_, err = ring.SubmitFrame()
	require.Error(t, err)
	assert.Zero(t, fr.Fence)
	assert.Equal(t, SlotRecording, fr.State)
	assert.Equal(t, uint64(1), ring.CurrentFenceValue())
}
