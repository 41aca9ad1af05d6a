package headless

import (
	"context"
	"sync"

	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/spaghettifunk/lumen/engine/renderer/gpu"
)

type Fence struct {
	mu        sync.Mutex
	cond      *sync.Cond
	completed uint64
	waits     int
}

func newFence(initial uint64) *Fence {
	f := &Fence{completed: initial}
	f.cond = sync.NewCond(&f.mu)
	return f
}

func (f *Fence) CompletedValue() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.completed
}

// Complete advances the fence as the GPU would. Values never go backwards.
func (f *Fence) Complete(value uint64) {
	f.mu.Lock()
	if value > f.completed {
		f.completed = value
	}
	f.mu.Unlock()
	f.cond.Broadcast()
}

// Waits counts calls to Wait that had to block.
func (f *Fence) Waits() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.waits
}

func (f *Fence) Wait(ctx context.Context, value uint64) error {
	stop := context.AfterFunc(ctx, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.cond.Broadcast()
	})
	defer stop()

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.completed < value {
		f.waits++
	}
	for f.completed < value {
		if err := ctx.Err(); err != nil {
			return core.NewDeviceError("WaitForFence", -1, "wait cancelled", err)
		}
		f.cond.Wait()
	}
	return nil
}

func (f *Fence) Release() {}

type pendingSignal struct {
	fence *Fence
	value uint64
}

// Queue records submissions. Signals are held until Retire or Drain unless
// the device auto-completes.
type Queue struct {
	mu        sync.Mutex
	device    *Device
	submitted [][]Command
	pending   []pendingSignal
	signals   []uint64
}

func (q *Queue) Execute(lists ...gpu.CommandList) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, l := range lists {
		cl, ok := l.(*CommandList)
		if !ok {
			return core.NewDeviceError("ExecuteCommandLists", -1, "foreign command list", nil)
		}
		if cl.open {
			return core.NewDeviceError("ExecuteCommandLists", -1, "command list was not closed", nil)
		}
		q.submitted = append(q.submitted, append([]Command(nil), cl.commands...))
	}
	return nil
}

func (q *Queue) Signal(fence gpu.Fence, value uint64) error {
	f, ok := fence.(*Fence)
	if !ok {
		return core.NewDeviceError("Signal", -1, "foreign fence", nil)
	}
	q.mu.Lock()
	q.signals = append(q.signals, value)
	if !q.device.autoComplete() {
		q.pending = append(q.pending, pendingSignal{fence: f, value: value})
		q.mu.Unlock()
		return nil
	}
	q.mu.Unlock()
	f.Complete(value)
	return nil
}

// Retire completes the n oldest pending signals, in submission order.
func (q *Queue) Retire(n int) {
	q.mu.Lock()
	if n > len(q.pending) {
		n = len(q.pending)
	}
	done := q.pending[:n]
	q.pending = append([]pendingSignal(nil), q.pending[n:]...)
	q.mu.Unlock()
	for _, s := range done {
		s.fence.Complete(s.value)
	}
}

// Drain completes all pending signals.
func (q *Queue) Drain() {
	q.mu.Lock()
	n := len(q.pending)
	q.mu.Unlock()
	q.Retire(n)
}

// Submitted returns the recorded command streams in execution order.
func (q *Queue) Submitted() [][]Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([][]Command(nil), q.submitted...)
}

// Signals returns every signaled fence value in order.
func (q *Queue) Signals() []uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]uint64(nil), q.signals...)
}

type CommandAllocator struct {
	resets int
}

func (a *CommandAllocator) Reset() error {
	a.resets++
	return nil
}

func (a *CommandAllocator) Resets() int {
	return a.resets
}

func (a *CommandAllocator) Release() {}
