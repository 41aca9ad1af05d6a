package core

import "time"

type Clock struct {
	startTime time.Time
	elapsed   time.Duration
	running   bool
}

func NewClock() *Clock {
	return &Clock{}
}

// Updates the provided clock. Should be called just before checking elapsed time.
// Has no effect on non-started clocks.
func (c *Clock) Update() {
	if c.running {
		c.elapsed = time.Since(c.startTime)
	}
}

// Starts the provided clock. Resets elapsed time.
func (c *Clock) Start() {
	c.startTime = time.Now()
	c.elapsed = 0
	c.running = true
}

// Stops the provided clock. Does not reset elapsed time.
func (c *Clock) Stop() {
	c.running = false
}

// Elapsed returns the seconds since Start as of the last Update.
func (c *Clock) Elapsed() float64 {
	return c.elapsed.Seconds()
}

// GameTimer tracks total and per-frame time in seconds. Time spent while
// stopped is excluded from the total.
type GameTimer struct {
	clock     *Clock
	paused    float64
	stoppedAt float64
	stopped   bool
	last      float64
	delta     float64
}

func NewGameTimer() *GameTimer {
	return &GameTimer{clock: NewClock()}
}

// Reset starts the timer from zero.
func (t *GameTimer) Reset() {
	t.clock.Start()
	t.paused = 0
	t.stopped = false
	t.last = 0
	t.delta = 0
}

func (t *GameTimer) Stop() {
	if t.stopped {
		return
	}
	t.clock.Update()
	t.stoppedAt = t.clock.Elapsed()
	t.stopped = true
}

func (t *GameTimer) Start() {
	if !t.stopped {
		return
	}
	t.clock.Update()
	now := t.clock.Elapsed()
	t.paused += now - t.stoppedAt
	t.last = now
	t.stopped = false
}

// Tick advances the timer by one frame.
func (t *GameTimer) Tick() {
	if t.stopped {
		t.delta = 0
		return
	}
	t.clock.Update()
	now := t.clock.Elapsed()
	t.delta = now - t.last
	if t.delta < 0 {
		t.delta = 0
	}
	t.last = now
}

// Advance moves the timer forward by a fixed step. Used by headless runs
// and tests where wall-clock time is meaningless.
func (t *GameTimer) Advance(dt float64) {
	t.delta = dt
	t.last += dt
}

func (t *GameTimer) DeltaTime() float32 {
	return float32(t.delta)
}

func (t *GameTimer) TotalTime() float32 {
	if t.stopped {
		return float32(t.stoppedAt - t.paused)
	}
	return float32(t.last - t.paused)
}
