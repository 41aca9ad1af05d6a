package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGameTimerAdvance(t *testing.T) {
	timer := NewGameTimer()
	timer.Reset()
	timer.Advance(0.5)
	timer.Advance(0.25)

	assert.InDelta(t, 0.25, timer.DeltaTime(), 1e-6)
	assert.InDelta(t, 0.75, timer.TotalTime(), 1e-6)
}

func TestGameTimerStoppedHasNoDelta(t *testing.T) {
	timer := NewGameTimer()
	timer.Reset()
	timer.Stop()
	timer.Tick()
	assert.Zero(t, timer.DeltaTime())
}

func TestMetricsReportOncePerSecond(t *testing.T) {
	assert.NoError(t, MetricsInitialize())
	reported := 0
	for i := 0; i < int(AVG_COUNT); i++ {
		if MetricsUpdate(0.5) {
			reported++
		}
	}
	assert.Equal(t, 15, reported)
	assert.Equal(t, 2.0, MetricsFPS())
	assert.InDelta(t, 500, MetricsFrameTime(), 1e-9)
}
