package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyPressFiresEvent(t *testing.T) {
	require.True(t, EventSystemInitialize())
	require.NoError(t, InputInitialize())

	var got []KeyCode
	EventRegister(EVENT_CODE_KEY_PRESSED, func(ctx EventContext) bool {
		got = append(got, ctx.Data.(*KeyEvent).KeyCode)
		return false
	})

	InputProcessKey(KEY_W, true)
	InputProcessKey(KEY_W, true)
	assert.Equal(t, []KeyCode{KEY_W}, got)
	assert.True(t, InputIsKeyDown(KEY_W))

	InputUpdate()
	InputProcessKey(KEY_W, false)
	assert.True(t, InputWasKeyDown(KEY_W))
	assert.False(t, InputIsKeyDown(KEY_W))
}

func TestHandledEventStopsPropagation(t *testing.T) {
	require.True(t, EventSystemInitialize())

	second := false
	EventRegister(EVENT_CODE_MOUSE_WHEEL, func(EventContext) bool { return true })
	EventRegister(EVENT_CODE_MOUSE_WHEEL, func(EventContext) bool {
		second = true
		return false
	})
	assert.True(t, EventFire(EventContext{Type: EVENT_CODE_MOUSE_WHEEL}))
	assert.False(t, second)
}
