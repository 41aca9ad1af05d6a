package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/spaghettifunk/lumen/engine/core"
	"github.com/stretchr/testify/assert"
)

func TestTranslateKey(t *testing.T) {
	cases := []struct {
		in   glfw.Key
		want core.KeyCode
	}{
		{glfw.KeyA, core.KEY_A},
		{glfw.KeyW, core.KEY_W},
		{glfw.KeyZ, core.KEY_Z},
		{glfw.KeyF1, core.KEY_F1},
		{glfw.KeyF12, core.KEY_F12},
		{glfw.KeyKP0, core.KEY_NUMPAD0},
		{glfw.KeyKP9, core.KEY_NUMPAD9},
		{glfw.KeyEscape, core.KEY_ESCAPE},
		{glfw.KeyLeftShift, core.KEY_LSHIFT},
	}
	for _, c := range cases {
		got, ok := translateKey(c.in)
		assert.True(t, ok, "key %d", c.in)
		assert.Equal(t, c.want, got, "key %d", c.in)
	}

	_, ok := translateKey(glfw.KeyWorld1)
	assert.False(t, ok)
}
