package containers

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRingWrapsAround(t *testing.T) {
	r, err := NewRing(3, func(i int) (int, error) { return i * 10, nil })
	require.NoError(t, err)

	var seen []int
	for i := 0; i < 5; i++ {
		idx, v := r.Advance()
		assert.Equal(t, idx*10, v)
		seen = append(seen, idx)
	}
	assert.Equal(t, []int{0, 1, 2, 0, 1}, seen)
	assert.Equal(t, 10, r.Current())
	assert.Equal(t, 3, r.Len())
}

func TestRingFillError(t *testing.T) {
	boom := errors.New("boom")
	_, err := NewRing(2, func(i int) (string, error) {
		if i == 1 {
			return "", boom
		}
		return "ok", nil
	})
	assert.ErrorIs(t, err, boom)
}
