package dummy

import (
	"testing"

	"github.com/AntonJorg/general-tree-search/internal/games"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGame(t *testing.T) {
	s := New()
	assert.Equal(t, []int{0, 1}, s.Actions())
	assert.False(t, s.IsTerminal())

	win, err := games.ApplyAll[int](s, 0, 0)
	require.NoError(t, err)
	assert.True(t, win.IsTerminal())
	assert.Equal(t, 1.0, win.Utility())
	assert.Equal(t, 2, win.Moves())

	draw, err := games.ApplyAll[int](s, 1, 0, 0)
	require.NoError(t, err)
	assert.True(t, draw.IsTerminal())
	assert.Equal(t, 0.5, draw.Utility())
	assert.Equal(t, 6, draw.(State).Position())

	_, err = games.ApplyAll[int](s, 1, 1)
	require.Error(t, err)
	require.Panics(t, func() { draw.Result(0) })
}
