package tree

import (
	"math"
	"testing"

	"github.com/AntonJorg/general-tree-search/internal/games/connectfour"
	"github.com/AntonJorg/general-tree-search/internal/games/dummy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateChild(t *testing.T) {
	tr := New[connectfour.Action](connectfour.New())
	root := tr.Root()
	assert.True(t, root.IsRoot())
	assert.True(t, root.IsMaxNode())
	assert.Equal(t, 7, root.BranchingFactor)
	assert.Equal(t, math.Inf(-1), root.Alpha)
	assert.Equal(t, math.Inf(1), root.Beta)

	childID := tr.CreateChild(Root, 5)
	child := tr.Node(childID)
	assert.Equal(t, 5, child.Action)
	assert.Equal(t, 1, child.Depth)
	assert.Equal(t, Root, child.Parent)
	assert.False(t, child.IsMaxNode())
	assert.Same(t, root, tr.Parent(child))
	assert.NotContains(t, root.Unexpanded, 5)
	require.NoError(t, tr.CheckPartition())

	// The first unexpanded action is the center column.
	next := tr.Node(tr.ExpandNext(Root))
	assert.Equal(t, 3, next.Action)
	assert.Equal(t, []NodeID{childID, next.ID}, root.Children)
	require.NoError(t, tr.CheckPartition())

	require.Panics(t, func() { tr.CreateChild(Root, 5) })
	require.Panics(t, func() { root.AverageUtility() })
	assert.Equal(t, 1, tr.MaxDepth())
}

func TestFullyExpanded(t *testing.T) {
	tr := New[int](dummy.New())
	for !tr.Root().IsFullyExpanded() {
		tr.ExpandNext(Root)
	}
	assert.Len(t, tr.Root().Children, 2)
	require.Panics(t, func() { tr.ExpandNext(Root) })
	require.NoError(t, tr.CheckPartition())
}

func TestCutoffRestrictAndPrune(t *testing.T) {
	tr := New[connectfour.Action](connectfour.New())
	tr.Restrict(Root, []connectfour.Action{4, 2, 3, 9})
	assert.Equal(t, []connectfour.Action{4, 2, 3}, tr.Root().Unexpanded)
	assert.ElementsMatch(t, []connectfour.Action{1, 5, 0, 6}, tr.Root().Discarded)
	require.NoError(t, tr.CheckPartition())

	a := tr.ExpandNext(Root)
	b := tr.ExpandNext(Root)
	tr.Node(a).Count = 10
	tr.Node(b).Count = 1
	removed := tr.Prune(Root, func(child *Node[connectfour.Action]) bool { return child.Count > 1 })
	assert.Equal(t, 1, removed)
	assert.Equal(t, []NodeID{a}, tr.Root().Children)
	require.NoError(t, tr.CheckPartition())

	assert.Equal(t, 1, tr.Cutoff(Root))
	assert.True(t, tr.Root().IsFullyExpanded())
	require.NoError(t, tr.CheckPartition())

	// Walk only visits reachable nodes.
	var visited int
	for range tr.Walk() {
		visited++
	}
	assert.Equal(t, 2, visited)
	assert.Equal(t, 3, tr.Len())

	// Tampering with the partition is detected.
	tr.Root().Discarded = tr.Root().Discarded[1:]
	require.Error(t, tr.CheckPartition())
}

func TestDump(t *testing.T) {
	tr := New[int](dummy.New())
	tr.ExpandNext(Root)
	dump := tr.String()
	assert.Contains(t, dump, "Node(#0")
	assert.Contains(t, dump, "--Node(#1")
}
