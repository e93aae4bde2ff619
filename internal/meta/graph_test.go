package meta

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stomp-org/stomp/internal/workload"
)

func diamondDef() workload.GraphDef {
	return workload.GraphDef{Nodes: []workload.NodeDef{
		{ID: 0},
		{ID: 1, Deps: []int{0}},
		{ID: 2, Deps: []int{0}},
		{ID: 3, Deps: []int{1, 2}},
	}}
}

func readyIDs(g *Graph) []int {
	var ids []int
	for _, task := range g.Ready() {
		ids = append(ids, task.TID)
	}
	return ids
}

func TestGraphReady(t *testing.T) {
	t.Parallel()

	g, err := NewGraph(diamondDef())
	require.NoError(t, err)
	require.Equal(t, 4, g.Len())
	require.Equal(t, []int{0}, readyIDs(g))

	g.Remove(0)
	require.Equal(t, []int{1, 2}, readyIDs(g))

	g.Remove(1)
	require.Equal(t, []int{2}, readyIDs(g))

	g.Remove(2)
	require.Equal(t, []int{3}, readyIDs(g))

	g.Remove(3)
	require.True(t, g.Empty())
	require.Empty(t, readyIDs(g))
}

func TestGraphReadySkipsEnqueued(t *testing.T) {
	t.Parallel()

	g, err := NewGraph(diamondDef())
	require.NoError(t, err)

	g.Node(0).State = StateEnqueued
	require.Empty(t, readyIDs(g))

	// Successors stay blocked until the node is actually removed.
	g.Node(0).State = StateRunning
	require.Empty(t, readyIDs(g))
}

func TestGraphRemove(t *testing.T) {
	t.Parallel()

	g, err := NewGraph(diamondDef())
	require.NoError(t, err)

	task := g.Node(1)
	g.Remove(1)
	require.Equal(t, StateRetired, task.State)
	require.Nil(t, g.Node(1))
	require.Equal(t, 3, g.Len())

	// Removing an unknown id is a no-op.
	g.Remove(99)
	require.Equal(t, 3, g.Len())
}

func TestNewGraphRejectsCycles(t *testing.T) {
	t.Parallel()

	def := workload.GraphDef{Nodes: []workload.NodeDef{
		{ID: 0, Deps: []int{2}},
		{ID: 1, Deps: []int{0}},
		{ID: 2, Deps: []int{1}},
	}}
	_, err := NewGraph(def)
	require.ErrorIs(t, err, ErrCycle)

	def = workload.GraphDef{Nodes: []workload.NodeDef{{ID: 0, Deps: []int{0}}}}
	_, err = NewGraph(def)
	require.ErrorIs(t, err, ErrCycle)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	r := NewRegistry()
	require.Equal(t, 0, r.Len())
	require.Nil(t, r.Lookup(0))

	d0 := &DAG{ID: 0}
	d1 := &DAG{ID: 1}
	r.Admit(d0)
	r.Admit(d1)
	r.Admit(d0) // duplicate admission is ignored
	require.Equal(t, 2, r.Len())
	require.Same(t, d0, r.Lookup(0))

	active := r.Active()
	require.Len(t, active, 2)
	require.Same(t, d0, active[0])
	require.Same(t, d1, active[1])

	r.Retire(0)
	require.Nil(t, r.Lookup(0))
	require.Equal(t, []*DAG{d1}, r.Active())

	r.Retire(0) // already gone
	require.Equal(t, 1, r.Len())
}
