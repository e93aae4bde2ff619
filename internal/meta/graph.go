package meta

import (
	"errors"
	"fmt"

	"github.com/stomp-org/stomp/internal/workload"
)

// ErrCycle marks a graph definition that is not acyclic.
var ErrCycle = errors.New("cycle detected")

// Graph is the remaining dependency graph of one active DAG. Nodes are
// removed as tasks retire; a node whose predecessors have all been removed
// has in-degree zero.
type Graph struct {
	dict  map[int]*Task
	order []int
	deps  map[int][]int
}

// NewGraph builds a dependency graph from a parsed definition and rejects
// cyclic inputs.
func NewGraph(def workload.GraphDef) (*Graph, error) {
	g := &Graph{
		dict: make(map[int]*Task, len(def.Nodes)),
		deps: make(map[int][]int, len(def.Nodes)),
	}
	for _, n := range def.Nodes {
		g.dict[n.ID] = &Task{TID: n.ID}
		g.order = append(g.order, n.ID)
		g.deps[n.ID] = append([]int(nil), n.Deps...)
	}
	if g.hasCycle() {
		return nil, fmt.Errorf("%w in graph of %d nodes", ErrCycle, len(def.Nodes))
	}
	return g, nil
}

// hasCycle runs Kahn's algorithm over the full graph.
func (g *Graph) hasCycle() bool {
	inDegrees := make(map[int]int, len(g.dict))
	from := make(map[int][]int, len(g.dict))
	for id, deps := range g.deps {
		inDegrees[id] = len(deps)
		for _, dep := range deps {
			from[dep] = append(from[dep], id)
		}
	}

	var q []int
	for _, id := range g.order {
		if inDegrees[id] == 0 {
			q = append(q, id)
		}
	}

	visited := 0
	for len(q) > 0 {
		f := q[0]
		q = q[1:]
		visited++
		for _, to := range from[f] {
			inDegrees[to]--
			if inDegrees[to] == 0 {
				q = append(q, to)
			}
		}
	}

	return visited != len(g.dict)
}

// Len returns the number of non-retired tasks.
func (g *Graph) Len() int {
	return len(g.dict)
}

// Empty reports whether every task has retired.
func (g *Graph) Empty() bool {
	return len(g.dict) == 0
}

// Node returns the task with the given id, or nil.
func (g *Graph) Node(tid int) *Task {
	return g.dict[tid]
}

// Ready returns, in definition order, the unscheduled tasks whose
// predecessors have all retired. The result is a snapshot; callers may
// mutate task state while iterating it.
func (g *Graph) Ready() []*Task {
	var ready []*Task
	for _, id := range g.order {
		task, ok := g.dict[id]
		if !ok || task.State != StateUnscheduled {
			continue
		}
		if g.inDegree(id) == 0 {
			ready = append(ready, task)
		}
	}
	return ready
}

// inDegree counts the task's predecessors still present in the graph.
func (g *Graph) inDegree(tid int) int {
	n := 0
	for _, dep := range g.deps[tid] {
		if _, ok := g.dict[dep]; ok {
			n++
		}
	}
	return n
}

// Remove retires the task and deletes it from the graph.
func (g *Graph) Remove(tid int) {
	task, ok := g.dict[tid]
	if !ok {
		return
	}
	task.State = StateRetired
	delete(g.dict, tid)
	for i, id := range g.order {
		if id == tid {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
}
