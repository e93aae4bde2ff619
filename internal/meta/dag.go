package meta

import (
	"github.com/stomp-org/stomp/internal/workload"
)

// DAG is one admitted job: a dependency graph of tasks plus its compute
// matrix and timing state.
type DAG struct {
	ID   int
	Type string

	// ArrivalTime is fixed at admission. ReadyTime tracks the completion
	// time of the most recent predecessor; it starts at ArrivalTime.
	ArrivalTime int64
	ReadyTime   int64

	// RespTime is ReadyTime - ArrivalTime, final once the graph empties.
	RespTime int64

	Graph *Graph
	Comp  workload.Matrix
}

// BuildDAG assembles a DAG from its arrival entry, graph definition and
// compute matrix.
func BuildDAG(a workload.Arrival, def workload.GraphDef, comp workload.Matrix) (*DAG, error) {
	g, err := NewGraph(def)
	if err != nil {
		return nil, err
	}
	return &DAG{
		ID:          a.DAGID,
		Type:        a.DAGType,
		ArrivalTime: a.ArrivalTime,
		ReadyTime:   a.ArrivalTime,
		Graph:       g,
		Comp:        comp,
	}, nil
}
