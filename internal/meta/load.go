package meta

import (
	"context"

	"github.com/stomp-org/stomp/internal/logger"
	"github.com/stomp-org/stomp/internal/workload"
)

// LoadWorkload reads the arrival trace and, for each arrival, the graph
// and compute-time matrix of its DAG type, and admits the assembled DAGs
// into a fresh registry. Any load failure is fatal.
func LoadWorkload(ctx context.Context, ld *workload.Loader) (*Registry, error) {
	arrivals, err := ld.ReadTraceFile()
	if err != nil {
		return nil, err
	}

	registry := NewRegistry()
	for _, a := range arrivals {
		def, err := ld.ReadGraphFile(a.DAGType)
		if err != nil {
			return nil, err
		}
		comp, err := ld.ReadMatrixFile(a.DAGType)
		if err != nil {
			return nil, err
		}
		dag, err := BuildDAG(a, def, comp)
		if err != nil {
			return nil, err
		}
		registry.Admit(dag)
		logger.Debug(ctx, "DAG admitted", "dag", dag.ID, "type", dag.Type, "tasks", dag.Graph.Len())
	}

	return registry, nil
}
