package workload

import (
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
)

// NodeDef is one task node of a DAG graph file.
type NodeDef struct {
	ID   int   `yaml:"id"`
	Deps []int `yaml:"deps"`
}

// GraphDef is the parsed shape of a random_dag_<type>.yaml file. Node order
// in the file is preserved; it becomes the manager's scan order.
type GraphDef struct {
	Nodes []NodeDef `yaml:"nodes"`
}

// ReadGraphDef parses a DAG graph definition. Structural validation
// (duplicate ids, dangling deps) happens here; cycle detection is left to
// the graph construction.
func ReadGraphDef(r io.Reader) (GraphDef, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return GraphDef{}, fmt.Errorf("%w: %v", ErrGraphFormat, err)
	}

	var def GraphDef
	if err := yaml.Unmarshal(data, &def); err != nil {
		return GraphDef{}, fmt.Errorf("%w: %v", ErrGraphFormat, err)
	}
	if len(def.Nodes) == 0 {
		return GraphDef{}, fmt.Errorf("%w: graph has no nodes", ErrGraphFormat)
	}

	ids := make(map[int]struct{}, len(def.Nodes))
	for _, n := range def.Nodes {
		if n.ID < 0 {
			return GraphDef{}, fmt.Errorf("%w: negative node id %d", ErrGraphFormat, n.ID)
		}
		if _, ok := ids[n.ID]; ok {
			return GraphDef{}, fmt.Errorf("%w: duplicate node id %d", ErrGraphFormat, n.ID)
		}
		ids[n.ID] = struct{}{}
	}
	for _, n := range def.Nodes {
		for _, dep := range n.Deps {
			if _, ok := ids[dep]; !ok {
				return GraphDef{}, fmt.Errorf("%w: node %d depends on unknown node %d", ErrGraphFormat, n.ID, dep)
			}
		}
	}

	return def, nil
}
