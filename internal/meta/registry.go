package meta

// Registry owns all active DAGs. It keeps an ordered list of active ids
// alongside the lookup map; the list order is the manager loop's tick
// order. The registry is confined to the manager goroutine and needs no
// locking.
type Registry struct {
	dags  map[int]*DAG
	order []int
}

func NewRegistry() *Registry {
	return &Registry{dags: make(map[int]*DAG)}
}

// Admit adds a DAG to the registry.
func (r *Registry) Admit(dag *DAG) {
	if _, ok := r.dags[dag.ID]; ok {
		return
	}
	r.dags[dag.ID] = dag
	r.order = append(r.order, dag.ID)
}

// Lookup returns the DAG with the given id, or nil.
func (r *Registry) Lookup(dagID int) *DAG {
	return r.dags[dagID]
}

// Retire removes a DAG from the registry.
func (r *Registry) Retire(dagID int) {
	if _, ok := r.dags[dagID]; !ok {
		return
	}
	delete(r.dags, dagID)
	for i, id := range r.order {
		if id == dagID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Len returns the number of active DAGs.
func (r *Registry) Len() int {
	return len(r.dags)
}

// Active returns the active DAGs in admission order. The slice is a
// snapshot; retiring a DAG while iterating it is safe.
func (r *Registry) Active() []*DAG {
	out := make([]*DAG, 0, len(r.order))
	for _, id := range r.order {
		if dag, ok := r.dags[id]; ok {
			out = append(out, dag)
		}
	}
	return out
}
