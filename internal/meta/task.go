package meta

// TaskState is the scheduling flag of a task node.
type TaskState int

const (
	StateUnscheduled TaskState = iota
	StateEnqueued
	StateRunning
	StateRetired
)

func (s TaskState) String() string {
	switch s {
	case StateEnqueued:
		return "enqueued"
	case StateRunning:
		return "running"
	case StateRetired:
		return "retired"
	case StateUnscheduled:
		fallthrough
	default:
		return "unscheduled"
	}
}

// Task is a node of a DAG's dependency graph. Nodes are pure data; they do
// not point back at their DAG. The manager addresses a task by its
// (dag_id, tid) pair and resolves through the registry.
type Task struct {
	TID   int
	State TaskState
}
