package meta

import (
	"context"
	"runtime"
	"sort"

	"github.com/stomp-org/stomp/internal/bridge"
	"github.com/stomp-org/stomp/internal/config"
	"github.com/stomp-org/stomp/internal/logger"
)

// Manager is the DAG manager loop. It consumes completion records from the
// bridge, advances each DAG's dependency graph, and emits newly ready task
// descriptors into the shared ready queue. It runs concurrently with the
// simulator and owns the registry exclusively.
type Manager struct {
	registry *Registry
	bridge   *bridge.Bridge
	types    []config.ServerType

	results []Result
}

// NewManager creates a Manager over an already populated registry.
func NewManager(registry *Registry, b *bridge.Bridge, types []config.ServerType) *Manager {
	return &Manager{
		registry: registry,
		bridge:   b,
		types:    types,
	}
}

// Run drives the manager loop until every DAG has retired or the context
// is canceled. On return the bridge is marked done and the result list is
// final.
func (m *Manager) Run(ctx context.Context) error {
	defer m.bridge.MarkMetaDone()

	for m.registry.Len() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		var completions []bridge.Completion
		if m.bridge.TaskCompleted() {
			completions = m.bridge.DrainCompletions()
			for _, c := range completions {
				m.applyCompletion(ctx, c)
			}
		}

		var batch []*bridge.TaskDesc
		for _, dag := range m.registry.Active() {
			for _, task := range dag.Graph.Ready() {
				desc, ok := m.descriptor(ctx, dag, task)
				task.State = StateEnqueued
				if !ok {
					continue
				}
				batch = append(batch, desc)
			}
		}

		dropped := m.bridge.PushReady(batch)
		for _, d := range dropped {
			logger.Infof(ctx, "ready queue at capacity, dropping task (dag=%d tid=%d)", d.DAGID, d.TID)
		}

		m.bridge.SettleCompletions()

		if len(completions) == 0 && len(batch) == 0 {
			runtime.Gosched()
		}
	}

	return nil
}

// applyCompletion advances the DAG the completed task belongs to, retiring
// the DAG when its graph empties. Completions referencing unknown DAGs or
// tasks are logged and skipped.
func (m *Manager) applyCompletion(ctx context.Context, c bridge.Completion) {
	dag := m.registry.Lookup(c.DAGID)
	if dag == nil {
		logger.Warn(ctx, "completion for unknown DAG", "dag", c.DAGID, "tid", c.TID)
		return
	}
	if dag.Graph.Node(c.TID) == nil {
		logger.Warn(ctx, "completion for unknown task", "dag", c.DAGID, "tid", c.TID)
		return
	}

	dag.ReadyTime = c.ArrivalTime + c.Lifetime
	dag.RespTime = dag.ReadyTime - dag.ArrivalTime
	dag.Graph.Remove(c.TID)

	if dag.Graph.Empty() {
		m.results = append(m.results, Result{
			DAGID:    dag.ID,
			DAGType:  dag.Type,
			RespTime: dag.RespTime,
		})
		m.registry.Retire(dag.ID)
		logger.Debug(ctx, "DAG retired", "dag", dag.ID, "respTime", dag.RespTime)
	}
}

// descriptor builds a ready-task descriptor for an eligible node. The
// effective arrival time is the DAG's arrival time for the root task and
// the DAG's current ready time otherwise.
func (m *Manager) descriptor(ctx context.Context, dag *DAG, task *Task) (*bridge.TaskDesc, bool) {
	row, ok := dag.Comp[task.TID]
	if !ok {
		logger.Warn(ctx, "no compute-time row for task", "dag", dag.ID, "tid", task.TID)
		return nil, false
	}

	atime := dag.ReadyTime
	if task.TID == 0 {
		atime = dag.ArrivalTime
	}

	times := make([]bridge.ServiceTime, 0, len(m.types))
	for k, st := range m.types {
		if k >= len(row.Times) {
			logger.Warn(ctx, "compute-time row too short", "dag", dag.ID, "tid", task.TID, "serverType", st.Name)
			break
		}
		times = append(times, bridge.ServiceTime{
			ServerType: st.Name,
			Mean:       row.Times[k],
			Stdev:      st.StdevServiceTime,
		})
	}

	return &bridge.TaskDesc{
		ArrivalTime: atime,
		BaseCost:    row.BaseCost,
		DAGID:       dag.ID,
		TID:         task.TID,
		DAGType:     dag.Type,
		Times:       times,
	}, true
}

// Results returns the per-DAG result entries sorted by DAG id. The sort
// happens here rather than at loop exit so that a canceled run still
// reports in id order. Valid only after Run has returned.
func (m *Manager) Results() []Result {
	sort.Slice(m.results, func(i, j int) bool {
		return m.results[i].DAGID < m.results[j].DAGID
	})
	return m.results
}
