package meta

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/stomp-org/stomp/internal/bridge"
	"github.com/stomp-org/stomp/internal/config"
	"github.com/stomp-org/stomp/internal/workload"
)

var testServerTypes = []config.ServerType{
	{Name: "cpu_core", Count: 1, MeanServiceTime: 10},
}

func testDAG(t *testing.T, id int, atime int64, nodes []workload.NodeDef, times map[int][]float64) *DAG {
	t.Helper()
	m := workload.Matrix{}
	for tid, tt := range times {
		m[tid] = workload.Row{TID: tid, BaseCost: tt[0], Times: tt}
	}
	dag, err := BuildDAG(
		workload.Arrival{ArrivalTime: atime, DAGID: id, DAGType: "test"},
		workload.GraphDef{Nodes: nodes},
		m,
	)
	require.NoError(t, err)
	return dag
}

// popReady removes and returns the head descriptor, failing the test when
// none shows up in time.
func popReady(t *testing.T, b *bridge.Bridge) *bridge.TaskDesc {
	t.Helper()
	require.Eventually(t, func() bool {
		return b.ReadyLen() > 0
	}, time.Second, time.Millisecond)

	var d *bridge.TaskDesc
	b.WithReady(func(q *bridge.ReadyQueue) {
		d = q.Remove(0)
	})
	return d
}

func TestManagerRun(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.Admit(testDAG(t, 0, 0,
		[]workload.NodeDef{{ID: 0}, {ID: 1, Deps: []int{0}}},
		map[int][]float64{0: {10}, 1: {5}},
	))

	b := bridge.New(0)
	mgr := NewManager(registry, b, testServerTypes)

	var wg sync.WaitGroup
	var runErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = mgr.Run(context.Background())
	}()

	d := popReady(t, b)
	require.Equal(t, 0, d.TID)
	require.Equal(t, int64(0), d.ArrivalTime)
	require.Equal(t, []bridge.ServiceTime{{ServerType: "cpu_core", Mean: 10}}, d.Times)

	// The root retires at t=10; the successor's effective arrival is the
	// DAG's updated ready time.
	b.PushCompletion(bridge.Completion{DAGID: 0, TID: 0, ArrivalTime: 0, Lifetime: 10})

	d = popReady(t, b)
	require.Equal(t, 1, d.TID)
	require.Equal(t, int64(10), d.ArrivalTime)

	b.PushCompletion(bridge.Completion{DAGID: 0, TID: 1, ArrivalTime: 10, Lifetime: 5})
	wg.Wait()
	require.NoError(t, runErr)

	require.True(t, b.MetaDone())
	require.False(t, b.TaskCompleted())
	require.Equal(t, []Result{{DAGID: 0, DAGType: "test", RespTime: 15}}, mgr.Results())
}

func TestManagerSkipsUnknownCompletions(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.Admit(testDAG(t, 0, 0,
		[]workload.NodeDef{{ID: 0}},
		map[int][]float64{0: {10}},
	))

	b := bridge.New(0)
	mgr := NewManager(registry, b, testServerTypes)

	b.PushCompletion(bridge.Completion{DAGID: 99, TID: 0, Lifetime: 1})
	b.PushCompletion(bridge.Completion{DAGID: 0, TID: 99, Lifetime: 1})

	var wg sync.WaitGroup
	var runErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = mgr.Run(context.Background())
	}()

	d := popReady(t, b)
	require.Equal(t, 0, d.TID)
	b.PushCompletion(bridge.Completion{DAGID: 0, TID: 0, ArrivalTime: 0, Lifetime: 10})
	wg.Wait()
	require.NoError(t, runErr)

	require.Len(t, mgr.Results(), 1)
	require.Equal(t, int64(10), mgr.Results()[0].RespTime)
}

func TestManagerQueueCapacity(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	single := []workload.NodeDef{{ID: 0}}
	times := map[int][]float64{0: {10}}
	registry.Admit(testDAG(t, 0, 0, single, times))
	registry.Admit(testDAG(t, 1, 0, single, times))

	b := bridge.New(1)
	mgr := NewManager(registry, b, testServerTypes)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var runErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = mgr.Run(ctx)
	}()

	// Only the first DAG fits; the second is dropped and never re-emitted,
	// so the manager cannot finish on its own.
	d := popReady(t, b)
	require.Equal(t, 0, d.DAGID)
	b.PushCompletion(bridge.Completion{DAGID: 0, TID: 0, ArrivalTime: 0, Lifetime: 10})

	// The completed flag settles only after the manager has applied the
	// completion, so it doubles as an applied signal.
	require.Eventually(t, func() bool {
		return !b.TaskCompleted()
	}, time.Second, time.Millisecond)
	require.Equal(t, 0, b.ReadyLen())

	cancel()
	wg.Wait()
	require.ErrorIs(t, runErr, context.Canceled)
	require.Len(t, mgr.Results(), 1)
	require.Equal(t, 0, mgr.Results()[0].DAGID)
}

func TestManagerResultsSortedOnCancel(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	single := []workload.NodeDef{{ID: 0}}
	times := map[int][]float64{0: {10}}
	registry.Admit(testDAG(t, 0, 0, single, times))
	registry.Admit(testDAG(t, 1, 0, single, times))
	registry.Admit(testDAG(t, 2, 0, single, times))

	b := bridge.New(0)
	mgr := NewManager(registry, b, testServerTypes)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var runErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = mgr.Run(ctx)
	}()

	for i := 0; i < 3; i++ {
		popReady(t, b)
	}

	// DAGs 2 and 0 retire out of id order; DAG 1 never completes, so the
	// run ends through cancellation.
	b.PushCompletion(bridge.Completion{DAGID: 2, TID: 0, ArrivalTime: 0, Lifetime: 5})
	b.PushCompletion(bridge.Completion{DAGID: 0, TID: 0, ArrivalTime: 0, Lifetime: 20})
	require.Eventually(t, func() bool {
		return !b.TaskCompleted()
	}, time.Second, time.Millisecond)

	cancel()
	wg.Wait()
	require.ErrorIs(t, runErr, context.Canceled)

	results := mgr.Results()
	require.Len(t, results, 2)
	require.Equal(t, 0, results[0].DAGID)
	require.Equal(t, 2, results[1].DAGID)

	var buf bytes.Buffer
	require.NoError(t, WriteResults(&buf, results))
	require.Equal(t, "DAG ID,DAG Type,Response Time\n0,test,20\n2,test,5\n", buf.String())
}

func TestManagerMissingCompRow(t *testing.T) {
	t.Parallel()

	registry := NewRegistry()
	registry.Admit(testDAG(t, 0, 0, []workload.NodeDef{{ID: 0}}, map[int][]float64{}))

	b := bridge.New(0)
	mgr := NewManager(registry, b, testServerTypes)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	var runErr error
	wg.Add(1)
	go func() {
		defer wg.Done()
		runErr = mgr.Run(ctx)
	}()

	// Without a compute row no descriptor can be built; the task is marked
	// handled so the manager does not spin on it.
	time.Sleep(10 * time.Millisecond)
	require.Equal(t, 0, b.ReadyLen())

	cancel()
	wg.Wait()
	require.ErrorIs(t, runErr, context.Canceled)
	require.Empty(t, mgr.Results())
}

func TestWriteResults(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := WriteResults(&buf, []Result{
		{DAGID: 0, DAGType: "dag0", RespTime: 10},
		{DAGID: 1, DAGType: "dag1", RespTime: 17},
	})
	require.NoError(t, err)
	require.Equal(t, "DAG ID,DAG Type,Response Time\n0,dag0,10\n1,dag1,17\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteResults(&buf, nil))
	require.Equal(t, "DAG ID,DAG Type,Response Time\n", buf.String())
}
