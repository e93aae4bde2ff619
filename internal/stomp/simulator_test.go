package stomp_test

import (
	"bytes"
	"context"
	"math/rand/v2"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/stomp-org/stomp/internal/bridge"
	"github.com/stomp-org/stomp/internal/config"
	"github.com/stomp-org/stomp/internal/meta"
	"github.com/stomp-org/stomp/internal/policy"
	"github.com/stomp-org/stomp/internal/stats"
	"github.com/stomp-org/stomp/internal/stomp"
	"github.com/stomp-org/stomp/internal/workload"
)

func simConfig(maxTasks int, servers ...config.ServerType) *config.Config {
	return &config.Config{
		Global: config.Global{WorkingDir: ".", Basename: "stomp"},
		Simulation: config.Simulation{
			MaxTasksSimulated: maxTasks,
			ArrivalTimeScale:  1,
			BinSize:           1,
			SchedPolicy:       "firstfit",
		},
		Servers: servers,
	}
}

func admitDAG(t *testing.T, r *meta.Registry, id int, atime int64, nodes []workload.NodeDef, times map[int][]float64) {
	t.Helper()
	m := workload.Matrix{}
	for tid, tt := range times {
		m[tid] = workload.Row{TID: tid, BaseCost: tt[0], Times: tt}
	}
	dag, err := meta.BuildDAG(
		workload.Arrival{ArrivalTime: atime, DAGID: id, DAGType: "test"},
		workload.GraphDef{Nodes: nodes},
		m,
	)
	require.NoError(t, err)
	r.Admit(dag)
}

// runSim wires the manager and simulator the way the run command does,
// without trace sinks, and waits for both loops to stop.
func runSim(t *testing.T, cfg *config.Config, registry *meta.Registry) ([]meta.Result, *stats.Stats, int64, error) {
	t.Helper()

	pol, err := policy.New(cfg.Simulation.SchedPolicy)
	require.NoError(t, err)

	seed := cfg.Simulation.RandomSeed
	rng := rand.New(rand.NewPCG(seed, seed))
	b := bridge.New(cfg.Simulation.MaxQueueSize)
	st := stats.New(cfg.Simulation.BinSize, nil)
	pool := stomp.NewPool(cfg.Servers, rng)
	sim := stomp.NewSimulator(cfg, pool, b, pol, st, rng)
	mgr := meta.NewManager(registry, b, cfg.Servers)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_ = mgr.Run(ctx)
	}()

	simErr := sim.Run(ctx)
	cancel()
	wg.Wait()

	return mgr.Results(), st, sim.SimTime(), simErr
}

var singleNode = []workload.NodeDef{{ID: 0}}

func cpu(count int, mean float64) config.ServerType {
	return config.ServerType{Name: "cpu_core", Count: count, MeanServiceTime: mean}
}

func TestSimulatorSingleTask(t *testing.T) {
	t.Parallel()

	registry := meta.NewRegistry()
	admitDAG(t, registry, 0, 0, singleNode, map[int][]float64{0: {10}})

	results, st, simTime, err := runSim(t, simConfig(1, cpu(1, 10)), registry)
	require.NoError(t, err)
	require.Equal(t, int64(10), simTime)
	require.Equal(t, []meta.Result{{DAGID: 0, DAGType: "test", RespTime: 10}}, results)

	require.Equal(t, 1, st.TasksGenerated)
	require.Equal(t, 1, st.TasksServiced)
	require.Equal(t, 0, st.RunningTasks)
	require.Equal(t, float64(10), st.AvgRespTime())

	// The time-weighted histogram always accounts for the full run.
	var total int64
	for _, b := range st.Histogram() {
		total += b
	}
	require.Equal(t, simTime, total)
}

func TestSimulatorTaskChain(t *testing.T) {
	t.Parallel()

	registry := meta.NewRegistry()
	admitDAG(t, registry, 0, 0,
		[]workload.NodeDef{{ID: 0}, {ID: 1, Deps: []int{0}}},
		map[int][]float64{0: {5}, 1: {5}},
	)

	results, _, simTime, err := runSim(t, simConfig(2, cpu(1, 5)), registry)
	require.NoError(t, err)
	require.Equal(t, int64(10), simTime)
	require.Equal(t, int64(10), results[0].RespTime)
}

func TestSimulatorContention(t *testing.T) {
	t.Parallel()

	// Two single-task DAGs compete for one server. The second waits from
	// its arrival at t=3 until the server frees at t=10 and retires at 20.
	registry := meta.NewRegistry()
	times := map[int][]float64{0: {10}}
	admitDAG(t, registry, 0, 0, singleNode, times)
	admitDAG(t, registry, 1, 3, singleNode, times)

	results, st, simTime, err := runSim(t, simConfig(2, cpu(1, 10)), registry)
	require.NoError(t, err)
	require.Equal(t, int64(20), simTime)
	require.Equal(t, []meta.Result{
		{DAGID: 0, DAGType: "test", RespTime: 10},
		{DAGID: 1, DAGType: "test", RespTime: 17},
	}, results)
	require.Equal(t, 2, st.TasksServiced)

	// From t=3 to t=10 one task waits; the arrival at t=3 attributes the
	// preceding period to the size being left (empty queue).
	hist := st.Histogram()
	require.Equal(t, int64(13), hist[0])
	require.Equal(t, int64(7), hist[1])
}

func TestSimulatorParallelServers(t *testing.T) {
	t.Parallel()

	// With a second server the later DAG starts exactly at its arrival,
	// not earlier and not queued behind the first.
	registry := meta.NewRegistry()
	times := map[int][]float64{0: {10}}
	admitDAG(t, registry, 0, 0, singleNode, times)
	admitDAG(t, registry, 1, 3, singleNode, times)

	results, _, simTime, err := runSim(t, simConfig(2, cpu(2, 10)), registry)
	require.NoError(t, err)
	require.Equal(t, int64(13), simTime)
	require.Equal(t, int64(10), results[0].RespTime)
	require.Equal(t, int64(10), results[1].RespTime)
}

func TestSimulatorDiamond(t *testing.T) {
	t.Parallel()

	diamond := []workload.NodeDef{
		{ID: 0},
		{ID: 1, Deps: []int{0}},
		{ID: 2, Deps: []int{0}},
		{ID: 3, Deps: []int{1, 2}},
	}
	times := map[int][]float64{0: {4}, 1: {4}, 2: {4}, 3: {4}}

	t.Run("TwoServersRunMiddleInParallel", func(t *testing.T) {
		registry := meta.NewRegistry()
		admitDAG(t, registry, 0, 0, diamond, times)

		results, _, simTime, err := runSim(t, simConfig(4, cpu(2, 4)), registry)
		require.NoError(t, err)
		require.Equal(t, int64(12), simTime)
		require.Equal(t, int64(12), results[0].RespTime)
	})

	t.Run("OneServerSerializes", func(t *testing.T) {
		registry := meta.NewRegistry()
		admitDAG(t, registry, 0, 0, diamond, times)

		results, _, simTime, err := runSim(t, simConfig(4, cpu(1, 4)), registry)
		require.NoError(t, err)
		require.Equal(t, int64(16), simTime)
		require.Equal(t, int64(16), results[0].RespTime)
	})
}

func TestSimulatorQueueCapacityDrop(t *testing.T) {
	t.Parallel()

	// A two-slot ready queue drops the third simultaneous DAG at emission,
	// so it can never retire and the run ends in a no-progress stop. The
	// surviving DAGs retire out of id order (1 at t=5, 0 at t=20) and the
	// degraded exit must still report them sorted by DAG id.
	registry := meta.NewRegistry()
	admitDAG(t, registry, 0, 0, singleNode, map[int][]float64{0: {20}})
	admitDAG(t, registry, 1, 0, singleNode, map[int][]float64{0: {5}})
	admitDAG(t, registry, 2, 0, singleNode, map[int][]float64{0: {5}})

	cfg := simConfig(3, cpu(2, 10))
	cfg.Simulation.MaxQueueSize = 2

	results, _, _, err := runSim(t, cfg, registry)
	require.ErrorIs(t, err, stomp.ErrNoProgress)
	require.Len(t, results, 2)
	require.Equal(t, 0, results[0].DAGID)
	require.Equal(t, int64(20), results[0].RespTime)
	require.Equal(t, 1, results[1].DAGID)
	require.Equal(t, int64(5), results[1].RespTime)

	var buf bytes.Buffer
	require.NoError(t, meta.WriteResults(&buf, results))
	require.Equal(t, "DAG ID,DAG Type,Response Time\n0,test,20\n1,test,5\n", buf.String())
}

func TestSimulatorZeroTaskBudget(t *testing.T) {
	t.Parallel()

	registry := meta.NewRegistry()
	admitDAG(t, registry, 0, 0, singleNode, map[int][]float64{0: {10}})

	results, st, simTime, err := runSim(t, simConfig(0, cpu(1, 10)), registry)
	require.NoError(t, err)
	require.Equal(t, int64(0), simTime)
	require.Empty(t, results)
	require.Equal(t, 0, st.TasksGenerated)
}

func TestSimulatorNoServers(t *testing.T) {
	t.Parallel()

	registry := meta.NewRegistry()
	admitDAG(t, registry, 0, 0, singleNode, map[int][]float64{0: {10}})

	results, _, _, err := runSim(t, simConfig(1, cpu(0, 10)), registry)
	require.ErrorIs(t, err, stomp.ErrNoProgress)
	require.Empty(t, results)
}

func TestEventTypeString(t *testing.T) {
	t.Parallel()

	require.Equal(t, "none", stomp.EventNone.String())
	require.Equal(t, "power management", stomp.EventPwrMgmt.String())
	require.Equal(t, "task arrival", stomp.EventArrival.String())
	require.Equal(t, "server finish", stomp.EventServerFinish.String())
}
