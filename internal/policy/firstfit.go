package policy

import (
	"context"

	"github.com/stomp-org/stomp/internal/bridge"
	"github.com/stomp-org/stomp/internal/config"
	"github.com/stomp-org/stomp/internal/stats"
	"github.com/stomp-org/stomp/internal/stomp"
)

// FirstFit binds the first queued task that has an idle server, trying the
// task's server types in cost-table order. It is deterministic: queue
// order, then declared type order, then lowest server id.
type FirstFit struct {
	pool *stomp.Pool
}

var _ stomp.Policy = (*FirstFit)(nil)

func (p *FirstFit) Init(_ context.Context, pool *stomp.Pool, _ *stats.Stats, _ *config.Config) error {
	p.pool = pool
	return nil
}

func (p *FirstFit) Pick(simTime int64, queue *bridge.ReadyQueue) *stomp.Server {
	for i := 0; i < queue.Len(); i++ {
		task := queue.At(i)
		if task.ArrivalTime > simTime {
			// The queue is sorted by effective arrival; everything from
			// here on has not arrived yet.
			break
		}
		for _, st := range task.Times {
			srv := p.pool.FirstIdle(st.ServerType)
			if srv == nil {
				continue
			}
			if err := p.pool.Assign(srv, simTime, task); err != nil {
				// The server was idle and the type came from the task's
				// own table; treat failure as a skip.
				continue
			}
			queue.Remove(i)
			return srv
		}
	}
	return nil
}

func (p *FirstFit) OnRelease(int64, *stomp.Server) {}
