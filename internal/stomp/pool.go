package stomp

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/stomp-org/stomp/internal/bridge"
	"github.com/stomp-org/stomp/internal/config"
	"github.com/stomp-org/stomp/internal/stats"
)

var (
	// ErrBusyServer marks a policy binding against a non-idle server.
	ErrBusyServer = errors.New("server is not idle")
	// ErrNoServiceTime marks a task that carries no cost entry for the
	// chosen server's type.
	ErrNoServiceTime = errors.New("no service time for server type")
)

// Pool is the typed pool of servers. It owns the busy/idle transitions and
// the per-type availability counters, and samples service times with the
// simulation's RNG. The pool is confined to the simulator goroutine.
type Pool struct {
	servers   []*Server
	rng       *rand.Rand
	available map[string]int
	busy      int
}

// NewPool instantiates count servers per configured type, assigning
// monotonic ids in declared order.
func NewPool(types []config.ServerType, rng *rand.Rand) *Pool {
	p := &Pool{
		rng:       rng,
		available: make(map[string]int, len(types)),
	}
	id := 0
	for _, t := range types {
		p.available[t.Name] += t.Count
		for i := 0; i < t.Count; i++ {
			p.servers = append(p.servers, &Server{id: id, serverType: t.Name})
			id++
		}
	}
	return p
}

// Servers returns all servers in id order.
func (p *Pool) Servers() []*Server {
	return p.servers
}

// Available returns the idle-server count for a type.
func (p *Pool) Available(serverType string) int {
	return p.available[serverType]
}

// BusyCount returns the number of busy servers across all types.
func (p *Pool) BusyCount() int {
	return p.busy
}

// FirstIdle returns the lowest-id idle server of the given type, or nil.
func (p *Pool) FirstIdle(serverType string) *Server {
	for _, s := range p.servers {
		if s.serverType == serverType && s.Idle() {
			return s
		}
	}
	return nil
}

// Assign binds a task to an idle server at simTime. The service time is a
// single rounded draw from Normal(mean, stdev) for the server's type;
// negative draws are kept as-is.
func (p *Pool) Assign(srv *Server, simTime int64, task *bridge.TaskDesc) error {
	if !srv.Idle() {
		return fmt.Errorf("%w: server %d (%s)", ErrBusyServer, srv.id, srv.serverType)
	}
	st, ok := task.TimeFor(srv.serverType)
	if !ok {
		return fmt.Errorf("%w: server %d (%s), dag %d tid %d", ErrNoServiceTime, srv.id, srv.serverType, task.DAGID, task.TID)
	}

	serviceTime := int64(math.Round(p.rng.NormFloat64()*st.Stdev + st.Mean))

	srv.state = ServerBusy
	srv.task = task
	srv.jobStart = simTime
	srv.jobEnd = simTime + serviceTime
	srv.jobEndEstimated = simTime + int64(math.Round(st.Mean))
	srv.busyTime += serviceTime
	srv.numServed++

	p.available[srv.serverType]--
	p.busy++
	return nil
}

// Release flips the server back to idle and clears its current-job fields.
func (p *Pool) Release(srv *Server, simTime int64) {
	if !srv.Busy() {
		return
	}
	srv.state = ServerIdle
	srv.task = nil
	srv.jobStart = 0
	srv.jobEnd = 0
	srv.jobEndEstimated = 0
	srv.lastStoppedAt = simTime

	p.available[srv.serverType]++
	p.busy--
}

// EarliestEnd returns the busy server with the smallest exact end time and
// that time. Ties resolve to the lowest server id. Returns (nil, InfTime)
// when every server is idle.
func (p *Pool) EarliestEnd() (*Server, int64) {
	var best *Server
	bestEnd := bridge.InfTime
	for _, s := range p.servers {
		if s.Busy() && s.jobEnd < bestEnd {
			best = s
			bestEnd = s.jobEnd
		}
	}
	return best, bestEnd
}

// Usage returns the per-server counters for the summary report.
func (p *Pool) Usage() []stats.ServerUsage {
	out := make([]stats.ServerUsage, len(p.servers))
	for i, s := range p.servers {
		out[i] = stats.ServerUsage{
			ID:       s.id,
			Type:     s.serverType,
			BusyTime: s.busyTime,
			Served:   s.numServed,
		}
	}
	return out
}
