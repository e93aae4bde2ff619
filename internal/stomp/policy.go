package stomp

import (
	"context"

	"github.com/stomp-org/stomp/internal/bridge"
	"github.com/stomp-org/stomp/internal/config"
	"github.com/stomp-org/stomp/internal/stats"
)

// Policy is the scheduling-policy contract. Implementations decide which
// ready task runs on which idle server.
//
// Pick inspects the ready queue under the queue lock and may remove the
// descriptor it selects. A policy that binds a task is responsible for
// calling Pool.Assign and removing the descriptor from the queue, and
// returns the now-busy server; it returns nil to skip assignment on this
// tick. Policies are free to compute preference orders, defer tasks or
// reorder the queue, but must not bind a descriptor whose effective
// arrival time lies beyond simTime: the manager emits descriptors as soon
// as dependencies resolve, which can be ahead of virtual time.
type Policy interface {
	// Init is called once before simulation; the policy may cache the
	// pool structure and statistics references.
	Init(ctx context.Context, pool *Pool, st *stats.Stats, cfg *config.Config) error

	// Pick binds at most one ready task to an idle server.
	Pick(simTime int64, queue *bridge.ReadyQueue) *Server

	// OnRelease is called after the simulator flips a server back to idle.
	OnRelease(simTime int64, srv *Server)
}
