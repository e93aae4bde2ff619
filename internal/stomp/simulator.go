// Package stomp implements the event-driven queue simulator: it owns
// virtual time and the server pool, binds ready tasks to servers through a
// pluggable scheduling policy, and retires servers on completion.
package stomp

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"runtime"

	"github.com/stomp-org/stomp/internal/bridge"
	"github.com/stomp-org/stomp/internal/config"
	"github.com/stomp-org/stomp/internal/logger"
	"github.com/stomp-org/stomp/internal/stats"
)

// ErrNoProgress reports a simulation that can no longer advance: tasks are
// waiting but no event will ever fire (e.g. a pool with zero capacity).
var ErrNoProgress = errors.New("simulation cannot make progress")

// stallLimit is the number of consecutive unchanged iterations after which
// the simulator declares no progress. The manager goroutine gets scheduled
// between iterations, so a legitimate wait clears well before the limit.
const stallLimit = 100_000

// Simulator advances virtual time event by event. Three event instants
// compete on each step: the earliest effective arrival in the ready queue,
// the earliest exact end time across busy servers, and the
// power-management tick.
type Simulator struct {
	cfg    *config.Config
	pool   *Pool
	bridge *bridge.Bridge
	policy Policy
	stats  *stats.Stats
	rng    *rand.Rand

	simTime       int64
	nextArrival   int64
	lastArrival   int64
	nextServEnd   int64
	nextServ      *Server
	nextPowerMgmt int64

	stall    int
	lastMark progressMark
}

// progressMark captures the observable state of one loop iteration for
// stall detection.
type progressMark struct {
	simTime   int64
	generated int
	serviced  int
	readyLen  int
	busy      int
}

// NewSimulator wires the simulator over its collaborators. The RNG is the
// run's single seeded source; the pool shares it for service-time draws.
func NewSimulator(cfg *config.Config, pool *Pool, b *bridge.Bridge, policy Policy, st *stats.Stats, rng *rand.Rand) *Simulator {
	return &Simulator{
		cfg:           cfg,
		pool:          pool,
		bridge:        b,
		policy:        policy,
		stats:         st,
		rng:           rng,
		nextArrival:   bridge.InfTime,
		lastArrival:   math.MinInt64,
		nextServEnd:   bridge.InfTime,
		nextPowerMgmt: bridge.InfTime,
	}
}

// SimTime returns the current virtual time.
func (s *Simulator) SimTime() int64 {
	return s.simTime
}

// Run drives the event loop until all admitted work has drained or the
// context is canceled.
func (s *Simulator) Run(ctx context.Context) error {
	if err := s.policy.Init(ctx, s.pool, s.stats, s.cfg); err != nil {
		return err
	}

	defer func() {
		s.stats.Finalize(s.simTime, s.bridge.ReadyLen())
	}()

	// Wait out the manager's first emission pass so an empty queue at
	// startup is not mistaken for drained work.
	for !s.bridge.MetaStarted() && !s.bridge.MetaDone() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		runtime.Gosched()
	}

	maxTasks := s.cfg.Simulation.MaxTasksSimulated

	// Ready tasks beyond the admission budget are never scheduled, so the
	// queue length does not keep the loop alive.
	for s.stats.TasksGenerated < maxTasks || s.pool.BusyCount() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// An arrival instant fires at most once. A head that stays at an
		// already-handled instant is work waiting for a server, not a new
		// event; schedule below still sees it every iteration.
		s.nextArrival = s.bridge.NextArrival()
		if s.nextArrival <= s.lastArrival {
			s.nextArrival = bridge.InfTime
		}
		admitting := s.stats.TasksGenerated < maxTasks

		event := s.nextEvent(ctx, admitting)
		switch event {
		case EventPwrMgmt:
			s.handlePowerMgmt(ctx)
		case EventArrival:
			s.handleArrival(ctx, admitting)
		case EventServerFinish:
			s.handleServerFinish(ctx)
		case EventNone:
			if s.bridge.MetaDone() && s.bridge.ReadyLen() == 0 && s.pool.BusyCount() == 0 {
				// The manager has retired every DAG and nothing is in
				// flight; remaining admission budget is moot.
				return nil
			}
		}

		picked := s.schedule(ctx, maxTasks)

		mark := progressMark{
			simTime:   s.simTime,
			generated: s.stats.TasksGenerated,
			serviced:  s.stats.TasksServiced,
			readyLen:  s.bridge.ReadyLen(),
			busy:      s.pool.BusyCount(),
		}
		if picked == 0 && mark == s.lastMark {
			s.stall++
			if s.stall >= stallLimit {
				logger.Error(ctx, "no progress possible", "simTime", s.simTime, "readyTasks", mark.readyLen, "busyServers", mark.busy)
				return ErrNoProgress
			}
			runtime.Gosched()
		} else {
			s.stall = 0
		}
		s.lastMark = mark
	}

	return nil
}

// nextEvent selects the earliest enabled event. At equal instants the
// priority is power management, then arrival, then server finish.
func (s *Simulator) nextEvent(ctx context.Context, admitting bool) EventType {
	pwr := bridge.InfTime
	if s.cfg.Simulation.PowerMgmtEnabled {
		pwr = s.nextPowerMgmt
	}
	arr := bridge.InfTime
	if admitting {
		arr = s.nextArrival
	}
	end := s.nextServEnd

	if pwr != bridge.InfTime && pwr <= arr && pwr <= end {
		return EventPwrMgmt
	}
	if arr != bridge.InfTime && arr <= end {
		return EventArrival
	}
	if end != bridge.InfTime {
		if end > pwr || end > arr {
			logger.Warn(ctx, "event ordering violated", "servEnd", end)
		}
		return EventServerFinish
	}
	return EventNone
}

func (s *Simulator) handlePowerMgmt(ctx context.Context) {
	s.advanceTime(ctx, s.nextPowerMgmt)
	logger.Warnf(ctx, "[%10d] power management not yet supported", s.simTime)
	s.nextPowerMgmt = bridge.InfTime
}

// handleArrival advances time to the earliest effective arrival. The
// arrival itself is realized by the manager pushing into the ready queue;
// here the queue-size histogram is snapshotted and a preliminary next
// inter-arrival instant is drawn. The bridge's next-arrival scalar
// overrides the draw on every queue mutation.
func (s *Simulator) handleArrival(ctx context.Context, admitting bool) {
	s.lastArrival = s.nextArrival
	s.advanceTime(ctx, s.nextArrival)

	// The elapsed period belongs to the queue size being left behind, not
	// to the size after this arrival.
	size := s.bridge.ReadyLen() - 1
	if size < 0 {
		size = 0
	}
	s.stats.ObserveQueue(size, s.simTime)

	if admitting && s.cfg.Simulation.MeanArrivalTime > 0 {
		s.nextArrival = s.simTime + int64(math.Round(s.rng.ExpFloat64()*s.cfg.Simulation.MeanArrivalTime))
	}

	logger.Debugf(ctx, "[%10d] task arrived, waiting tasks: %d", s.simTime, s.bridge.ReadyLen())
}

// handleServerFinish retires the recorded earliest-ending server: stats
// first, then server state, then the completion record, so a completion is
// visible to the manager only after the pool and counters are consistent.
func (s *Simulator) handleServerFinish(ctx context.Context) {
	srv := s.nextServ
	if srv == nil || !srv.Busy() {
		logger.Warn(ctx, "server-finish event without a busy server")
		s.nextServ, s.nextServEnd = s.pool.EarliestEnd()
		return
	}

	s.advanceTime(ctx, s.nextServEnd)

	task := srv.Task()
	lifetime := s.simTime - task.ArrivalTime
	s.stats.RunningTasks--
	s.stats.RecordServiced(task.DAGType, lifetime, s.simTime)

	s.pool.Release(srv, s.simTime)
	s.bridge.PushCompletion(bridge.Completion{
		DAGID:       task.DAGID,
		TID:         task.TID,
		ArrivalTime: task.ArrivalTime,
		Lifetime:    lifetime,
	})
	s.policy.OnRelease(s.simTime, srv)

	s.nextServ, s.nextServEnd = s.pool.EarliestEnd()

	logger.Debugf(ctx, "[%10d] server %d (%s) finished, busy servers: %d", s.simTime, srv.ID(), srv.Type(), s.pool.BusyCount())
}

// schedule invokes the policy until it declines to bind or the admission
// budget runs out, bookkeeping each successful pick.
func (s *Simulator) schedule(ctx context.Context, maxTasks int) int {
	picked := 0
	for s.stats.TasksGenerated < maxTasks {
		var srv *Server
		s.bridge.WithReady(func(q *bridge.ReadyQueue) {
			srv = s.policy.Pick(s.simTime, q)
		})
		if srv == nil {
			break
		}
		if !srv.Busy() || srv.Task() == nil {
			logger.Warn(ctx, "policy returned an inconsistent binding", "server", srv.ID())
			break
		}

		picked++
		s.stats.TasksGenerated++
		s.stats.RunningTasks++
		// The selected descriptor is already removed from the queue.
		s.stats.ObserveQueue(s.bridge.ReadyLen()+1, s.simTime)

		if srv.EndTime() < s.nextServEnd {
			s.nextServEnd = srv.EndTime()
			s.nextServ = srv
		}

		logger.Debugf(ctx, "[%10d] task scheduled on server %d (%s)", s.simTime, srv.ID(), srv.Type())
	}
	return picked
}

// advanceTime moves virtual time forward, warning on any regression.
func (s *Simulator) advanceTime(ctx context.Context, t int64) {
	if t < s.simTime {
		logger.Warn(ctx, "virtual time regression", "simTime", s.simTime, "event", t)
		return
	}
	s.simTime = t
}
