package stomp

import (
	"github.com/stomp-org/stomp/internal/bridge"
)

// ServerState is the busy/idle state of one server.
type ServerState int

const (
	ServerIdle ServerState = iota
	ServerBusy
)

func (s ServerState) String() string {
	switch s {
	case ServerBusy:
		return "busy"
	case ServerIdle:
		fallthrough
	default:
		return "idle"
	}
}

// Server is one execution unit of the pool. A server may be bound only
// while idle; the pool performs the transitions.
type Server struct {
	id         int
	serverType string

	state           ServerState
	task            *bridge.TaskDesc
	jobStart        int64
	jobEnd          int64
	jobEndEstimated int64

	busyTime      int64
	numServed     int
	lastStoppedAt int64
}

// ID returns the server's pool-wide id.
func (s *Server) ID() int {
	return s.id
}

// Type returns the server's type tag.
func (s *Server) Type() string {
	return s.serverType
}

// Idle reports whether the server can be bound.
func (s *Server) Idle() bool {
	return s.state == ServerIdle
}

// Busy reports whether the server is executing a task.
func (s *Server) Busy() bool {
	return s.state == ServerBusy
}

// Task returns the currently bound task, or nil when idle.
func (s *Server) Task() *bridge.TaskDesc {
	return s.task
}

// EndTime returns the exact completion instant of the current job, or
// InfTime when idle.
func (s *Server) EndTime() int64 {
	if s.state != ServerBusy {
		return bridge.InfTime
	}
	return s.jobEnd
}

// EstimatedEndTime returns the completion instant predicted from the mean
// service time, for policies that plan around estimates.
func (s *Server) EstimatedEndTime() int64 {
	if s.state != ServerBusy {
		return bridge.InfTime
	}
	return s.jobEndEstimated
}

// ServiceTime returns the sampled duration of the current job.
func (s *Server) ServiceTime() int64 {
	return s.jobEnd - s.jobStart
}

// BusyTime returns the total time the server has spent busy.
func (s *Server) BusyTime() int64 {
	return s.busyTime
}

// NumServed returns the number of requests the server has accepted.
func (s *Server) NumServed() int {
	return s.numServed
}

// LastStoppedAt returns the instant of the most recent release.
func (s *Server) LastStoppedAt() int64 {
	return s.lastStoppedAt
}
