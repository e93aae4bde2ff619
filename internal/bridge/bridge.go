// Package bridge holds the shared state between the DAG manager and the
// event-driven simulator: the ready queue of emitted task descriptors, the
// completion queue of retired tasks, and the scalars both sides poll.
//
// The manager and the simulator run on separate goroutines. Each queue has
// its own mutex and the two are never held at the same time.
package bridge

import (
	"math"
	"sync"
	"sync/atomic"
)

// InfTime stands in for +Inf on the integer virtual-time axis.
const InfTime int64 = math.MaxInt64

// ServiceTime is one entry of a descriptor's per-server cost table.
type ServiceTime struct {
	ServerType string
	Mean       float64
	Stdev      float64
}

// TaskDesc is the unit of the ready queue: a task whose predecessors have
// all retired, carrying its candidate execution times on every server type.
type TaskDesc struct {
	// ArrivalTime is the effective arrival time: the DAG's arrival time for
	// the root task, the DAG's current ready time otherwise.
	ArrivalTime int64
	BaseCost    float64
	DAGID       int
	TID         int
	DAGType     string
	Times       []ServiceTime
}

// TimeFor returns the cost-table entry for the given server type.
func (t *TaskDesc) TimeFor(serverType string) (ServiceTime, bool) {
	for _, st := range t.Times {
		if st.ServerType == serverType {
			return st, true
		}
	}
	return ServiceTime{}, false
}

// Completion records a retired task for the manager to consume.
type Completion struct {
	DAGID int
	TID   int

	// ArrivalTime is the task's effective arrival time when it was
	// enqueued. Lifetime is the span from that instant to retirement, so
	// ArrivalTime+Lifetime is the completion instant the manager uses to
	// recompute the DAG's ready time.
	ArrivalTime int64
	Lifetime    int64
}

// ReadyQueue is the ordered buffer of ready task descriptors. It is not
// safe for concurrent use on its own; the Bridge guards it.
type ReadyQueue struct {
	items []*TaskDesc
}

func (q *ReadyQueue) Len() int {
	return len(q.items)
}

// At returns the descriptor at position i without removing it.
func (q *ReadyQueue) At(i int) *TaskDesc {
	return q.items[i]
}

// Remove removes and returns the descriptor at position i.
func (q *ReadyQueue) Remove(i int) *TaskDesc {
	d := q.items[i]
	q.items = append(q.items[:i], q.items[i+1:]...)
	return d
}

func (q *ReadyQueue) push(d *TaskDesc) {
	q.items = append(q.items, d)
}

// sort orders the queue by effective arrival time ascending. The sort is
// stable so ties keep the manager's emission order.
func (q *ReadyQueue) sort() {
	// Insertion sort: batches are small and the queue is already mostly
	// ordered, and stability is required.
	for i := 1; i < len(q.items); i++ {
		for j := i; j > 0 && q.items[j-1].ArrivalTime > q.items[j].ArrivalTime; j-- {
			q.items[j-1], q.items[j] = q.items[j], q.items[j-1]
		}
	}
}

func (q *ReadyQueue) head() *TaskDesc {
	if len(q.items) == 0 {
		return nil
	}
	return q.items[0]
}

// Bridge is the hand-off channel between the manager and the simulator.
type Bridge struct {
	maxQueueSize int

	// queueMu guards ready, nextArrival and metaStarted. metaStarted is
	// raised on the manager's first emission pass, even an empty one, so
	// the simulator can tell "not started yet" from "nothing ready".
	queueMu     sync.Mutex
	ready       ReadyQueue
	nextArrival int64
	metaStarted bool

	// complMu guards completed and taskCompleted.
	complMu       sync.Mutex
	completed     []Completion
	taskCompleted bool

	metaDone atomic.Bool
}

// New creates a Bridge. maxQueueSize bounds the ready queue; zero means
// unbounded.
func New(maxQueueSize int) *Bridge {
	return &Bridge{
		maxQueueSize: maxQueueSize,
		nextArrival:  InfTime,
	}
}

// PushReady appends a batch of descriptors, re-sorts the queue and
// refreshes the next-arrival scalar. Descriptors that would exceed the
// queue bound are returned as dropped instead of enqueued.
func (b *Bridge) PushReady(batch []*TaskDesc) (dropped []*TaskDesc) {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()

	for _, d := range batch {
		if b.maxQueueSize > 0 && b.ready.Len() >= b.maxQueueSize {
			dropped = append(dropped, d)
			continue
		}
		b.ready.push(d)
	}
	b.ready.sort()
	b.refreshNextArrival()
	b.metaStarted = true
	return dropped
}

// WithReady runs fn with exclusive access to the ready queue, then
// refreshes the next-arrival scalar to the queue head.
func (b *Bridge) WithReady(fn func(q *ReadyQueue)) {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	fn(&b.ready)
	b.refreshNextArrival()
}

// refreshNextArrival must be called with queueMu held.
func (b *Bridge) refreshNextArrival() {
	if head := b.ready.head(); head != nil {
		b.nextArrival = head.ArrivalTime
	} else {
		b.nextArrival = InfTime
	}
}

// NextArrival returns the earliest effective arrival time in the ready
// queue, or InfTime when the queue is empty.
func (b *Bridge) NextArrival() int64 {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	return b.nextArrival
}

// ReadyLen returns the current ready queue length.
func (b *Bridge) ReadyLen() int {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	return b.ready.Len()
}

// MetaStarted reports whether the manager has completed at least one
// emission pass.
func (b *Bridge) MetaStarted() bool {
	b.queueMu.Lock()
	defer b.queueMu.Unlock()
	return b.metaStarted
}

// PushCompletion appends a completion record and raises the completed flag
// to wake the manager.
func (b *Bridge) PushCompletion(c Completion) {
	b.complMu.Lock()
	defer b.complMu.Unlock()
	b.completed = append(b.completed, c)
	b.taskCompleted = true
}

// DrainCompletions removes and returns all pending completion records in
// FIFO order.
func (b *Bridge) DrainCompletions() []Completion {
	b.complMu.Lock()
	defer b.complMu.Unlock()
	out := b.completed
	b.completed = nil
	return out
}

// SettleCompletions lowers the completed flag if the completion queue is
// empty.
func (b *Bridge) SettleCompletions() {
	b.complMu.Lock()
	defer b.complMu.Unlock()
	if len(b.completed) == 0 {
		b.taskCompleted = false
	}
}

// TaskCompleted reports whether a completion has been pushed and not yet
// settled by the manager.
func (b *Bridge) TaskCompleted() bool {
	b.complMu.Lock()
	defer b.complMu.Unlock()
	return b.taskCompleted
}

// MarkMetaDone signals that the manager has retired every DAG.
func (b *Bridge) MarkMetaDone() {
	b.metaDone.Store(true)
}

// MetaDone reports whether the manager has finished.
func (b *Bridge) MetaDone() bool {
	return b.metaDone.Load()
}
