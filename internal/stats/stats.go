// Package stats aggregates per-task, per-type and per-server counters and
// feeds the response-time trace sinks. A Stats value is owned by the
// simulator goroutine; it is not safe for concurrent use.
package stats

import (
	"math"
)

// HistogramBins is the number of bins of the queue-size histogram.
const HistogramBins = 10

// Stats is the simulator's statistics aggregate.
type Stats struct {
	TasksGenerated int
	TasksServiced  int
	RunningTasks   int

	servicedByType map[string]int
	totalResp      int64
	respByType     map[string]int64

	binSize        int
	hist           [HistogramBins]int64
	lastSizeChange int64

	sink *TraceSink
}

// New creates a Stats aggregate. sink may be nil to disable trace output.
func New(binSize int, sink *TraceSink) *Stats {
	if binSize < 1 {
		binSize = 1
	}
	return &Stats{
		servicedByType: make(map[string]int),
		respByType:     make(map[string]int64),
		binSize:        binSize,
		sink:           sink,
	}
}

// ObserveQueue accumulates the time spent at the current queue size into
// the histogram. Called at every queue-size transition.
func (s *Stats) ObserveQueue(size int, simTime int64) {
	bin := size / s.binSize
	if bin >= HistogramBins {
		bin = HistogramBins - 1
	}
	s.hist[bin] += simTime - s.lastSizeChange
	s.lastSizeChange = simTime
}

// RecordServiced updates the serviced counters and response-time totals
// for one retired task and appends the running averages to the traces.
func (s *Stats) RecordServiced(dagType string, respTime int64, simTime int64) {
	s.TasksServiced++
	s.servicedByType[dagType]++
	s.totalResp += respTime
	s.respByType[dagType] += respTime

	if s.sink != nil {
		s.sink.WriteGlobal(simTime, s.AvgRespTime())
		s.sink.WriteType(dagType, simTime, s.AvgRespTimeFor(dagType))
	}
}

// Finalize flushes the tail period into the histogram at the end of the
// simulation.
func (s *Stats) Finalize(simTime int64, queueSize int) {
	s.ObserveQueue(queueSize, simTime)
}

// AvgRespTime returns the global running average response time.
func (s *Stats) AvgRespTime() float64 {
	if s.TasksServiced == 0 {
		return 0
	}
	return float64(s.totalResp) / float64(s.TasksServiced)
}

// AvgRespTimeFor returns the running average response time for one type.
func (s *Stats) AvgRespTimeFor(dagType string) float64 {
	n := s.servicedByType[dagType]
	if n == 0 {
		return 0
	}
	return float64(s.respByType[dagType]) / float64(n)
}

// ServicedByType returns the serviced counters keyed by type.
func (s *Stats) ServicedByType() map[string]int {
	return s.servicedByType
}

// Histogram returns the raw, time-weighted queue-size histogram. The bins
// sum to the last observed sim time.
func (s *Stats) Histogram() [HistogramBins]int64 {
	return s.hist
}

// NormalizedHistogram returns the histogram as percentages rounded to two
// decimals.
func (s *Stats) NormalizedHistogram() [HistogramBins]float64 {
	var total int64
	for _, b := range s.hist {
		total += b
	}

	var out [HistogramBins]float64
	if total == 0 {
		return out
	}
	for i, b := range s.hist {
		out[i] = math.Round(100*100*float64(b)/float64(total)) / 100
	}
	return out
}
