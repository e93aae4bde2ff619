package stats

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
)

// ServerUsage is a snapshot of one server's counters for the summary.
type ServerUsage struct {
	ID       int
	Type     string
	BusyTime int64
	Served   int
}

// RenderSummary writes the end-of-run statistics: totals, per-type average
// response times, per-server busy time and utilization, and the normalized
// queue-size histogram.
func RenderSummary(w io.Writer, s *Stats, servers []ServerUsage, simTime int64) {
	fmt.Fprintf(w, "\n==================== Simulation Statistics ====================\n")
	fmt.Fprintf(w, " Total simulation time: %d\n", simTime)
	fmt.Fprintf(w, " Tasks serviced:        %d\n\n", s.TasksServiced)

	respT := table.NewWriter()
	respT.SetOutputMirror(w)
	respT.SetStyle(table.StyleLight)
	respT.SetTitle("Response time (avg)")
	respT.AppendHeader(table.Row{"Type", "Serviced", "Avg Resp Time"})
	respT.AppendRow(table.Row{"global", s.TasksServiced, fmt.Sprintf("%.1f", s.AvgRespTime())})

	types := make([]string, 0, len(s.servicedByType))
	for t := range s.servicedByType {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		respT.AppendRow(table.Row{t, s.servicedByType[t], fmt.Sprintf("%.1f", s.AvgRespTimeFor(t))})
	}
	respT.Render()

	srvT := table.NewWriter()
	srvT.SetOutputMirror(w)
	srvT.SetStyle(table.StyleLight)
	srvT.SetTitle("Servers")
	srvT.AppendHeader(table.Row{"ID", "Type", "Requests", "Busy Time", "Utilization"})
	for _, srv := range servers {
		util := 0.0
		if simTime > 0 {
			util = 100 * float64(srv.BusyTime) / float64(simTime)
		}
		srvT.AppendRow(table.Row{srv.ID, srv.Type, srv.Served, srv.BusyTime, fmt.Sprintf("%.1f%%", util)})
	}
	srvT.Render()

	hist := s.NormalizedHistogram()
	fmt.Fprintf(w, "\n Queue size histogram (bin size=%d):\n  ", s.binSize)
	for i, v := range hist {
		if i > 0 {
			fmt.Fprintf(w, ", ")
		}
		fmt.Fprintf(w, "%.2f", v)
	}
	fmt.Fprintf(w, "\n\n")
}
