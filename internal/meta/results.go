package meta

import (
	"encoding/csv"
	"io"
	"strconv"
)

// Result is the terminal record of one DAG.
type Result struct {
	DAGID    int
	DAGType  string
	RespTime int64
}

// WriteResults writes the result rows as CSV with the canonical header.
// Rows are written in the order given; Manager.Results is already sorted
// by DAG id.
func WriteResults(w io.Writer, results []Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"DAG ID", "DAG Type", "Response Time"}); err != nil {
		return err
	}
	for _, r := range results {
		record := []string{
			strconv.Itoa(r.DAGID),
			r.DAGType,
			strconv.FormatInt(r.RespTime, 10),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
