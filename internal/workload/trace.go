package workload

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Arrival is one line of the DAG arrival trace.
type Arrival struct {
	// ArrivalTime is in virtual ticks, already multiplied by the
	// configured arrival time scale.
	ArrivalTime int64
	DAGID       int
	DAGType     string
}

// ReadTrace parses a DAG arrival trace: one DAG per line as
// "arrival_time,dag_id,dag_type". Blank lines are skipped and a leading
// header line is tolerated.
func ReadTrace(r io.Reader, scale int64) ([]Arrival, error) {
	var arrivals []Arrival

	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		fields := strings.Split(line, ",")
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: line %d: expected 3 fields, got %d", ErrTraceFormat, lineNo, len(fields))
		}

		atime, err := strconv.ParseInt(strings.TrimSpace(fields[0]), 10, 64)
		if err != nil {
			if lineNo == 1 {
				// Header row.
				continue
			}
			return nil, fmt.Errorf("%w: line %d: bad arrival time %q", ErrTraceFormat, lineNo, fields[0])
		}

		dagID, err := strconv.Atoi(strings.TrimSpace(fields[1]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: bad dag id %q", ErrTraceFormat, lineNo, fields[1])
		}

		dagType := strings.TrimSpace(fields[2])
		if dagType == "" {
			return nil, fmt.Errorf("%w: line %d: empty dag type", ErrTraceFormat, lineNo)
		}

		arrivals = append(arrivals, Arrival{
			ArrivalTime: atime * scale,
			DAGID:       dagID,
			DAGType:     dagType,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTraceFormat, err)
	}

	return arrivals, nil
}
