package workload

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Row is one task's entry in a compute-time matrix: the canonical base cost
// plus the mean execution time on each server type, in the declared
// server-type order.
type Row struct {
	TID      int
	BaseCost float64
	Times    []float64
}

// Matrix maps task ids to their compute-time rows.
type Matrix map[int]Row

// ReadMatrix parses a random_comp_<type>_<stdev_factor>.txt file: CSV with
// a header row, then one row per task as "tid, base_cost, time_on_type_0, ...".
func ReadMatrix(r io.Reader) (Matrix, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMatrixFormat, err)
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("%w: matrix has no data rows", ErrMatrixFormat)
	}

	matrix := make(Matrix, len(records)-1)
	for i, record := range records[1:] {
		if len(record) < 3 {
			return nil, fmt.Errorf("%w: row %d: expected at least 3 columns, got %d", ErrMatrixFormat, i+1, len(record))
		}

		tid, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: bad tid %q", ErrMatrixFormat, i+1, record[0])
		}
		baseCost, err := strconv.ParseFloat(strings.TrimSpace(record[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: bad base cost %q", ErrMatrixFormat, i+1, record[1])
		}

		times := make([]float64, 0, len(record)-2)
		for _, col := range record[2:] {
			t, err := strconv.ParseFloat(strings.TrimSpace(col), 64)
			if err != nil {
				return nil, fmt.Errorf("%w: row %d: bad time %q", ErrMatrixFormat, i+1, col)
			}
			times = append(times, t)
		}

		if _, ok := matrix[tid]; ok {
			return nil, fmt.Errorf("%w: duplicate tid %d", ErrMatrixFormat, tid)
		}
		matrix[tid] = Row{TID: tid, BaseCost: baseCost, Times: times}
	}

	return matrix, nil
}
