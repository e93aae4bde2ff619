// Package workload loads DAG arrival traces, per-type graph files and
// per-type compute-time matrices into in-memory structures.
package workload

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stomp-org/stomp/internal/fileutil"
)

var (
	// ErrTraceFormat marks a malformed arrival trace.
	ErrTraceFormat = errors.New("malformed arrival trace")
	// ErrGraphFormat marks a malformed DAG graph file.
	ErrGraphFormat = errors.New("malformed graph file")
	// ErrMatrixFormat marks a malformed compute-time matrix.
	ErrMatrixFormat = errors.New("malformed compute-time matrix")
)

// Loader resolves and reads workload files relative to a working directory.
// Graph definitions and matrices are cached per DAG type: a workload
// typically repeats a handful of types across many arrivals.
type Loader struct {
	WorkingDir  string
	InputsDir   string
	TraceFile   string
	StdevFactor int
	Scale       int64

	graphs   map[string]GraphDef
	matrices map[string]Matrix
}

// GraphPath returns the graph file path for a DAG type.
func (l *Loader) GraphPath(dagType string) string {
	return filepath.Join(l.WorkingDir, l.InputsDir, fmt.Sprintf("random_dag_%s.yaml", dagType))
}

// MatrixPath returns the compute-time matrix path for a DAG type.
func (l *Loader) MatrixPath(dagType string) string {
	return filepath.Join(l.WorkingDir, l.InputsDir, fmt.Sprintf("random_comp_%s_%d.txt", dagType, l.StdevFactor))
}

// TracePath returns the arrival trace path.
func (l *Loader) TracePath() string {
	return filepath.Join(l.WorkingDir, l.TraceFile)
}

// ReadTraceFile reads and parses the arrival trace. A missing file is fatal.
func (l *Loader) ReadTraceFile() ([]Arrival, error) {
	if !fileutil.FileExists(l.TracePath()) {
		return nil, fmt.Errorf("arrival trace %s not found", l.TracePath())
	}
	f, err := os.Open(l.TracePath())
	if err != nil {
		return nil, fmt.Errorf("open arrival trace: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	scale := l.Scale
	if scale < 1 {
		scale = 1
	}
	return ReadTrace(f, scale)
}

// ReadGraphFile reads and parses the graph file for a DAG type.
func (l *Loader) ReadGraphFile(dagType string) (GraphDef, error) {
	if def, ok := l.graphs[dagType]; ok {
		return def, nil
	}

	f, err := os.Open(l.GraphPath(dagType))
	if err != nil {
		return GraphDef{}, fmt.Errorf("open graph file: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	def, err := ReadGraphDef(f)
	if err != nil {
		return GraphDef{}, fmt.Errorf("graph %q: %w", dagType, err)
	}
	if l.graphs == nil {
		l.graphs = map[string]GraphDef{}
	}
	l.graphs[dagType] = def
	return def, nil
}

// ReadMatrixFile reads and parses the compute-time matrix for a DAG type.
func (l *Loader) ReadMatrixFile(dagType string) (Matrix, error) {
	if m, ok := l.matrices[dagType]; ok {
		return m, nil
	}

	f, err := os.Open(l.MatrixPath(dagType))
	if err != nil {
		return nil, fmt.Errorf("open compute-time matrix: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	m, err := ReadMatrix(f)
	if err != nil {
		return nil, fmt.Errorf("matrix %q: %w", dagType, err)
	}
	if l.matrices == nil {
		l.matrices = map[string]Matrix{}
	}
	l.matrices[dagType] = m
	return m, nil
}
