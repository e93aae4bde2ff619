package stats

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	apperr "github.com/stomp-org/stomp/internal/errors"
	"github.com/stomp-org/stomp/internal/fileutil"
)

// TraceSink writes the response-time traces: one global file plus one file
// per task type, created lazily on first completion of that type.
type TraceSink struct {
	dir      string
	basename string
	policy   string
	runID    string

	now func() time.Time

	global  io.WriteCloser
	perType map[string]io.WriteCloser
}

// NewTraceSink opens the global trace file under dir and writes its header.
func NewTraceSink(dir, basename, policy, runID string) (*TraceSink, error) {
	t := &TraceSink{
		dir:      dir,
		basename: basename,
		policy:   policy,
		runID:    runID,
		now:      time.Now,
		perType:  make(map[string]io.WriteCloser),
	}

	f, err := fileutil.OpenOrCreateFile(filepath.Join(dir, basename+".global.trace"))
	if err != nil {
		return nil, fmt.Errorf("open global trace: %w", err)
	}
	t.global = f
	t.writeHeader(f)
	return t, nil
}

func (t *TraceSink) writeHeader(w io.Writer) {
	fmt.Fprintf(w, "%s run=%s\n\n", t.now().Format("2006-01-02 15:04:05"), t.runID)
	fmt.Fprintf(w, "Time\tResponse time (avg)\n")
}

// WriteGlobal appends one record to the global trace.
func (t *TraceSink) WriteGlobal(simTime int64, avgResp float64) {
	fmt.Fprintf(t.global, "%d\t%.1f\n", simTime, avgResp)
}

// WriteType appends one record to the per-type trace, creating the file on
// first use.
func (t *TraceSink) WriteType(dagType string, simTime int64, avgResp float64) {
	w, ok := t.perType[dagType]
	if !ok {
		name := fmt.Sprintf("%s.%s.%s.trace", t.basename, dagType, t.policy)
		f, err := fileutil.OpenOrCreateFile(filepath.Join(t.dir, name))
		if err != nil {
			// Trace output is best effort; drop records for this type.
			t.perType[dagType] = nopWriteCloser{}
			return
		}
		t.writeHeader(f)
		t.perType[dagType] = f
		w = f
	}
	fmt.Fprintf(w, "%d\t%.1f\n", simTime, avgResp)
}

// Close closes all trace files.
func (t *TraceSink) Close() error {
	var errs apperr.ErrorList
	errs.Add(t.global.Close())
	for _, w := range t.perType {
		errs.Add(w.Close())
	}
	if errs.HasErrors() {
		return &errs
	}
	return nil
}

type nopWriteCloser struct{}

func (nopWriteCloser) Write(p []byte) (int, error) { return len(p), nil }
func (nopWriteCloser) Close() error                { return nil }
