package linuxperf

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Matches the generic trace record:
//
//	<idle>-0     [001] d..3 1.23: sched_switch: ...
//
// The groups are: task id, cpu number, optional irq/preempt flags,
// timestamp (seconds), event name, event body.
var lineRE = regexp.MustCompile(`^\s*(.+?)\s+\[(\d+)\]\s*([d.][N.][sh.][\d.])?\s*(\d+\.\d+):\s+(\S+):\s(.*)$`)

// Matches the body of a `trace_event_clock_sync` user marker.
//
//	0: trace_event_clock_sync: parent_ts=19581477508
var traceEventClockSyncRE = regexp.MustCompile(`trace_event_clock_sync: parent_ts=(\d+\.?\d*)`)

var tracerHeaderRE = regexp.MustCompile(`^# tracer:`)

// `PerfEvent` is one decomposed trace line.
type PerfEvent struct {
	// Common fields for all trace lines.

	mf_taskId    string
	mf_cpuNumber int
	mf_taskInfo  string  // optional
	mf_timestamp float64 // milliseconds
	mf_name      string
	mf_info      string // unparsed event body

	// Capture groups from the event definition's format (when it
	// has one).  fields[0] is the whole match; unmatched optional
	// groups are empty strings.
	fields []string

	// Set by the dataset before the handler runs.
	cpuState *CpuState
}

// Parse the raw line of text from the trace.
//
// Returns (nil, nil) if the line is blank or a "#-style" comment.
// Returns (nil, err) if the line does not look like a trace record.
// Returns (evt, nil) otherwise.  Only the common fields are set; the
// event body is parsed later against the event definition.
func evt_parse(rawLine string) (*PerfEvent, error) {
	line := strings.TrimRight(rawLine, "\r")

	if len(line) == 0 || line[0] == '#' {
		return nil, nil
	}

	m := lineRE.FindStringSubmatch(line)
	if m == nil {
		return nil, fmt.Errorf("Unrecognized line: %s", line)
	}

	cpuNumber, err := strconv.Atoi(m[2])
	if err != nil {
		return nil, fmt.Errorf("Unrecognized line: %s", line)
	}
	ts, err := strconv.ParseFloat(m[4], 64)
	if err != nil {
		return nil, fmt.Errorf("Unrecognized line: %s", line)
	}

	evt := &PerfEvent{
		mf_taskId:    m[1],
		mf_cpuNumber: cpuNumber,
		mf_taskInfo:  m[3],
		mf_timestamp: ts * 1000,
		mf_name:      m[5],
		mf_info:      m[6],
	}

	return evt, nil
}

// Process a raw line of text from the trace.  Line-level problems
// are recorded on the model and never stop the scan.
func processRawLine(rawLine string, ds *perfDataset, logger *zap.Logger) {
	evt, err := evt_parse(rawLine)
	if err != nil {
		ds.importError(err.Error())
		return
	}
	if evt == nil {
		return
	}

	ds.sawData = true
	ds.metrics.incLines()

	if err := evt_apply(ds, evt, logger); err != nil {
		ds.importError(err.Error())
	}
}

// Guess whether the text is a Linux perf/ftrace trace.  We look for
// the "# tracer:" header that ftrace writes, or for a first line
// that matches the generic trace record.
func canImport(events string) bool {
	if tracerHeaderRE.MatchString(events) {
		return true
	}

	first := events
	if k := strings.IndexByte(events, '\n'); k >= 0 {
		first = events[:k]
	}
	first = strings.TrimRight(first, "\r")

	return lineRE.MatchString(first)
}
