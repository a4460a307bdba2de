package linuxperf

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

type FnApply func(ds *perfDataset, evt *PerfEvent) (err error)

// `EventDefinition` describes how to handle one kind of trace event.
//
// `format` is matched against the event body and its capture groups
// are handed to the handler in `evt.fields`.  If nil, the body is not
// parsed.  `apply` is the handler.  If nil, the event is recognized,
// but we don't do anything with it.
type EventDefinition struct {
	format *regexp.Regexp
	apply  FnApply
}

type EventDefinitionMap map[string]*EventDefinition

// Old-style trace markers are logged under the event name "0".
var tracingMarkWriteDefinition = &EventDefinition{
	apply: apply__tracing_mark_write,
}

var edm *EventDefinitionMap = &EventDefinitionMap{
	"sched_switch": {
		format: regexp.MustCompile(`prev_comm=(.+) prev_pid=(\d+) prev_prio=(\d+) prev_state=(\S+) ==> ` +
			`next_comm=(.+) next_pid=(\d+) next_prio=(\d+)`),
		apply: apply__sched_switch,
	},
	"sched_wakeup": {
		format: regexp.MustCompile(`comm=(.+) pid=(\d+) prio=(\d+) success=(\d+) target_cpu=(\d+)`),
		apply:  apply__sched_wakeup,
	},
	"power_start": { // old-style power event, deprecated
		format: regexp.MustCompile(`type=(\d+) state=(\d) cpu_id=(\d+)`),
		apply:  apply__power_start,
	},
	"power_frequency": { // old-style power event, deprecated
		format: regexp.MustCompile(`type=(\d+) state=(\d+) cpu_id=(\d+)`),
		apply:  apply__power_frequency,
	},
	"cpu_frequency": {
		format: regexp.MustCompile(`state=(\d+) cpu_id=(\d+)`),
		apply:  apply__cpu_frequency,
	},
	"cpu_idle": {
		format: regexp.MustCompile(`state=(\d+) cpu_id=(\d+)`),
		apply:  apply__cpu_idle,
	},
	"workqueue_execute_start": {
		// workqueue_execute_start: work struct c7a8a89c: function MISRWrapper
		format: regexp.MustCompile(`work struct (.+): function (\S+)`),
		apply:  apply__workqueue_execute_start,
	},
	"workqueue_execute_end": {
		// workqueue_execute_end: work struct c7a8a89c
		format: regexp.MustCompile(`work struct (.+)`),
		apply:  apply__workqueue_execute_end,
	},
	"workqueue_queue_work":    {}, // we don't care about this
	"workqueue_activate_work": {}, // we don't care about this
	"ext4_sync_file_enter": {
		// ext4_sync_file_enter: dev 179,9 ino 114914 parent 114912 datasync 1
		format: regexp.MustCompile(`dev (\d+,\d+) ino (\d+) parent (\d+) datasync (\d+)`),
		apply:  apply__ext4_sync_file_enter,
	},
	"ext4_sync_file_exit": {
		// ext4_sync_file_exit: dev 179,9 ino 114912 ret 0
		format: regexp.MustCompile(`dev (\d+,\d+) ino (\d+) ret (\d+)`),
		apply:  apply__ext4_sync_file_exit,
	},
	"block_rq_issue": {
		// block_rq_issue: 179,0 WS 0 () 9182248 + 8 [mmcqd/0]
		format: regexp.MustCompile(`(\d+,\d+) (F)?([DWRN])(F)?(A)?(S)?(M)? \d+ \(.*\) (\d+) \+ (\d+) \[.*\]`),
		apply:  apply__block_rq_issue,
	},
	"block_rq_complete": {
		// block_rq_complete: 179,0 WS () 9182248 + 8 [0]
		format: regexp.MustCompile(`(\d+,\d+) (F)?([DWRN])(F)?(A)?(S)?(M)? \(.*\) (\d+) \+ (\d+) \[(.*)\]`),
		apply:  apply__block_rq_complete,
	},
	"i915_gem_object_pwrite": {
		format: regexp.MustCompile(`obj=(.+), offset=(\d+), len=(\d+)`),
		apply:  apply__i915_gem_object_pwrite,
	},
	"i915_flip_request": {
		format: regexp.MustCompile(`plane=(\d+), obj=(.+)`),
		apply:  apply__i915_flip_request,
	},
	"i915_flip_complete": {
		format: regexp.MustCompile(`plane=(\d+), obj=(.+)`),
		apply:  apply__i915_flip_complete,
	},
	"tracing_mark_write": tracingMarkWriteDefinition,
	"0":                  tracingMarkWriteDefinition,
}

// Return true if we have a definition for the event name.
func isKnownEvent(name string) bool {
	_, ok := (*edm)[name]
	return ok
}

func evt_apply(ds *perfDataset, evt *PerfEvent, logger *zap.Logger) error {
	def, ok := (*edm)[evt.mf_name]
	if !ok {
		// Unrecognized event type.  This is a coverage gap rather than
		// a problem with the trace, so just note it.
		logger.Debug(fmt.Sprintf("unknown event '%s' on line %d", evt.mf_name, ds.lineNumber+1))
		ds.metrics.incUnknownEvent(evt.mf_name)
		return nil
	}

	if def.format != nil {
		evt.fields = def.format.FindStringSubmatch(evt.mf_info)
		if evt.fields == nil {
			return malformedEvent(evt.mf_name)
		}
	}

	evt.cpuState = ds.getOrCreateCpuState(evt.mf_cpuNumber)

	ds.metrics.incEvent(evt.mf_name)
	ds.summary.countEvent(evt.mf_name)

	if def.apply == nil || ds.config.isEventDisabled(evt.mf_name) {
		// Recognized event type, but we want to ignore it.
		return nil
	}

	return def.apply(ds, evt)
}

func malformedEvent(eventName string) error {
	return fmt.Errorf("Malformed %s event", eventName)
}

// Parse a decimal field that the format regexp already guaranteed
// to be all digits.
func atoi(s string) int {
	v, _ := strconv.ParseInt(s, 10, 64)
	return int(v)
}

// Parse the leading (optionally signed) decimal integer in `s` and
// ignore anything after it; "42abc" is 42.  Marker payloads are not
// validated by the writer, so be lenient here.
func parseLeadingInt(s string) (int, error) {
	s = strings.TrimSpace(s)

	k := 0
	if k < len(s) && (s[k] == '-' || s[k] == '+') {
		k++
	}
	start := k
	for k < len(s) && s[k] >= '0' && s[k] <= '9' {
		k++
	}
	if k == start {
		return 0, fmt.Errorf("not an integer: '%s'", s)
	}

	v, err := strconv.ParseInt(s[:k], 10, 64)
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func apply__sched_switch(ds *perfDataset, evt *PerfEvent) (err error) {
	prevState := evt.fields[4]
	nextComm := evt.fields[5]
	nextPid := atoi(evt.fields[6])
	nextPrio := atoi(evt.fields[7])

	evt.cpuState.switchRunningLinuxPid(ds, prevState, evt.mf_timestamp, nextPid, nextComm, nextPrio)

	return nil
}

func apply__sched_wakeup(ds *perfDataset, evt *PerfEvent) (err error) {
	comm := evt.fields[1]
	pid := atoi(evt.fields[2])
	prio := atoi(evt.fields[3])

	ds.markPidRunnable(evt.mf_timestamp, pid, comm, prio)

	return nil
}

func apply__power_start(ds *perfDataset, evt *PerfEvent) (err error) {
	if evt.fields[1] != "1" {
		return fmt.Errorf("Don't understand power_start events of type %s", evt.fields[1])
	}

	targetCpu := ds.getOrCreateCpuState(atoi(evt.fields[3]))
	powerState := atoi(evt.fields[2])

	ds.appendCpuCounterSample(targetCpu, cStateCounterName, powerCounterSeriesColor, evt.mf_timestamp, float64(powerState))

	return nil
}

func apply__power_frequency(ds *perfDataset, evt *PerfEvent) (err error) {
	targetCpu := ds.getOrCreateCpuState(atoi(evt.fields[3]))
	powerState := atoi(evt.fields[2])

	ds.appendCpuCounterSample(targetCpu, powerFrequencyCounterName, powerCounterSeriesColor, evt.mf_timestamp, float64(powerState))

	return nil
}

func apply__cpu_frequency(ds *perfDataset, evt *PerfEvent) (err error) {
	targetCpu := ds.getOrCreateCpuState(atoi(evt.fields[2]))
	powerState := atoi(evt.fields[1])

	ds.appendCpuCounterSample(targetCpu, clockFrequencyCounterName, powerCounterSeriesColor, evt.mf_timestamp, float64(powerState))

	return nil
}

func apply__cpu_idle(ds *perfDataset, evt *PerfEvent) (err error) {
	targetCpu := ds.getOrCreateCpuState(atoi(evt.fields[2]))
	powerState, _ := strconv.ParseInt(evt.fields[1], 10, 64)

	// 4294967295 (aka -1) means an exit from the current state.
	if powerState == cpuIdleExitState {
		powerState = 0
	}

	ds.appendCpuCounterSample(targetCpu, cStateCounterName, cpuIdleSeriesColor, evt.mf_timestamp, float64(powerState))

	return nil
}

func apply__workqueue_execute_start(ds *perfDataset, evt *PerfEvent) (err error) {
	kthread, err := ds.getOrCreateKernelThread(evt.mf_taskId)
	if err != nil {
		return err
	}

	ds.openSlice(kthread, evt.fields[2], evt.mf_timestamp)

	return nil
}

func apply__workqueue_execute_end(ds *perfDataset, evt *PerfEvent) (err error) {
	kthread, err := ds.getOrCreateKernelThread(evt.mf_taskId)
	if err != nil {
		return err
	}

	ds.closeSlice(kthread, evt.mf_timestamp, map[string]interface{}{})

	return nil
}

func apply__ext4_sync_file_enter(ds *perfDataset, evt *PerfEvent) (err error) {
	kthread, err := ds.getOrCreateKernelThread("ext4:" + evt.mf_taskId)
	if err != nil {
		return err
	}

	device := evt.fields[1]
	inode := evt.fields[2]
	datasync := evt.fields[4] == "1"
	key := device + "-" + inode

	name := "fsync"
	if datasync {
		name = "fdatasync"
	}

	ds.openAsyncSlice(kthread, key, evt.mf_timestamp, name)

	return nil
}

func apply__ext4_sync_file_exit(ds *perfDataset, evt *PerfEvent) (err error) {
	kthread, err := ds.getOrCreateKernelThread("ext4:" + evt.mf_taskId)
	if err != nil {
		return err
	}

	device := evt.fields[1]
	inode := evt.fields[2]
	key := device + "-" + inode

	ds.closeAsyncSlice(kthread, key, evt.mf_timestamp, map[string]interface{}{
		"device": device,
		"inode":  inode,
		"error":  atoi(evt.fields[3]),
	})

	return nil
}

// Build the display name of a block request from the rwbs flags.
// Group 2 is the leading flush flag, group 3 the operation, and
// groups 4-7 the optional fua/ahead/sync/meta flags.  Absent groups
// mean the flag is not set.
func makeBlockActionName(fields []string) string {
	var action string

	switch fields[3] {
	case "D":
		action = "discard"
	case "W":
		action = "write"
	case "R":
		action = "read"
	case "N":
		action = "none"
	default:
		action = "unknown"
	}

	if len(fields[2]) > 0 {
		action += " flush"
	}
	if fields[4] == "F" {
		action += " fua"
	}
	if fields[5] == "A" {
		action += " ahead"
	}
	if fields[6] == "S" {
		action += " sync"
	}
	if fields[7] == "M" {
		action += " meta"
	}

	return action
}

func makeBlockKey(device string, sector int, numSectors int) string {
	return fmt.Sprintf("%s-%d-%d", device, sector, numSectors)
}

func apply__block_rq_issue(ds *perfDataset, evt *PerfEvent) (err error) {
	kthread, err := ds.getOrCreateKernelThread("block:" + evt.mf_taskId)
	if err != nil {
		return err
	}

	device := evt.fields[1]
	sector := atoi(evt.fields[8])
	numSectors := atoi(evt.fields[9])
	key := makeBlockKey(device, sector, numSectors)

	ds.openAsyncSlice(kthread, key, evt.mf_timestamp, makeBlockActionName(evt.fields))

	return nil
}

func apply__block_rq_complete(ds *perfDataset, evt *PerfEvent) (err error) {
	kthread, err := ds.getOrCreateKernelThread("block:" + evt.mf_taskId)
	if err != nil {
		return err
	}

	device := evt.fields[1]
	sector := atoi(evt.fields[8])
	numSectors := atoi(evt.fields[9])
	key := makeBlockKey(device, sector, numSectors)

	// The error field is free-form in some kernels.  Use the leading
	// number, or 0 when there isn't one.
	blkErr, _ := parseLeadingInt(evt.fields[10])

	ds.closeAsyncSlice(kthread, key, evt.mf_timestamp, map[string]interface{}{
		"device":     device,
		"sector":     sector,
		"numSectors": numSectors,
		"error":      blkErr,
	})

	return nil
}

func apply__i915_gem_object_pwrite(ds *perfDataset, evt *PerfEvent) (err error) {
	obj := evt.fields[1]
	offset := atoi(evt.fields[2])
	length := atoi(evt.fields[3])

	kthread := ds.getOrCreateKernelThreadWithIds("i915_gem", 0, 1)

	ds.openSlice(kthread, "pwrite:"+obj, evt.mf_timestamp)
	ds.closeSlice(kthread, evt.mf_timestamp, map[string]interface{}{
		"obj":    obj,
		"offset": offset,
		"len":    length,
	})

	return nil
}

func apply__i915_flip_request(ds *perfDataset, evt *PerfEvent) (err error) {
	plane := atoi(evt.fields[1])
	obj := evt.fields[2]

	kthread := ds.getOrCreateKernelThreadWithIds("i915_flip", 0, 2)

	ds.openSlice(kthread, fmt.Sprintf("flip:%s/%d", obj, plane), evt.mf_timestamp)

	return nil
}

func apply__i915_flip_complete(ds *perfDataset, evt *PerfEvent) (err error) {
	plane := atoi(evt.fields[1])
	obj := evt.fields[2]

	kthread := ds.getOrCreateKernelThreadWithIds("i915_flip", 0, 2)

	ds.closeSlice(kthread, evt.mf_timestamp, map[string]interface{}{
		"obj":   obj,
		"plane": plane,
	})

	return nil
}

// User-space markers written to `trace_marker`.  The body is either
// a clock sync record or one of:
//
//	B|<pid>|<name>          begin a slice on the writing thread
//	E                       end the innermost open slice
//	C|<pid>|<name>|<value>  counter sample
func apply__tracing_mark_write(ds *perfDataset, evt *PerfEvent) (err error) {
	if m := traceEventClockSyncRE.FindStringSubmatch(evt.mf_info); m != nil {
		parentTs, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return malformedEvent(evt.mf_name)
		}
		ds.clockSyncRecords = append(ds.clockSyncRecords, ClockSyncRecord{
			PerfTS:   evt.mf_timestamp,
			ParentTS: parentTs * 1000,
		})
		return nil
	}

	eventData := strings.Split(evt.mf_info, "|")

	switch eventData[0] {
	case "B":
		if len(eventData) < 3 {
			return malformedEvent(evt.mf_name)
		}
		pid, err := parseLeadingInt(eventData[1])
		if err != nil {
			return malformedEvent(evt.mf_name)
		}
		return ds.processBegin(evt.mf_taskId, eventData[2], evt.mf_timestamp, pid)

	case "E":
		ds.processEnd(evt.mf_taskId, evt.mf_timestamp)
		return nil

	case "C":
		if len(eventData) < 4 {
			return malformedEvent(evt.mf_name)
		}
		pid, err := parseLeadingInt(eventData[1])
		if err != nil {
			return malformedEvent(evt.mf_name)
		}
		value, err := parseLeadingInt(eventData[3])
		if err != nil {
			return malformedEvent(evt.mf_name)
		}
		ds.processCounter(eventData[2], evt.mf_timestamp, float64(value), pid)
		return nil

	default:
		return malformedEvent(evt.mf_name)
	}
}
