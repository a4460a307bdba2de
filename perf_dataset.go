package linuxperf

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"
)

// A dataset captures all of the state of a single import pass over
// one trace.  Nothing in here is shared with other imports; the
// dataset is created by `NewImporter()` and thrown away afterwards.
//
// Linux scheduler traces use a definition of "pid" that is different
// from the one the timeline model uses.  A pid in a Linux trace refers
// to a specific thread within a process.  Within this package we use
// the Linux definition.
type perfDataset struct {
	// Unique dataset id for this import.  We use this in our debug
	// logging to disambiguate messages.
	datasetId uint64

	model  *TimelineModel
	events string

	// When true, the model already contains data from another trace
	// and this trace must be clock aligned to it.
	isAdditionalImport bool

	logger  *zap.Logger
	config  *Config
	metrics *ImportMetrics
	summary *SummaryAccumulator

	// Did we see at least one trace record?
	sawData bool

	// 0-based index of the line being processed.
	lineNumber int

	clockSyncRecords []ClockSyncRecord

	cpuStates          map[int]*CpuState
	kernelThreadStates map[string]*KernelThreadState

	// To allow simple indexing of threads, we store all the threads by
	// their kernel pid.  The KPID is a unique key for a thread in the
	// trace.
	threadStateByKPID map[int]*ThreadState

	// Lookup from Linux pids back to model threads, including threads
	// that were already present before this import started.
	threadsByLinuxPid map[int]*TimelineThread

	// Number of `sched_wakeup` events seen per pid.
	wakeupsByPid map[int]int

	// The model state before this import started, so that we can
	// roll back if the import has to be aborted.
	checkpoint *modelCheckpoint

	// Once the derived cpu slices have been pushed to the threads
	// the import can no longer be rolled back.
	pushedEventsToThreads bool
}

// `ClockSyncRecord` pairs a timestamp on the trace clock with the
// same instant on the clock of the trace we are being merged into.
type ClockSyncRecord struct {
	PerfTS   float64
	ParentTS float64
}

var mux sync.Mutex
var datasetId uint64

func makeDatasetId() uint64 {
	mux.Lock()
	dsid := datasetId
	datasetId++
	mux.Unlock()

	return dsid
}

func newPerfDataset(model *TimelineModel, events string, isAdditionalImport bool, cfg *Config, logger *zap.Logger) *perfDataset {
	var ds *perfDataset = new(perfDataset)

	ds.datasetId = makeDatasetId()
	ds.model = model
	ds.events = events
	ds.isAdditionalImport = isAdditionalImport
	ds.config = cfg
	ds.logger = logger
	ds.lineNumber = -1

	ds.cpuStates = make(map[int]*CpuState)
	ds.kernelThreadStates = make(map[string]*KernelThreadState)
	ds.threadStateByKPID = make(map[int]*ThreadState)
	ds.wakeupsByPid = make(map[int]int)

	if cfg != nil && cfg.SummarySettings != nil {
		ds.summary = configuredSummary(cfg.SummarySettings)
	}

	ds.checkpoint = takeModelCheckpoint(model)
	ds.buildMapFromLinuxPidsToTimelineThreads()

	return ds
}

// Precompute a lookup table from Linux pids back to existing model
// threads.  This is used during importing to add information to each
// thread about whether it was running, descheduled, sleeping, et
// cetera.
func (ds *perfDataset) buildMapFromLinuxPidsToTimelineThreads() {
	ds.threadsByLinuxPid = make(map[int]*TimelineThread)

	for _, th := range ds.model.GetAllThreads() {
		ds.threadsByLinuxPid[th.Tid] = th
	}
}

func (ds *perfDataset) importError(message string) {
	ds.model.ImportErrors = append(ds.model.ImportErrors,
		fmt.Sprintf("Line %d: %s", ds.lineNumber+1, message))
	ds.metrics.incImportErrors()
}

// Scan every line of the trace.  This never fails; problems with
// individual lines are recorded on the model.
func (ds *perfDataset) importCpuData() {
	lines := strings.Split(ds.events, "\n")

	for ds.lineNumber = 0; ds.lineNumber < len(lines); ds.lineNumber++ {
		processRawLine(lines[ds.lineNumber], ds, ds.logger)
	}

	ds.logger.Info(fmt.Sprintf("[dsid %06d] scanned %d lines: %d cpus, %d threads, %d clock syncs, %d errors",
		ds.datasetId, len(lines), len(ds.cpuStates), len(ds.threadStateByKPID),
		len(ds.clockSyncRecords), len(ds.model.ImportErrors)))

	if !ds.sawData {
		ds.logger.Warn(fmt.Sprintf("[dsid %06d] no trace records found", ds.datasetId))
	}
}

var taskPidRE = regexp.MustCompile(`.+-(\d+)`)
var taskNameRE = regexp.MustCompile(`(.+)-\d+`)

// Return the pid at the end of a kernel task id like "mmcqd/0-123".
func parsePid(taskId string) (int, error) {
	m := taskPidRE.FindStringSubmatch(taskId)
	if m == nil {
		return 0, fmt.Errorf("Could not parse pid from task id '%s'", taskId)
	}
	pid, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, fmt.Errorf("Could not parse pid from task id '%s'", taskId)
	}
	return pid, nil
}

// Return the thread name portion of a kernel task id.
func parseThreadName(taskId string) string {
	m := taskNameRE.FindStringSubmatch(taskId)
	if m == nil {
		return taskId
	}
	return m[1]
}

func (ds *perfDataset) getOrCreateCpuState(cpuNumber int) *CpuState {
	cs, ok := ds.cpuStates[cpuNumber]
	if !ok {
		cs = newCpuState(ds.model.GetOrCreateCpu(cpuNumber))
		ds.cpuStates[cpuNumber] = cs
	}
	return cs
}

// Records the fact that a pid has become runnable.
func (ds *perfDataset) markPidRunnable(ts float64, pid int, comm string, prio int) {
	ds.wakeupsByPid[pid]++
}
