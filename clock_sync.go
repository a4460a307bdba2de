package linuxperf

import (
	"fmt"
)

const noClockSyncMessage = "Cannot import kernel trace without a clock sync."

// Walk the data recorded so far and shift it onto the clock of the
// trace we are being merged into.
//
// Returns false if the import was aborted.  That only happens for an
// additional import without a clock sync record; a primary import
// without one is taken to be aligned already.
func (ds *perfDataset) alignClocks() (bool, error) {
	if len(ds.clockSyncRecords) == 0 {
		if !ds.isAdditionalImport {
			return true, nil
		}

		if err := ds.abortImport(); err != nil {
			return false, err
		}
		return false, nil
	}

	// Only the first record is authoritative.
	sync := ds.clockSyncRecords[0]

	// A parent_ts of zero means that the clocks are identical.
	if sync.ParentTS == 0 || sync.ParentTS == sync.PerfTS {
		return true, nil
	}

	timeShift := sync.ParentTS - sync.PerfTS

	// Only shift what this import added.  A model that already holds
	// another trace may share CPUs and threads with this one.
	for _, n := range sortedKeys(ds.cpuStates) {
		cpu := ds.cpuStates[n].cpu
		from := ds.checkpoint.cpuSliceCount(n)

		for _, slice := range cpu.Slices[from:] {
			slice.Start += timeShift
		}

		for key, ctr := range cpu.Counters {
			ts := ctr.Timestamps[ds.checkpoint.cpuCounterSampleCount(n, key):]
			for k := range ts {
				ts[k] += timeShift
			}
		}
	}

	// Each kernel thread only shifts the slices it closed.  User
	// markers on the same model thread keep their timestamps.
	for _, kthread := range ds.kernelThreadStates {
		for _, slice := range kthread.closedSlices {
			slice.Start += timeShift
		}
	}

	ds.logger.Debug(fmt.Sprintf("[dsid %06d] shifted kernel clock by %f ms", ds.datasetId, timeShift))

	return true, nil
}

// Remove everything that this import added to the model and record
// a single error saying why.
func (ds *perfDataset) abortImport() error {
	if ds.pushedEventsToThreads {
		return fmt.Errorf("cannot abort, already pushed cpu data to threads")
	}

	ds.checkpoint.restore(ds.model)
	ds.model.ImportErrors = append(ds.model.ImportErrors, noClockSyncMessage)

	ds.metrics.incAbortedImports()
	ds.logger.Warn(fmt.Sprintf("[dsid %06d] %s", ds.datasetId, noClockSyncMessage))

	return nil
}

// `modelCheckpoint` remembers enough about a model to undo the
// additions made by one import.  Before clock alignment an import
// only ever adds entities or appends to existing sequences, so it is
// sufficient to remember which entities existed and the slice headers
// of each sequence.  Appending never changes the elements that were
// already visible through an old header.
type modelCheckpoint struct {
	bounds       Bounds
	importErrors []string

	cpus      map[int]*cpuCheckpoint
	processes map[int]*processCheckpoint
}

type cpuCheckpoint struct {
	slices   []*TimelineSlice
	counters map[string]counterCheckpoint
}

type processCheckpoint struct {
	threads  map[int]*threadCheckpoint
	counters map[string]counterCheckpoint
}

type threadCheckpoint struct {
	name        string
	subRows     [][]*TimelineSlice
	subRowsCopy [][]*TimelineSlice
	asyncSlices []*TimelineAsyncSlice
	cpuSlices   []*TimelineSlice
}

type counterCheckpoint struct {
	seriesNames  []string
	seriesColors []int
	timestamps   []float64
	samples      []float64
}

func checkpointCounters(counters map[string]*TimelineCounter) map[string]counterCheckpoint {
	cc := make(map[string]counterCheckpoint, len(counters))
	for k, ctr := range counters {
		cc[k] = counterCheckpoint{
			seriesNames:  ctr.SeriesNames,
			seriesColors: ctr.SeriesColors,
			timestamps:   ctr.Timestamps,
			samples:      ctr.Samples,
		}
	}
	return cc
}

func restoreCounters(counters map[string]*TimelineCounter, cc map[string]counterCheckpoint) {
	for k, ctr := range counters {
		c, ok := cc[k]
		if !ok {
			delete(counters, k)
			continue
		}
		ctr.SeriesNames = c.seriesNames
		ctr.SeriesColors = c.seriesColors
		ctr.Timestamps = c.timestamps
		ctr.Samples = c.samples
	}
}

func takeModelCheckpoint(model *TimelineModel) *modelCheckpoint {
	mc := &modelCheckpoint{
		bounds:       model.Bounds,
		importErrors: model.ImportErrors,
		cpus:         make(map[int]*cpuCheckpoint, len(model.Cpus)),
		processes:    make(map[int]*processCheckpoint, len(model.Processes)),
	}

	for n, cpu := range model.Cpus {
		mc.cpus[n] = &cpuCheckpoint{
			slices:   cpu.Slices,
			counters: checkpointCounters(cpu.Counters),
		}
	}

	for pid, p := range model.Processes {
		pc := &processCheckpoint{
			threads:  make(map[int]*threadCheckpoint, len(p.Threads)),
			counters: checkpointCounters(p.Counters),
		}
		for tid, th := range p.Threads {
			// The rows themselves are appended to in place, so keep
			// a copy of each row header.
			var rows [][]*TimelineSlice
			if th.SubRows != nil {
				rows = make([][]*TimelineSlice, len(th.SubRows))
				copy(rows, th.SubRows)
			}
			pc.threads[tid] = &threadCheckpoint{
				name:        th.Name,
				subRows:     th.SubRows,
				subRowsCopy: rows,
				asyncSlices: th.AsyncSlices,
				cpuSlices:   th.CpuSlices,
			}
		}
		mc.processes[pid] = pc
	}

	return mc
}

// The number of slices cpu `n` had when the checkpoint was taken.
func (mc *modelCheckpoint) cpuSliceCount(n int) int {
	if cc, ok := mc.cpus[n]; ok {
		return len(cc.slices)
	}
	return 0
}

func (mc *modelCheckpoint) cpuCounterSampleCount(n int, key string) int {
	if cc, ok := mc.cpus[n]; ok {
		return len(cc.counters[key].timestamps)
	}
	return 0
}

// Put the model back into the state it was in when the checkpoint
// was taken.
func (mc *modelCheckpoint) restore(model *TimelineModel) {
	for n, cpu := range model.Cpus {
		cc, ok := mc.cpus[n]
		if !ok {
			delete(model.Cpus, n)
			continue
		}
		cpu.Slices = cc.slices
		restoreCounters(cpu.Counters, cc.counters)
	}

	for pid, p := range model.Processes {
		pc, ok := mc.processes[pid]
		if !ok {
			delete(model.Processes, pid)
			continue
		}
		restoreCounters(p.Counters, pc.counters)

		for tid, th := range p.Threads {
			tc, ok := pc.threads[tid]
			if !ok {
				delete(p.Threads, tid)
				continue
			}
			th.Name = tc.name
			th.SubRows = tc.subRows
			copy(th.SubRows, tc.subRowsCopy)
			th.AsyncSlices = tc.asyncSlices
			th.CpuSlices = tc.cpuSlices
		}
	}

	model.ImportErrors = mc.importErrors
	model.Bounds = mc.bounds
}
