package linuxperf

import (
	"golang.org/x/exp/slices"
)

// `gapState` is the label and color of the slice we synthesize for
// the time between two runs of a thread.
type gapState struct {
	title     string
	colorName string
}

// Keyed by the `prev_state` of the `sched_switch` that took the
// thread off of the CPU.
var gapStates = map[string]gapState{
	"S":   {"Sleeping", "sleeping"},
	"R":   {"Runnable", "runnable"},
	"R+":  {"Runnable", "runnable"},
	"D":   {"Uninterruptible Sleep", "iowait"},
	"T":   {"__TASK_STOPPED", "iowait"},
	"t":   {"debug", "iowait"},
	"Z":   {"Zombie", "iowait"},
	"X":   {"Exit Dead", "iowait"},
	"x":   {"Task Dead", "iowait"},
	"W":   {"WakeKill", "iowait"},
	"D|W": {"Uninterruptible Sleep | WakeKill", "iowait"},
}

const runningSliceTitle = "Running"

// Build the `CpuSlices` of each thread from what each CPU was doing.
// This is only done for threads that are known to the model, on the
// assumption that a thread without any traced data is not of interest.
//
// A thread may have run on several CPUs.  Its CPU slices are merged
// and ordered by start time; slices with identical start times keep
// the order in which they were gathered (by CPU number, then by
// position on the CPU).
//
// If any slice carries a descheduling state that we don't understand
// an `*UnrecognizedStateError` is returned and no thread is updated.
func (ds *perfDataset) buildPerThreadCpuSlicesFromCpuState() error {
	tempCpuSlices := make(map[*TimelineThread][]*TimelineSlice)

	for _, n := range sortedKeys(ds.cpuStates) {
		cpu := ds.cpuStates[n].cpu

		for _, slice := range cpu.Slices {
			tid, _, ok := cpuSliceTidAndState(slice)
			if !ok {
				continue
			}
			thread, ok := ds.threadsByLinuxPid[tid]
			if !ok || thread == nil {
				continue
			}
			tempCpuSlices[thread] = append(tempCpuSlices[thread], slice)
		}
	}

	runningId := getColorIdByName("running")

	derived := make(map[*TimelineThread][]*TimelineSlice, len(tempCpuSlices))

	for _, thread := range ds.model.GetAllThreads() {
		origSlices, ok := tempCpuSlices[thread]
		if !ok {
			continue
		}

		slices.SortStableFunc(origSlices, func(a, b *TimelineSlice) bool {
			return a.Start < b.Start
		})

		result := make([]*TimelineSlice, 0, 2*len(origSlices))
		result = append(result, NewTimelineSlice(runningSliceTitle, runningId,
			origSlices[0].Start, nil, origSlices[0].Duration))

		for k := 1; k < len(origSlices); k++ {
			prevSlice := origSlices[k-1]
			nextSlice := origSlices[k]
			midDuration := nextSlice.Start - prevSlice.End()

			_, state, _ := cpuSliceTidAndState(prevSlice)
			gs, ok := gapStates[state]
			if !ok {
				return &UnrecognizedStateError{
					Tid:   thread.Tid,
					Name:  thread.UserFriendlyName(),
					State: state,
				}
			}

			result = append(result,
				NewTimelineSlice(gs.title, getColorIdByName(gs.colorName), prevSlice.End(), nil, midDuration),
				NewTimelineSlice(runningSliceTitle, runningId, nextSlice.Start, nil, nextSlice.Duration))
		}

		derived[thread] = result
	}

	for thread, result := range derived {
		thread.CpuSlices = result
	}
	ds.pushedEventsToThreads = true

	return nil
}
