package linuxperf

import (
	"math"
)

// The `ThreadState` structure captures the user-space markers of one
// Linux thread (identified by the pid in its task id).
//
// When we see a begin marker, we push a new slice on to the open
// slice stack.  When we see an end marker, we pop the innermost slice
// off of the stack and record it on the thread sub-row that matches
// its nesting depth.  Nesting is inferred purely from the begin/end
// ordering on one thread, independent of which CPU it ran on.
type ThreadState struct {
	thread *TimelineThread

	// Stack of open slices on this thread.
	openSlices []*TimelineSlice
}

// Get the `ThreadState` for a task id, if we have one.
func (ds *perfDataset) getThreadState(taskId string) (*ThreadState, bool) {
	kpid, err := parsePid(taskId)
	if err != nil {
		return nil, false
	}
	state, ok := ds.threadStateByKPID[kpid]
	return state, ok
}

// Get or create the `ThreadState` for a task id.  `pid` is the
// process that owns the thread when we need to create it.
func (ds *perfDataset) getOrCreateThreadState(taskId string, pid int) (*ThreadState, error) {
	kpid, err := parsePid(taskId)
	if err != nil {
		return nil, err
	}

	state, ok := ds.threadStateByKPID[kpid]
	if ok {
		return state, nil
	}

	state = &ThreadState{
		thread: ds.model.GetOrCreateProcess(pid).GetOrCreateThread(kpid),
	}
	ds.threadsByLinuxPid[kpid] = state.thread
	if len(state.thread.Name) == 0 {
		state.thread.Name = parseThreadName(taskId)
	}
	ds.threadStateByKPID[kpid] = state

	return state, nil
}

// Open a slice and push it onto the per-thread stack.
func (ds *perfDataset) processBegin(taskId string, name string, ts float64, pid int) error {
	state, err := ds.getOrCreateThreadState(taskId, pid)
	if err != nil {
		return err
	}

	slice := NewTimelineSlice(name, getStringColorId(name), ts, nil, 0)
	state.openSlices = append(state.openSlices, slice)

	return nil
}

// Close the innermost open slice on the thread.  End markers without
// a matching begin marker are silently dropped; they are expected at
// the front of a truncated trace.
func (ds *perfDataset) processEnd(taskId string, ts float64) {
	state, ok := ds.getThreadState(taskId)
	if !ok || len(state.openSlices) == 0 {
		return
	}

	slice := state.popOpenSlice()
	slice.Duration = ts - slice.Start

	ds.recordClosedSlice(state, slice)
}

func (state *ThreadState) popOpenSlice() *TimelineSlice {
	k := len(state.openSlices)
	slice := state.openSlices[k-1]
	state.openSlices = state.openSlices[:k-1]
	return slice
}

// Store a just-popped slice on the sub-row for its depth and attach
// it to its parent (the new top of the stack), if any.
func (ds *perfDataset) recordClosedSlice(state *ThreadState, slice *TimelineSlice) {
	subRowIndex := len(state.openSlices)
	state.thread.appendToSubrow(subRowIndex, slice)

	if len(state.openSlices) > 0 {
		parentSlice := state.openSlices[len(state.openSlices)-1]
		parentSlice.SubSlices = append(parentSlice.SubSlices, slice)
	}

	ds.summary.addSlice(slice)
}

// Close any slices that are still open when the trace ends.  This
// happens in a number of reasonable situations, e.g. deadlock, or a
// trace that was cut off.  The slices are closed at the highest
// timestamp we have seen and flagged as `DidNotFinish`.
func (ds *perfDataset) autoCloseOpenSlices() {
	// The model's bounds do not include the still-open slices, so
	// collect their timestamps too.
	ds.model.UpdateBounds()

	haveOpen := false
	realMaxTimestamp := math.Inf(-1)
	if !ds.model.Bounds.IsEmpty {
		realMaxTimestamp = ds.model.Bounds.Max
	}

	for _, state := range ds.threadStateByKPID {
		for _, slice := range state.openSlices {
			haveOpen = true
			realMaxTimestamp = math.Max(realMaxTimestamp, slice.Start)
			for _, sub := range slice.SubSlices {
				realMaxTimestamp = math.Max(realMaxTimestamp, sub.Start)
				realMaxTimestamp = math.Max(realMaxTimestamp, sub.End())
			}
		}
	}

	if !haveOpen {
		return
	}

	for _, kpid := range sortedKeys(ds.threadStateByKPID) {
		state := ds.threadStateByKPID[kpid]
		for len(state.openSlices) > 0 {
			slice := state.popOpenSlice()
			slice.Duration = realMaxTimestamp - slice.Start
			slice.DidNotFinish = true

			ds.recordClosedSlice(state, slice)
		}
	}

	ds.model.UpdateBounds()
}
