package linuxperf

// `KernelThreadState` is the import state of one kernel execution
// context.  These are identified by a string rather than a number,
// for example "mmcqd/0-123" or synthetic names like "ext4:<taskId>"
// and "block:<taskId>".
//
// A kernel thread has at most one open (synchronous) slice and any
// number of open async slices, keyed by a domain specific string.
type KernelThreadState struct {
	thread *TimelineThread

	hasOpenSlice bool
	openSlice    string
	openSliceTS  float64

	asyncSlices map[string]*TimelineAsyncSlice

	// Slices closed by this import.  Several kernel threads can share
	// one model thread, and that thread may also carry user markers.
	closedSlices []*TimelineSlice
}

// Get or create the kernel thread state for a task id.  The pid (and
// tid) of the model thread are parsed from the name.
func (ds *perfDataset) getOrCreateKernelThread(kernelThreadName string) (*KernelThreadState, error) {
	if kthread, ok := ds.kernelThreadStates[kernelThreadName]; ok {
		return kthread, nil
	}

	pid, err := parsePid(kernelThreadName)
	if err != nil {
		return nil, err
	}

	return ds.getOrCreateKernelThreadWithIds(kernelThreadName, pid, pid), nil
}

// Get or create the kernel thread state for a synthetic context that
// does not carry ids in its name (such as the GPU pseudo-threads).
func (ds *perfDataset) getOrCreateKernelThreadWithIds(kernelThreadName string, pid int, tid int) *KernelThreadState {
	if kthread, ok := ds.kernelThreadStates[kernelThreadName]; ok {
		return kthread
	}

	thread := ds.model.GetOrCreateProcess(pid).GetOrCreateThread(tid)
	thread.Name = kernelThreadName

	kthread := &KernelThreadState{
		thread:      thread,
		asyncSlices: make(map[string]*TimelineAsyncSlice),
	}

	ds.kernelThreadStates[kernelThreadName] = kthread
	ds.threadsByLinuxPid[pid] = thread

	return kthread
}

// Remember the start of a kernel thread slice.  Any slice that is
// already open on the kernel thread is discarded.
func (ds *perfDataset) openSlice(kthread *KernelThreadState, name string, ts float64) {
	kthread.hasOpenSlice = true
	kthread.openSlice = name
	kthread.openSliceTS = ts
}

// Close the open kernel thread slice, if any, and record it on the
// outermost sub-row of the thread.
func (ds *perfDataset) closeSlice(kthread *KernelThreadState, ts float64, data map[string]interface{}) {
	if !kthread.hasOpenSlice || len(kthread.openSlice) == 0 {
		return
	}

	slice := NewTimelineSlice(kthread.openSlice,
		getStringColorId(kthread.openSlice),
		kthread.openSliceTS,
		data,
		ts-kthread.openSliceTS)

	kthread.thread.appendToSubrow(0, slice)
	kthread.closedSlices = append(kthread.closedSlices, slice)
	ds.summary.addSlice(slice)

	kthread.hasOpenSlice = false
	kthread.openSlice = ""
}

// Start an async slice.  Reusing the key of a slice that is still
// open replaces it.
func (ds *perfDataset) openAsyncSlice(kthread *KernelThreadState, key string, ts float64, name string) {
	slice := &TimelineAsyncSlice{
		TimelineSlice: *NewTimelineSlice(name, getStringColorId(name), ts, nil, 0),
		StartThread:   kthread.thread,
	}

	kthread.asyncSlices[key] = slice
}

// Finish the async slice with the given key.  Closing a key that is
// not open on this kernel thread does nothing.  The finished slice
// belongs to the thread that started it.
func (ds *perfDataset) closeAsyncSlice(kthread *KernelThreadState, key string, ts float64, data map[string]interface{}) {
	slice, ok := kthread.asyncSlices[key]
	if !ok {
		return
	}
	delete(kthread.asyncSlices, key)

	if data == nil {
		data = make(map[string]interface{})
	}

	slice.Duration = ts - slice.Start
	slice.Args = data
	slice.EndThread = kthread.thread
	slice.SubSlices = []*TimelineSlice{
		NewTimelineSlice(slice.Title, slice.ColorId, slice.Start, slice.Args, slice.Duration),
	}

	slice.StartThread.AsyncSlices = append(slice.StartThread.AsyncSlices, slice)
	ds.summary.addSlice(&slice.TimelineSlice)
}
