package linuxperf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_KernelThread_Ids(t *testing.T) {
	ds := x_dataset(NewTimelineModel())

	kthread, err := ds.getOrCreateKernelThread("ext4:app-12-34")
	require.NoError(t, err)
	assert.Equal(t, 34, kthread.thread.Parent.Pid)
	assert.Equal(t, "ext4:app-12-34", kthread.thread.Name)
	assert.Same(t, kthread.thread, ds.model.Processes[34].Threads[34])

	again, err := ds.getOrCreateKernelThread("ext4:app-12-34")
	require.NoError(t, err)
	assert.Same(t, kthread, again)

	_, err = ds.getOrCreateKernelThread("ext4:nopid")
	assert.Error(t, err)
}

func Test_KernelThread_Slice(t *testing.T) {
	ds := x_dataset(NewTimelineModel())
	kthread := ds.getOrCreateKernelThreadWithIds("i915_flip", 0, 2)

	// Nothing is open yet.
	ds.closeSlice(kthread, 500, nil)
	assert.Empty(t, kthread.thread.SubRows)

	ds.openSlice(kthread, "first", 1000)
	ds.openSlice(kthread, "second", 1100)
	ds.closeSlice(kthread, 1300, map[string]interface{}{"plane": 0})
	ds.closeSlice(kthread, 1400, nil)

	require.Len(t, kthread.thread.SubRows, 1)
	require.Len(t, kthread.thread.SubRows[0], 1)

	s := kthread.thread.SubRows[0][0]
	assert.Equal(t, "second", s.Title)
	assert.Equal(t, 1100.0, s.Start)
	assert.Equal(t, 200.0, s.Duration)
	assert.Equal(t, map[string]interface{}{"plane": 0}, s.Args)
}

func Test_KernelThread_AsyncPairing(t *testing.T) {
	ds := x_dataset(NewTimelineModel())
	kthread, err := ds.getOrCreateKernelThread("block:mmcqd/0-123")
	require.NoError(t, err)

	ds.openAsyncSlice(kthread, "a", 1000, "read")
	ds.openAsyncSlice(kthread, "b", 1100, "write")
	ds.closeAsyncSlice(kthread, "b", 1200, nil)
	ds.closeAsyncSlice(kthread, "a", 1500, map[string]interface{}{"error": 0})

	th := kthread.thread
	require.Len(t, th.AsyncSlices, 2)

	b := th.AsyncSlices[0]
	assert.Equal(t, "write", b.Title)
	assert.Equal(t, 100.0, b.Duration)
	assert.Equal(t, map[string]interface{}{}, b.Args)
	assert.Same(t, th, b.StartThread)
	assert.Same(t, th, b.EndThread)

	a := th.AsyncSlices[1]
	assert.Equal(t, "read", a.Title)
	assert.Equal(t, 500.0, a.Duration)

	// One sub-slice that mirrors the async slice.
	require.Len(t, a.SubSlices, 1)
	assert.Equal(t, a.Title, a.SubSlices[0].Title)
	assert.Equal(t, a.Start, a.SubSlices[0].Start)
	assert.Equal(t, a.Duration, a.SubSlices[0].Duration)
	assert.Equal(t, a.Args, a.SubSlices[0].Args)

	assert.Empty(t, kthread.asyncSlices)
}

func Test_KernelThread_AsyncUnknownClose(t *testing.T) {
	ds := x_dataset(NewTimelineModel())
	kthread := ds.getOrCreateKernelThreadWithIds("block:x-1", 1, 1)

	ds.closeAsyncSlice(kthread, "nope", 1000, nil)

	assert.Empty(t, kthread.thread.AsyncSlices)
}

func Test_KernelThread_AsyncKeyReuse(t *testing.T) {
	ds := x_dataset(NewTimelineModel())
	kthread := ds.getOrCreateKernelThreadWithIds("block:x-1", 1, 1)

	ds.openAsyncSlice(kthread, "k", 1000, "first")
	ds.openAsyncSlice(kthread, "k", 1200, "second")
	ds.closeAsyncSlice(kthread, "k", 1500, nil)
	ds.closeAsyncSlice(kthread, "k", 1600, nil)

	require.Len(t, kthread.thread.AsyncSlices, 1)
	assert.Equal(t, "second", kthread.thread.AsyncSlices[0].Title)
	assert.Equal(t, 300.0, kthread.thread.AsyncSlices[0].Duration)
}

// The close of an ext4 sync written by another task does not match.
func Test_KernelThread_AsyncOtherTask(t *testing.T) {
	model := x_import_ok(t, x_trace(
		x_line("app-200", 0, 1.0, "ext4_sync_file_enter", "dev 179,9 ino 5 parent 1 datasync 0"),
		x_line("app-201", 0, 1.5, "ext4_sync_file_exit", "dev 179,9 ino 5 ret 0"),
	))

	assert.Empty(t, model.ImportErrors)
	assert.Empty(t, model.Processes[200].Threads[200].AsyncSlices)
	assert.Empty(t, model.Processes[201].Threads[201].AsyncSlices)
}
