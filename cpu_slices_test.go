package linuxperf

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A model that already knows about thread 10 of process 10.
func x_model_with_main() (*TimelineModel, *TimelineThread) {
	model := NewTimelineModel()
	th := model.GetOrCreateProcess(10).GetOrCreateThread(10)
	th.Name = "main"
	return model, th
}

// Two runs of thread 10 on cpu 0 with `state` in between.
func x_two_runs(state string) string {
	return x_trace(
		x_sched_switch(0, 1.0, "swapper", 0, "R", "main", 10),
		x_sched_switch(0, 1.5, "main", 10, state, "swapper", 0),
		x_sched_switch(0, 2.0, "swapper", 0, "R", "main", 10),
		x_sched_switch(0, 2.5, "main", 10, "S", "swapper", 0),
	)
}

func Test_CpuSlices_RunningSleepingRunning(t *testing.T) {
	model, th := x_model_with_main()

	_, err := x_import(t, model, x_two_runs("S"), false, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"main", "main"}, x_titles(model.Cpus[0].Slices))

	require.Len(t, th.CpuSlices, 3)
	assert.Equal(t, []string{"Running", "Sleeping", "Running"}, x_titles(th.CpuSlices))

	assert.Equal(t, 1000.0, th.CpuSlices[0].Start)
	assert.Equal(t, 500.0, th.CpuSlices[0].Duration)
	assert.Equal(t, getColorIdByName("running"), th.CpuSlices[0].ColorId)

	assert.Equal(t, 1500.0, th.CpuSlices[1].Start)
	assert.Equal(t, 500.0, th.CpuSlices[1].Duration)
	assert.Equal(t, getColorIdByName("sleeping"), th.CpuSlices[1].ColorId)

	assert.Equal(t, 2000.0, th.CpuSlices[2].Start)
	assert.Equal(t, 500.0, th.CpuSlices[2].Duration)
}

func Test_CpuSlices_StateMapping(t *testing.T) {
	for state, want := range map[string]struct {
		title string
		color string
	}{
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
	} {
		model, th := x_model_with_main()

		_, err := x_import(t, model, x_two_runs(state), false, nil)
		require.NoError(t, err, state)

		require.Len(t, th.CpuSlices, 3, state)
		assert.Equal(t, want.title, th.CpuSlices[1].Title, state)
		assert.Equal(t, getColorIdByName(want.color), th.CpuSlices[1].ColorId, state)
	}
}

func Test_CpuSlices_UnrecognizedState(t *testing.T) {
	model, th := x_model_with_main()

	_, err := x_import(t, model, x_two_runs("Q"), false, nil)

	var use *UnrecognizedStateError
	require.True(t, errors.As(err, &use))
	assert.Equal(t, 10, use.Tid)
	assert.Equal(t, "Q", use.State)
	assert.Equal(t, "Unrecognized state: 'Q' (thread 10 'main')", err.Error())

	assert.Nil(t, th.CpuSlices)

	// The CPU data itself is still there.
	assert.Len(t, model.Cpus[0].Slices, 2)
}

// The slices of a thread that moved between CPUs are merged by
// start time.
func Test_CpuSlices_AcrossCpus(t *testing.T) {
	model, th := x_model_with_main()

	_, err := x_import(t, model, x_trace(
		x_sched_switch(1, 1.0, "swapper", 0, "R", "main", 10),
		x_sched_switch(1, 1.5, "main", 10, "R", "swapper", 0),
		x_sched_switch(0, 2.0, "swapper", 0, "R", "main", 10),
		x_sched_switch(0, 2.5, "main", 10, "S", "swapper", 0),
	), false, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"Running", "Runnable", "Running"}, x_titles(th.CpuSlices))
	assert.Equal(t, 1000.0, th.CpuSlices[0].Start)
	assert.Equal(t, 1500.0, th.CpuSlices[1].Start)
	assert.Equal(t, 2000.0, th.CpuSlices[2].Start)
}

// Threads that only appear in the scheduler data are not added to
// the model.
func Test_CpuSlices_UnknownThread(t *testing.T) {
	model, th := x_model_with_main()

	_, err := x_import(t, model, x_trace(
		x_sched_switch(0, 1.0, "swapper", 0, "R", "other", 20),
		x_sched_switch(0, 1.5, "other", 20, "S", "swapper", 0),
	), false, nil)
	require.NoError(t, err)

	assert.Nil(t, th.CpuSlices)
	assert.Len(t, model.Processes, 1)
}

func Test_CpuSlices_SingleRun(t *testing.T) {
	model, th := x_model_with_main()

	_, err := x_import(t, model, x_trace(
		x_sched_switch(0, 1.0, "swapper", 0, "R", "main", 10),
		x_sched_switch(0, 1.5, "main", 10, "Q", "swapper", 0),
	), false, nil)

	// The state of the last run is never looked at.
	require.NoError(t, err)
	assert.Equal(t, []string{"Running"}, x_titles(th.CpuSlices))
}
