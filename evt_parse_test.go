package linuxperf

// Tests in this file are concerned with the decomposition of a raw
// trace line into the common fields.  Event bodies are tested with
// their handlers.

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_evt_parse_SchedSwitch(t *testing.T) {
	s := `          <idle>-0     [001] d..3  4676.123456: sched_switch: prev_comm=swapper/1 prev_pid=0 prev_prio=120 prev_state=R ==> next_comm=app next_pid=42 next_prio=120`

	evt, err := evt_parse(s)
	require.NoError(t, err)
	require.NotNil(t, evt)

	assert.Equal(t, "<idle>-0", evt.mf_taskId)
	assert.Equal(t, 1, evt.mf_cpuNumber)
	assert.Equal(t, "d..3", evt.mf_taskInfo)
	assert.InDelta(t, 4676123.456, evt.mf_timestamp, 1e-6)
	assert.Equal(t, "sched_switch", evt.mf_name)
	assert.Equal(t, "prev_comm=swapper/1 prev_pid=0 prev_prio=120 prev_state=R ==> next_comm=app next_pid=42 next_prio=120", evt.mf_info)
}

func Test_evt_parse_NoTaskInfo(t *testing.T) {
	s := `app-42 [000] 1.500000: tracing_mark_write: B|42|draw`

	evt, err := evt_parse(s)
	require.NoError(t, err)
	require.NotNil(t, evt)

	assert.Equal(t, "app-42", evt.mf_taskId)
	assert.Equal(t, "", evt.mf_taskInfo)
	assert.Equal(t, 1500.0, evt.mf_timestamp)
	assert.Equal(t, "B|42|draw", evt.mf_info)
}

func Test_evt_parse_TaskIdWithSpaces(t *testing.T) {
	s := `Binder Thread #-647 [001] ...1 260.464294: sched_wakeup: comm=x pid=1 prio=120 success=1 target_cpu=000`

	evt, err := evt_parse(s)
	require.NoError(t, err)
	require.NotNil(t, evt)

	assert.Equal(t, "Binder Thread #-647", evt.mf_taskId)
	assert.Equal(t, "sched_wakeup", evt.mf_name)
}

func Test_evt_parse_LegacyMarkerName(t *testing.T) {
	s := `app-42 [000] .... 1.000000: 0: trace_event_clock_sync: parent_ts=0`

	evt, err := evt_parse(s)
	require.NoError(t, err)
	require.NotNil(t, evt)

	assert.Equal(t, "0", evt.mf_name)
	assert.True(t, isKnownEvent(evt.mf_name))
}

func Test_evt_parse_SkipsCommentsAndBlank(t *testing.T) {
	for _, s := range []string{"", "\r", "# tracer: nop", "#           TASK-PID    CPU#    TIMESTAMP  FUNCTION"} {
		evt, err := evt_parse(s)
		assert.NoError(t, err)
		assert.Nil(t, evt)
	}
}

func Test_evt_parse_StripsCarriageReturn(t *testing.T) {
	evt, err := evt_parse("app-42 [000] .... 1.000000: tracing_mark_write: E\r")
	require.NoError(t, err)
	require.NotNil(t, evt)

	assert.Equal(t, "E", evt.mf_info)
}

func Test_evt_parse_Unrecognized(t *testing.T) {
	for _, s := range []string{
		"garbage",
		"app-42 [000] .... 1: tracing_mark_write: E",     // timestamp needs a fraction
		"app-42 [x] .... 1.000000: tracing_mark_write: E", // cpu must be numeric
		"app-42 [000] .... 1.000000: tracing_mark_write:", // body separator missing
	} {
		evt, err := evt_parse(s)
		assert.Nil(t, evt)
		if assert.Error(t, err) {
			assert.Equal(t, "Unrecognized line: "+s, err.Error())
		}
	}
}

func Test_canImport(t *testing.T) {
	assert.True(t, canImport("# tracer: nop\n#\n"))
	assert.True(t, canImport("app-42 [000] .... 1.000000: tracing_mark_write: E\r\nmore"))
	assert.False(t, canImport("not a trace\napp-42 [000] .... 1.000000: tracing_mark_write: E"))
}

func Test_parsePid(t *testing.T) {
	pid, err := parsePid("mmcqd/0-123")
	assert.NoError(t, err)
	assert.Equal(t, 123, pid)

	pid, err = parsePid("ext4:app-12-34")
	assert.NoError(t, err)
	assert.Equal(t, 34, pid)

	_, err = parsePid("nopid")
	assert.Error(t, err)

	assert.Equal(t, "mmcqd/0", parseThreadName("mmcqd/0-123"))
	assert.Equal(t, "nopid", parseThreadName("nopid"))
}

func Test_parseLeadingInt(t *testing.T) {
	v, err := parseLeadingInt("42abc")
	assert.NoError(t, err)
	assert.Equal(t, 42, v)

	v, err = parseLeadingInt(" -7")
	assert.NoError(t, err)
	assert.Equal(t, -7, v)

	_, err = parseLeadingInt("abc")
	assert.Error(t, err)
}
