package linuxperf

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func Test_ImportMetrics_Counts(t *testing.T) {
	reg := prometheus.NewRegistry()
	im, err := NewImportMetrics(reg)
	require.NoError(t, err)

	text := x_trace(
		x_sched_switch(0, 1.0, "swapper", 0, "R", "app", 10),
		x_line("app-10", 0, 1.1, "foo_bar", "x=1"),
		x_line("app-10", 0, 1.2, "sched_switch", "nonsense"),
		x_mark("app-10", 1.3, "B|10|frame"),
		x_mark("app-10", 1.4, "E"),
	)

	imp := NewImporter(NewTimelineModel(), text, false, nil, zap.NewNop(), im)
	require.NoError(t, imp.ImportEvents())

	assert.Equal(t, 5.0, testutil.ToFloat64(im.lines))
	assert.Equal(t, 1.0, testutil.ToFloat64(im.events.WithLabelValues("sched_switch")))
	assert.Equal(t, 2.0, testutil.ToFloat64(im.events.WithLabelValues("tracing_mark_write")))
	assert.Equal(t, 1.0, testutil.ToFloat64(im.unknownEvents.WithLabelValues("foo_bar")))
	assert.Equal(t, 1.0, testutil.ToFloat64(im.importErrors))
	assert.Equal(t, 0.0, testutil.ToFloat64(im.abortedImport))

	imp = NewImporter(NewTimelineModel(), text, true, nil, zap.NewNop(), im)
	assert.Error(t, imp.ImportEvents())
	assert.Equal(t, 1.0, testutil.ToFloat64(im.abortedImport))

	n, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Positive(t, n)
}

func Test_ImportMetrics_DoubleRegister(t *testing.T) {
	reg := prometheus.NewRegistry()

	_, err := NewImportMetrics(reg)
	require.NoError(t, err)

	_, err = NewImportMetrics(reg)
	assert.Error(t, err)
}

func Test_ImportMetrics_Unregistered(t *testing.T) {
	im, err := NewImportMetrics(nil)
	require.NoError(t, err)

	im.incLines()
	assert.Equal(t, 1.0, testutil.ToFloat64(im.lines))
}

func Test_ImportMetrics_Nil(t *testing.T) {
	var im *ImportMetrics

	assert.NotPanics(t, func() {
		im.incLines()
		im.incEvent("sched_switch")
		im.incUnknownEvent("foo")
		im.incImportErrors()
		im.incAbortedImports()
	})
}
