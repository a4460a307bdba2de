package linuxperf

import "go.opentelemetry.io/otel/attribute"

// This file contains semantic conventions for the OTLP data that we
// generate from an imported timeline.

const (
	// Value of the `service.namespace` key that we inject into
	// all resourceAttributes.
	LinuxPerfServiceNamespace = "linuxperf"

	// Name of the instrumentation scope of all spans and metrics.
	LinuxPerfInstrumentationName = "linuxperf"
)

const (
	// The Linux pid of the process (the tgid) that owns the spans.
	LinuxPerfProcessPid = attribute.Key("process.pid")

	// The CPU number for per-CPU resources.
	LinuxPerfCpuNumber = attribute.Key("linuxperf.cpu.number")

	// The Linux pid (tid) of the thread.
	LinuxPerfThreadTid = attribute.Key("linuxperf.thread.tid")

	// The display name of the thread.
	LinuxPerfThreadName = attribute.Key("linuxperf.thread.name")

	// What kind of timeline object a span was made from.  One of the
	// `LinuxPerfSpanType*` values.
	LinuxPerfSpanType = attribute.Key("linuxperf.span.type")

	// The color id of the slice.
	LinuxPerfSliceColor = attribute.Key("linuxperf.slice.color")

	// Set on async slices when they finished on a different thread.
	LinuxPerfEndThreadTid = attribute.Key("linuxperf.async.end_tid")

	// Prefix for the slice arguments.  The argument name is appended.
	LinuxPerfSliceArgPrefix = "linuxperf.arg."

	// The import summary as a JSON object.
	LinuxPerfSummary = attribute.Key("linuxperf.summary")

	// The detail level that was used for the resource; helps explain
	// why a span is (or is not) present.
	LinuxPerfDetailLevel = attribute.Key("linuxperf.filter.detail")

	// Name of the (only) series of a counter, on gauge data points.
	LinuxPerfCounterSeries = attribute.Key("linuxperf.counter.series")
)

const (
	LinuxPerfSpanTypeProcess  = "process"
	LinuxPerfSpanTypeThread   = "thread"
	LinuxPerfSpanTypeSlice    = "slice"
	LinuxPerfSpanTypeAsync    = "async"
	LinuxPerfSpanTypeCpuState = "cpu_state"
	LinuxPerfSpanTypeCpuSlice = "cpu_slice"
)

const (
	serviceNamespaceKey = "service.namespace"
	serviceNameKey      = "service.name"
)
