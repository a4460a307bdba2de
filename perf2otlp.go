package linuxperf

import (
	crand "crypto/rand"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/google/uuid"
	"go.opentelemetry.io/collector/pdata/pcommon"
	"go.opentelemetry.io/collector/pdata/pmetric"
	"go.opentelemetry.io/collector/pdata/ptrace"
)

// `perf2otlp` holds the state of one conversion of a timeline model
// into OTLP.  All spans of one conversion share a trace id.
type perf2otlp struct {
	traceID    pcommon.TraceID
	randSource *rand.Rand

	// The import summary, pre-rendered as JSON.  Empty if none.
	summaryJSON string
}

func newPerf2otlp(summary map[string]interface{}) *perf2otlp {
	p := new(perf2otlp)

	p.traceID = pcommon.TraceID(uuid.New())

	var rngSeed int64
	_ = binary.Read(crand.Reader, binary.LittleEndian, &rngSeed)
	p.randSource = rand.New(rand.NewSource(rngSeed))

	if len(summary) > 0 {
		if b, err := json.Marshal(summary); err == nil {
			p.summaryJSON = string(b)
		}
	}

	return p
}

func (p *perf2otlp) NewSpanID() pcommon.SpanID {
	var spid [8]byte

	p.randSource.Read(spid[:])

	return pcommon.SpanID(spid)
}

// Model timestamps are floating point milliseconds.  Anything that
// the clock shift pushed before the epoch is clamped to zero.
func msToTimestamp(ms float64) pcommon.Timestamp {
	ns := ms * 1e6
	if ns <= 0 || math.IsNaN(ns) {
		return 0
	}
	return pcommon.Timestamp(uint64(ns))
}

// Convert the model into OTLP spans.  There is one resource per
// process (filtered by `fs`, which may be nil) and, at the verbose
// detail level, one resource per CPU.
func ToTraces(model *TimelineModel, fs *FilterSettings) ptrace.Traces {
	return ToTracesWithSummary(model, fs, nil)
}

// Like `ToTraces()` but also attach an import summary (see
// `Importer.Summary()`) to every resource.
func ToTracesWithSummary(model *TimelineModel, fs *FilterSettings, summary map[string]interface{}) ptrace.Traces {
	p := newPerf2otlp(summary)
	td := ptrace.NewTraces()

	for _, pid := range sortedKeys(model.Processes) {
		proc := model.Processes[pid]

		dl, dl_debug := computeDetailLevel(fs, proc)
		if dl == DetailLevelDrop {
			continue
		}

		p.emitProcess(td, proc, dl, dl_debug)
	}

	// The CPUs do not belong to any one process, so they follow the
	// default detail level.
	dl, dl_debug := computeDetailLevel(fs, nil)
	if dl == DetailLevelVerbose {
		for _, cpu := range model.GetAllCpus() {
			p.emitCpu(td, cpu, dl_debug)
		}
	}

	return td
}

func (p *perf2otlp) newScopeSpans(rs ptrace.ResourceSpans) ptrace.ScopeSpans {
	ss := rs.ScopeSpans().AppendEmpty()
	ss.Scope().SetName(LinuxPerfInstrumentationName)
	ss.Scope().SetVersion(LinuxPerfImporterVersion())
	return ss
}

func (p *perf2otlp) putResourceAttributes(attrs pcommon.Map, serviceName string, dl_debug string) {
	attrs.PutStr(serviceNamespaceKey, LinuxPerfServiceNamespace)
	attrs.PutStr(serviceNameKey, serviceName)
	attrs.PutStr(string(LinuxPerfDetailLevel), dl_debug)
	if len(p.summaryJSON) > 0 {
		attrs.PutStr(string(LinuxPerfSummary), p.summaryJSON)
	}
}

// A process becomes a span covering the spans of its threads.  A
// process with nothing to show is omitted.
func (p *perf2otlp) emitProcess(td ptrace.Traces, proc *TimelineProcess, dl FilterDetailLevel, dl_debug string) {
	threads := make([]*TimelineThread, 0, len(proc.Threads))
	for _, tid := range sortedKeys(proc.Threads) {
		th := proc.Threads[tid]
		if threadHasContent(th, dl) {
			threads = append(threads, th)
		}
	}
	if len(threads) == 0 {
		return
	}

	rs := td.ResourceSpans().AppendEmpty()
	p.putResourceAttributes(rs.Resource().Attributes(), processServiceName(proc), dl_debug)
	rs.Resource().Attributes().PutInt(string(LinuxPerfProcessPid), int64(proc.Pid))

	ss := p.newScopeSpans(rs)

	procSpan := ss.Spans().AppendEmpty()
	procSpanID := p.NewSpanID()

	var b Bounds
	b.reset()

	for _, th := range threads {
		tb := p.emitThread(ss, th, dl, procSpanID)
		if !tb.IsEmpty {
			b.addValue(tb.Min)
			b.addValue(tb.Max)
		}
	}

	p.setSpan(procSpan, processServiceName(proc), procSpanID, pcommon.NewSpanIDEmpty(), b.Min, b.Max)
	procSpan.Attributes().PutStr(string(LinuxPerfSpanType), LinuxPerfSpanTypeProcess)
	procSpan.Attributes().PutInt(string(LinuxPerfProcessPid), int64(proc.Pid))
}

func processServiceName(proc *TimelineProcess) string {
	for _, tid := range sortedKeys(proc.Threads) {
		if name := proc.Threads[tid].Name; len(name) > 0 {
			return name
		}
	}
	return fmt.Sprintf("pid-%d", proc.Pid)
}

// The outermost slices of a thread, without growing its sub-rows.
func outermostSlices(th *TimelineThread) []*TimelineSlice {
	if len(th.SubRows) == 0 {
		return nil
	}
	return th.SubRows[0]
}

func threadHasContent(th *TimelineThread, dl FilterDetailLevel) bool {
	if len(outermostSlices(th)) > 0 || len(th.AsyncSlices) > 0 {
		return true
	}
	return dl == DetailLevelVerbose && len(th.CpuSlices) > 0
}

// Emit the span of a thread and everything under it.  Returns the
// bounds of the thread span.
func (p *perf2otlp) emitThread(ss ptrace.ScopeSpans, th *TimelineThread, dl FilterDetailLevel, parent pcommon.SpanID) Bounds {
	threadSpan := ss.Spans().AppendEmpty()
	threadSpanID := p.NewSpanID()

	var b Bounds
	b.reset()

	nested := dl >= DetailLevelProcess

	for _, slice := range outermostSlices(th) {
		p.emitSlice(ss, slice, threadSpanID, nested, &b)
	}

	for _, as := range th.AsyncSlices {
		span := ss.Spans().AppendEmpty()
		p.setSlice(span, &as.TimelineSlice, p.NewSpanID(), threadSpanID, LinuxPerfSpanTypeAsync)
		if as.EndThread != nil && as.EndThread != as.StartThread {
			span.Attributes().PutInt(string(LinuxPerfEndThreadTid), int64(as.EndThread.Tid))
		}
		b.addValue(as.Start)
		b.addValue(as.End())
	}

	if dl == DetailLevelVerbose {
		for _, cs := range th.CpuSlices {
			span := ss.Spans().AppendEmpty()
			p.setSlice(span, cs, p.NewSpanID(), threadSpanID, LinuxPerfSpanTypeCpuState)
			b.addValue(cs.Start)
			b.addValue(cs.End())
		}
	}

	p.setSpan(threadSpan, th.UserFriendlyName(), threadSpanID, parent, b.Min, b.Max)
	threadSpan.Attributes().PutStr(string(LinuxPerfSpanType), LinuxPerfSpanTypeThread)
	threadSpan.Attributes().PutInt(string(LinuxPerfThreadTid), int64(th.Tid))
	threadSpan.Attributes().PutStr(string(LinuxPerfThreadName), th.UserFriendlyName())

	return b
}

// Emit a slice and, when `nested`, its sub-slices (recursively)
// parented on it.
func (p *perf2otlp) emitSlice(ss ptrace.ScopeSpans, slice *TimelineSlice, parent pcommon.SpanID, nested bool, b *Bounds) {
	span := ss.Spans().AppendEmpty()
	spanID := p.NewSpanID()

	p.setSlice(span, slice, spanID, parent, LinuxPerfSpanTypeSlice)
	b.addValue(slice.Start)
	b.addValue(slice.End())

	if !nested {
		return
	}
	for _, sub := range slice.SubSlices {
		p.emitSlice(ss, sub, spanID, nested, b)
	}
}

func (p *perf2otlp) emitCpu(td ptrace.Traces, cpu *TimelineCpu, dl_debug string) {
	if len(cpu.Slices) == 0 {
		return
	}

	rs := td.ResourceSpans().AppendEmpty()
	p.putResourceAttributes(rs.Resource().Attributes(), fmt.Sprintf("cpu-%d", cpu.CpuNumber), dl_debug)
	rs.Resource().Attributes().PutInt(string(LinuxPerfCpuNumber), int64(cpu.CpuNumber))

	ss := p.newScopeSpans(rs)

	for _, slice := range cpu.Slices {
		span := ss.Spans().AppendEmpty()
		p.setSlice(span, slice, p.NewSpanID(), pcommon.NewSpanIDEmpty(), LinuxPerfSpanTypeCpuSlice)
	}
}

func (p *perf2otlp) setSpan(span ptrace.Span, name string, id pcommon.SpanID, parent pcommon.SpanID, start float64, end float64) {
	span.SetName(name)
	span.SetKind(ptrace.SpanKindInternal)
	span.SetTraceID(p.traceID)
	span.SetSpanID(id)
	if !parent.IsEmpty() {
		span.SetParentSpanID(parent)
	}
	span.SetStartTimestamp(msToTimestamp(start))
	span.SetEndTimestamp(msToTimestamp(end))
}

func (p *perf2otlp) setSlice(span ptrace.Span, slice *TimelineSlice, id pcommon.SpanID, parent pcommon.SpanID, spanType string) {
	p.setSpan(span, slice.Title, id, parent, slice.Start, slice.End())

	attrs := span.Attributes()
	attrs.PutStr(string(LinuxPerfSpanType), spanType)
	attrs.PutInt(string(LinuxPerfSliceColor), int64(slice.ColorId))
	putSliceArgs(attrs, slice.Args)

	if slice.DidNotFinish {
		span.Status().SetCode(ptrace.StatusCodeError)
		span.Status().SetMessage("did not finish")
	}
}

func putSliceArgs(attrs pcommon.Map, args map[string]interface{}) {
	keys := make([]string, 0, len(args))
	for k := range args {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		key := LinuxPerfSliceArgPrefix + k
		switch v := args[k].(type) {
		case string:
			attrs.PutStr(key, v)
		case int:
			attrs.PutInt(key, int64(v))
		case int64:
			attrs.PutInt(key, v)
		case float64:
			attrs.PutDouble(key, v)
		case bool:
			attrs.PutBool(key, v)
		default:
			attrs.PutStr(key, fmt.Sprintf("%v", v))
		}
	}
}

// Convert the counters of the model into OTLP gauges.  There is one
// resource per process and per CPU that has counters; each counter
// becomes a gauge with one data point per sample.
func ToMetrics(model *TimelineModel) pmetric.Metrics {
	md := pmetric.NewMetrics()

	for _, pid := range sortedKeys(model.Processes) {
		proc := model.Processes[pid]
		if len(proc.Counters) == 0 {
			continue
		}

		rm := md.ResourceMetrics().AppendEmpty()
		attrs := rm.Resource().Attributes()
		attrs.PutStr(serviceNamespaceKey, LinuxPerfServiceNamespace)
		attrs.PutStr(serviceNameKey, processServiceName(proc))
		attrs.PutInt(string(LinuxPerfProcessPid), int64(proc.Pid))

		emitCounters(rm, proc.Counters)
	}

	for _, cpu := range model.GetAllCpus() {
		if len(cpu.Counters) == 0 {
			continue
		}

		rm := md.ResourceMetrics().AppendEmpty()
		attrs := rm.Resource().Attributes()
		attrs.PutStr(serviceNamespaceKey, LinuxPerfServiceNamespace)
		attrs.PutStr(serviceNameKey, fmt.Sprintf("cpu-%d", cpu.CpuNumber))
		attrs.PutInt(string(LinuxPerfCpuNumber), int64(cpu.CpuNumber))

		emitCounters(rm, cpu.Counters)
	}

	return md
}

func emitCounters(rm pmetric.ResourceMetrics, counters map[string]*TimelineCounter) {
	sm := rm.ScopeMetrics().AppendEmpty()
	sm.Scope().SetName(LinuxPerfInstrumentationName)
	sm.Scope().SetVersion(LinuxPerfImporterVersion())

	keys := make([]string, 0, len(counters))
	for k := range counters {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		ctr := counters[k]

		m := sm.Metrics().AppendEmpty()
		m.SetName(ctr.Name)

		series := counterSeriesName
		if ctr.NumSeries() > 0 {
			series = ctr.SeriesNames[0]
		}

		g := m.SetEmptyGauge()
		for i := range ctr.Timestamps {
			if i >= len(ctr.Samples) {
				break
			}
			dp := g.DataPoints().AppendEmpty()
			dp.SetTimestamp(msToTimestamp(ctr.Timestamps[i]))
			dp.SetDoubleValue(ctr.Samples[i])
			dp.Attributes().PutStr(string(LinuxPerfCounterSeries), series)
		}
	}
}
