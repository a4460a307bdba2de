package linuxperf

import (
	"math"
	"strconv"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// `TimelineModel` is the in-memory timeline that importers populate.
//
// The importer only relies on a small surface of it: fetch-or-create
// of CPUs, processes, threads and counters, enumeration of threads,
// the ordered error log, and the bounds of the data seen so far.
type TimelineModel struct {
	Cpus      map[int]*TimelineCpu
	Processes map[int]*TimelineProcess

	// Human readable problems found while importing, in the order
	// they were found.
	ImportErrors []string

	Bounds Bounds
}

// Bounds describes the [Min,Max] timestamp range of a model, in
// milliseconds.
type Bounds struct {
	IsEmpty bool
	Min     float64
	Max     float64
}

func (b *Bounds) reset() {
	b.IsEmpty = true
	b.Min = 0
	b.Max = 0
}

func (b *Bounds) addValue(v float64) {
	if b.IsEmpty {
		b.IsEmpty = false
		b.Min = v
		b.Max = v
		return
	}
	b.Min = math.Min(b.Min, v)
	b.Max = math.Max(b.Max, v)
}

// `TimelineSlice` is a closed (or force-closed) interval of time
// `[Start, Start+Duration)` with a title and color.
type TimelineSlice struct {
	Title        string
	ColorId      int
	Start        float64
	Duration     float64
	Args         map[string]interface{}
	SubSlices    []*TimelineSlice
	DidNotFinish bool
}

func NewTimelineSlice(title string, colorId int, start float64, args map[string]interface{}, duration float64) *TimelineSlice {
	if args == nil {
		args = make(map[string]interface{})
	}
	return &TimelineSlice{
		Title:    title,
		ColorId:  colorId,
		Start:    start,
		Duration: duration,
		Args:     args,
	}
}

func (s *TimelineSlice) End() float64 {
	return s.Start + s.Duration
}

// `TimelineAsyncSlice` is an operation that may start on one thread
// and finish on another.  Once closed it holds exactly one sub-slice
// that mirrors the outer slice.
type TimelineAsyncSlice struct {
	TimelineSlice

	StartThread *TimelineThread
	EndThread   *TimelineThread
}

// `TimelineCounter` is a set of named series sampled at the same
// timestamps.  We only ever use a single series per counter.
type TimelineCounter struct {
	Category     string
	Name         string
	SeriesNames  []string
	SeriesColors []int
	Timestamps   []float64
	Samples      []float64
}

func (c *TimelineCounter) NumSeries() int {
	return len(c.SeriesNames)
}

func counterKey(category string, name string) string {
	return category + "." + name
}

type TimelineCpu struct {
	CpuNumber int
	Slices    []*TimelineSlice
	Counters  map[string]*TimelineCounter
}

func (cpu *TimelineCpu) GetOrCreateCounter(category string, name string) *TimelineCounter {
	k := counterKey(category, name)
	ctr, ok := cpu.Counters[k]
	if !ok {
		ctr = &TimelineCounter{Category: category, Name: name}
		cpu.Counters[k] = ctr
	}
	return ctr
}

type TimelineProcess struct {
	Pid      int
	Threads  map[int]*TimelineThread
	Counters map[string]*TimelineCounter
}

func (p *TimelineProcess) GetOrCreateThread(tid int) *TimelineThread {
	th, ok := p.Threads[tid]
	if !ok {
		th = &TimelineThread{Parent: p, Tid: tid}
		p.Threads[tid] = th
	}
	return th
}

func (p *TimelineProcess) GetOrCreateCounter(category string, name string) *TimelineCounter {
	k := counterKey(category, name)
	ctr, ok := p.Counters[k]
	if !ok {
		ctr = &TimelineCounter{Category: category, Name: name}
		p.Counters[k] = ctr
	}
	return ctr
}

// `TimelineThread` holds the nested slices of a thread, one sub-row
// per nesting depth (sub-row 0 is the outermost), the async slices
// that were started on it, and the scheduling timeline derived from
// the CPU data.
type TimelineThread struct {
	Parent      *TimelineProcess
	Tid         int
	Name        string
	SubRows     [][]*TimelineSlice
	AsyncSlices []*TimelineAsyncSlice
	CpuSlices   []*TimelineSlice
}

// Return sub-row `k`, creating any missing rows.
func (th *TimelineThread) GetSubrow(k int) []*TimelineSlice {
	for len(th.SubRows) <= k {
		th.SubRows = append(th.SubRows, nil)
	}
	return th.SubRows[k]
}

func (th *TimelineThread) appendToSubrow(k int, s *TimelineSlice) {
	th.GetSubrow(k)
	th.SubRows[k] = append(th.SubRows[k], s)
}

func (th *TimelineThread) UserFriendlyName() string {
	if len(th.Name) > 0 {
		return th.Name
	}
	return strconv.Itoa(th.Tid)
}

func NewTimelineModel() *TimelineModel {
	m := &TimelineModel{
		Cpus:      make(map[int]*TimelineCpu),
		Processes: make(map[int]*TimelineProcess),
	}
	m.Bounds.reset()
	return m
}

func (m *TimelineModel) GetOrCreateCpu(cpuNumber int) *TimelineCpu {
	cpu, ok := m.Cpus[cpuNumber]
	if !ok {
		cpu = &TimelineCpu{
			CpuNumber: cpuNumber,
			Counters:  make(map[string]*TimelineCounter),
		}
		m.Cpus[cpuNumber] = cpu
	}
	return cpu
}

func (m *TimelineModel) GetOrCreateProcess(pid int) *TimelineProcess {
	p, ok := m.Processes[pid]
	if !ok {
		p = &TimelineProcess{
			Pid:      pid,
			Threads:  make(map[int]*TimelineThread),
			Counters: make(map[string]*TimelineCounter),
		}
		m.Processes[pid] = p
	}
	return p
}

// Return every thread in the model ordered by (pid, tid).
func (m *TimelineModel) GetAllThreads() []*TimelineThread {
	var threads []*TimelineThread

	for _, pid := range sortedKeys(m.Processes) {
		p := m.Processes[pid]
		for _, tid := range sortedKeys(p.Threads) {
			threads = append(threads, p.Threads[tid])
		}
	}

	return threads
}

// Return the CPUs in the model ordered by cpu number.
func (m *TimelineModel) GetAllCpus() []*TimelineCpu {
	var cpus []*TimelineCpu

	for _, n := range sortedKeys(m.Cpus) {
		cpus = append(cpus, m.Cpus[n])
	}

	return cpus
}

// Recompute `m.Bounds` from all of the data in the model.
func (m *TimelineModel) UpdateBounds() {
	m.Bounds.reset()

	addSlices := func(slices []*TimelineSlice) {
		for _, s := range slices {
			m.Bounds.addValue(s.Start)
			m.Bounds.addValue(s.End())
		}
	}
	addCounters := func(counters map[string]*TimelineCounter) {
		for _, ctr := range counters {
			for _, ts := range ctr.Timestamps {
				m.Bounds.addValue(ts)
			}
		}
	}

	for _, cpu := range m.Cpus {
		addSlices(cpu.Slices)
		addCounters(cpu.Counters)
	}

	for _, p := range m.Processes {
		addCounters(p.Counters)
		for _, th := range p.Threads {
			for _, row := range th.SubRows {
				addSlices(row)
			}
			for _, as := range th.AsyncSlices {
				m.Bounds.addValue(as.Start)
				m.Bounds.addValue(as.End())
			}
			addSlices(th.CpuSlices)
		}
	}
}

func sortedKeys[V any](m map[int]V) []int {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
