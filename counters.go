package linuxperf

// Fixed names of the per-CPU hardware counters.
const (
	cStateCounterName         = "C-State"
	powerFrequencyCounterName = "Power Frequency"
	clockFrequencyCounterName = "Clock Frequency"
)

// The only series we ever create on a counter.
const counterSeriesName = "state"

// `cpu_idle` reports this value (aka -1 as a u32) when a CPU exits
// its current idle state.
const cpuIdleExitState = 4294967295

// How the color of a counter's single series is derived.
type counterSeriesColor int

const (
	// Hash of "<counter-name>.state".
	powerCounterSeriesColor counterSeriesColor = iota

	// Hash of the bare counter name.  `cpu_idle` has always colored
	// the C-State counter this way, so a trace that only carries
	// `cpu_idle` events keeps its historical color.
	cpuIdleSeriesColor
)

func (mode counterSeriesColor) colorId(counterName string) int {
	switch mode {
	case cpuIdleSeriesColor:
		return getStringColorId(counterName)
	default:
		return getStringColorId(counterName + "." + counterSeriesName)
	}
}

// Lazily give a counter its single "state" series.  It returns true
// if the series was created.
func initCounterSeries(ctr *TimelineCounter, mode counterSeriesColor) bool {
	if ctr.NumSeries() != 0 {
		return false
	}

	ctr.SeriesNames = append(ctr.SeriesNames, counterSeriesName)
	ctr.SeriesColors = append(ctr.SeriesColors, mode.colorId(ctr.Name))

	return true
}

func appendCounterSample(ctr *TimelineCounter, ts float64, value float64) {
	ctr.Timestamps = append(ctr.Timestamps, ts)
	ctr.Samples = append(ctr.Samples, value)
}

// Append a sample to one of the hardware counters of a CPU.
func (ds *perfDataset) appendCpuCounterSample(cpuState *CpuState, name string, mode counterSeriesColor, ts float64, value float64) {
	ctr := cpuState.cpu.GetOrCreateCounter("", name)

	initCounterSeries(ctr, mode)
	appendCounterSample(ctr, ts, value)
}

// Append a sample to a user-space ('C' marker) counter owned by the
// process `pid`.
func (ds *perfDataset) processCounter(name string, ts float64, value float64, pid int) {
	ctr := ds.model.GetOrCreateProcess(pid).GetOrCreateCounter("", name)

	initCounterSeries(ctr, powerCounterSeriesColor)
	appendCounterSample(ctr, ts, value)
}
