package linuxperf

// The pid of the per-CPU idle task.  Time spent in it is not
// recorded as a slice.
const idlePid = 0

// `CpuState` tracks what is currently running on one CPU.
//
// Each `sched_switch` closes the slice of the thread that was
// running (if any) and makes the incoming thread the active one.
type CpuState struct {
	cpu *TimelineCpu

	// Set once the first `sched_switch` on this CPU has been seen.
	haveActive bool

	lastActivePid  int
	lastActiveComm string
	lastActivePrio int
	lastActiveTs   float64
}

func newCpuState(cpu *TimelineCpu) *CpuState {
	return &CpuState{cpu: cpu}
}

// The args we stash on every CPU slice so that the per-thread
// timelines can be derived from them later.
const (
	cpuSliceArgComm                 = "comm"
	cpuSliceArgTid                  = "tid"
	cpuSliceArgPrio                 = "prio"
	cpuSliceArgStateWhenDescheduled = "stateWhenDescheduled"
)

// Switch the active pid on this CPU.  If necessary, add a slice to
// the CPU representing the time spent on it since the last call.
//
// The first switch on a CPU only establishes state because we don't
// know when the previous thread started running.
func (cs *CpuState) switchRunningLinuxPid(ds *perfDataset, prevState string, ts float64, pid int, comm string, prio int) {
	if cs.haveActive && cs.lastActivePid != idlePid {
		duration := ts - cs.lastActiveTs

		name := cs.lastActiveComm
		if th, ok := ds.threadsByLinuxPid[cs.lastActivePid]; ok && th != nil {
			name = th.UserFriendlyName()
		}

		slice := NewTimelineSlice(name,
			getStringColorId(name),
			cs.lastActiveTs,
			map[string]interface{}{
				cpuSliceArgComm:                 cs.lastActiveComm,
				cpuSliceArgTid:                  cs.lastActivePid,
				cpuSliceArgPrio:                 cs.lastActivePrio,
				cpuSliceArgStateWhenDescheduled: prevState,
			},
			duration)

		cs.cpu.Slices = append(cs.cpu.Slices, slice)
	}

	cs.haveActive = true
	cs.lastActiveTs = ts
	cs.lastActivePid = pid
	cs.lastActiveComm = comm
	cs.lastActivePrio = prio
}

// Return the tid and descheduling state stored on a CPU slice.
func cpuSliceTidAndState(s *TimelineSlice) (tid int, state string, ok bool) {
	tid, ok = s.Args[cpuSliceArgTid].(int)
	if !ok {
		return 0, "", false
	}
	state, ok = s.Args[cpuSliceArgStateWhenDescheduled].(string)
	return tid, state, ok
}
