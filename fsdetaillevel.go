package linuxperf

import (
	"fmt"
)

// FilterDetailLevel is how much of one process of an imported trace
// goes into the OTLP that we generate.  Higher levels include
// everything that the lower ones do.
type FilterDetailLevel int

const (
	DetailLevelUnset FilterDetailLevel = iota

	// The process is not exported at all.
	DetailLevelDrop

	// Outermost thread slices and async slices.
	DetailLevelSummary

	// Every thread slice, nested under its parent.
	DetailLevelProcess

	// Also the derived scheduling states of each thread and, when it
	// is the default level, the per-CPU slices.
	DetailLevelVerbose
)

// Detail level names have a leading "dl:" so that they cannot be
// mistaken for a process name in the filter settings.
const (
	DetailLevelDropName    string = "dl:drop"
	DetailLevelSummaryName string = "dl:summary"
	DetailLevelProcessName string = "dl:process"
	DetailLevelVerboseName string = "dl:verbose"

	DetailLevelDefaultName string = DetailLevelSummaryName
)

var detailLevelsByName = map[string]FilterDetailLevel{
	DetailLevelDropName:    DetailLevelDrop,
	DetailLevelSummaryName: DetailLevelSummary,
	DetailLevelProcessName: DetailLevelProcess,
	DetailLevelVerboseName: DetailLevelVerbose,
}

func getDetailLevel(dl_name string) (FilterDetailLevel, error) {
	dl, ok := detailLevelsByName[dl_name]
	if !ok {
		return DetailLevelUnset, fmt.Errorf("invalid detail level '%s'", dl_name)
	}
	return dl, nil
}

func (dl FilterDetailLevel) String() string {
	for name, v := range detailLevelsByName {
		if v == dl {
			return name
		}
	}
	return "dl:unset"
}
