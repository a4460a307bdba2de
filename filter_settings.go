package linuxperf

import (
	"fmt"
)

// FilterSettings describes how much of the imported timeline we
// should put in the OTLP output that we generate.
//
// filter.yml
// ==========
// processes:
//   "surfaceflinger": "dl:verbose"
//   "kworker/0:1":    "dl:drop"
//
// defaults:
//   detail_level: "dl:summary"
type FilterSettings struct {
	ProcessMap FSProcessMap `mapstructure:"processes"`
	Defaults   FSDefaults   `mapstructure:"defaults"`
}

// FSProcessMap maps the name of a process (or of any of its threads)
// to a detail level.
//
// This table is optional.
type FSProcessMap map[string]string

// FSDefaults defines default filtering values.
type FSDefaults struct {

	// The detail level used for a process that is not named in the
	// process map.  If not set, we use the builtin default.
	DetailLevelName string `mapstructure:"detail_level"`
}

func parseFilterSettings(path string) (*FilterSettings, error) {
	return parseYmlFile[FilterSettings](path, parseFilterSettingsFromBuffer)
}

func parseFilterSettingsFromBuffer(data []byte, path string) (*FilterSettings, error) {
	fs, err := parseYmlBuffer[FilterSettings](data, path)
	if err != nil {
		return nil, err
	}

	for k_name, v_dl := range fs.ProcessMap {
		_, err = getDetailLevel(v_dl)
		if len(k_name) == 0 || err != nil {
			return nil, fmt.Errorf("filter settings '%s' has invalid process '%s':'%s'",
				path, k_name, v_dl)
		}
	}

	if len(fs.Defaults.DetailLevelName) > 0 {
		_, err = getDetailLevel(fs.Defaults.DetailLevelName)
		if err != nil {
			return nil, fmt.Errorf("filter settings '%s' has invalid default detail level '%s'",
				path, fs.Defaults.DetailLevelName)
		}
	}

	return fs, nil
}

func debugDescribe(base string, lval string, rval string) string {
	if len(base) == 0 {
		return fmt.Sprintf("[%s -> %s]", lval, rval)
	} else {
		return fmt.Sprintf("%s/[%s -> %s]", base, lval, rval)
	}
}

// Lookup the detail level of a process by the names of its threads
// (in tid order).  The first named thread with a mapping wins.
func lookupFilterByProcessName(fs *FilterSettings, proc *TimelineProcess, debug string) (string, bool, string) {
	if fs == nil || proc == nil || len(fs.ProcessMap) == 0 {
		return "", false, debug
	}

	for _, tid := range sortedKeys(proc.Threads) {
		name := proc.Threads[tid].Name
		if len(name) == 0 {
			continue
		}
		dl_value, ok := fs.ProcessMap[name]
		if ok && len(dl_value) > 0 {
			debug = debugDescribe(debug, name, dl_value)
			return dl_value, true, debug
		}
	}

	return "", false, debug
}

// Lookup the default detail level from the global defaults section
// of the filter settings.
func lookupFilterDefaultDetailLevel(fs *FilterSettings, debug string) (string, bool, string) {
	if fs == nil || len(fs.Defaults.DetailLevelName) == 0 {
		return "", false, debug
	}

	debug = debugDescribe(debug, "default-detail-level", fs.Defaults.DetailLevelName)

	return fs.Defaults.DetailLevelName, true, debug
}

// Compute the net-net detail level that we should use for a process.
// `fs` may be nil.  A nil `proc` gives the default detail level.  The second result describes how we got there.
func computeDetailLevel(fs *FilterSettings, proc *TimelineProcess) (FilterDetailLevel, string) {
	var debug string

	dl_value, ok, debug := lookupFilterByProcessName(fs, proc, debug)
	if !ok {
		dl_value, ok, debug = lookupFilterDefaultDetailLevel(fs, debug)
		if !ok {
			dl_value = DetailLevelDefaultName
			debug = debugDescribe(debug, "builtin-default", dl_value)
		}
	}

	dl, err := getDetailLevel(dl_value)
	if err != nil {
		dl, _ = getDetailLevel(DetailLevelDefaultName)
		debug = debugDescribe(debug, dl_value, "INVALID")
		debug = debugDescribe(debug, "builtin-default", DetailLevelDefaultName)
	}

	return dl, debug
}
