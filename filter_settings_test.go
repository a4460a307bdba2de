package linuxperf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The "TEST/*" pathname is a fake placeholder; we do everything in
// memory here.
var x_fs_path string = "TEST/fs.yml"

func x_TryLoadFilterSettings(t *testing.T, yml string, path string) *FilterSettings {
	fs, err := parseFilterSettingsFromBuffer([]byte(yml), path)
	require.NoError(t, err)
	require.NotNil(t, fs)
	return fs
}

// A process whose threads are named `names` (tids 1, 2, ...).
func x_process(pid int, names ...string) *TimelineProcess {
	model := NewTimelineModel()
	proc := model.GetOrCreateProcess(pid)
	for k, name := range names {
		proc.GetOrCreateThread(k + 1).Name = name
	}
	return proc
}

// //////////////////////////////////////////////////////////////

var x_fs_empty_yml string = `
`

// If filter settings is empty, we always get the global
// builtin default detail level.
func Test_Empty_FilterSettings(t *testing.T) {
	fs := x_TryLoadFilterSettings(t, x_fs_empty_yml, x_fs_path)

	dl, dl_debug := computeDetailLevel(fs, x_process(10, "app"))

	assert.Equal(t, DetailLevelSummary, dl)
	assert.Equal(t, "[builtin-default -> dl:summary]", dl_debug)
}

func Test_Nil_FilterSettings(t *testing.T) {
	dl, dl_debug := computeDetailLevel(nil, nil)

	assert.Equal(t, DetailLevelSummary, dl)
	assert.Equal(t, "[builtin-default -> dl:summary]", dl_debug)
}

// //////////////////////////////////////////////////////////////

var x_fs_default_yml string = `
defaults:
  detail_level: "dl:verbose"
`

// The filter settings overrides the global builtin default detail
// level.
func Test_Default_FilterSettings(t *testing.T) {
	fs := x_TryLoadFilterSettings(t, x_fs_default_yml, x_fs_path)

	dl, dl_debug := computeDetailLevel(fs, x_process(10, "app"))

	assert.Equal(t, DetailLevelVerbose, dl)
	assert.Equal(t, "[default-detail-level -> dl:verbose]", dl_debug)
}

// //////////////////////////////////////////////////////////////

var x_fs_processes_yml string = `
processes:
  "RenderThread": "dl:drop"
  "app": "dl:process"

defaults:
  detail_level: "dl:verbose"
`

// A process is matched by any of its thread names, in tid order.
func Test_Processes_FilterSettings(t *testing.T) {
	fs := x_TryLoadFilterSettings(t, x_fs_processes_yml, x_fs_path)

	dl, dl_debug := computeDetailLevel(fs, x_process(10, "app", "RenderThread"))
	assert.Equal(t, DetailLevelProcess, dl)
	assert.Equal(t, "[app -> dl:process]", dl_debug)

	dl, dl_debug = computeDetailLevel(fs, x_process(10, "", "RenderThread"))
	assert.Equal(t, DetailLevelDrop, dl)
	assert.Equal(t, "[RenderThread -> dl:drop]", dl_debug)

	dl, dl_debug = computeDetailLevel(fs, x_process(10, "other"))
	assert.Equal(t, DetailLevelVerbose, dl)
	assert.Equal(t, "[default-detail-level -> dl:verbose]", dl_debug)
}

// //////////////////////////////////////////////////////////////

func Test_Invalid_FilterSettings(t *testing.T) {
	for _, yml := range []string{
		`
processes:
  "app": "dl:bogus"
`,
		`
processes:
  "app": "rs:ruleset"
`,
		`
defaults:
  detail_level: "verbose"
`,
	} {
		_, err := parseFilterSettingsFromBuffer([]byte(yml), x_fs_path)
		assert.Error(t, err, yml)
	}
}

func Test_getDetailLevel(t *testing.T) {
	for name, want := range map[string]FilterDetailLevel{
		DetailLevelDropName:    DetailLevelDrop,
		DetailLevelSummaryName: DetailLevelSummary,
		DetailLevelProcessName: DetailLevelProcess,
		DetailLevelVerboseName: DetailLevelVerbose,
	} {
		dl, err := getDetailLevel(name)
		assert.NoError(t, err)
		assert.Equal(t, want, dl)
	}

	dl, err := getDetailLevel("")
	assert.Error(t, err)
	assert.Equal(t, DetailLevelUnset, dl)
}

func Test_Misspelled_FilterSettings(t *testing.T) {
	_, err := parseFilterSettingsFromBuffer([]byte(`
defaults:
  detail: "dl:verbose"
`), x_fs_path)
	assert.Error(t, err)
}

func Test_DetailLevel_String(t *testing.T) {
	assert.Equal(t, "dl:process", DetailLevelProcess.String())
	assert.Equal(t, "dl:unset", DetailLevelUnset.String())
}
