package linuxperf

import (
	"runtime/debug"
	"strings"
	"sync"
)

const modulePath = "github.com/git-ecosystem/linuxperf"

// Reported when we are not linked into an executable as a module
// dependency (for example in our own unit tests).
const unsetVersion = "v0.0.0-unset"

var versionOnce sync.Once
var importerVersion string

// `LinuxPerfImporterVersion()` returns the version of this module as
// recorded in the build info of the executable (the `require` in its
// `go.mod`).  It is reported as the scope version of the OTLP data we
// generate.
func LinuxPerfImporterVersion() string {
	versionOnce.Do(func() {
		importerVersion = unsetVersion

		bi, ok := debug.ReadBuildInfo()
		if !ok {
			return
		}
		if bi.Main.Path == modulePath && len(bi.Main.Version) > 0 && bi.Main.Version != "(devel)" {
			importerVersion = bi.Main.Version
			return
		}
		for _, dep := range bi.Deps {
			if strings.HasSuffix(dep.Path, modulePath) {
				importerVersion = dep.Version
				return
			}
		}
	})

	return importerVersion
}
