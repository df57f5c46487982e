// Package version reports build metadata stamped at link time
package version

import "runtime/debug"

// BuildInfo holds version information about a timeline binary
type BuildInfo struct {
	Service string `json:"service"`
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
}

// Set via -ldflags "-X 'timeline/internal/core/version.version=v0.1.0'
// -X 'timeline/internal/core/version.commit=abcd' -X 'timeline/internal/core/version.date=2026-10-01'"
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Info returns the build information for service. Without ldflags the vcs
// revision recorded by the go toolchain is used as the commit
func Info(service string) BuildInfo {
	bi := BuildInfo{Service: service, Version: version, Commit: commit, Date: date}
	if bi.Commit == "none" {
		if info, ok := debug.ReadBuildInfo(); ok {
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					bi.Commit = s.Value
				case "vcs.time":
					if bi.Date == "unknown" {
						bi.Date = s.Value
					}
				}
			}
		}
	}
	return bi
}
