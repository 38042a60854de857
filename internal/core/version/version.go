// Package version reports build metadata stamped in with -ldflags
//
//	go build -ldflags "-X echokit/internal/core/version.version=v0.3.0 -X echokit/internal/core/version.commit=abcd"
package version

import (
	"fmt"
	"runtime"
)

// Service is the name reported by the api binary
const Service = "echokit-api"

// BuildInfo describes the running build
type BuildInfo struct {
	Service   string `json:"service" example:"echokit-api"`
	Version   string `json:"version" example:"v0.3.0"`
	Commit    string `json:"commit" example:"abcd123"`
	Date      string `json:"date" example:"2026-01-02"`
	GoVersion string `json:"go_version" example:"go1.25.0"`
}

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// Info returns the stamped build information
func Info() BuildInfo {
	return BuildInfo{
		Service:   Service,
		Version:   version,
		Commit:    commit,
		Date:      date,
		GoVersion: runtime.Version(),
	}
}

// String renders "echokit-api v0.3.0 (abcd123)"
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s %s (%s)", b.Service, b.Version, b.Commit)
}
