// Package version provides version metadata for the application.
package version

import (
	"fmt"
	"runtime"
	"time"

	"github.com/shelfkeeper/shelfkeeper/pkg/ipc"
)

// These variables are typically injected at build time using -ldflags
var (
	// Version holds the current version of shelfkeeper.
	Version = "dev"
	// Commit holds the current version commit of shelfkeeper.
	Commit = "none"
	// BuildDate holds the build date of shelfkeeper.
	BuildDate = "unknown"
	// StartDate holds the start date of the running process.
	StartDate = time.Now()
)

// Struct returns version information in a structured format.
type Struct struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"buildDate"`
	Protocol  string `json:"protocol"`
	GoVersion string `json:"goVersion"`
	Platform  string `json:"platform"`
}

// Info returns a formatted version string.
func Info() string {
	return fmt.Sprintf("shelfkeeper %s (commit: %s, date: %s, protocol: %s)", Version, Commit, BuildDate, ipc.ProtocolVersion)
}

// Get returns version information as a Struct.
func Get() Struct {
	return Struct{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
		Protocol:  ipc.ProtocolVersion,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
}

// Uptime returns how long the process has been running.
func Uptime() time.Duration {
	return time.Since(StartDate)
}
