package version

import (
	"fmt"
	"runtime/debug"
)

// Name is the program name reported by the CLI and the MCP server.
const Name = "floodreport"

var version = "dev"

// Version returns the build string embedded via -ldflags when available.
func Version() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Sum != "" {
		return info.Main.Version
	}
	return version
}

// Set assigns the version when ldflags are not provided (e.g. local dev).
func Set(v string) {
	if v != "" {
		version = v
	}
}

// String describes the build as "floodreport <version>" for logs and --version.
func String() string {
	return fmt.Sprintf("%s %s", Name, Version())
}
