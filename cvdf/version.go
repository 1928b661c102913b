package cvdf

//go:generate go run ../cmd/gen-version -o gitversion.go

import (
	"fmt"
	"runtime"
)

// Version is the release version of cvdf.
const Version = "0.9.0"

// set by gitversion.go, which cmd/gen-version writes from "git describe"
var gitVersion string

// GitVersion returns the source version recorded at build time or "unknown".
func GitVersion() string {
	if gitVersion == "" {
		return "unknown"
	}
	return gitVersion
}

// Versions returns the cvdf, source and Go versions, one per line.
func Versions() string {
	return fmt.Sprintf("cvdf %s\nsource %s\n%s %s/%s\n", Version, GitVersion(),
		runtime.Version(), runtime.GOOS, runtime.GOARCH)
}
