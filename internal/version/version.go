// Package version reports the build of the client, stamped into the
// User-Agent of API requests and the sandbox's mDNS record.
package version

import (
	"fmt"
	"runtime/debug"
	"strings"
	"time"
)

// Set at build time with
//
//	go build -ldflags="-X github.com/tapp-so/tapp-go/internal/version.Version=v1.2.3 \
//	                   -X github.com/tapp-so/tapp-go/internal/version.Commit=abc123"
//
// Unset values are filled from the module and VCS build info.
var (
	Version = ""
	Commit  = ""
)

const shortCommit = 7

func init() {
	if info, ok := debug.ReadBuildInfo(); ok {
		fill(info)
	}
	if Version == "" {
		Version = "dev-" + time.Now().Format("20060102-150405")
	}
	if Commit == "" {
		Commit = "unknown"
	}
}

// fill takes missing values from build info. A tagged module version wins;
// a development build is named after its commit date.
func fill(info *debug.BuildInfo) {
	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}

	if Commit == "" {
		if rev := settings["vcs.revision"]; rev != "" {
			Commit = rev[:min(len(rev), shortCommit)]
			if settings["vcs.modified"] == "true" {
				Commit += "-dirty"
			}
		}
	}

	if Version != "" {
		return
	}
	if v := info.Main.Version; v != "" && v != "(devel)" {
		Version = v
		return
	}
	if t, err := time.Parse(time.RFC3339, settings["vcs.time"]); err == nil {
		Version = "dev-" + t.UTC().Format("20060102")
	}
}

// Full returns the version and commit, e.g. "v1.2.3 (commit: abc1234)".
func Full() string {
	return fmt.Sprintf("%s (commit: %s)", Version, Commit)
}

// UserAgent returns the User-Agent value sent with API requests.
func UserAgent() string {
	return "tapp-go/" + strings.TrimPrefix(Version, "v")
}
