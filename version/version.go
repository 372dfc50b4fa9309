// Package version reports build information stamped in with -ldflags.
package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
)

// Set with -ldflags "-X github.com/teranos/tagtical/version.Version=..."
var (
	CommitHash = ""
	BuildTime  = "unknown"
	Version    = "dev"
)

// Info is the build information of the running binary.
type Info struct {
	CommitHash string `json:"commit_hash"`
	BuildTime  string `json:"build_time"`
	Version    string `json:"version"`
	GoVersion  string `json:"go_version"`
	Platform   string `json:"platform"`
}

// Get returns the build information. Without ldflags the commit and time come
// from the VCS stamp go build embeds, when there is one.
func Get() Info {
	info := Info{
		CommitHash: CommitHash,
		BuildTime:  BuildTime,
		Version:    Version,
		GoVersion:  runtime.Version(),
		Platform:   runtime.GOOS + "/" + runtime.GOARCH,
	}
	if info.CommitHash == "" {
		info.CommitHash = "dev"
		if bi, ok := debug.ReadBuildInfo(); ok {
			fillFromVCS(&info, bi.Settings)
		}
	}
	return info
}

func fillFromVCS(info *Info, settings []debug.BuildSetting) {
	dirty := false
	for _, s := range settings {
		switch s.Key {
		case "vcs.revision":
			info.CommitHash = s.Value
		case "vcs.time":
			if info.BuildTime == "unknown" {
				info.BuildTime = s.Value
			}
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if dirty {
		info.CommitHash += "-dirty"
	}
}

func (i Info) String() string {
	return fmt.Sprintf("tagtical %s (commit %s, built %s)", i.Version, i.Short(), i.BuildTime)
}

// Short returns the commit hash cut to seven characters.
func (i Info) Short() string {
	if len(i.CommitHash) > 7 {
		return i.CommitHash[:7]
	}
	return i.CommitHash
}
