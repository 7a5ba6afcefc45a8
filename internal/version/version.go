// Package version reports the build identity of the crm binary.
package version

import (
	"runtime/debug"
	"sync"
)

// Set with -ldflags "-X github.com/waddythomson/buwa-crm/internal/version.Version=...".
var (
	Version    = "dev"
	CommitHash = ""
	BuildTime  = ""
)

// Info is the resolved build identity. Commit and BuiltAt fall back to the
// VCS stamp the Go toolchain embeds when ldflags did not set them.
type Info struct {
	Version string `json:"version"`
	Commit  string `json:"commit,omitempty"`
	BuiltAt string `json:"built_at,omitempty"`
}

var (
	vcsOnce     sync.Once
	vcsRevision string
	vcsTime     string
)

func readVCS() {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			vcsRevision = s.Value
		case "vcs.time":
			vcsTime = s.Value
		}
	}
}

// Current returns the build identity of the running binary.
func Current() Info {
	vcsOnce.Do(readVCS)
	return resolve(Version, CommitHash, BuildTime, vcsRevision, vcsTime)
}

func resolve(ver, commit, built, vcsRev, vcsAt string) Info {
	if commit == "" {
		commit, built = vcsRev, firstNonEmpty(built, vcsAt)
	}
	return Info{Version: ver, Commit: commit, BuiltAt: built}
}

// ShortCommit is the first seven characters of the commit hash.
func (i Info) ShortCommit() string {
	if len(i.Commit) > 7 {
		return i.Commit[:7]
	}
	return i.Commit
}

// String renders "v1.2.0 (abc1234)", or just the version without a commit.
func (i Info) String() string {
	if i.Commit == "" {
		return i.Version
	}
	return i.Version + " (" + i.ShortCommit() + ")"
}

// GetInfo is shorthand for Current().String().
func GetInfo() string {
	return Current().String()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
