package version

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"strings"
	"time"
)

// Set at build time with -ldflags.
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

const shortCommitLen = 7

// Info describes the running build.
type Info struct {
	Version   string    `json:"version"`
	GitCommit string    `json:"git_commit,omitempty"`
	BuildDate time.Time `json:"build_date,omitzero"`
	GoVersion string    `json:"go_version"`
	Platform  string    `json:"platform"`
	Dirty     bool      `json:"dirty,omitempty"`
}

// Get returns the build information, filling gaps from the embedded VCS
// stamp when the binary was built from a checkout.
func Get() Info {
	info := Info{
		Version:   Version,
		GitCommit: GitCommit,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if t, err := time.Parse(time.RFC3339, BuildTime); err == nil {
		info.BuildDate = t.UTC()
	}

	if bi, ok := debug.ReadBuildInfo(); ok {
		if info.Version == "dev" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = strings.TrimPrefix(bi.Main.Version, "v")
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.GitCommit == "" {
					info.GitCommit = s.Value
				}
			case "vcs.modified":
				info.Dirty = s.Value == "true"
			case "vcs.time":
				if info.BuildDate.IsZero() {
					if t, err := time.Parse(time.RFC3339, s.Value); err == nil {
						info.BuildDate = t.UTC()
					}
				}
			}
		}
	}

	if len(info.GitCommit) > shortCommitLen {
		info.GitCommit = info.GitCommit[:shortCommitLen]
	}
	return info
}

// IsRelease reports whether the build carries a release version.
func (i Info) IsRelease() bool {
	return i.Version != "dev" && !i.Dirty
}

// Short returns "version" or "version-commit[-dirty]".
func (i Info) Short() string {
	if i.GitCommit == "" {
		return i.Version
	}
	s := i.Version + "-" + i.GitCommit
	if i.Dirty {
		s += "-dirty"
	}
	return s
}

// String returns a one-line description for humans.
func (i Info) String() string {
	s := fmt.Sprintf("%s (%s, %s)", i.Short(), i.GoVersion, i.Platform)
	if !i.BuildDate.IsZero() {
		s += " built " + i.BuildDate.Format(time.RFC3339)
	}
	return s
}

// Fields returns the build information as structured log fields.
func (i Info) Fields() map[string]interface{} {
	return map[string]interface{}{
		"version":    i.Version,
		"git_commit": i.GitCommit,
		"go_version": i.GoVersion,
	}
}

// UserAgent returns a User-Agent value for product.
func UserAgent(product string) string {
	return product + "/" + Get().Short()
}
