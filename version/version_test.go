package version

import (
	"strings"
	"testing"
	"time"
)

func withBuildVars(t *testing.T, version, commit, buildTime string) {
	t.Helper()
	origVersion, origCommit, origBuildTime := Version, GitCommit, BuildTime
	t.Cleanup(func() {
		Version, GitCommit, BuildTime = origVersion, origCommit, origBuildTime
	})
	Version, GitCommit, BuildTime = version, commit, buildTime
}

func TestGet_LinkerValues(t *testing.T) {
	withBuildVars(t, "1.4.0", "0123456789abcdef", "2026-03-01T10:00:00Z")

	info := Get()
	if info.Version != "1.4.0" {
		t.Errorf("version = %q", info.Version)
	}
	if info.GitCommit != "0123456" {
		t.Errorf("expected commit shortened to 7 chars, got %q", info.GitCommit)
	}
	want := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	if !info.BuildDate.Equal(want) {
		t.Errorf("build date = %v, want %v", info.BuildDate, want)
	}
	if info.GoVersion == "" || !strings.Contains(info.Platform, "/") {
		t.Errorf("runtime fields missing: %+v", info)
	}
}

func TestGet_InvalidBuildTimeIgnored(t *testing.T) {
	withBuildVars(t, "1.0.0", "abc", "yesterday")
	info := Get()
	if info.Version != "1.0.0" || info.GitCommit != "abc" {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestInfo_Short(t *testing.T) {
	tests := []struct {
		info Info
		want string
	}{
		{Info{Version: "dev"}, "dev"},
		{Info{Version: "1.0.0", GitCommit: "abc1234"}, "1.0.0-abc1234"},
		{Info{Version: "1.0.0", GitCommit: "abc1234", Dirty: true}, "1.0.0-abc1234-dirty"},
	}
	for _, tt := range tests {
		if got := tt.info.Short(); got != tt.want {
			t.Errorf("Short() = %q, want %q", got, tt.want)
		}
	}
}

func TestInfo_IsRelease(t *testing.T) {
	if (Info{Version: "dev"}).IsRelease() {
		t.Error("dev should not be a release")
	}
	if (Info{Version: "1.0.0", Dirty: true}).IsRelease() {
		t.Error("dirty build should not be a release")
	}
	if !(Info{Version: "1.0.0"}).IsRelease() {
		t.Error("expected release")
	}
}

func TestInfo_String(t *testing.T) {
	info := Info{
		Version:   "1.0.0",
		GoVersion: "go1.25.0",
		Platform:  "linux/amd64",
		BuildDate: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	want := "1.0.0 (go1.25.0, linux/amd64) built 2026-01-02T03:04:05Z"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestUserAgent(t *testing.T) {
	withBuildVars(t, "2.0.0", "", "")
	if ua := UserAgent("rtdb"); !strings.HasPrefix(ua, "rtdb/2.0.0") {
		t.Errorf("UserAgent = %q", ua)
	}
}

func TestInfo_Fields(t *testing.T) {
	f := Info{Version: "1.0.0", GitCommit: "abc", GoVersion: "go1.25.0"}.Fields()
	if f["version"] != "1.0.0" || f["git_commit"] != "abc" {
		t.Errorf("unexpected fields %v", f)
	}
}
