package version

import (
	"runtime/debug"
	"testing"
)

func TestShort(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want string
	}{
		{"version only", Info{Version: "1.0.0"}, "1.0.0"},
		{"with commit", Info{Version: "1.0.0", Commit: "abc1234"}, "1.0.0-abc1234"},
		{"dirty", Info{Version: "dev", Commit: "abc1234", Dirty: true}, "dev-abc1234-dirty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.info.Short(); got != tt.want {
				t.Errorf("Short() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestString(t *testing.T) {
	info := Info{Version: "1.0.0", Commit: "abc1234", BuildTime: "2026-01-02T03:04:05Z", GoVersion: "go1.25.0"}
	want := "1.0.0-abc1234 built 2026-01-02T03:04:05Z go1.25.0"
	if got := info.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestFromBuildInfo(t *testing.T) {
	bi := &debug.BuildInfo{
		GoVersion: "go1.25.0",
		Settings: []debug.BuildSetting{
			{Key: "vcs.revision", Value: "0123456789abcdef"},
			{Key: "vcs.modified", Value: "true"},
			{Key: "vcs.time", Value: "2026-01-02T03:04:05Z"},
		},
	}

	info := Info{Version: "dev"}
	fromBuildInfo(&info, bi)
	if info.Commit != "0123456" || !info.Dirty || info.BuildTime != "2026-01-02T03:04:05Z" || info.GoVersion != "go1.25.0" {
		t.Errorf("unexpected info %+v", info)
	}

	pinned := Info{Version: "1.0.0", Commit: "feedbee", BuildTime: "yesterday"}
	fromBuildInfo(&pinned, bi)
	if pinned.Commit != "feedbee" || pinned.BuildTime != "yesterday" {
		t.Errorf("link-time values overwritten: %+v", pinned)
	}
}

func TestGet(t *testing.T) {
	if got := Get(); got.Version != Version {
		t.Errorf("Get().Version = %q, want %q", got.Version, Version)
	}
}
