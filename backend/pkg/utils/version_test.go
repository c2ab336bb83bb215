package utils

import (
	"strings"
	"testing"
)

func TestVersionStrings(t *testing.T) {
	t.Parallel()

	short := GetVersionShort()
	full := GetBuildVersion()

	for _, v := range []string{short, full} {
		if !strings.Contains(v, "v"+Version) {
			t.Errorf("version %q does not contain v%s", v, Version)
		}
		if !strings.Contains(v, "(") || !strings.Contains(v, ")") {
			t.Errorf("version %q has no commit section", v)
		}
	}

	if strings.Contains(short, "built at") {
		t.Errorf("short version should not carry build time, got %q", short)
	}
	if !strings.Contains(full, "built at") {
		t.Errorf("full version should carry build time, got %q", full)
	}
}

func TestGetBuildInfo(t *testing.T) {
	t.Parallel()

	info := GetBuildInfo()
	for _, key := range []string{"version", "commit", "build_time", "vcs_modified"} {
		if _, ok := info[key]; !ok {
			t.Errorf("GetBuildInfo() missing key %q", key)
		}
	}
	if info["version"] != Version {
		t.Errorf("GetBuildInfo()[version] = %s, want %s", info["version"], Version)
	}
	if m := info["vcs_modified"]; m != "true" && m != "false" {
		t.Errorf("vcs_modified = %q", m)
	}

	commit, _, _ := getVCSInfo()
	if commit != "unknown" && len(commit) > 7 {
		t.Errorf("commit should be shortened, got %q", commit)
	}
}
