package version

import "testing"

func TestString(t *testing.T) {
	old := [3]string{Version, GitSHA, BuildTime}
	defer func() { Version, GitSHA, BuildTime = old[0], old[1], old[2] }()

	Version, GitSHA, BuildTime = "1.2.0", "abc123", "2026-01-02T03:04:05Z"
	want := "pfcluster 1.2.0 (commit abc123, built 2026-01-02T03:04:05Z)"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
