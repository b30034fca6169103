package monitoring

import (
	"fmt"
	"testing"
)

// capture installs a recording logger and restores the previous state when
// the test ends.
func capture(t *testing.T) *[]string {
	t.Helper()
	prev, prevVerbose := Logf, Verbose()
	t.Cleanup(func() {
		Logf = prev
		SetVerbose(prevVerbose)
	})
	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	return &lines
}

func TestSetLogger(t *testing.T) {
	lines := capture(t)

	Logf("l4fit: topo %d did not converge", 3)
	if len(*lines) != 1 || (*lines)[0] != "l4fit: topo 3 did not converge" {
		t.Errorf("captured %q", *lines)
	}

	SetLogger(nil)
	Logf("dropped")
	if len(*lines) != 1 {
		t.Errorf("nil logger still forwarded: %q", *lines)
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should not be nil by default")
	}
}

func TestDebugf_RespectsVerbose(t *testing.T) {
	lines := capture(t)

	SetVerbose(false)
	Debugf("hidden %d", 1)
	if len(*lines) != 0 {
		t.Errorf("Debugf logged %q with verbose off", *lines)
	}

	SetVerbose(true)
	if !Verbose() {
		t.Fatal("Verbose() = false after SetVerbose(true)")
	}
	Debugf("shown %d", 2)
	if len(*lines) != 1 || (*lines)[0] != "shown 2" {
		t.Errorf("captured %q, want [shown 2]", *lines)
	}
}
