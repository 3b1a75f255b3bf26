package main

import (
	"path/filepath"
	"testing"
)

func TestRun_ExitCodes(t *testing.T) {
	dir := t.TempDir()
	// Config file absent, defaults apply.
	base := []string{"-config", filepath.Join(dir, "kvlog.yaml"), "-dir", dir}
	kvlog := func(args ...string) int {
		return run(append(append([]string{}, base...), args...))
	}

	if code := kvlog("set", "k", "v"); code != 0 {
		t.Fatalf("set exited %d, want 0", code)
	}
	if code := kvlog("get", "k"); code != 0 {
		t.Fatalf("get exited %d, want 0", code)
	}
	if code := kvlog("get", "missing"); code != 0 {
		t.Fatalf("get on a missing key exited %d, want 0", code)
	}
	if code := kvlog("rm", "missing"); code != 1 {
		t.Fatalf("rm on a missing key exited %d, want 1", code)
	}
	if code := kvlog("rm", "k"); code != 0 {
		t.Fatalf("rm exited %d, want 0", code)
	}
	if code := kvlog("bogus"); code != 2 {
		t.Fatalf("unknown command exited %d, want 2", code)
	}
}
