package main

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestRunSuccess(t *testing.T) {
	mr := miniredis.RunT(t)

	if code := run([]string{"-addr", mr.Addr()}); code != 0 {
		t.Errorf("expected exit code 0, got %d", code)
	}
}

func TestRunConnectFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if code := run([]string{"-addr", addr, "-timeout", "500ms"}); code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
}

func TestRunJSONProbeWithoutModule(t *testing.T) {
	// miniredis has no RedisJSON, so the probe must fail.
	mr := miniredis.RunT(t)

	if code := run([]string{"-addr", mr.Addr(), "-json"}); code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
}

func TestRunBadFlags(t *testing.T) {
	if code := run([]string{"-definitely-not-a-flag"}); code != 2 {
		t.Errorf("expected exit code 2, got %d", code)
	}
}

func TestRunMissingConfigFile(t *testing.T) {
	if code := run([]string{"-config", "does-not-exist.yaml"}); code != 1 {
		t.Errorf("expected exit code 1, got %d", code)
	}
}
