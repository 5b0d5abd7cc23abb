package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-kit/log"
	"github.com/google/go-cmp/cmp"

	"rowkit/internal/config"
)

// TestGetenvIntAndPickInt verifies env fallback and pick semantics.
func TestGetenvIntAndPickInt(t *testing.T) {
	t.Setenv("ROWKIT_TEST_INT", "")
	if v := getenvInt("ROWKIT_TEST_INT", 7); v != 7 {
		t.Fatalf("getenvInt unset = %d, want 7", v)
	}
	t.Setenv("ROWKIT_TEST_INT", "42")
	if v := getenvInt("ROWKIT_TEST_INT", 7); v != 42 {
		t.Fatalf("getenvInt set = %d, want 42", v)
	}
	t.Setenv("ROWKIT_TEST_INT", "many")
	if v := getenvInt("ROWKIT_TEST_INT", 7); v != 7 {
		t.Fatalf("getenvInt invalid = %d, want 7", v)
	}
	if v := pickInt(5, 9); v != 5 {
		t.Fatalf("pickInt(5,9) = %d, want 5", v)
	}
	if v := pickInt(0, 9); v != 9 {
		t.Fatalf("pickInt(0,9) = %d, want 9", v)
	}
}

/*
TestResolveConfig_Precedence layers a config file, environment variables and
flags. Flags beat the environment, which beats the file, which beats the
defaults.
*/
func TestResolveConfig_Precedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.yaml")
	body := strings.Join([]string{
		"engine:",
		"  kind: sqlite",
		"  dsn: file-dsn",
		"runtime:",
		"  jobs: 2",
		"  inline_limit: 50",
		"  large_scale_threshold: 500",
		"",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ROWKIT_ENGINE", "")
	t.Setenv("ROWKIT_DSN", "env-dsn")
	t.Setenv("ROWKIT_JOBS", "3")
	t.Setenv("ROWKIT_INLINE_LIMIT", "")
	t.Setenv("ROWKIT_LARGE_SCALE_THRESHOLD", "")
	t.Setenv("METRICS_BACKEND", "")
	t.Setenv("PUSHGATEWAY_URL", "")
	t.Setenv("DD_AGENT_HOST", "")

	inv, err := parseArgs([]string{"--config", path, "-j", "8", "shuffle", "in.csv"}, io.Discard)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	got, err := resolveConfig(inv, io.Discard)
	if err != nil {
		t.Fatalf("resolveConfig: %v", err)
	}

	want := config.Defaults()
	want.Engine = config.Engine{Kind: "sqlite", DSN: "env-dsn"}
	want.Runtime.Jobs = 8
	want.Runtime.InlineLimit = 50
	want.Runtime.LargeScaleThreshold = 500
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("resolveConfig (-want +got):\n%s", diff)
	}
}

// TestResolveConfig_Invalid prints issues and fails on errors.
func TestResolveConfig_Invalid(t *testing.T) {
	t.Setenv("ROWKIT_ENGINE", "")
	t.Setenv("METRICS_BACKEND", "")

	inv, err := parseArgs([]string{"--engine", "oracle", "shuffle", "in.csv"}, io.Discard)
	if err != nil {
		t.Fatalf("parseArgs: %v", err)
	}
	var stderr strings.Builder
	if _, err := resolveConfig(inv, &stderr); err == nil {
		t.Fatal("expected error for unknown engine")
	}
	if !strings.Contains(stderr.String(), "[error] engine.kind:") {
		t.Fatalf("issues not printed: %q", stderr.String())
	}
}

// TestStatsdAddr fills in the DogStatsD port when the host has none.
func TestStatsdAddr(t *testing.T) {
	t.Parallel()

	cases := []struct {
		host, port, want string
	}{
		{"localhost", "", "localhost:8125"},
		{"10.0.0.1", "9125", "10.0.0.1:9125"},
		{"agent:8126", "", "agent:8126"},
		{"unix:///var/run/dsd.socket", "", "unix:///var/run/dsd.socket"},
		{"::1", "", "[::1]:8125"},
	}
	for _, c := range cases {
		if got := statsdAddr(c.host, c.port); got != c.want {
			t.Errorf("statsdAddr(%q, %q) = %q, want %q", c.host, c.port, got, c.want)
		}
	}
}

// TestTagList renders sorted key:value tags.
func TestTagList(t *testing.T) {
	t.Parallel()

	got := tagList(map[string]string{"env": "prod", "app": "rowkit"})
	if diff := cmp.Diff([]string{"app:rowkit", "env:prod"}, got); diff != "" {
		t.Fatalf("tagList (-want +got):\n%s", diff)
	}
}

// TestSetupMetrics_Disabled leaves the no-op backend in place.
func TestSetupMetrics_Disabled(t *testing.T) {
	t.Parallel()

	flush := setupMetrics(config.Metrics{Backend: "none"}, log.NewNopLogger())
	flush()
}
