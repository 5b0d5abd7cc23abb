package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"

	"rowkit/internal/config"
	"rowkit/internal/errs"
	"rowkit/internal/metrics"
	"rowkit/internal/metrics/datadog"
	"rowkit/internal/metrics/prompush"
	"rowkit/internal/rowstore"
)

// resolveConfig builds the run config. Precedence: flag, then environment,
// then the --config file, then built-in defaults. Issues are printed to
// stderr; any error-level issue fails the run.
func resolveConfig(inv invocation, stderr io.Writer) (config.Run, error) {
	cfg := config.Defaults()
	if inv.global.configPath != "" {
		var err error
		if cfg, err = config.Load(inv.global.configPath); err != nil {
			return cfg, err
		}
	}
	applyEnv(&cfg)
	applyFlags(&cfg, inv)

	issues := config.ValidateRun(cfg, rowstore.ListKinds())
	for _, iss := range issues {
		fmt.Fprintf(stderr, "[%s] %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return cfg, errs.InvalidArgument("run configuration is invalid")
	}
	return cfg, nil
}

func applyEnv(cfg *config.Run) {
	cfg.Engine.Kind = pickString(os.Getenv("ROWKIT_ENGINE"), cfg.Engine.Kind)
	cfg.Engine.DSN = pickString(os.Getenv("ROWKIT_DSN"), cfg.Engine.DSN)
	cfg.Runtime.Jobs = pickInt(getenvInt("ROWKIT_JOBS", 0), cfg.Runtime.Jobs)
	cfg.Runtime.InlineLimit = pickInt(getenvInt("ROWKIT_INLINE_LIMIT", 0), cfg.Runtime.InlineLimit)
	cfg.Runtime.LargeScaleThreshold = pickInt(getenvInt("ROWKIT_LARGE_SCALE_THRESHOLD", 0), cfg.Runtime.LargeScaleThreshold)
	cfg.Metrics.Backend = pickString(os.Getenv("METRICS_BACKEND"), cfg.Metrics.Backend)
	cfg.Metrics.PushgatewayURL = pickString(os.Getenv("PUSHGATEWAY_URL"), cfg.Metrics.PushgatewayURL)
	if host := os.Getenv("DD_AGENT_HOST"); host != "" {
		cfg.Metrics.StatsdAddr = statsdAddr(host, os.Getenv("DD_DOGSTATSD_PORT"))
	}
}

func applyFlags(cfg *config.Run, inv invocation) {
	if inv.changed == nil {
		return
	}
	g := inv.global
	if inv.changed("engine") {
		cfg.Engine.Kind = g.engine
	}
	if inv.changed("dsn") {
		cfg.Engine.DSN = g.dsn
	}
	if inv.changed("jobs") {
		cfg.Runtime.Jobs = g.jobs
	}
	if inv.changed("metrics-backend") {
		cfg.Metrics.Backend = g.metricsBackend
	}
	if inv.changed("pushgateway-url") {
		cfg.Metrics.PushgatewayURL = g.pushgatewayURL
	}
	if inv.changed("statsd-addr") {
		cfg.Metrics.StatsdAddr = g.statsdAddr
	}
}

// statsdAddr turns a DD_AGENT_HOST value into a dial address. Values that
// already carry a port or a unix:// scheme are used as is.
func statsdAddr(host, port string) string {
	if strings.HasPrefix(host, "unix://") {
		return host
	}
	if _, _, err := net.SplitHostPort(host); err == nil {
		return host
	}
	if port == "" {
		port = "8125"
	}
	return net.JoinHostPort(host, port)
}

// setupMetrics installs the configured backend. The returned func flushes
// it and is always safe to call. A backend that fails to start is logged
// and metrics stay disabled.
func setupMetrics(m config.Metrics, logger log.Logger) func() {
	flush := func() {
		if err := metrics.Flush(); err != nil {
			level.Warn(logger).Log("msg", "metrics flush failed", "err", err)
		}
	}
	switch strings.ToLower(m.Backend) {
	case "pushgateway", "prom", "prometheus":
		b, err := prompush.NewBackend(m.Job, m.PushgatewayURL)
		if err != nil {
			level.Warn(logger).Log("msg", "metrics disabled", "backend", m.Backend, "err", err)
			return func() {}
		}
		metrics.SetBackend(b)
		level.Debug(logger).Log("msg", "metrics enabled", "backend", m.Backend, "url", m.PushgatewayURL, "job", m.Job)
		return flush

	case "datadog", "dogstatsd":
		b, err := datadog.NewBackend(datadog.Config{
			Addr:       m.StatsdAddr,
			Namespace:  m.Namespace,
			GlobalTags: tagList(m.Tags),
		})
		if err != nil {
			level.Warn(logger).Log("msg", "metrics disabled", "backend", m.Backend, "err", err)
			return func() {}
		}
		metrics.SetBackend(b)
		level.Debug(logger).Log("msg", "metrics enabled", "backend", m.Backend, "addr", m.StatsdAddr)
		return flush
	}
	level.Debug(logger).Log("msg", "metrics disabled", "backend", m.Backend)
	return func() {}
}

// tagList renders tags as sorted key:value strings.
func tagList(tags map[string]string) []string {
	out := make([]string, 0, len(tags))
	for k, v := range tags {
		out = append(out, k+":"+v)
	}
	sort.Strings(out)
	return out
}

// getenvInt reads an int from environment, returning def when unset/invalid.
func getenvInt(k string, def int) int {
	if s := os.Getenv(k); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			return n
		}
	}
	return def
}

// pickInt chooses the first positive value 'a', otherwise returns 'b'.
func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}

func pickString(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
