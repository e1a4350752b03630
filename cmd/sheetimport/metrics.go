package main

import (
	"context"
	"os"
	"strings"

	"sheetimport/internal/config"
	"sheetimport/internal/logging"
	"sheetimport/internal/metrics"
	"sheetimport/internal/metrics/datadog"
	"sheetimport/internal/metrics/prompush"
)

// applyEnv fills unset metrics settings from the environment.
func applyEnv(m *config.Metrics) {
	if strings.TrimSpace(m.Backend) == "" {
		m.Backend = os.Getenv("METRICS_BACKEND")
	}
	if m.PushgatewayURL == "" {
		m.PushgatewayURL = os.Getenv("PUSHGATEWAY_URL")
	}
	if m.StatsdAddr == "" {
		m.StatsdAddr = os.Getenv("DD_DOGSTATSD_ADDR")
	}
}

// setupMetrics installs the configured backend and returns the function
// that flushes it at exit. A backend that fails to start leaves metrics
// disabled; the import itself still runs.
func setupMetrics(ctx context.Context, job config.Job) (flush func()) {
	log := logging.FromContext(ctx)
	name := strings.TrimSpace(job.Metrics.Backend)

	var (
		b   metrics.Backend
		err error
	)
	switch name {
	case "", "none":
		log.Debug("metrics disabled")
		return func() {}
	case "pushgateway":
		b, err = prompush.NewBackend(job.JobName(), job.Metrics.PushgatewayURL)
	case "datadog":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       job.Metrics.StatsdAddr,
			GlobalTags: []string{"service:sheetimport"},
		})
	default:
		log.Warn("unknown metrics backend, metrics disabled", "backend", name)
		return func() {}
	}
	if err != nil {
		log.Warn("metrics backend failed to start, metrics disabled", "backend", name, "err", err)
		return func() {}
	}

	metrics.SetBackend(b)
	log.Debug("metrics enabled", "backend", name, "job", job.JobName())
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush failed", "backend", name, "err", err)
		}
	}
}
