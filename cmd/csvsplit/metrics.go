package main

import (
	"log/slog"

	"github.com/spf13/viper"

	"csvsplit/internal/metrics"
	"csvsplit/internal/metrics/datadog"
	"csvsplit/internal/metrics/prompush"
)

// setupMetrics installs the backend named by metrics.backend and returns a
// func that flushes it. Backend failures never fail the run; the nop backend
// stays in place.
func setupMetrics(v *viper.Viper, job string, log *slog.Logger) (flush func()) {
	flush = func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush failed", "err", err)
		}
	}

	name := v.GetString("metrics.backend")
	switch name {
	case "pushgateway":
		url := v.GetString("metrics.pushgateway_url")
		b, err := prompush.NewBackend(job, url)
		if err != nil {
			log.Warn("metrics: pushgateway backend unavailable; using nop", "err", err)
			return func() {}
		}
		metrics.SetBackend(b)
		log.Debug("metrics enabled", "backend", name, "url", url, "job", job)

	case "datadog":
		addr := v.GetString("metrics.statsd_addr")
		b, err := datadog.NewBackend(datadog.Config{Addr: addr, Tags: []string{"job:" + job}})
		if err != nil {
			log.Warn("metrics: datadog backend unavailable; using nop", "err", err)
			return func() {}
		}
		metrics.SetBackend(b)
		log.Debug("metrics enabled", "backend", name, "addr", addr, "job", job)

	case "", "none":
		log.Debug("metrics disabled")
		return func() {}

	default:
		log.Warn("metrics: unknown backend; metrics disabled", "backend", name)
		return func() {}
	}
	return flush
}
