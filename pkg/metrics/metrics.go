package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PgErrCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meetsync",
		Subsystem: "pg",
		Name:      "pg_err_count",
	}, []string{"method"})
	PgDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "meetsync",
		Subsystem: "pg",
		Name:      "pg_duration",
	}, []string{"method"})
	NotifyErrCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "meetsync",
		Subsystem: "notifier",
		Name:      "notify_err_count",
	}, []string{"channel"})
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "meetsync",
		Subsystem: "http",
		Name:      "request_duration",
	}, []string{"method", "route"})
)
