// Package metrics exposes the daemon's Prometheus instrumentation,
// sampled by internal/cron's periodic resample step and fed per-command
// timing by internal/command's dispatcher (spec.md §9 "AMBIENT STACK").
//
// Grounded on cuemby-warren's pkg/metrics: package-level collectors
// registered once in init(), served on their own HTTP listener distinct
// from the RESP port via Handler().
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	CommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "redis_commands_total",
			Help: "Total number of commands executed, by command name.",
		},
		[]string{"command"},
	)

	CommandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "redis_command_duration_seconds",
			Help:    "Command execution latency in seconds, by command name.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)

	ExpiredKeysTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "redis_expired_keys_total",
			Help: "Cumulative number of keys reaped by lazy or active expiration.",
		},
	)

	EvictedKeysTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "redis_evicted_keys_total",
			Help: "Cumulative number of keys removed by the eviction engine.",
		},
	)

	ConnectedClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "redis_connected_clients",
			Help: "Number of client connections currently open.",
		},
	)

	KeyspaceKeys = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "redis_db_keys",
			Help: "Number of keys currently stored, by database index.",
		},
		[]string{"db"},
	)
)

func init() {
	prometheus.MustRegister(
		CommandsTotal,
		CommandDuration,
		ExpiredKeysTotal,
		EvictedKeysTotal,
		ConnectedClients,
		KeyspaceKeys,
	)
}

// Handler serves the Prometheus exposition format, meant to be mounted
// on an internal listener distinct from the RESP port (spec.md §9).
func Handler() http.Handler {
	return promhttp.Handler()
}
