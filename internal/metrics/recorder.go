package metrics

import (
	"strconv"
	"time"
)

// Recorder implements internal/command's MetricsSink and internal/cron's
// sampler hook, translating dispatcher timing and keyspace stats into
// the package-level collectors above. A zero value is ready to use.
type Recorder struct{}

// Observe implements command.MetricsSink: called once per dispatched
// command with its name and elapsed execution time.
func (Recorder) Observe(name string, elapsed time.Duration) {
	CommandsTotal.WithLabelValues(name).Inc()
	CommandDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}

// SampleKeyspace implements cron's MetricsSampler hook: called on cron's
// periodic resample, refreshing the expired/evicted gauges from the
// keyspace's running totals.
func (Recorder) SampleKeyspace(expiredKeys, evictedKeys uint64) {
	ExpiredKeysTotal.Set(float64(expiredKeys))
	EvictedKeysTotal.Set(float64(evictedKeys))
}

// SetKeyspaceSize records the key count for one database index.
func (Recorder) SetKeyspaceSize(dbIndex int, size int) {
	KeyspaceKeys.WithLabelValues(strconv.Itoa(dbIndex)).Set(float64(size))
}

// SetConnectedClients records the current connection count.
func (Recorder) SetConnectedClients(n int) {
	ConnectedClients.Set(float64(n))
}
