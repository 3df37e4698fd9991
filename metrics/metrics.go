// Package metrics is a thin, optional layer over Prometheus. It is
// ambient observability, not a protocol feature: nothing in the wire
// grammar depends on it, and a Server built with NewNop never pays for
// it.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// sink abstracts the concrete backend (Prometheus vs no-op) so Metrics
// itself stays a thin dispatcher.
type sink interface {
	incHit(shard int)
	incMiss(shard int)
	incSet(shard int)
	incSnapshotRequest()
}

// Metrics is the public handle passed into server.Server.
type Metrics struct {
	sink sink
}

// NewNop returns a Metrics whose recordings are discarded — the
// default when the caller doesn't wire a Prometheus registry.
func NewNop() *Metrics {
	return &Metrics{sink: noopSink{}}
}

// New returns a Metrics that registers its counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	return &Metrics{sink: newPromSink(reg)}
}

func (m *Metrics) RecordHit(shard int) {
	if m == nil {
		return
	}
	m.sink.incHit(shard)
}

func (m *Metrics) RecordMiss(shard int) {
	if m == nil {
		return
	}
	m.sink.incMiss(shard)
}

func (m *Metrics) RecordSet(shard int) {
	if m == nil {
		return
	}
	m.sink.incSet(shard)
}

func (m *Metrics) RecordSnapshotRequest() {
	if m == nil {
		return
	}
	m.sink.incSnapshotRequest()
}

type noopSink struct{}

func (noopSink) incHit(int)          {}
func (noopSink) incMiss(int)         {}
func (noopSink) incSet(int)          {}
func (noopSink) incSnapshotRequest() {}

type promSink struct {
	hits             *prometheus.CounterVec
	misses           *prometheus.CounterVec
	sets             *prometheus.CounterVec
	snapshotRequests prometheus.Counter
}

func newPromSink(reg prometheus.Registerer) *promSink {
	s := &promSink{
		hits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "horcrux_get_hits_total",
			Help: "Number of get requests that found a value, by shard.",
		}, []string{"shard"}),
		misses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "horcrux_get_misses_total",
			Help: "Number of get requests that found no value, by shard.",
		}, []string{"shard"}),
		sets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "horcrux_sets_total",
			Help: "Number of set requests processed, by shard.",
		}, []string{"shard"}),
		snapshotRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "horcrux_snapshot_requests_total",
			Help: "Number of client-initiated snapshot broadcasts.",
		}),
	}
	reg.MustRegister(s.hits, s.misses, s.sets, s.snapshotRequests)
	return s
}

func (s *promSink) incHit(shard int) {
	s.hits.WithLabelValues(strconv.Itoa(shard)).Inc()
}

func (s *promSink) incMiss(shard int) {
	s.misses.WithLabelValues(strconv.Itoa(shard)).Inc()
}

func (s *promSink) incSet(shard int) {
	s.sets.WithLabelValues(strconv.Itoa(shard)).Inc()
}

func (s *promSink) incSnapshotRequest() {
	s.snapshotRequests.Inc()
}
