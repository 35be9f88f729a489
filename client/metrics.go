// SPDX-License-Identifier: ice License 1.0

package client

import (
	"github.com/rcrowley/go-metrics"

	"github.com/ice-blockchain/subzero-client/model"
)

type (
	// Metrics counts the frames a session exchanged with relays.
	Metrics struct {
		registry metrics.Registry
	}
)

const (
	framesOut  = "framesOut"
	framesIn   = "framesIn"
	duplicates = "duplicates"
	malformed  = "malformed"
	dropped    = "dropped"
)

// WithMetricsRegistry makes the session report into an existing registry.
func WithMetricsRegistry(registry metrics.Registry) Option {
	return func(s *Session) {
		s.metrics = newMetrics(registry)
	}
}

func newMetrics(registry metrics.Registry) *Metrics {
	if registry == nil {
		registry = metrics.NewRegistry()
	}

	return &Metrics{registry: registry}
}

func (m *Metrics) Registry() metrics.Registry {
	return m.registry
}

func (m *Metrics) Count(name string) int64 {
	if counter, ok := m.registry.Get(name).(metrics.Counter); ok {
		return counter.Count()
	}

	return 0
}

func (m *Metrics) inc(name string) {
	metrics.GetOrRegisterCounter(name, m.registry).Inc(1)
}

func (m *Metrics) sent() {
	m.inc(framesOut)
}

func (m *Metrics) received(label model.EnvelopeType) {
	m.inc(framesIn)
	if label != "" {
		m.inc(framesIn + "." + string(label))
	}
}

func (m *Metrics) duplicate() {
	m.inc(duplicates)
}

func (m *Metrics) malformed() {
	m.inc(malformed)
}

func (m *Metrics) dropped() {
	m.inc(dropped)
}
