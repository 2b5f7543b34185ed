// Package observability exposes prometheus metrics for the boost module.
package observability

import (
	"math/big"
	"strings"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	coreevents "prizeboost/core/events"
)

type boostMetrics struct {
	executed *prometheus.CounterVec
	skipped  *prometheus.CounterVec
	paid     *prometheus.CounterVec
}

var (
	boostMetricsOnce sync.Once
	boostRegistry    *boostMetrics
)

// Boosts returns the metrics registry tracking boost outcomes.
func Boosts() *boostMetrics {
	boostMetricsOnce.Do(func() {
		boostRegistry = &boostMetrics{
			executed: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "prizeboost",
				Subsystem: "engine",
				Name:      "boosts_executed_total",
				Help:      "Count of executed boosts segmented by reserve token.",
			}, []string{"token"}),
			skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "prizeboost",
				Subsystem: "engine",
				Name:      "boosts_skipped_total",
				Help:      "Count of silently skipped boost attempts segmented by reason.",
			}, []string{"reason"}),
			paid: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "prizeboost",
				Subsystem: "engine",
				Name:      "boost_paid_base_units_total",
				Help:      "Sum of paid boost amounts in token base units (float approximation).",
			}, []string{"token"}),
		}
		prometheus.MustRegister(boostRegistry.executed, boostRegistry.skipped, boostRegistry.paid)
	})
	return boostRegistry
}

// RecordExecuted increments the executed counter and adds the paid amount.
func (m *boostMetrics) RecordExecuted(token string, amount *big.Int) {
	if m == nil {
		return
	}
	normalized := normalizeLabel(token, "UNKNOWN")
	m.executed.WithLabelValues(normalized).Inc()
	if amount != nil {
		value, _ := new(big.Float).SetInt(amount).Float64()
		if value > 0 {
			m.paid.WithLabelValues(normalized).Add(value)
		}
	}
}

// RecordSkipped increments the skip counter for the supplied reason.
func (m *boostMetrics) RecordSkipped(reason string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(normalizeLabel(reason, "unknown")).Inc()
}

func normalizeLabel(raw, fallback string) string {
	normalized := strings.TrimSpace(raw)
	if normalized == "" {
		return fallback
	}
	return normalized
}

// Collector adapts the metrics registry to the events.Emitter interface so it
// can sit on the same fan-out as the indexer and the websocket stream.
type Collector struct{}

// Emit implements the Emitter interface.
func (Collector) Emit(evt coreevents.Event) {
	if evt == nil {
		return
	}
	payload := evt.Event()
	if payload == nil {
		return
	}
	switch payload.Type {
	case coreevents.TypeBoostExecuted:
		amount, _ := new(big.Int).SetString(payload.Attributes["amount"], 10)
		Boosts().RecordExecuted(payload.Attributes["token"], amount)
	case "boost.skipped":
		Boosts().RecordSkipped(payload.Attributes["reason"])
	}
}
