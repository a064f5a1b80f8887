// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package semlock

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "ftoklock_semlock"

// Outcome labels for the acquisitions counter.
const (
	outcomeLabelAcquired   = "acquired"
	outcomeLabelBypassed   = "bypassed"
	outcomeLabelWouldBlock = "would-block"
	outcomeLabelRaces      = "too-many-races"
	outcomeLabelFailed     = "failed"
)

// Collector is a prometheus.Collector that collects metrics about semaphore
// acquisition.
type Collector struct {
	acquisitions *prometheus.CounterVec
	races        prometheus.Counter
	overflows    prometheus.Counter
	longWaits    prometheus.Counter
	waitDuration prometheus.Histogram
}

// NewMetricsCollector returns a new Collector.
func NewMetricsCollector() *Collector {
	return &Collector{
		acquisitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "acquisitions_total",
				Help:      "The number of acquisitions by outcome.",
			}, []string{"outcome"},
		),
		races: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "races_total",
				Help:      "The number of restarts because the semaphore set vanished.",
			},
		),
		overflows: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "counter_overflows_total",
				Help:      "The number of acquisitions that halted the reference counter.",
			},
		),
		longWaits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "long_waits_total",
				Help:      "The number of waits that passed the long wait threshold.",
			},
		),
		waitDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "wait_duration_seconds",
				Help:      "The time spent blocked waiting for the semaphore.",
				Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 30, 96},
			},
		),
	}
}

// Describe is part of the prometheus.Collector interface.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	c.acquisitions.Describe(ch)
	c.races.Describe(ch)
	c.overflows.Describe(ch)
	c.longWaits.Describe(ch)
	c.waitDuration.Describe(ch)
}

// Collect is part of the prometheus.Collector interface.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	c.acquisitions.Collect(ch)
	c.races.Collect(ch)
	c.overflows.Collect(ch)
	c.longWaits.Collect(ch)
	c.waitDuration.Collect(ch)
}
