// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package semlock

import (
	"github.com/juju/testing"
	jc "github.com/juju/testing/checkers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	gc "gopkg.in/check.v1"
)

type metricsSuite struct {
	testing.IsolationSuite
}

var _ = gc.Suite(&metricsSuite{})

func (s *metricsSuite) TestRegister(c *gc.C) {
	collector := NewMetricsCollector()

	registry := prometheus.NewPedanticRegistry()
	err := registry.Register(collector)
	c.Assert(err, jc.ErrorIsNil)

	collector.acquisitions.WithLabelValues(outcomeLabelAcquired).Inc()
	collector.acquisitions.WithLabelValues(outcomeLabelBypassed).Inc()

	// Two outcomes, three counters and the histogram.
	c.Check(testutil.CollectAndCount(collector), gc.Equals, 6)
	c.Check(testutil.CollectAndCount(collector, "ftoklock_semlock_acquisitions_total"), gc.Equals, 2)
}
