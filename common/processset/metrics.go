/*
Copyright The Horovod Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package processset

import "github.com/maxhgerlach/horovod/common/metrics"

var (
	liveSetsOpts = metrics.GaugeOpts{
		Namespace: "horovod",
		Subsystem: "process_sets",
		Name:      "live",
		Help:      "The number of currently registered process sets.",
	}

	registeredTotalOpts = metrics.CounterOpts{
		Namespace: "horovod",
		Subsystem: "process_sets",
		Name:      "registered_total",
		Help:      "The number of process set registrations.",
	}

	removedTotalOpts = metrics.CounterOpts{
		Namespace: "horovod",
		Subsystem: "process_sets",
		Name:      "removed_total",
		Help:      "The number of process sets torn down by the coordinated removal protocol.",
	}
)

// Metrics captures table activity.
type Metrics struct {
	LiveSets        metrics.Gauge
	RegisteredTotal metrics.Counter
	RemovedTotal    metrics.Counter
}

func NewMetrics(p metrics.Provider) *Metrics {
	return &Metrics{
		LiveSets:        p.NewGauge(liveSetsOpts),
		RegisteredTotal: p.NewCounter(registeredTotalOpts),
		RemovedTotal:    p.NewCounter(removedTotalOpts),
	}
}
