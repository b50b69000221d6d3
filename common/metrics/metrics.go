/*
Copyright The Horovod Authors. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

// Package metrics defines the instrumentation interfaces consumed by the
// runtime. Concrete providers live in the prometheus and disabled
// subpackages.
package metrics

// A Provider creates metric instances.
type Provider interface {
	NewCounter(CounterOpts) Counter
	NewGauge(GaugeOpts) Gauge
}

// A Counter is a monotonically increasing value.
type Counter interface {
	With(labelValues ...string) Counter
	Add(delta float64)
}

// CounterOpts describe a counter to a provider.
type CounterOpts struct {
	Namespace  string
	Subsystem  string
	Name       string
	Help       string
	LabelNames []string
}

// A Gauge is a value that may go up or down.
type Gauge interface {
	With(labelValues ...string) Gauge
	Add(delta float64)
	Set(value float64)
}

// GaugeOpts describe a gauge to a provider.
type GaugeOpts struct {
	Namespace  string
	Subsystem  string
	Name       string
	Help       string
	LabelNames []string
}
