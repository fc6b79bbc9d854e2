// Copyright 2021 FerretDB Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics declares the Prometheus collectors shared across the
// pipeline's components.
package metrics

import "github.com/prometheus/client_golang/prometheus"

const (
	namespace = "flowgger"
	subsystem = "pipeline"
)

// Metrics is the full set of collectors registered for one pipeline.
type Metrics struct {
	ConnectionsAccepted *prometheus.CounterVec
	RecordsDecoded      *prometheus.CounterVec
	RecordsEncoded      *prometheus.CounterVec
	RecordsDropped      *prometheus.CounterVec
	QueueDepth          prometheus.GaugeFunc
	OutputWritten       *prometheus.CounterVec
}

// New builds a Metrics set. queueDepth is called on every /metrics scrape,
// so it must be cheap (e.g. len(channel)).
func New(queueDepth func() float64) *Metrics {
	return &Metrics{
		ConnectionsAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "connections_accepted_total",
			Help:      "Total number of input connections accepted, by input type.",
		}, []string{"input"}),

		RecordsDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "records_decoded_total",
			Help:      "Total number of records successfully decoded, by codec.",
		}, []string{"codec"}),

		RecordsEncoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "records_encoded_total",
			Help:      "Total number of records successfully encoded, by codec.",
		}, []string{"codec"}),

		RecordsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "records_dropped_total",
			Help:      "Total number of records dropped, by stage and reason.",
		}, []string{"stage", "reason"}),

		QueueDepth: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "queue_depth",
			Help:      "Current number of payloads buffered in the queue.",
		}, queueDepth),

		OutputWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "output_written_total",
			Help:      "Total number of payloads written to the output sink, by output worker.",
		}, []string{"worker"}),
	}
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.ConnectionsAccepted.Describe(ch)
	m.RecordsDecoded.Describe(ch)
	m.RecordsEncoded.Describe(ch)
	m.RecordsDropped.Describe(ch)
	m.QueueDepth.Describe(ch)
	m.OutputWritten.Describe(ch)
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.ConnectionsAccepted.Collect(ch)
	m.RecordsDecoded.Collect(ch)
	m.RecordsEncoded.Collect(ch)
	m.RecordsDropped.Collect(ch)
	m.QueueDepth.Collect(ch)
	m.OutputWritten.Collect(ch)
}

var _ prometheus.Collector = (*Metrics)(nil)
