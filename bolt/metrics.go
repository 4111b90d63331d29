// The MIT License (MIT)
//
// Copyright (c) 2013-2017 Oryx(ossrs)
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package bolt

import "github.com/prometheus/client_golang/prometheus"

// Metrics is an optional, injectable recorder of message traffic and
// request latency. A nil *Metrics records nothing, so Connect imposes no
// Prometheus registry on a caller who doesn't want one.
type Metrics struct {
	sent     *prometheus.CounterVec
	received *prometheus.CounterVec
	latency  prometheus.Histogram
}

// NewMetrics builds a Metrics and, if reg is non-nil, registers its
// collectors with it.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bolt_messages_sent_total",
			Help: "Client-originated Bolt messages sent, by message name.",
		}, []string{"message"}),
		received: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bolt_messages_received_total",
			Help: "Server-originated Bolt messages received, by message name.",
		}, []string{"message"}),
		latency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "bolt_request_latency_seconds",
			Help:    "Time between a request and its terminating response.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(m.sent, m.received, m.latency)
	}
	return m
}

func (m *Metrics) observeSent(name string) {
	if m == nil {
		return
	}
	m.sent.WithLabelValues(name).Inc()
}

func (m *Metrics) observeReceived(name string) {
	if m == nil {
		return
	}
	m.received.WithLabelValues(name).Inc()
}

func (m *Metrics) observeLatency(seconds float64) {
	if m == nil {
		return
	}
	m.latency.Observe(seconds)
}
