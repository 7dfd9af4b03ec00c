/*
 * Copyright 2024 caiflower Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package http1

import (
	"strconv"
	"sync"
	"time"

	"github.com/caiflower/regate/global/env"
	"github.com/prometheus/client_golang/prometheus"
)

type httpMetric struct {
	connections  *prometheus.GaugeVec
	exchanges    *prometheus.CounterVec
	parseErrors  *prometheus.CounterVec
	responses    *prometheus.CounterVec
	queueDepth   *prometheus.GaugeVec
	costInMillis *prometheus.HistogramVec
}

var (
	metricOnce    sync.Once
	defaultMetric *httpMetric
)

// getHttpMetric returns the process wide collectors, registering them with the
// default prometheus registry on first use. Servers are told apart by the
// "web" label.
func getHttpMetric() *httpMetric {
	metricOnce.Do(func() {
		constLabels := prometheus.Labels{"ip": env.GetLocalHostIP()}
		buckets := []float64{5, 20, 50, 100, 200, 500, 1000, 2000, 5000, 10000}

		defaultMetric = &httpMetric{
			connections:  prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "http1_open_connections", Help: "accepted connections not yet closed", ConstLabels: constLabels}, []string{"web"}),
			exchanges:    prometheus.NewCounterVec(prometheus.CounterOpts{Name: "http1_exchange_total", Help: "requests parsed and published", ConstLabels: constLabels}, []string{"web", "method"}),
			parseErrors:  prometheus.NewCounterVec(prometheus.CounterOpts{Name: "http1_parse_error_total", Help: "requests rejected by the parser", ConstLabels: constLabels}, []string{"web", "code"}),
			responses:    prometheus.NewCounterVec(prometheus.CounterOpts{Name: "http1_response_total", Help: "responses by status code", ConstLabels: constLabels}, []string{"web", "code"}),
			queueDepth:   prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: "http1_queue_depth", Help: "exchanges waiting for the consumer", ConstLabels: constLabels}, []string{"web"}),
			costInMillis: prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "http1_exchange_histogram", Help: "milliseconds from accept to connection close", Buckets: buckets, ConstLabels: constLabels}, []string{"web"}),
		}

		for _, c := range []prometheus.Collector{
			defaultMetric.connections,
			defaultMetric.exchanges,
			defaultMetric.parseErrors,
			defaultMetric.responses,
			defaultMetric.queueDepth,
			defaultMetric.costInMillis,
		} {
			_ = prometheus.Register(c)
		}
	})
	return defaultMetric
}

func (m *httpMetric) connOpened(web string) {
	if m == nil {
		return
	}
	m.connections.WithLabelValues(web).Inc()
}

func (m *httpMetric) connClosed(web string, begin time.Time) {
	if m == nil {
		return
	}
	m.connections.WithLabelValues(web).Dec()
	m.costInMillis.WithLabelValues(web).Observe(float64(time.Since(begin).Milliseconds()))
}

func (m *httpMetric) published(web, method string) {
	if m == nil {
		return
	}
	m.exchanges.WithLabelValues(web, method).Inc()
	m.queueDepth.WithLabelValues(web).Inc()
}

func (m *httpMetric) dequeued(web string) {
	if m == nil {
		return
	}
	m.queueDepth.WithLabelValues(web).Dec()
}

func (m *httpMetric) rejected(web string, code int) {
	if m == nil {
		return
	}
	label := "-"
	if code != 0 {
		label = strconv.Itoa(code)
	}
	m.parseErrors.WithLabelValues(web, label).Inc()
}

func (m *httpMetric) responded(web string, code int, ok bool) {
	if m == nil {
		return
	}
	label := "-"
	if ok {
		label = strconv.Itoa(code)
	}
	m.responses.WithLabelValues(web, label).Inc()
}
