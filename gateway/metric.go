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

package gateway

import (
	"bytes"
	"strconv"
	"sync"
	"time"

	"github.com/caiflower/regate/global/env"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const (
	routeToken   = "token"
	routeGit     = "git"
	routeMetrics = "metrics"
	routeUnknown = "unknown"
)

type gatewayMetric struct {
	requests     *prometheus.CounterVec
	costInMillis *prometheus.HistogramVec
	tokens       *prometheus.CounterVec
}

var (
	metricOnce    sync.Once
	defaultMetric *gatewayMetric
)

func getGatewayMetric() *gatewayMetric {
	metricOnce.Do(func() {
		constLabels := prometheus.Labels{"ip": env.GetLocalHostIP()}
		defaultMetric = &gatewayMetric{
			requests:     prometheus.NewCounterVec(prometheus.CounterOpts{Name: "regate_request_total", Help: "requests handled by route and status", ConstLabels: constLabels}, []string{"route", "code"}),
			costInMillis: prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: "regate_request_histogram", Help: "milliseconds spent in the handler", Buckets: []float64{5, 20, 50, 100, 500, 1000, 5000, 30000}, ConstLabels: constLabels}, []string{"route"}),
			tokens:       prometheus.NewCounterVec(prometheus.CounterOpts{Name: "regate_token_issue_total", Help: "token issue attempts by result", ConstLabels: constLabels}, []string{"result"}),
		}
		_ = prometheus.Register(defaultMetric.requests)
		_ = prometheus.Register(defaultMetric.costInMillis)
		_ = prometheus.Register(defaultMetric.tokens)
	})
	return defaultMetric
}

func (m *gatewayMetric) handled(route string, code int, ok bool, begin time.Time) {
	if m == nil {
		return
	}
	label := "-"
	if ok {
		label = strconv.Itoa(code)
	}
	m.requests.WithLabelValues(route, label).Inc()
	m.costInMillis.WithLabelValues(route).Observe(float64(time.Since(begin).Milliseconds()))
}

func (m *gatewayMetric) issued(result string) {
	if m == nil {
		return
	}
	m.tokens.WithLabelValues(result).Inc()
}

// exposition renders every metric family of g in the prometheus text format.
func exposition(g prometheus.Gatherer) ([]byte, string, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, "", err
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range families {
		if err = enc.Encode(mf); err != nil {
			return nil, "", err
		}
	}
	return buf.Bytes(), string(expfmt.FmtText), nil
}
