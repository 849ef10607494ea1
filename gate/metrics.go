// Copyright 2026 RateGate
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

package gate

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics
var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rategate_requests_total",
			Help: "Total number of HTTP requests processed by the gate",
		},
		[]string{"endpoint", "status"},
	)
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rategate_decisions_total",
			Help: "Total number of admission decisions by outcome",
		},
		[]string{"allowed"},
	)
	decisionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "rategate_decision_duration_milliseconds",
			Help:    "End-to-end decision duration in milliseconds",
			Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200, 500},
		},
	)
	policyEvaluationsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rategate_policy_evaluations_total",
			Help: "Total number of effective limits evaluated",
		},
	)
	storeConflictsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rategate_store_conflicts_total",
			Help: "Total number of optimistic transaction conflicts in the counting store",
		},
	)
)

func init() {
	prometheus.MustRegister(requestsTotal)
	prometheus.MustRegister(decisionsTotal)
	prometheus.MustRegister(decisionDuration)
	prometheus.MustRegister(policyEvaluationsTotal)
	prometheus.MustRegister(storeConflictsTotal)
}
