// Copyright 2025 Tomas Machalek <tomas.machalek@gmail.com>
// Copyright 2025 Department of Linguistics,
// Faculty of Arts, Charles University
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "floodsev"

// Metrics holds the Prometheus counters, histograms, and gauges
// of the severity service. All the methods are safe to call
// on a nil *Metrics (they do nothing then).
type Metrics struct {
	Predictions   *prometheus.CounterVec // labels: outcome={predicted,unavailable,unseen,invalid}
	ArtifactLoads *prometheus.CounterVec // labels: result={success,missing,corrupt,error}
	ArtifactReady prometheus.Gauge
	UrgencyScore  prometheus.Histogram
	TrainingRuns  *prometheus.CounterVec // labels: result={success,failure}

	RequestDuration *prometheus.HistogramVec // labels: handler
}

// NewMetrics creates all the metrics and registers them with reg.
// In case reg is nil, metrics are not registered anywhere.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "predictions_total",
			Help:      "Severity prediction requests by outcome.",
		}, []string{"outcome"}),
		ArtifactLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "artifact_loads_total",
			Help:      "Artifact load attempts by result.",
		}, []string{"result"}),
		ArtifactReady: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "artifact_ready",
			Help:      "1 when a trained artifact is loaded, 0 otherwise.",
		}),
		UrgencyScore: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "urgency_score",
			Help:      "Distribution of calculated urgency scores.",
			Buckets:   []float64{10, 25, 40, 50, 60, 75, 90, 100},
		}),
		TrainingRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "training_runs_total",
			Help:      "Training runs by result.",
		}, []string{"result"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5},
		}, []string{"handler"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.Predictions,
			m.ArtifactLoads,
			m.ArtifactReady,
			m.UrgencyScore,
			m.TrainingRuns,
			m.RequestDuration,
		)
	}
	return m
}

func (m *Metrics) ObservePrediction(outcome string) {
	if m == nil {
		return
	}
	m.Predictions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveArtifactLoad(result string, ready bool) {
	if m == nil {
		return
	}
	m.ArtifactLoads.WithLabelValues(result).Inc()
	if ready {
		m.ArtifactReady.Set(1)

	} else {
		m.ArtifactReady.Set(0)
	}
}

func (m *Metrics) ObserveUrgency(score float64) {
	if m == nil {
		return
	}
	m.UrgencyScore.Observe(score)
}

func (m *Metrics) ObserveTraining(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.TrainingRuns.WithLabelValues("success").Inc()

	} else {
		m.TrainingRuns.WithLabelValues("failure").Inc()
	}
}

func (m *Metrics) ObserveRequest(handler string, secs float64) {
	if m == nil {
		return
	}
	m.RequestDuration.WithLabelValues(handler).Observe(secs)
}
