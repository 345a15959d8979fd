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
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.ObservePrediction("predicted")
	m.ObservePrediction("predicted")
	m.ObservePrediction("unseen")
	m.ObserveArtifactLoad("success", true)
	m.ObserveTraining(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Predictions.WithLabelValues("predicted")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Predictions.WithLabelValues("unseen")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ArtifactReady))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TrainingRuns.WithLabelValues("failure")))

	families, err := reg.Gather()
	assert.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObservePrediction("predicted")
		m.ObserveArtifactLoad("missing", false)
		m.ObserveUrgency(50)
		m.ObserveTraining(true)
		m.ObserveRequest("x", 0.1)
	})
}
