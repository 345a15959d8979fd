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

package feats

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFitScaler(t *testing.T) {
	rows := [][]float64{
		{1, 10, 5},
		{3, 20, 5},
		{5, 30, 5},
	}
	sc, err := FitScaler(rows)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{3, 20, 5}, sc.Mean, 1e-12)
	assert.InDelta(t, 1.632993, sc.Std[0], 1e-6)
	// constant column
	assert.Equal(t, 1.0, sc.Std[2])

	tr := sc.TransformAll(rows)
	var sum float64
	for _, r := range tr {
		sum += r[0]
	}
	assert.InDelta(t, 0.0, sum, 1e-12)
	assert.Equal(t, 0.0, tr[1][2])
	// source data untouched
	assert.Equal(t, 1.0, rows[0][0])
}

func TestFitScalerErrors(t *testing.T) {
	_, err := FitScaler(nil)
	assert.Error(t, err)
	_, err = FitScaler([][]float64{{1, 2}, {1}})
	assert.Error(t, err)
}
