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

package rf

import (
	"context"
	"testing"

	"github.com/floodreport/sevclass/eval/predict"
	randomforest "github.com/malaschitz/randomForest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func separableData() ([][]float64, []int) {
	var x [][]float64
	var y []int
	for c := range predict.NumClasses {
		for i := range 15 {
			x = append(x, []float64{float64(c) * 10, float64(i % 3), float64(c)})
			y = append(y, c)
		}
	}
	return x, y
}

func TestFitAndPredict(t *testing.T) {
	x, y := separableData()
	m := NewModel(30, DefaultMaxDepth)
	require.NoError(t, m.Fit(context.Background(), x, y))
	assert.Equal(t, predict.KindEnsembleForest, m.Kind())
	var ok int
	for i, row := range x {
		p := m.Predict(row)
		assert.Len(t, p.Votes, predict.NumClasses)
		if p.PredictedClass == y[i] {
			ok++
		}
	}
	assert.Greater(t, float64(ok)/float64(len(x)), 0.9)
}

func TestEncodeDecode(t *testing.T) {
	x, y := separableData()
	m := NewModel(10, 3)
	require.NoError(t, m.Fit(context.Background(), x, y))
	data, err := m.Encode()
	require.NoError(t, err)
	m2, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, 10, m2.NumTrees)
	assert.Equal(t, 3, m2.MaxDepth)
	for _, row := range x {
		assert.Equal(t, m.Predict(row), m2.Predict(row))
	}
}

func TestFitInvalid(t *testing.T) {
	assert.Error(t, NewModel(10, DefaultMaxDepth).Fit(context.Background(), nil, nil))
	assert.Error(t, NewModel(0, DefaultMaxDepth).Fit(context.Background(), [][]float64{{1}}, []int{0}))
	assert.Error(t, NewModel(10, 0).Fit(context.Background(), [][]float64{{1}}, []int{0}))
	_, err := Decode([]byte("{"))
	assert.Error(t, err)
}

func TestFitRespectsMaxDepth(t *testing.T) {
	x, y := separableData()
	m := NewModel(5, 2)
	require.NoError(t, m.Fit(context.Background(), x, y))
	assert.Equal(t, 2, m.Forest.MaxDepth)
	for _, tree := range m.Forest.Trees {
		assert.LessOrEqual(t, branchDepth(&tree.Root), 2)
	}
}

func branchDepth(b *randomforest.Branch) int {
	if b.IsLeaf {
		return b.Depth
	}
	return max(branchDepth(b.Branch0), branchDepth(b.Branch1))
}
