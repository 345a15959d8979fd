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

package gbt

import (
	"context"
	"testing"

	"github.com/floodreport/sevclass/eval/predict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func separableData() ([][]float64, []int) {
	var x [][]float64
	var y []int
	for c := range predict.NumClasses {
		for i := range 12 {
			x = append(x, []float64{float64(c)*5 + float64(i%4)*0.1, float64(i)})
			y = append(y, c)
		}
	}
	return x, y
}

func TestTreeSplitsOnInformativeFeature(t *testing.T) {
	x := [][]float64{{0, 5}, {1, 3}, {10, 4}, {11, 3}}
	target := []float64{1, 1, -1, -1}
	tree := fitTree(x, target, 1, func(idxs []int) float64 {
		var s float64
		for _, i := range idxs {
			s += target[i]
		}
		return s / float64(len(idxs))
	})
	require.Len(t, tree.Nodes, 3)
	assert.Equal(t, 0, tree.Nodes[0].Feature)
	assert.Equal(t, 5.5, tree.Nodes[0].Threshold)
	assert.Equal(t, 1.0, tree.Eval([]float64{2, 0}))
	assert.Equal(t, -1.0, tree.Eval([]float64{9, 0}))
}

func TestTreeConstantTarget(t *testing.T) {
	x := [][]float64{{0}, {1}, {2}}
	tree := fitTree(x, []float64{3, 3, 3}, 3, func(idxs []int) float64 { return 3 })
	assert.Len(t, tree.Nodes, 1)
	assert.True(t, tree.Nodes[0].IsLeaf())
}

func TestFitAndPredict(t *testing.T) {
	x, y := separableData()
	m := NewModel(Params{NumEstimators: 30})
	require.NoError(t, m.Fit(context.Background(), x, y))
	assert.Equal(t, DefaultMaxDepth, m.Params.MaxDepth)
	assert.Len(t, m.Stages, 30)
	for i, row := range x {
		p := m.Predict(row)
		assert.Equal(t, y[i], p.PredictedClass)
		var sum float64
		for _, v := range p.Votes {
			sum += v
		}
		assert.InDelta(t, 1.0, sum, 1e-9)
	}
}

func TestFitIsDeterministic(t *testing.T) {
	x, y := separableData()
	m1 := NewModel(Params{NumEstimators: 5})
	m2 := NewModel(Params{NumEstimators: 5})
	require.NoError(t, m1.Fit(context.Background(), x, y))
	require.NoError(t, m2.Fit(context.Background(), x, y))
	assert.Equal(t, m1, m2)
}

func TestEncodeDecode(t *testing.T) {
	x, y := separableData()
	m := NewModel(Params{NumEstimators: 10, MaxDepth: 2, LearningRate: 0.2})
	require.NoError(t, m.Fit(context.Background(), x, y))
	data, err := m.Encode()
	require.NoError(t, err)
	m2, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, m.Params, m2.Params)
	assert.Equal(t, m.Init, m2.Init)
	assert.Equal(t, m.Stages, m2.Stages)
}

func TestMissingClassGetsLowProbability(t *testing.T) {
	x := [][]float64{{0}, {0.5}, {10}, {10.5}}
	y := []int{0, 0, 1, 1}
	m := NewModel(Params{NumEstimators: 10})
	require.NoError(t, m.Fit(context.Background(), x, y))
	p := m.Predict([]float64{10.2})
	assert.Equal(t, 1, p.PredictedClass)
	assert.Less(t, p.Votes[3], 1e-6)
}

func TestDecodeRejectsInvalidTrees(t *testing.T) {
	x, y := separableData()
	fitted := func() *Model {
		m := NewModel(Params{NumEstimators: 2, MaxDepth: 2})
		require.NoError(t, m.Fit(context.Background(), x, y))
		require.Equal(t, len(x[0]), m.NumFeatures)
		require.False(t, m.Stages[0][0].Nodes[0].IsLeaf())
		return m
	}
	tamper := []func(nd *Node, size int){
		func(nd *Node, size int) { nd.Left = 0 },
		func(nd *Node, size int) { nd.Right = size },
		func(nd *Node, size int) { nd.Left = -2 },
		func(nd *Node, size int) { nd.Feature = 99 },
	}
	for i, fn := range tamper {
		m := fitted()
		tree := m.Stages[0][0]
		fn(&tree.Nodes[0], len(tree.Nodes))
		data, err := m.Encode()
		require.NoError(t, err)
		_, err = Decode(data)
		assert.Error(t, err, "case %d", i)
	}

	m := fitted()
	data, err := m.Encode()
	require.NoError(t, err)
	m2, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, m.NumFeatures, m2.NumFeatures)
}
