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

package models

import (
	"context"
	"errors"
	"testing"

	"github.com/floodreport/sevclass/cnf"
	"github.com/floodreport/sevclass/eval/predict"
	"github.com/floodreport/sevclass/eval/rf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPanel(t *testing.T) {
	conf := cnf.DefaultConf()
	panel := DefaultPanel(conf.Training)
	require.Len(t, panel, 4)
	for i, k := range predict.CandidateKinds {
		assert.Equal(t, k, panel[i].Kind)
		clf := panel[i].New()
		assert.Equal(t, k, clf.Kind())
	}
	assert.False(t, panel[0].RequiresScaledInput())
	assert.False(t, panel[1].RequiresScaledInput())
	assert.True(t, panel[2].RequiresScaledInput())
	assert.True(t, panel[3].RequiresScaledInput())

	assert.Equal(t, 5, panel[0].Params["maxDepth"])
	forest, ok := panel[0].New().(*rf.Model)
	require.True(t, ok)
	assert.Equal(t, 5, forest.MaxDepth)
}

func TestDecodeRoundTrip(t *testing.T) {
	conf := cnf.DefaultConf()
	conf.Training.GBTEstimators = 5
	panel := DefaultPanel(conf.Training)
	x := [][]float64{{0, 1}, {0.2, 1}, {5, 0}, {5.1, 0.2}, {10, 3}, {10.3, 3}, {15, 2}, {15.2, 2.1}}
	y := []int{0, 0, 1, 1, 2, 2, 3, 3}
	clf := panel[1].New()
	require.NoError(t, clf.Fit(context.Background(), x, y))
	data, err := clf.Encode()
	require.NoError(t, err)
	clf2, err := Decode(predict.KindGradientBoostedTrees, data)
	require.NoError(t, err)
	for _, row := range x {
		assert.Equal(t, clf.Predict(row), clf2.Predict(row))
	}
}

func TestDecodeUnknownKind(t *testing.T) {
	_, err := Decode(predict.KindMajorityBaseline, nil)
	assert.True(t, errors.Is(err, ErrNoSuchModel))
}
