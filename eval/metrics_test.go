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

package eval

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreWeighted(t *testing.T) {
	s := Score([]int{0, 0, 1, 1}, []int{0, 1, 1, 1})
	assert.InDelta(t, 0.75, s.Accuracy, 1e-9)
	assert.InDelta(t, 0.833333, s.Precision, 1e-6)
	assert.InDelta(t, 0.75, s.Recall, 1e-9)
	assert.InDelta(t, 0.733333, s.F1, 1e-6)
	assert.Len(t, s.PerClass, 2)
	assert.Equal(t, 2, s.PerClass[0].Support)
}

func TestScoreZeroDivision(t *testing.T) {
	s := Score([]int{0, 0}, []int{1, 1})
	assert.Equal(t, 0.0, s.Accuracy)
	assert.Equal(t, 0.0, s.Precision)
	assert.Equal(t, 0.0, s.F1)
}

func TestConfusionMatrix(t *testing.T) {
	cm := NewConfusionMatrix([]int{0, 3, 3, 2}, []int{0, 3, 2, 2})
	assert.Equal(t, 1, cm[0][0])
	assert.Equal(t, 1, cm[3][3])
	assert.Equal(t, 1, cm[3][2])
	assert.Equal(t, 1, cm[2][2])
	assert.Contains(t, cm.String(), "true\\pred")
}

func TestMeanAndStd(t *testing.T) {
	m, s := MeanAndStd([]float64{0.5, 0.7, 0.9})
	assert.InDelta(t, 0.7, m, 1e-9)
	assert.InDelta(t, 0.163299, s, 1e-6)
	m, s = MeanAndStd(nil)
	assert.Equal(t, 0.0, m)
	assert.Equal(t, 0.0, s)
}
