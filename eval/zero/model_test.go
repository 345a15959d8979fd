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

package zero

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMajorityModel(t *testing.T) {
	m := NewModel()
	require.NoError(t, m.Fit(context.Background(), nil, []int{0, 2, 2, 1, 2}))
	p := m.Predict([]float64{1, 2, 3})
	assert.Equal(t, 2, p.PredictedClass)
	assert.Len(t, p.Votes, 4)
	assert.InDelta(t, 0.6, p.Votes[2], 1e-12)
	assert.Equal(t, 0.0, p.Votes[3])
}

func TestMajorityModelTieFavorsLowerClass(t *testing.T) {
	m := NewModel()
	require.NoError(t, m.Fit(context.Background(), nil, []int{3, 1, 3, 1}))
	assert.Equal(t, 1, m.Predict(nil).PredictedClass)
}

func TestMajorityModelNoData(t *testing.T) {
	assert.Error(t, NewModel().Fit(context.Background(), nil, nil))
}
