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
	"encoding/json"
	"fmt"

	"github.com/floodreport/sevclass/eval/predict"
	randomforest "github.com/malaschitz/randomForest"
	"github.com/rs/zerolog/log"
)

const (
	DefaultNumTrees = 100
	DefaultMaxDepth = 5
)

type jsonizedModel struct {
	Forest   json.RawMessage `json:"forest"`
	NumTrees int             `json:"numTrees"`
	MaxDepth int             `json:"maxDepth"`
}

// Model wraps a Random Forest classifier (ensemble-forest candidate).
// It works with raw (unscaled) features.
type Model struct {
	Forest   *randomforest.Forest
	NumTrees int

	// MaxDepth limits depth of each tree
	MaxDepth int
}

func NewModel(numTrees, maxDepth int) *Model {
	return &Model{
		Forest:   &randomforest.Forest{},
		NumTrees: numTrees,
		MaxDepth: maxDepth,
	}
}

func (m *Model) Kind() predict.Kind {
	return predict.KindEnsembleForest
}

func (m *Model) GetInfo() string {
	return fmt.Sprintf("RF model, num. trees: %d, max. depth: %d", m.NumTrees, m.MaxDepth)
}

func (m *Model) Fit(ctx context.Context, x [][]float64, y []int) error {
	if len(x) == 0 {
		return fmt.Errorf("failed to train RF model - no training data provided")
	}
	if len(x) != len(y) {
		return fmt.Errorf("failed to train RF model - %d samples but %d labels", len(x), len(y))
	}
	if m.NumTrees <= 0 {
		return fmt.Errorf("failed to train RF model - invalid value of NumTrees")
	}
	if m.MaxDepth <= 0 {
		return fmt.Errorf("failed to train RF model - invalid value of MaxDepth")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	log.Debug().
		Int("dataSize", len(x)).
		Int("numTrees", m.NumTrees).
		Int("maxDepth", m.MaxDepth).
		Msg("training random forest")
	m.Forest = &randomforest.Forest{
		Data: randomforest.ForestData{
			X:     x,
			Class: y,
		},
		MaxDepth: m.MaxDepth,
	}
	m.Forest.Train(m.NumTrees)
	return nil
}

// Predict returns normalized tree votes. Classes not seen
// during training get zero votes.
func (m *Model) Predict(x []float64) predict.Prediction {
	return predict.FromVotes(m.Forest.Vote(x))
}

func (m *Model) Encode() ([]byte, error) {
	forest, err := json.Marshal(m.Forest)
	if err != nil {
		return nil, fmt.Errorf("failed to encode RF model: %w", err)
	}
	ans, err := json.Marshal(jsonizedModel{Forest: forest, NumTrees: m.NumTrees, MaxDepth: m.MaxDepth})
	if err != nil {
		return nil, fmt.Errorf("failed to encode RF model: %w", err)
	}
	return ans, nil
}

func Decode(data []byte) (*Model, error) {
	var tmp jsonizedModel
	if err := json.Unmarshal(data, &tmp); err != nil {
		return nil, fmt.Errorf("failed to decode RF model: %w", err)
	}
	var forest randomforest.Forest
	if err := json.Unmarshal(tmp.Forest, &forest); err != nil {
		return nil, fmt.Errorf("failed to decode RF model: %w", err)
	}
	if len(forest.Trees) == 0 {
		return nil, fmt.Errorf("failed to decode RF model: empty forest")
	}
	numTrees := tmp.NumTrees
	if numTrees == 0 {
		numTrees = forest.NTrees
	}
	maxDepth := tmp.MaxDepth
	if maxDepth == 0 {
		maxDepth = forest.MaxDepth
	}
	return &Model{Forest: &forest, NumTrees: numTrees, MaxDepth: maxDepth}, nil
}
