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
	"fmt"
	"math"

	"github.com/floodreport/sevclass/eval/predict"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	DefaultNumEstimators = 100
	DefaultMaxDepth      = 3
	DefaultLearningRate  = 0.1

	minLogPrior = -30.0
)

// Params are hyperparameters of the boosting
type Params struct {
	NumEstimators int     `msgpack:"numEstimators"`
	MaxDepth      int     `msgpack:"maxDepth"`
	LearningRate  float64 `msgpack:"learningRate"`
}

// Model is a multiclass gradient boosted trees classifier (softmax
// loss, one regression tree per class and boosting stage).
// It works with raw (unscaled) features.
type Model struct {
	Params Params `msgpack:"params"`

	// Init contains initial raw scores (log priors)
	Init []float64 `msgpack:"init"`

	// Stages has one tree per class in each boosting stage
	Stages [][]Tree `msgpack:"stages"`

	// NumFeatures is the input vector size the trees were fitted on
	NumFeatures int `msgpack:"numFeatures"`
}

func NewModel(params Params) *Model {
	if params.NumEstimators <= 0 {
		params.NumEstimators = DefaultNumEstimators
	}
	if params.MaxDepth <= 0 {
		params.MaxDepth = DefaultMaxDepth
	}
	if params.LearningRate <= 0 {
		params.LearningRate = DefaultLearningRate
	}
	return &Model{Params: params}
}

func (m *Model) Kind() predict.Kind {
	return predict.KindGradientBoostedTrees
}

func (m *Model) GetInfo() string {
	return fmt.Sprintf(
		"GBT model, estimators: %d, max. depth: %d, learning rate: %.3f",
		m.Params.NumEstimators, m.Params.MaxDepth, m.Params.LearningRate,
	)
}

func softmax(scores []float64) []float64 {
	ans := make([]float64, len(scores))
	mx := math.Inf(-1)
	for _, v := range scores {
		mx = max(mx, v)
	}
	var sum float64
	for i, v := range scores {
		ans[i] = math.Exp(v - mx)
		sum += ans[i]
	}
	for i := range ans {
		ans[i] /= sum
	}
	return ans
}

func (m *Model) Fit(ctx context.Context, x [][]float64, y []int) error {
	if len(x) == 0 {
		return fmt.Errorf("failed to train GBT model - no training data provided")
	}
	if len(x) != len(y) {
		return fmt.Errorf("failed to train GBT model - %d samples but %d labels", len(x), len(y))
	}
	k := predict.NumClasses
	n := len(x)
	m.NumFeatures = len(x[0])
	m.Init = make([]float64, k)
	for _, c := range y {
		m.Init[c]++
	}
	for c := range m.Init {
		if m.Init[c] == 0 {
			m.Init[c] = minLogPrior

		} else {
			m.Init[c] = math.Log(m.Init[c] / float64(n))
		}
	}
	raw := make([][]float64, n)
	for i := range raw {
		raw[i] = make([]float64, k)
		copy(raw[i], m.Init)
	}
	residuals := make([][]float64, k)
	for c := range residuals {
		residuals[c] = make([]float64, n)
	}

	m.Stages = make([][]Tree, 0, m.Params.NumEstimators)
	for stage := range m.Params.NumEstimators {
		if err := ctx.Err(); err != nil {
			return err
		}
		for i := range n {
			p := softmax(raw[i])
			for c := range k {
				var target float64
				if y[i] == c {
					target = 1
				}
				residuals[c][i] = target - p[c]
			}
		}
		trees := make([]Tree, k)
		for c := range k {
			res := residuals[c]
			trees[c] = fitTree(x, res, m.Params.MaxDepth, func(idxs []int) float64 {
				var num, denom float64
				for _, i := range idxs {
					num += res[i]
					denom += math.Abs(res[i]) * (1 - math.Abs(res[i]))
				}
				if math.Abs(denom) < 1e-150 {
					return 0
				}
				return num / denom * float64(k-1) / float64(k)
			})
			for i := range n {
				raw[i][c] += m.Params.LearningRate * trees[c].Eval(x[i])
			}
		}
		m.Stages = append(m.Stages, trees)
		if stage%25 == 0 {
			log.Debug().Int("stage", stage).Msg("GBT boosting progress")
		}
	}
	return nil
}

func (m *Model) Predict(x []float64) predict.Prediction {
	raw := make([]float64, len(m.Init))
	copy(raw, m.Init)
	for _, trees := range m.Stages {
		for c := range trees {
			raw[c] += m.Params.LearningRate * trees[c].Eval(x)
		}
	}
	return predict.FromVotes(softmax(raw))
}

func (m *Model) Encode() ([]byte, error) {
	ans, err := msgpack.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode GBT model: %w", err)
	}
	return ans, nil
}

func Decode(data []byte) (*Model, error) {
	var m Model
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode GBT model: %w", err)
	}
	if len(m.Init) != predict.NumClasses {
		return nil, fmt.Errorf("failed to decode GBT model: invalid number of classes %d", len(m.Init))
	}
	for _, trees := range m.Stages {
		if len(trees) != predict.NumClasses {
			return nil, fmt.Errorf("failed to decode GBT model: invalid stage size %d", len(trees))
		}
		for _, t := range trees {
			if err := t.validate(m.NumFeatures); err != nil {
				return nil, fmt.Errorf("failed to decode GBT model: %w", err)
			}
		}
	}
	return &m, nil
}
