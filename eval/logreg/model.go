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

package logreg

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/floodreport/sevclass/eval"
	"github.com/floodreport/sevclass/eval/predict"
	"github.com/patrikeh/go-deep"
	"github.com/patrikeh/go-deep/training"
	"github.com/rs/zerolog/log"
)

const (
	DefaultEpochs       = 300
	DefaultLearningRate = 0.01
)

type Params struct {
	Epochs       int     `json:"epochs"`
	LearningRate float64 `json:"learningRate"`
}

type jsonizedModel struct {
	NeuralNet *deep.Dump `json:"neuralNet"`
	Params    Params     `json:"params"`
}

// Model is a multinomial logistic regression implemented as a network
// without hidden layers (softmax output). It expects standardized features.
type Model struct {
	NeuralNet *deep.Neural
	Params    Params

	// the network keeps activations of the last forward pass
	// so predictions must be serialized
	mu sync.Mutex
}

func NewModel(params Params) *Model {
	if params.Epochs <= 0 {
		params.Epochs = DefaultEpochs
	}
	if params.LearningRate <= 0 {
		params.LearningRate = DefaultLearningRate
	}
	return &Model{Params: params}
}

func (m *Model) Kind() predict.Kind {
	return predict.KindLinearLogistic
}

func (m *Model) GetInfo() string {
	return fmt.Sprintf("logistic regression model, epochs: %d, learning rate: %.4f", m.Params.Epochs, m.Params.LearningRate)
}

func (m *Model) Fit(ctx context.Context, x [][]float64, y []int) error {
	if len(x) == 0 {
		return fmt.Errorf("failed to train logistic model - no training data provided")
	}
	if len(x) != len(y) {
		return fmt.Errorf("failed to train logistic model - %d samples but %d labels", len(x), len(y))
	}
	classes := make(map[int]bool)
	examples := make(training.Examples, len(x))
	for i, row := range x {
		response := make([]float64, predict.NumClasses)
		response[y[i]] = 1
		classes[y[i]] = true
		examples[i] = training.Example{
			Input:    row,
			Response: response,
		}
	}
	if len(classes) < 2 {
		return fmt.Errorf("failed to train logistic model - at least two classes required: %w", eval.ErrInsufficientData)
	}
	net := deep.NewNeural(&deep.Config{
		Inputs:     len(x[0]),
		Layout:     []int{predict.NumClasses},
		Activation: deep.ActivationSigmoid,
		Mode:       deep.ModeMultiClass,
		Loss:       deep.LossCrossEntropy,
		Weight:     deep.NewUniform(0.5, 0.0),
		Bias:       true,
	})
	optimizer := training.NewAdam(m.Params.LearningRate, 0.9, 0.999, 1e-8)
	trainer := training.NewTrainer(optimizer, 0)
	if err := ctx.Err(); err != nil {
		return err
	}
	trainer.Train(net, examples, nil, m.Params.Epochs)
	if err := ctx.Err(); err != nil {
		return err
	}
	log.Debug().
		Int("dataSize", len(x)).
		Int("epochs", m.Params.Epochs).
		Msg("trained logistic model")
	m.mu.Lock()
	m.NeuralNet = net
	m.mu.Unlock()
	return nil
}

func (m *Model) Predict(x []float64) predict.Prediction {
	m.mu.Lock()
	out := m.NeuralNet.Predict(x)
	m.mu.Unlock()
	return predict.FromVotes(out)
}

func (m *Model) Encode() ([]byte, error) {
	m.mu.Lock()
	dmp := m.NeuralNet.Dump()
	m.mu.Unlock()
	ans, err := json.Marshal(jsonizedModel{NeuralNet: dmp, Params: m.Params})
	if err != nil {
		return nil, fmt.Errorf("failed to encode logistic model: %w", err)
	}
	return ans, nil
}

func Decode(data []byte) (*Model, error) {
	var tmp jsonizedModel
	if err := json.Unmarshal(data, &tmp); err != nil {
		return nil, fmt.Errorf("failed to decode logistic model: %w", err)
	}
	if tmp.NeuralNet == nil || tmp.NeuralNet.Config == nil {
		return nil, fmt.Errorf("failed to decode logistic model: missing network")
	}
	return &Model{
		NeuralNet: deep.FromDump(tmp.NeuralNet),
		Params:    tmp.Params,
	}, nil
}
