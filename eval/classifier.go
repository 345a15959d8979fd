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
	"context"

	"github.com/floodreport/sevclass/eval/predict"
	"github.com/floodreport/sevclass/feats"
	"github.com/floodreport/sevclass/report"
)

// Classifier is a generalization of a severity classification model.
// Labels are 0-based class indices (see report.Severity.Index).
type Classifier interface {

	// Fit trains the model. In case the data are not sufficient
	// for the model (e.g. a single class only), the method should
	// return an error wrapping ErrInsufficientData.
	Fit(ctx context.Context, x [][]float64, y []int) error

	// Predict must be safe for concurrent use once the model is fitted.
	Predict(x []float64) predict.Prediction

	Kind() predict.Kind

	GetInfo() string

	// Encode serializes fitted model parameters. The format is
	// private to the model package, see models.Decode.
	Encode() ([]byte, error)
}

// Candidate is a classifier type together with its hyperparameters
// as one item of the evaluated panel.
type Candidate struct {
	Name   string
	Kind   predict.Kind
	Params map[string]any

	// New creates a fresh untrained classifier
	New func() Classifier
}

func (c Candidate) RequiresScaledInput() bool {
	return c.Kind.RequiresScaledInput()
}

// Sample is a featurized labeled report
type Sample struct {
	ID       string
	Features feats.Vector
	Label    report.Severity
}
