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

package artifact

import (
	"errors"
	"fmt"
	"time"

	"github.com/floodreport/sevclass/eval"
	"github.com/floodreport/sevclass/eval/predict"
	"github.com/floodreport/sevclass/feats"
	"github.com/floodreport/sevclass/report"
)

var ErrArtifactMissing = errors.New("artifact missing")

// ArtifactCorruptError is returned for bundles which exist but cannot
// be used (damaged data, unsupported schema, mismatching columns).
type ArtifactCorruptError struct {
	Path   string
	Reason string
	Err    error
}

func (err *ArtifactCorruptError) Error() string {
	if err.Err != nil {
		return fmt.Sprintf("artifact %s is corrupt: %s: %s", err.Path, err.Reason, err.Err)
	}
	return fmt.Sprintf("artifact %s is corrupt: %s", err.Path, err.Reason)
}

func (err *ArtifactCorruptError) Unwrap() error {
	return err.Err
}

// Artifact is a trained classifier together with all the fitted
// preprocessing needed to use it. Once created, it is never modified.
type Artifact struct {
	CreatedAt     time.Time
	CandidateName string
	Kind          predict.Kind
	Info          string

	Model eval.Classifier

	// ModelData is the encoded form of Model
	ModelData []byte

	Encoding feats.EncodingTable
	Scaler   feats.Scaler
	Columns  []string

	NumSamples int
	Scores     eval.Scores
	CVMean     float64
	CVStd      float64
	Importance []eval.FeatureImportance
}

// New creates an artifact from the winner of a bench run
func New(outcome *eval.Outcome, table feats.EncodingTable, createdAt time.Time) (*Artifact, error) {
	if outcome == nil || outcome.Winner == nil || outcome.Winner.Classifier == nil {
		return nil, fmt.Errorf("failed to create artifact: %w", eval.ErrNoViableCandidate)
	}
	winner := outcome.Winner
	data, err := winner.Classifier.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to create artifact: %w", err)
	}
	return &Artifact{
		CreatedAt:     createdAt.UTC(),
		CandidateName: winner.Name,
		Kind:          winner.Kind,
		Info:          winner.Classifier.GetInfo(),
		Model:         winner.Classifier,
		ModelData:     data,
		Encoding:      table,
		Scaler:        outcome.Scaler,
		Columns:       feats.Columns(),
		NumSamples:    len(outcome.TrainIDs) + len(outcome.TestIDs),
		Scores:        winner.Scores,
		CVMean:        winner.CVMean,
		CVStd:         winner.CVStd,
		Importance:    outcome.Importance,
	}, nil
}

// Vectorize builds model input for the record (scaled if the model needs it)
func (a *Artifact) Vectorize(rec report.Record) ([]float64, error) {
	vec, err := feats.Build(rec, a.Encoding)
	if err != nil {
		return nil, err
	}
	if a.Kind.RequiresScaledInput() {
		return a.Scaler.Transform(vec.Slice()), nil
	}
	return vec.Slice(), nil
}

// Predict classifies the record. For neighborhoods unknown
// to the encoding table, feats.UnseenCategoryError is returned.
func (a *Artifact) Predict(rec report.Record) (predict.Prediction, error) {
	x, err := a.Vectorize(rec)
	if err != nil {
		return predict.Prediction{}, err
	}
	return a.Model.Predict(x), nil
}

// Summary is a JSON-friendly description of an artifact
type Summary struct {
	CreatedAt     time.Time                `json:"createdAt"`
	CandidateName string                   `json:"candidateName"`
	Kind          predict.Kind             `json:"kind"`
	Info          string                   `json:"info"`
	Columns       []string                 `json:"columns"`
	Neighborhoods []string                 `json:"neighborhoods"`
	NumSamples    int                      `json:"numSamples"`
	Scores        eval.Scores              `json:"scores"`
	CVMean        float64                  `json:"cvMean"`
	CVStd         float64                  `json:"cvStd"`
	Importance    []eval.FeatureImportance `json:"importance"`
}

func (a *Artifact) Summary() Summary {
	return Summary{
		CreatedAt:     a.CreatedAt,
		CandidateName: a.CandidateName,
		Kind:          a.Kind,
		Info:          a.Info,
		Columns:       a.Columns,
		Neighborhoods: a.Encoding.Names(),
		NumSamples:    a.NumSamples,
		Scores:        a.Scores,
		CVMean:        a.CVMean,
		CVStd:         a.CVStd,
		Importance:    a.Importance,
	}
}
