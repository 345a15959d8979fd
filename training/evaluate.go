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

package training

import (
	"errors"
	"fmt"
	"time"

	"github.com/floodreport/sevclass/artifact"
	"github.com/floodreport/sevclass/eval"
	"github.com/floodreport/sevclass/feats"
	"github.com/floodreport/sevclass/report"
)

// EvaluationReport describes performance of a stored artifact
// on a labeled dataset
type EvaluationReport struct {
	NumReports   int                  `json:"numReports"`
	NumEvaluated int                  `json:"numEvaluated"`
	NumUnseen    int                  `json:"numUnseen"`
	Scores       eval.Scores          `json:"scores"`
	Confusion    eval.ConfusionMatrix `json:"confusion"`
	Curves       []eval.ClassCurve    `json:"curves"`
}

// Evaluate scores an artifact against labeled reports without
// retraining. Reports from neighborhoods unknown to the artifact
// are counted and left out.
func Evaluate(art *artifact.Artifact, recs []report.Record, loc *time.Location) (*EvaluationReport, error) {
	if loc == nil {
		loc = time.UTC
	}
	ans := &EvaluationReport{NumReports: len(recs)}
	truth := make([]int, 0, len(recs))
	predicted := make([]int, 0, len(recs))
	probs := make([][]float64, 0, len(recs))
	for i, rec := range recs {
		if err := rec.Validate(true); err != nil {
			if dErr, ok := err.(*report.DataError); ok {
				dErr.Row = i + 1
			}
			return nil, err
		}
		rec.Timestamp = rec.Timestamp.In(loc)
		pred, err := art.Predict(rec)
		var uErr *feats.UnseenCategoryError
		if errors.As(err, &uErr) {
			ans.NumUnseen++
			continue

		} else if err != nil {
			return nil, fmt.Errorf("failed to evaluate row %d: %w", i+1, err)
		}
		truth = append(truth, rec.Severity.Index())
		predicted = append(predicted, pred.Severity().Index())
		probs = append(probs, pred.Votes)
	}
	if len(truth) == 0 {
		return nil, fmt.Errorf("no report could be evaluated: %w", eval.ErrInsufficientData)
	}
	ans.NumEvaluated = len(truth)
	ans.Scores = eval.Score(truth, predicted)
	ans.Confusion = eval.NewConfusionMatrix(truth, predicted)
	ans.Curves = eval.ClassCurves(truth, probs)
	return ans, nil
}
