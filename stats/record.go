// Copyright 2024 Tomas Machalek <tomas.machalek@gmail.com>
// Copyright 2024 Institute of the Czech National Corpus,
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

package stats

import (
	"time"

	"github.com/floodreport/sevclass/eval"
)

// RunRecord is a single training run as stored in the ledger
type RunRecord struct {
	ID int64 `json:"id"`

	CreatedAt time.Time `json:"createdAt"`

	NumSamples int `json:"numSamples"`

	// Winner is the selected candidate name. It is empty
	// for failed runs.
	Winner string `json:"winner"`

	WinnerF1 float64 `json:"winnerF1"`

	BaselineF1 float64 `json:"baselineF1"`

	// ArtifactPath is where the artifact of the run was written
	ArtifactPath string `json:"artifactPath"`

	// Error contains a reason of a failed run
	Error string `json:"error,omitempty"`

	Importance []eval.FeatureImportance `json:"importance,omitempty"`
}

func (rec RunRecord) Successful() bool {
	return rec.Error == ""
}

// CandidateRecord holds scores of one candidate within a run
type CandidateRecord struct {
	RunID      int64         `json:"runId"`
	Name       string        `json:"name"`
	Kind       string        `json:"kind"`
	Accuracy   float64       `json:"accuracy"`
	Precision  float64       `json:"precision"`
	Recall     float64       `json:"recall"`
	F1         float64       `json:"f1"`
	CVMean     float64       `json:"cvMean"`
	CVStd      float64       `json:"cvStd"`
	FitTime    time.Duration `json:"fitTime"`
	Skipped    bool          `json:"skipped"`
	SkipReason string        `json:"skipReason,omitempty"`
	IsWinner   bool          `json:"isWinner"`
	IsBaseline bool          `json:"isBaseline"`

	// MeanROCAUC and MeanAP are averaged over Curves
	MeanROCAUC float64           `json:"meanRocAuc"`
	MeanAP     float64           `json:"meanAveragePrecision"`
	Curves     []eval.ClassCurve `json:"curves,omitempty"`
}

func candidateFromResult(res *eval.EvaluationResult) CandidateRecord {
	c := CandidateRecord{
		Name:       res.Name,
		Kind:       string(res.Kind),
		Accuracy:   res.Scores.Accuracy,
		Precision:  res.Scores.Precision,
		Recall:     res.Scores.Recall,
		F1:         res.Scores.F1,
		CVMean:     res.CVMean,
		CVStd:      res.CVStd,
		FitTime:    res.FitTime,
		Skipped:    res.Skipped,
		SkipReason: res.SkipReason,
		Curves:     res.Curves,
	}
	c.MeanROCAUC, c.MeanAP = eval.MeanCurves(res.Curves)
	return c
}

// RecordsFromOutcome converts a bench outcome into ledger records.
// The outcome may come from a failed run (i.e. without a winner).
func RecordsFromOutcome(
	outcome *eval.Outcome,
	createdAt time.Time,
	numSamples int,
	artifactPath string,
	runErr error,
) (RunRecord, []CandidateRecord) {
	run := RunRecord{
		CreatedAt:    createdAt,
		NumSamples:   numSamples,
		ArtifactPath: artifactPath,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if outcome == nil {
		return run, []CandidateRecord{}
	}
	run.Importance = outcome.Importance
	cands := make([]CandidateRecord, 0, len(outcome.Results)+1)
	for _, res := range outcome.Results {
		c := candidateFromResult(res)
		if res == outcome.Winner {
			c.IsWinner = true
			run.Winner = res.Name
			run.WinnerF1 = res.Scores.F1
		}
		cands = append(cands, c)
	}
	if outcome.Baseline != nil {
		c := candidateFromResult(outcome.Baseline)
		c.IsBaseline = true
		run.BaselineF1 = outcome.Baseline.Scores.F1
		cands = append(cands, c)
	}
	return run, cands
}
