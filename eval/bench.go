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
	"cmp"
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/floodreport/sevclass/eval/predict"
	"github.com/floodreport/sevclass/eval/zero"
	"github.com/floodreport/sevclass/feats"
	"github.com/floodreport/sevclass/report"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
)

const (
	DefaultTestRatio = 0.3
	DefaultCVFolds   = 3

	numImportanceRepeats = 5
)

// EvaluationResult describes how a single candidate performed
// on the held-out part of data and in cross-validation on the
// training part.
type EvaluationResult struct {
	Name   string         `json:"name"`
	Kind   predict.Kind   `json:"kind"`
	Params map[string]any `json:"params,omitempty"`

	// DeclIndex is the position of the candidate within the panel
	DeclIndex int `json:"declIndex"`

	Predicted []report.Severity `json:"predicted,omitempty"`

	// Probabilities has one row per held-out sample and one column
	// per severity class
	Probabilities [][]float64 `json:"probabilities,omitempty"`

	Scores    Scores          `json:"scores"`
	Confusion ConfusionMatrix `json:"confusion"`

	// Curves are one-vs-rest ranking scores derived from Probabilities
	Curves []ClassCurve `json:"curves,omitempty"`

	CVScores []float64     `json:"cvScores,omitempty"`
	CVMean   float64       `json:"cvMean"`
	CVStd    float64       `json:"cvStd"`
	FitTime  time.Duration `json:"fitTime"`

	Skipped    bool   `json:"skipped"`
	SkipReason string `json:"skipReason,omitempty"`

	// Classifier is the candidate fitted on the whole training part
	Classifier Classifier `json:"-"`
}

func (r *EvaluationResult) RequiresScaledInput() bool {
	return r.Kind.RequiresScaledInput()
}

// FeatureImportance is a mean decrease of accuracy on the held-out
// data after the column values are randomly permuted.
type FeatureImportance struct {
	Column     string  `json:"column"`
	Importance float64 `json:"importance"`
}

// Outcome is the result of a complete bench run
type Outcome struct {

	// Results are in the candidate declaration order
	Results []*EvaluationResult

	Winner *EvaluationResult

	Baseline *EvaluationResult

	// Scaler is fitted on the training part of data
	Scaler feats.Scaler

	TrainIDs []string
	TestIDs  []string

	Importance []FeatureImportance
}

// Ranking returns non-skipped results ordered by the selection rule
func (o *Outcome) Ranking() []*EvaluationResult {
	return Rank(o.Results)
}

func compareResults(a, b *EvaluationResult) int {
	if c := cmp.Compare(b.Scores.F1, a.Scores.F1); c != 0 {
		return c
	}
	if c := cmp.Compare(b.CVMean, a.CVMean); c != 0 {
		return c
	}
	return cmp.Compare(a.DeclIndex, b.DeclIndex)
}

// Rank orders non-skipped results by weighted F1 on held-out data,
// then by cross-validation mean and finally by declaration order.
func Rank(results []*EvaluationResult) []*EvaluationResult {
	ans := make([]*EvaluationResult, 0, len(results))
	for _, r := range results {
		if !r.Skipped {
			ans = append(ans, r)
		}
	}
	slices.SortStableFunc(ans, compareResults)
	return ans
}

// SelectBest returns the top ranked result
func SelectBest(results []*EvaluationResult) (*EvaluationResult, error) {
	ranked := Rank(results)
	if len(ranked) == 0 {
		return nil, ErrNoViableCandidate
	}
	return ranked[0], nil
}

// ----------------------------------

type benchData struct {
	rawTrain    [][]float64
	rawTest     [][]float64
	scaledTrain [][]float64
	scaledTest  [][]float64
	yTrain      []int
	yTest       []int
}

func (bd *benchData) trainFor(scaled bool) [][]float64 {
	if scaled {
		return bd.scaledTrain
	}
	return bd.rawTrain
}

func (bd *benchData) testFor(scaled bool) [][]float64 {
	if scaled {
		return bd.scaledTest
	}
	return bd.rawTest
}

// Bench trains and evaluates a panel of candidates and selects the best one.
type Bench struct {
	Candidates   []Candidate
	TestRatio    float64
	CVFolds      int
	Seed         uint64
	ShowProgress bool
}

func (b *Bench) testRatio() float64 {
	if b.TestRatio <= 0 || b.TestRatio >= 1 {
		return DefaultTestRatio
	}
	return b.TestRatio
}

func (b *Bench) cvFolds() int {
	if b.CVFolds < 2 {
		return DefaultCVFolds
	}
	return b.CVFolds
}

// Run evaluates all the candidates. Samples are first ordered by their
// IDs so the result depends only on the sample set and the seed. Candidates
// failing with ErrInsufficientData are reported as skipped. If no candidate
// remains, the returned error wraps ErrNoViableCandidate (the outcome is
// returned anyway so the caller can report the skipped ones).
func (b *Bench) Run(ctx context.Context, samples []Sample) (*Outcome, error) {
	if len(b.Candidates) == 0 {
		return nil, fmt.Errorf("failed to run bench: %w", ErrNoViableCandidate)
	}
	for i, s := range samples {
		if !s.Label.Valid() {
			return nil, &report.DataError{
				Row:   i + 1,
				Field: "severity",
				Err:   fmt.Errorf("sample %s has invalid severity label %d", s.ID, s.Label),
			}
		}
	}
	samples = slices.Clone(samples)
	slices.SortFunc(samples, func(a, b Sample) int {
		return cmp.Compare(a.ID, b.ID)
	})
	rng := rand.New(rand.NewPCG(b.Seed, b.Seed))

	labels := make([]int, len(samples))
	rows := make([][]float64, len(samples))
	for i, s := range samples {
		labels[i] = s.Label.Index()
		rows[i] = s.Features.Slice()
	}
	trainIdx, testIdx := StratifiedSplit(labels, b.testRatio(), rng)
	if len(trainIdx) == 0 || len(testIdx) == 0 {
		return nil, fmt.Errorf(
			"failed to split %d samples to train and test parts: %w", len(samples), ErrInsufficientData)
	}
	var data benchData
	data.rawTrain = pickRows(rows, trainIdx)
	data.rawTest = pickRows(rows, testIdx)
	data.yTrain = pickLabels(labels, trainIdx)
	data.yTest = pickLabels(labels, testIdx)

	scaler, err := feats.FitScaler(data.rawTrain)
	if err != nil {
		return nil, fmt.Errorf("failed to run bench: %w", err)
	}
	data.scaledTrain = scaler.TransformAll(data.rawTrain)
	data.scaledTest = scaler.TransformAll(data.rawTest)

	outcome := &Outcome{
		Results:  make([]*EvaluationResult, 0, len(b.Candidates)),
		Scaler:   scaler,
		TrainIDs: make([]string, len(trainIdx)),
		TestIDs:  make([]string, len(testIdx)),
	}
	for i, idx := range trainIdx {
		outcome.TrainIDs[i] = samples[idx].ID
	}
	for i, idx := range testIdx {
		outcome.TestIDs[i] = samples[idx].ID
	}
	log.Info().
		Int("numSamples", len(samples)).
		Int("trainSize", len(trainIdx)).
		Int("testSize", len(testIdx)).
		Int("cvFolds", b.cvFolds()).
		Msg("prepared bench data")

	var bar *progressbar.ProgressBar
	if b.ShowProgress {
		bar = progressbar.Default(int64(len(b.Candidates)), "evaluating candidates")
	}
	for i, cand := range b.Candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := b.evaluate(ctx, i, cand, &data)
		if errors.Is(err, ErrInsufficientData) {
			log.Warn().
				Err(err).
				Str("candidate", cand.Name).
				Msg("skipping candidate")
			res = &EvaluationResult{
				Name:       cand.Name,
				Kind:       cand.Kind,
				Params:     cand.Params,
				DeclIndex:  i,
				Skipped:    true,
				SkipReason: err.Error(),
			}

		} else if err != nil {
			return nil, fmt.Errorf("failed to evaluate candidate %s: %w", cand.Name, err)

		} else {
			log.Info().
				Str("candidate", cand.Name).
				Float64("accuracy", res.Scores.Accuracy).
				Float64("f1", res.Scores.F1).
				Float64("cvMean", res.CVMean).
				Float64("cvStd", res.CVStd).
				Dur("fitTime", res.FitTime).
				Msg("evaluated candidate")
		}
		outcome.Results = append(outcome.Results, res)
		if bar != nil {
			bar.Add(1)
		}
	}

	baseline, err := b.evaluateBaseline(ctx, &data)
	if err != nil {
		return nil, fmt.Errorf("failed to evaluate baseline: %w", err)
	}
	outcome.Baseline = baseline

	outcome.Winner, err = SelectBest(outcome.Results)
	if err != nil {
		return outcome, fmt.Errorf("failed to select model: %w", err)
	}
	outcome.Importance = PermutationImportance(
		outcome.Winner.Classifier,
		data.testFor(outcome.Winner.RequiresScaledInput()),
		data.yTest,
		numImportanceRepeats,
		rng,
	)
	log.Info().
		Str("winner", outcome.Winner.Name).
		Float64("f1", outcome.Winner.Scores.F1).
		Float64("baselineF1", baseline.Scores.F1).
		Msg("selected model")
	return outcome, nil
}

func (b *Bench) evaluate(ctx context.Context, declIdx int, cand Candidate, data *benchData) (*EvaluationResult, error) {
	scaled := cand.RequiresScaledInput()
	xTrain := data.trainFor(scaled)
	cvScores, err := CrossValidate(ctx, cand, xTrain, data.yTrain, b.cvFolds())
	if err != nil {
		return nil, err
	}
	clf := cand.New()
	t0 := time.Now()
	if err := clf.Fit(ctx, xTrain, data.yTrain); err != nil {
		return nil, err
	}
	ans := &EvaluationResult{
		Name:       cand.Name,
		Kind:       cand.Kind,
		Params:     cand.Params,
		DeclIndex:  declIdx,
		FitTime:    time.Since(t0),
		CVScores:   cvScores,
		Classifier: clf,
	}
	ans.CVMean, ans.CVStd = MeanAndStd(cvScores)
	fillHeldOut(ans, clf, data.testFor(scaled), data.yTest)
	return ans, nil
}

func (b *Bench) evaluateBaseline(ctx context.Context, data *benchData) (*EvaluationResult, error) {
	clf := zero.NewModel()
	if err := clf.Fit(ctx, data.rawTrain, data.yTrain); err != nil {
		return nil, err
	}
	ans := &EvaluationResult{
		Name:       "baseline",
		Kind:       clf.Kind(),
		DeclIndex:  -1,
		Classifier: clf,
	}
	fillHeldOut(ans, clf, data.rawTest, data.yTest)
	return ans, nil
}

func fillHeldOut(res *EvaluationResult, clf Classifier, x [][]float64, y []int) {
	pred, probs := PredictAll(clf, x)
	res.Probabilities = probs
	res.Predicted = make([]report.Severity, len(pred))
	for i, p := range pred {
		res.Predicted[i] = report.SeverityFromIndex(p)
	}
	res.Scores = Score(y, pred)
	res.Confusion = NewConfusionMatrix(y, pred)
	res.Curves = ClassCurves(y, probs)
}

// PredictAll returns predicted class indices and class probabilities
func PredictAll(clf Classifier, x [][]float64) ([]int, [][]float64) {
	pred := make([]int, len(x))
	probs := make([][]float64, len(x))
	for i, row := range x {
		p := clf.Predict(row)
		pred[i] = p.PredictedClass
		probs[i] = p.Votes
	}
	return pred, probs
}

// CrossValidate runs stratified k-fold cross-validation of the candidate
// and returns accuracy of each fold.
func CrossValidate(ctx context.Context, cand Candidate, x [][]float64, y []int, k int) ([]float64, error) {
	folds, err := StratifiedKFold(y, k)
	if err != nil {
		return nil, err
	}
	ans := make([]float64, 0, k)
	for _, testIdx := range folds {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		trainIdx := complement(len(y), testIdx)
		clf := cand.New()
		if err := clf.Fit(ctx, pickRows(x, trainIdx), pickLabels(y, trainIdx)); err != nil {
			return nil, err
		}
		pred, _ := PredictAll(clf, pickRows(x, testIdx))
		ans = append(ans, Accuracy(pickLabels(y, testIdx), pred))
	}
	return ans, nil
}
