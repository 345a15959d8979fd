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
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/floodreport/sevclass/eval"
	"github.com/floodreport/sevclass/eval/predict"
	"github.com/floodreport/sevclass/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *Database {
	db, err := NewDatabase(filepath.Join(t.TempDir(), "ledger.sqlite"))
	require.NoError(t, err)
	require.NoError(t, db.Init())
	t.Cleanup(func() { db.Close() })
	return db
}

func testOutcome() *eval.Outcome {
	rf := &eval.EvaluationResult{
		Name:      "random-forest",
		Kind:      predict.KindEnsembleForest,
		Scores:    eval.Scores{Accuracy: 0.9, Precision: 0.91, Recall: 0.9, F1: 0.9},
		CVMean:    0.88,
		CVStd:     0.02,
		FitTime:   1500 * time.Millisecond,
		DeclIndex: 0,
		Curves: []eval.ClassCurve{
			{Severity: report.SeverityLow, ROCAUC: 0.9, AveragePrecision: 0.7, Positives: 10},
			{Severity: report.SeverityHigh, ROCAUC: 0.8, AveragePrecision: 0.9, Positives: 4},
		},
	}
	svm := &eval.EvaluationResult{
		Name:       "svm",
		Kind:       predict.KindKernelSVM,
		DeclIndex:  1,
		Skipped:    true,
		SkipReason: "insufficient data",
	}
	return &eval.Outcome{
		Results: []*eval.EvaluationResult{rf, svm},
		Winner:  rf,
		Baseline: &eval.EvaluationResult{
			Name:      "majority-baseline",
			Kind:      predict.KindMajorityBaseline,
			Scores:    eval.Scores{Accuracy: 0.4, F1: 0.23},
			DeclIndex: -1,
		},
		Importance: []eval.FeatureImportance{{Column: "confirmation_count", Importance: 0.3}},
	}
}

func TestInitIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	assert.NoError(t, db.Init())
}

func TestAddAndGetRun(t *testing.T) {
	db := newTestDB(t)
	created := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	run, cands := RecordsFromOutcome(testOutcome(), created, 100, "/tmp/severity.msgpack", nil)
	assert.Equal(t, "random-forest", run.Winner)
	assert.Len(t, cands, 3)

	id, err := db.AddRun(run, cands)
	require.NoError(t, err)

	runs, err := db.GetRuns(ListFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, id, runs[0].ID)
	assert.True(t, runs[0].CreatedAt.Equal(created))
	assert.Equal(t, 100, runs[0].NumSamples)
	assert.Equal(t, 0.9, runs[0].WinnerF1)
	assert.Equal(t, 0.23, runs[0].BaselineF1)
	assert.True(t, runs[0].Successful())
	assert.Equal(t, []eval.FeatureImportance{{Column: "confirmation_count", Importance: 0.3}}, runs[0].Importance)

	stored, err := db.GetRunCandidates(id)
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, "random-forest", stored[0].Name)
	assert.True(t, stored[0].IsWinner)
	assert.Equal(t, 1500*time.Millisecond, stored[0].FitTime)
	assert.InDelta(t, 0.85, stored[0].MeanROCAUC, 1e-9)
	assert.InDelta(t, 0.8, stored[0].MeanAP, 1e-9)
	assert.Equal(t, testOutcome().Winner.Curves, stored[0].Curves)
	assert.Equal(t, "majority-baseline", stored[1].Name)
	assert.True(t, stored[1].IsBaseline)
	assert.Equal(t, "svm", stored[2].Name)
	assert.True(t, stored[2].Skipped)
	assert.Equal(t, "insufficient data", stored[2].SkipReason)
	assert.Empty(t, stored[2].Curves)
	assert.Equal(t, 0.0, stored[2].MeanROCAUC)
}

func TestGetRunsFilter(t *testing.T) {
	db := newTestDB(t)
	t0 := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	for i := range 3 {
		run, cands := RecordsFromOutcome(testOutcome(), t0.Add(time.Duration(i)*time.Hour), 100, "", nil)
		_, err := db.AddRun(run, cands)
		require.NoError(t, err)
	}
	failed, cands := RecordsFromOutcome(nil, t0.Add(4*time.Hour), 10, "", errors.New("no viable candidate"))
	_, err := db.AddRun(failed, cands)
	require.NoError(t, err)

	all, err := db.GetRuns(ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 4)
	assert.False(t, all[0].Successful())

	ok, err := db.GetRuns(ListFilter{}.SetSuccessful(true))
	require.NoError(t, err)
	assert.Len(t, ok, 3)

	bad, err := db.GetRuns(ListFilter{}.SetSuccessful(false))
	require.NoError(t, err)
	assert.Len(t, bad, 1)
	assert.Equal(t, "no viable candidate", bad[0].Error)

	limited, err := db.GetRuns(ListFilter{}.SetLimit(2))
	require.NoError(t, err)
	assert.Len(t, limited, 2)
	assert.Greater(t, limited[0].ID, limited[1].ID)
}
