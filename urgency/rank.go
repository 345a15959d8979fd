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

package urgency

import (
	"cmp"
	"slices"

	"github.com/floodreport/sevclass/observability"
	"github.com/floodreport/sevclass/report"
	"github.com/jonboulle/clockwork"
)

const DefaultAlertThreshold = 75.0

type RankedReport struct {
	Record report.Record `json:"report"`
	Inputs Inputs        `json:"inputs"`
	Score  float64       `json:"score"`
	Alert  bool          `json:"alert"`
}

// Ranker orders live reports by their urgency at the current time
// of its clock.
type Ranker struct {
	clock     clockwork.Clock
	threshold float64
	metrics   *observability.Metrics
}

func NewRanker(clock clockwork.Clock, threshold float64, metrics *observability.Metrics) *Ranker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if threshold <= 0 {
		threshold = DefaultAlertThreshold
	}
	return &Ranker{clock: clock, threshold: threshold, metrics: metrics}
}

func (r *Ranker) Threshold() float64 {
	return r.threshold
}

// Rank returns reports sorted by urgency (most urgent first).
// Equal scores are ordered by timestamp (newer first) and then by ID.
// The input slice is not modified.
func (r *Ranker) Rank(recs []report.Record) []RankedReport {
	now := r.clock.Now()
	ans := make([]RankedReport, len(recs))
	for i, rec := range recs {
		in := InputsFor(rec, now)
		score := ScoreInputs(in)
		r.metrics.ObserveUrgency(score)
		ans[i] = RankedReport{
			Record: rec,
			Inputs: in,
			Score:  score,
			Alert:  score >= r.threshold,
		}
	}
	slices.SortStableFunc(ans, func(a, b RankedReport) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		if c := b.Record.Timestamp.Compare(a.Record.Timestamp); c != 0 {
			return c
		}
		return cmp.Compare(a.Record.ID, b.Record.ID)
	})
	return ans
}

// Alerts returns only the ranked reports at or above the threshold
func Alerts(ranked []RankedReport) []RankedReport {
	ans := make([]RankedReport, 0, len(ranked))
	for _, v := range ranked {
		if v.Alert {
			ans = append(ans, v)
		}
	}
	return ans
}
