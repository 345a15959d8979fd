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
	"slices"

	"github.com/floodreport/sevclass/eval/predict"
	"github.com/floodreport/sevclass/report"
)

// ClassCurve summarizes how well the class probability separates
// one severity class from all the others.
type ClassCurve struct {
	Severity report.Severity `json:"severity" msgpack:"severity"`

	// ROCAUC is the area under the ROC curve
	ROCAUC float64 `json:"rocAuc" msgpack:"rocAuc"`

	// AveragePrecision is the step-wise area under
	// the precision-recall curve
	AveragePrecision float64 `json:"averagePrecision" msgpack:"averagePrecision"`

	Positives int `json:"positives" msgpack:"positives"`
}

type scoredLabel struct {
	score    float64
	positive bool
}

// ClassCurves computes one-vs-rest ROC AUC and average precision
// for each class represented in truth by both positive and negative
// samples. Other classes are omitted as neither score is defined for them.
func ClassCurves(truth []int, probs [][]float64) []ClassCurve {
	if len(truth) == 0 || len(truth) != len(probs) {
		return []ClassCurve{}
	}
	ans := make([]ClassCurve, 0, predict.NumClasses)
	for c := 0; c < predict.NumClasses; c++ {
		items := make([]scoredLabel, len(truth))
		var numPos int
		for i, t := range truth {
			items[i].positive = t == c
			if c < len(probs[i]) {
				items[i].score = probs[i][c]
			}
			if items[i].positive {
				numPos++
			}
		}
		if numPos == 0 || numPos == len(truth) {
			continue
		}
		ans = append(ans, ClassCurve{
			Severity:         report.SeverityFromIndex(c),
			ROCAUC:           rocAUC(items, numPos),
			AveragePrecision: averagePrecision(items, numPos),
			Positives:        numPos,
		})
	}
	return ans
}

// rocAUC uses the Mann-Whitney statistic, tied scores get
// their average rank
func rocAUC(items []scoredLabel, numPos int) float64 {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b scoredLabel) int {
		return cmp.Compare(a.score, b.score)
	})
	var posRankSum float64
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j].score == sorted[i].score {
			j++
		}
		avgRank := float64(i+j+1) / 2 // ranks are 1-based
		for k := i; k < j; k++ {
			if sorted[k].positive {
				posRankSum += avgRank
			}
		}
		i = j
	}
	numNeg := len(items) - numPos
	return (posRankSum - float64(numPos*(numPos+1))/2) / float64(numPos*numNeg)
}

// averagePrecision sums precision at each distinct score threshold
// weighted by the recall increase
func averagePrecision(items []scoredLabel, numPos int) float64 {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b scoredLabel) int {
		return cmp.Compare(b.score, a.score)
	})
	var ans, prevRecall float64
	var tp int
	for i := 0; i < len(sorted); {
		j := i
		for j < len(sorted) && sorted[j].score == sorted[i].score {
			if sorted[j].positive {
				tp++
			}
			j++
		}
		recall := float64(tp) / float64(numPos)
		precision := float64(tp) / float64(j)
		ans += (recall - prevRecall) * precision
		prevRecall = recall
		i = j
	}
	return ans
}

// MeanCurves returns unweighted means of ROC AUC and average
// precision over the provided classes
func MeanCurves(curves []ClassCurve) (auc float64, ap float64) {
	if len(curves) == 0 {
		return 0, 0
	}
	for _, c := range curves {
		auc += c.ROCAUC
		ap += c.AveragePrecision
	}
	return auc / float64(len(curves)), ap / float64(len(curves))
}
