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
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/floodreport/sevclass/eval/predict"
	"github.com/floodreport/sevclass/report"
)

var (
	ErrInsufficientData  = errors.New("insufficient data")
	ErrNoViableCandidate = errors.New("no viable candidate")
)

// InsufficientDataError reports a class with too few samples
// for a requested partitioning.
type InsufficientDataError struct {
	Severity report.Severity
	Count    int
	Required int
}

func (err *InsufficientDataError) Error() string {
	return fmt.Sprintf(
		"insufficient data: severity %d has %d samples, at least %d required",
		err.Severity, err.Count, err.Required,
	)
}

func (err *InsufficientDataError) Is(target error) bool {
	return target == ErrInsufficientData
}

func indicesByClass(labels []int) [predict.NumClasses][]int {
	var ans [predict.NumClasses][]int
	for i, v := range labels {
		ans[v] = append(ans[v], i)
	}
	return ans
}

// StratifiedSplit splits sample indices into a training and a test part
// so that each class keeps its relative frequency in both of them. Any class
// with at least two samples is present in both parts. Returned indices
// are sorted.
func StratifiedSplit(labels []int, testRatio float64, rng *rand.Rand) (train, test []int) {
	for _, idxs := range indicesByClass(labels) {
		n := len(idxs)
		if n == 0 {
			continue
		}
		shuffled := slices.Clone(idxs)
		rng.Shuffle(n, func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})
		numTest := int(math.Round(float64(n) * testRatio))
		if n >= 2 {
			numTest = max(1, min(numTest, n-1))

		} else {
			numTest = 0
		}
		test = append(test, shuffled[:numTest]...)
		train = append(train, shuffled[numTest:]...)
	}
	slices.Sort(train)
	slices.Sort(test)
	return
}

// StratifiedKFold partitions sample indices into k folds (returned as
// the test indices of each fold). The i-th sample of each class goes
// to the fold i mod k so the partitioning is deterministic.
func StratifiedKFold(labels []int, k int) ([][]int, error) {
	if k < 2 {
		return nil, fmt.Errorf("invalid number of folds %d", k)
	}
	byClass := indicesByClass(labels)
	for c, idxs := range byClass {
		if len(idxs) > 0 && len(idxs) < k {
			return nil, &InsufficientDataError{
				Severity: report.SeverityFromIndex(c),
				Count:    len(idxs),
				Required: k,
			}
		}
	}
	folds := make([][]int, k)
	for _, idxs := range byClass {
		for i, idx := range idxs {
			folds[i%k] = append(folds[i%k], idx)
		}
	}
	for _, f := range folds {
		slices.Sort(f)
	}
	return folds, nil
}

// complement returns sorted indices from [0, n) not present in the sorted fold
func complement(n int, fold []int) []int {
	ans := make([]int, 0, n-len(fold))
	var j int
	for i := range n {
		if j < len(fold) && fold[j] == i {
			j++
			continue
		}
		ans = append(ans, i)
	}
	return ans
}

func pickRows(x [][]float64, idxs []int) [][]float64 {
	ans := make([][]float64, len(idxs))
	for i, idx := range idxs {
		ans[i] = x[idx]
	}
	return ans
}

func pickLabels(y []int, idxs []int) []int {
	ans := make([]int, len(idxs))
	for i, idx := range idxs {
		ans[i] = y[idx]
	}
	return ans
}
