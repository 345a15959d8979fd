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
	"math/rand/v2"
	"slices"

	"github.com/floodreport/sevclass/feats"
)

// PermutationImportance measures the drop of accuracy caused by shuffling
// each feature column separately. Results are sorted by importance
// (descending), ties keep the column order.
func PermutationImportance(clf Classifier, x [][]float64, y []int, repeats int, rng *rand.Rand) []FeatureImportance {
	if len(x) == 0 {
		return []FeatureImportance{}
	}
	pred, _ := PredictAll(clf, x)
	base := Accuracy(y, pred)
	cols := feats.Columns()
	ans := make([]FeatureImportance, 0, len(cols))
	shuffled := make([][]float64, len(x))
	for i, row := range x {
		shuffled[i] = slices.Clone(row)
	}
	perm := make([]int, len(x))
	for col := range len(x[0]) {
		var drop float64
		for range repeats {
			for i := range perm {
				perm[i] = i
			}
			rng.Shuffle(len(perm), func(i, j int) {
				perm[i], perm[j] = perm[j], perm[i]
			})
			for i := range shuffled {
				shuffled[i][col] = x[perm[i]][col]
			}
			pred, _ := PredictAll(clf, shuffled)
			drop += base - Accuracy(y, pred)
		}
		for i := range shuffled {
			shuffled[i][col] = x[i][col]
		}
		name := ""
		if col < len(cols) {
			name = cols[col]
		}
		ans = append(ans, FeatureImportance{
			Column:     name,
			Importance: drop / float64(max(repeats, 1)),
		})
	}
	slices.SortStableFunc(ans, func(a, b FeatureImportance) int {
		return cmp.Compare(b.Importance, a.Importance)
	})
	return ans
}
