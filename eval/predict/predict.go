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

package predict

import (
	"fmt"

	"github.com/floodreport/sevclass/report"
)

// NumClasses is the number of classes all the classifiers work with.
// Class indices are 0-based (see report.Severity.Index).
const NumClasses = report.NumSeverities

// Kind identifies a classifier type
type Kind string

const (
	KindEnsembleForest       Kind = "ensemble-forest"
	KindGradientBoostedTrees Kind = "gradient-boosted-trees"
	KindKernelSVM            Kind = "kernel-svm"
	KindLinearLogistic       Kind = "linear-logistic"

	// KindMajorityBaseline is not a real candidate, we use it
	// only as a reference point when evaluating.
	KindMajorityBaseline Kind = "majority-baseline"
)

// CandidateKinds is the closed set of types a trained model can have.
var CandidateKinds = []Kind{
	KindEnsembleForest,
	KindGradientBoostedTrees,
	KindKernelSVM,
	KindLinearLogistic,
}

// RequiresScaledInput tells whether the classifier must be trained
// on (and fed with) standardized features.
func (k Kind) RequiresScaledInput() bool {
	return k == KindKernelSVM || k == KindLinearLogistic
}

func (k Kind) Validate() error {
	for _, v := range CandidateKinds {
		if v == k {
			return nil
		}
	}
	return fmt.Errorf("unknown classifier kind '%s'", k)
}

// Prediction is a result of a single classification.
type Prediction struct {

	// Votes contains class probabilities (or normalized votes)
	// indexed by class index. Its length is always NumClasses.
	Votes []float64

	PredictedClass int
}

func (p Prediction) Severity() report.Severity {
	return report.SeverityFromIndex(p.PredictedClass)
}

// FromVotes creates a prediction choosing the class with the highest
// vote. Ties are resolved in favor of the lower class index. Missing
// classes are padded with zero votes.
func FromVotes(votes []float64) Prediction {
	ans := Prediction{Votes: make([]float64, NumClasses)}
	copy(ans.Votes, votes)
	for i := 1; i < NumClasses; i++ {
		if ans.Votes[i] > ans.Votes[ans.PredictedClass] {
			ans.PredictedClass = i
		}
	}
	return ans
}
