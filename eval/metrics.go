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
	"fmt"
	"math"
	"strings"

	"github.com/floodreport/sevclass/eval/predict"
	"github.com/floodreport/sevclass/report"
)

// ConfusionMatrix has true classes in rows and predicted classes
// in columns (both as class indices).
type ConfusionMatrix [predict.NumClasses][predict.NumClasses]int

func NewConfusionMatrix(truth, predicted []int) ConfusionMatrix {
	var cm ConfusionMatrix
	for i := range truth {
		cm[truth[i]][predicted[i]]++
	}
	return cm
}

func (cm ConfusionMatrix) String() string {
	var ans strings.Builder
	ans.WriteString("true\\pred")
	for j := range predict.NumClasses {
		ans.WriteString(fmt.Sprintf("\t%d", report.SeverityFromIndex(j)))
	}
	ans.WriteString("\n")
	for i := range predict.NumClasses {
		ans.WriteString(fmt.Sprintf("%d", report.SeverityFromIndex(i)))
		for j := range predict.NumClasses {
			ans.WriteString(fmt.Sprintf("\t%d", cm[i][j]))
		}
		ans.WriteString("\n")
	}
	return ans.String()
}

// ClassScore contains one-vs-rest metrics of a single class
type ClassScore struct {
	Severity  report.Severity `json:"severity" msgpack:"severity"`
	Precision float64         `json:"precision" msgpack:"precision"`
	Recall    float64         `json:"recall" msgpack:"recall"`
	F1        float64         `json:"f1" msgpack:"f1"`
	Support   int             `json:"support" msgpack:"support"`
}

// Scores is a summary of classification quality. Precision, Recall
// and F1 are averaged over classes weighted by class support in
// the true labels.
type Scores struct {
	Accuracy  float64      `json:"accuracy" msgpack:"accuracy"`
	Precision float64      `json:"precision" msgpack:"precision"`
	Recall    float64      `json:"recall" msgpack:"recall"`
	F1        float64      `json:"f1" msgpack:"f1"`
	PerClass  []ClassScore `json:"perClass" msgpack:"perClass"`
}

func (s Scores) Report() string {
	var ans strings.Builder
	ans.WriteString("severity\tprecision\trecall\tf1\tsupport\n")
	for _, c := range s.PerClass {
		ans.WriteString(fmt.Sprintf("%d\t%.3f\t%.3f\t%.3f\t%d\n", c.Severity, c.Precision, c.Recall, c.F1, c.Support))
	}
	ans.WriteString(fmt.Sprintf("accuracy: %.3f, weighted precision: %.3f, weighted recall: %.3f, weighted f1: %.3f\n",
		s.Accuracy, s.Precision, s.Recall, s.F1))
	return ans.String()
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

// Accuracy returns the ratio of matching labels
func Accuracy(truth, predicted []int) float64 {
	if len(truth) == 0 {
		return 0
	}
	var ok int
	for i := range truth {
		if truth[i] == predicted[i] {
			ok++
		}
	}
	return float64(ok) / float64(len(truth))
}

// Score calculates accuracy and weighted precision, recall and F1.
// Classes with no predicted samples have precision 0, classes with
// no true samples do not contribute to the weighted averages.
func Score(truth, predicted []int) Scores {
	cm := NewConfusionMatrix(truth, predicted)
	ans := Scores{
		Accuracy: Accuracy(truth, predicted),
		PerClass: make([]ClassScore, 0, predict.NumClasses),
	}
	total := float64(len(truth))
	for c := range predict.NumClasses {
		var tp, support, retrieved int
		for k := range predict.NumClasses {
			support += cm[c][k]
			retrieved += cm[k][c]
		}
		tp = cm[c][c]
		if support == 0 && retrieved == 0 {
			continue
		}
		cs := ClassScore{
			Severity:  report.SeverityFromIndex(c),
			Precision: safeDiv(float64(tp), float64(retrieved)),
			Recall:    safeDiv(float64(tp), float64(support)),
			Support:   support,
		}
		cs.F1 = safeDiv(2*cs.Precision*cs.Recall, cs.Precision+cs.Recall)
		ans.PerClass = append(ans.PerClass, cs)

		w := safeDiv(float64(support), total)
		ans.Precision += w * cs.Precision
		ans.Recall += w * cs.Recall
		ans.F1 += w * cs.F1
	}
	return ans
}

// MeanAndStd returns arithmetic mean and population standard deviation
func MeanAndStd(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	var sum2 float64
	for _, v := range values {
		sum2 += (v - mean) * (v - mean)
	}
	return mean, math.Sqrt(sum2 / float64(len(values)))
}
