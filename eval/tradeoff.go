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

import "time"

type Level string

const (
	LevelHigh   Level = "high"
	LevelMedium Level = "medium"
	LevelLow    Level = "low"

	highLevelThreshold   = 0.8
	mediumLevelThreshold = 0.6
)

func levelOf(v float64) Level {
	if v > highLevelThreshold {
		return LevelHigh

	} else if v > mediumLevelThreshold {
		return LevelMedium
	}
	return LevelLow
}

// Tradeoff characterizes a candidate by its sensitivity (recall)
// and specificity (precision) and suggests a deployment scenario.
type Tradeoff struct {
	Name        string        `json:"name"`
	Sensitivity Level         `json:"sensitivity"`
	Specificity Level         `json:"specificity"`
	Scenario    string        `json:"scenario"`
	F1          float64       `json:"f1"`
	FitTime     time.Duration `json:"fitTime"`
}

func idealScenario(precision, recall float64) string {
	if precision > highLevelThreshold && recall > highLevelThreshold {
		return "critical emergency systems"

	} else if precision > recall {
		return "systems with a high cost of false alarms"

	} else if recall > precision {
		return "systems where missing an event is critical"
	}
	return "systems with balanced costs"
}

// AnalyzeTradeoff describes a single evaluated candidate
func AnalyzeTradeoff(res *EvaluationResult) Tradeoff {
	return Tradeoff{
		Name:        res.Name,
		Sensitivity: levelOf(res.Scores.Recall),
		Specificity: levelOf(res.Scores.Precision),
		Scenario:    idealScenario(res.Scores.Precision, res.Scores.Recall),
		F1:          res.Scores.F1,
		FitTime:     res.FitTime,
	}
}

// Tradeoffs describes all non-skipped candidates in the ranking order
func (o *Outcome) Tradeoffs() []Tradeoff {
	ranked := o.Ranking()
	ans := make([]Tradeoff, len(ranked))
	for i, r := range ranked {
		ans[i] = AnalyzeTradeoff(r)
	}
	return ans
}
