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
	"math"
	"time"

	"github.com/floodreport/sevclass/report"
)

const (
	MinScore = 0.0
	MaxScore = 100.0

	severityWeight     = 25.0
	confirmationWeight = 5.0
	confirmationCap    = 20.0
	trustWeight        = 10.0
	recencyBonus       = 20.0
	recencyDecayPerHr  = 2.0
)

// Inputs are the values the urgency score is derived from
type Inputs struct {
	Severity      report.Severity `json:"severity"`
	Confirmations int             `json:"confirmations"`
	ReporterTrust float64         `json:"reporterTrust"`
	AgeHours      float64         `json:"ageHours"`
}

// InputsFor derives scoring inputs from a report as seen at `now`.
func InputsFor(rec report.Record, now time.Time) Inputs {
	return Inputs{
		Severity:      rec.Severity,
		Confirmations: rec.Confirmations,
		ReporterTrust: rec.ReporterTrust,
		AgeHours:      rec.AgeHours(now),
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// Score calculates report urgency in the range [0, 100].
// Severity dominates the score, confirmations and reporter trust
// add bounded bonuses and fresh reports get a bonus decaying
// to zero after 10 hours. Out of range inputs are clamped to their
// valid ranges first.
func Score(severity report.Severity, confirmations int, reporterTrust, ageHours float64) float64 {
	sev := clamp(float64(severity), float64(report.SeverityLow), float64(report.SeverityCritical))
	if math.IsNaN(reporterTrust) {
		reporterTrust = 0
	}
	if math.IsNaN(ageHours) {
		ageHours = 0
	}
	base := sev * severityWeight
	confirm := math.Min(float64(max(confirmations, 0))*confirmationWeight, confirmationCap)
	trust := clamp(reporterTrust, 0, 1) * trustWeight
	recency := math.Max(0, recencyBonus-math.Max(ageHours, 0)*recencyDecayPerHr)
	return clamp(base+confirm+trust+recency, MinScore, MaxScore)
}

// ScoreInputs is Score applied to `Inputs`
func ScoreInputs(in Inputs) float64 {
	return Score(in.Severity, in.Confirmations, in.ReporterTrust, in.AgeHours)
}
