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

package report

import "fmt"

// Severity is an ordinal flood impact classification
type Severity int

const (
	SeverityLow      Severity = 1
	SeverityModerate Severity = 2
	SeverityHigh     Severity = 3
	SeverityCritical Severity = 4

	// NumSeverities is the number of distinct severity classes
	NumSeverities = 4
)

var AllSeverities = []Severity{SeverityLow, SeverityModerate, SeverityHigh, SeverityCritical}

func (s Severity) Valid() bool {
	return s >= SeverityLow && s <= SeverityCritical
}

// Index maps the severity to a zero based class index
// as used by classifiers.
func (s Severity) Index() int {
	return int(s) - 1
}

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityModerate:
		return "moderate"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// SeverityFromIndex is the inverse of Severity.Index
func SeverityFromIndex(idx int) Severity {
	return Severity(idx + 1)
}
