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

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"math"
	"strings"
	"time"
)

const (
	// DefaultReporterTrust is the trust level of a reporter we know
	// nothing about.
	DefaultReporterTrust = 0.5
)

// Record is a single flood report as provided by the persistence layer.
// Records are treated as immutable once ingested.
type Record struct {
	ID            string    `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	Neighborhood  string    `json:"neighborhood"`
	Confirmations int       `json:"confirmations"`

	// Severity is the true label. It is only required
	// for training data.
	Severity Severity `json:"severity,omitempty"`

	// ReporterTrust is the trust score (0.0 - 1.0) of the user
	// who submitted the report.
	ReporterTrust float64 `json:"reporterTrust"`
}

// Validate checks the record before it is used. With `labeled` set,
// the severity label must be present and valid.
func (rec Record) Validate(labeled bool) error {
	if rec.Timestamp.IsZero() {
		return &DataError{Field: "timestamp", Err: fmt.Errorf("missing timestamp")}
	}
	if math.IsNaN(rec.Latitude) || rec.Latitude < -90 || rec.Latitude > 90 {
		return &DataError{Field: "latitude", Err: fmt.Errorf("invalid latitude %v", rec.Latitude)}
	}
	if math.IsNaN(rec.Longitude) || rec.Longitude < -180 || rec.Longitude > 180 {
		return &DataError{Field: "longitude", Err: fmt.Errorf("invalid longitude %v", rec.Longitude)}
	}
	if strings.TrimSpace(rec.Neighborhood) == "" {
		return &DataError{Field: "neighborhood", Err: fmt.Errorf("missing neighborhood")}
	}
	if rec.Confirmations < 0 {
		return &DataError{Field: "confirmation_count", Err: fmt.Errorf("negative confirmation count %d", rec.Confirmations)}
	}
	if rec.ReporterTrust < 0 || rec.ReporterTrust > 1 || math.IsNaN(rec.ReporterTrust) {
		return &DataError{Field: "reporter_trust", Err: fmt.Errorf("reporter trust %v out of range", rec.ReporterTrust)}
	}
	if labeled && !rec.Severity.Valid() {
		return &DataError{Field: "severity", Err: fmt.Errorf("severity %d out of range", rec.Severity)}
	}
	return nil
}

// AgeHours returns number of hours passed between the report
// and `now`. Reports from the future are considered fresh (0).
func (rec Record) AgeHours(now time.Time) float64 {
	age := now.Sub(rec.Timestamp).Hours()
	if age < 0 {
		return 0
	}
	return age
}

// IdempotentID creates a stable identifier for records which come
// without one (e.g. CSV exports).
func IdempotentID(rec Record) string {
	sum := sha1.New()
	_, err := sum.Write([]byte(rec.Timestamp.UTC().Format(time.RFC3339Nano) + "#"))
	if err != nil {
		panic("problem generating hash")
	}
	_, err = fmt.Fprintf(sum, "%.7f#%.7f#%s", rec.Latitude, rec.Longitude, rec.Neighborhood)
	if err != nil {
		panic("problem generating hash")
	}
	return hex.EncodeToString(sum.Sum(nil))
}
