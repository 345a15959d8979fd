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

package feats

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/floodreport/sevclass/report"
)

const NumFeatures = 10

// Column indices. The order is part of the model contract - training
// and inference must use the very same layout.
const (
	ColLatitude = iota
	ColLongitude
	ColHourOfDay
	ColDayOfWeek
	ColMonth
	ColConfirmations
	ColIsWeekend
	ColNeighborhoodCode
	ColAbsLatitude
	ColAbsLongitude
)

var columns = [NumFeatures]string{
	"latitude",
	"longitude",
	"hour_of_day",
	"day_of_week",
	"month",
	"confirmation_count",
	"is_weekend",
	"neighborhood_code",
	"abs_latitude",
	"abs_longitude",
}

// Columns returns the feature column order (a fresh copy).
func Columns() []string {
	return slices.Clone(columns[:])
}

// SameColumns tells whether the provided column order matches
// the one produced by Build.
func SameColumns(cols []string) bool {
	return slices.Equal(cols, columns[:])
}

// Vector is a fixed-length, ordered numeric representation
// of a single report.
type Vector [NumFeatures]float64

func (v Vector) Slice() []float64 {
	ans := make([]float64, NumFeatures)
	copy(ans, v[:])
	return ans
}

func (v Vector) Show() string {
	var ans strings.Builder
	for i, c := range columns {
		ans.WriteString(fmt.Sprintf("%s: %.4f\n", c, v[i]))
	}
	return ans.String()
}

// isoWeekday returns day of week with Monday = 0, ..., Sunday = 6
func isoWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// Build converts a report into its feature vector. The neighborhood
// must be known to the encoding table, otherwise UnseenCategoryError
// is returned. Time derived values use the location of the record's
// timestamp.
func Build(rec report.Record, table EncodingTable) (Vector, error) {
	code, ok := table.Code(rec.Neighborhood)
	if !ok {
		return Vector{}, &UnseenCategoryError{Neighborhood: rec.Neighborhood}
	}
	var v Vector
	dow := isoWeekday(rec.Timestamp)
	v[ColLatitude] = rec.Latitude
	v[ColLongitude] = rec.Longitude
	v[ColHourOfDay] = float64(rec.Timestamp.Hour())
	v[ColDayOfWeek] = float64(dow)
	v[ColMonth] = float64(rec.Timestamp.Month())
	v[ColConfirmations] = float64(rec.Confirmations)
	if dow >= 5 {
		v[ColIsWeekend] = 1
	}
	v[ColNeighborhoodCode] = float64(code)
	v[ColAbsLatitude] = math.Abs(rec.Latitude)
	v[ColAbsLongitude] = math.Abs(rec.Longitude)
	return v, nil
}
