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
	"errors"
	"testing"
	"time"

	"github.com/floodreport/sevclass/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecords() []report.Record {
	return []report.Record{
		{Neighborhood: "Derby", Latitude: -8.05, Longitude: -34.9},
		{Neighborhood: "Boa Viagem", Latitude: -8.12, Longitude: -34.89},
		{Neighborhood: "Casa Amarela", Latitude: -8.02, Longitude: -34.91},
		{Neighborhood: "Boa Viagem", Latitude: -8.13, Longitude: -34.90},
	}
}

func TestFitEncodingTableSortedCodes(t *testing.T) {
	table := FitEncodingTable(sampleRecords())
	assert.Equal(t, []string{"Boa Viagem", "Casa Amarela", "Derby"}, table.Names())
	c, ok := table.Code("Derby")
	assert.True(t, ok)
	assert.Equal(t, 2, c)
	_, ok = table.Code("Recife Antigo")
	assert.False(t, ok)
}

func TestNewEncodingTableValidates(t *testing.T) {
	_, err := NewEncodingTable([]string{"b", "a"})
	assert.Error(t, err)
	_, err = NewEncodingTable([]string{"a", "a"})
	assert.Error(t, err)
	_, err = NewEncodingTable(nil)
	assert.Error(t, err)
	table, err := NewEncodingTable([]string{"a", "b"})
	assert.NoError(t, err)
	assert.True(t, table.Equal(FitEncodingTable([]report.Record{{Neighborhood: "b"}, {Neighborhood: "a"}})))
}

func TestEncodingTableNamesIsCopy(t *testing.T) {
	table := FitEncodingTable(sampleRecords())
	names := table.Names()
	names[0] = "mutated"
	c, ok := table.Code("Boa Viagem")
	assert.True(t, ok)
	assert.Equal(t, 0, c)
}

func TestBuild(t *testing.T) {
	table := FitEncodingTable(sampleRecords())
	rec := report.Record{
		// 2025-06-14 is a Saturday
		Timestamp:     time.Date(2025, 6, 14, 17, 45, 0, 0, time.UTC),
		Latitude:      -8.12,
		Longitude:     -34.89,
		Neighborhood:  "Casa Amarela",
		Confirmations: 7,
	}
	v, err := Build(rec, table)
	require.NoError(t, err)
	assert.Equal(t, -8.12, v[ColLatitude])
	assert.Equal(t, -34.89, v[ColLongitude])
	assert.Equal(t, 17.0, v[ColHourOfDay])
	assert.Equal(t, 5.0, v[ColDayOfWeek])
	assert.Equal(t, 6.0, v[ColMonth])
	assert.Equal(t, 7.0, v[ColConfirmations])
	assert.Equal(t, 1.0, v[ColIsWeekend])
	assert.Equal(t, 1.0, v[ColNeighborhoodCode])
	assert.Equal(t, 8.12, v[ColAbsLatitude])
	assert.Equal(t, 34.89, v[ColAbsLongitude])
}

func TestBuildWeekday(t *testing.T) {
	table := FitEncodingTable(sampleRecords())
	rec := report.Record{
		// Monday
		Timestamp:    time.Date(2025, 6, 16, 3, 0, 0, 0, time.UTC),
		Neighborhood: "Derby",
	}
	v, err := Build(rec, table)
	require.NoError(t, err)
	assert.Equal(t, 0.0, v[ColDayOfWeek])
	assert.Equal(t, 0.0, v[ColIsWeekend])
}

func TestBuildIsDeterministic(t *testing.T) {
	table := FitEncodingTable(sampleRecords())
	rec := report.Record{
		Timestamp:     time.Date(2025, 3, 2, 9, 10, 0, 0, time.UTC),
		Latitude:      -8.05,
		Longitude:     -34.9,
		Neighborhood:  "Derby",
		Confirmations: 2,
	}
	v1, err := Build(rec, table)
	require.NoError(t, err)
	for range 10 {
		v2, err := Build(rec, table)
		require.NoError(t, err)
		assert.Equal(t, v1, v2)
	}
}

func TestBuildUnseenNeighborhood(t *testing.T) {
	table := FitEncodingTable(sampleRecords())
	_, err := Build(report.Record{Neighborhood: "Pina", Timestamp: time.Now()}, table)
	var uErr *UnseenCategoryError
	assert.True(t, errors.As(err, &uErr))
	assert.Equal(t, "Pina", uErr.Neighborhood)
}

func TestColumns(t *testing.T) {
	cols := Columns()
	assert.Len(t, cols, NumFeatures)
	assert.True(t, SameColumns(cols))
	cols[0] = "lat"
	assert.False(t, SameColumns(cols))
	assert.True(t, SameColumns(Columns()))
}
