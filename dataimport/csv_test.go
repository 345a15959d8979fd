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

package dataimport

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/floodreport/sevclass/cnf"
	"github.com/floodreport/sevclass/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recifeLoc(t *testing.T) *time.Location {
	loc, err := time.LoadLocation("America/Recife")
	require.NoError(t, err)
	return loc
}

func TestReadCSVCanonicalHeader(t *testing.T) {
	data := "id,timestamp,latitude,longitude,neighborhood,confirmation_count,severity,reporter_trust\n" +
		"r1,2025-04-10 06:30:00,-8.05,-34.9,Derby,3,2,0.9\n" +
		"r2,2025-04-10T07:00:00Z,-8.1,-34.91,Boa Viagem,0,4,\n"
	recs, err := ReadCSV(context.Background(), strings.NewReader(data), recifeLoc(t))
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "r1", recs[0].ID)
	assert.True(t, recs[0].Timestamp.Equal(time.Date(2025, 4, 10, 9, 30, 0, 0, time.UTC)))
	assert.Equal(t, -8.05, recs[0].Latitude)
	assert.Equal(t, "Derby", recs[0].Neighborhood)
	assert.Equal(t, 3, recs[0].Confirmations)
	assert.Equal(t, report.SeverityModerate, recs[0].Severity)
	assert.Equal(t, 0.9, recs[0].ReporterTrust)

	assert.True(t, recs[1].Timestamp.Equal(time.Date(2025, 4, 10, 7, 0, 0, 0, time.UTC)))
	assert.Equal(t, report.DefaultReporterTrust, recs[1].ReporterTrust)
	assert.Equal(t, report.SeverityCritical, recs[1].Severity)
}

func TestReadCSVPortugueseHeader(t *testing.T) {
	data := "timestamp,latitude,longitude,bairro,confirmacoes,nivel_severidade,id_usuario\n" +
		"2025-04-10 06:30:00,-8.05,-34.9,Afogados,5.0,3,17\n"
	recs, err := ReadCSV(context.Background(), strings.NewReader(data), time.UTC)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "Afogados", recs[0].Neighborhood)
	assert.Equal(t, 5, recs[0].Confirmations)
	assert.Equal(t, report.SeverityHigh, recs[0].Severity)
	assert.Equal(t, report.IdempotentID(recs[0]), recs[0].ID)
	assert.Len(t, recs[0].ID, 40)
}

func TestReadCSVUnlabeled(t *testing.T) {
	data := "timestamp,latitude,longitude,neighborhood,confirmation_count\n" +
		"2025-04-10 06:30,-8.05,-34.9,Derby,1\n"
	recs, err := ReadCSV(context.Background(), strings.NewReader(data), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, report.Severity(0), recs[0].Severity)
	assert.NoError(t, recs[0].Validate(false))
	assert.Error(t, recs[0].Validate(true))
}

func TestReadCSVStableIDs(t *testing.T) {
	data := "timestamp,latitude,longitude,neighborhood,confirmation_count\n" +
		"2025-04-10 06:30,-8.05,-34.9,Derby,1\n" +
		"2025-04-10 06:31,-8.05,-34.9,Derby,1\n"
	a, err := ReadCSV(context.Background(), strings.NewReader(data), time.UTC)
	require.NoError(t, err)
	b, err := ReadCSV(context.Background(), strings.NewReader(data), time.UTC)
	require.NoError(t, err)
	assert.Equal(t, a[0].ID, b[0].ID)
	assert.NotEqual(t, a[0].ID, a[1].ID)
}

func TestReadCSVMissingColumn(t *testing.T) {
	data := "timestamp,latitude,longitude,confirmation_count\n2025-04-10 06:30,-8.05,-34.9,1\n"
	_, err := ReadCSV(context.Background(), strings.NewReader(data), time.UTC)
	var dErr *report.DataError
	require.True(t, errors.As(err, &dErr))
	assert.Equal(t, colNeighborhood, dErr.Field)
}

func TestReadCSVInvalidRow(t *testing.T) {
	data := "timestamp,latitude,longitude,neighborhood,confirmation_count\n" +
		"2025-04-10 06:30,-8.05,-34.9,Derby,1\n" +
		"2025-04-10 06:30,north,-34.9,Derby,1\n"
	_, err := ReadCSV(context.Background(), strings.NewReader(data), time.UTC)
	var dErr *report.DataError
	require.True(t, errors.As(err, &dErr))
	assert.Equal(t, 2, dErr.Row)
	assert.Equal(t, colLatitude, dErr.Field)
}

func TestReadCSVEmpty(t *testing.T) {
	recs, err := ReadCSV(context.Background(), strings.NewReader(""), time.UTC)
	assert.NoError(t, err)
	assert.Empty(t, recs)
}

func TestParseTimestamp(t *testing.T) {
	loc := recifeLoc(t)
	ts, err := ParseTimestamp("2025-01-31", loc)
	require.NoError(t, err)
	assert.Equal(t, loc, ts.Location())
	_, err = ParseTimestamp("31/01/2025", loc)
	assert.Error(t, err)
}

func TestCSVSourceFromConf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	data := "timestamp,latitude,longitude,neighborhood,confirmation_count,severity\n" +
		"2025-04-10 06:30,-8.05,-34.9,Derby,1,1\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))
	src, err := Open(cnf.TrainingConf{DataSource: cnf.DataSourceCSV, CSVPath: path}, time.UTC)
	require.NoError(t, err)
	defer src.Close()
	recs, err := src.ReadReports(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	_, err = NewCSVSource(filepath.Join(t.TempDir(), "none.csv"), nil).ReadReports(context.Background())
	assert.Error(t, err)
}
