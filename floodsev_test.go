// Copyright 2024 Tomas Machalek <tomas.machalek@gmail.com>
// Copyright 2024 Institute of the Czech National Corpus,
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
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/floodreport/sevclass/artifact"
	"github.com/floodreport/sevclass/cnf"
	"github.com/floodreport/sevclass/eval"
	"github.com/floodreport/sevclass/report"
	"github.com/floodreport/sevclass/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorExitCode(t *testing.T) {
	assert.Equal(t, exitErrorInvalidConfig, errorExitCode(fmt.Errorf("%w: foo", errInvalidConfig)))
	assert.Equal(t, exitErrorDataImportFailed, errorExitCode(fmt.Errorf("%w: foo", errDataImport)))
	assert.Equal(t, exitErrorInvalidData, errorExitCode(&report.DataError{Field: "severity", Err: errors.New("x")}))
	assert.Equal(t, exitErrorArtifactUnavailable, errorExitCode(artifact.ErrArtifactMissing))
	assert.Equal(t, exitErrorTrainingFailed, errorExitCode(fmt.Errorf("foo: %w", eval.ErrNoViableCandidate)))
	assert.Equal(t, exitErrorGeneralFailure, errorExitCode(errors.New("foo")))
}

func TestReadReportsMissingFile(t *testing.T) {
	conf := &cnf.Conf{
		Training: cnf.TrainingConf{
			DataSource: cnf.DataSourceCSV,
			CSVPath:    filepath.Join(t.TempDir(), "missing.csv"),
		},
	}
	_, err := readReports(context.Background(), conf)
	require.Error(t, err)
	assert.Equal(t, exitErrorDataImportFailed, errorExitCode(err))
}

func TestRunActionScoreInvalidInput(t *testing.T) {
	err := runActionScore(5, 0, 0.5, 0)
	assert.Equal(t, exitErrorInvalidData, errorExitCode(err))
	err = runActionScore(2, 0, 1.5, 0)
	assert.Equal(t, exitErrorInvalidData, errorExitCode(err))
	err = runActionScore(2, -1, 0.5, 0)
	assert.Equal(t, exitErrorInvalidData, errorExitCode(err))
}

func TestRunActionTrainReturnsErrorAndRecordsRun(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "reports.csv")
	require.NoError(t, os.WriteFile(
		csvPath,
		[]byte("timestamp,latitude,longitude,neighborhood,confirmation_count,severity\n"+
			"2025-04-10 06:30:00,-8.05,-34.9,Derby,3,2\n"+
			"2025-04-10 08:00:00,-8.1,-34.95,Pina,0,4\n"),
		0o644,
	))
	conf := &cnf.Conf{
		ArtifactPath: filepath.Join(dir, "model.msgpack"),
		Training: cnf.TrainingConf{
			DataSource: cnf.DataSourceCSV,
			CSVPath:    csvPath,
			LedgerPath: filepath.Join(dir, "ledger.sqlite"),
		},
	}
	require.NoError(t, cnf.ValidateAndDefaults(conf))

	err := runActionTrain(context.Background(), conf, false)
	require.Error(t, err)
	assert.Equal(t, exitErrorTrainingFailed, errorExitCode(err))

	ledger, err := stats.NewDatabase(conf.Training.LedgerPath)
	require.NoError(t, err)
	defer ledger.Close()
	runs, err := ledger.GetRuns(stats.ListFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.False(t, runs[0].Successful())
}

func TestRunActionEvaluateWithoutData(t *testing.T) {
	err := runActionEvaluate(context.Background(), &cnf.Conf{}, "")
	assert.Equal(t, exitErrorInvalidConfig, errorExitCode(err))
}
