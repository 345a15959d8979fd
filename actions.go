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

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/floodreport/sevclass/artifact"
	"github.com/floodreport/sevclass/cnf"
	"github.com/floodreport/sevclass/eval"
	"github.com/floodreport/sevclass/report"
	"github.com/floodreport/sevclass/urgency"
)

const (
	errColor  = color.FgHiRed
	headColor = color.FgHiCyan
	okColor   = color.FgHiGreen
)

var (
	errInvalidConfig = errors.New("invalid configuration")
	errDataImport    = errors.New("failed to import reports")
)

// errorExitCode maps the error taxonomy to process exit codes
func errorExitCode(err error) int {
	var dErr *report.DataError
	var cErr *artifact.ArtifactCorruptError
	switch {
	case errors.Is(err, errInvalidConfig):
		return exitErrorInvalidConfig
	case errors.As(err, &dErr):
		return exitErrorInvalidData
	case errors.Is(err, artifact.ErrArtifactMissing), errors.As(err, &cErr):
		return exitErrorArtifactUnavailable
	case errors.Is(err, eval.ErrInsufficientData), errors.Is(err, eval.ErrNoViableCandidate):
		return exitErrorTrainingFailed
	case errors.Is(err, errDataImport):
		return exitErrorDataImportFailed
	}
	return exitErrorGeneralFailure
}

func applyTrainOverrides(conf *cnf.Conf, source, dataPath, out string) error {
	if source != "" {
		conf.Training.DataSource = source
	}
	if dataPath != "" {
		switch conf.Training.DataSource {
		case cnf.DataSourceSQLite:
			conf.Training.SQLitePath = dataPath
		default:
			conf.Training.CSVPath = dataPath
		}
	}
	if out != "" {
		conf.ArtifactPath = out
	}
	if err := cnf.ValidateAndDefaults(conf); err != nil {
		return fmt.Errorf("%w: %w", errInvalidConfig, err)
	}
	return nil
}

func runActionScore(severity, confirmations int, trust, ageHours float64) error {
	sev := report.Severity(severity)
	if !sev.Valid() {
		return &report.DataError{
			Field: "severity", Err: fmt.Errorf("must be in range 1-4, found %d", severity)}
	}
	if trust < 0 || trust > 1 {
		return &report.DataError{
			Field: "reporter_trust", Err: fmt.Errorf("must be in range 0.0-1.0, found %v", trust)}
	}
	if ageHours < 0 || confirmations < 0 {
		return &report.DataError{
			Field: "age, confirmations", Err: errors.New("cannot be negative")}
	}
	score := urgency.Score(sev, confirmations, trust, ageHours)
	fmt.Printf("%.2f\n", score)
	if score >= urgency.DefaultAlertThreshold {
		color.New(errColor).Fprintln(os.Stderr, "alert threshold reached")
	}
	return nil
}
