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

package training

import (
	"context"
	"fmt"
	"time"

	"github.com/floodreport/sevclass/artifact"
	"github.com/floodreport/sevclass/cnf"
	"github.com/floodreport/sevclass/eval"
	"github.com/floodreport/sevclass/feats"
	"github.com/floodreport/sevclass/models"
	"github.com/floodreport/sevclass/observability"
	"github.com/floodreport/sevclass/report"
	"github.com/floodreport/sevclass/stats"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Conf         cnf.TrainingConf
	ArtifactPath string

	// Location is used to derive time features
	Location *time.Location

	// Candidates overrides the default candidate panel
	Candidates []eval.Candidate

	// Ledger is optional
	Ledger *stats.Database

	Metrics      *observability.Metrics
	Clock        clockwork.Clock
	ShowProgress bool
}

// Result describes a successful training run
type Result struct {
	RunID        int64
	ArtifactPath string
	Artifact     *artifact.Artifact
	Outcome      *eval.Outcome
	NumSamples   int
}

// Engine runs the whole training pipeline: feature building,
// the model bench, artifact storage and recording of the run.
// A failed run never touches an existing artifact.
type Engine struct {
	conf         cnf.TrainingConf
	artifactPath string
	loc          *time.Location
	candidates   []eval.Candidate
	ledger       *stats.Database
	metrics      *observability.Metrics
	clock        clockwork.Clock
	showProgress bool
}

func NewEngine(opts Options) *Engine {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if len(opts.Candidates) == 0 {
		opts.Candidates = models.DefaultPanel(opts.Conf)
	}
	return &Engine{
		conf:         opts.Conf,
		artifactPath: opts.ArtifactPath,
		loc:          opts.Location,
		candidates:   opts.Candidates,
		ledger:       opts.Ledger,
		metrics:      opts.Metrics,
		clock:        opts.Clock,
		showProgress: opts.ShowProgress,
	}
}

// BuildSamples validates labeled records and turns them into
// bench samples. The returned encoding table is fitted on all
// the records.
func BuildSamples(recs []report.Record, loc *time.Location) ([]eval.Sample, feats.EncodingTable, error) {
	if len(recs) == 0 {
		return nil, feats.EncodingTable{}, fmt.Errorf("no training reports: %w", eval.ErrInsufficientData)
	}
	for i, rec := range recs {
		if err := rec.Validate(true); err != nil {
			if dErr, ok := err.(*report.DataError); ok {
				dErr.Row = i + 1
			}
			return nil, feats.EncodingTable{}, err
		}
	}
	table := feats.FitEncodingTable(recs)
	samples := make([]eval.Sample, len(recs))
	for i, rec := range recs {
		rec.Timestamp = rec.Timestamp.In(loc)
		vec, err := feats.Build(rec, table)
		if err != nil {
			return nil, feats.EncodingTable{}, fmt.Errorf("failed to build features of row %d: %w", i+1, err)
		}
		id := rec.ID
		if id == "" {
			id = report.IdempotentID(rec)
		}
		samples[i] = eval.Sample{ID: id, Features: vec, Label: rec.Severity}
	}
	return samples, table, nil
}

func (e *Engine) recordRun(outcome *eval.Outcome, createdAt time.Time, numSamples int, path string, runErr error) int64 {
	e.metrics.ObserveTraining(runErr == nil)
	if e.ledger == nil {
		return 0
	}
	run, cands := stats.RecordsFromOutcome(outcome, createdAt, numSamples, path, runErr)
	id, err := e.ledger.AddRun(run, cands)
	if err != nil {
		log.Error().Err(err).Msg("failed to record training run")
		return 0
	}
	return id
}

// Train runs the pipeline over labeled reports and saves
// the resulting artifact.
func (e *Engine) Train(ctx context.Context, recs []report.Record) (*Result, error) {
	createdAt := e.clock.Now()
	samples, table, err := BuildSamples(recs, e.loc)
	if err != nil {
		e.recordRun(nil, createdAt, len(recs), "", err)
		return nil, fmt.Errorf("failed to train severity model: %w", err)
	}
	log.Info().
		Int("numSamples", len(samples)).
		Int("numNeighborhoods", table.Size()).
		Int("numCandidates", len(e.candidates)).
		Msg("starting training")

	bench := &eval.Bench{
		Candidates:   e.candidates,
		TestRatio:    e.conf.TestRatio,
		CVFolds:      e.conf.CVFolds,
		Seed:         e.conf.Seed,
		ShowProgress: e.showProgress,
	}
	outcome, err := bench.Run(ctx, samples)
	if err != nil {
		e.recordRun(outcome, createdAt, len(samples), "", err)
		return nil, fmt.Errorf("failed to train severity model: %w", err)
	}
	art, err := artifact.New(outcome, table, createdAt)
	if err != nil {
		e.recordRun(outcome, createdAt, len(samples), "", err)
		return nil, fmt.Errorf("failed to train severity model: %w", err)
	}
	path, err := artifact.Save(art, e.artifactPath)
	if err != nil {
		e.recordRun(outcome, createdAt, len(samples), "", err)
		return nil, fmt.Errorf("failed to train severity model: %w", err)
	}
	runID := e.recordRun(outcome, createdAt, len(samples), path, nil)
	log.Info().
		Str("winner", outcome.Winner.Name).
		Float64("f1", outcome.Winner.Scores.F1).
		Float64("baselineF1", outcome.Baseline.Scores.F1).
		Str("path", path).
		Msg("training finished")
	return &Result{
		RunID:        runID,
		ArtifactPath: path,
		Artifact:     art,
		Outcome:      outcome,
		NumSamples:   len(samples),
	}, nil
}
