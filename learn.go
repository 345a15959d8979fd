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
	"time"

	"github.com/fatih/color"
	"github.com/floodreport/sevclass/artifact"
	"github.com/floodreport/sevclass/cnf"
	"github.com/floodreport/sevclass/dataimport"
	"github.com/floodreport/sevclass/eval"
	"github.com/floodreport/sevclass/observability"
	"github.com/floodreport/sevclass/report"
	"github.com/floodreport/sevclass/stats"
	"github.com/floodreport/sevclass/training"
	"github.com/rs/zerolog/log"
)

const numPrintedImportance = 5

func readReports(ctx context.Context, conf *cnf.Conf) ([]report.Record, error) {
	src, err := dataimport.Open(conf.Training, conf.Location())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errDataImport, err)
	}
	defer src.Close()
	recs, err := src.ReadReports(ctx)
	if err != nil {
		var dErr *report.DataError
		if errors.As(err, &dErr) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", errDataImport, err)
	}
	return recs, nil
}

func printCurves(curves []eval.ClassCurve) {
	fmt.Printf("%-10s %8s %8s %8s\n", "severity", "rocAuc", "avgPrec", "support")
	for _, c := range curves {
		fmt.Printf("%-10s %8.3f %8.3f %8d\n", c.Severity, c.ROCAUC, c.AveragePrecision, c.Positives)
	}
	auc, ap := eval.MeanCurves(curves)
	fmt.Printf("%-10s %8.3f %8.3f\n", "mean", auc, ap)
}

func printTradeoffs(tradeoffs []eval.Tradeoff) {
	fmt.Printf("%-22s %-12s %-12s %8s %10s  %s\n", "name", "sensitivity", "specificity", "f1", "fitTime", "scenario")
	for _, t := range tradeoffs {
		fmt.Printf(
			"%-22s %-12s %-12s %8.3f %10s  %s\n",
			t.Name, t.Sensitivity, t.Specificity, t.F1, t.FitTime.Round(time.Millisecond), t.Scenario)
	}
}

func printOutcome(res *training.Result) {
	head := color.New(headColor)
	head.Println("\ncandidates (ordered by selection rule):")
	fmt.Printf("%-22s %-24s %8s %8s %8s %8s %10s\n", "name", "kind", "acc", "f1", "cvMean", "cvStd", "fitTime")
	for _, r := range res.Outcome.Ranking() {
		fmt.Printf(
			"%-22s %-24s %8.3f %8.3f %8.3f %8.3f %10s\n",
			r.Name, r.Kind, r.Scores.Accuracy, r.Scores.F1, r.CVMean, r.CVStd, r.FitTime.Round(time.Millisecond))
	}
	for _, r := range res.Outcome.Results {
		if r.Skipped {
			color.New(errColor).Printf("%-22s skipped: %s\n", r.Name, r.SkipReason)
		}
	}
	if b := res.Outcome.Baseline; b != nil {
		fmt.Printf("%-22s %-24s %8.3f %8.3f\n", b.Name, b.Kind, b.Scores.Accuracy, b.Scores.F1)
	}

	winner := res.Outcome.Winner
	head.Printf("\nwinner: %s\n", winner.Name)
	fmt.Print(winner.Scores.Report())
	head.Println("\nconfusion matrix (held-out data):")
	fmt.Print(winner.Confusion.String())
	head.Println("\none-vs-rest ranking quality (held-out data):")
	printCurves(winner.Curves)
	head.Println("\ntrade-offs:")
	printTradeoffs(res.Outcome.Tradeoffs())

	head.Println("\nfeature importance:")
	for i, imp := range res.Outcome.Importance {
		if i >= numPrintedImportance {
			break
		}
		fmt.Printf("%-20s %.4f\n", imp.Column, imp.Importance)
	}
	color.New(okColor).Printf("\nartifact saved to %s\n", res.ArtifactPath)
}

func runActionTrain(ctx context.Context, conf *cnf.Conf, showProgress bool) error {
	recs, err := readReports(ctx, conf)
	if err != nil {
		return err
	}
	var ledger *stats.Database
	if conf.Training.LedgerPath != "" {
		ledger, err = stats.NewDatabase(conf.Training.LedgerPath)
		if err != nil {
			return err
		}
		defer ledger.Close()
		if err := ledger.Init(); err != nil {
			return err
		}
	}
	engine := training.NewEngine(training.Options{
		Conf:         conf.Training,
		ArtifactPath: conf.ArtifactPath,
		Location:     conf.Location(),
		Ledger:       ledger,
		Metrics:      observability.NewMetrics(nil),
		ShowProgress: showProgress,
	})
	res, err := engine.Train(ctx, recs)
	if err != nil {
		return err
	}
	printOutcome(res)
	if res.RunID > 0 {
		log.Info().Int64("runId", res.RunID).Msg("training run recorded")
	}
	return nil
}

func runActionEvaluate(ctx context.Context, conf *cnf.Conf, dataPath string) error {
	if dataPath == "" {
		return fmt.Errorf("%w: labeled data file not specified", errInvalidConfig)
	}
	art, err := artifact.Load(conf.ArtifactPath)
	if err != nil {
		return err
	}
	recs, err := dataimport.NewCSVSource(dataPath, conf.Location()).ReadReports(ctx)
	if err != nil {
		return err
	}
	rpt, err := training.Evaluate(art, recs, conf.Location())
	if err != nil {
		return err
	}
	head := color.New(headColor)
	head.Printf("model: %s (%s), trained %s\n", art.CandidateName, art.Kind, art.CreatedAt.Format("2006-01-02 15:04"))
	fmt.Printf("reports: %d, evaluated: %d, unseen neighborhood: %d\n", rpt.NumReports, rpt.NumEvaluated, rpt.NumUnseen)
	fmt.Print(rpt.Scores.Report())
	head.Println("\nconfusion matrix:")
	fmt.Print(rpt.Confusion.String())
	head.Println("\none-vs-rest ranking quality:")
	printCurves(rpt.Curves)
	if rpt.NumUnseen > 0 {
		fmt.Fprintf(os.Stderr, "%d reports were skipped due to neighborhoods unknown to the model\n", rpt.NumUnseen)
	}
	return nil
}
