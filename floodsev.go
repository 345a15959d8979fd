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
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/czcorpus/cnc-gokit/logging"
	"github.com/fatih/color"
	"github.com/floodreport/sevclass/apiserver"
	"github.com/floodreport/sevclass/cnf"
)

const (
	actionTrain    = "train"
	actionEvaluate = "evaluate"
	actionServer   = "server"
	actionScore    = "score"
	actionVersion  = "version"
	actionHelp     = "help"
)

const (
	exitErrorGeneralFailure = iota + 1
	exitErrorInvalidConfig
	exitErrorDataImportFailed
	exitErrorInvalidData
	exitErrorTrainingFailed
	exitErrorArtifactUnavailable
)

var (
	version   string
	buildDate string
	gitCommit string
)

func topLevelUsage() {
	fmt.Fprintf(os.Stderr, "FLOODSEV - flood report severity classification service\n")
	fmt.Fprintf(os.Stderr, "-----------------------------\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "\t%s\t\t\ttrain and select a severity classifier\n", actionTrain)
	fmt.Fprintf(os.Stderr, "\t%s\t\tevaluate a stored classifier on labeled data\n", actionEvaluate)
	fmt.Fprintf(os.Stderr, "\t%s\t\t\trun the HTTP API server\n", actionServer)
	fmt.Fprintf(os.Stderr, "\t%s\t\t\tcalculate urgency score of a report\n", actionScore)
	fmt.Fprintf(os.Stderr, "\t%s\t\t\tshow version info\n", actionVersion)
	fmt.Fprintf(os.Stderr, "\nUse `floodsev help ACTION` for information about a specific action\n\n")
}

// exitWithError is the only place the process exits with an error,
// actions return errors so their deferred cleanup runs first
func exitWithError(code int, err error) {
	color.New(errColor).Fprintln(os.Stderr, err)
	os.Exit(code)
}

func setup(confPath string) (*cnf.Conf, error) {
	var conf *cnf.Conf
	if confPath == "" {
		conf = &cnf.Conf{}

	} else {
		conf = cnf.LoadConfig(confPath)
	}
	if conf.Logging.Level == "" {
		conf.Logging.Level = "info"
	}
	logging.SetupLogging(conf.Logging)
	if err := cnf.ValidateAndDefaults(conf); err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidConfig, err)
	}
	return conf, nil
}

func cleanVersionInfo(v string) string {
	return strings.TrimLeft(strings.Trim(v, "'"), "v")
}

func runActionVersion(ver apiserver.VersionInfo) {
	fmt.Fprintln(os.Stderr, "floodsev version: ", ver)
}

func main() {
	version := apiserver.VersionInfo{
		Version:   cleanVersionInfo(version),
		BuildDate: cleanVersionInfo(buildDate),
		GitCommit: cleanVersionInfo(gitCommit),
	}

	cmdTrain := flag.NewFlagSet(actionTrain, flag.ExitOnError)
	trainSource := cmdTrain.String("source", "", "override training data source (csv, sqlite, mysql)")
	trainData := cmdTrain.String("data", "", "override path of the CSV or SQLite data file")
	trainOut := cmdTrain.String("out", "", "override artifact path (a file or a directory)")
	trainNoProgress := cmdTrain.Bool("no-progress", false, "do not show the progress bar")
	cmdTrain.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s [options] [config.json]\n\t",
			filepath.Base(os.Args[0]), actionTrain)
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		cmdTrain.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nTrain all the candidate classifiers, select the best one and store it\n")
	}

	cmdEvaluate := flag.NewFlagSet(actionEvaluate, flag.ExitOnError)
	evalModel := cmdEvaluate.String("model", "", "override artifact path")
	cmdEvaluate.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s [options] config.json data.csv\n\t",
			filepath.Base(os.Args[0]), actionEvaluate)
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		cmdEvaluate.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nEvaluate a stored classifier on labeled reports without retraining\n")
	}

	cmdServer := flag.NewFlagSet(actionServer, flag.ExitOnError)
	cmdServer.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s config.json\n\t",
			filepath.Base(os.Args[0]), actionServer)
		fmt.Fprintf(os.Stderr, "\nRun the HTTP API (severity prediction, urgency scoring)\n")
	}

	cmdScore := flag.NewFlagSet(actionScore, flag.ExitOnError)
	scoreSeverity := cmdScore.Int("severity", 0, "report severity (1-4)")
	scoreConfirmations := cmdScore.Int("confirmations", 0, "number of confirmations")
	scoreTrust := cmdScore.Float64("trust", 0.5, "reporter trust (0.0-1.0)")
	scoreAge := cmdScore.Float64("age", 0, "report age in hours")
	cmdScore.Usage = func() {
		fmt.Fprintf(
			os.Stderr,
			"Usage:\t%s %s [options]\n\t",
			filepath.Base(os.Args[0]), actionScore)
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		cmdScore.PrintDefaults()
	}

	cmdVersion := flag.NewFlagSet(actionVersion, flag.ExitOnError)
	cmdVersion.Usage = func() {
		cmdVersion.PrintDefaults()
	}

	cmdHelp := flag.NewFlagSet(actionHelp, flag.ExitOnError)

	action := actionHelp
	if len(os.Args) > 1 {
		action = os.Args[1]
	}

	var err error
	switch action {
	case actionHelp:
		var subj string
		if len(os.Args) > 2 {
			cmdHelp.Parse(os.Args[2:])
			subj = cmdHelp.Arg(0)
		}
		switch subj {
		case actionTrain:
			cmdTrain.Usage()
		case actionEvaluate:
			cmdEvaluate.Usage()
		case actionServer:
			cmdServer.Usage()
		case actionScore:
			cmdScore.Usage()
		default:
			topLevelUsage()
		}
	case actionVersion:
		cmdVersion.Parse(os.Args[2:])
		runActionVersion(version)
	case actionTrain:
		cmdTrain.Parse(os.Args[2:])
		var conf *cnf.Conf
		conf, err = setup(cmdTrain.Arg(0))
		if err == nil {
			err = applyTrainOverrides(conf, *trainSource, *trainData, *trainOut)
		}
		if err == nil {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			err = runActionTrain(ctx, conf, !*trainNoProgress)
			stop()
		}
	case actionEvaluate:
		cmdEvaluate.Parse(os.Args[2:])
		var conf *cnf.Conf
		conf, err = setup(cmdEvaluate.Arg(0))
		if err == nil {
			if *evalModel != "" {
				conf.ArtifactPath = *evalModel
			}
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			err = runActionEvaluate(ctx, conf, cmdEvaluate.Arg(1))
			stop()
		}
	case actionServer:
		cmdServer.Parse(os.Args[2:])
		var conf *cnf.Conf
		conf, err = setup(cmdServer.Arg(0))
		if err == nil {
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			apiserver.Run(ctx, conf, version)
			stop()
		}
	case actionScore:
		cmdScore.Parse(os.Args[2:])
		err = runActionScore(*scoreSeverity, *scoreConfirmations, *scoreTrust, *scoreAge)
	default:
		fmt.Fprintf(os.Stderr, "Unknown action, please use 'help' to get more information\n")
		os.Exit(exitErrorGeneralFailure)
	}
	if err != nil {
		exitWithError(errorExitCode(err), err)
	}
}
