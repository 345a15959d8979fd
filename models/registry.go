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

package models

import (
	"errors"
	"fmt"

	"github.com/floodreport/sevclass/cnf"
	"github.com/floodreport/sevclass/eval"
	"github.com/floodreport/sevclass/eval/gbt"
	"github.com/floodreport/sevclass/eval/logreg"
	"github.com/floodreport/sevclass/eval/predict"
	"github.com/floodreport/sevclass/eval/rf"
	"github.com/floodreport/sevclass/eval/svm"
)

var ErrNoSuchModel = errors.New("no such model")

// DefaultPanel returns the evaluated candidates in their declaration
// order (which is also the final tie-break of the model selection).
func DefaultPanel(conf cnf.TrainingConf) []eval.Candidate {
	gbtParams := gbt.Params{
		NumEstimators: conf.GBTEstimators,
		MaxDepth:      conf.GBTMaxDepth,
		LearningRate:  conf.GBTLearningRate,
	}
	svmParams := svm.Params{
		C:     conf.SVMC,
		Gamma: conf.SVMGamma,
		Seed:  conf.Seed,
	}
	logRegParams := logreg.Params{
		Epochs:       conf.LogRegEpochs,
		LearningRate: conf.LogRegLearningRate,
	}
	return []eval.Candidate{
		{
			Name: "random-forest",
			Kind: predict.KindEnsembleForest,
			Params: map[string]any{
				"numTrees": conf.NumTrees,
				"maxDepth": conf.RFMaxDepth,
			},
			New: func() eval.Classifier {
				return rf.NewModel(conf.NumTrees, conf.RFMaxDepth)
			},
		},
		{
			Name: "gradient-boosting",
			Kind: predict.KindGradientBoostedTrees,
			Params: map[string]any{
				"numEstimators": gbtParams.NumEstimators,
				"maxDepth":      gbtParams.MaxDepth,
				"learningRate":  gbtParams.LearningRate,
			},
			New: func() eval.Classifier {
				return gbt.NewModel(gbtParams)
			},
		},
		{
			Name: "svm",
			Kind: predict.KindKernelSVM,
			Params: map[string]any{
				"c":     svmParams.C,
				"gamma": svmParams.Gamma,
			},
			New: func() eval.Classifier {
				return svm.NewModel(svmParams)
			},
		},
		{
			Name: "logistic-regression",
			Kind: predict.KindLinearLogistic,
			Params: map[string]any{
				"epochs":       logRegParams.Epochs,
				"learningRate": logRegParams.LearningRate,
			},
			New: func() eval.Classifier {
				return logreg.NewModel(logRegParams)
			},
		},
	}
}

// Decode restores a fitted classifier from data produced
// by its Encode method.
func Decode(kind predict.Kind, data []byte) (eval.Classifier, error) {
	var clf eval.Classifier
	var err error
	switch kind {
	case predict.KindEnsembleForest:
		clf, err = rf.Decode(data)
	case predict.KindGradientBoostedTrees:
		clf, err = gbt.Decode(data)
	case predict.KindKernelSVM:
		clf, err = svm.Decode(data)
	case predict.KindLinearLogistic:
		clf, err = logreg.Decode(data)
	default:
		return nil, fmt.Errorf("cannot decode model of kind '%s': %w", kind, ErrNoSuchModel)
	}
	if err != nil {
		return nil, err
	}
	return clf, nil
}
