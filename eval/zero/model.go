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

package zero

import (
	"context"
	"fmt"

	"github.com/floodreport/sevclass/eval/predict"
	"github.com/vmihailenco/msgpack/v5"
)

// MajorityModel always predicts the most frequent class of its training
// data. Votes are the class frequencies.
type MajorityModel struct {
	Priors []float64 `msgpack:"priors"`
}

func (zm *MajorityModel) Fit(ctx context.Context, x [][]float64, y []int) error {
	if len(y) == 0 {
		return fmt.Errorf("cannot fit majority model - no data")
	}
	zm.Priors = make([]float64, predict.NumClasses)
	for _, v := range y {
		zm.Priors[v]++
	}
	for i := range zm.Priors {
		zm.Priors[i] /= float64(len(y))
	}
	return nil
}

func (zm *MajorityModel) Predict(x []float64) predict.Prediction {
	return predict.FromVotes(zm.Priors)
}

func (zm *MajorityModel) Kind() predict.Kind {
	return predict.KindMajorityBaseline
}

func (zm *MajorityModel) GetInfo() string {
	return fmt.Sprintf("majority class model, priors: %v", zm.Priors)
}

func (zm *MajorityModel) Encode() ([]byte, error) {
	return msgpack.Marshal(zm)
}

func NewModel() *MajorityModel {
	return &MajorityModel{}
}
