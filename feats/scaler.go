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
)

// Scaler standardizes features to zero mean and unit variance.
// Columns with (near) zero variance keep the scale of 1.
type Scaler struct {
	Mean []float64
	Std  []float64
}

// FitScaler computes per column mean and (population) standard deviation
func FitScaler(rows [][]float64) (Scaler, error) {
	if len(rows) == 0 {
		return Scaler{}, fmt.Errorf("cannot fit scaler - no data")
	}
	numCols := len(rows[0])
	sc := Scaler{
		Mean: make([]float64, numCols),
		Std:  make([]float64, numCols),
	}
	n := float64(len(rows))
	for _, row := range rows {
		if len(row) != numCols {
			return Scaler{}, fmt.Errorf("cannot fit scaler - inconsistent row length %d (expected %d)", len(row), numCols)
		}
		for j, v := range row {
			sc.Mean[j] += v
		}
	}
	for j := range sc.Mean {
		sc.Mean[j] /= n
	}
	for _, row := range rows {
		for j, v := range row {
			diff := v - sc.Mean[j]
			sc.Std[j] += diff * diff
		}
	}
	for j := range sc.Std {
		sc.Std[j] = math.Sqrt(sc.Std[j] / n)
		if sc.Std[j] < 1e-10 {
			sc.Std[j] = 1.0
		}
	}
	return sc, nil
}

func (sc Scaler) Transform(row []float64) []float64 {
	ans := make([]float64, len(row))
	for j, v := range row {
		ans[j] = (v - sc.Mean[j]) / sc.Std[j]
	}
	return ans
}

func (sc Scaler) TransformAll(rows [][]float64) [][]float64 {
	ans := make([][]float64, len(rows))
	for i, row := range rows {
		ans[i] = sc.Transform(row)
	}
	return ans
}

func (sc Scaler) NumFeatures() int {
	return len(sc.Mean)
}

func (sc Scaler) Equal(other Scaler) bool {
	return slices.Equal(sc.Mean, other.Mean) && slices.Equal(sc.Std, other.Std)
}
