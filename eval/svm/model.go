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

package svm

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/floodreport/sevclass/eval"
	"github.com/floodreport/sevclass/eval/predict"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	DefaultC = 1.0

	tolerance    = 1e-3
	minAlphaStep = 1e-5
	maxPasses    = 5
	maxSweeps    = 200
	alphaEpsilon = 1e-8
)

type Params struct {
	C float64 `msgpack:"c"`

	// Gamma of the RBF kernel. Zero means 1 / (numFeatures * Var(X))
	// computed from the training data.
	Gamma float64 `msgpack:"gamma"`

	Seed uint64 `msgpack:"seed"`
}

// Model is a one-vs-rest kernel SVM with the RBF kernel, trained
// with a simplified SMO. Class probabilities are obtained by softmax
// of decision values. The model expects standardized features.
type Model struct {
	Params Params `msgpack:"params"`

	// Gamma is the actual value used by the kernel
	Gamma float64 `msgpack:"actualGamma"`

	SupportVectors [][]float64 `msgpack:"supportVectors"`

	// Coefs contains alpha * y for each class and support vector
	Coefs [][]float64 `msgpack:"coefs"`

	Bias []float64 `msgpack:"bias"`

	// Present tells which classes were present in training data.
	// Missing classes get zero probability.
	Present []bool `msgpack:"present"`
}

func NewModel(params Params) *Model {
	if params.C <= 0 {
		params.C = DefaultC
	}
	return &Model{Params: params}
}

func (m *Model) Kind() predict.Kind {
	return predict.KindKernelSVM
}

func (m *Model) GetInfo() string {
	return fmt.Sprintf(
		"SVM model (RBF), C: %.3f, gamma: %.4f, support vectors: %d",
		m.Params.C, m.Gamma, len(m.SupportVectors),
	)
}

func rbf(a, b []float64, gamma float64) float64 {
	var d float64
	for i := range a {
		diff := a[i] - b[i]
		d += diff * diff
	}
	return math.Exp(-gamma * d)
}

func scaleGamma(x [][]float64) float64 {
	var sum, sum2 float64
	var n float64
	for _, row := range x {
		for _, v := range row {
			sum += v
			sum2 += v * v
			n++
		}
	}
	mean := sum / n
	variance := sum2/n - mean*mean
	if variance <= 0 {
		return 1.0
	}
	return 1.0 / (float64(len(x[0])) * variance)
}

type binaryProblem struct {
	kernel *kernelCache
	n      int
	c      float64
	y      []float64
	alpha  []float64
	b      float64

	// fx caches the decision function for the training samples (without b)
	fx  []float64
	rng *rand.Rand
}

func (bp *binaryProblem) k(i, j int) float64 {
	if i == j {
		return 1 // RBF
	}
	return bp.kernel.row(i)[j]
}

func (bp *binaryProblem) err(i int) float64 {
	return bp.fx[i] + bp.b - bp.y[i]
}

func (bp *binaryProblem) update(i int, delta float64) {
	coef := bp.y[i] * delta
	row := bp.kernel.row(i)
	for t := range bp.n {
		bp.fx[t] += coef * row[t]
	}
	bp.alpha[i] += delta
}

func (bp *binaryProblem) step(i int) bool {
	ei := bp.err(i)
	yi, ai := bp.y[i], bp.alpha[i]
	if !((yi*ei < -tolerance && ai < bp.c) || (yi*ei > tolerance && ai > 0)) {
		return false
	}
	j := bp.rng.IntN(bp.n - 1)
	if j >= i {
		j++
	}
	ej := bp.err(j)
	yj, aj := bp.y[j], bp.alpha[j]
	var lo, hi float64
	if yi != yj {
		lo, hi = max(0, aj-ai), min(bp.c, bp.c+aj-ai)

	} else {
		lo, hi = max(0, ai+aj-bp.c), min(bp.c, ai+aj)
	}
	if lo == hi {
		return false
	}
	eta := 2*bp.k(i, j) - bp.k(i, i) - bp.k(j, j)
	if eta >= 0 {
		return false
	}
	ajNew := aj - yj*(ei-ej)/eta
	ajNew = max(lo, min(hi, ajNew))
	if math.Abs(ajNew-aj) < minAlphaStep {
		return false
	}
	aiNew := ai + yi*yj*(aj-ajNew)
	b1 := bp.b - ei - yi*(aiNew-ai)*bp.k(i, i) - yj*(ajNew-aj)*bp.k(i, j)
	b2 := bp.b - ej - yi*(aiNew-ai)*bp.k(i, j) - yj*(ajNew-aj)*bp.k(j, j)
	bp.update(i, aiNew-ai)
	bp.update(j, ajNew-aj)
	if aiNew > 0 && aiNew < bp.c {
		bp.b = b1

	} else if ajNew > 0 && ajNew < bp.c {
		bp.b = b2

	} else {
		bp.b = (b1 + b2) / 2
	}
	return true
}

func (bp *binaryProblem) solve(ctx context.Context) error {
	var passes int
	for sweep := 0; passes < maxPasses && sweep < maxSweeps; sweep++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var changed int
		for i := range bp.n {
			if bp.step(i) {
				changed++
			}
		}
		if changed == 0 {
			passes++

		} else {
			passes = 0
		}
	}
	return nil
}

func (m *Model) Fit(ctx context.Context, x [][]float64, y []int) error {
	if len(x) == 0 {
		return fmt.Errorf("failed to train SVM model - no training data provided")
	}
	if len(x) != len(y) {
		return fmt.Errorf("failed to train SVM model - %d samples but %d labels", len(x), len(y))
	}
	m.Present = make([]bool, predict.NumClasses)
	var numPresent int
	for _, c := range y {
		if !m.Present[c] {
			m.Present[c] = true
			numPresent++
		}
	}
	if numPresent < 2 {
		return fmt.Errorf("failed to train SVM model - at least two classes required: %w", eval.ErrInsufficientData)
	}
	m.Gamma = m.Params.Gamma
	if m.Gamma <= 0 {
		m.Gamma = scaleGamma(x)
	}
	n := len(x)
	kernel := newKernelCache(x, m.Gamma)
	rng := rand.New(rand.NewPCG(m.Params.Seed, m.Params.Seed))
	alphas := make([][]float64, predict.NumClasses)
	m.Bias = make([]float64, predict.NumClasses)
	for c := range predict.NumClasses {
		if !m.Present[c] {
			continue
		}
		bp := &binaryProblem{
			kernel: kernel,
			n:      n,
			c:      m.Params.C,
			y:      make([]float64, n),
			alpha:  make([]float64, n),
			fx:     make([]float64, n),
			rng:    rng,
		}
		for i, v := range y {
			if v == c {
				bp.y[i] = 1

			} else {
				bp.y[i] = -1
			}
		}
		if err := bp.solve(ctx); err != nil {
			return err
		}
		for i := range bp.alpha {
			bp.alpha[i] *= bp.y[i]
		}
		alphas[c] = bp.alpha
		m.Bias[c] = bp.b
	}

	m.SupportVectors = nil
	m.Coefs = make([][]float64, predict.NumClasses)
	for i := range n {
		var isSV bool
		for c := range alphas {
			if alphas[c] != nil && math.Abs(alphas[c][i]) > alphaEpsilon {
				isSV = true
				break
			}
		}
		if !isSV {
			continue
		}
		m.SupportVectors = append(m.SupportVectors, slices.Clone(x[i]))
		for c := range alphas {
			var v float64
			if alphas[c] != nil {
				v = alphas[c][i]
			}
			m.Coefs[c] = append(m.Coefs[c], v)
		}
	}
	log.Debug().
		Int("dataSize", n).
		Int("supportVectors", len(m.SupportVectors)).
		Float64("gamma", m.Gamma).
		Msg("trained SVM")
	return nil
}

// Decision returns raw one-vs-rest decision values
func (m *Model) Decision(x []float64) []float64 {
	ans := make([]float64, predict.NumClasses)
	kv := make([]float64, len(m.SupportVectors))
	for s, sv := range m.SupportVectors {
		kv[s] = rbf(sv, x, m.Gamma)
	}
	for c := range ans {
		if !m.Present[c] {
			ans[c] = math.Inf(-1)
			continue
		}
		v := m.Bias[c]
		for s, coef := range m.Coefs[c] {
			v += coef * kv[s]
		}
		ans[c] = v
	}
	return ans
}

func (m *Model) Predict(x []float64) predict.Prediction {
	dec := m.Decision(x)
	mx := math.Inf(-1)
	for _, v := range dec {
		mx = max(mx, v)
	}
	probs := make([]float64, len(dec))
	var sum float64
	for c, v := range dec {
		if math.IsInf(v, -1) {
			continue
		}
		probs[c] = math.Exp(v - mx)
		sum += probs[c]
	}
	for c := range probs {
		probs[c] /= sum
	}
	return predict.FromVotes(probs)
}

func (m *Model) Encode() ([]byte, error) {
	ans, err := msgpack.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to encode SVM model: %w", err)
	}
	return ans, nil
}

func Decode(data []byte) (*Model, error) {
	var m Model
	if err := msgpack.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to decode SVM model: %w", err)
	}
	if len(m.Present) != predict.NumClasses || len(m.Bias) != predict.NumClasses || len(m.Coefs) != predict.NumClasses {
		return nil, fmt.Errorf("failed to decode SVM model: invalid number of classes")
	}
	for c, coefs := range m.Coefs {
		if len(coefs) != len(m.SupportVectors) {
			return nil, fmt.Errorf("failed to decode SVM model: class %d has %d coefficients, expected %d",
				c, len(coefs), len(m.SupportVectors))
		}
	}
	return &m, nil
}
