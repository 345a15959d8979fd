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

// kernelCacheBytes limits memory used for cached kernel rows
var kernelCacheBytes = 64 << 20

// kernelCache computes rows of the RBF Gram matrix on demand
// and keeps a bounded number of them. The oldest row is evicted
// first. Rows handed out are never reused so callers may keep them.
type kernelCache struct {
	x        [][]float64
	gamma    float64
	capacity int
	rows     map[int][]float64
	order    []int
}

func newKernelCache(x [][]float64, gamma float64) *kernelCache {
	n := len(x)
	capacity := max(2, kernelCacheBytes/(8*max(n, 1)))
	return &kernelCache{
		x:        x,
		gamma:    gamma,
		capacity: min(capacity, max(n, 2)),
		rows:     make(map[int][]float64),
	}
}

func (kc *kernelCache) row(i int) []float64 {
	if r, ok := kc.rows[i]; ok {
		return r
	}
	if len(kc.order) >= kc.capacity {
		delete(kc.rows, kc.order[0])
		kc.order = kc.order[1:]
	}
	r := make([]float64, len(kc.x))
	for j := range kc.x {
		r[j] = rbf(kc.x[i], kc.x[j], kc.gamma)
	}
	kc.rows[i] = r
	kc.order = append(kc.order, i)
	return r
}

func (kc *kernelCache) size() int {
	return len(kc.rows)
}
