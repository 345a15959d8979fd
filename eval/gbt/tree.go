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

package gbt

import (
	"cmp"
	"fmt"
	"math"
	"slices"
)

// Node is a node of a regression tree stored in a flat array.
// Leaves have Feature == -1.
type Node struct {
	Feature   int     `msgpack:"f"`
	Threshold float64 `msgpack:"t"`
	Left      int     `msgpack:"l"`
	Right     int     `msgpack:"r"`
	Value     float64 `msgpack:"v"`
}

func (n Node) IsLeaf() bool {
	return n.Feature < 0
}

// Tree is a regression tree. Samples with x[Feature] <= Threshold
// go to the Left child.
type Tree struct {
	Nodes []Node `msgpack:"nodes"`
}

func (t *Tree) Eval(x []float64) float64 {
	var i int
	for {
		nd := t.Nodes[i]
		if nd.IsLeaf() {
			return nd.Value
		}
		if x[nd.Feature] <= nd.Threshold {
			i = nd.Left

		} else {
			i = nd.Right
		}
	}
}

// validate checks the tree can be evaluated on vectors of size
// numFeatures. Children are always stored after their parent which
// also rules out cycles.
func (t *Tree) validate(numFeatures int) error {
	if len(t.Nodes) == 0 {
		return fmt.Errorf("empty tree")
	}
	for i, nd := range t.Nodes {
		if nd.IsLeaf() {
			continue
		}
		if nd.Feature >= numFeatures {
			return fmt.Errorf("node %d: feature %d out of range", i, nd.Feature)
		}
		if nd.Left <= i || nd.Left >= len(t.Nodes) || nd.Right <= i || nd.Right >= len(t.Nodes) {
			return fmt.Errorf("node %d: invalid child reference", i)
		}
	}
	return nil
}

// leafValueFunc calculates a value of a leaf containing the samples
type leafValueFunc func(idxs []int) float64

type treeBuilder struct {
	x         [][]float64
	target    []float64
	maxDepth  int
	leafValue leafValueFunc
	nodes     []Node
}

type split struct {
	feature   int
	threshold float64
	left      []int
	right     []int
}

// findSplit finds a split minimizing the sum of squared errors
// of both parts. Returns false if no split is possible.
func (tb *treeBuilder) findSplit(idxs []int) (split, bool) {
	n := len(idxs)
	var totalSum, totalSq float64
	for _, i := range idxs {
		totalSum += tb.target[i]
		totalSq += tb.target[i] * tb.target[i]
	}
	parentErr := totalSq - totalSum*totalSum/float64(n)
	bestErr := parentErr
	var best split
	var found bool
	sorted := slices.Clone(idxs)
	for f := range tb.x[idxs[0]] {
		slices.SortStableFunc(sorted, func(a, b int) int {
			return cmp.Compare(tb.x[a][f], tb.x[b][f])
		})
		var leftSum, leftSq float64
		for k := 0; k < n-1; k++ {
			v := tb.target[sorted[k]]
			leftSum += v
			leftSq += v * v
			curr, next := tb.x[sorted[k]][f], tb.x[sorted[k+1]][f]
			if curr == next {
				continue
			}
			nl, nr := float64(k+1), float64(n-k-1)
			rightSum, rightSq := totalSum-leftSum, totalSq-leftSq
			e := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			if e < bestErr-1e-12 {
				bestErr = e
				found = true
				best.feature = f
				best.threshold = curr + (next-curr)/2
				best.left = slices.Clone(sorted[:k+1])
				best.right = slices.Clone(sorted[k+1:])
			}
		}
	}
	return best, found
}

func (tb *treeBuilder) build(idxs []int, depth int) int {
	pos := len(tb.nodes)
	tb.nodes = append(tb.nodes, Node{Feature: -1})
	if depth < tb.maxDepth && len(idxs) >= 2 {
		if sp, ok := tb.findSplit(idxs); ok {
			left := tb.build(sp.left, depth+1)
			right := tb.build(sp.right, depth+1)
			tb.nodes[pos] = Node{
				Feature:   sp.feature,
				Threshold: sp.threshold,
				Left:      left,
				Right:     right,
			}
			return pos
		}
	}
	tb.nodes[pos].Value = tb.leafValue(idxs)
	if math.IsNaN(tb.nodes[pos].Value) {
		tb.nodes[pos].Value = 0
	}
	return pos
}

func fitTree(x [][]float64, target []float64, maxDepth int, leafValue leafValueFunc) Tree {
	tb := &treeBuilder{
		x:         x,
		target:    target,
		maxDepth:  maxDepth,
		leafValue: leafValue,
	}
	idxs := make([]int, len(x))
	for i := range idxs {
		idxs[i] = i
	}
	tb.build(idxs, 0)
	return Tree{Nodes: tb.nodes}
}
