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
	"slices"

	"github.com/floodreport/sevclass/report"
)

// UnseenCategoryError is returned when a neighborhood has no code
// in a fitted encoding table.
type UnseenCategoryError struct {
	Neighborhood string
}

func (e *UnseenCategoryError) Error() string {
	return fmt.Sprintf("neighborhood %q not present in the encoding table", e.Neighborhood)
}

// EncodingTable maps neighborhood names to integer codes.
// Codes are positions of names in lexicographic order.
// A table is immutable once created.
type EncodingTable struct {
	names []string
	codes map[string]int
}

// FitEncodingTable builds a table from all the neighborhoods found
// in the training records.
func FitEncodingTable(records []report.Record) EncodingTable {
	uniq := make(map[string]struct{})
	for _, rec := range records {
		uniq[rec.Neighborhood] = struct{}{}
	}
	names := make([]string, 0, len(uniq))
	for k := range uniq {
		names = append(names, k)
	}
	slices.Sort(names)
	return newTable(names)
}

// NewEncodingTable recreates a table from its names as returned
// by EncodingTable.Names (i.e. sorted, no duplicates). This is
// used when loading stored models.
func NewEncodingTable(names []string) (EncodingTable, error) {
	if len(names) == 0 {
		return EncodingTable{}, fmt.Errorf("empty encoding table")
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			return EncodingTable{}, fmt.Errorf("encoding table names not sorted or not unique at %d", i)
		}
	}
	return newTable(slices.Clone(names)), nil
}

func newTable(names []string) EncodingTable {
	codes := make(map[string]int, len(names))
	for i, v := range names {
		codes[v] = i
	}
	return EncodingTable{names: names, codes: codes}
}

func (t EncodingTable) Code(neighborhood string) (int, bool) {
	c, ok := t.codes[neighborhood]
	return c, ok
}

// Names returns a copy of the encoded names ordered by their codes.
func (t EncodingTable) Names() []string {
	return slices.Clone(t.names)
}

func (t EncodingTable) Size() int {
	return len(t.names)
}

func (t EncodingTable) Equal(other EncodingTable) bool {
	return slices.Equal(t.names, other.names)
}
