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

package report

import "fmt"

// DataError describes malformed or missing training input.
// Row is 1-based (0 = unknown), excluding any header line.
type DataError struct {
	Row   int
	Field string
	Err   error
}

func (e *DataError) Error() string {
	if e.Row > 0 {
		return fmt.Sprintf("invalid report data at row %d, field %s: %s", e.Row, e.Field, e.Err)
	}
	return fmt.Sprintf("invalid report data, field %s: %s", e.Field, e.Err)
}

func (e *DataError) Unwrap() error {
	return e.Err
}
