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

package dataimport

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/floodreport/sevclass/report"
	"github.com/rs/zerolog/log"
)

const (
	colID            = "id"
	colTimestamp     = "timestamp"
	colLatitude      = "latitude"
	colLongitude     = "longitude"
	colNeighborhood  = "neighborhood"
	colConfirmations = "confirmation_count"
	colSeverity      = "severity"
	colReporterTrust = "reporter_trust"
)

// headerAliases maps accepted header names to canonical columns.
// Portuguese names come from the original dashboard exports.
var headerAliases = map[string]string{
	"id":                   colID,
	"id_relatorio":         colID,
	"timestamp":            colTimestamp,
	"data_hora":            colTimestamp,
	"latitude":             colLatitude,
	"longitude":            colLongitude,
	"neighborhood":         colNeighborhood,
	"bairro":               colNeighborhood,
	"confirmation_count":   colConfirmations,
	"confirmations":        colConfirmations,
	"confirmacoes":         colConfirmations,
	"total_confirmacoes":   colConfirmations,
	"severity":             colSeverity,
	"nivel_severidade":     colSeverity,
	"reporter_trust":       colReporterTrust,
	"nivel_confiabilidade": colReporterTrust,
}

var requiredColumns = []string{
	colTimestamp, colLatitude, colLongitude, colNeighborhood, colConfirmations,
}

var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05.999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02",
}

// ParseTimestamp accepts RFC3339 timestamps and a few common
// naive layouts. Naive values are interpreted in `loc`.
func ParseTimestamp(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, v, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unsupported timestamp format '%s'", v)
}

// CSVSource reads reports from a CSV file with a header line
type CSVSource struct {
	path string
	loc  *time.Location
}

func NewCSVSource(path string, loc *time.Location) *CSVSource {
	if loc == nil {
		loc = time.Local
	}
	return &CSVSource{path: path, loc: loc}
}

func (src *CSVSource) ReadReports(ctx context.Context) ([]report.Record, error) {
	f, err := os.Open(src.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reports CSV: %w", err)
	}
	defer f.Close()
	ans, err := ReadCSV(ctx, f, src.loc)
	if err != nil {
		return nil, fmt.Errorf("failed to read reports CSV %s: %w", src.path, err)
	}
	log.Info().Str("path", src.path).Int("numReports", len(ans)).Msg("read reports from CSV")
	return ans, nil
}

func (src *CSVSource) Close() error {
	return nil
}

func mapHeader(header []string) (map[string]int, error) {
	ans := make(map[string]int)
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		col, ok := headerAliases[name]
		if !ok {
			continue
		}
		if _, dup := ans[col]; dup {
			return nil, fmt.Errorf("column %s specified more than once", col)
		}
		ans[col] = i
	}
	for _, col := range requiredColumns {
		if _, ok := ans[col]; !ok {
			return nil, &report.DataError{Field: col, Err: errors.New("missing column")}
		}
	}
	return ans, nil
}

// ReadCSV parses a report table. Rows come out in the file order.
// Missing reporter trust is substituted by report.DefaultReporterTrust
// and missing ids by report.IdempotentID.
func ReadCSV(ctx context.Context, r io.Reader, loc *time.Location) ([]report.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	header, err := cr.Read()
	if err == io.EOF {
		return []report.Record{}, nil

	} else if err != nil {
		return nil, err
	}
	cols, err := mapHeader(header)
	if err != nil {
		return nil, err
	}
	ans := make([]report.Record, 0, 100)
	for row := 1; ; row++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fields, err := cr.Read()
		if err == io.EOF {
			break

		} else if err != nil {
			return nil, err
		}
		rec, err := parseRow(fields, cols, loc)
		if err != nil {
			var dErr *report.DataError
			if errors.As(err, &dErr) {
				dErr.Row = row
			}
			return nil, err
		}
		ans = append(ans, rec)
	}
	return ans, nil
}

func parseRow(fields []string, cols map[string]int, loc *time.Location) (report.Record, error) {
	get := func(col string) string {
		i, ok := cols[col]
		if !ok || i >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[i])
	}
	var rec report.Record
	var err error
	rec.Timestamp, err = ParseTimestamp(get(colTimestamp), loc)
	if err != nil {
		return rec, &report.DataError{Field: colTimestamp, Err: err}
	}
	rec.Latitude, err = strconv.ParseFloat(get(colLatitude), 64)
	if err != nil {
		return rec, &report.DataError{Field: colLatitude, Err: err}
	}
	rec.Longitude, err = strconv.ParseFloat(get(colLongitude), 64)
	if err != nil {
		return rec, &report.DataError{Field: colLongitude, Err: err}
	}
	rec.Neighborhood = get(colNeighborhood)
	rec.Confirmations, err = parseCount(get(colConfirmations))
	if err != nil {
		return rec, &report.DataError{Field: colConfirmations, Err: err}
	}
	if v := get(colSeverity); v != "" {
		sev, err := parseCount(v)
		if err != nil {
			return rec, &report.DataError{Field: colSeverity, Err: err}
		}
		rec.Severity = report.Severity(sev)
	}
	rec.ReporterTrust = report.DefaultReporterTrust
	if v := get(colReporterTrust); v != "" {
		rec.ReporterTrust, err = strconv.ParseFloat(v, 64)
		if err != nil {
			return rec, &report.DataError{Field: colReporterTrust, Err: err}
		}
	}
	rec.ID = get(colID)
	if rec.ID == "" {
		rec.ID = report.IdempotentID(rec)
	}
	return rec, nil
}

// parseCount parses integers, also when exported as floats (e.g. "3.0")
func parseCount(v string) (int, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value '%s'", v)
	}
	if f != float64(int(f)) {
		return 0, fmt.Errorf("non-integer value '%s'", v)
	}
	return int(f), nil
}
