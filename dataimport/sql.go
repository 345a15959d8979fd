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
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/floodreport/sevclass/cnf"
	"github.com/floodreport/sevclass/report"
	"github.com/go-sql-driver/mysql"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// SQLSource reads reports from a table with columns
// timestamp, latitude, longitude, neighborhood, confirmation_count
// and optionally id, severity, reporter_trust.
// The optional columns may also contain NULLs.
//
// Timestamps are read as text so naive values can be interpreted
// in the configured location regardless of the driver.
type SQLSource struct {
	conn     *sql.DB
	table    string
	textType string
	loc      *time.Location
}

func newSQLSource(conn *sql.DB, table, textType string, loc *time.Location) (*SQLSource, error) {
	if !tableNameRegexp.MatchString(table) {
		conn.Close()
		return nil, fmt.Errorf("invalid reports table name '%s'", table)
	}
	if loc == nil {
		loc = time.Local
	}
	return &SQLSource{conn: conn, table: table, textType: textType, loc: loc}, nil
}

// NewSQLiteSource opens a SQLite database file. Naive timestamps
// stored in the database are interpreted in `loc`.
func NewSQLiteSource(path, table string, loc *time.Location) (*SQLSource, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reports database: %w", err)
	}
	return newSQLSource(db, table, "TEXT", loc)
}

func NewMySQLSource(conf cnf.MySQLConf, table string, loc *time.Location) (*SQLSource, error) {
	mconf := mysql.NewConfig()
	mconf.Net = "tcp"
	mconf.Addr = conf.Host
	mconf.User = conf.User
	mconf.Passwd = conf.Passwd
	mconf.DBName = conf.DB
	db, err := sql.Open("mysql", mconf.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open reports database: %w", err)
	}
	return newSQLSource(db, table, "CHAR", loc)
}

// columns returns the lowercased column names of the reports table
func (src *SQLSource) columns(ctx context.Context) (map[string]bool, error) {
	rows, err := src.conn.QueryContext(ctx, fmt.Sprintf("SELECT * FROM %s LIMIT 0", src.table))
	if err != nil {
		return nil, fmt.Errorf("failed to inspect reports table: %w", err)
	}
	defer rows.Close()
	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to inspect reports table: %w", err)
	}
	ans := make(map[string]bool, len(names))
	for _, n := range names {
		ans[strings.ToLower(n)] = true
	}
	return ans, nil
}

// ReadReports fetches all the reports ordered by their timestamp.
// The id, severity and reporter_trust columns are optional. Missing
// ids are replaced by IdempotentID, missing trust by DefaultReporterTrust.
func (src *SQLSource) ReadReports(ctx context.Context) ([]report.Record, error) {
	tableCols, err := src.columns(ctx)
	if err != nil {
		return nil, err
	}
	for _, col := range requiredColumns {
		if !tableCols[col] {
			return nil, &report.DataError{Field: col, Err: errors.New("missing column")}
		}
	}
	selected := []string{
		fmt.Sprintf("CAST(%s AS %s)", colTimestamp, src.textType),
		colLatitude, colLongitude, colNeighborhood, colConfirmations,
	}
	for _, col := range []string{colID, colSeverity, colReporterTrust} {
		if tableCols[col] {
			selected = append(selected, col)
		}
	}
	order := colTimestamp
	if tableCols[colID] {
		order += ", " + colID
	}
	rows, err := src.conn.QueryContext(
		ctx,
		fmt.Sprintf(
			"SELECT %s FROM %s ORDER BY %s",
			strings.Join(selected, ", "), src.table, order,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch reports: %w", err)
	}
	defer rows.Close()
	ans := make([]report.Record, 0, 100)
	for row := 1; rows.Next(); row++ {
		var rec report.Record
		var ts string
		var id sql.NullString
		var severity sql.NullInt64
		var trust sql.NullFloat64
		dest := []any{&ts, &rec.Latitude, &rec.Longitude, &rec.Neighborhood, &rec.Confirmations}
		if tableCols[colID] {
			dest = append(dest, &id)
		}
		if tableCols[colSeverity] {
			dest = append(dest, &severity)
		}
		if tableCols[colReporterTrust] {
			dest = append(dest, &trust)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, &report.DataError{Row: row, Field: "*", Err: err}
		}
		rec.Timestamp, err = ParseTimestamp(ts, src.loc)
		if err != nil {
			return nil, &report.DataError{Row: row, Field: colTimestamp, Err: err}
		}
		if severity.Valid {
			rec.Severity = report.Severity(severity.Int64)
		}
		rec.ReporterTrust = report.DefaultReporterTrust
		if trust.Valid {
			rec.ReporterTrust = trust.Float64
		}
		rec.ID = id.String
		if rec.ID == "" {
			rec.ID = report.IdempotentID(rec)
		}
		ans = append(ans, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to fetch reports: %w", err)
	}
	log.Info().Str("table", src.table).Int("numReports", len(ans)).Msg("read reports from database")
	return ans, nil
}

func (src *SQLSource) Close() error {
	return src.conn.Close()
}
