// Copyright 2024 Tomas Machalek <tomas.machalek@gmail.com>
// Copyright 2024 Institute of the Czech National Corpus,
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
	"fmt"
	"regexp"
	"time"

	"github.com/floodreport/sevclass/cnf"
	"github.com/floodreport/sevclass/report"
)

var tableNameRegexp = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Source provides the flat table of historical reports
type Source interface {
	ReadReports(ctx context.Context) ([]report.Record, error)
	Close() error
}

// Open creates a report source based on the training configuration.
// Naive timestamps are interpreted in `loc`.
func Open(conf cnf.TrainingConf, loc *time.Location) (Source, error) {
	switch conf.DataSource {
	case cnf.DataSourceCSV, "":
		return NewCSVSource(conf.CSVPath, loc), nil
	case cnf.DataSourceSQLite:
		return NewSQLiteSource(conf.SQLitePath, conf.ReportsTable, loc)
	case cnf.DataSourceMySQL:
		return NewMySQLSource(conf.MySQL, conf.ReportsTable, loc)
	}
	return nil, fmt.Errorf("unknown data source '%s'", conf.DataSource)
}
