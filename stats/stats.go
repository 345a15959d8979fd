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

package stats

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

// Database is a ledger of training runs. Each run is stored
// together with scores of all the evaluated candidates.
type Database struct {
	db *sql.DB
}

func (database *Database) createTrainingRunTable() error {
	_, err := database.db.Exec(
		"CREATE TABLE training_run (" +
			"id INTEGER PRIMARY KEY AUTOINCREMENT, " +
			"created INTEGER NOT NULL, " +
			"num_samples INTEGER NOT NULL, " +
			"winner TEXT, " +
			"winner_f1 FLOAT, " +
			"baseline_f1 FLOAT, " +
			"artifact_path TEXT, " +
			"error TEXT, " +
			"importance TEXT" +
			")",
	)
	if err != nil {
		return fmt.Errorf("failed to create table training_run: %w", err)
	}
	log.Info().Msg("created table `training_run`")
	return nil
}

func (database *Database) createCandidateTable() error {
	_, err := database.db.Exec(
		"CREATE TABLE training_candidate (" +
			"run_id INTEGER NOT NULL, " +
			"name TEXT NOT NULL, " +
			"kind TEXT NOT NULL, " +
			"accuracy FLOAT, " +
			"precision FLOAT, " +
			"recall FLOAT, " +
			"f1 FLOAT, " +
			"cv_mean FLOAT, " +
			"cv_std FLOAT, " +
			"fit_time FLOAT, " +
			"skipped INT NOT NULL DEFAULT 0, " +
			"skip_reason TEXT, " +
			"is_winner INT NOT NULL DEFAULT 0, " +
			"is_baseline INT NOT NULL DEFAULT 0, " +
			"mean_roc_auc FLOAT, " +
			"mean_avg_precision FLOAT, " +
			"class_curves TEXT, " +
			"PRIMARY KEY(run_id, name), " +
			"FOREIGN KEY(run_id) REFERENCES training_run(id)" +
			")",
	)
	if err != nil {
		return fmt.Errorf("failed to create table training_candidate: %w", err)
	}
	log.Info().Msg("created table `training_candidate`")
	return nil
}

func (database *Database) tableExists(tn string) (bool, error) {
	ans := database.db.QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name = ?", tn)
	var nm sql.NullString
	err := ans.Scan(&nm)
	if err == sql.ErrNoRows {
		return false, nil

	} else if err != nil {
		return false, fmt.Errorf("failed to determine existence of table %s: %w", tn, err)
	}
	return true, nil
}

// Init creates missing tables
func (database *Database) Init() error {
	tables := []struct {
		name   string
		create func() error
	}{
		{"training_run", database.createTrainingRunTable},
		{"training_candidate", database.createCandidateTable},
	}
	for _, tbl := range tables {
		ex, err := database.tableExists(tbl.name)
		if err != nil {
			return fmt.Errorf("failed to init table %s: %w", tbl.name, err)
		}
		if ex {
			log.Debug().Str("table", tbl.name).Msg("table already exists")
			continue
		}
		if err := tbl.create(); err != nil {
			return err
		}
	}
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

// AddRun stores a run with its candidates in a single transaction
// and returns the new run ID.
func (database *Database) AddRun(run RunRecord, cands []CandidateRecord) (int64, error) {
	imp, err := json.Marshal(run.Importance)
	if err != nil {
		return -1, fmt.Errorf("failed to add training run: %w", err)
	}
	tx, err := database.db.Begin()
	if err != nil {
		return -1, fmt.Errorf("failed to add training run: %w", err)
	}
	res, err := tx.Exec(
		"INSERT INTO training_run "+
			"(created, num_samples, winner, winner_f1, baseline_f1, artifact_path, error, importance) "+
			"VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		run.CreatedAt.Unix(),
		run.NumSamples,
		run.Winner,
		run.WinnerF1,
		run.BaselineF1,
		run.ArtifactPath,
		run.Error,
		string(imp),
	)
	if err != nil {
		tx.Rollback()
		return -1, fmt.Errorf("failed to add training run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		tx.Rollback()
		return -1, fmt.Errorf("failed to add training run: %w", err)
	}
	for _, c := range cands {
		curves, err := json.Marshal(c.Curves)
		if err != nil {
			tx.Rollback()
			return -1, fmt.Errorf("failed to add training candidate %s: %w", c.Name, err)
		}
		_, err = tx.Exec(
			"INSERT INTO training_candidate "+
				"(run_id, name, kind, accuracy, precision, recall, f1, cv_mean, cv_std, "+
				"fit_time, skipped, skip_reason, is_winner, is_baseline, "+
				"mean_roc_auc, mean_avg_precision, class_curves) "+
				"VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			runID,
			c.Name,
			c.Kind,
			c.Accuracy,
			c.Precision,
			c.Recall,
			c.F1,
			c.CVMean,
			c.CVStd,
			c.FitTime.Seconds(),
			boolToInt(c.Skipped),
			c.SkipReason,
			boolToInt(c.IsWinner),
			boolToInt(c.IsBaseline),
			c.MeanROCAUC,
			c.MeanAP,
			string(curves),
		)
		if err != nil {
			tx.Rollback()
			return -1, fmt.Errorf("failed to add training candidate %s: %w", c.Name, err)
		}
	}
	if err := tx.Commit(); err != nil {
		tx.Rollback()
		return -1, fmt.Errorf("failed to add training run: %w", err)
	}
	return runID, nil
}

// GetRuns returns stored runs, newest first
func (database *Database) GetRuns(filter ListFilter) ([]RunRecord, error) {
	query := "SELECT id, created, num_samples, winner, winner_f1, baseline_f1, " +
		"artifact_path, error, importance FROM training_run WHERE %s ORDER BY id DESC"
	whereChunks := make([]string, 0, 2)
	whereChunks = append(whereChunks, "1 = 1")
	if filter.Successful != nil {
		if *filter.Successful {
			whereChunks = append(whereChunks, "(error IS NULL OR error = '')")

		} else {
			whereChunks = append(whereChunks, "error <> ''")
		}
	}
	query = fmt.Sprintf(query, strings.Join(whereChunks, " AND "))
	args := []any{}
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	rows, err := database.db.Query(query, args...)
	if err != nil {
		return []RunRecord{}, fmt.Errorf("failed to fetch training runs: %w", err)
	}
	defer rows.Close()
	ans := make([]RunRecord, 0, 20)
	for rows.Next() {
		var rec RunRecord
		var created int64
		var winner, artifactPath, runErr, imp sql.NullString
		var winnerF1, baselineF1 sql.NullFloat64
		err := rows.Scan(
			&rec.ID,
			&created,
			&rec.NumSamples,
			&winner,
			&winnerF1,
			&baselineF1,
			&artifactPath,
			&runErr,
			&imp,
		)
		if err != nil {
			return []RunRecord{}, fmt.Errorf("failed to fetch training runs: %w", err)
		}
		rec.CreatedAt = time.Unix(created, 0)
		rec.Winner = winner.String
		rec.WinnerF1 = winnerF1.Float64
		rec.BaselineF1 = baselineF1.Float64
		rec.ArtifactPath = artifactPath.String
		rec.Error = runErr.String
		if imp.Valid && imp.String != "" {
			if err := json.Unmarshal([]byte(imp.String), &rec.Importance); err != nil {
				return []RunRecord{}, fmt.Errorf("failed to decode importance of run %d: %w", rec.ID, err)
			}
		}
		ans = append(ans, rec)
	}
	return ans, rows.Err()
}

// GetRunCandidates returns candidates of a run ordered by F1 (desc)
func (database *Database) GetRunCandidates(runID int64) ([]CandidateRecord, error) {
	rows, err := database.db.Query(
		"SELECT run_id, name, kind, accuracy, precision, recall, f1, cv_mean, cv_std, "+
			"fit_time, skipped, skip_reason, is_winner, is_baseline, "+
			"mean_roc_auc, mean_avg_precision, class_curves "+
			"FROM training_candidate WHERE run_id = ? ORDER BY f1 DESC, name",
		runID,
	)
	if err != nil {
		return []CandidateRecord{}, fmt.Errorf("failed to fetch training candidates: %w", err)
	}
	defer rows.Close()
	ans := make([]CandidateRecord, 0, 10)
	for rows.Next() {
		var c CandidateRecord
		var fitTime float64
		var skipReason, curves sql.NullString
		var meanAUC, meanAP sql.NullFloat64
		err := rows.Scan(
			&c.RunID,
			&c.Name,
			&c.Kind,
			&c.Accuracy,
			&c.Precision,
			&c.Recall,
			&c.F1,
			&c.CVMean,
			&c.CVStd,
			&fitTime,
			&c.Skipped,
			&skipReason,
			&c.IsWinner,
			&c.IsBaseline,
			&meanAUC,
			&meanAP,
			&curves,
		)
		if err != nil {
			return []CandidateRecord{}, fmt.Errorf("failed to fetch training candidates: %w", err)
		}
		c.FitTime = time.Duration(fitTime * float64(time.Second))
		c.SkipReason = skipReason.String
		c.MeanROCAUC = meanAUC.Float64
		c.MeanAP = meanAP.Float64
		if curves.Valid && curves.String != "" {
			if err := json.Unmarshal([]byte(curves.String), &c.Curves); err != nil {
				return []CandidateRecord{}, fmt.Errorf(
					"failed to decode curves of candidate %s: %w", c.Name, err)
			}
		}
		ans = append(ans, c)
	}
	return ans, rows.Err()
}

func (database *Database) Close() error {
	return database.db.Close()
}

func NewDatabase(path string) (*Database, error) {
	dbConn, err := sql.Open("sqlite3", "file:"+path)
	if err != nil {
		return nil, fmt.Errorf("failed to open training ledger: %w", err)
	}
	return &Database{
		db: dbConn,
	}, nil
}
