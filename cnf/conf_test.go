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

package cnf

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAndDefaults(t *testing.T) {
	conf := &Conf{}
	require.NoError(t, ValidateAndDefaults(conf))
	assert.Equal(t, dfltArtifactPath, conf.ArtifactPath)
	assert.Equal(t, 30*time.Second, conf.ArtifactRetryInterval())
	assert.Equal(t, time.Duration(0), conf.ArtifactWatchInterval())
	assert.Equal(t, 75.0, conf.UrgencyAlertThreshold)
	assert.Equal(t, DataSourceCSV, conf.Training.DataSource)
	assert.Equal(t, 0.3, conf.Training.TestRatio)
	assert.Equal(t, 3, conf.Training.CVFolds)
	assert.Equal(t, uint64(42), conf.Training.Seed)
	assert.Equal(t, 100, conf.Training.NumTrees)
	assert.Equal(t, 5, conf.Training.RFMaxDepth)
	assert.Equal(t, 3, conf.Training.GBTMaxDepth)
	assert.Equal(t, "reports", conf.Training.ReportsTable)
	assert.Equal(t, "America/Recife", conf.Location().String())
}

func TestValidateRejectsInvalid(t *testing.T) {
	assert.Error(t, ValidateAndDefaults(&Conf{TimeZone: "Nowhere/Nothing"}))
	assert.Error(t, ValidateAndDefaults(&Conf{UrgencyAlertThreshold: 120}))
	assert.Error(t, ValidateAndDefaults(&Conf{Training: TrainingConf{DataSource: "excel"}}))
	assert.Error(t, ValidateAndDefaults(&Conf{Training: TrainingConf{CVFolds: 1}}))
	assert.Error(t, ValidateAndDefaults(&Conf{Training: TrainingConf{TestRatio: 1.5}}))
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "conf.json")
	data, err := json.Marshal(map[string]any{
		"listenPort":   9090,
		"artifactPath": "/tmp/x.msgpack",
		"training":     map[string]any{"dataSource": "sqlite", "sqlitePath": "/tmp/r.db", "numTrees": 20},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	conf := LoadConfig(path)
	require.NoError(t, ValidateAndDefaults(conf))
	assert.Equal(t, path, conf.SrcPath())
	assert.Equal(t, 9090, conf.ListenPort)
	assert.Equal(t, "/tmp/x.msgpack", conf.ArtifactPath)
	assert.Equal(t, DataSourceSQLite, conf.Training.DataSource)
	assert.Equal(t, 20, conf.Training.NumTrees)
	assert.Equal(t, 100, conf.Training.GBTEstimators)
}
