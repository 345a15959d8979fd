// Copyright 2024 Tomas Machalek <tomas.machalek@gmail.com>
// Copyright 2024 Department of Linguistics,
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
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/czcorpus/cnc-gokit/logging"
	"github.com/rs/zerolog/log"
)

const (
	dfltServerWriteTimeoutSecs    = 30
	dfltServerReadTimeoutSecs     = 10
	dfltListenPort                = 8080
	dfltTimeZone                  = "America/Recife"
	dfltArtifactPath              = "./data/models/severity.msgpack"
	dfltArtifactRetryIntervalSecs = 30
	dfltUrgencyAlertThreshold     = 75.0

	DataSourceCSV    = "csv"
	DataSourceSQLite = "sqlite"
	DataSourceMySQL  = "mysql"

	dfltReportsTable       = "reports"
	dfltTestRatio          = 0.3
	dfltCVFolds            = 3
	dfltSeed               = 42
	dfltNumTrees           = 100
	dfltRFMaxDepth         = 5
	dfltGBTEstimators      = 100
	dfltGBTMaxDepth        = 3
	dfltGBTLearningRate    = 0.1
	dfltSVMC               = 1.0
	dfltLogRegEpochs       = 300
	dfltLogRegLearningRate = 0.01
)

type MySQLConf struct {
	Host   string `json:"host"`
	User   string `json:"user"`
	Passwd string `json:"passwd"`
	DB     string `json:"db"`
}

// TrainingConf configures the data source and the evaluated
// candidate panel
type TrainingConf struct {
	DataSource   string    `json:"dataSource"`
	CSVPath      string    `json:"csvPath"`
	SQLitePath   string    `json:"sqlitePath"`
	MySQL        MySQLConf `json:"mysql"`
	ReportsTable string    `json:"reportsTable"`

	// LedgerPath is a path to an SQLite database where training runs
	// are recorded. Empty value disables the ledger.
	LedgerPath string `json:"ledgerPath"`

	TestRatio          float64 `json:"testRatio"`
	CVFolds            int     `json:"cvFolds"`
	Seed               uint64  `json:"seed"`
	NumTrees           int     `json:"numTrees"`
	RFMaxDepth         int     `json:"rfMaxDepth"`
	GBTEstimators      int     `json:"gbtEstimators"`
	GBTMaxDepth        int     `json:"gbtMaxDepth"`
	GBTLearningRate    float64 `json:"gbtLearningRate"`
	SVMC               float64 `json:"svmC"`
	SVMGamma           float64 `json:"svmGamma"`
	LogRegEpochs       int     `json:"logRegEpochs"`
	LogRegLearningRate float64 `json:"logRegLearningRate"`
}

type Conf struct {
	srcPath                string
	Logging                logging.LoggingConf `json:"logging"`
	ListenAddress          string              `json:"listenAddress"`
	ListenPort             int                 `json:"listenPort"`
	ServerReadTimeoutSecs  int                 `json:"serverReadTimeoutSecs"`
	ServerWriteTimeoutSecs int                 `json:"serverWriteTimeoutSecs"`
	CorsAllowedOrigins     []string            `json:"corsAllowedOrigins"`
	TimeZone               string              `json:"timeZone"`

	ArtifactPath string `json:"artifactPath"`

	// ArtifactRetryIntervalSecs specifies how long a failed artifact
	// load is cached before the next request tries again.
	ArtifactRetryIntervalSecs int `json:"artifactRetryIntervalSecs"`

	// ArtifactWatchIntervalSecs - if positive, the server checks
	// the artifact file and reloads it once it changes
	ArtifactWatchIntervalSecs int `json:"artifactWatchIntervalSecs"`

	UrgencyAlertThreshold float64 `json:"urgencyAlertThreshold"`

	Training TrainingConf `json:"training"`
}

func (conf *Conf) SrcPath() string {
	return conf.srcPath
}

func (conf *Conf) Location() *time.Location {
	loc, err := time.LoadLocation(conf.TimeZone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (conf *Conf) ArtifactRetryInterval() time.Duration {
	return time.Duration(conf.ArtifactRetryIntervalSecs) * time.Second
}

func (conf *Conf) ArtifactWatchInterval() time.Duration {
	return time.Duration(conf.ArtifactWatchIntervalSecs) * time.Second
}

func LoadConfig(path string) *Conf {
	if path == "" {
		log.Fatal().Msg("Cannot load config - path not specified")
	}
	rawData, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot load config")
	}
	var conf Conf
	conf.srcPath = path
	err = json.Unmarshal(rawData, &conf)
	if err != nil {
		log.Fatal().Err(err).Msg("Cannot load config")
	}
	return &conf
}

// DefaultConf returns a configuration usable without a config file
func DefaultConf() *Conf {
	conf := &Conf{}
	if err := ValidateAndDefaults(conf); err != nil {
		panic(err)
	}
	return conf
}

func ValidateAndDefaults(conf *Conf) error {
	if conf.Logging.Level == "" {
		conf.Logging.Level = "info"
	}
	if conf.ListenPort == 0 {
		conf.ListenPort = dfltListenPort
		log.Warn().Msgf("listenPort not specified, using default: %d", dfltListenPort)
	}
	if conf.ServerWriteTimeoutSecs == 0 {
		conf.ServerWriteTimeoutSecs = dfltServerWriteTimeoutSecs
		log.Warn().Msgf(
			"serverWriteTimeoutSecs not specified, using default: %d",
			dfltServerWriteTimeoutSecs,
		)
	}
	if conf.ServerReadTimeoutSecs == 0 {
		conf.ServerReadTimeoutSecs = dfltServerReadTimeoutSecs
		log.Warn().Msgf(
			"serverReadTimeoutSecs not specified, using default: %d",
			dfltServerReadTimeoutSecs,
		)
	}
	if conf.TimeZone == "" {
		conf.TimeZone = dfltTimeZone
		log.Warn().
			Str("timeZone", dfltTimeZone).
			Msg("time zone not specified, using default")
	}
	if _, err := time.LoadLocation(conf.TimeZone); err != nil {
		return fmt.Errorf("invalid time zone %s: %w", conf.TimeZone, err)
	}
	if conf.ArtifactPath == "" {
		conf.ArtifactPath = dfltArtifactPath
		log.Warn().Str("path", dfltArtifactPath).Msg("artifactPath not specified, using default")
	}
	if conf.ArtifactRetryIntervalSecs <= 0 {
		conf.ArtifactRetryIntervalSecs = dfltArtifactRetryIntervalSecs
	}
	if conf.ArtifactWatchIntervalSecs < 0 {
		return fmt.Errorf("invalid artifactWatchIntervalSecs: %d", conf.ArtifactWatchIntervalSecs)
	}
	if conf.UrgencyAlertThreshold == 0 {
		conf.UrgencyAlertThreshold = dfltUrgencyAlertThreshold
	}
	if conf.UrgencyAlertThreshold < 0 || conf.UrgencyAlertThreshold > 100 {
		return fmt.Errorf("urgencyAlertThreshold must be in range [0, 100], found %.2f", conf.UrgencyAlertThreshold)
	}
	return validateTraining(&conf.Training)
}

func validateTraining(conf *TrainingConf) error {
	switch conf.DataSource {
	case "":
		conf.DataSource = DataSourceCSV
	case DataSourceCSV, DataSourceSQLite, DataSourceMySQL:
	default:
		return fmt.Errorf("unknown training.dataSource '%s'", conf.DataSource)
	}
	if conf.ReportsTable == "" {
		conf.ReportsTable = dfltReportsTable
	}
	if conf.TestRatio == 0 {
		conf.TestRatio = dfltTestRatio
	}
	if conf.TestRatio <= 0 || conf.TestRatio >= 1 {
		return fmt.Errorf("training.testRatio must be in range (0, 1), found %.2f", conf.TestRatio)
	}
	if conf.CVFolds == 0 {
		conf.CVFolds = dfltCVFolds
	}
	if conf.CVFolds < 2 {
		return fmt.Errorf("training.cvFolds must be at least 2, found %d", conf.CVFolds)
	}
	if conf.Seed == 0 {
		conf.Seed = dfltSeed
	}
	if conf.NumTrees <= 0 {
		conf.NumTrees = dfltNumTrees
	}
	if conf.GBTEstimators <= 0 {
		conf.GBTEstimators = dfltGBTEstimators
	}
	if conf.RFMaxDepth <= 0 {
		conf.RFMaxDepth = dfltRFMaxDepth
	}
	if conf.GBTMaxDepth <= 0 {
		conf.GBTMaxDepth = dfltGBTMaxDepth
	}
	if conf.GBTLearningRate <= 0 {
		conf.GBTLearningRate = dfltGBTLearningRate
	}
	if conf.SVMC <= 0 {
		conf.SVMC = dfltSVMC
	}
	if conf.SVMGamma < 0 {
		return fmt.Errorf("training.svmGamma cannot be negative")
	}
	if conf.LogRegEpochs <= 0 {
		conf.LogRegEpochs = dfltLogRegEpochs
	}
	if conf.LogRegLearningRate <= 0 {
		conf.LogRegLearningRate = dfltLogRegLearningRate
	}
	return nil
}
