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

package artifact

import (
	"bytes"
	"compress/gzip"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/czcorpus/cnc-gokit/fs"
	"github.com/floodreport/sevclass/eval"
	"github.com/floodreport/sevclass/eval/predict"
	"github.com/floodreport/sevclass/feats"
	"github.com/floodreport/sevclass/models"
	"github.com/rs/zerolog/log"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	Magic           = "FSEV"
	SchemaVersion   = 1
	DefaultFileName = "severity.msgpack"
)

type envelope struct {
	Magic         string `msgpack:"magic"`
	SchemaVersion int    `msgpack:"schemaVersion"`
	Checksum      []byte `msgpack:"checksum"`
	Payload       []byte `msgpack:"payload"`
}

type payload struct {
	CreatedAt     int64                    `msgpack:"createdAt"`
	CandidateName string                   `msgpack:"candidateName"`
	Kind          predict.Kind             `msgpack:"kind"`
	Info          string                   `msgpack:"info"`
	Model         []byte                   `msgpack:"model"`
	Neighborhoods []string                 `msgpack:"neighborhoods"`
	ScalerMean    []float64                `msgpack:"scalerMean"`
	ScalerStd     []float64                `msgpack:"scalerStd"`
	Columns       []string                 `msgpack:"columns"`
	NumSamples    int                      `msgpack:"numSamples"`
	Scores        eval.Scores              `msgpack:"scores"`
	CVMean        float64                  `msgpack:"cvMean"`
	CVStd         float64                  `msgpack:"cvStd"`
	Importance    []eval.FeatureImportance `msgpack:"importance"`
}

func isGzipPath(path string) bool {
	return strings.HasSuffix(path, ".gz") || strings.HasSuffix(path, ".gzip")
}

// ResolvePath returns the actual file path for a destination which
// may be a directory.
func ResolvePath(dest string) string {
	if strings.HasSuffix(dest, string(filepath.Separator)) {
		return filepath.Join(dest, DefaultFileName)
	}
	if info, err := os.Stat(dest); err == nil && info.IsDir() {
		return filepath.Join(dest, DefaultFileName)
	}
	return dest
}

func encode(a *Artifact) ([]byte, error) {
	pl := payload{
		CreatedAt:     a.CreatedAt.UnixNano(),
		CandidateName: a.CandidateName,
		Kind:          a.Kind,
		Info:          a.Info,
		Model:         a.ModelData,
		Neighborhoods: a.Encoding.Names(),
		ScalerMean:    a.Scaler.Mean,
		ScalerStd:     a.Scaler.Std,
		Columns:       a.Columns,
		NumSamples:    a.NumSamples,
		Scores:        a.Scores,
		CVMean:        a.CVMean,
		CVStd:         a.CVStd,
		Importance:    a.Importance,
	}
	plData, err := msgpack.Marshal(pl)
	if err != nil {
		return nil, err
	}
	sum := sha256.Sum256(plData)
	return msgpack.Marshal(envelope{
		Magic:         Magic,
		SchemaVersion: SchemaVersion,
		Checksum:      sum[:],
		Payload:       plData,
	})
}

// Save writes the artifact to dest (a file path or a directory). The file
// is first written to a temporary file in the same directory and then
// renamed so readers never see a partially written bundle. Paths ending
// with .gz are gzip compressed.
func Save(a *Artifact, dest string) (string, error) {
	path := ResolvePath(dest)
	data, err := encode(a)
	if err != nil {
		return "", fmt.Errorf("failed to save artifact: %w", err)
	}
	if isGzipPath(path) {
		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		if _, err := gz.Write(data); err != nil {
			return "", fmt.Errorf("failed to save artifact: %w", err)
		}
		if err := gz.Close(); err != nil {
			return "", fmt.Errorf("failed to save artifact: %w", err)
		}
		data = buf.Bytes()
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to save artifact: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to save artifact: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}
	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to save artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return "", fmt.Errorf("failed to save artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to save artifact: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to save artifact: %w", err)
	}
	log.Info().
		Str("path", path).
		Str("candidate", a.CandidateName).
		Int("size", len(data)).
		Msg("saved artifact")
	return path, nil
}

// Load reads and validates an artifact. A missing file produces an error
// wrapping ErrArtifactMissing, any other problem with the data produces
// *ArtifactCorruptError.
func Load(path string) (*Artifact, error) {
	isFile, err := fs.IsFile(path)
	if err != nil || !isFile {
		return nil, fmt.Errorf("failed to load artifact %s: %w", path, ErrArtifactMissing)
	}
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load artifact %s: %w", path, ErrArtifactMissing)
		}
		return nil, fmt.Errorf("failed to load artifact %s: %w", path, err)
	}
	defer f.Close()
	var reader io.Reader = f
	if isGzipPath(path) {
		gzReader, err := gzip.NewReader(f)
		if err != nil {
			return nil, &ArtifactCorruptError{Path: path, Reason: "invalid gzip data", Err: err}
		}
		defer gzReader.Close()
		reader = gzReader
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, &ArtifactCorruptError{Path: path, Reason: "failed to read data", Err: err}
	}
	return decode(path, data)
}

func decode(path string, data []byte) (*Artifact, error) {
	var env envelope
	if err := msgpack.Unmarshal(data, &env); err != nil {
		return nil, &ArtifactCorruptError{Path: path, Reason: "invalid envelope", Err: err}
	}
	if env.Magic != Magic {
		return nil, &ArtifactCorruptError{Path: path, Reason: "not a severity model bundle"}
	}
	if env.SchemaVersion != SchemaVersion {
		return nil, &ArtifactCorruptError{
			Path:   path,
			Reason: fmt.Sprintf("unsupported schema version %d (expected %d)", env.SchemaVersion, SchemaVersion),
		}
	}
	sum := sha256.Sum256(env.Payload)
	if !bytes.Equal(sum[:], env.Checksum) {
		return nil, &ArtifactCorruptError{Path: path, Reason: "checksum mismatch"}
	}
	var pl payload
	if err := msgpack.Unmarshal(env.Payload, &pl); err != nil {
		return nil, &ArtifactCorruptError{Path: path, Reason: "invalid payload", Err: err}
	}
	if len(pl.Columns) == 0 {
		return nil, &ArtifactCorruptError{Path: path, Reason: "missing column order"}
	}
	if !feats.SameColumns(pl.Columns) {
		return nil, &ArtifactCorruptError{
			Path:   path,
			Reason: fmt.Sprintf("column order %v does not match features %v", pl.Columns, feats.Columns()),
		}
	}
	table, err := feats.NewEncodingTable(pl.Neighborhoods)
	if err != nil {
		return nil, &ArtifactCorruptError{Path: path, Reason: "invalid encoding table", Err: err}
	}
	if len(pl.ScalerMean) != feats.NumFeatures || len(pl.ScalerStd) != feats.NumFeatures {
		return nil, &ArtifactCorruptError{Path: path, Reason: "invalid scaler"}
	}
	if err := pl.Kind.Validate(); err != nil {
		return nil, &ArtifactCorruptError{Path: path, Reason: "invalid model kind", Err: err}
	}
	clf, err := models.Decode(pl.Kind, pl.Model)
	if err != nil {
		return nil, &ArtifactCorruptError{Path: path, Reason: "invalid model data", Err: err}
	}
	return &Artifact{
		CreatedAt:     time.Unix(0, pl.CreatedAt).UTC(),
		CandidateName: pl.CandidateName,
		Kind:          pl.Kind,
		Info:          pl.Info,
		Model:         clf,
		ModelData:     pl.Model,
		Encoding:      table,
		Scaler:        feats.Scaler{Mean: pl.ScalerMean, Std: pl.ScalerStd},
		Columns:       pl.Columns,
		NumSamples:    pl.NumSamples,
		Scores:        pl.Scores,
		CVMean:        pl.CVMean,
		CVStd:         pl.CVStd,
		Importance:    pl.Importance,
	}, nil
}
