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
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/floodreport/sevclass/eval"
	"github.com/floodreport/sevclass/eval/gbt"
	"github.com/floodreport/sevclass/feats"
	"github.com/floodreport/sevclass/report"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var neighborhoods = []string{"Boa Viagem", "Casa Amarela", "Derby"}

func testRecords() []report.Record {
	var ans []report.Record
	t0 := time.Date(2025, 5, 1, 8, 0, 0, 0, time.UTC)
	for i := range 16 {
		ans = append(ans, report.Record{
			ID:            string(rune('a' + i)),
			Timestamp:     t0.Add(time.Duration(i) * 7 * time.Hour),
			Latitude:      -8.0 - float64(i%4)*0.05,
			Longitude:     -34.9,
			Neighborhood:  neighborhoods[i%3],
			Confirmations: (i % 4) * 4,
			Severity:      report.SeverityFromIndex(i % 4),
		})
	}
	return ans
}

func testArtifact(t *testing.T) *Artifact {
	recs := testRecords()
	table := feats.FitEncodingTable(recs)
	var x [][]float64
	var y []int
	for _, r := range recs {
		v, err := feats.Build(r, table)
		require.NoError(t, err)
		x = append(x, v.Slice())
		y = append(y, r.Severity.Index())
	}
	scaler, err := feats.FitScaler(x)
	require.NoError(t, err)
	model := gbt.NewModel(gbt.Params{NumEstimators: 5})
	require.NoError(t, model.Fit(context.Background(), x, y))
	data, err := model.Encode()
	require.NoError(t, err)
	return &Artifact{
		CreatedAt:     time.Date(2025, 7, 1, 10, 11, 12, 13, time.UTC),
		CandidateName: "gradient-boosting",
		Kind:          model.Kind(),
		Info:          model.GetInfo(),
		Model:         model,
		ModelData:     data,
		Encoding:      table,
		Scaler:        scaler,
		Columns:       feats.Columns(),
		NumSamples:    len(recs),
		Scores:        eval.Scores{Accuracy: 0.8, F1: 0.75},
		CVMean:        0.7,
		CVStd:         0.05,
		Importance:    []eval.FeatureImportance{{Column: "confirmation_count", Importance: 0.3}},
	}
}

func assertSameArtifact(t *testing.T, a, b *Artifact) {
	assert.Equal(t, a.CreatedAt, b.CreatedAt)
	assert.Equal(t, a.CandidateName, b.CandidateName)
	assert.Equal(t, a.Kind, b.Kind)
	assert.Equal(t, a.ModelData, b.ModelData)
	assert.True(t, a.Encoding.Equal(b.Encoding))
	assert.True(t, a.Scaler.Equal(b.Scaler))
	assert.Equal(t, a.Columns, b.Columns)
	assert.Equal(t, a.Scores.F1, b.Scores.F1)
	assert.Equal(t, a.Importance, b.Importance)
	for _, r := range testRecords() {
		p1, err := a.Predict(r)
		require.NoError(t, err)
		p2, err := b.Predict(r)
		require.NoError(t, err)
		assert.Equal(t, p1, p2)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	a := testArtifact(t)
	for _, name := range []string{"model.msgpack", "model.msgpack.gz"} {
		path, err := Save(a, filepath.Join(t.TempDir(), name))
		require.NoError(t, err)
		b, err := Load(path)
		require.NoError(t, err)
		assertSameArtifact(t, a, b)
	}
}

func TestSaveToDirectory(t *testing.T) {
	dir := t.TempDir()
	path, err := Save(testArtifact(t), dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultFileName), path)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestSaveCreatesParentDirs(t *testing.T) {
	path, err := Save(testArtifact(t), filepath.Join(t.TempDir(), "a", "b", "m.msgpack"))
	require.NoError(t, err)
	_, err = Load(path)
	assert.NoError(t, err)
}

func TestSaveReplacesOldArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.msgpack")
	a := testArtifact(t)
	_, err := Save(a, path)
	require.NoError(t, err)
	a2 := testArtifact(t)
	a2.CandidateName = "newer"
	_, err = Save(a2, path)
	require.NoError(t, err)
	b, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "newer", b.CandidateName)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nothing.msgpack"))
	assert.True(t, errors.Is(err, ErrArtifactMissing))
}

func TestLoadGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "m.msgpack")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a model"), 0o644))
	_, err := Load(path)
	var cErr *ArtifactCorruptError
	assert.True(t, errors.As(err, &cErr))
	assert.Equal(t, path, cErr.Path)
}

func TestLoadDamagedPayload(t *testing.T) {
	path, err := Save(testArtifact(t), filepath.Join(t.TempDir(), "m.msgpack"))
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)-10] ^= 0xff
	require.NoError(t, os.WriteFile(path, data, 0o644))
	_, err = Load(path)
	var cErr *ArtifactCorruptError
	require.True(t, errors.As(err, &cErr))
	assert.Equal(t, "checksum mismatch", cErr.Reason)
}

func TestLoadColumnMismatch(t *testing.T) {
	a := testArtifact(t)
	a.Columns = append(feats.Columns()[1:], "latitude")
	path, err := Save(a, filepath.Join(t.TempDir(), "m.msgpack"))
	require.NoError(t, err)
	_, err = Load(path)
	var cErr *ArtifactCorruptError
	require.True(t, errors.As(err, &cErr))
	assert.Contains(t, cErr.Reason, "column order")
}

func TestLoadMissingEncodingTable(t *testing.T) {
	a := testArtifact(t)
	a.Encoding = feats.EncodingTable{}
	path, err := Save(a, filepath.Join(t.TempDir(), "m.msgpack"))
	require.NoError(t, err)
	_, err = Load(path)
	var cErr *ArtifactCorruptError
	require.True(t, errors.As(err, &cErr))
	assert.Equal(t, "invalid encoding table", cErr.Reason)
}

func TestLoadInvalidTreeReference(t *testing.T) {
	a := testArtifact(t)
	model := a.Model.(*gbt.Model)
	var tampered bool
	for _, trees := range model.Stages {
		for _, tree := range trees {
			if !tree.Nodes[0].IsLeaf() {
				tree.Nodes[0].Right = len(tree.Nodes) + 3
				tampered = true
				break
			}
		}
		if tampered {
			break
		}
	}
	require.True(t, tampered)
	data, err := model.Encode()
	require.NoError(t, err)
	a.ModelData = data
	path, err := Save(a, filepath.Join(t.TempDir(), "m.msgpack"))
	require.NoError(t, err)
	_, err = Load(path)
	var cErr *ArtifactCorruptError
	require.True(t, errors.As(err, &cErr))
	assert.Equal(t, "invalid model data", cErr.Reason)
}

func TestPredictUnseenNeighborhood(t *testing.T) {
	a := testArtifact(t)
	rec := testRecords()[0]
	rec.Neighborhood = "Pina"
	_, err := a.Predict(rec)
	var uErr *feats.UnseenCategoryError
	assert.True(t, errors.As(err, &uErr))
}
