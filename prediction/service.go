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

package prediction

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/floodreport/sevclass/artifact"
	"github.com/floodreport/sevclass/eval/predict"
	"github.com/floodreport/sevclass/feats"
	"github.com/floodreport/sevclass/observability"
	"github.com/floodreport/sevclass/report"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRetryInterval = 30 * time.Second

	loadKey   = "load"
	reloadKey = "reload"
)

type State int32

const (
	StateUninitialized State = iota
	StateLoading
	StateReady
	StateUnavailable
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateUnavailable:
		return "unavailable"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Loader reads an artifact from a path
type Loader func(path string) (*artifact.Artifact, error)

type Options struct {
	ArtifactPath string

	// RetryInterval specifies for how long a failed load is remembered.
	// Calls within the interval do not touch the disk.
	RetryInterval time.Duration

	// Location is used to derive time features from report timestamps
	Location *time.Location

	Clock   clockwork.Clock
	Loader  Loader
	Metrics *observability.Metrics
}

// Status describes the current state of the service
type Status struct {
	State        State             `json:"state"`
	ArtifactPath string            `json:"artifactPath"`
	LastError    string            `json:"lastError,omitempty"`
	LastAttempt  *time.Time        `json:"lastAttempt,omitempty"`
	Artifact     *artifact.Summary `json:"artifact,omitempty"`
}

// Service answers severity predictions using a lazily loaded artifact.
// The artifact is loaded on the first prediction. Concurrent callers
// arriving before the load finishes wait for the same load attempt.
// A failure is remembered for the retry interval, after that the next
// call tries again. Loaded artifacts are read-only and shared by all
// readers without locking, Reload swaps them atomically.
type Service struct {
	path          string
	retryInterval time.Duration
	loc           *time.Location
	clock         clockwork.Clock
	loader        Loader
	metrics       *observability.Metrics

	current atomic.Pointer[artifact.Artifact]
	state   atomic.Int32
	group   singleflight.Group

	// mu guards the fields below
	mu          sync.Mutex
	lastErr     error
	lastAttempt time.Time

	// attemptedMtime is the file mtime seen by the last load attempt
	// (successful or not)
	attemptedMtime time.Time
}

func NewService(opts Options) *Service {
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = DefaultRetryInterval
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Loader == nil {
		opts.Loader = artifact.Load
	}
	return &Service{
		path:          opts.ArtifactPath,
		retryInterval: opts.RetryInterval,
		loc:           opts.Location,
		clock:         opts.Clock,
		loader:        opts.Loader,
		metrics:       opts.Metrics,
	}
}

var (
	defaultOnce    sync.Once
	defaultService *Service
)

// Default returns the process-wide service. Only the options passed
// by the first call are used.
func Default(opts Options) *Service {
	defaultOnce.Do(func() {
		defaultService = NewService(opts)
	})
	return defaultService
}

func (s *Service) State() State {
	return State(s.state.Load())
}

func loadResultLabel(err error) string {
	var cErr *artifact.ArtifactCorruptError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, artifact.ErrArtifactMissing):
		return "missing"
	case errors.As(err, &cErr):
		return "corrupt"
	}
	return "error"
}

func (s *Service) fileMtime() time.Time {
	info, err := os.Stat(s.path)
	if err != nil {
		return time.Time{}
	}
	return info.ModTime()
}

// failureCached tells whether a recent failed attempt should be
// reported instead of loading again
func (s *Service) failureCached() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastErr != nil && s.clock.Since(s.lastAttempt) < s.retryInterval {
		return true, s.lastErr
	}
	return false, nil
}

func (s *Service) load() (*artifact.Artifact, error) {
	if s.current.Load() == nil {
		s.state.Store(int32(StateLoading))
	}
	mtime := s.fileMtime()
	art, err := s.loader(s.path)
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAttempt = now
	s.attemptedMtime = mtime
	s.metrics.ObserveArtifactLoad(loadResultLabel(err), err == nil || s.current.Load() != nil)
	if err != nil {
		s.lastErr = err
		if s.current.Load() == nil {
			s.state.Store(int32(StateUnavailable))
		}
		log.Warn().
			Err(err).
			Str("path", s.path).
			Dur("retryIn", s.retryInterval).
			Msg("severity model not available")
		return nil, err
	}
	s.lastErr = nil
	s.current.Store(art)
	s.state.Store(int32(StateReady))
	log.Info().
		Str("path", s.path).
		Str("candidate", art.CandidateName).
		Str("kind", string(art.Kind)).
		Time("createdAt", art.CreatedAt).
		Msg("loaded severity model")
	return art, nil
}

// Artifact returns the loaded artifact, loading it if necessary.
// Nil is returned if no artifact is available.
func (s *Service) Artifact() *artifact.Artifact {
	if art := s.current.Load(); art != nil {
		return art
	}
	if cached, _ := s.failureCached(); cached {
		return nil
	}
	v, _, _ := s.group.Do(loadKey, func() (any, error) {
		if art := s.current.Load(); art != nil {
			return art, nil
		}
		if cached, err := s.failureCached(); cached {
			return nil, err
		}
		return s.load()
	})
	art, _ := v.(*artifact.Artifact)
	return art
}

// Reload loads the artifact again regardless of the current state
// and swaps it in. In case of a failure, a previously loaded artifact
// stays in use.
func (s *Service) Reload() (*artifact.Artifact, error) {
	v, err, _ := s.group.Do(reloadKey, func() (any, error) {
		return s.load()
	})
	if err != nil {
		return nil, err
	}
	return v.(*artifact.Artifact), nil
}

// PredictReport returns a prediction for a report. The second return
// value is false if there is no model opinion (no artifact, unknown
// neighborhood or unusable record).
func (s *Service) PredictReport(rec report.Record) (predict.Prediction, bool) {
	art := s.Artifact()
	if art == nil {
		s.metrics.ObservePrediction("unavailable")
		return predict.Prediction{}, false
	}
	rec.Timestamp = rec.Timestamp.In(s.loc)
	pred, err := art.Predict(rec)
	if err != nil {
		var uErr *feats.UnseenCategoryError
		if errors.As(err, &uErr) {
			s.metrics.ObservePrediction("unseen")
			log.Debug().Str("neighborhood", uErr.Neighborhood).Msg("cannot predict severity for unseen neighborhood")

		} else {
			s.metrics.ObservePrediction("invalid")
			log.Warn().Err(err).Msg("failed to predict severity")
		}
		return predict.Prediction{}, false
	}
	s.metrics.ObservePrediction("predicted")
	return pred, true
}

// Predict returns predicted severity (1-4). The second return
// value is false if the model cannot give an answer.
func (s *Service) Predict(
	latitude, longitude float64,
	timestamp time.Time,
	confirmations int,
	neighborhood string,
) (report.Severity, bool) {
	pred, ok := s.PredictReport(report.Record{
		Timestamp:     timestamp,
		Latitude:      latitude,
		Longitude:     longitude,
		Neighborhood:  neighborhood,
		Confirmations: confirmations,
	})
	if !ok {
		return 0, false
	}
	return pred.Severity(), true
}

func (s *Service) Status() Status {
	ans := Status{
		State:        s.State(),
		ArtifactPath: s.path,
	}
	s.mu.Lock()
	if s.lastErr != nil {
		ans.LastError = s.lastErr.Error()
	}
	if !s.lastAttempt.IsZero() {
		t := s.lastAttempt
		ans.LastAttempt = &t
	}
	s.mu.Unlock()
	if art := s.current.Load(); art != nil {
		summary := art.Summary()
		ans.Artifact = &summary
	}
	return ans
}

// ArtifactChanged tells whether the artifact file has a different
// modification time than the one seen by the last load attempt.
// A broken file is therefore not retried until it is replaced.
func (s *Service) ArtifactChanged() bool {
	mtime := s.fileMtime()
	if mtime.IsZero() {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return !mtime.Equal(s.attemptedMtime)
}
