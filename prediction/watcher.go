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

package prediction

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// Watcher periodically checks the artifact file of a service and
// reloads it once the file changes (e.g. after a training run).
type Watcher struct {
	svc      *Service
	interval time.Duration
	clock    clockwork.Clock
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewWatcher(svc *Service, interval time.Duration) *Watcher {
	return &Watcher{
		svc:      svc,
		interval: interval,
		clock:    svc.clock,
		done:     make(chan struct{}),
	}
}

func (w *Watcher) check() {
	if !w.svc.ArtifactChanged() {
		return
	}
	log.Info().Str("path", w.svc.path).Msg("artifact file changed, reloading")
	if _, err := w.svc.Reload(); err != nil {
		log.Error().Err(err).Msg("failed to reload changed artifact")
	}
}

func (w *Watcher) Start(ctx context.Context) {
	ticker := w.clock.NewTicker(w.interval)
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.done:
				return
			case <-ticker.Chan():
				w.check()
			}
		}
	}()
}

func (w *Watcher) Stop(ctx context.Context) error {
	w.stopOnce.Do(func() {
		close(w.done)
	})
	finished := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
