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

package apiserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/czcorpus/cnc-gokit/logging"
	"github.com/czcorpus/cnc-gokit/uniresp"
	"github.com/floodreport/sevclass/cnf"
	"github.com/floodreport/sevclass/observability"
	"github.com/floodreport/sevclass/prediction"
	"github.com/floodreport/sevclass/urgency"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// -----

type apiServer struct {
	conf      *cnf.Conf
	server    *http.Server
	version   VersionInfo
	predictor *prediction.Service
	ranker    *urgency.Ranker
	metrics   *observability.Metrics
	registry  *prometheus.Registry
	clock     clockwork.Clock
	loc       *time.Location
}

func (api *apiServer) newEngine() *gin.Engine {
	if !api.conf.Logging.Level.IsDebugMode() {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(logging.GinMiddleware())
	engine.Use(metricsMiddleware(api.metrics))
	engine.Use(uniresp.AlwaysJSONContentType())
	engine.Use(corsMiddleware(api.conf))
	engine.NoMethod(uniresp.NoMethodHandler)
	engine.NoRoute(uniresp.NotFoundHandler)

	engine.GET("/severity/predict", api.handlePredictSeverity)
	engine.GET("/urgency/score", api.handleUrgencyScore)
	engine.POST("/urgency/rank", api.handleUrgencyRank)
	engine.GET("/artifact", api.handleArtifactStatus)
	engine.POST("/artifact/reload", api.handleArtifactReload)
	engine.GET("/version", api.handleVersion)
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(api.registry, promhttp.HandlerOpts{})))
	return engine
}

func (api *apiServer) Start(ctx context.Context) {
	log.Info().Msgf("starting to listen at %s:%d", api.conf.ListenAddress, api.conf.ListenPort)
	api.server = &http.Server{
		Handler:      api.newEngine(),
		Addr:         fmt.Sprintf("%s:%d", api.conf.ListenAddress, api.conf.ListenPort),
		WriteTimeout: time.Duration(api.conf.ServerWriteTimeoutSecs) * time.Second,
		ReadTimeout:  time.Duration(api.conf.ServerReadTimeoutSecs) * time.Second,
	}
	go func() {
		if err := api.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()
}

func (api *apiServer) Stop(ctx context.Context) error {
	log.Warn().Msg("shutting down severity HTTP API server")
	return api.server.Shutdown(ctx)
}

// predictorFactory creates the prediction service used by the server
type predictorFactory func(opts prediction.Options) *prediction.Service

func newAPIServer(
	conf *cnf.Conf,
	version VersionInfo,
	clock clockwork.Clock,
	newPredictor predictorFactory,
) *apiServer {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := observability.NewMetrics(registry)
	predictor := newPredictor(prediction.Options{
		ArtifactPath:  conf.ArtifactPath,
		RetryInterval: conf.ArtifactRetryInterval(),
		Location:      conf.Location(),
		Clock:         clock,
		Metrics:       metrics,
	})
	return &apiServer{
		conf:      conf,
		version:   version,
		predictor: predictor,
		ranker:    urgency.NewRanker(clock, conf.UrgencyAlertThreshold, metrics),
		metrics:   metrics,
		registry:  registry,
		clock:     clock,
		loc:       conf.Location(),
	}
}

// -------------------------

func Run(
	ctx context.Context,
	conf *cnf.Conf,
	version VersionInfo,
) {
	server := newAPIServer(conf, version, clockwork.NewRealClock(), prediction.Default)
	// eager load, later failures are retried lazily
	if server.predictor.Artifact() == nil {
		log.Warn().
			Str("path", conf.ArtifactPath).
			Msg("no severity model available yet, predictions will be empty")
	}

	services := []service{server}
	if conf.ArtifactWatchIntervalSecs > 0 {
		services = append(services, prediction.NewWatcher(server.predictor, conf.ArtifactWatchInterval()))
	}
	for _, m := range services {
		m.Start(ctx)
	}
	<-ctx.Done()
	log.Warn().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for _, s := range services {
		wg.Add(1)
		go func(srv service) {
			defer wg.Done()
			if err := srv.Stop(shutdownCtx); err != nil {
				log.Error().Err(err).Type("service", srv).Msg("Error shutting down service")
			}
		}(s)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info().Msg("Graceful shutdown completed")
	case <-shutdownCtx.Done():
		log.Warn().Msg("Shutdown timed out")
	}
}
