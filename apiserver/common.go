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
	"time"

	"github.com/floodreport/sevclass/cnf"
	"github.com/floodreport/sevclass/observability"
	"github.com/floodreport/sevclass/report"
	"github.com/floodreport/sevclass/urgency"
	"github.com/gin-gonic/gin"
)

type service interface {
	Start(ctx context.Context)
	Stop(ctx context.Context) error
}

// VersionInfo provides a detailed information about the actual build
type VersionInfo struct {
	Version   string `json:"version"`
	BuildDate string `json:"buildDate"`
	GitCommit string `json:"gitCommit"`
}

// ----

type severityResponse struct {
	// Severity is null if the model cannot give an answer
	Severity      *report.Severity `json:"severity"`
	Label         string           `json:"label,omitempty"`
	Probabilities []float64        `json:"probabilities,omitempty"`
	Available     bool             `json:"available"`
}

type urgencyResponse struct {
	Score     float64        `json:"score"`
	Alert     bool           `json:"alert"`
	Threshold float64        `json:"threshold"`
	Inputs    urgency.Inputs `json:"inputs"`
}

// rankedReport is a report as sent by clients. Reporter trust
// may be omitted, report.DefaultReporterTrust is used then.
type rankedReport struct {
	report.Record
	ReporterTrust *float64 `json:"reporterTrust"`
}

type rankRequest struct {
	Reports []rankedReport `json:"reports"`
}

type rankResponse struct {
	Threshold  float64                `json:"threshold"`
	NumAlerts  int                    `json:"numAlerts"`
	Reports    []urgency.RankedReport `json:"reports"`
	EvaluateAt time.Time              `json:"evaluatedAt"`
}

// ----

func corsMiddleware(conf *cnf.Conf) gin.HandlerFunc {
	return func(ctx *gin.Context) {

		var allowedOrigin string
		currOrigin := ctx.Request.Header.Get("Origin")
		for _, origin := range conf.CorsAllowedOrigins {
			if currOrigin == origin || origin == "*" {
				allowedOrigin = origin
				break
			}
		}
		if allowedOrigin != "" {
			ctx.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			ctx.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			ctx.Writer.Header().Set(
				"Access-Control-Allow-Headers",
				"Content-Type, Content-Length, Accept-Encoding, Authorization, Accept, Origin, Cache-Control, X-Requested-With",
			)
			ctx.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")
		}

		if ctx.Request.Method == "OPTIONS" {
			ctx.AbortWithStatus(204)
			return
		}
		ctx.Next()
	}
}

func metricsMiddleware(metrics *observability.Metrics) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		t0 := time.Now()
		ctx.Next()
		handler := ctx.FullPath()
		if handler == "" {
			handler = "unmatched"
		}
		metrics.ObserveRequest(handler, time.Since(t0).Seconds())
	}
}
