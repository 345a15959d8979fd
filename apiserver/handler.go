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
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/czcorpus/cnc-gokit/unireq"
	"github.com/czcorpus/cnc-gokit/uniresp"
	"github.com/floodreport/sevclass/artifact"
	"github.com/floodreport/sevclass/dataimport"
	"github.com/floodreport/sevclass/report"
	"github.com/floodreport/sevclass/urgency"
	"github.com/gin-gonic/gin"
)

func (api *apiServer) handleVersion(ctx *gin.Context) {
	uniresp.WriteJSONResponse(ctx.Writer, api.version)
}

func getURLFloatArgOrFail(ctx *gin.Context, name string, dflt *float64) (float64, bool) {
	v := ctx.Query(name)
	if v == "" {
		if dflt != nil {
			return *dflt, true
		}
		uniresp.RespondWithErrorJSON(
			ctx, fmt.Errorf("missing argument %s", name), http.StatusBadRequest)
		return 0, false
	}
	ans, err := strconv.ParseFloat(v, 64)
	if err != nil {
		uniresp.RespondWithErrorJSON(
			ctx, fmt.Errorf("invalid value of %s: %w", name, err), http.StatusBadRequest)
		return 0, false
	}
	return ans, true
}

// getTimestampArg reads an optional timestamp argument. Current time
// is used if the argument is missing.
func (api *apiServer) getTimestampArg(ctx *gin.Context, name string) (time.Time, bool) {
	v := ctx.Query(name)
	if v == "" {
		return api.clock.Now().In(api.loc), true
	}
	ans, err := dataimport.ParseTimestamp(v, api.loc)
	if err != nil {
		uniresp.RespondWithErrorJSON(
			ctx, fmt.Errorf("invalid value of %s: %w", name, err), http.StatusBadRequest)
		return time.Time{}, false
	}
	return ans, true
}

func (api *apiServer) handlePredictSeverity(ctx *gin.Context) {
	lat, ok := getURLFloatArgOrFail(ctx, "latitude", nil)
	if !ok {
		return
	}
	lon, ok := getURLFloatArgOrFail(ctx, "longitude", nil)
	if !ok {
		return
	}
	ts, ok := api.getTimestampArg(ctx, "timestamp")
	if !ok {
		return
	}
	confirmations, ok := unireq.GetURLIntArgOrFail(ctx, "confirmations", 0)
	if !ok {
		return
	}
	neighborhood := strings.TrimSpace(ctx.Query("neighborhood"))
	if neighborhood == "" {
		uniresp.RespondWithErrorJSON(
			ctx, fmt.Errorf("missing argument neighborhood"), http.StatusBadRequest)
		return
	}
	rec := report.Record{
		Timestamp:     ts,
		Latitude:      lat,
		Longitude:     lon,
		Neighborhood:  neighborhood,
		Confirmations: confirmations,
	}
	if err := rec.Validate(false); err != nil {
		uniresp.RespondWithErrorJSON(ctx, err, http.StatusBadRequest)
		return
	}
	pred, ok := api.predictor.PredictReport(rec)
	if !ok {
		uniresp.WriteJSONResponse(ctx.Writer, severityResponse{})
		return
	}
	sev := pred.Severity()
	uniresp.WriteJSONResponse(
		ctx.Writer,
		severityResponse{
			Severity:      &sev,
			Label:         sev.String(),
			Probabilities: pred.Votes,
			Available:     true,
		},
	)
}

func (api *apiServer) handleUrgencyScore(ctx *gin.Context) {
	sev, ok := unireq.GetURLIntArgOrFail(ctx, "severity", 0)
	if !ok {
		return
	}
	if !report.Severity(sev).Valid() {
		uniresp.RespondWithErrorJSON(
			ctx, fmt.Errorf("severity must be in range 1-4"), http.StatusBadRequest)
		return
	}
	confirmations, ok := unireq.GetURLIntArgOrFail(ctx, "confirmations", 0)
	if !ok {
		return
	}
	dfltTrust := report.DefaultReporterTrust
	trust, ok := getURLFloatArgOrFail(ctx, "trust", &dfltTrust)
	if !ok {
		return
	}
	var in urgency.Inputs
	if ctx.Query("timestamp") != "" {
		ts, ok := api.getTimestampArg(ctx, "timestamp")
		if !ok {
			return
		}
		in = urgency.InputsFor(
			report.Record{
				Timestamp:     ts,
				Severity:      report.Severity(sev),
				Confirmations: confirmations,
				ReporterTrust: trust,
			},
			api.clock.Now(),
		)

	} else {
		var zero float64
		age, ok := getURLFloatArgOrFail(ctx, "ageHours", &zero)
		if !ok {
			return
		}
		in = urgency.Inputs{
			Severity:      report.Severity(sev),
			Confirmations: confirmations,
			ReporterTrust: trust,
			AgeHours:      age,
		}
	}
	score := urgency.ScoreInputs(in)
	api.metrics.ObserveUrgency(score)
	uniresp.WriteJSONResponse(
		ctx.Writer,
		urgencyResponse{
			Score:     score,
			Alert:     score >= api.ranker.Threshold(),
			Threshold: api.ranker.Threshold(),
			Inputs:    in,
		},
	)
}

func (api *apiServer) handleUrgencyRank(ctx *gin.Context) {
	var req rankRequest
	if err := ctx.BindJSON(&req); err != nil {
		uniresp.RespondWithErrorJSON(ctx, fmt.Errorf("invalid request: %w", err), http.StatusBadRequest)
		return
	}
	recs := make([]report.Record, len(req.Reports))
	for i, item := range req.Reports {
		rec := item.Record
		rec.ReporterTrust = report.DefaultReporterTrust
		if item.ReporterTrust != nil {
			rec.ReporterTrust = *item.ReporterTrust
		}
		if err := rec.Validate(true); err != nil {
			uniresp.RespondWithErrorJSON(
				ctx, fmt.Errorf("invalid report %d: %w", i, err), http.StatusBadRequest)
			return
		}
		recs[i] = rec
	}
	ranked := api.ranker.Rank(recs)
	uniresp.WriteJSONResponse(
		ctx.Writer,
		rankResponse{
			Threshold:  api.ranker.Threshold(),
			NumAlerts:  len(urgency.Alerts(ranked)),
			Reports:    ranked,
			EvaluateAt: api.clock.Now(),
		},
	)
}

func (api *apiServer) handleArtifactStatus(ctx *gin.Context) {
	api.predictor.Artifact()
	uniresp.WriteJSONResponse(ctx.Writer, api.predictor.Status())
}

func (api *apiServer) handleArtifactReload(ctx *gin.Context) {
	_, err := api.predictor.Reload()
	if errors.Is(err, artifact.ErrArtifactMissing) {
		uniresp.RespondWithErrorJSON(ctx, err, http.StatusNotFound)
		return

	} else if err != nil {
		uniresp.RespondWithErrorJSON(ctx, err, http.StatusInternalServerError)
		return
	}
	uniresp.WriteJSONResponse(ctx.Writer, api.predictor.Status())
}
