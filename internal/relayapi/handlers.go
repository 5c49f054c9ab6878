package relayapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/rafaeljc/heimdall-sdk/internal/logger"
	"github.com/rafaeljc/heimdall-sdk/sdk"
)

// handleExperiment processes POST /api/v1/experiments/{key}.
func (a *API) handleExperiment(w http.ResponseWriter, r *http.Request) {
	key, ok := parseKey(w, r)
	if !ok {
		return
	}
	r = r.WithContext(logger.With(r.Context(), slog.Int64("key", key)))

	var req ExperimentRequest
	if !decode(w, r, &req) {
		return
	}
	req.Sanitize()

	d := a.decider.Experiment(key, req.User.toSDK(), req.DefaultVariation)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, ExperimentResponse{
		Variation: d.Variation,
		Reason:    string(d.Reason),
		Config:    configOf(d.Config),
	})
}

// handleFeatureFlag processes POST /api/v1/feature-flags/{key}.
func (a *API) handleFeatureFlag(w http.ResponseWriter, r *http.Request) {
	key, ok := parseKey(w, r)
	if !ok {
		return
	}
	r = r.WithContext(logger.With(r.Context(), slog.Int64("key", key)))

	var req FeatureFlagRequest
	if !decode(w, r, &req) {
		return
	}

	d := a.decider.FeatureFlag(key, req.User.toSDK())

	render.Status(r, http.StatusOK)
	render.JSON(w, r, FeatureFlagResponse{
		IsOn:   d.IsOn,
		Reason: string(d.Reason),
		Config: configOf(d.Config),
	})
}

// handleRemoteConfig processes POST /api/v1/remote-configs/{key}.
func (a *API) handleRemoteConfig(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	r = r.WithContext(logger.With(r.Context(), slog.String("key", key)))

	var req RemoteConfigRequest
	if !decode(w, r, &req) {
		return
	}
	req.Sanitize()
	if errResp := req.Validate(); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	d := a.decider.RemoteConfig(req.User.toSDK()).Decision(key, req.Default)

	render.Status(r, http.StatusOK)
	render.JSON(w, r, RemoteConfigResponse{Value: d.Value, Reason: string(d.Reason)})
}

// handleTrack processes POST /api/v1/events. Events are queued, so the
// response is 202 Accepted.
func (a *API) handleTrack(w http.ResponseWriter, r *http.Request) {
	var req TrackRequest
	if !decode(w, r, &req) {
		return
	}
	req.Sanitize()
	if errResp := req.Validate(); errResp != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errResp)
		return
	}

	a.decider.Track(sdk.Event{
		Key:        req.Event.Key,
		Value:      req.Event.Value,
		Properties: req.Event.Properties,
	}, req.User.toSDK())

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, map[string]string{"status": "accepted"})
}

// parseKey reads the integer {key} path parameter and writes a 400 on failure.
func parseKey(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "key")
	key, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		logger.FromContext(r.Context()).Warn("invalid key", slog.String("key", raw))
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, ErrorResponse{
			Code:    "ERR_INVALID_KEY",
			Message: "Key must be an integer, got " + strconv.Quote(raw),
		})
		return 0, false
	}
	return key, true
}

// decode reads the JSON body into dst and writes a 400 or 413 on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := render.DecodeJSON(r.Body, dst)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		render.Status(r, http.StatusRequestEntityTooLarge)
		render.JSON(w, r, ErrorResponse{Code: "ERR_PAYLOAD_TOO_LARGE", Message: "Request body too large"})
		return false
	}

	logger.FromContext(r.Context()).Warn("invalid json payload", slog.String("error", err.Error()))
	render.Status(r, http.StatusBadRequest)
	render.JSON(w, r, ErrorResponse{
		Code:    "ERR_INVALID_JSON",
		Message: "Invalid JSON payload: " + err.Error(),
	})
	return false
}

// configOf flattens a parameter config; an empty config encodes as {}.
func configOf(c sdk.ParameterConfig) map[string]any {
	params := c.Parameters()
	if params == nil {
		return map[string]any{}
	}
	return params
}
