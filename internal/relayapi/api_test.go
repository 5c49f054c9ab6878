package relayapi

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafaeljc/heimdall-sdk/internal/workspace"
	"github.com/rafaeljc/heimdall-sdk/sdk"
)

const relayWorkspace = `{
  "experiments": [{
    "id": 1, "key": 1, "version": 1, "identifierType": "$id",
    "variations": [
      {"id": 11, "key": "A", "status": "ACTIVE"},
      {"id": 12, "key": "B", "status": "ACTIVE", "parameterConfigurationId": 500}
    ],
    "execution": {
      "status": "RUNNING", "version": 1,
      "userOverrides": [], "segmentOverrides": [], "targetAudiences": [], "targetRules": [],
      "defaultRule": {"type": "BUCKET", "bucketId": 1}
    }
  }],
  "featureFlags": [{
    "id": 2, "key": 2, "identifierType": "$id",
    "variations": [{"id": 21, "key": "A", "status": "ACTIVE"}, {"id": 22, "key": "B", "status": "ACTIVE"}],
    "execution": {
      "status": "RUNNING", "version": 1,
      "userOverrides": [], "segmentOverrides": [], "targetAudiences": [], "targetRules": [],
      "defaultRule": {"type": "VARIATION", "variationId": 22}
    }
  }],
  "buckets": [{
    "id": 1, "seed": 1, "slotSize": 10000,
    "slots": [{"startInclusive": 0, "endExclusive": 10000, "variationId": 12}]
  }],
  "events": [{"id": 100, "key": "purchase"}],
  "parameterConfigurations": [{"id": 500, "parameters": [{"key": "color", "value": "red"}]}],
  "remoteConfigParameters": [{
    "id": 300, "key": "banner", "type": "STRING", "identifierType": "$id",
    "targetRules": [], "defaultValue": {"id": 301, "value": "hello"}
  }]
}`

// recordingDecider captures tracked events and delegates decisions to a real client.
type recordingDecider struct {
	*sdk.Client

	mu     sync.Mutex
	events []sdk.Event
}

func (d *recordingDecider) Track(ev sdk.Event, user sdk.User) {
	d.mu.Lock()
	d.events = append(d.events, ev)
	d.mu.Unlock()
	d.Client.Track(ev, user)
}

func newTestDecider(t *testing.T) *recordingDecider {
	t.Helper()

	events := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(events.Close)

	ws, err := workspace.ParseJSON([]byte(relayWorkspace), nil)
	require.NoError(t, err)
	holder := workspace.NewHolder()
	holder.Store(ws)

	client, err := sdk.New("sdk-key",
		sdk.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))),
		sdk.WithEventsURL(events.URL),
		sdk.WithWorkspaceHolder(holder),
		sdk.WithEvents(sdk.EventOptions{FlushInterval: time.Hour, ShutdownTimeout: time.Second, DispatchTimeout: time.Second}),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return &recordingDecider{Client: client}
}

func newTestAPI(t *testing.T, cfg Config) (*API, *recordingDecider, *bytes.Buffer) {
	t.Helper()

	var buf bytes.Buffer
	decider := newTestDecider(t)
	return NewAPI(slog.New(slog.NewTextHandler(&buf, nil)), decider, cfg), decider, &buf
}

func doRequest(api *API, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	api.Router.ServeHTTP(rec, req)
	return rec
}

func TestAPI_Experiment(t *testing.T) {
	t.Parallel()

	api, _, _ := newTestAPI(t, Config{})

	tests := []struct {
		name          string
		path          string
		body          string
		wantStatus    int
		wantVariation string
		wantReason    string
		wantConfig    map[string]any
		wantCode      string
	}{
		{
			name:          "Should return the bucketed variation with its config",
			path:          "/api/v1/experiments/1",
			body:          `{"user":{"id":"u1"},"defaultVariation":"A"}`,
			wantStatus:    http.StatusOK,
			wantVariation: "B",
			wantReason:    "TRAFFIC_ALLOCATED",
			wantConfig:    map[string]any{"color": "red"},
		},
		{
			name:          "Should fall back to the default variation for an unknown experiment",
			path:          "/api/v1/experiments/999",
			body:          `{"user":{"id":"u1"},"defaultVariation":"C"}`,
			wantStatus:    http.StatusOK,
			wantVariation: "C",
			wantReason:    "EXPERIMENT_NOT_FOUND",
			wantConfig:    map[string]any{},
		},
		{
			name:          "Should default the variation to A",
			path:          "/api/v1/experiments/999",
			body:          `{"user":{"id":"u1"}}`,
			wantStatus:    http.StatusOK,
			wantVariation: "A",
			wantReason:    "EXPERIMENT_NOT_FOUND",
			wantConfig:    map[string]any{},
		},
		{
			name:          "Should report invalid input for a user without identifiers",
			path:          "/api/v1/experiments/1",
			body:          `{"user":{}}`,
			wantStatus:    http.StatusOK,
			wantVariation: "A",
			wantReason:    "INVALID_INPUT",
			wantConfig:    map[string]any{},
		},
		{
			name:       "Should reject a non-integer key",
			path:       "/api/v1/experiments/abc",
			body:       `{"user":{"id":"u1"}}`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "ERR_INVALID_KEY",
		},
		{
			name:       "Should reject malformed JSON",
			path:       "/api/v1/experiments/1",
			body:       `{"user":`,
			wantStatus: http.StatusBadRequest,
			wantCode:   "ERR_INVALID_JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Act
			rec := doRequest(api, http.MethodPost, tt.path, tt.body, nil)

			// Assert
			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode != "" {
				var errResp ErrorResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
				assert.Equal(t, tt.wantCode, errResp.Code)
				return
			}

			var resp ExperimentResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantVariation, resp.Variation)
			assert.Equal(t, tt.wantReason, resp.Reason)
			assert.Equal(t, tt.wantConfig, resp.Config)
		})
	}
}

func TestAPI_FeatureFlag(t *testing.T) {
	t.Parallel()

	// Arrange
	api, _, _ := newTestAPI(t, Config{})

	// Act
	rec := doRequest(api, http.MethodPost, "/api/v1/feature-flags/2", `{"user":{"id":"u1"}}`, nil)

	// Assert
	require.Equal(t, http.StatusOK, rec.Code)
	var resp FeatureFlagResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.True(t, resp.IsOn)
	assert.Equal(t, "DEFAULT_RULE", resp.Reason)
}

func TestAPI_RemoteConfig(t *testing.T) {
	t.Parallel()

	api, _, _ := newTestAPI(t, Config{})

	tests := []struct {
		name       string
		path       string
		body       string
		wantStatus int
		wantValue  any
		wantReason string
	}{
		{
			name:       "Should return the default rule value",
			path:       "/api/v1/remote-configs/banner",
			body:       `{"user":{"id":"u1"},"type":"string","default":"fallback"}`,
			wantStatus: http.StatusOK,
			wantValue:  "hello",
			wantReason: "DEFAULT_RULE",
		},
		{
			name:       "Should infer the type from the default",
			path:       "/api/v1/remote-configs/banner",
			body:       `{"user":{"id":"u1"},"default":"fallback"}`,
			wantStatus: http.StatusOK,
			wantValue:  "hello",
			wantReason: "DEFAULT_RULE",
		},
		{
			name:       "Should return the default on a type mismatch",
			path:       "/api/v1/remote-configs/banner",
			body:       `{"user":{"id":"u1"},"type":"NUMBER","default":7}`,
			wantStatus: http.StatusOK,
			wantValue:  float64(7),
			wantReason: "TYPE_MISMATCH",
		},
		{
			name:       "Should use the zero value when the default is missing",
			path:       "/api/v1/remote-configs/missing",
			body:       `{"user":{"id":"u1"},"type":"BOOLEAN"}`,
			wantStatus: http.StatusOK,
			wantValue:  false,
			wantReason: "REMOTE_CONFIG_PARAMETER_NOT_FOUND",
		},
		{
			name:       "Should reject a default that contradicts the type",
			path:       "/api/v1/remote-configs/banner",
			body:       `{"user":{"id":"u1"},"type":"BOOLEAN","default":"yes"}`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "Should reject an unknown type",
			path:       "/api/v1/remote-configs/banner",
			body:       `{"user":{"id":"u1"},"type":"JSON"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			rec := doRequest(api, http.MethodPost, tt.path, tt.body, nil)

			require.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus != http.StatusOK {
				var errResp ErrorResponse
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
				assert.Equal(t, "ERR_INVALID_INPUT", errResp.Code)
				return
			}

			var resp RemoteConfigResponse
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tt.wantValue, resp.Value)
			assert.Equal(t, tt.wantReason, resp.Reason)
		})
	}
}

func TestAPI_Track(t *testing.T) {
	t.Parallel()

	t.Run("Should accept a valid event", func(t *testing.T) {
		t.Parallel()

		// Arrange
		api, decider, _ := newTestAPI(t, Config{})

		// Act
		rec := doRequest(api, http.MethodPost, "/api/v1/events",
			`{"user":{"id":"u1"},"event":{"key":" purchase ","value":9.5}}`, nil)

		// Assert
		assert.Equal(t, http.StatusAccepted, rec.Code)
		decider.mu.Lock()
		defer decider.mu.Unlock()
		require.Len(t, decider.events, 1)
		assert.Equal(t, "purchase", decider.events[0].Key)
		require.NotNil(t, decider.events[0].Value)
		assert.Equal(t, 9.5, *decider.events[0].Value)
	})

	t.Run("Should reject an event without key or user", func(t *testing.T) {
		t.Parallel()

		api, decider, _ := newTestAPI(t, Config{})

		noKey := doRequest(api, http.MethodPost, "/api/v1/events", `{"user":{"id":"u1"},"event":{}}`, nil)
		noUser := doRequest(api, http.MethodPost, "/api/v1/events", `{"event":{"key":"purchase"}}`, nil)

		assert.Equal(t, http.StatusBadRequest, noKey.Code)
		assert.Equal(t, http.StatusBadRequest, noUser.Code)
		decider.mu.Lock()
		defer decider.mu.Unlock()
		assert.Empty(t, decider.events)
	})
}

func TestAPI_Authentication(t *testing.T) {
	t.Parallel()

	sum := sha256.Sum256([]byte("relay-secret"))
	hash := strings.ToUpper(hex.EncodeToString(sum[:]))
	api, _, logs := newTestAPI(t, Config{APIKeyHash: hash})

	tests := []struct {
		name       string
		path       string
		headers    map[string]string
		wantStatus int
	}{
		{
			name:       "Should reject a missing API key",
			path:       "/api/v1/feature-flags/2",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Should reject a wrong API key",
			path:       "/api/v1/feature-flags/2",
			headers:    map[string]string{"X-API-Key": "guess"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "Should accept the right API key",
			path:       "/api/v1/feature-flags/2",
			headers:    map[string]string{"X-API-Key": "relay-secret"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "Should leave the health check public",
			path:       "/health",
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			method := http.MethodPost
			if tt.path == "/health" {
				method = http.MethodGet
			}

			rec := doRequest(api, method, tt.path, `{"user":{"id":"u1"}}`, tt.headers)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}

	assert.Contains(t, logs.String(), "rejected request with invalid API key")
}

func TestAPI_Middleware(t *testing.T) {
	t.Parallel()

	t.Run("Should echo or generate the request id", func(t *testing.T) {
		t.Parallel()

		api, _, logs := newTestAPI(t, Config{})

		echoed := doRequest(api, http.MethodGet, "/health", "", map[string]string{"X-Request-Id": "req-123"})
		generated := doRequest(api, http.MethodGet, "/health", "", nil)

		assert.Equal(t, "req-123", echoed.Header().Get("X-Request-Id"))
		assert.Len(t, generated.Header().Get("X-Request-Id"), 36)
		assert.Contains(t, logs.String(), "request_id=req-123")
		assert.Contains(t, logs.String(), "HTTP request completed")
	})

	t.Run("Should reject bodies above the limit", func(t *testing.T) {
		t.Parallel()

		api, _, _ := newTestAPI(t, Config{MaxBodyBytes: 32})
		body := `{"user":{"id":"` + strings.Repeat("x", 64) + `"}}`

		rec := doRequest(api, http.MethodPost, "/api/v1/feature-flags/2", body, nil)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("Should answer JSON content type", func(t *testing.T) {
		t.Parallel()

		api, _, _ := newTestAPI(t, Config{})

		rec := doRequest(api, http.MethodGet, "/health", "", nil)

		assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")
	})
}

func TestNewAPI_PanicsOnNilDecider(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { NewAPI(nil, nil, Config{}) })
}
