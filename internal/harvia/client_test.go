package harvia

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// vendorServer fakes the Harvia cloud: discovery document, auth endpoints,
// device directory, telemetry REST and the two GraphQL surfaces. All bases
// in the discovery document point back at the test server.
type vendorServer struct {
	*httptest.Server

	mu            sync.Mutex
	calls         map[string]int
	lastBearer    string
	lastGraphQL   map[string]interface{}
	lastHistoryQS map[string]string

	expiresIn     int
	refreshStatus int
	latestStatus  int
	devices       []Device
	graphqlErrors string
}

func newVendorServer(t *testing.T) *vendorServer {
	v := &vendorServer{
		calls:         make(map[string]int),
		expiresIn:     3600,
		refreshStatus: http.StatusOK,
		latestStatus:  http.StatusOK,
		devices:       []Device{{Name: "sauna-device-1", Type: "sauna"}},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/endpoints", v.handleEndpoints)
	mux.HandleFunc("/auth/token", v.handleToken)
	mux.HandleFunc("/auth/refresh", v.handleRefresh)
	mux.HandleFunc("/devices", v.handleDevices)
	mux.HandleFunc("/data/latest-data", v.handleLatest)
	mux.HandleFunc("/data/telemetry-history", v.handleHistory)
	mux.HandleFunc("/graphql/data", v.handleGraphQL("devicesSessionsList"))
	mux.HandleFunc("/graphql/events", v.handleGraphQL("devicesEventsList"))

	v.Server = httptest.NewServer(mux)
	t.Cleanup(v.Close)
	return v
}

func (v *vendorServer) count(name string) {
	v.mu.Lock()
	v.calls[name]++
	v.mu.Unlock()
}

func (v *vendorServer) callCount(name string) int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.calls[name]
}

func (v *vendorServer) lastBearerValue() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastBearer
}

func (v *vendorServer) handleEndpoints(w http.ResponseWriter, r *http.Request) {
	v.count("endpoints")
	base := "http://" + r.Host
	json.NewEncoder(w).Encode(map[string]interface{}{
		"endpoints": map[string]interface{}{
			"RestApi": map[string]interface{}{
				"generics": map[string]string{"https": base},
				"device":   map[string]string{"https": base},
				"data":     map[string]string{"https": base},
			},
			"GraphQL": map[string]interface{}{
				"device": map[string]string{"https": base + "/graphql/device"},
				"data":   map[string]string{"https": base + "/graphql/data"},
				"events": map[string]string{"https": base + "/graphql/events"},
			},
		},
	})
}

func (v *vendorServer) handleToken(w http.ResponseWriter, r *http.Request) {
	v.count("auth")
	json.NewEncoder(w).Encode(AuthTokens{
		IDToken:      "id-token-full",
		AccessToken:  "access-token-full",
		RefreshToken: "refresh-token-1",
		ExpiresIn:    v.expiresIn,
	})
}

func (v *vendorServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	v.count("refresh")
	if v.refreshStatus != http.StatusOK {
		w.WriteHeader(v.refreshStatus)
		w.Write([]byte(`{"message":"refresh token expired"}`))
		return
	}
	json.NewEncoder(w).Encode(AuthTokens{
		IDToken:     "id-token-refreshed",
		AccessToken: "access-token-refreshed",
		ExpiresIn:   v.expiresIn,
	})
}

func (v *vendorServer) handleDevices(w http.ResponseWriter, r *http.Request) {
	v.count("devices")
	json.NewEncoder(w).Encode(DeviceListResponse{Devices: v.devices})
}

func (v *vendorServer) handleLatest(w http.ResponseWriter, r *http.Request) {
	v.count("latest")
	v.mu.Lock()
	v.lastBearer = r.Header.Get("Authorization")
	v.mu.Unlock()
	if v.latestStatus != http.StatusOK {
		w.WriteHeader(v.latestStatus)
		w.Write([]byte(`{"message":"unavailable"}`))
		return
	}
	temp, hum, presence := 82.5, 33.0, 1.0
	json.NewEncoder(w).Encode(LatestDataResponse{
		DeviceID:  r.URL.Query().Get("deviceId"),
		Timestamp: "2025-06-01T10:00:00Z",
		Data:      SensorData{Temp: &temp, Hum: &hum, Presence: &presence},
	})
}

func (v *vendorServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	v.count("history")
	v.mu.Lock()
	v.lastHistoryQS = map[string]string{}
	for key := range r.URL.Query() {
		v.lastHistoryQS[key] = r.URL.Query().Get(key)
	}
	v.mu.Unlock()
	json.NewEncoder(w).Encode(TelemetryHistoryResponse{
		Measurements: []TelemetryMeasurement{{Timestamp: "2025-06-01T09:00:00Z"}},
	})
}

func (v *vendorServer) handleGraphQL(field string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v.count(field)

		var req struct {
			Query     string                 `json:"query"`
			Variables map[string]interface{} `json:"variables"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		v.mu.Lock()
		v.lastGraphQL = req.Variables
		v.mu.Unlock()

		if v.graphqlErrors != "" {
			w.Write([]byte(`{"data":null,"errors":` + v.graphqlErrors + `}`))
			return
		}

		var payload interface{}
		if field == "devicesSessionsList" {
			payload = SessionsResponse{
				Sessions:  []Session{{DeviceID: "sauna-device-1", SessionID: "s-1", Stats: `{"maxTemp":85}`}},
				NextToken: "page-2",
			}
		} else {
			payload = EventsResponse{
				Events: []DeviceEvent{{DeviceID: "sauna-device-1", Severity: "HIGH", DisplayName: "Overheat"}},
			}
		}
		// Some resolvers serialize an explicit null errors field; that is a
		// success, not a failure.
		json.NewEncoder(w).Encode(map[string]interface{}{
			"data":   map[string]interface{}{field: payload},
			"errors": nil,
		})
	}
}

func newTestClient(t *testing.T, v *vendorServer) *Client {
	client, err := NewClient(Config{
		Username: "user@example.com",
		Password: "secret",
		BaseURL:  v.URL,
	})
	require.NoError(t, err)
	return client
}

func TestNewClient_MissingCredentials(t *testing.T) {
	_, err := NewClient(Config{Username: "user@example.com"})
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, err = NewClient(Config{Password: "secret"})
	assert.ErrorIs(t, err, ErrMissingCredentials)
}

func TestClient_GetLatestData_ColdClient(t *testing.T) {
	v := newVendorServer(t)
	client := newTestClient(t, v)

	latest, err := client.GetLatestData(context.Background())
	require.NoError(t, err)

	require.NotNil(t, latest.Data.Temp)
	assert.Equal(t, 82.5, *latest.Data.Temp)
	assert.Equal(t, "sauna-device-1", latest.DeviceID)

	// Cold start: discovery, auth, device directory, then the data call.
	assert.Equal(t, 1, v.callCount("endpoints"))
	assert.Equal(t, 1, v.callCount("auth"))
	assert.Equal(t, 1, v.callCount("devices"))
	assert.Equal(t, 1, v.callCount("latest"))
	assert.Equal(t, 0, v.callCount("refresh"))
}

func TestClient_GetLatestData_WarmClient(t *testing.T) {
	v := newVendorServer(t)
	client := newTestClient(t, v)

	_, err := client.GetLatestData(context.Background())
	require.NoError(t, err)
	_, err = client.GetLatestData(context.Background())
	require.NoError(t, err)

	// Warm call only hits the data endpoint; endpoints, token and device id
	// are all cached.
	assert.Equal(t, 1, v.callCount("endpoints"))
	assert.Equal(t, 1, v.callCount("auth"))
	assert.Equal(t, 1, v.callCount("devices"))
	assert.Equal(t, 2, v.callCount("latest"))
}

func TestClient_TokenFreshness(t *testing.T) {
	tests := []struct {
		name        string
		untilExpiry time.Duration
		wantRefresh int
	}{
		{name: "just inside margin", untilExpiry: 4 * time.Minute, wantRefresh: 1},
		{name: "exactly at margin", untilExpiry: 5 * time.Minute, wantRefresh: 1},
		{name: "outside margin", untilExpiry: 6 * time.Minute, wantRefresh: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := newVendorServer(t)
			client := newTestClient(t, v)

			_, err := client.GetLatestData(context.Background())
			require.NoError(t, err)

			now := time.Now()
			client.now = func() time.Time { return now }
			client.mu.Lock()
			client.tokenExpiry = now.Add(tt.untilExpiry)
			client.mu.Unlock()

			_, err = client.GetLatestData(context.Background())
			require.NoError(t, err)

			assert.Equal(t, tt.wantRefresh, v.callCount("refresh"))
			assert.Equal(t, 1, v.callCount("auth"))
			if tt.wantRefresh > 0 {
				assert.Equal(t, "Bearer id-token-refreshed", v.lastBearerValue())
			}
		})
	}
}

func TestClient_RefreshFailureFallsBackToFullAuth(t *testing.T) {
	v := newVendorServer(t)
	client := newTestClient(t, v)

	_, err := client.GetLatestData(context.Background())
	require.NoError(t, err)

	// Make the held token stale and the refresh endpoint reject it.
	v.refreshStatus = http.StatusUnauthorized
	client.mu.Lock()
	client.tokenExpiry = time.Now()
	client.mu.Unlock()

	_, err = client.GetLatestData(context.Background())
	require.NoError(t, err, "refresh failure must not surface to the caller")

	assert.Equal(t, 1, v.callCount("refresh"))
	assert.Equal(t, 2, v.callCount("auth"))
}

func TestClient_DeviceIDCachedAcrossOperations(t *testing.T) {
	v := newVendorServer(t)
	client := newTestClient(t, v)
	ctx := context.Background()

	_, err := client.GetLatestData(ctx)
	require.NoError(t, err)
	_, err = client.GetSessions(ctx, "2025-05-25T00:00:00Z", "2025-06-01T00:00:00Z", "")
	require.NoError(t, err)
	_, err = client.GetTelemetryHistory(ctx, "2025-05-31T00:00:00Z", "2025-06-01T00:00:00Z", SamplingAverage, 100)
	require.NoError(t, err)

	assert.Equal(t, 1, v.callCount("devices"))
}

func TestClient_NoDevices(t *testing.T) {
	v := newVendorServer(t)
	v.devices = nil
	client := newTestClient(t, v)

	_, err := client.GetLatestData(context.Background())
	assert.ErrorIs(t, err, ErrNoDevices)
}

func TestClient_HTTPErrorCarriesStatus(t *testing.T) {
	v := newVendorServer(t)
	v.latestStatus = http.StatusServiceUnavailable
	client := newTestClient(t, v)

	_, err := client.GetLatestData(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusServiceUnavailable, apiErr.StatusCode)
}

func TestClient_GraphQLErrorsAreFailures(t *testing.T) {
	v := newVendorServer(t)
	v.graphqlErrors = `[{"message":"unauthorized field access"}]`
	client := newTestClient(t, v)

	_, err := client.GetSessions(context.Background(), "2025-05-25T00:00:00Z", "2025-06-01T00:00:00Z", "")
	require.Error(t, err)

	var gqlErr *GraphQLError
	require.ErrorAs(t, err, &gqlErr)
	assert.Contains(t, gqlErr.Error(), "unauthorized field access")
}

func TestClient_GetTelemetryHistory_PassesParamsVerbatim(t *testing.T) {
	v := newVendorServer(t)
	client := newTestClient(t, v)

	_, err := client.GetTelemetryHistory(context.Background(),
		"2025-05-31T00:00:00Z", "2025-06-01T00:00:00Z", SamplingLatest, 50)
	require.NoError(t, err)

	v.mu.Lock()
	qs := v.lastHistoryQS
	v.mu.Unlock()

	assert.Equal(t, "sauna-device-1", qs["deviceId"])
	assert.Equal(t, "C1", qs["cabinId"])
	assert.Equal(t, "2025-05-31T00:00:00Z", qs["startTimestamp"])
	assert.Equal(t, "2025-06-01T00:00:00Z", qs["endTimestamp"])
	assert.Equal(t, "latest", qs["samplingMode"])
	assert.Equal(t, "50", qs["sampleAmount"])
}

func TestClient_GetSessions_VariablesAndPagination(t *testing.T) {
	v := newVendorServer(t)
	client := newTestClient(t, v)

	resp, err := client.GetSessions(context.Background(),
		"2025-05-25T00:00:00Z", "2025-06-01T00:00:00Z", "cursor-1")
	require.NoError(t, err)

	require.Len(t, resp.Sessions, 1)
	assert.Equal(t, `{"maxTemp":85}`, resp.Sessions[0].Stats, "stats blob stays unparsed")
	assert.Equal(t, "page-2", resp.NextToken)

	v.mu.Lock()
	vars := v.lastGraphQL
	v.mu.Unlock()

	// Sessions keep ISO-8601 timestamps on the wire.
	assert.Equal(t, "2025-05-25T00:00:00Z", vars["startTimestamp"])
	assert.Equal(t, "2025-06-01T00:00:00Z", vars["endTimestamp"])
	assert.Equal(t, "sauna-device-1", vars["deviceId"])
	assert.Equal(t, "cursor-1", vars["nextToken"])
}

func TestClient_GetEvents_PeriodUsesEpochMillis(t *testing.T) {
	v := newVendorServer(t)
	client := newTestClient(t, v)

	start := "2025-05-25T00:00:00Z"
	end := "2025-06-01T00:00:00Z"
	resp, err := client.GetEvents(context.Background(), start, end, "")
	require.NoError(t, err)
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "HIGH", resp.Events[0].Severity)

	v.mu.Lock()
	vars := v.lastGraphQL
	v.mu.Unlock()

	period, ok := vars["period"].(map[string]interface{})
	require.True(t, ok, "period should be an object")

	startMs, _ := time.Parse(time.RFC3339, start)
	endMs, _ := time.Parse(time.RFC3339, end)
	assert.Equal(t, "1748131200000", period["startTimestamp"])
	assert.Equal(t, "1748736000000", period["endTimestamp"])
	assert.Equal(t, startMs.UnixMilli(), int64(1748131200000))
	assert.Equal(t, endMs.UnixMilli(), int64(1748736000000))
	_, hasNext := vars["nextToken"]
	assert.False(t, hasNext, "nextToken omitted when empty")
}

func TestClient_GetEvents_InvalidTimestamp(t *testing.T) {
	v := newVendorServer(t)
	client := newTestClient(t, v)

	_, err := client.GetEvents(context.Background(), "yesterday", "2025-06-01T00:00:00Z", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid startTimestamp")
	assert.Equal(t, 0, v.callCount("endpoints"), "no network call on bad input")
}

func TestClient_ConcurrentRefreshCoalesces(t *testing.T) {
	v := newVendorServer(t)
	client := newTestClient(t, v)

	_, err := client.GetLatestData(context.Background())
	require.NoError(t, err)

	client.mu.Lock()
	client.tokenExpiry = time.Now()
	client.mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.GetLatestData(context.Background())
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	// The mutex serializes ensure-ready; the first caller refreshes and the
	// rest see a fresh token.
	assert.Equal(t, 1, v.callCount("refresh"))
}
