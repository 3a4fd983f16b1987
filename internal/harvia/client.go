package harvia

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"
)

const (
	// DefaultBaseURL is the production discovery host; override via Config
	// for testing or staging environments.
	DefaultBaseURL = "https://prod.api.harvia.io"

	// defaultCabinID scopes telemetry calls; single-cabin devices always
	// report under C1.
	defaultCabinID = "C1"

	// tokenExpiryMargin is how long before expiry a token is considered
	// stale and gets refreshed.
	tokenExpiryMargin = 5 * time.Minute
)

var (
	ErrMissingCredentials = errors.New("harvia username and password are required")
	ErrNoDevices          = errors.New("no devices found for this account")
)

// APIError is returned when the vendor answers with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("harvia API returned status %d: %s", e.StatusCode, e.Body)
}

// GraphQLError is returned when a 200 response carries a populated errors
// array. The payload is kept verbatim for callers to render.
type GraphQLError struct {
	Errors json.RawMessage
}

func (e *GraphQLError) Error() string {
	return fmt.Sprintf("graphql errors: %s", string(e.Errors))
}

// SamplingMode selects vendor-side aggregation for telemetry history.
type SamplingMode string

const (
	SamplingAverage SamplingMode = "average"
	SamplingLatest  SamplingMode = "latest"
)

// Config contains Harvia account credentials and the discovery host.
type Config struct {
	Username string
	Password string
	BaseURL  string // defaults to DefaultBaseURL
}

// Client is an authenticated client for the Harvia sauna cloud API. It
// discovers the vendor endpoints once, authenticates lazily, refreshes
// tokens ahead of expiry and caches the account's first device id. One
// instance is shared across all callers in the process; the mutex coalesces
// concurrent refreshes so an expiring token is only refreshed once.
type Client struct {
	config     Config
	httpClient *http.Client

	mu           sync.Mutex
	endpoints    *EndpointsConfig
	idToken      string
	accessToken  string
	refreshToken string
	tokenExpiry  time.Time
	deviceID     string

	now func() time.Time
}

// NewClient creates a Harvia API client. Credentials are mandatory.
func NewClient(config Config) (*Client, error) {
	if config.Username == "" || config.Password == "" {
		return nil, ErrMissingCredentials
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}, nil
}

// ensureReady brings the client into an authenticated state and returns the
// current bearer token together with the cached endpoints config. It fetches
// the discovery document on first use, authenticates when no token is held
// and refreshes when the held token is within the expiry margin. A failed
// refresh falls back to full re-authentication; refresh tokens routinely go
// stale over long idle periods and that must stay invisible to callers.
func (c *Client) ensureReady(ctx context.Context) (string, *EndpointsConfig, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.endpoints == nil {
		if err := c.fetchEndpoints(ctx); err != nil {
			return "", nil, err
		}
	}

	switch {
	case c.idToken == "":
		if err := c.authenticate(ctx); err != nil {
			return "", nil, err
		}
	case !c.now().Before(c.tokenExpiry.Add(-tokenExpiryMargin)):
		if c.refreshToken == "" {
			if err := c.authenticate(ctx); err != nil {
				return "", nil, err
			}
			break
		}
		if err := c.refresh(ctx); err != nil {
			if err := c.authenticate(ctx); err != nil {
				return "", nil, err
			}
		}
	}

	return c.idToken, c.endpoints, nil
}

// fetchEndpoints loads the discovery document. Caller must hold c.mu.
func (c *Client) fetchEndpoints(ctx context.Context) error {
	var endpoints EndpointsConfig
	if err := c.doRequest(ctx, http.MethodGet, c.config.BaseURL+"/endpoints", "", nil, &endpoints); err != nil {
		return fmt.Errorf("failed to fetch endpoints: %w", err)
	}
	c.endpoints = &endpoints
	return nil
}

// authenticate performs a full username/password authentication and stores
// the returned token triple. Caller must hold c.mu.
func (c *Client) authenticate(ctx context.Context) error {
	base := c.endpoints.Endpoints.RestApi.Generics.HTTPS

	var tokens AuthTokens
	err := c.doRequest(ctx, http.MethodPost, base+"/auth/token", "", map[string]string{
		"username": c.config.Username,
		"password": c.config.Password,
	}, &tokens)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	c.idToken = tokens.IDToken
	c.accessToken = tokens.AccessToken
	c.refreshToken = tokens.RefreshToken
	c.tokenExpiry = c.now().Add(time.Duration(tokens.ExpiresIn) * time.Second)
	return nil
}

// refresh exchanges the stored refresh token for fresh session tokens. The
// refresh token itself is kept; the vendor does not rotate it here. Caller
// must hold c.mu.
func (c *Client) refresh(ctx context.Context) error {
	base := c.endpoints.Endpoints.RestApi.Generics.HTTPS

	var tokens AuthTokens
	err := c.doRequest(ctx, http.MethodPost, base+"/auth/refresh", "", map[string]string{
		"refreshToken": c.refreshToken,
		"email":        c.config.Username,
	}, &tokens)
	if err != nil {
		return fmt.Errorf("token refresh failed: %w", err)
	}

	c.idToken = tokens.IDToken
	c.accessToken = tokens.AccessToken
	c.tokenExpiry = c.now().Add(time.Duration(tokens.ExpiresIn) * time.Second)
	return nil
}

// DeviceID returns the account's device id, resolving it on first use by
// listing the device directory and taking the first entry. The id is cached
// for the life of the client and never re-resolved.
func (c *Client) DeviceID(ctx context.Context) (string, error) {
	token, endpoints, err := c.ensureReady(ctx)
	if err != nil {
		return "", err
	}
	return c.resolveDeviceID(ctx, token, endpoints)
}

func (c *Client) resolveDeviceID(ctx context.Context, token string, endpoints *EndpointsConfig) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.deviceID != "" {
		return c.deviceID, nil
	}

	base := endpoints.Endpoints.RestApi.Device.HTTPS

	var list DeviceListResponse
	if err := c.doRequest(ctx, http.MethodGet, base+"/devices?maxResults=1", token, nil, &list); err != nil {
		return "", fmt.Errorf("failed to fetch devices: %w", err)
	}
	if len(list.Devices) == 0 {
		return "", ErrNoDevices
	}

	c.deviceID = list.Devices[0].Name
	return c.deviceID, nil
}

// GetLatestData returns the most recent reading for the device's cabin.
func (c *Client) GetLatestData(ctx context.Context) (*LatestDataResponse, error) {
	token, endpoints, err := c.ensureReady(ctx)
	if err != nil {
		return nil, err
	}
	deviceID, err := c.resolveDeviceID(ctx, token, endpoints)
	if err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/data/latest-data?deviceId=%s&cabinId=%s",
		endpoints.Endpoints.RestApi.Data.HTTPS, url.QueryEscape(deviceID), defaultCabinID)

	var latest LatestDataResponse
	if err := c.doRequest(ctx, http.MethodGet, reqURL, token, nil, &latest); err != nil {
		return nil, fmt.Errorf("failed to fetch latest data: %w", err)
	}
	return &latest, nil
}

// GetTelemetryHistory returns sampled historical telemetry between the two
// timestamps. Timestamps are passed to the vendor verbatim; each endpoint
// keeps its own encoding and the client does not normalize them.
func (c *Client) GetTelemetryHistory(ctx context.Context, startTimestamp, endTimestamp string, samplingMode SamplingMode, sampleAmount int) (*TelemetryHistoryResponse, error) {
	token, endpoints, err := c.ensureReady(ctx)
	if err != nil {
		return nil, err
	}
	deviceID, err := c.resolveDeviceID(ctx, token, endpoints)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("deviceId", deviceID)
	params.Set("cabinId", defaultCabinID)
	params.Set("startTimestamp", startTimestamp)
	params.Set("endTimestamp", endTimestamp)
	params.Set("samplingMode", string(samplingMode))
	params.Set("sampleAmount", strconv.Itoa(sampleAmount))

	reqURL := endpoints.Endpoints.RestApi.Data.HTTPS + "/data/telemetry-history?" + params.Encode()

	var history TelemetryHistoryResponse
	if err := c.doRequest(ctx, http.MethodGet, reqURL, token, nil, &history); err != nil {
		return nil, fmt.Errorf("failed to fetch telemetry history: %w", err)
	}
	return &history, nil
}

const sessionsQuery = `
query DevicesSessionsList(
  $deviceId: String!
  $startTimestamp: AWSDateTime!
  $endTimestamp: AWSDateTime!
  $nextToken: String
) {
  devicesSessionsList(
    deviceId: $deviceId
    startTimestamp: $startTimestamp
    endTimestamp: $endTimestamp
    nextToken: $nextToken
  ) {
    sessions {
      deviceId
      sessionId
      organizationId
      subId
      timestamp
      type
      durationMs
      stats
    }
    nextToken
  }
}`

// GetSessions returns a page of bathing session summaries between the two
// ISO-8601 timestamps. Pass the returned NextToken to continue.
func (c *Client) GetSessions(ctx context.Context, startTimestamp, endTimestamp, nextToken string) (*SessionsResponse, error) {
	token, endpoints, err := c.ensureReady(ctx)
	if err != nil {
		return nil, err
	}
	deviceID, err := c.resolveDeviceID(ctx, token, endpoints)
	if err != nil {
		return nil, err
	}

	variables := map[string]interface{}{
		"deviceId":       deviceID,
		"startTimestamp": startTimestamp,
		"endTimestamp":   endTimestamp,
	}
	if nextToken != "" {
		variables["nextToken"] = nextToken
	}

	var result struct {
		DevicesSessionsList SessionsResponse `json:"devicesSessionsList"`
	}
	if err := c.graphqlRequest(ctx, endpoints.Endpoints.GraphQL.Data.HTTPS, token, sessionsQuery, variables, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch sessions: %w", err)
	}
	return &result.DevicesSessionsList, nil
}

const eventsQuery = `
query DevicesEventsList(
  $deviceId: ID!
  $period: TimePeriod
  $nextToken: ID
) {
  devicesEventsList(
    deviceId: $deviceId
    period: $period
    nextToken: $nextToken
  ) {
    events {
      deviceId
      timestamp
      eventId
      organizationId
      updatedTimestamp
      type
      eventState
      severity
      sensorName
      sensorValue
      metadata
      displayName
    }
    nextToken
  }
}`

// GetEvents returns a page of device events between the two ISO-8601
// timestamps. The events endpoint expects its time window as epoch
// millisecond strings inside a period object; the conversion happens here
// and only here.
func (c *Client) GetEvents(ctx context.Context, startTimestamp, endTimestamp, nextToken string) (*EventsResponse, error) {
	start, err := time.Parse(time.RFC3339, startTimestamp)
	if err != nil {
		return nil, fmt.Errorf("invalid startTimestamp %q: %w", startTimestamp, err)
	}
	end, err := time.Parse(time.RFC3339, endTimestamp)
	if err != nil {
		return nil, fmt.Errorf("invalid endTimestamp %q: %w", endTimestamp, err)
	}

	token, endpoints, err := c.ensureReady(ctx)
	if err != nil {
		return nil, err
	}
	deviceID, err := c.resolveDeviceID(ctx, token, endpoints)
	if err != nil {
		return nil, err
	}

	variables := map[string]interface{}{
		"deviceId": deviceID,
		"period": map[string]string{
			"startTimestamp": strconv.FormatInt(start.UnixMilli(), 10),
			"endTimestamp":   strconv.FormatInt(end.UnixMilli(), 10),
		},
	}
	if nextToken != "" {
		variables["nextToken"] = nextToken
	}

	var result struct {
		DevicesEventsList EventsResponse `json:"devicesEventsList"`
	}
	if err := c.graphqlRequest(ctx, endpoints.Endpoints.GraphQL.Events.HTTPS, token, eventsQuery, variables, &result); err != nil {
		return nil, fmt.Errorf("failed to fetch events: %w", err)
	}
	return &result.DevicesEventsList, nil
}

// graphqlRequest posts a query and unwraps the response envelope. A 200
// response with a populated errors array is a failure, never a success.
func (c *Client) graphqlRequest(ctx context.Context, endpoint, token, query string, variables map[string]interface{}, out interface{}) error {
	payload := map[string]interface{}{
		"query":     query,
		"variables": variables,
	}

	var envelope struct {
		Data   json.RawMessage `json:"data"`
		Errors json.RawMessage `json:"errors"`
	}
	if err := c.doRequest(ctx, http.MethodPost, endpoint, token, payload, &envelope); err != nil {
		return err
	}

	if len(envelope.Errors) > 0 && string(envelope.Errors) != "null" {
		return &GraphQLError{Errors: envelope.Errors}
	}
	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to parse graphql response: %w", err)
		}
	}
	return nil
}

// doRequest performs one HTTP call against the vendor. A non-2xx status is
// returned as an *APIError carrying the status code and body.
func (c *Client) doRequest(ctx context.Context, method, reqURL, bearer string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}
