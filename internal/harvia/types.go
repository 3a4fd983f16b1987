package harvia

// EndpointsConfig is the service discovery document served by the vendor.
// Base URLs are fetched once and treated as immutable configuration.
type EndpointsConfig struct {
	Endpoints struct {
		RestApi struct {
			Generics Endpoint `json:"generics"`
			Device   Endpoint `json:"device"`
			Data     Endpoint `json:"data"`
		} `json:"RestApi"`
		GraphQL struct {
			Device Endpoint `json:"device"`
			Data   Endpoint `json:"data"`
			Events Endpoint `json:"events"`
		} `json:"GraphQL"`
	} `json:"endpoints"`
}

// Endpoint holds a single base URL entry from the discovery document.
type Endpoint struct {
	HTTPS string `json:"https"`
}

// AuthTokens is the response of both the token and refresh endpoints.
type AuthTokens struct {
	IDToken      string `json:"idToken"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int    `json:"expiresIn"` // seconds
}

// Device is one entry from the device directory listing.
type Device struct {
	Name string       `json:"name"`
	Type string       `json:"type"`
	Attr []DeviceAttr `json:"attr"`
}

// DeviceAttr is a key/value attribute attached to a device.
type DeviceAttr struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// DeviceListResponse is the device directory response.
type DeviceListResponse struct {
	Devices   []Device `json:"devices"`
	NextToken string   `json:"nextToken,omitempty"`
}

// SensorData carries the measurement fields of a cabin reading. All fields
// are optional on the wire; pointers preserve absent-vs-zero when the
// reading is reshaped or re-serialized.
type SensorData struct {
	Temp           *float64 `json:"temp,omitempty"`
	Hum            *float64 `json:"hum,omitempty"`
	Presence       *float64 `json:"presence,omitempty"`
	HeapSize       *float64 `json:"heapSize,omitempty"`
	RSSI           *float64 `json:"rssi,omitempty"`
	TempEsp        *float64 `json:"tempEsp,omitempty"`
	TargetTemp     *float64 `json:"targetTemp,omitempty"`
	SaunaStatus    *int     `json:"saunaStatus,omitempty"`
	BatteryLoadV   *float64 `json:"batteryLoadV,omitempty"`
	ResetCnt       *int     `json:"resetCnt,omitempty"`
	BatteryVoltage *float64 `json:"batteryVoltage,omitempty"`
	TimeToTarget   *float64 `json:"timeToTarget,omitempty"`
}

// LatestDataResponse is the most recent reading for a device+cabin.
type LatestDataResponse struct {
	DeviceID  string     `json:"deviceId"`
	Timestamp string     `json:"timestamp"`
	Data      SensorData `json:"data"`
}

// TelemetryMeasurement is one sampled point of telemetry history.
type TelemetryMeasurement struct {
	Timestamp string     `json:"timestamp"`
	Data      SensorData `json:"data"`
}

// TelemetryHistoryResponse is an ordered sequence of sampled measurements.
// Sampling and aggregation happen vendor-side.
type TelemetryHistoryResponse struct {
	Measurements []TelemetryMeasurement `json:"measurements"`
	NextToken    string                 `json:"nextToken,omitempty"`
}

// Session is one bathing session summary. Stats is a JSON object the vendor
// pre-serializes to a string; it is handed to callers unparsed.
type Session struct {
	DeviceID       string `json:"deviceId"`
	SessionID      string `json:"sessionId"`
	OrganizationID string `json:"organizationId"`
	SubID          string `json:"subId"`
	Timestamp      string `json:"timestamp"`
	Type           string `json:"type,omitempty"`
	DurationMs     int64  `json:"durationMs,omitempty"`
	Stats          string `json:"stats,omitempty"`
}

// SessionsResponse is a page of session summaries.
type SessionsResponse struct {
	Sessions  []Session `json:"sessions"`
	NextToken string    `json:"nextToken,omitempty"`
}

// DeviceEvent is one device event or alert.
type DeviceEvent struct {
	DeviceID         string   `json:"deviceId"`
	Timestamp        string   `json:"timestamp"`
	EventID          string   `json:"eventId,omitempty"`
	OrganizationID   string   `json:"organizationId,omitempty"`
	UpdatedTimestamp string   `json:"updatedTimestamp,omitempty"`
	Type             string   `json:"type,omitempty"`       // SENSOR or GENERIC
	EventState       string   `json:"eventState,omitempty"` // ACTIVE or INACTIVE
	Severity         string   `json:"severity,omitempty"`   // LOW, MEDIUM, HIGH
	SensorName       string   `json:"sensorName,omitempty"`
	SensorValue      *float64 `json:"sensorValue,omitempty"`
	Metadata         string   `json:"metadata,omitempty"`
	DisplayName      string   `json:"displayName,omitempty"`
}

// EventsResponse is a page of device events.
type EventsResponse struct {
	Events    []DeviceEvent `json:"events"`
	NextToken string        `json:"nextToken,omitempty"`
}

// DeviceHealth is the diagnostics reshape of a latest reading, used by the
// dashboard health endpoint.
type DeviceHealth struct {
	DeviceID       string   `json:"deviceId"`
	Timestamp      string   `json:"timestamp"`
	BatteryVoltage *float64 `json:"batteryVoltage,omitempty"`
	BatteryLoadV   *float64 `json:"batteryLoadV,omitempty"`
	RSSI           *float64 `json:"rssi,omitempty"`
	TempEsp        *float64 `json:"tempEsp,omitempty"`
	TargetTemp     *float64 `json:"targetTemp,omitempty"`
	SaunaStatus    *int     `json:"saunaStatus,omitempty"`
	TimeToTarget   *float64 `json:"timeToTarget,omitempty"`
}
