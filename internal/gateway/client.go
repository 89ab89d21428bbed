package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPError is returned for any non-2xx answer from the modem.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("modem http %d", e.StatusCode)
	}
	return fmt.Sprintf("modem http %d: %s", e.StatusCode, e.Message)
}

// Routes maps each collection to its path on the modem web server.
type Routes struct {
	Contacts      string
	SaveContacts  string
	ExternalSync  string
	DeviceStatus  string
	QueueStatus   string
	History       string
	HistoryConfig string
	SendMessage   string
	BrokerConfig  string
	BrokerTest    string
	Settings      string
	Command       string
	CommandLog    string
	CallLog       string
}

func DefaultRoutes() Routes {
	return Routes{
		Contacts:      "/contacts.json",
		SaveContacts:  "/api/contacts",
		ExternalSync:  "/api/ldap-sync",
		DeviceStatus:  "/api/modem-status",
		QueueStatus:   "/api/sms-status",
		History:       "/api/sms-history",
		HistoryConfig: "/api/config",
		SendMessage:   "/api/send-sms",
		BrokerConfig:  "/api/mqtt-config",
		BrokerTest:    "/api/mqtt-test",
		Settings:      "/api/settings",
		Command:       "/api/at/send",
		CommandLog:    "/api/at/log",
		CallLog:       "/api/call-log",
	}
}

type Client struct {
	baseURL    string
	routes     Routes
	httpClient *http.Client
}

// NewClient builds a client for the modem at baseURL. A timeout of zero leaves
// calls unbounded; callers bound them with their context instead.
func NewClient(baseURL string, routes Routes, timeout time.Duration) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = "http://192.168.1.50"
	}
	return &Client{
		baseURL:    baseURL,
		routes:     routes,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// --- Helper Functions ---

func (c *Client) url(route string) string {
	if strings.HasPrefix(route, "http://") || strings.HasPrefix(route, "https://") {
		return route
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	return c.baseURL + route
}

func (c *Client) sendRequest(ctx context.Context, method, route string, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url(route), bodyReader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return respBody, &HTTPError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}
	return respBody, nil
}

func (c *Client) getJSON(ctx context.Context, route string, out interface{}) error {
	resp, err := c.sendRequest(ctx, http.MethodGet, route, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp, out); err != nil {
		return fmt.Errorf("decode %s: %w", route, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, route string, body, out interface{}) error {
	resp, err := c.sendRequest(ctx, http.MethodPost, route, body)
	if err != nil {
		return err
	}
	if out == nil || len(bytes.TrimSpace(resp)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp, out); err != nil {
		return fmt.Errorf("decode %s: %w", route, err)
	}
	return nil
}

// errorMessage pulls {"error": "..."} out of a firmware error body, falling
// back to the raw text.
func errorMessage(body []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(body))
}

// --- Directory ---

func (c *Client) FetchContacts(ctx context.Context) ([]Contact, error) {
	var contacts []Contact
	if err := c.getJSON(ctx, c.routes.Contacts, &contacts); err != nil {
		return nil, err
	}
	if contacts == nil {
		contacts = []Contact{}
	}
	return contacts, nil
}

// ReplaceContacts sends the entire directory. The modem has no per-record
// endpoint; whatever is sent becomes the stored collection.
func (c *Client) ReplaceContacts(ctx context.Context, contacts []Contact) error {
	if contacts == nil {
		contacts = []Contact{}
	}
	return c.postJSON(ctx, c.routes.SaveContacts, contacts, nil)
}

func (c *Client) FetchExternalDirectory(ctx context.Context) ([]Contact, error) {
	var contacts []Contact
	if err := c.getJSON(ctx, c.routes.ExternalSync, &contacts); err != nil {
		return nil, err
	}
	if contacts == nil {
		contacts = []Contact{}
	}
	return contacts, nil
}

// --- Live status ---

func (c *Client) DeviceStatus(ctx context.Context) (DeviceStatus, error) {
	var status DeviceStatus
	err := c.getJSON(ctx, c.routes.DeviceStatus, &status)
	return status, err
}

func (c *Client) QueueStatus(ctx context.Context) (QueueSnapshot, error) {
	var snapshot QueueSnapshot
	if err := c.getJSON(ctx, c.routes.QueueStatus, &snapshot); err != nil {
		return QueueSnapshot{}, err
	}
	if snapshot.Queue == nil {
		snapshot.Queue = []QueueItem{}
	}
	return snapshot, nil
}

// --- History ---

// History reads the message history. Firmware versions answer either a bare
// array or {"history": [...]}; anything else reads as empty.
func (c *Client) History(ctx context.Context) ([]HistoryEntry, error) {
	resp, err := c.sendRequest(ctx, http.MethodGet, c.routes.History, nil)
	if err != nil {
		return nil, err
	}
	return decodeHistory(resp), nil
}

func decodeHistory(raw []byte) []HistoryEntry {
	var list []HistoryEntry
	if err := json.Unmarshal(raw, &list); err == nil && list != nil {
		return list
	}
	var wrapped struct {
		History []HistoryEntry `json:"history"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && wrapped.History != nil {
		return wrapped.History
	}
	return []HistoryEntry{}
}

func (c *Client) HistoryConfig(ctx context.Context) (HistoryConfig, error) {
	var cfg HistoryConfig
	err := c.getJSON(ctx, c.routes.HistoryConfig, &cfg)
	return cfg, err
}

func (c *Client) SaveHistoryConfig(ctx context.Context, cfg HistoryConfig) error {
	return c.postJSON(ctx, c.routes.HistoryConfig, cfg, nil)
}

func (c *Client) CallLog(ctx context.Context) ([]CallLogEntry, error) {
	var entries []CallLogEntry
	if err := c.getJSON(ctx, c.routes.CallLog, &entries); err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []CallLogEntry{}
	}
	return entries, nil
}

// --- Messaging ---

func (c *Client) SendMessage(ctx context.Context, req SendRequest) (SendResult, error) {
	var result SendResult
	err := c.postJSON(ctx, c.routes.SendMessage, req, &result)
	return result, err
}

// --- Broker ---

func (c *Client) BrokerConfig(ctx context.Context) (BrokerConfig, error) {
	var cfg BrokerConfig
	err := c.getJSON(ctx, c.routes.BrokerConfig, &cfg)
	return cfg, err
}

func (c *Client) SaveBrokerConfig(ctx context.Context, cfg BrokerConfig) error {
	return c.postJSON(ctx, c.routes.BrokerConfig, cfg, nil)
}

// TestBroker asks the modem to try a connection with the given credentials.
// The firmware answers {success, error} even when the attempt fails, so only
// transport problems come back as an error.
func (c *Client) TestBroker(ctx context.Context, creds BrokerCredentials) (BrokerTestResult, error) {
	var result BrokerTestResult
	resp, err := c.sendRequest(ctx, http.MethodPost, c.routes.BrokerTest, creds)
	if err != nil {
		var httpErr *HTTPError
		if len(resp) > 0 && json.Unmarshal(resp, &result) == nil && errors.As(err, &httpErr) {
			return result, nil
		}
		return BrokerTestResult{}, err
	}
	if err := json.Unmarshal(resp, &result); err != nil {
		return BrokerTestResult{}, fmt.Errorf("decode %s: %w", c.routes.BrokerTest, err)
	}
	return result, nil
}

// --- Device settings ---

func (c *Client) Settings(ctx context.Context) (Settings, error) {
	var s Settings
	if err := c.getJSON(ctx, c.routes.Settings, &s); err != nil {
		return Settings{}, err
	}
	return s.WithDefaults(), nil
}

func (c *Client) SaveSettings(ctx context.Context, s Settings) error {
	return c.postJSON(ctx, c.routes.Settings, s, nil)
}

// --- AT console ---

// SendCommand forwards a raw AT command and returns the modem's raw answer.
func (c *Client) SendCommand(ctx context.Context, command string) (string, error) {
	resp, err := c.sendRequest(ctx, http.MethodPost, c.routes.Command, map[string]string{"command": command})
	if err != nil {
		return "", err
	}
	return string(resp), nil
}

func (c *Client) CommandLog(ctx context.Context) (string, error) {
	resp, err := c.sendRequest(ctx, http.MethodGet, c.routes.CommandLog, nil)
	if err != nil {
		return "", err
	}
	return string(resp), nil
}
