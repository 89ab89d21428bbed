package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gsm-dashboard/internal/directory"
	"gsm-dashboard/internal/gateway"
	"gsm-dashboard/internal/live"
	"gsm-dashboard/internal/prompt"
)

type quietLogger struct{}

func (quietLogger) Printf(string, ...any) {}

type nopSink struct{}

func (nopSink) BroadcastEvent(string, any) {}

// fakeModem mimics the firmware web server.
type fakeModem struct {
	mu       sync.Mutex
	contacts []gateway.Contact
	saves    int
	failSave bool
	sent     []gateway.SendRequest
	commands []string
	settings map[string]any
}

func (m *fakeModem) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/contacts.json":
		_ = json.NewEncoder(w).Encode(m.contacts)
	case "/api/contacts":
		if m.failSave {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"error":"flash full"}`))
			return
		}
		var contacts []gateway.Contact
		_ = json.NewDecoder(r.Body).Decode(&contacts)
		m.contacts = contacts
		m.saves++
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	case "/api/ldap-sync":
		_, _ = w.Write([]byte(`[{"name":"Eve","phone":"+420333"}]`))
	case "/api/sms-history":
		_, _ = w.Write([]byte(`{"history":[{"timestamp":1700000000,"recipient":"+420111","message":"hi"}]}`))
	case "/api/send-sms":
		var req gateway.SendRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		m.sent = append(m.sent, req)
		_, _ = w.Write([]byte(`{"status":"queued","id":3}`))
	case "/api/mqtt-test":
		_, _ = w.Write([]byte(`{"success":false,"error":"bad credentials"}`))
	case "/api/at/send":
		var req CommandRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		m.commands = append(m.commands, req.Command)
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("OK"))
	case "/api/settings":
		if r.Method == http.MethodPost {
			_ = json.NewDecoder(r.Body).Decode(&m.settings)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
			return
		}
		_, _ = w.Write([]byte(`{"ntpServer":"pool.ntp.org"}`))
	default:
		http.NotFound(w, r)
	}
}

func (m *fakeModem) state() ([]gateway.Contact, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]gateway.Contact(nil), m.contacts...), m.saves
}

type testEnv struct {
	router *gin.Engine
	modem  *fakeModem
	cache  *directory.Cache
	broker *prompt.Broker
}

func newTestEnvAt(t *testing.T, modemURL string, modem *fakeModem) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	gw := gateway.NewClient(modemURL, gateway.DefaultRoutes(), 2*time.Second)
	cache := directory.NewCache(gw, directory.Options{Logger: quietLogger{}})
	if modem != nil {
		require.NoError(t, cache.Load(ctx))
	}
	broker := prompt.NewBroker(nil, time.Second)
	dash := live.New(ctx, gw, nopSink{}, live.Options{Logger: quietLogger{}})

	r := gin.New()
	r.Use(CORS())
	RegisterRoutes(r, Handlers{
		Contacts:  NewContactHandler(cache, directory.NewSyncAdapter(gw, cache), broker),
		Dashboard: NewDashboardHandler(dash, nil),
		Device:    NewDeviceHandler(gw),
		Prompts:   NewPromptHandler(broker),
	})
	return &testEnv{router: r, modem: modem, cache: cache, broker: broker}
}

func newTestEnv(t *testing.T, contacts ...gateway.Contact) *testEnv {
	t.Helper()
	modem := &fakeModem{contacts: contacts}
	srv := httptest.NewServer(modem)
	t.Cleanup(srv.Close)
	return newTestEnvAt(t, srv.URL, modem)
}

func (e *testEnv) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if _, ok := body.(string); !ok && body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestContactLifecycle(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/contacts", ContactRequest{Name: "Ann", Phone: "+420111222"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[directory.Contact](t, w)
	assert.NotEmpty(t, created.ID)

	w = env.do(http.MethodPut, "/api/contacts/"+created.ID, ContactRequest{Name: "Ann", Phone: "bad"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodPut, "/api/contacts/missing", ContactRequest{Name: "Ann", Phone: "+420111222"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(http.MethodPut, "/api/contacts/"+created.ID, ContactRequest{Name: "Anna", Phone: "+420111222", Group: "Ops"})
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(http.MethodGet, "/api/contacts", nil)
	contacts := decode[[]directory.Contact](t, w)
	require.Len(t, contacts, 1)
	assert.Equal(t, "Anna", contacts[0].Name)

	w = env.do(http.MethodDelete, "/api/contacts/"+created.ID+"?confirm=true", nil)
	require.Equal(t, http.StatusOK, w.Code)

	stored, saves := env.modem.state()
	assert.Empty(t, stored)
	assert.Equal(t, 3, saves)
}

func TestDuplicatePhoneConflicts(t *testing.T) {
	env := newTestEnv(t, gateway.Contact{Name: "Ann", Phone: "+420111222"})

	w := env.do(http.MethodPost, "/api/contacts", ContactRequest{Name: "Bob", Phone: "+420111222"})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestStoreFailureReportsDivergence(t *testing.T) {
	env := newTestEnv(t)
	env.modem.mu.Lock()
	env.modem.failSave = true
	env.modem.mu.Unlock()

	w := env.do(http.MethodPost, "/api/contacts", ContactRequest{Name: "Ann", Phone: "+420111222"})
	require.Equal(t, http.StatusBadGateway, w.Code)
	body := decode[map[string]any](t, w)
	assert.Equal(t, true, body["diverged"])
	assert.Contains(t, body["error"], "flash full")
	assert.Equal(t, 1, env.cache.Len())
}

func TestDeleteWaitsForPromptAnswer(t *testing.T) {
	env := newTestEnv(t, gateway.Contact{Name: "Ann", Phone: "+420111222"})
	id := env.cache.Snapshot()[0].ID

	done := make(chan int, 1)
	go func() {
		done <- env.do(http.MethodDelete, "/api/contacts/"+id, nil).Code
	}()

	require.Eventually(t, func() bool { return len(env.broker.Pending()) == 1 }, time.Second, time.Millisecond)
	pending := decode[[]prompt.Request](t, env.do(http.MethodGet, "/api/prompts", nil))
	require.Len(t, pending, 1)
	assert.Equal(t, "Really delete contact Ann (+420111222)?", pending[0].Message)

	w := env.do(http.MethodPost, "/api/prompts/"+pending[0].ID, gin.H{"accepted": true})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusOK, <-done)
	assert.Equal(t, 0, env.cache.Len())

	w = env.do(http.MethodPost, "/api/prompts/"+pending[0].ID, gin.H{"accepted": true})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteAbandonedByClientIsConflict(t *testing.T) {
	env := newTestEnv(t, gateway.Contact{Name: "Ann", Phone: "+420111222"})
	id := env.cache.Snapshot()[0].ID

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodDelete, "/api/contacts/"+id, nil).WithContext(ctx)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusConflict, w.Code)
	body := decode[map[string]any](t, w)
	assert.NotContains(t, body, "diverged")
	assert.Equal(t, 1, env.cache.Len())
	assert.Empty(t, env.broker.Pending())
}

func TestDeclinedDeleteKeepsContact(t *testing.T) {
	env := newTestEnv(t, gateway.Contact{Name: "Ann", Phone: "+420111222"})
	id := env.cache.Snapshot()[0].ID

	done := make(chan int, 1)
	go func() {
		done <- env.do(http.MethodDelete, "/api/contacts/"+id, nil).Code
	}()
	require.Eventually(t, func() bool { return len(env.broker.Pending()) == 1 }, time.Second, time.Millisecond)
	require.NoError(t, env.broker.Resolve(env.broker.Pending()[0].ID, false))

	assert.Equal(t, http.StatusConflict, <-done)
	assert.Equal(t, 1, env.cache.Len())
}

func TestImportTextAndMultipart(t *testing.T) {
	env := newTestEnv(t, gateway.Contact{Name: "Ann", Phone: "+420111"})

	w := env.do(http.MethodPost, "/api/contacts/import", "name,phone,email,group\nAnn,+420111,,\nBob,+420222,b@x,H\n")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, directory.ImportResult{Accepted: 1, Duplicates: 1}, decode[directory.ImportResult](t, w))

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "contacts.csv")
	require.NoError(t, err)
	_, _ = part.Write([]byte("h\nCid,+420333\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/contacts/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 3, env.cache.Len())

	w = env.do(http.MethodGet, "/api/contacts/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(w.Body.String(), directory.ExportHeader+"\n"))
	assert.Contains(t, w.Body.String(), "Cid,+420333,,\n")
}

func TestSyncReplacesDirectory(t *testing.T) {
	env := newTestEnv(t, gateway.Contact{Name: "Ann", Phone: "+420111"})

	w := env.do(http.MethodPost, "/api/contacts/sync", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stored, _ := env.modem.state()
	assert.Equal(t, []gateway.Contact{{Name: "Eve", Phone: "+420333"}}, stored)

	w = env.do(http.MethodGet, "/api/recipients", nil)
	assert.Equal(t, []directory.Recipient{{Phone: "+420333", Label: "Eve (+420333)"}}, decode[[]directory.Recipient](t, w))
}

func TestSendMessage(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/messages", gin.H{"recipients": []string{}, "manual": " ", "message": "hi"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env.modem.mu.Lock()
	assert.Empty(t, env.modem.sent)
	env.modem.mu.Unlock()

	w = env.do(http.MethodPost, "/api/messages", gin.H{"recipients": []string{"+420111"}, "manual": "+420222", "message": "hi"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, gateway.SendResult{Status: "queued", ID: 3}, decode[gateway.SendResult](t, w))

	w = env.do(http.MethodPost, "/api/messages/preview", gin.H{"message": "hello"})
	assert.Equal(t, "5/160", decode[map[string]any](t, w)["counter"])
}

func TestBrokerTestReportsFirmwareAnswer(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/broker/test", gateway.BrokerCredentials{Broker: "mqtt.local", Port: 1883})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, gateway.BrokerTestResult{Success: false, Error: "bad credentials"}, decode[gateway.BrokerTestResult](t, w))
}

func TestBrokerTestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	env := newTestEnvAt(t, url, nil)

	w := env.do(http.MethodPost, "/api/broker/test", gateway.BrokerCredentials{Broker: "mqtt.local"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, gateway.BrokerTestResult{Success: false, Error: "connection error"}, decode[gateway.BrokerTestResult](t, w))
}

func TestConsoleCommand(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/console/command", CommandRequest{Command: "   "})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(http.MethodPost, "/api/console/command", CommandRequest{Command: " AT+CSQ "})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", decode[map[string]any](t, w)["response"])
	env.modem.mu.Lock()
	assert.Equal(t, []string{"AT+CSQ"}, env.modem.commands)
	env.modem.mu.Unlock()
}

func TestSaveSettingsKeepsZeroValues(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPut, "/api/settings", gin.H{"ntpServer": "pool.ntp.org", "baudRate": 9600, "maxRingCount": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	env.modem.mu.Lock()
	defer env.modem.mu.Unlock()
	require.NotNil(t, env.modem.settings)
	assert.Equal(t, float64(0), env.modem.settings["maxRingCount"])
	assert.Equal(t, float64(0), env.modem.settings["ntpPort"])
	assert.Equal(t, float64(9600), env.modem.settings["baudRate"])
}

func TestSettingsDefaultsAndLiveViews(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, "/api/settings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	s := decode[gateway.Settings](t, w)
	assert.Equal(t, "pool.ntp.org", s.NTPServer)
	assert.Equal(t, 115200, s.BaudRate)

	w = env.do(http.MethodGet, "/api/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entries := decode[[]gateway.HistoryEntry](t, w)
	require.Len(t, entries, 1)
	assert.Equal(t, "+420111", entries[0].Recipient)

	w = env.do(http.MethodGet, "/api/live/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, http.StatusNotFound, env.do(http.MethodGet, "/api/live/nope", nil).Code)

	w = env.do(http.MethodPost, "/api/live/console/auto", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(http.MethodGet, "/api/activity", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	env := newTestEnv(t)
	w := env.do(http.MethodOptions, "/api/contacts", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
