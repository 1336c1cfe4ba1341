package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/lending-console/internal/apiclient"
	"github.com/hongminglow/lending-console/internal/config"
	"github.com/hongminglow/lending-console/internal/console"
	"github.com/hongminglow/lending-console/internal/logging"
	"github.com/hongminglow/lending-console/internal/middleware"
	"github.com/hongminglow/lending-console/internal/session"
	"github.com/hongminglow/lending-console/internal/storage/memory"
)

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Token   string          `json:"token"`
	Data    json.RawMessage `json:"data"`
}

type stack struct {
	backend *httptest.Server
	console *httptest.Server
}

func newStack(t *testing.T) *stack {
	t.Helper()
	log := logging.Discard()
	cfg := config.Config{
		JWTSecret:   "test-secret",
		JWTIssuer:   "lending-backend",
		JWTTTL:      time.Hour,
		CORSOrigins: []string{"*"},
	}
	backend := httptest.NewServer(BackendRoutes(cfg, memory.NewSeeded(), middleware.NewRateLimiter(100, 100, log), nil, log))
	t.Cleanup(backend.Close)

	workspaces := console.NewWorkspaces(session.NewMemoryKV(), func(store *session.Store) console.Backend {
		return apiclient.New(backend.URL+"/api", store, apiclient.WithLogger(log))
	}, false, time.Hour, log)
	consoleSrv := httptest.NewServer(ConsoleRoutes(config.ConsoleConfig{CORSOrigins: []string{"*"}}, workspaces, nil, log))
	t.Cleanup(consoleSrv.Close)

	return &stack{backend: backend, console: consoleSrv}
}

func browser(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{Jar: jar, Timeout: 10 * time.Second}
}

func call(t *testing.T, c *http.Client, method, url string, body any, token string) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestConsoleAgainstBackend(t *testing.T) {
	s := newStack(t)
	admin := browser(t)

	code, env := call(t, admin, http.MethodPost, s.console.URL+"/console/register", map[string]string{
		"name": "Ops", "email": "ops@example.com", "password": "password1", "role": "admin",
	}, "")
	require.Equal(t, http.StatusOK, code, env.Message)
	assert.JSONEq(t, `{"signedIn":true,"role":"admin","admin":true,"demo":false}`, string(env.Data))

	code, env = call(t, admin, http.MethodGet, s.console.URL+"/console/customers", nil, "")
	require.Equal(t, http.StatusOK, code)
	var customers struct {
		Items   []json.RawMessage `json:"items"`
		CanEdit bool              `json:"canEdit"`
		Seeded  bool              `json:"seeded"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &customers))
	assert.Len(t, customers.Items, 8)
	assert.True(t, customers.CanEdit)
	assert.False(t, customers.Seeded)

	code, env = call(t, admin, http.MethodPost, s.console.URL+"/console/loans", map[string]any{
		"customer": "Esi", "amount": 1200, "interestRate": 4, "term": 6,
	}, "")
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Loan added successfully!", env.Message)

	code, env = call(t, admin, http.MethodGet, s.console.URL+"/console/dashboard", nil, "")
	require.Equal(t, http.StatusOK, code)
	var dash struct {
		TotalDisbursed string `json:"totalDisbursed"`
		TotalRevenue   string `json:"totalRevenue"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &dash))
	assert.Equal(t, "26700", dash.TotalDisbursed)
	assert.Equal(t, "23200", dash.TotalRevenue)

	code, _ = call(t, admin, http.MethodDelete, s.console.URL+"/console/customers/3", nil, "")
	require.Equal(t, http.StatusOK, code)
	code, env = call(t, admin, http.MethodGet, s.backend.URL+"/api/customers", nil, "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestBackendRechecksRole(t *testing.T) {
	s := newStack(t)
	c := browser(t)

	code, env := call(t, c, http.MethodPost, s.backend.URL+"/api/auth/register", map[string]string{
		"name": "Viewer", "email": "viewer@example.com", "password": "password1", "role": "viewer",
	}, "")
	require.Equal(t, http.StatusCreated, code, env.Message)
	require.NotEmpty(t, env.Token)

	code, _ = call(t, c, http.MethodGet, s.backend.URL+"/api/loans", nil, env.Token)
	assert.Equal(t, http.StatusOK, code)

	code, env = call(t, c, http.MethodPost, s.backend.URL+"/api/customers", map[string]string{"name": "Mallory"}, env.Token)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "admin role required", env.Message)
}

func TestViewerConsoleHidesMutations(t *testing.T) {
	s := newStack(t)
	viewer := browser(t)

	code, _ := call(t, viewer, http.MethodPost, s.console.URL+"/console/register", map[string]string{
		"name": "Viewer", "email": "v@example.com", "password": "password1", "role": "viewer",
	}, "")
	require.Equal(t, http.StatusOK, code)

	code, _ = call(t, viewer, http.MethodPost, s.console.URL+"/console/customers", map[string]string{"name": "X"}, "")
	assert.Equal(t, http.StatusForbidden, code)
}

func TestConsoleLoginFailureSurfaces(t *testing.T) {
	s := newStack(t)
	c := browser(t)

	code, env := call(t, c, http.MethodPost, s.console.URL+"/console/login", map[string]string{
		"email": "nobody@example.com", "password": "password1",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "invalid credentials", env.Message)
}

func TestHealthAndMetrics(t *testing.T) {
	s := newStack(t)
	c := browser(t)

	code, env := call(t, c, http.MethodGet, s.backend.URL+"/health", nil, "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "ok", env.Message)

	resp, err := c.Get(s.console.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
