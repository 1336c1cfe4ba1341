package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/lending-console/internal/models"
	"github.com/hongminglow/lending-console/internal/models/dto"
	"github.com/hongminglow/lending-console/internal/reconcile"
)

type staticToken string

func (s staticToken) Token(context.Context) (string, bool) {
	return string(s), s != ""
}

func testLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

type recorded struct {
	method, path, auth, contentType string
	body                            map[string]any
}

func setupBackend(t *testing.T, status int, reply string) (*httptest.Server, *[]recorded) {
	t.Helper()
	var calls []recorded
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := recorded{
			method:      r.Method,
			path:        r.URL.EscapedPath(),
			auth:        r.Header.Get("Authorization"),
			contentType: r.Header.Get("Content-Type"),
		}
		_ = json.NewDecoder(r.Body).Decode(&rec.body)
		calls = append(calls, rec)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(server.Close)
	return server, &calls
}

func TestClientAttachesBearerToken(t *testing.T) {
	server, calls := setupBackend(t, http.StatusOK, `[]`)
	client := New(server.URL+"/api/", staticToken("abc"), WithLogger(testLogger()))
	ctx := context.Background()

	_, err := client.ListCustomers(ctx)
	require.NoError(t, err)
	_, err = client.ListLoans(ctx)
	require.NoError(t, err)
	_, err = client.ListTransactions(ctx)
	require.NoError(t, err)

	require.Len(t, *calls, 3)
	for i, want := range []string{"/api/customers", "/api/loans", "/api/transactions"} {
		got := (*calls)[i]
		assert.Equal(t, http.MethodGet, got.method)
		assert.Equal(t, want, got.path)
		assert.Equal(t, "Bearer abc", got.auth)
		assert.Equal(t, "application/json", got.contentType)
	}
}

func TestClientLoginIsUnauthenticated(t *testing.T) {
	server, calls := setupBackend(t, http.StatusOK, `{"token":"t"}`)
	client := New(server.URL, staticToken("abc"), WithLogger(testLogger()))

	resp, err := client.Login(context.Background(), dto.LoginRequest{Email: "a@b.c", Password: "secret"})
	require.NoError(t, err)
	assert.True(t, resp.OK())

	_, err = client.Register(context.Background(), dto.RegisterRequest{Name: "A", Email: "a@b.c", Password: "secret", Role: "admin"})
	require.NoError(t, err)

	require.Len(t, *calls, 2)
	assert.Equal(t, "/auth/login", (*calls)[0].path)
	assert.Empty(t, (*calls)[0].auth)
	assert.Equal(t, "a@b.c", (*calls)[0].body["email"])
	assert.Equal(t, "/auth/register", (*calls)[1].path)
	assert.Empty(t, (*calls)[1].auth)
	assert.Equal(t, "admin", (*calls)[1].body["role"])
}

func TestClientOmitsHeaderWithoutToken(t *testing.T) {
	server, calls := setupBackend(t, http.StatusUnauthorized, `{"message":"missing token"}`)
	client := New(server.URL, staticToken(""), WithLogger(testLogger()))

	resp, err := client.ListCustomers(context.Background())
	require.NoError(t, err, "HTTP failures are not errors")
	assert.Equal(t, http.StatusUnauthorized, resp.Status)
	assert.False(t, resp.OK())
	assert.Empty(t, (*calls)[0].auth)

	out := Classify(resp, err)
	assert.Equal(t, reconcile.HTTPError, out.Kind)
	assert.Equal(t, "missing token", reconcile.Message(out.Body))
}

func TestClientMutations(t *testing.T) {
	server, calls := setupBackend(t, http.StatusOK, `{}`)
	client := New(server.URL, staticToken("abc"), WithLogger(testLogger()))
	ctx := context.Background()

	_, err := client.CreateCustomer(ctx, models.CustomerFields{Name: "Ama"})
	require.NoError(t, err)
	_, err = client.UpdateCustomer(ctx, "a/b", models.CustomerFields{Name: "Ama B"})
	require.NoError(t, err)
	_, err = client.DeleteCustomer(ctx, "7")
	require.NoError(t, err)
	_, err = client.CreateLoan(ctx, models.LoanFields{Customer: "Ama", Amount: 100})
	require.NoError(t, err)
	_, err = client.UpdateLoan(ctx, "3", models.LoanFields{Amount: 200})
	require.NoError(t, err)
	_, err = client.DeleteLoan(ctx, "3")
	require.NoError(t, err)

	want := []struct{ method, path string }{
		{http.MethodPost, "/customers"},
		{http.MethodPut, "/customers/a%2Fb"},
		{http.MethodDelete, "/customers/7"},
		{http.MethodPost, "/loans"},
		{http.MethodPut, "/loans/3"},
		{http.MethodDelete, "/loans/3"},
	}
	require.Len(t, *calls, len(want))
	for i, w := range want {
		assert.Equal(t, w.method, (*calls)[i].method)
		assert.Equal(t, w.path, (*calls)[i].path)
	}
	assert.Equal(t, "Ama", (*calls)[0].body["name"])
	assert.EqualValues(t, 200, (*calls)[4].body["amount"])
}

func TestClientSendsIdentifierVerbatim(t *testing.T) {
	server, calls := setupBackend(t, http.StatusOK, `{}`)
	client := New(server.URL, staticToken("abc"), WithLogger(testLogger()))
	ctx := context.Background()

	var loan models.Loan
	require.NoError(t, json.Unmarshal([]byte(`{"id":9007199254740993}`), &loan))
	_, err := client.DeleteLoan(ctx, loan.ID)
	require.NoError(t, err)
	_, err = client.UpdateCustomer(ctx, models.ParseID("0012"), models.CustomerFields{Name: "Ama"})
	require.NoError(t, err)

	require.Len(t, *calls, 2)
	assert.Equal(t, "/loans/9007199254740993", (*calls)[0].path)
	assert.Equal(t, "/customers/0012", (*calls)[1].path)
}

func TestClientPatchUpdates(t *testing.T) {
	server, calls := setupBackend(t, http.StatusOK, `{}`)
	client := New(server.URL, staticToken("abc"), WithPatchUpdates(), WithLogger(testLogger()))

	_, err := client.UpdateLoan(context.Background(), "1", models.LoanFields{})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, (*calls)[0].method)
}

func TestClientTransportError(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client := New(baseURL, staticToken("abc"), WithLogger(testLogger()))
	resp, err := client.ListCustomers(context.Background())
	assert.Nil(t, resp)

	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, http.MethodGet, transportErr.Method)
	assert.Equal(t, reconcile.TransportError, Classify(resp, err).Kind)
}

func TestClientCancelledContext(t *testing.T) {
	server, _ := setupBackend(t, http.StatusOK, `[]`)
	client := New(server.URL, nil, WithLogger(testLogger()))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.ListLoans(ctx)
	var transportErr *TransportError
	require.ErrorAs(t, err, &transportErr)
	assert.ErrorIs(t, err, context.Canceled)
}
