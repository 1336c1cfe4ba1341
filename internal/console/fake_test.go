package console

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/lending-console/internal/apiclient"
	"github.com/hongminglow/lending-console/internal/logging"
	"github.com/hongminglow/lending-console/internal/models"
	"github.com/hongminglow/lending-console/internal/models/dto"
	"github.com/hongminglow/lending-console/internal/session"
)

var errOffline = errors.New("connection refused")

type reply func(ctx context.Context, payload any) (*apiclient.Response, error)

func answer(status int, body string) reply {
	return func(context.Context, any) (*apiclient.Response, error) {
		return &apiclient.Response{Status: status, Header: http.Header{}, Body: []byte(body)}, nil
	}
}

func offline() reply {
	return func(context.Context, any) (*apiclient.Response, error) {
		return nil, &apiclient.TransportError{Method: "GET", URL: "http://backend", Err: errOffline}
	}
}

type call struct {
	Op      string
	ID      models.ID
	Payload string
}

// fakeBackend answers each operation with the reply registered for it.
// Unregistered operations behave like an unreachable backend.
type fakeBackend struct {
	mu      sync.Mutex
	replies map[string]reply
	calls   []call
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{replies: map[string]reply{}}
}

func (f *fakeBackend) on(op string, r reply) *fakeBackend {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies[op] = r
	return f
}

func (f *fakeBackend) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func (f *fakeBackend) invoke(ctx context.Context, op string, id models.ID, payload any) (*apiclient.Response, error) {
	raw := ""
	if payload != nil {
		b, _ := json.Marshal(payload)
		raw = string(b)
	}
	f.mu.Lock()
	f.calls = append(f.calls, call{Op: op, ID: id, Payload: raw})
	r, ok := f.replies[op]
	f.mu.Unlock()
	if !ok {
		r = offline()
	}
	return r(ctx, payload)
}

func (f *fakeBackend) Login(ctx context.Context, creds dto.LoginRequest) (*apiclient.Response, error) {
	return f.invoke(ctx, "Login", "", creds)
}

func (f *fakeBackend) Register(ctx context.Context, profile dto.RegisterRequest) (*apiclient.Response, error) {
	return f.invoke(ctx, "Register", "", profile)
}

func (f *fakeBackend) ListCustomers(ctx context.Context) (*apiclient.Response, error) {
	return f.invoke(ctx, "ListCustomers", "", nil)
}

func (f *fakeBackend) CreateCustomer(ctx context.Context, fields models.CustomerFields) (*apiclient.Response, error) {
	return f.invoke(ctx, "CreateCustomer", "", fields)
}

func (f *fakeBackend) UpdateCustomer(ctx context.Context, id models.ID, fields models.CustomerFields) (*apiclient.Response, error) {
	return f.invoke(ctx, "UpdateCustomer", id, fields)
}

func (f *fakeBackend) DeleteCustomer(ctx context.Context, id models.ID) (*apiclient.Response, error) {
	return f.invoke(ctx, "DeleteCustomer", id, nil)
}

func (f *fakeBackend) ListLoans(ctx context.Context) (*apiclient.Response, error) {
	return f.invoke(ctx, "ListLoans", "", nil)
}

func (f *fakeBackend) CreateLoan(ctx context.Context, fields models.LoanFields) (*apiclient.Response, error) {
	return f.invoke(ctx, "CreateLoan", "", fields)
}

func (f *fakeBackend) UpdateLoan(ctx context.Context, id models.ID, fields models.LoanFields) (*apiclient.Response, error) {
	return f.invoke(ctx, "UpdateLoan", id, fields)
}

func (f *fakeBackend) DeleteLoan(ctx context.Context, id models.ID) (*apiclient.Response, error) {
	return f.invoke(ctx, "DeleteLoan", id, nil)
}

func (f *fakeBackend) ListTransactions(ctx context.Context) (*apiclient.Response, error) {
	return f.invoke(ctx, "ListTransactions", "", nil)
}

func token(t *testing.T, role string) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"role": role, "sub": "1"}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

// newTestWorkspace returns a workspace signed in with role, or signed out
// when role is empty.
func newTestWorkspace(t *testing.T, role string, backend *fakeBackend, opts ...session.Option) *Workspace {
	t.Helper()
	opts = append(opts, session.WithLogger(logging.Discard()))
	store := session.NewStore(session.NewMemoryKV(), opts...)
	if role != "" {
		require.NoError(t, store.SetToken(context.Background(), token(t, role)))
	}
	return NewWorkspace(store, backend, logging.Discard())
}
