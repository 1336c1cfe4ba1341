package session

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("any-secret"))
	require.NoError(t, err)
	return token
}

func TestRoleFromToken(t *testing.T) {
	admin := signed(t, jwt.MapClaims{"role": "admin", "sub": "1"})
	viewer := signed(t, jwt.MapClaims{"role": "viewer"})
	noRole := signed(t, jwt.MapClaims{"sub": "1"})
	numeric := signed(t, jwt.MapClaims{"role": 7})
	twoPart := "x." + base64.StdEncoding.EncodeToString([]byte(`{"role":"admin"}`))
	demoWithRole := "demo." + base64.RawURLEncoding.EncodeToString([]byte(`{"role":"viewer"}`))

	tests := []struct {
		name   string
		token  string
		demo   bool
		want   string
		wantOK bool
	}{
		{"admin jwt", admin, false, "admin", true},
		{"viewer jwt", viewer, false, "viewer", true},
		{"no role claim", noRole, false, "", false},
		{"non-string role", numeric, false, "", false},
		{"two segments", twoPart, false, "admin", true},
		{"garbage", "not-a-token", false, "", false},
		{"bad base64", "a.!!!.c", false, "", false},
		{"bad json", "a." + base64.RawURLEncoding.EncodeToString([]byte("{")) + ".c", false, "", false},
		{"demo token without demo mode", DemoToken, false, "", false},
		{"demo token in demo mode", DemoToken, true, "admin", true},
		{"demo token with role", demoWithRole, true, "viewer", true},
		{"demo garbage in demo mode", "demo.@@@", true, "admin", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := RoleFromToken(tt.token, tt.demo)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryKV())

	_, ok := store.Token(ctx)
	assert.False(t, ok)
	assert.False(t, store.IsAdmin(ctx))

	require.NoError(t, store.SetToken(ctx, signed(t, jwt.MapClaims{"role": "admin"})))
	assert.True(t, store.IsAdmin(ctx))
	role, ok := store.Role(ctx)
	assert.True(t, ok)
	assert.Equal(t, "admin", role)

	require.NoError(t, store.Logout(ctx))
	_, ok = store.Token(ctx)
	assert.False(t, ok)
	assert.False(t, store.IsAdmin(ctx))
}

func TestStoreViewerIsNotAdmin(t *testing.T) {
	ctx := context.Background()
	store := NewStore(NewMemoryKV(), WithDemoMode(true))
	require.NoError(t, store.SetToken(ctx, signed(t, jwt.MapClaims{"role": "viewer"})))
	assert.False(t, store.IsAdmin(ctx))

	require.NoError(t, store.SetToken(ctx, DemoToken))
	assert.True(t, store.IsAdmin(ctx))
}

func TestNamespaceIsolatesWorkspaces(t *testing.T) {
	ctx := context.Background()
	shared := NewMemoryKV()
	a := NewStore(Namespace(shared, "a"))
	b := NewStore(Namespace(shared, "b"))

	require.NoError(t, a.SetToken(ctx, "token-a"))
	_, ok := b.Token(ctx)
	assert.False(t, ok)

	got, ok := a.Token(ctx)
	assert.True(t, ok)
	assert.Equal(t, "token-a", got)
}

func TestFileKVPersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	first := NewStore(NewFileKV(path))
	require.NoError(t, first.SetToken(ctx, "persisted"))

	second := NewStore(NewFileKV(path))
	got, ok := second.Token(ctx)
	require.True(t, ok)
	assert.Equal(t, "persisted", got)

	require.NoError(t, second.Logout(ctx))
	_, ok = first.Token(ctx)
	assert.False(t, ok)
}

func TestFileKVCorruptFileCountsAsNoToken(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o600))

	store := NewStore(NewFileKV(path))
	_, ok := store.Token(ctx)
	assert.False(t, ok)
	assert.False(t, store.IsAdmin(ctx))
}

// TestRedisKV runs against a live Redis.
func TestRedisKV(t *testing.T) {
	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		t.Skip("set REDIS_URL to run the Redis session test")
	}
	ctx := context.Background()
	kv, err := NewRedisKV(ctx, redisURL, time.Minute)
	require.NoError(t, err)
	defer kv.Close()

	store := NewStore(Namespace(kv, "test-"+time.Now().Format("150405.000000")))
	require.NoError(t, store.SetToken(ctx, DemoToken))
	got, ok := store.Token(ctx)
	require.True(t, ok)
	assert.Equal(t, DemoToken, got)
	require.NoError(t, store.Logout(ctx))
	_, ok = store.Token(ctx)
	assert.False(t, ok)
}
