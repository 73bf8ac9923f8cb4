package auth

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestStore(t *testing.T) *MemStore {
	t.Helper()

	s := NewMemStore()
	s.cost = bcrypt.MinCost
	return s
}

func TestMemStore_CreateAndVerify(t *testing.T) {
	s := newTestStore(t)

	u, err := s.Create(" Admin@Example.com ", "password123", RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", u.Email)
	assert.NotEmpty(t, u.ID)
	assert.NotEqual(t, []byte("password123"), u.Hash)

	_, err = s.Create("admin@example.com", "other", RoleAdmin)
	assert.ErrorIs(t, err, ErrEmailExists)

	got, err := s.Verify("ADMIN@example.com", "password123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = s.Verify("admin@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = s.Verify("nobody@example.com", "password123")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestTokenMaker_RoundTrip(t *testing.T) {
	tm := NewTokenMaker(testSecret)
	u := User{ID: "u_1", Email: "a@b.c", Role: RoleAdmin}

	tok, err := tm.New(u, time.Minute)
	require.NoError(t, err)

	c, err := tm.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u_1", c.UserID)
	assert.Equal(t, RoleAdmin, c.Role)

	_, err = NewTokenMaker("another-secret-another-secret-xx").Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenMaker_Expired(t *testing.T) {
	tm := NewTokenMaker(testSecret)
	tm.now = func() time.Time { return time.Now().Add(-time.Hour) }

	tok, err := tm.New(User{ID: "u_1", Role: RoleAdmin}, time.Minute)
	require.NoError(t, err)

	_, err = NewTokenMaker(testSecret).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRequireRole(t *testing.T) {
	tm := NewTokenMaker(testSecret)

	var seen Claims
	h := RequireRole(tm, RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	admin, err := tm.New(User{ID: "u_1", Role: RoleAdmin}, time.Minute)
	require.NoError(t, err)
	viewer, err := tm.New(User{ID: "u_2", Role: "viewer"}, time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "Bearer nope", http.StatusUnauthorized},
		{"wrong role", "Bearer " + viewer, http.StatusForbidden},
		{"admin", "Bearer " + admin, http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodDelete, "/products/1", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
	assert.Equal(t, "u_1", seen.UserID)
}

func TestAdmin_LogsAuthorizedUser(t *testing.T) {
	tm := NewTokenMaker(testSecret)
	core, logs := observer.New(zap.InfoLevel)

	h := Admin(tm, RoleAdmin, zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	admin, err := tm.New(User{ID: "u_1", Email: "admin@example.com", Role: RoleAdmin}, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodDelete, "/products/7", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNoContent, rec.Code)

	entries := logs.FilterMessage("admin request").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "u_1", fields["user_id"])
	assert.Equal(t, "admin@example.com", fields["email"])
	assert.Equal(t, "/products/7", fields["path"])

	// Rejected requests never reach the audit log.
	req = httptest.NewRequest(http.MethodDelete, "/products/7", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, 1, logs.FilterMessage("admin request").Len())
}

func TestLogin(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Create("admin@example.com", "password123", RoleAdmin)
	require.NoError(t, err)

	tm := NewTokenMaker(testSecret)
	s := &Server{Log: zap.NewNop(), Store: store, JWT: tm, TokenTTL: 15 * time.Minute}

	r := chi.NewRouter()
	s.Mount(r)

	post := func(body any) *httptest.ResponseRecorder {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(raw))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec
	}

	rec := post(map[string]string{"email": "admin@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var lr loginResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lr))
	assert.Equal(t, int64(900), lr.ExpiresIn)

	c, err := tm.Parse(lr.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, c.Role)

	rec = post(map[string]string{"email": "admin@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(map[string]string{"email": "", "password": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLogin_RateLimited(t *testing.T) {
	s := &Server{Store: newTestStore(t), JWT: NewTokenMaker(testSecret), TokenTTL: time.Minute}
	r := chi.NewRouter()
	s.Mount(r)

	codes := make([]int, 0, loginLimitPerMin+1)
	for i := 0; i <= loginLimitPerMin; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"x@y.z","password":"p"}`))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, http.StatusUnauthorized, codes[0])
	assert.Equal(t, http.StatusTooManyRequests, codes[loginLimitPerMin])
}

func TestLogin_RateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	s := &Server{Store: newTestStore(t), JWT: NewTokenMaker(testSecret), TokenTTL: time.Minute}
	r := chi.NewRouter()
	s.Mount(r)

	limited := 0
	for i := 0; i < 50; i++ {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"admin@example.com","password":"guess"}`))
		req.RemoteAddr = "203.0.113.7:40000"
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		if i == loginLimitPerMin {
			require.Equal(t, http.StatusTooManyRequests, rec.Code, "attempt %d", i+1)
		}
		if rec.Code == http.StatusTooManyRequests {
			limited++
		}
	}
	assert.Equal(t, 50-loginLimitPerMin, limited)
}

func TestLogin_RateLimitPerClientBehindTrustedProxy(t *testing.T) {
	s := &Server{
		Store:          newTestStore(t),
		JWT:            NewTokenMaker(testSecret),
		TokenTTL:       time.Minute,
		TrustedProxies: []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")},
	}
	r := chi.NewRouter()
	s.Mount(r)

	login := func(client string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewBufferString(`{"email":"x@y.z","password":"p"}`))
		req.RemoteAddr = "10.0.0.2:5000"
		req.Header.Set("X-Forwarded-For", client)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	for i := 0; i < loginLimitPerMin; i++ {
		require.Equal(t, http.StatusUnauthorized, login("198.51.100.1"))
	}
	assert.Equal(t, http.StatusTooManyRequests, login("198.51.100.1"))
	assert.Equal(t, http.StatusUnauthorized, login("198.51.100.2"))
}
