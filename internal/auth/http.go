package auth

import (
	"encoding/json"
	"net/http"
	"net/netip"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"CatalogStore/pkg/kit"
)

const (
	maxBodyBytes = 1 << 16

	loginLimitPerMin = 5
	limitWindow      = 60 * time.Second
)

type Server struct {
	Log      *zap.Logger
	Store    UserStore
	JWT      *TokenMaker
	TokenTTL time.Duration

	// TrustedProxies may set X-Forwarded-For for the login rate limit.
	TrustedProxies []netip.Prefix
}

// Mount registers the login route on r.
func (s *Server) Mount(r chi.Router) {
	limiter := kit.NewIPRateLimiter(loginLimitPerMin, limitWindow, s.TrustedProxies...)
	r.With(limiter.Middleware).Post("/auth/login", s.handleLogin)
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResp struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	var req loginReq
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		kit.WriteError(w, r, http.StatusBadRequest, "email/password required", nil)
		return
	}

	u, err := s.Store.Verify(req.Email, req.Password)
	if err != nil {
		kit.WriteError(w, r, http.StatusUnauthorized, "invalid credentials", nil)
		return
	}

	tok, err := s.JWT.New(u, s.TokenTTL)
	if err != nil {
		if s.Log != nil {
			s.Log.Error("token issue", zap.Error(err))
		}
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	if s.Log != nil {
		s.Log.Info("admin login", zap.String("user_id", u.ID))
	}
	kit.WriteJSON(w, http.StatusOK, loginResp{AccessToken: tok, ExpiresIn: int64(s.TokenTTL.Seconds())})
}
