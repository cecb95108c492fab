// Package mockapi is an in-process fake of the Tiger Trade statistics service.
// It issues HS256 access tokens, rotates refresh-token cookies and serves the
// analyzer, exchanges and users endpoints, with hooks to force statuses and
// count calls per route.
package mockapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
)

// Route names, usable with Count, Fail and LastQuery
const (
	RouteLogin          = "login"
	RouteRefresh        = "refresh"
	RouteAccount        = "account"
	RouteAnalyzer       = "analyzer"
	RouteExchanges      = "exchanges"
	RouteExchangeSymbol = "exchange-symbols"
	RouteExchangeStats  = "exchange-stats"
	RouteUsers          = "users"
	RouteCurrentUser    = "current-user"
	RouteUserStats      = "user-stats"
	RouteMyStats        = "my-stats"
)

// Paths served by the fake
const (
	LoginPath    = "/auth/login"
	RefreshPath  = "/auth/refresh"
	AccountPath  = "/protected/api/v1/trading/account"
	AnalyzerPath = "/statistics-gtw/protected/api/v1/statistics/proxy/api/v2/analyzer"
)

// DefaultTokenTTL is the lifetime of issued access tokens
const DefaultTokenTTL = 15 * time.Minute

type forced struct {
	status int
	body   string
}

// Server is the fake service
type Server struct {
	mu sync.Mutex

	router       *mux.Router
	username     string
	passwordHash []byte
	secret       []byte
	serial       int

	refreshTokens map[string]bool
	revoked       map[string]bool
	counts        map[string]int
	queries       map[string]url.Values
	failures      map[string][]forced

	// TokenTTL is the lifetime of issued access tokens
	TokenTTL time.Duration

	// RotateRefresh makes login and refresh set a new refreshToken cookie
	RotateRefresh bool

	// RefreshOmitsToken makes the refresh endpoint answer 200 without accessToken
	RefreshOmitsToken bool

	Logger *slog.Logger
}

// New creates a fake that accepts the given login
func New(username, password string) *Server {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("mockapi: hashing password: %v", err))
	}
	s := &Server{
		username:      username,
		passwordHash:  hash,
		secret:        []byte("mockapi-secret"),
		refreshTokens: map[string]bool{},
		revoked:       map[string]bool{},
		counts:        map[string]int{},
		queries:       map[string]url.Values{},
		failures:      map[string][]forced{},
		TokenTTL:      DefaultTokenTTL,
		RotateRefresh: true,
		Logger:        slog.Default(),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.record)

	r.HandleFunc(LoginPath, s.onLogin).Methods(http.MethodPost).Name(RouteLogin)
	r.HandleFunc(RefreshPath, s.onRefresh).Methods(http.MethodPost).Name(RouteRefresh)

	protected := r.NewRoute().Subrouter()
	protected.Use(s.requireToken)
	protected.HandleFunc(AccountPath, s.onAccount).Methods(http.MethodGet).Name(RouteAccount)
	protected.HandleFunc(AnalyzerPath, s.onAnalyzer).Methods(http.MethodGet).Name(RouteAnalyzer)
	protected.HandleFunc("/exchanges", s.onExchanges).Methods(http.MethodGet).Name(RouteExchanges)
	protected.HandleFunc("/exchanges/{id:[0-9]+}/symbols", s.onExchangeSymbols).Methods(http.MethodGet).Name(RouteExchangeSymbol)
	protected.HandleFunc("/exchanges/{id:[0-9]+}/stats", s.onExchangeStats).Methods(http.MethodGet).Name(RouteExchangeStats)
	protected.HandleFunc("/users", s.onUsers).Methods(http.MethodGet).Name(RouteUsers)
	protected.HandleFunc("/users/me", s.onCurrentUser).Methods(http.MethodGet).Name(RouteCurrentUser)
	protected.HandleFunc("/users/me/stats", s.onUserStats).Methods(http.MethodGet).Name(RouteMyStats)
	protected.HandleFunc("/users/{id:[0-9]+}/stats", s.onUserStats).Methods(http.MethodGet).Name(RouteUserStats)
	return r
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// record counts the call, keeps its query and serves a forced failure if one is queued
func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}

		s.mu.Lock()
		s.counts[name]++
		s.queries[name] = r.URL.Query()
		var f *forced
		if queue := s.failures[name]; len(queue) > 0 {
			f = &queue[0]
			s.failures[name] = queue[1:]
		}
		s.mu.Unlock()

		s.Logger.Debug("mockapi request", "route", name, "method", r.Method, "path", r.URL.Path)
		if f != nil {
			w.WriteHeader(f.status)
			w.Write([]byte(f.body))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// requireToken rejects requests without a valid, unrevoked bearer token
func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		if len(auth) < 8 || auth[:7] != "Bearer " {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": "missing bearer token"})
			return
		}
		if err := s.verify(auth[7:]); err != nil {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"detail": err.Error()})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// IssueToken mints an access token the fake will accept
func (s *Server) IssueToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.issueLocked()
}

func (s *Server) issueLocked() string {
	s.serial++
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  s.username,
		"type": "access",
		"jti":  fmt.Sprintf("%d", s.serial),
		"iat":  now.Unix(),
		"exp":  now.Add(s.TokenTTL).Unix(),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		panic(fmt.Sprintf("mockapi: signing token: %v", err))
	}
	return signed
}

// IssueRefreshToken registers and returns a refresh token the fake will accept
func (s *Server) IssueRefreshToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newRefreshLocked()
}

func (s *Server) newRefreshLocked() string {
	s.serial++
	rt := fmt.Sprintf("rt-%d", s.serial)
	s.refreshTokens[rt] = true
	return rt
}

func (s *Server) verify(tokenString string) error {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return err
	}
	if !token.Valid {
		return fmt.Errorf("invalid token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.revoked[tokenString] {
		return fmt.Errorf("token revoked")
	}
	return nil
}

// Revoke makes a previously issued access token fail with 401
func (s *Server) Revoke(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.revoked[token] = true
}

// Fail queues a forced response for the next call to route
func (s *Server) Fail(route string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = append(s.failures[route], forced{status: status, body: body})
}

// Count returns how many times route was called
func (s *Server) Count(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[route]
}

// LastQuery returns the query of the most recent call to route
func (s *Server) LastQuery(route string) url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queries[route]
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
