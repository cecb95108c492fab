package client

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

// State is the lifecycle state of a Session's token
type State int

const (
	StateUninitialized State = iota
	StateValid
	StateExpired
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateValid:
		return "valid"
	case StateExpired:
		return "expired"
	}
	return "unknown"
}

// Session owns the active access token for one client
type Session struct {
	mu        sync.Mutex
	store     CredentialStore
	validator Validator
	issuer    Issuer
	profile   Profile
	token     string
	expiry    time.Time
	state     State
	issued    *AuthResult

	newRequestID func() string
	now          func() time.Time
	logger       *slog.Logger
}

// SessionOption configures a Session
type SessionOption func(*Session)

// WithRequestIDFunc replaces the uuid request id generator
func WithRequestIDFunc(f func() string) SessionOption {
	return func(s *Session) {
		s.newRequestID = f
	}
}

// WithClock replaces time.Now, used when comparing JWT expiry
func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) {
		s.now = now
	}
}

// WithSessionLogger sets the session logger
func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

// NewSession creates a session in StateUninitialized
func NewSession(store CredentialStore, validator Validator, issuer Issuer, profile Profile, opts ...SessionOption) *Session {
	if len(profile.RequestIDHeaders) == 0 {
		profile.RequestIDHeaders = []string{"X-Request-Id"}
	}
	s := &Session{
		store:        store,
		validator:    validator,
		issuer:       issuer,
		profile:      profile,
		newRequestID: func() string { return uuid.NewString() },
		now:          time.Now,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnsureValidToken keeps the cached token if the validator accepts it,
// otherwise refreshes or reissues one. On success the session is StateValid.
func (s *Session) EnsureValidToken(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.store.Load(ctx)
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			return err
		}
		return &ConfigError{Err: err}
	}

	creds := s.withIssued(rec.Auth)
	cached := creds.AccessToken
	if cached != "" && !s.knownExpired(cached) && s.validator.Check(ctx, cached) {
		s.adopt(cached)
		s.logger.Debug("cached token accepted")
		return nil
	}

	result, err := s.issuer.RefreshOrReissue(ctx, creds)
	if err != nil {
		return err
	}
	s.issued = result
	s.adopt(result.AccessToken)
	s.logger.Info("token issued",
		"rotated_refresh", result.Rotated,
		"attempts", len(result.Attempts))
	return nil
}

// withIssued lays the last issued pair over the stored one. The store may
// have failed to save it, and a rotated refresh token is only good once.
func (s *Session) withIssued(creds Credentials) Credentials {
	if s.issued == nil {
		return creds
	}
	creds.AccessToken = s.issued.AccessToken
	if s.issued.RefreshToken != "" {
		creds.RefreshToken = s.issued.RefreshToken
	}
	return creds
}

// knownExpired is true only for JWTs whose exp claim has passed
func (s *Session) knownExpired(token string) bool {
	exp, ok := TokenExpiry(token)
	return ok && !s.now().Before(exp)
}

// adopt replaces the active token. Caller must hold s.mu.
func (s *Session) adopt(token string) {
	s.token = token
	s.expiry, _ = TokenExpiry(token)
	s.state = StateValid
}

// MarkExpired records that the server rejected the active token
func (s *Session) MarkExpired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateValid {
		s.state = StateExpired
	}
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// CurrentToken returns the active access token
func (s *Session) CurrentToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

// Expiry returns the exp claim of the active token, if it has one
func (s *Session) Expiry() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.expiry, !s.expiry.IsZero()
}

// BuildHeaders returns the header set for one request. Only the request id
// differs between two calls on the same state.
func (s *Session) BuildHeaders() http.Header {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()

	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")
	for k, v := range s.profile.Headers {
		h.Set(k, v)
	}
	id := s.newRequestID()
	for _, name := range s.profile.RequestIDHeaders {
		h.Set(name, id)
	}
	return h
}

// Token implements oauth2.TokenSource. A token issued by this session also
// carries its refresh token.
func (s *Session) Token() (*oauth2.Token, error) {
	if s.State() != StateValid {
		if err := s.EnsureValidToken(context.Background()); err != nil {
			return nil, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.issued != nil && s.issued.AccessToken == s.token {
		tok := s.issued.OAuth2Token()
		tok.Expiry = s.expiry
		return tok, nil
	}
	return &oauth2.Token{
		AccessToken: s.token,
		TokenType:   "Bearer",
		Expiry:      s.expiry,
	}, nil
}

var _ oauth2.TokenSource = (*Session)(nil)
