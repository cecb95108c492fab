// Package client provides the token-refreshing HTTP client for the Tiger Trade
// statistics API. It includes credential storage, token validation and refresh,
// and a request dispatcher that re-authenticates once on 401.
package client

import (
	"context"
	"sync"
	"time"
)

// DefaultTimeout is used for business requests when the record has no timeout
const DefaultTimeout = 30 * time.Second

// APIConfig holds the endpoint URLs of the remote service
type APIConfig struct {
	BaseURL    string  `json:"base_url"`
	AuthURL    string  `json:"auth_url"`
	RefreshURL string  `json:"refresh_url"`
	Timeout    float64 `json:"timeout,omitempty"` // seconds
}

// RequestTimeout returns the configured timeout, or DefaultTimeout if unset
func (c APIConfig) RequestTimeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return time.Duration(c.Timeout * float64(time.Second))
}

// Credentials holds the login and the cached token pair
type Credentials struct {
	Username     string `json:"username"`
	Password     string `json:"password"`
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// HasRefreshToken returns true if both tokens needed for a refresh are present
func (c Credentials) HasRefreshToken() bool {
	return c.AccessToken != "" && c.RefreshToken != ""
}

// HasLogin returns true if a full reissue is possible
func (c Credentials) HasLogin() bool {
	return c.Username != "" && c.Password != ""
}

// Record is the persisted credential record
type Record struct {
	API  APIConfig   `json:"api"`
	Auth Credentials `json:"auth"`
}

// TokenUpdate is a partial write of the token pair.
// An empty RefreshToken leaves the stored one untouched.
type TokenUpdate struct {
	AccessToken  string
	RefreshToken string
}

// Apply writes the update into the record
func (r *Record) Apply(u TokenUpdate) {
	r.Auth.AccessToken = u.AccessToken
	if u.RefreshToken != "" {
		r.Auth.RefreshToken = u.RefreshToken
	}
}

// CredentialStore defines the interface for loading and persisting the credential record
type CredentialStore interface {
	// Load reads the full record. Implementations return a *ConfigError when
	// the record is missing or cannot be decoded.
	Load(ctx context.Context) (*Record, error)

	// SaveTokens writes the access token and (if set) the refresh token
	// in a single atomic update. All other fields are left unchanged.
	SaveTokens(ctx context.Context, update TokenUpdate) error
}

// MemoryStore is an in-process CredentialStore
type MemoryStore struct {
	mu      sync.Mutex
	record  *Record
	saves   int
	SaveErr error
}

// NewMemoryStore creates a store holding a copy of rec. A nil rec makes Load fail.
func NewMemoryStore(rec *Record) *MemoryStore {
	s := &MemoryStore{}
	if rec != nil {
		cp := *rec
		s.record = &cp
	}
	return s
}

func (s *MemoryStore) Load(ctx context.Context) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.record == nil {
		return nil, &ConfigError{Source: "memory", Err: errRecordNotFound}
	}
	cp := *s.record
	return &cp, nil
}

func (s *MemoryStore) SaveTokens(ctx context.Context, update TokenUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.SaveErr != nil {
		return s.SaveErr
	}
	if s.record == nil {
		return errRecordNotFound
	}
	s.record.Apply(update)
	s.saves++
	return nil
}

// Saves returns the number of successful SaveTokens calls
func (s *MemoryStore) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}
