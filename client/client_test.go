package client

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestCredentials_HasRefreshToken(t *testing.T) {
	tests := []struct {
		name  string
		creds Credentials
		want  bool
	}{
		{"both tokens", Credentials{AccessToken: "a", RefreshToken: "r"}, true},
		{"no access token", Credentials{RefreshToken: "r"}, false},
		{"no refresh token", Credentials{AccessToken: "a"}, false},
		{"empty", Credentials{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.creds.HasRefreshToken(); got != tt.want {
				t.Errorf("HasRefreshToken() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAPIConfig_RequestTimeout(t *testing.T) {
	if got := (APIConfig{}).RequestTimeout(); got != DefaultTimeout {
		t.Errorf("default timeout = %v, want %v", got, DefaultTimeout)
	}
	if got := (APIConfig{Timeout: 1.5}).RequestTimeout(); got != 1500*time.Millisecond {
		t.Errorf("timeout = %v, want 1.5s", got)
	}
}

func TestRecord_ApplyKeepsRefreshTokenWhenEmpty(t *testing.T) {
	rec := &Record{Auth: Credentials{Username: "u", AccessToken: "old", RefreshToken: "r1"}}

	rec.Apply(TokenUpdate{AccessToken: "new"})
	if rec.Auth.AccessToken != "new" || rec.Auth.RefreshToken != "r1" {
		t.Errorf("after apply: %+v", rec.Auth)
	}

	rec.Apply(TokenUpdate{AccessToken: "newer", RefreshToken: "r2"})
	if rec.Auth.RefreshToken != "r2" {
		t.Errorf("RefreshToken = %q, want r2", rec.Auth.RefreshToken)
	}
	if rec.Auth.Username != "u" {
		t.Errorf("Username changed to %q", rec.Auth.Username)
	}
}

func TestMemoryStore_MissingRecord(t *testing.T) {
	store := NewMemoryStore(nil)
	_, err := store.Load(context.Background())

	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
}

func TestErrors_Messages(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&AuthError{Reason: ReasonCredentialsMissing}, "auth error: username and password required"},
		{&AuthError{Reason: ReasonMissingToken, Detail: `{"ok":true}`}, `auth error: no accessToken in response: {"ok":true}`},
		{&AuthError{Reason: ReasonRejected, Detail: "Invalid credentials"}, "auth error: Invalid credentials"},
		{&AuthError{Reason: ReasonRateLimited, Status: 429}, "auth error: rate limit exceeded"},
		{&AuthError{Reason: ReasonUnexpectedStatus, Status: 503, Detail: "down"}, "auth error: 503 - down"},
		{&APIError{Kind: KindExpectationFailed, Status: 417, Endpoint: "/users"}, "expectation failed (417): /users"},
		{&APIError{Kind: KindRateLimited, Status: 429}, "rate limit exceeded (429)"},
		{&APIError{Kind: KindHTTPStatus, Status: 500, Body: "boom"}, "HTTP 500: boom"},
		{&ConfigError{Source: "/tmp/c.json", Err: errors.New("bad")}, "config error: /tmp/c.json: bad"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}

func TestErrors_RateLimitedSentinel(t *testing.T) {
	if !errors.Is(&AuthError{Reason: ReasonRateLimited}, ErrRateLimited) {
		t.Error("AuthError 429 should match ErrRateLimited")
	}
	if !errors.Is(&APIError{Kind: KindRateLimited}, ErrRateLimited) {
		t.Error("APIError 429 should match ErrRateLimited")
	}
	if errors.Is(&APIError{Kind: KindHTTPStatus, Status: 500}, ErrRateLimited) {
		t.Error("HTTP 500 should not match ErrRateLimited")
	}
	if !errors.Is(&AuthError{Reason: ReasonCredentialsMissing}, ErrCredentialsMissing) {
		t.Error("missing credentials should match ErrCredentialsMissing")
	}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "trader",
		"exp": exp.Unix(),
	})
	s, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, ok := TokenExpiry(signedToken(t, exp))
	if !ok || !got.Equal(exp) {
		t.Errorf("TokenExpiry() = %v, %v; want %v, true", got, ok, exp)
	}

	if _, ok := TokenExpiry("opaque-token"); ok {
		t.Error("opaque token should have no expiry")
	}
}

func TestOutcome_String(t *testing.T) {
	if OutcomeSoftFailure.String() != "soft-failure" {
		t.Errorf("got %q", OutcomeSoftFailure.String())
	}
}

// stubIssuer returns canned results and counts calls
type stubIssuer struct {
	calls  int
	tokens []string
	rotate string
	seen   []Credentials
	err    error
}

func (s *stubIssuer) RefreshOrReissue(ctx context.Context, creds Credentials) (*AuthResult, error) {
	s.calls++
	s.seen = append(s.seen, creds)
	if s.err != nil {
		return nil, s.err
	}
	token := s.tokens[0]
	if len(s.tokens) > 1 {
		s.tokens = s.tokens[1:]
	}
	refresh := creds.RefreshToken
	if s.rotate != "" {
		refresh = s.rotate
	}
	return &AuthResult{AccessToken: token, RefreshToken: refresh, Rotated: s.rotate != ""}, nil
}

func acceptOnly(valid ...string) Validator {
	return ValidatorFunc(func(ctx context.Context, token string) bool {
		for _, v := range valid {
			if token == v {
				return true
			}
		}
		return false
	})
}

func TestSession_KeepsValidCachedToken(t *testing.T) {
	store := NewMemoryStore(&Record{Auth: Credentials{Username: "u", Password: "p", AccessToken: "T0"}})
	issuer := &stubIssuer{tokens: []string{"T1"}}
	s := NewSession(store, acceptOnly("T0"), issuer, Profile{Name: "users"})

	if s.State() != StateUninitialized {
		t.Fatalf("initial state = %v", s.State())
	}
	if err := s.EnsureValidToken(context.Background()); err != nil {
		t.Fatalf("EnsureValidToken: %v", err)
	}
	if s.CurrentToken() != "T0" {
		t.Errorf("token = %q, want T0", s.CurrentToken())
	}
	if issuer.calls != 0 {
		t.Errorf("issuer called %d times, want 0", issuer.calls)
	}
	if store.Saves() != 0 {
		t.Errorf("store written %d times, want 0", store.Saves())
	}
}

func TestSession_IssuesWhenCachedRejected(t *testing.T) {
	store := NewMemoryStore(&Record{Auth: Credentials{Username: "u", Password: "p", AccessToken: "T0"}})
	issuer := &stubIssuer{tokens: []string{"T1"}}
	s := NewSession(store, acceptOnly(), issuer, Profile{})

	if err := s.EnsureValidToken(context.Background()); err != nil {
		t.Fatalf("EnsureValidToken: %v", err)
	}
	if s.CurrentToken() != "T1" || s.State() != StateValid {
		t.Errorf("token = %q state = %v", s.CurrentToken(), s.State())
	}
}

func TestSession_SkipsProbeForExpiredJWT(t *testing.T) {
	expired := signedToken(t, time.Now().Add(-time.Minute))
	store := NewMemoryStore(&Record{Auth: Credentials{Username: "u", Password: "p", AccessToken: expired}})
	probes := 0
	validator := ValidatorFunc(func(ctx context.Context, token string) bool {
		probes++
		return true
	})
	s := NewSession(store, validator, &stubIssuer{tokens: []string{"T1"}}, Profile{})

	if err := s.EnsureValidToken(context.Background()); err != nil {
		t.Fatalf("EnsureValidToken: %v", err)
	}
	if probes != 0 {
		t.Errorf("probe ran %d times for an expired JWT", probes)
	}
	if s.CurrentToken() != "T1" {
		t.Errorf("token = %q, want T1", s.CurrentToken())
	}
}

func TestSession_IssueFailureLeavesStateUnchanged(t *testing.T) {
	store := NewMemoryStore(&Record{Auth: Credentials{}})
	s := NewSession(store, acceptOnly(), &stubIssuer{err: &AuthError{Reason: ReasonCredentialsMissing}}, Profile{})

	err := s.EnsureValidToken(context.Background())
	if !errors.Is(err, ErrCredentialsMissing) {
		t.Fatalf("err = %v, want ErrCredentialsMissing", err)
	}
	if s.State() != StateUninitialized {
		t.Errorf("state = %v, want uninitialized", s.State())
	}
}

func TestSession_MarkExpired(t *testing.T) {
	store := NewMemoryStore(&Record{Auth: Credentials{AccessToken: "T0"}})
	s := NewSession(store, acceptOnly("T0"), &stubIssuer{}, Profile{})

	s.MarkExpired()
	if s.State() != StateUninitialized {
		t.Errorf("MarkExpired on uninitialized session changed state to %v", s.State())
	}

	if err := s.EnsureValidToken(context.Background()); err != nil {
		t.Fatal(err)
	}
	s.MarkExpired()
	if s.State() != StateExpired {
		t.Errorf("state = %v, want expired", s.State())
	}
}

func TestSession_BuildHeaders(t *testing.T) {
	ids := []string{"id-1", "id-2"}
	next := func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	profile := Profile{
		Headers:          map[string]string{"X-Exchange-Type": "TIGER_X"},
		RequestIDHeaders: []string{"Trace-Request-Id", "X-Request-Id"},
	}
	store := NewMemoryStore(&Record{Auth: Credentials{AccessToken: "T0"}})
	s := NewSession(store, acceptOnly("T0"), &stubIssuer{}, profile, WithRequestIDFunc(next))
	if err := s.EnsureValidToken(context.Background()); err != nil {
		t.Fatal(err)
	}

	first := s.BuildHeaders()
	second := s.BuildHeaders()

	if got := first.Get("Authorization"); got != "Bearer T0" {
		t.Errorf("Authorization = %q", got)
	}
	if first.Get("X-Exchange-Type") != "TIGER_X" {
		t.Errorf("missing profile header")
	}
	if first.Get("Trace-Request-Id") != "id-1" || first.Get("X-Request-Id") != "id-1" {
		t.Errorf("request id headers differ: %v", first)
	}
	if second.Get("X-Request-Id") != "id-2" {
		t.Errorf("second request id = %q, want id-2", second.Get("X-Request-Id"))
	}

	for _, h := range []http.Header{first, second} {
		h.Del("Trace-Request-Id")
		h.Del("X-Request-Id")
	}
	if len(first) != len(second) {
		t.Errorf("header sets differ beyond request id: %v vs %v", first, second)
	}
}

func TestSession_TokenSource(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	jwtToken := signedToken(t, exp)
	store := NewMemoryStore(&Record{Auth: Credentials{AccessToken: jwtToken}})
	s := NewSession(store, acceptOnly(jwtToken), &stubIssuer{}, Profile{})

	tok, err := s.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok.AccessToken != jwtToken || !tok.Expiry.Equal(exp) {
		t.Errorf("token = %+v", tok)
	}
}

func TestSession_ReissueStartsFromIssuedPair(t *testing.T) {
	// the issuer's writes never reach this store
	store := NewMemoryStore(&Record{Auth: Credentials{Username: "u", AccessToken: "T0", RefreshToken: "R0"}})
	issuer := &stubIssuer{tokens: []string{"T1", "T2"}, rotate: "R1"}
	s := NewSession(store, acceptOnly(), issuer, Profile{})
	ctx := context.Background()

	if err := s.EnsureValidToken(ctx); err != nil {
		t.Fatal(err)
	}
	s.MarkExpired()
	if err := s.EnsureValidToken(ctx); err != nil {
		t.Fatal(err)
	}

	if len(issuer.seen) != 2 {
		t.Fatalf("issuer called %d times", len(issuer.seen))
	}
	if got := issuer.seen[0]; got.AccessToken != "T0" || got.RefreshToken != "R0" {
		t.Errorf("first issue creds = %+v", got)
	}
	if got := issuer.seen[1]; got.AccessToken != "T1" || got.RefreshToken != "R1" || got.Username != "u" {
		t.Errorf("second issue creds = %+v, want the issued pair", got)
	}

	tok, err := s.Token()
	if err != nil {
		t.Fatal(err)
	}
	if tok.AccessToken != "T2" || tok.RefreshToken != "R1" {
		t.Errorf("token = %+v", tok)
	}
}

func TestSession_LogsProfileOnce(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})).With("profile", "users")

	store := NewMemoryStore(&Record{Auth: Credentials{Username: "u", Password: "p", AccessToken: "T0"}})
	s := NewSession(store, acceptOnly("T0"), &stubIssuer{tokens: []string{"T1"}}, Profile{Name: "users"}, WithSessionLogger(logger))
	ctx := context.Background()

	if err := s.EnsureValidToken(ctx); err != nil {
		t.Fatal(err)
	}
	s.MarkExpired()
	store.SaveTokens(ctx, TokenUpdate{AccessToken: "rejected"})
	s.validator = acceptOnly()
	if err := s.EnsureValidToken(ctx); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("log lines = %q", lines)
	}
	for _, line := range lines {
		if n := strings.Count(line, "profile="); n != 1 {
			t.Errorf("profile logged %d times: %s", n, line)
		}
	}
}
