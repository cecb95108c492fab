package client

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

// Step names one attempt in the issue chain
type Step string

const (
	StepRefresh Step = "refresh"
	StepReissue Step = "reissue"
)

// Outcome is the result of one Step
type Outcome int

const (
	// OutcomeSuccess ends the chain with a token
	OutcomeSuccess Outcome = iota
	// OutcomeSoftFailure moves on to the next step
	OutcomeSoftFailure
	// OutcomeHardFailure ends the chain with an error
	OutcomeHardFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeSoftFailure:
		return "soft-failure"
	case OutcomeHardFailure:
		return "hard-failure"
	}
	return "unknown"
}

// Attempt records what happened in one step
type Attempt struct {
	Step    Step
	Outcome Outcome
	Status  int // 0 if no response was received
	Err     error
}

// AuthResult is a freshly issued token pair
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	Rotated      bool      // server sent a new refreshToken cookie
	Expiry       time.Time // zero if the token carries no exp claim
	Attempts     []Attempt
}

// Update returns the store write for this result
func (r *AuthResult) Update() TokenUpdate {
	return TokenUpdate{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken}
}

// OAuth2Token converts the result into an oauth2.Token
func (r *AuthResult) OAuth2Token() *oauth2.Token {
	return &oauth2.Token{
		AccessToken:  r.AccessToken,
		TokenType:    "Bearer",
		RefreshToken: r.RefreshToken,
		Expiry:       r.Expiry,
	}
}

// TokenExpiry reads the exp claim of a JWT access token without verifying it.
// Returns false for opaque tokens or tokens with no exp claim.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
