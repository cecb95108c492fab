package client

import (
	"errors"
	"fmt"
)

var (
	// ErrRateLimited matches both AuthError and APIError caused by a 429
	ErrRateLimited = errors.New("rate limited")

	// ErrCredentialsMissing matches an AuthError raised before any HTTP call
	// because username or password is empty
	ErrCredentialsMissing = errors.New("username and password required")

	errRecordNotFound = errors.New("credential record not found")
)

// ConfigError is returned when the credential record is missing or corrupt
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Source == "" {
		return fmt.Sprintf("config error: %v", e.Err)
	}
	return fmt.Sprintf("config error: %s: %v", e.Source, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// AuthReason classifies an AuthError
type AuthReason string

const (
	ReasonCredentialsMissing AuthReason = "credentials missing"
	ReasonMissingToken       AuthReason = "missing access token"
	ReasonRejected           AuthReason = "rejected"
	ReasonRateLimited        AuthReason = "rate limited"
	ReasonUnexpectedStatus   AuthReason = "unexpected status"
	ReasonTransport          AuthReason = "transport"
)

// AuthError is returned when a token cannot be (re)issued
type AuthError struct {
	Reason   AuthReason
	Status   int
	Detail   string
	Attempts []Attempt
	Err      error
}

func (e *AuthError) Error() string {
	switch e.Reason {
	case ReasonCredentialsMissing:
		return "auth error: username and password required"
	case ReasonMissingToken:
		return fmt.Sprintf("auth error: no accessToken in response: %s", e.Detail)
	case ReasonRejected:
		return fmt.Sprintf("auth error: %s", e.Detail)
	case ReasonRateLimited:
		return "auth error: rate limit exceeded"
	case ReasonTransport:
		return fmt.Sprintf("auth error: request failed: %v", e.Err)
	default:
		return fmt.Sprintf("auth error: %d - %s", e.Status, e.Detail)
	}
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func (e *AuthError) Is(target error) bool {
	switch target {
	case ErrRateLimited:
		return e.Reason == ReasonRateLimited
	case ErrCredentialsMissing:
		return e.Reason == ReasonCredentialsMissing
	}
	return false
}

// APIKind classifies an APIError
type APIKind string

const (
	KindExpectationFailed APIKind = "expectation failed"
	KindRateLimited       APIKind = "rate limited"
	KindHTTPStatus        APIKind = "http status"
	KindTimeout           APIKind = "timeout"
	KindConnection        APIKind = "connection error"
	KindRequest           APIKind = "request error"
)

// APIError is returned by the dispatcher for HTTP and transport failures
type APIError struct {
	Kind     APIKind
	Status   int
	Endpoint string
	Body     string
	Err      error
}

func (e *APIError) Error() string {
	switch e.Kind {
	case KindExpectationFailed:
		return fmt.Sprintf("expectation failed (417): %s", e.Endpoint)
	case KindRateLimited:
		return "rate limit exceeded (429)"
	case KindHTTPStatus:
		return fmt.Sprintf("HTTP %d: %s", e.Status, e.Body)
	case KindTimeout:
		return fmt.Sprintf("timeout: %s", e.Endpoint)
	case KindConnection:
		return fmt.Sprintf("connection error: %s", e.Endpoint)
	default:
		return fmt.Sprintf("request error: %v", e.Err)
	}
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func (e *APIError) Is(target error) bool {
	return target == ErrRateLimited && e.Kind == KindRateLimited
}
