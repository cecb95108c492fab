package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// AuthTimeout bounds a refresh or login call
const AuthTimeout = 30 * time.Second

// RefreshCookie is the cookie carrying the refresh token in both directions
const RefreshCookie = "refreshToken"

// Issuer obtains a new access token for the given credentials
type Issuer interface {
	RefreshOrReissue(ctx context.Context, creds Credentials) (*AuthResult, error)
}

// TokenIssuer refreshes with the refresh-token cookie and falls back to a
// username/password login. Every success is written back to Store.
type TokenIssuer struct {
	AuthURL    string
	RefreshURL string
	Store      CredentialStore
	HTTPClient *http.Client
	Timeout    time.Duration
	Logger     *slog.Logger
}

// issueStep is one entry of the ordered attempt list
type issueStep struct {
	step Step
	run  func(ctx context.Context, creds Credentials) (*AuthResult, Attempt)
}

// plan returns the steps to try, in order. Refresh is only tried when both
// tokens are present; reissue is always last and never soft-fails.
func (i *TokenIssuer) plan(creds Credentials) []issueStep {
	var steps []issueStep
	if creds.HasRefreshToken() {
		steps = append(steps, issueStep{StepRefresh, i.refresh})
	}
	return append(steps, issueStep{StepReissue, i.reissue})
}

// RefreshOrReissue walks the attempt list until a step succeeds or hard-fails
func (i *TokenIssuer) RefreshOrReissue(ctx context.Context, creds Credentials) (*AuthResult, error) {
	var attempts []Attempt
	for _, s := range i.plan(creds) {
		result, attempt := s.run(ctx, creds)
		attempts = append(attempts, attempt)
		i.logger().Debug("issue attempt",
			"step", string(attempt.Step),
			"outcome", attempt.Outcome.String(),
			"status", attempt.Status)

		switch attempt.Outcome {
		case OutcomeSuccess:
			result.Attempts = attempts
			i.persist(ctx, result)
			return result, nil
		case OutcomeHardFailure:
			if authErr, ok := attempt.Err.(*AuthError); ok {
				authErr.Attempts = attempts
			}
			return nil, attempt.Err
		}
	}
	return nil, &AuthError{Reason: ReasonCredentialsMissing, Attempts: attempts}
}

// refresh presents the current access token and the refresh cookie.
// Anything short of a 200 carrying accessToken is a soft failure.
func (i *TokenIssuer) refresh(ctx context.Context, creds Credentials) (*AuthResult, Attempt) {
	attempt := Attempt{Step: StepRefresh}

	resp, body, err := i.post(ctx, i.RefreshURL, map[string]string{"accessToken": creds.AccessToken}, &http.Cookie{
		Name:  RefreshCookie,
		Value: creds.RefreshToken,
	})
	if err != nil {
		attempt.Outcome = OutcomeSoftFailure
		attempt.Err = err
		return nil, attempt
	}
	attempt.Status = resp.StatusCode

	if resp.StatusCode != http.StatusOK {
		attempt.Outcome = OutcomeSoftFailure
		attempt.Err = fmt.Errorf("refresh returned HTTP %d", resp.StatusCode)
		return nil, attempt
	}

	token, ok := accessTokenFrom(body)
	if !ok {
		attempt.Outcome = OutcomeSoftFailure
		attempt.Err = fmt.Errorf("refresh response has no accessToken")
		return nil, attempt
	}

	attempt.Outcome = OutcomeSuccess
	return newAuthResult(token, creds.RefreshToken, resp), attempt
}

// reissue logs in with username and password
func (i *TokenIssuer) reissue(ctx context.Context, creds Credentials) (*AuthResult, Attempt) {
	attempt := Attempt{Step: StepReissue, Outcome: OutcomeHardFailure}

	if !creds.HasLogin() {
		attempt.Err = &AuthError{Reason: ReasonCredentialsMissing}
		return nil, attempt
	}

	resp, body, err := i.post(ctx, i.AuthURL, map[string]string{
		"username": creds.Username,
		"password": creds.Password,
	}, nil)
	if err != nil {
		attempt.Err = &AuthError{Reason: ReasonTransport, Err: err}
		return nil, attempt
	}
	attempt.Status = resp.StatusCode

	switch resp.StatusCode {
	case http.StatusOK:
		token, ok := accessTokenFrom(body)
		if !ok {
			attempt.Err = &AuthError{Reason: ReasonMissingToken, Status: resp.StatusCode, Detail: string(body)}
			return nil, attempt
		}
		attempt.Outcome = OutcomeSuccess
		return newAuthResult(token, creds.RefreshToken, resp), attempt

	case http.StatusBadRequest:
		attempt.Err = &AuthError{Reason: ReasonRejected, Status: resp.StatusCode, Detail: errorDetail(body)}

	case http.StatusTooManyRequests:
		attempt.Err = &AuthError{Reason: ReasonRateLimited, Status: resp.StatusCode}

	default:
		attempt.Err = &AuthError{Reason: ReasonUnexpectedStatus, Status: resp.StatusCode, Detail: string(body)}
	}
	return nil, attempt
}

// post sends a JSON body and returns the response with its body fully read
func (i *TokenIssuer) post(ctx context.Context, target string, payload any, cookie *http.Cookie) (*http.Response, []byte, error) {
	timeout := i.Timeout
	if timeout <= 0 {
		timeout = AuthTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	jsonBody, err := json.Marshal(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(jsonBody))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if cookie != nil {
		req.AddCookie(cookie)
	}

	httpClient := i.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response: %w", err)
	}
	return resp, body, nil
}

// persist writes the new pair back. Failures are only logged: the token
// stays usable for this process even if the store is read-only.
func (i *TokenIssuer) persist(ctx context.Context, result *AuthResult) {
	if i.Store == nil {
		return
	}
	if err := i.Store.SaveTokens(ctx, result.Update()); err != nil {
		i.logger().Warn("could not save token", "error", err)
	}
}

func (i *TokenIssuer) logger() *slog.Logger {
	if i.Logger == nil {
		return slog.Default()
	}
	return i.Logger
}

func newAuthResult(token, previousRefresh string, resp *http.Response) *AuthResult {
	result := &AuthResult{AccessToken: token, RefreshToken: previousRefresh}
	for _, c := range resp.Cookies() {
		if c.Name == RefreshCookie && c.Value != "" {
			result.RefreshToken = c.Value
			result.Rotated = true
			break
		}
	}
	if exp, ok := TokenExpiry(token); ok {
		result.Expiry = exp
	}
	return result
}

// accessTokenFrom extracts a non-empty accessToken field from a JSON body
func accessTokenFrom(body []byte) (string, bool) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false
	}
	token, ok := payload["accessToken"].(string)
	return token, ok && token != ""
}

// errorDetail returns the "detail" field of a JSON error body, or the raw text
func errorDetail(body []byte) string {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return string(body)
	}
	if detail, ok := payload["detail"]; ok && detail != nil {
		if s, ok := detail.(string); ok {
			return s
		}
		encoded, _ := json.Marshal(detail)
		return string(encoded)
	}
	return "Unknown error"
}
