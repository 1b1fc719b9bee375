// Package auth talks to the Firebase Identity Toolkit REST API for
// email/password sign-up and sign-in. The Admin SDK has no password
// sign-in, so the client goes through the same REST endpoints the mobile
// SDKs use.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
)

const (
	defaultBaseURL    = "https://identitytoolkit.googleapis.com/v1"
	contentTypeHeader = "Content-Type"
	contentTypeJSON   = "application/json"

	signUpEndpoint      = "accounts:signUp"
	signInEndpoint      = "accounts:signInWithPassword"
	customTokenEndpoint = "accounts:signInWithCustomToken"
)

var errMissingAPIKey = errors.New("missing API key")

// Credential is the identity handed back by the provider on success.
type Credential struct {
	UID          string
	IDToken      string
	RefreshToken string
}

// ProviderError carries the provider-side error code, e.g. EMAIL_EXISTS or
// INVALID_LOGIN_CREDENTIALS.
type ProviderError struct {
	Code       string
	StatusCode int
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("identity provider: %s (status %d)", e.Code, e.StatusCode)
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: http.DefaultClient,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a fake
// provider.
func NewClientWithBaseURL(apiKey, baseURL string) *Client {
	c := NewClient(apiKey)
	c.baseURL = baseURL
	return c
}

type signInResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// SignUp creates a new email/password credential.
func (c *Client) SignUp(ctx context.Context, email, password string) (*Credential, error) {
	return c.call(ctx, signUpEndpoint, map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

// SignIn exchanges email/password for a credential.
func (c *Client) SignIn(ctx context.Context, email, password string) (*Credential, error) {
	return c.call(ctx, signInEndpoint, map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	})
}

// ExchangeCustomToken trades an Admin-SDK custom token for an ID token.
func (c *Client) ExchangeCustomToken(ctx context.Context, customToken string) (*Credential, error) {
	return c.call(ctx, customTokenEndpoint, map[string]any{
		"token":             customToken,
		"returnSecureToken": true,
	})
}

func (c *Client) call(ctx context.Context, endpoint string, payload map[string]any) (*Credential, error) {
	if c.apiKey == "" {
		return nil, errMissingAPIKey
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/%s?key=%s", c.baseURL, endpoint, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(payloadBytes))
	if err != nil {
		return nil, err
	}
	req.Header.Add(contentTypeHeader, contentTypeJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
			return nil, &ProviderError{Code: errResp.Error.Message, StatusCode: resp.StatusCode}
		}
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var signInResp signInResponse
	if err := json.Unmarshal(body, &signInResp); err != nil {
		return nil, err
	}
	return &Credential{
		UID:          signInResp.LocalID,
		IDToken:      signInResp.IDToken,
		RefreshToken: signInResp.RefreshToken,
	}, nil
}
