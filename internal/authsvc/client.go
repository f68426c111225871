// Package authsvc is the client for the hosted authentication service.
// Registration, login and token verification are delegated wholesale; no
// credential or session logic lives in this codebase.
package authsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"laborgrow/internal/config"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Provider is what the handlers and the auth middleware depend on.
type Provider interface {
	Register(ctx context.Context, email, password string) (userID string, err error)
	SignIn(ctx context.Context, email, password string) (token string, err error)
	Verify(ctx context.Context, token string) (userID, email string, err error)
	DeleteUser(ctx context.Context, userID string) error
}

// Client talks to a GoTrue-compatible service over HTTP.
type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ Provider = (*Client)(nil)

func NewClient(cfg *config.AuthConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type credentialsBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userBody struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

type signupResponse struct {
	ID   string    `json:"id"`
	User *userBody `json:"user"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
}

type errorResponse struct {
	Message          string `json:"msg"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

func (e errorResponse) text() string {
	switch {
	case e.Message != "":
		return e.Message
	case e.ErrorDescription != "":
		return e.ErrorDescription
	default:
		return e.Error
	}
}

// Register creates a user and returns its id.
func (c *Client) Register(ctx context.Context, email, password string) (string, error) {
	var out signupResponse
	status, errBody, err := c.post(ctx, "/signup", "", credentialsBody{Email: email, Password: password}, &out)
	if err != nil {
		return "", err
	}
	switch {
	case status == http.StatusOK || status == http.StatusCreated:
		if out.ID != "" {
			return out.ID, nil
		}
		if out.User != nil && out.User.ID != "" {
			return out.User.ID, nil
		}
		return "", fmt.Errorf("auth service returned no user id")
	case status == http.StatusUnprocessableEntity || status == http.StatusConflict:
		return "", ErrEmailTaken
	case status == http.StatusBadRequest && strings.Contains(strings.ToLower(errBody.text()), "already registered"):
		return "", ErrEmailTaken
	default:
		return "", fmt.Errorf("auth service signup failed (%d): %s", status, errBody.text())
	}
}

// SignIn exchanges credentials for a session token.
func (c *Client) SignIn(ctx context.Context, email, password string) (string, error) {
	var out tokenResponse
	status, errBody, err := c.post(ctx, "/token?grant_type=password", "", credentialsBody{Email: email, Password: password}, &out)
	if err != nil {
		return "", err
	}
	switch {
	case status == http.StatusOK:
		if out.AccessToken == "" {
			return "", fmt.Errorf("auth service returned no access token")
		}
		return out.AccessToken, nil
	case status == http.StatusBadRequest || status == http.StatusUnauthorized:
		return "", ErrInvalidCredentials
	default:
		return "", fmt.Errorf("auth service sign-in failed (%d): %s", status, errBody.text())
	}
}

// Verify resolves a bearer token to the user it belongs to.
func (c *Client) Verify(ctx context.Context, token string) (string, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user", nil)
	if err != nil {
		return "", "", fmt.Errorf("build auth request: %w", err)
	}
	c.setHeaders(req, token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("auth service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", "", ErrInvalidToken
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("auth service verify failed (%d)", resp.StatusCode)
	}

	var user userBody
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return "", "", fmt.Errorf("decode auth response: %w", err)
	}
	if user.ID == "" {
		return "", "", ErrInvalidToken
	}
	return user.ID, user.Email, nil
}

// DeleteUser removes a user through the service's admin API. Used by the
// admin cascade delete.
func (c *Client) DeleteUser(ctx context.Context, userID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/admin/users/"+userID, nil)
	if err != nil {
		return fmt.Errorf("build auth request: %w", err)
	}
	c.setHeaders(req, c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("auth service request: %w", err)
	}
	defer resp.Body.Close()

	// A user the auth service no longer knows about is fine to "delete".
	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return fmt.Errorf("auth service delete user failed (%d)", resp.StatusCode)
}

func (c *Client) post(ctx context.Context, path, token string, body interface{}, out interface{}) (int, errorResponse, error) {
	var errBody errorResponse

	payload, err := json.Marshal(body)
	if err != nil {
		return 0, errBody, fmt.Errorf("encode auth request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return 0, errBody, fmt.Errorf("build auth request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setHeaders(req, token)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, errBody, fmt.Errorf("auth service request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return resp.StatusCode, errBody, fmt.Errorf("decode auth response: %w", err)
			}
		}
		return resp.StatusCode, errBody, nil
	}

	// Best effort: error bodies are informational only.
	_ = json.NewDecoder(resp.Body).Decode(&errBody)
	return resp.StatusCode, errBody, nil
}

func (c *Client) setHeaders(req *http.Request, token string) {
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
