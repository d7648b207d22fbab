package auth

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
)

const (
	defaultSuccessMessage = "User logged in successfully"
	defaultFailureMessage = "Invalid credentials, please try again."
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrLoginUnavailable   = errors.New("login service unavailable")
	ErrMissingToken       = errors.New("login response carried no token")
)

// AuthError is returned when a login attempt fails. Message is safe to show
// to the end user.
type AuthError struct {
	Status  int
	Message string
	Err     error
}

func (e *AuthError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("login failed (status %d): %s: %v", e.Status, e.Message, e.Err)
	}
	return fmt.Sprintf("login failed: %s: %v", e.Message, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// LoginResult is a successful login.
type LoginResult struct {
	Token   string
	Message string
}

// Loginer forwards credentials to the login collaborator.
type Loginer interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
}

// Client forwards credentials to the external login endpoint. It performs
// no local validation.
type Client struct {
	endpoint string
	client   *http.Client
}

func NewClient(endpoint string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Message     string `json:"message"`
	Error       string `json:"error"`
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
}

func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	payload, err := sonic.ConfigStd.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return nil, fmt.Errorf("encoding login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, &AuthError{Message: defaultFailureMessage, Err: fmt.Errorf("%w: %v", ErrLoginUnavailable, err)}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &AuthError{Message: defaultFailureMessage, Err: fmt.Errorf("%w: %v", ErrLoginUnavailable, err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	var parsed loginResponse
	// An unparseable body falls through to the default messages.
	_ = sonic.ConfigStd.Unmarshal(body, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := parsed.Message
		if msg == "" {
			msg = parsed.Error
		}
		if msg == "" {
			msg = defaultFailureMessage
		}
		cause := ErrInvalidCredentials
		if resp.StatusCode >= 500 {
			cause = ErrLoginUnavailable
		}
		return nil, &AuthError{Status: resp.StatusCode, Message: msg, Err: cause}
	}

	token := parsed.Token
	if token == "" {
		token = parsed.AccessToken
	}
	if token == "" {
		return nil, &AuthError{Status: resp.StatusCode, Message: defaultFailureMessage, Err: ErrMissingToken}
	}

	msg := parsed.Message
	if msg == "" {
		msg = defaultSuccessMessage
	}
	return &LoginResult{Token: token, Message: msg}, nil
}

var _ Loginer = (*Client)(nil)
