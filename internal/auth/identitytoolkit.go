package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultToolkitEndpoint = "https://identitytoolkit.googleapis.com/v1"
	maxToolkitBody         = 64 << 10
)

// toolkitMessages are the user-facing texts for Identity Toolkit error
// codes. Codes may carry a suffix (" : detail"), which is ignored.
var toolkitMessages = map[string]string{
	"EMAIL_EXISTS":                "This email is already registered. Try signing in instead.",
	"EMAIL_NOT_FOUND":             "No account found with this email. Try signing up instead.",
	"INVALID_PASSWORD":            "Incorrect password. Please try again.",
	"INVALID_LOGIN_CREDENTIALS":   "Invalid email or password.",
	"INVALID_EMAIL":               "Invalid email address.",
	"WEAK_PASSWORD":               "Password is too weak. Use at least 6 characters.",
	"USER_DISABLED":               "This account has been disabled.",
	"TOO_MANY_ATTEMPTS_TRY_LATER": "Too many attempts. Try again later.",
}

// ToolkitError is a rejected Identity Toolkit request.
type ToolkitError struct {
	StatusCode int
	Code       string
}

func (e *ToolkitError) Error() string {
	if msg, ok := toolkitMessages[e.Code]; ok {
		return "auth: " + msg
	}
	return fmt.Sprintf("auth: identity provider status %d: %s", e.StatusCode, e.Code)
}

func (e *ToolkitError) HTTPStatusCode() int {
	return e.StatusCode
}

// IdentityToolkit authenticates email/password credentials against the
// Identity Toolkit REST API.
type IdentityToolkit struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	now        func() time.Time
}

type ToolkitOption func(*IdentityToolkit)

func WithToolkitEndpoint(endpoint string) ToolkitOption {
	return func(t *IdentityToolkit) {
		if endpoint = strings.TrimRight(strings.TrimSpace(endpoint), "/"); endpoint != "" {
			t.endpoint = endpoint
		}
	}
}

func WithToolkitHTTPClient(httpClient *http.Client) ToolkitOption {
	return func(t *IdentityToolkit) {
		if httpClient != nil {
			t.httpClient = httpClient
		}
	}
}

func WithToolkitClock(now func() time.Time) ToolkitOption {
	return func(t *IdentityToolkit) {
		if now != nil {
			t.now = now
		}
	}
}

var _ PasswordAuthenticator = (*IdentityToolkit)(nil)

func NewIdentityToolkit(apiKey string, opts ...ToolkitOption) (*IdentityToolkit, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("auth: identity toolkit api key must not be empty")
	}
	t := &IdentityToolkit{
		apiKey:     apiKey,
		endpoint:   defaultToolkitEndpoint,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Authenticate signs in an existing account.
func (t *IdentityToolkit) Authenticate(ctx context.Context, c Credentials) (Identity, Token, error) {
	return t.call(ctx, "accounts:signInWithPassword", c)
}

// SignUp returns an authenticator that creates the account instead of
// signing in to an existing one.
func (t *IdentityToolkit) SignUp() PasswordAuthenticator {
	return signUpAuthenticator{t}
}

type signUpAuthenticator struct {
	t *IdentityToolkit
}

func (s signUpAuthenticator) Authenticate(ctx context.Context, c Credentials) (Identity, Token, error) {
	return s.t.call(ctx, "accounts:signUp", c)
}

type toolkitRequest struct {
	Email             string `json:"email"`
	Password          string `json:"password"`
	ReturnSecureToken bool   `json:"returnSecureToken"`
}

type toolkitResponse struct {
	LocalID     string `json:"localId"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	IDToken     string `json:"idToken"`
	ExpiresIn   string `json:"expiresIn"`
}

type toolkitErrorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (t *IdentityToolkit) call(ctx context.Context, method string, c Credentials) (Identity, Token, error) {
	body, err := json.Marshal(toolkitRequest{Email: c.Email, Password: c.Password, ReturnSecureToken: true})
	if err != nil {
		return Identity{}, Token{}, fmt.Errorf("auth: marshal %s request: %w", method, err)
	}
	u := t.endpoint + "/" + method + "?key=" + url.QueryEscape(t.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		return Identity{}, Token{}, fmt.Errorf("auth: build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return Identity{}, Token{}, fmt.Errorf("auth: %s: %w", method, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxToolkitBody))
	if err != nil {
		return Identity{}, Token{}, fmt.Errorf("auth: read %s response: %w", method, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb toolkitErrorBody
		_ = json.Unmarshal(raw, &eb)
		code, _, _ := strings.Cut(eb.Error.Message, " ")
		if code == "" {
			code = http.StatusText(resp.StatusCode)
		}
		return Identity{}, Token{}, &ToolkitError{StatusCode: resp.StatusCode, Code: code}
	}

	var out toolkitResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return Identity{}, Token{}, fmt.Errorf("auth: decode %s response: %w", method, err)
	}
	if out.LocalID == "" || out.IDToken == "" {
		return Identity{}, Token{}, fmt.Errorf("auth: %s response has no user or token", method)
	}

	tok := Token{Value: out.IDToken}
	if secs, err := strconv.Atoi(out.ExpiresIn); err == nil && secs > 0 {
		tok.ExpiresAt = t.now().Add(time.Duration(secs) * time.Second)
	}
	email := out.Email
	if email == "" {
		email = c.Email
	}
	return Identity{UID: out.LocalID, Email: email, DisplayName: out.DisplayName}, tok, nil
}
