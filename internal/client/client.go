// Package client talks to the Guidera backend over its JSON/HTTP contract.
//
// Every authenticated call goes through the same classification: no valid
// credential fails locally with ErrNotAuthenticated, a 401 clears the session
// and fails with ErrSessionExpired, any other non-2xx status is a
// *RequestError, and a 2xx hands back the decoded body.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/jasperwreed/guidera-chat/internal/models"
)

const (
	// DefaultTradeoff is the cost/performance balance sent when the caller
	// does not pick one.
	DefaultTradeoff = 0.7

	// DefaultTokenLifetime applies when login omits exp.
	DefaultTokenLifetime = 2 * time.Hour

	// MaxResponseSize caps how much of a response body is read.
	MaxResponseSize = 10 * 1024 * 1024
)

const (
	pathLogin        = "/users/login"
	pathGenerate     = "/generate"
	pathSuggestion   = "/suggestion"
	pathAddPolicy    = "/users/add_policy"
	pathRemovePolicy = "/users/remove_policy"
	pathGetPolicies  = "/users/get_policies"
	pathAnalytics    = "/users/analytics"
)

// suggestionBoilerplate are lead-in lines the suggestion model emits about
// its own output.
var suggestionBoilerplate = []string{
	"Here are three diverse, high-quality prompts",
	"Here are three high-quality, diverse prompts",
}

// SessionStore is the credential holder the client reads before each call.
type SessionStore interface {
	Save(token string, expiry int64) error
	Token() string
	IsValid() bool
	Clear() error
	Now() time.Time
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	session    SessionStore
	log        *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		c.log = l
	}
}

func New(baseURL string, session SessionStore, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		session:    session,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

type GenerateRequest struct {
	Prompt            string         `json:"prompt"`
	Preferences       map[string]any `json:"prefs"`
	Tradeoff          float64        `json:"cp_tradeoff_parameter"`
	ComplianceEnabled bool           `json:"compliance_enabled"`
}

// NewGenerateRequest fills in the defaults the backend expects.
func NewGenerateRequest(prompt string) GenerateRequest {
	return GenerateRequest{
		Prompt:            prompt,
		Preferences:       map[string]any{},
		Tradeoff:          DefaultTradeoff,
		ComplianceEnabled: true,
	}
}

type PolicySet struct {
	InputPolicies  []string `json:"input_policies"`
	OutputPolicies []string `json:"output_policies"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string  `json:"token"`
	Exp   float64 `json:"exp"`
}

type policyRequest struct {
	PolicyType  string `json:"policy_type"`
	Description string `json:"description"`
}

// Login exchanges credentials for a bearer token and stores it.
func (c *Client) Login(ctx context.Context, email, password string) (models.Credential, error) {
	status, data, err := c.send(ctx, http.MethodPost, pathLogin, loginRequest{Email: email, Password: password}, "")
	if err != nil {
		return models.Credential{}, &AuthenticationError{Message: err.Error(), Err: err}
	}
	if !isSuccess(status) {
		return models.Credential{}, &AuthenticationError{Status: status, Message: serverMessage(status, data)}
	}

	var resp loginResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return models.Credential{}, &AuthenticationError{Status: status, Message: "malformed login response", Err: err}
	}
	if resp.Token == "" {
		return models.Credential{}, &AuthenticationError{Status: status, Message: "no token in response"}
	}

	exp := int64(resp.Exp)
	if exp <= 0 {
		exp = c.session.Now().Add(DefaultTokenLifetime).Unix()
	}
	if err := c.session.Save(resp.Token, exp); err != nil {
		return models.Credential{}, fmt.Errorf("failed to save session: %w", err)
	}

	c.log.Info("logged in", zap.Time("expires_at", time.Unix(exp, 0)))
	return models.Credential{Token: resp.Token, ExpiresAt: exp}, nil
}

// Generate returns the backend's payload untouched: a string, a decoded JSON
// value, or the raw body text when it is not JSON.
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (any, error) {
	if req.Preferences == nil {
		req.Preferences = map[string]any{}
	}
	req.Tradeoff = clamp(req.Tradeoff)

	data, err := c.authorized(ctx, http.MethodPost, pathGenerate, req)
	if err != nil {
		return nil, err
	}
	return decodePayload(data), nil
}

func (c *Client) GetSuggestions(ctx context.Context, prompt string) ([]string, error) {
	data, err := c.authorized(ctx, http.MethodPost, pathSuggestion, map[string]string{"prompt": prompt})
	if err != nil {
		return nil, err
	}

	var resp struct {
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &RequestError{Status: http.StatusOK, Message: "malformed suggestions response", Err: err}
	}

	filtered := make([]string, 0, len(resp.Suggestions))
	for _, s := range resp.Suggestions {
		if isBoilerplate(s) {
			continue
		}
		filtered = append(filtered, s)
	}
	return filtered, nil
}

func (c *Client) AddPolicy(ctx context.Context, direction, description string) (any, error) {
	return c.policyCall(ctx, pathAddPolicy, direction, description)
}

func (c *Client) RemovePolicy(ctx context.Context, direction, description string) (any, error) {
	return c.policyCall(ctx, pathRemovePolicy, direction, description)
}

func (c *Client) policyCall(ctx context.Context, path, direction, description string) (any, error) {
	d, err := models.ParseDirection(direction)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDirection, direction)
	}
	data, err := c.authorized(ctx, http.MethodPost, path, policyRequest{PolicyType: string(d), Description: description})
	if err != nil {
		return nil, err
	}
	return decodePayload(data), nil
}

func (c *Client) GetPolicies(ctx context.Context) (PolicySet, error) {
	data, err := c.authorized(ctx, http.MethodGet, pathGetPolicies, nil)
	if err != nil {
		return PolicySet{}, err
	}
	var set PolicySet
	if err := json.Unmarshal(data, &set); err != nil {
		return PolicySet{}, &RequestError{Status: http.StatusOK, Message: "malformed policies response", Err: err}
	}
	return set, nil
}

func (c *Client) GetAnalytics(ctx context.Context) (map[string]any, error) {
	data, err := c.authorized(ctx, http.MethodGet, pathAnalytics, nil)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, &RequestError{Status: http.StatusOK, Message: "malformed analytics response", Err: err}
	}
	return out, nil
}

// Logout forgets the credential locally; the server is not contacted.
func (c *Client) Logout() error {
	return c.session.Clear()
}

func (c *Client) IsAuthenticated() bool {
	return c.session.IsValid()
}

func (c *Client) authorized(ctx context.Context, method, path string, body any) ([]byte, error) {
	if !c.session.IsValid() {
		return nil, ErrNotAuthenticated
	}

	status, data, err := c.send(ctx, method, path, body, c.session.Token())
	if err != nil {
		return nil, &RequestError{Message: err.Error(), Err: err}
	}

	switch {
	case status == http.StatusUnauthorized:
		if err := c.session.Clear(); err != nil {
			c.log.Error("failed to clear session", zap.Error(err))
		}
		c.log.Warn("session rejected by server, credential cleared", zap.String("path", path))
		return nil, ErrSessionExpired
	case !isSuccess(status):
		return nil, &RequestError{Status: status, Message: serverMessage(status, data)}
	}
	return data, nil
}

func (c *Client) send(ctx context.Context, method, path string, body any, token string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	c.log.Debug("request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return resp.StatusCode, data, nil
}

func decodePayload(data []byte) any {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return ""
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return string(data)
	}
	return v
}

// serverMessage picks the most useful text out of an error body.
func serverMessage(status int, data []byte) string {
	var body map[string]any
	if err := json.Unmarshal(data, &body); err == nil {
		for _, key := range []string{"message", "detail", "error"} {
			if s, ok := body[key].(string); ok && s != "" {
				return s
			}
		}
	}
	if text := strings.TrimSpace(string(data)); text != "" && len(text) <= 512 {
		return text
	}
	return http.StatusText(status)
}

func isBoilerplate(s string) bool {
	trimmed := strings.TrimSpace(s)
	for _, prefix := range suggestionBoilerplate {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// IsAuthError reports whether err means the user has to log in again.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrNotAuthenticated) || errors.Is(err, ErrSessionExpired)
}
