package mockserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasperwreed/guidera-chat/internal/client"
	"github.com/jasperwreed/guidera-chat/internal/models"
	"github.com/jasperwreed/guidera-chat/internal/normalize"
	"github.com/jasperwreed/guidera-chat/internal/session"
)

func setup(t *testing.T, opts ...Option) (*Server, *client.Client) {
	t.Helper()
	srv := New(map[string]string{"demo@guidera.ai": "demo"}, opts...)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)
	return srv, client.New(ts.URL, session.NewStore(nil))
}

func login(t *testing.T, c *client.Client) models.Credential {
	t.Helper()
	cred, err := c.Login(context.Background(), "demo@guidera.ai", "demo")
	require.NoError(t, err)
	return cred
}

func TestLogin(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	_, c := setup(t, WithClock(func() time.Time { return now }))

	_, err := c.Login(context.Background(), "demo@guidera.ai", "nope")
	var authErr *client.AuthenticationError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
	assert.Equal(t, "Invalid email or password", authErr.Message)

	cred := login(t, c)
	assert.NotEmpty(t, cred.Token)
	assert.Equal(t, now.Add(DefaultTokenLifetime).Unix(), cred.ExpiresAt)
}

func TestLoginWithoutExpiry(t *testing.T) {
	_, c := setup(t, WithTokenLifetime(0))
	before := time.Now()
	cred := login(t, c)
	assert.GreaterOrEqual(t, cred.ExpiresAt, before.Add(client.DefaultTokenLifetime).Unix())
}

func TestGenerateScenarios(t *testing.T) {
	_, c := setup(t)
	login(t, c)

	tests := []struct {
		prompt string
		kind   models.ResponseKind
		cost   float64
	}{
		{"hello", models.KindPassed, 0.43},
		{"please FAIL this", models.KindFailed, 0.12},
		{"warn me", models.KindWarning, 0.28},
	}
	for _, tt := range tests {
		t.Run(tt.prompt, func(t *testing.T) {
			raw, err := c.Generate(context.Background(), client.NewGenerateRequest(tt.prompt))
			require.NoError(t, err)

			text, ok := raw.(string)
			require.True(t, ok, "generate should answer with narrated text, got %T", raw)
			assert.True(t, strings.HasPrefix(text, "Picking best model for you"))

			got := normalize.Normalize(raw)
			assert.Equal(t, tt.kind, got.Kind)
			assert.Equal(t, scenarioModel, got.Model)
			require.NotNil(t, got.Metrics)
			assert.InDelta(t, tt.cost, got.Metrics.CostSaved, 1e-9)
			assert.NotContains(t, got.Content, `"ner"`)
			assert.NotContains(t, got.Content, "Running policy checks")
		})
	}
}

func TestGenerateWithoutCompliance(t *testing.T) {
	_, c := setup(t)
	login(t, c)

	req := client.NewGenerateRequest("hello")
	req.ComplianceEnabled = false
	raw, err := c.Generate(context.Background(), req)
	require.NoError(t, err)

	got := normalize.Normalize(raw)
	assert.Equal(t, models.KindStructured, got.Kind)
	assert.Nil(t, got.Compliance)
}

func TestPoliciesAndViolations(t *testing.T) {
	_, c := setup(t)
	login(t, c)
	ctx := context.Background()

	_, err := c.AddPolicy(ctx, "Input", "social security number")
	require.NoError(t, err)
	_, err = c.AddPolicy(ctx, "output", "no emails")
	require.NoError(t, err)

	set, err := c.GetPolicies(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"social security number"}, set.InputPolicies)
	assert.Equal(t, []string{"no emails"}, set.OutputPolicies)

	raw, err := c.Generate(ctx, client.NewGenerateRequest("my Social Security Number is 123"))
	require.NoError(t, err)
	assert.Equal(t, models.KindPolicyViolation, normalize.Normalize(raw).Kind)

	_, err = c.RemovePolicy(ctx, "input", "social security number")
	require.NoError(t, err)
	_, err = c.RemovePolicy(ctx, "input", "social security number")
	var reqErr *client.RequestError
	require.ErrorAs(t, err, &reqErr)
	assert.Equal(t, http.StatusNotFound, reqErr.Status)
}

func TestSuggestionsAreFilteredByClient(t *testing.T) {
	_, c := setup(t)
	login(t, c)

	got, err := c.GetSuggestions(context.Background(), "the onboarding email")
	require.NoError(t, err)
	require.Len(t, got, 3)
	for _, s := range got {
		assert.NotContains(t, s, "Here are three")
		assert.Contains(t, s, "the onboarding email")
	}
}

func TestAnalyticsCounts(t *testing.T) {
	_, c := setup(t)
	login(t, c)
	ctx := context.Background()

	for _, p := range []string{"hello", "fail", "warn"} {
		_, err := c.Generate(ctx, client.NewGenerateRequest(p))
		require.NoError(t, err)
	}

	got, err := c.GetAnalytics(ctx)
	require.NoError(t, err)
	assert.Equal(t, float64(3), got["total_requests"])
	assert.Equal(t, float64(3), got["compliance_checks"])
	assert.Equal(t, float64(1), got["redactions"])
	assert.Equal(t, float64(2), got["plagiarism_checks"])
}

func TestRevokedTokenExpiresSession(t *testing.T) {
	srv, c := setup(t)
	login(t, c)

	srv.RevokeAll()
	_, err := c.Generate(context.Background(), client.NewGenerateRequest("hello"))
	assert.ErrorIs(t, err, client.ErrSessionExpired)
	assert.False(t, c.IsAuthenticated())
}

func TestExpiredTokenIsRejected(t *testing.T) {
	var serverNow atomic.Int64
	serverNow.Store(time.Now().Unix())
	srv := New(map[string]string{"a": "b"}, WithClock(func() time.Time { return time.Unix(serverNow.Load(), 0) }))
	ts := httptest.NewServer(srv)
	defer ts.Close()

	c := client.New(ts.URL, session.NewStore(nil))
	_, err := c.Login(context.Background(), "a", "b")
	require.NoError(t, err)

	// The client clock is real time, so it still considers the token live
	// once the server clock has moved past its expiry.
	serverNow.Add(int64((3 * time.Hour).Seconds()))

	_, err = c.GetPolicies(context.Background())
	assert.ErrorIs(t, err, client.ErrSessionExpired)
}

func TestHealth(t *testing.T) {
	srv := New(nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "healthy")
}
