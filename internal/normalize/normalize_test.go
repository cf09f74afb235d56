package normalize

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jasperwreed/guidera-chat/internal/models"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name    string
		raw     any
		content string
		kind    models.ResponseKind
	}{
		{
			name:    "narration then json",
			raw:     "Picking best model for you\n{\"response\":\"hi\"}",
			content: "{\n  \"response\": \"hi\"\n}",
			kind:    models.KindStructured,
		},
		{
			name:    "crlf line endings",
			raw:     "Running policy checks\r\n{\"a\":1}\r\n",
			content: "{\n  \"a\": 1\n}",
			kind:    models.KindStructured,
		},
		{
			name:    "no json",
			raw:     "no json here",
			content: "no json here",
			kind:    models.KindPlainText,
		},
		{
			name:    "malformed json falls back to filtered text",
			raw:     "Running compliance checks\n{not json\ntrailer",
			content: "{not json\ntrailer",
			kind:    models.KindPlainText,
		},
		{
			name:    "indented narration is dropped",
			raw:     "   Checking compliance and generating response...\nplain answer",
			content: "plain answer",
			kind:    models.KindPlainText,
		},
		{
			name:    "trailing text after json is ignored",
			raw:     "{\"a\":\"b\"}\ndone",
			content: "{\n  \"a\": \"b\"\n}",
			kind:    models.KindStructured,
		},
		{
			name:    "json spanning lines",
			raw:     "Picking best model for you\n{\n\"a\": [1,\n2]\n}",
			content: "{\n  \"a\": [\n    1,\n    2\n  ]\n}",
			kind:    models.KindStructured,
		},
		{
			name: "empty string",
			raw:  "",
			kind: models.KindEmpty,
		},
		{
			name: "narration only",
			raw:  "Picking best model for you\nRunning policy checks",
			kind: models.KindEmpty,
		},
		{
			name: "nil",
			raw:  nil,
			kind: models.KindEmpty,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			assert.Equal(t, tt.content, got.Content)
			assert.Equal(t, tt.kind, got.Kind)
		})
	}
}

func TestNormalizeStripsNER(t *testing.T) {
	t.Run("from text", func(t *testing.T) {
		raw := "Running compliance checks\n" +
			`{"response":"ok","compliance_report":{"status":"passed","ner":[{"entity":"Alice"}]}}`
		got := Normalize(raw)
		assert.NotContains(t, got.Content, "ner")
		assert.NotContains(t, got.Content, "Alice")
		assert.Equal(t, models.KindPassed, got.Kind)
	})

	t.Run("from object", func(t *testing.T) {
		raw := map[string]any{
			"response": "ok",
			"compliance_report": map[string]any{
				"status": "warning",
				"ner":    []string{"Bob"},
			},
		}
		got := Normalize(raw)
		assert.NotContains(t, got.Content, "Bob")
		assert.Equal(t, models.KindWarning, got.Kind)

		report := raw["compliance_report"].(map[string]any)
		assert.Contains(t, report, "ner", "caller's value must not be mutated")
	})

	t.Run("nested", func(t *testing.T) {
		raw := json.RawMessage(`{"results":[{"compliance_report":{"ner":"x","score":1}}]}`)
		got := Normalize(raw)
		assert.Equal(t, "{\n  \"results\": [\n    {\n      \"compliance_report\": {\n        \"score\": 1\n      }\n    }\n  ]\n}", got.Content)
	})
}

func TestNormalizeIsStable(t *testing.T) {
	raw := `{"b":2,"a":"<tag>","c":0.43}`
	first := Normalize(raw)
	second := Normalize(raw)
	assert.Equal(t, first.Content, second.Content)
	assert.Equal(t, "{\n  \"a\": \"<tag>\",\n  \"b\": 2,\n  \"c\": 0.43\n}", first.Content)
}

func TestNormalizeShapes(t *testing.T) {
	t.Run("camel case payload", func(t *testing.T) {
		raw := map[string]any{
			"content": "analysed",
			"model":   "GPT-4-Compliance-v2.1",
			"performanceMetrics": map[string]any{
				"costSaved":      0.43,
				"processingTime": 1850,
				"tokensUsed":     2400,
				"efficiency":     94,
			},
			"plagiarismCheck": map[string]any{
				"percentage": 12,
				"sources": []any{
					map[string]any{"url": "https://example.com/a", "title": "A", "similarity": 8},
				},
			},
			"complianceCheck": map[string]any{
				"status": "failed",
				"details": []any{
					map[string]any{"rule": "Privacy Compliance", "status": "failed", "description": "PII"},
				},
			},
		}

		got := Normalize(raw)
		assert.Equal(t, models.KindFailed, got.Kind)
		assert.Equal(t, "GPT-4-Compliance-v2.1", got.Model)

		require.NotNil(t, got.Metrics)
		assert.InDelta(t, 0.43, got.Metrics.CostSaved, 1e-9)
		assert.Equal(t, int64(1850), got.Metrics.ProcessingTimeMs)
		assert.Equal(t, 2400, got.Metrics.TokensUsed)
		assert.InDelta(t, 94, got.Metrics.EfficiencyPercent, 1e-9)

		require.NotNil(t, got.Plagiarism)
		assert.InDelta(t, 12, got.Plagiarism.Percentage, 1e-9)
		require.Len(t, got.Plagiarism.Sources, 1)
		assert.Equal(t, "https://example.com/a", got.Plagiarism.Sources[0].URL)

		require.NotNil(t, got.Compliance)
		assert.Equal(t, models.ComplianceFailed, got.ComplianceStatus())
		require.Len(t, got.Compliance.Details, 1)
		assert.Equal(t, "Privacy Compliance", got.Compliance.Details[0].Rule)
	})

	t.Run("snake case payload", func(t *testing.T) {
		raw := `{"selected_model":"llama-3","cost_saved":0.2,"compliance_report":{"status":"PASSED"}}`
		got := Normalize(raw)
		assert.Equal(t, models.KindPassed, got.Kind)
		assert.Equal(t, "llama-3", got.Model)
		require.NotNil(t, got.Metrics)
		assert.InDelta(t, 0.2, got.Metrics.CostSaved, 1e-9)
	})

	t.Run("policy violation", func(t *testing.T) {
		got := Normalize(`{"violated_policies":["no ssn"],"response":""}`)
		assert.Equal(t, models.KindPolicyViolation, got.Kind)
		assert.Nil(t, got.Compliance)
	})

	t.Run("false violation flag is not a violation", func(t *testing.T) {
		got := Normalize(`{"policy_violation":false}`)
		assert.Equal(t, models.KindStructured, got.Kind)
	})

	t.Run("mistyped fields are absent", func(t *testing.T) {
		got := Normalize(`{"model":7,"performanceMetrics":"fast","complianceCheck":{"status":"unknown"}}`)
		assert.Equal(t, models.KindStructured, got.Kind)
		assert.Empty(t, got.Model)
		assert.Nil(t, got.Metrics)
		assert.Nil(t, got.Compliance)
	})

	t.Run("array payload", func(t *testing.T) {
		got := Normalize([]any{"a", "b"})
		assert.Equal(t, models.KindStructured, got.Kind)
		assert.Equal(t, "[\n  \"a\",\n  \"b\"\n]", got.Content)
		assert.Nil(t, got.Fields)
	})

	t.Run("json string payload is treated as text", func(t *testing.T) {
		got := Normalize(json.RawMessage(`"Picking best model for you\nhello"`))
		assert.Equal(t, models.KindPlainText, got.Kind)
		assert.Equal(t, "hello", got.Content)
	})
}

func TestNormalizeNeverFails(t *testing.T) {
	inputs := []any{
		make(chan int),
		func() {},
		[]byte("{\"unterminated\":"),
		json.RawMessage("{oops"),
		42,
	}
	for _, raw := range inputs {
		assert.NotPanics(t, func() { Normalize(raw) })
	}

	got := Normalize(json.RawMessage("{oops"))
	assert.Equal(t, models.KindPlainText, got.Kind)
	assert.Equal(t, "{oops", got.Content)
}

func TestApply(t *testing.T) {
	msg := models.Message{ID: "m1", Role: models.RoleAssistant, Pending: true}
	Normalize(`{"model":"m","complianceCheck":{"status":"warning"}}`).Apply(&msg)

	assert.False(t, msg.Pending)
	assert.Equal(t, "m1", msg.ID)
	assert.Equal(t, "m", msg.Model)
	assert.Equal(t, models.KindWarning, msg.Kind)
	require.NotNil(t, msg.ComplianceCheck)
	assert.Equal(t, models.ComplianceWarning, msg.ComplianceCheck.Status)
}
