package normalize

import (
	"encoding/json"
	"strings"

	"github.com/jasperwreed/guidera-chat/internal/models"
)

// The backend has shipped both camelCase and snake_case payloads; every
// lookup below accepts either.

var policyViolationKeys = []string{"policy_violation", "violations", "violated_policies"}

func extractModel(obj map[string]any) string {
	for _, key := range []string{"model", "selected_model", "model_used"} {
		if s, ok := obj[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func extractMetrics(obj map[string]any) *models.PerformanceMetrics {
	block, ok := lookupObject(obj, "performanceMetrics", "performance_metrics")
	if !ok {
		if cost, ok := number(obj["cost_saved"]); ok {
			return &models.PerformanceMetrics{CostSaved: cost}
		}
		return nil
	}

	var m models.PerformanceMetrics
	m.CostSaved, _ = lookupNumber(block, "costSaved", "cost_saved")
	if v, ok := lookupNumber(block, "processingTime", "processing_time", "processing_time_ms"); ok {
		m.ProcessingTimeMs = int64(v)
	}
	if v, ok := lookupNumber(block, "tokensUsed", "tokens_used"); ok {
		m.TokensUsed = int(v)
	}
	m.EfficiencyPercent, _ = lookupNumber(block, "efficiency", "efficiency_percent")
	return &m
}

func extractPlagiarism(obj map[string]any) *models.PlagiarismCheck {
	block, ok := lookupObject(obj, "plagiarismCheck", "plagiarism_report")
	if !ok {
		return nil
	}

	var p models.PlagiarismCheck
	p.Percentage, _ = lookupNumber(block, "percentage", "plagiarism_percentage")
	sources, _ := block["sources"].([]any)
	for _, item := range sources {
		src, ok := item.(map[string]any)
		if !ok {
			continue
		}
		s := models.PlagiarismSource{}
		s.URL, _ = src["url"].(string)
		s.Title, _ = src["title"].(string)
		s.SimilarityPercent, _ = lookupNumber(src, "similarity", "similarity_percent")
		p.Sources = append(p.Sources, s)
	}
	return &p
}

// extractCompliance returns nil unless the payload carries a recognised
// status.
func extractCompliance(obj map[string]any) *models.ComplianceCheck {
	block, ok := lookupObject(obj, "complianceCheck", "compliance_report")
	if !ok {
		return nil
	}
	status := parseStatus(block["status"])
	if status == "" {
		return nil
	}

	c := &models.ComplianceCheck{Status: status}
	details, _ := block["details"].([]any)
	for _, item := range details {
		d, ok := item.(map[string]any)
		if !ok {
			continue
		}
		detail := models.ComplianceDetail{Status: parseStatus(d["status"])}
		detail.Rule, _ = d["rule"].(string)
		detail.Description, _ = d["description"].(string)
		c.Details = append(c.Details, detail)
	}
	return c
}

func hasPolicyViolation(obj map[string]any) bool {
	for _, key := range policyViolationKeys {
		v, ok := obj[key]
		if !ok || v == nil {
			continue
		}
		switch vv := v.(type) {
		case bool:
			if vv {
				return true
			}
		case []any:
			if len(vv) > 0 {
				return true
			}
		default:
			return true
		}
	}
	return false
}

func parseStatus(v any) models.ComplianceStatus {
	s, ok := v.(string)
	if !ok {
		return ""
	}
	status := models.ComplianceStatus(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return ""
	}
	return status
}

func lookupObject(obj map[string]any, keys ...string) (map[string]any, bool) {
	for _, key := range keys {
		if m, ok := obj[key].(map[string]any); ok {
			return m, true
		}
	}
	return nil, false
}

func lookupNumber(obj map[string]any, keys ...string) (float64, bool) {
	for _, key := range keys {
		if f, ok := number(obj[key]); ok {
			return f, true
		}
	}
	return 0, false
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
