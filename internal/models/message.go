package models

import (
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type ComplianceStatus string

const (
	CompliancePassed  ComplianceStatus = "passed"
	ComplianceWarning ComplianceStatus = "warning"
	ComplianceFailed  ComplianceStatus = "failed"
)

// Valid reports whether s is one of the three statuses the backend emits.
func (s ComplianceStatus) Valid() bool {
	switch s {
	case CompliancePassed, ComplianceWarning, ComplianceFailed:
		return true
	}
	return false
}

// ResponseKind tags the shape a backend payload was recognised as.
type ResponseKind string

const (
	KindEmpty           ResponseKind = "empty"
	KindPlainText       ResponseKind = "plain-text"
	KindStructured      ResponseKind = "structured"
	KindPassed          ResponseKind = "passed"
	KindWarning         ResponseKind = "warning"
	KindFailed          ResponseKind = "failed"
	KindPolicyViolation ResponseKind = "policy-violation"
)

type Message struct {
	ID                 string              `json:"id"`
	Role               Role                `json:"role"`
	Content            string              `json:"content"`
	Timestamp          time.Time           `json:"timestamp"`
	Pending            bool                `json:"pending,omitempty"`
	Kind               ResponseKind        `json:"kind,omitempty"`
	Model              string              `json:"model,omitempty"`
	PerformanceMetrics *PerformanceMetrics `json:"performance_metrics,omitempty"`
	PlagiarismCheck    *PlagiarismCheck    `json:"plagiarism_check,omitempty"`
	ComplianceCheck    *ComplianceCheck    `json:"compliance_check,omitempty"`
}

// IsAssistant is true for resolved assistant messages; pending placeholders are excluded.
func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant && !m.Pending
}

type PerformanceMetrics struct {
	CostSaved         float64 `json:"cost_saved"`
	ProcessingTimeMs  int64   `json:"processing_time_ms"`
	TokensUsed        int     `json:"tokens_used"`
	EfficiencyPercent float64 `json:"efficiency_percent"`
}

type PlagiarismSource struct {
	URL               string  `json:"url"`
	Title             string  `json:"title"`
	SimilarityPercent float64 `json:"similarity_percent"`
}

type PlagiarismCheck struct {
	Percentage float64            `json:"percentage"`
	Sources    []PlagiarismSource `json:"sources"`
}

type ComplianceDetail struct {
	Rule        string           `json:"rule"`
	Status      ComplianceStatus `json:"status"`
	Description string           `json:"description"`
}

type ComplianceCheck struct {
	Status  ComplianceStatus   `json:"status"`
	Details []ComplianceDetail `json:"details"`
}
