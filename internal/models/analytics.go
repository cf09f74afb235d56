package models

type CostSavingPoint struct {
	Label             string  `json:"label"`
	IncrementalSaving float64 `json:"incremental_saving"`
	CumulativeSaving  float64 `json:"cumulative_saving"`
}

type AnalyticsSnapshot struct {
	TotalCostSaved      float64           `json:"total_cost_saved"`
	TotalRequests       int               `json:"total_requests"`
	ComplianceChecks    int               `json:"compliance_checks"`
	RedactionCount      int               `json:"redaction_count"`
	PlagiarismChecks    int               `json:"plagiarism_checks"`
	ModelUsage          map[string]int    `json:"model_usage"`
	CostSavingsOverTime []CostSavingPoint `json:"cost_savings_over_time"`
}
