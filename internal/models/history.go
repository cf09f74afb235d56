package models

import "time"

// SearchResult is one stored message matched by a full-text query.
type SearchResult struct {
	Message Message `json:"message"`
	Snippet string  `json:"snippet"`
	Score   float64 `json:"score"`
}

// HistoryStats summarises the locally stored chat history.
type HistoryStats struct {
	TotalMessages     int                      `json:"total_messages"`
	UserMessages      int                      `json:"user_messages"`
	AssistantMessages int                      `json:"assistant_messages"`
	TotalCostSaved    float64                  `json:"total_cost_saved"`
	ModelBreakdown    map[string]int           `json:"model_breakdown"`
	StatusBreakdown   map[ComplianceStatus]int `json:"status_breakdown"`
	FirstMessage      time.Time                `json:"first_message,omitempty"`
	LastMessage       time.Time                `json:"last_message,omitempty"`
}
