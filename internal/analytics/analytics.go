// Package analytics derives usage metrics from the chat history. Nothing is
// stored: every snapshot is a full recomputation.
package analytics

import (
	"fmt"
	"sort"

	"github.com/jasperwreed/guidera-chat/internal/models"
)

// Aggregate folds over resolved assistant messages in history order. It
// does not modify msgs.
func Aggregate(msgs []models.Message) models.AnalyticsSnapshot {
	snap := models.AnalyticsSnapshot{
		ModelUsage:          map[string]int{},
		CostSavingsOverTime: []models.CostSavingPoint{},
	}

	var cumulative float64
	for _, m := range msgs {
		if !m.IsAssistant() {
			continue
		}
		snap.TotalRequests++

		var saved float64
		if m.PerformanceMetrics != nil {
			saved = m.PerformanceMetrics.CostSaved
		}
		cumulative += saved
		snap.TotalCostSaved += saved
		snap.CostSavingsOverTime = append(snap.CostSavingsOverTime, models.CostSavingPoint{
			Label:             fmt.Sprintf("Request %d", snap.TotalRequests),
			IncrementalSaving: saved,
			CumulativeSaving:  cumulative,
		})

		if m.ComplianceCheck != nil {
			snap.ComplianceChecks++
			// No separate redaction signal reaches the client; a failed
			// check is counted as one.
			if m.ComplianceCheck.Status == models.ComplianceFailed {
				snap.RedactionCount++
			}
		}
		if m.PlagiarismCheck != nil {
			snap.PlagiarismChecks++
		}
		if m.Model != "" {
			snap.ModelUsage[m.Model]++
		}
	}
	return snap
}

type ModelShare struct {
	Model   string
	Count   int
	Percent float64
}

// ModelShares orders model usage by count, most used first, ties by name.
func ModelShares(snap models.AnalyticsSnapshot) []ModelShare {
	total := 0
	for _, n := range snap.ModelUsage {
		total += n
	}

	shares := make([]ModelShare, 0, len(snap.ModelUsage))
	for model, n := range snap.ModelUsage {
		share := ModelShare{Model: model, Count: n}
		if total > 0 {
			share.Percent = float64(n) * 100 / float64(total)
		}
		shares = append(shares, share)
	}
	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Count != shares[j].Count {
			return shares[i].Count > shares[j].Count
		}
		return shares[i].Model < shares[j].Model
	})
	return shares
}

// ComplianceRate is the fraction of requests that carried a compliance
// result, in percent.
func ComplianceRate(snap models.AnalyticsSnapshot) float64 {
	if snap.TotalRequests == 0 {
		return 0
	}
	return float64(snap.ComplianceChecks) * 100 / float64(snap.TotalRequests)
}
