package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jasperwreed/guidera-chat/internal/analytics"
	"github.com/jasperwreed/guidera-chat/internal/models"
	"github.com/jasperwreed/guidera-chat/internal/storage"
)

var showTimeline bool

func NewStatsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show usage analytics for the local chat history",
		Long: `Display cost savings, compliance and plagiarism counts and model usage
computed from the messages stored on this machine.`,
		RunE: runStats,
	}

	cmd.Flags().BoolVar(&showTimeline, "timeline", false, "Print cumulative cost savings per request")

	return cmd
}

func runStats(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	stats, err := store.GetStats()
	if err != nil {
		return fmt.Errorf("failed to get statistics: %w", err)
	}
	msgs, err := store.ListMessages(0, 0, storage.MessageFilter{})
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	printStats(cmd.OutOrStdout(), stats, analytics.Aggregate(msgs), showTimeline)
	return nil
}

func printStats(w io.Writer, stats *models.HistoryStats, snap models.AnalyticsSnapshot, timeline bool) {
	fmt.Fprintln(w, "Guidera Statistics")
	fmt.Fprintln(w, "==================")
	fmt.Fprintf(w, "\nTotal Messages: %s (%d prompts, %d responses)\n",
		humanize.Comma(int64(stats.TotalMessages)), stats.UserMessages, stats.AssistantMessages)
	if !stats.FirstMessage.IsZero() {
		fmt.Fprintf(w, "First Message: %s\n", humanize.Time(stats.FirstMessage))
		fmt.Fprintf(w, "Last Message: %s\n", humanize.Time(stats.LastMessage))
	}

	fmt.Fprintf(w, "\nTotal Requests: %d\n", snap.TotalRequests)
	fmt.Fprintf(w, "Total Cost Saved: $%s\n", humanize.CommafWithDigits(snap.TotalCostSaved, 2))
	fmt.Fprintf(w, "Compliance Checks: %d (%.0f%% of requests)\n", snap.ComplianceChecks, analytics.ComplianceRate(snap))
	fmt.Fprintf(w, "Redactions: %d\n", snap.RedactionCount)
	fmt.Fprintf(w, "Plagiarism Checks: %d\n", snap.PlagiarismChecks)

	if shares := analytics.ModelShares(snap); len(shares) > 0 {
		fmt.Fprintln(w, "\nRequests by Model:")
		for _, s := range shares {
			fmt.Fprintf(w, "  %s: %d (%.0f%%)\n", s.Model, s.Count, s.Percent)
		}
	}

	if len(stats.StatusBreakdown) > 0 {
		fmt.Fprintln(w, "\nResponses by Compliance Status:")
		for _, status := range []models.ComplianceStatus{models.CompliancePassed, models.ComplianceWarning, models.ComplianceFailed} {
			if n := stats.StatusBreakdown[status]; n > 0 {
				fmt.Fprintf(w, "  %s: %d\n", status, n)
			}
		}
	}

	if timeline && len(snap.CostSavingsOverTime) > 0 {
		fmt.Fprintln(w, "\nCost Savings Over Time:")
		for _, p := range snap.CostSavingsOverTime {
			fmt.Fprintf(w, "  %-12s +$%.2f  $%.2f\n", p.Label, p.IncrementalSaving, p.CumulativeSaving)
		}
	}
}

var analyticsJSON bool

func NewAnalyticsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analytics",
		Short: "Show account analytics reported by the server",
		RunE:  runAnalytics,
	}

	cmd.Flags().BoolVar(&analyticsJSON, "json", false, "Print the raw JSON payload")

	return cmd
}

func runAnalytics(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := requestContext(cmd)
	defer cancel()

	data, err := a.client.GetAnalytics(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if analyticsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
	printAnalytics(out, data, "")
	return nil
}

// printAnalytics prints the server payload with sorted keys, indenting
// nested objects.
func printAnalytics(w io.Writer, data map[string]any, indent string) {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		label := strings.ReplaceAll(k, "_", " ")
		switch v := data[k].(type) {
		case map[string]any:
			fmt.Fprintf(w, "%s%s:\n", indent, label)
			printAnalytics(w, v, indent+"  ")
		case float64:
			fmt.Fprintf(w, "%s%s: %s\n", indent, label, humanize.Ftoa(v))
		default:
			fmt.Fprintf(w, "%s%s: %v\n", indent, label, v)
		}
	}
}
