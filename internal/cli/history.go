package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jasperwreed/guidera-chat/internal/models"
	"github.com/jasperwreed/guidera-chat/internal/search"
	"github.com/jasperwreed/guidera-chat/internal/storage"
)

var (
	historyLimit  int
	historyOffset int
	historyQuery  string
	historyRole   string
	historyModel  string
	historyStatus string
)

func NewHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List or search stored chat messages",
		Long:  `List the most recent stored messages, or full-text search them with --search.`,
		Example: `  # Last 20 messages
  guidera history

  # Search responses that failed compliance
  guidera history --search "privacy" --role assistant --status failed`,
		RunE: runHistory,
	}

	cmd.Flags().IntVarP(&historyLimit, "limit", "l", 20, "Maximum number of messages to show")
	cmd.Flags().IntVar(&historyOffset, "offset", 0, "Skip this many recent messages")
	cmd.Flags().StringVarP(&historyQuery, "search", "s", "", "Full-text search query (append * for prefix match)")
	cmd.Flags().StringVar(&historyRole, "role", "", "Filter by role: user or assistant")
	cmd.Flags().StringVar(&historyModel, "model", "", "Filter by model name")
	cmd.Flags().StringVar(&historyStatus, "status", "", "Filter by compliance status: passed, warning or failed")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	v := NewValidator()
	role, err := v.ValidateRole(historyRole)
	if err != nil {
		return err
	}
	status, err := v.ValidateStatus(historyStatus)
	if err != nil {
		return err
	}
	filter := storage.MessageFilter{Role: role, Model: historyModel, Status: status}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()

	if strings.TrimSpace(historyQuery) != "" {
		results, err := search.NewSearcher(store).SearchWithFilters(historyQuery, historyLimit, filter)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		if len(results) == 0 {
			fmt.Fprintln(out, "No messages found")
			return nil
		}
		fmt.Fprintf(out, "Found %d messages:\n\n", len(results))
		for _, r := range results {
			printHistoryLine(out, r.Message, r.Snippet)
		}
		return nil
	}

	msgs, err := store.ListMessages(historyLimit, historyOffset, filter)
	if err != nil {
		return fmt.Errorf("failed to list messages: %w", err)
	}
	if len(msgs) == 0 {
		fmt.Fprintln(out, "No messages found")
		return nil
	}
	for _, m := range msgs {
		printHistoryLine(out, m, "")
	}
	return nil
}

func printHistoryLine(w io.Writer, m models.Message, snippet string) {
	header := fmt.Sprintf("%s  %s", humanize.Time(m.Timestamp), m.Role)
	if m.Model != "" {
		header += "  " + m.Model
	}
	if c := m.ComplianceCheck; c != nil {
		header += "  [" + string(c.Status) + "]"
	}
	fmt.Fprintln(w, header)

	text := snippet
	if text == "" {
		text = truncate(m.Content, 160)
	}
	fmt.Fprintf(w, "  %s\n", strings.ReplaceAll(text, "\n", " "))
	fmt.Fprintf(w, "  id: %s\n\n", m.ID)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
