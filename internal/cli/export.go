package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jasperwreed/guidera-chat/internal/analytics"
	"github.com/jasperwreed/guidera-chat/internal/models"
	"github.com/jasperwreed/guidera-chat/internal/storage"
)

// exportDocument is the JSON export layout.
type exportDocument struct {
	Messages  []models.Message         `json:"messages"`
	Analytics models.AnalyticsSnapshot `json:"analytics"`
}

func NewExportCommand() *cobra.Command {
	var format string
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export chat history",
		Long:  `Export the stored chat history with its analytics summary for sharing or backup.`,
		Example: `  # Export as JSON to stdout
  guidera export > history.json

  # Export as markdown to a file
  guidera export --format markdown --output history.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, format, output)
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "Export format: json or markdown")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")

	return cmd
}

func runExport(cmd *cobra.Command, format, output string) error {
	v := NewValidator()
	if err := v.ValidateFormat(format); err != nil {
		return err
	}

	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	msgs, err := store.ListMessages(0, 0, storage.MessageFilter{})
	if err != nil {
		return fmt.Errorf("failed to load history: %w", err)
	}

	w := cmd.OutOrStdout()
	if output != "" {
		path, err := v.ResolvePath(output)
		if err != nil {
			return err
		}
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if format == "markdown" {
		return writeMarkdown(w, msgs)
	}

	doc := exportDocument{Messages: msgs, Analytics: analytics.Aggregate(msgs)}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}
	return nil
}

func writeMarkdown(w io.Writer, msgs []models.Message) error {
	fmt.Fprintln(w, "# Guidera chat history")
	for _, m := range msgs {
		fmt.Fprintf(w, "\n## %s (%s)\n\n", m.Role, m.Timestamp.Format("2006-01-02 15:04:05"))
		if m.Model != "" {
			fmt.Fprintf(w, "Model: %s\n\n", m.Model)
		}
		if m.Kind == models.KindPlainText || m.Role == models.RoleUser {
			fmt.Fprintln(w, m.Content)
		} else {
			fmt.Fprintf(w, "```json\n%s\n```\n", m.Content)
		}
		if c := m.ComplianceCheck; c != nil {
			fmt.Fprintf(w, "\nCompliance: **%s**\n", c.Status)
		}
	}
	return nil
}
