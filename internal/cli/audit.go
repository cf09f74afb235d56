package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/jasperwreed/guidera-chat/internal/audit"
)

var (
	auditStatus string
	auditSince  time.Duration
	auditLimit  int
	auditErrors bool
	auditJSON   bool
)

func NewAuditCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the audit trail of generate requests",
		Long: `Show recorded generate requests with the raw payload the backend returned
and the compliance verdict it was normalized to.`,
		Args: cobra.NoArgs,
		RunE: runAudit,
	}

	cmd.Flags().StringVar(&auditStatus, "status", "", "Only show this compliance status (passed, failed, warning)")
	cmd.Flags().DurationVar(&auditSince, "since", 0, "Only show events newer than this (e.g. 24h)")
	cmd.Flags().IntVarP(&auditLimit, "limit", "l", 20, "Number of most recent events to show (0 for all)")
	cmd.Flags().BoolVar(&auditErrors, "errors", false, "Only show failed requests")
	cmd.Flags().BoolVar(&auditJSON, "json", false, "Print events as JSON lines")

	cmd.AddCommand(&cobra.Command{
		Use:   "shards",
		Short: "List audit shard files",
		Args:  cobra.NoArgs,
		RunE:  runAuditShards,
	})

	return cmd
}

func runAudit(cmd *cobra.Command, args []string) error {
	status, err := NewValidator().ValidateStatus(auditStatus)
	if err != nil {
		return err
	}
	if auditLimit < 0 {
		return fmt.Errorf("limit cannot be negative")
	}

	filter := audit.Filter{
		Status:    status,
		ErrorOnly: auditErrors,
		Limit:     auditLimit,
	}
	if auditSince > 0 {
		filter.Since = time.Now().Add(-auditSince)
	}

	events, err := audit.Read(cfg.Audit.Dir, filter)
	if err != nil {
		return fmt.Errorf("failed to read audit trail: %w", err)
	}

	out := cmd.OutOrStdout()
	if auditJSON {
		enc := json.NewEncoder(out)
		for _, e := range events {
			if err := enc.Encode(e); err != nil {
				return err
			}
		}
		return nil
	}

	if len(events) == 0 {
		fmt.Fprintln(out, "No audit events found")
		return nil
	}
	for _, e := range events {
		printAuditEvent(out, e)
	}
	return nil
}

func printAuditEvent(w io.Writer, e audit.Event) {
	verdict := string(e.Status)
	if e.Error != "" {
		verdict = "error"
	} else if verdict == "" {
		verdict = string(e.Kind)
	}

	header := fmt.Sprintf("%s  %-8s", e.Time.Local().Format("2006-01-02 15:04:05"), verdict)
	if e.Model != "" {
		header += "  " + e.Model
	}
	fmt.Fprintln(w, header)
	fmt.Fprintf(w, "  prompt: %s\n", truncate(e.Prompt, 80))
	fmt.Fprintf(w, "  tradeoff: %.2f  compliance: %s\n", e.Tradeoff, onOff(e.ComplianceEnabled))
	if e.Error != "" {
		fmt.Fprintf(w, "  error: %s\n", e.Error)
	}
}

func runAuditShards(cmd *cobra.Command, args []string) error {
	shards, err := audit.Shards(cfg.Audit.Dir)
	if err != nil {
		return fmt.Errorf("failed to list shards: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(shards) == 0 {
		fmt.Fprintf(out, "No shards in %s\n", cfg.Audit.Dir)
		return nil
	}
	for _, s := range shards {
		fmt.Fprintf(out, "%s  %s  %s\n", filepath.Base(s.Path), humanize.Bytes(uint64(s.Size)), humanize.Time(s.ModTime))
	}
	return nil
}
