package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jasperwreed/guidera-chat/internal/chat"
	"github.com/jasperwreed/guidera-chat/internal/models"
)

var (
	noCompliance bool
	tradeoff     float64
)

func NewAskCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask [prompt]",
		Short: "Submit one prompt and print the compliance verdict",
		Long: `Send a single prompt through the Guidera pipeline, print the response and its
compliance status, and append both messages to the local history.

If no prompt is given it is read from stdin.`,
		RunE: runAsk,
	}

	cmd.Flags().BoolVar(&noCompliance, "no-compliance", false, "Skip compliance checks for this prompt")
	cmd.Flags().Float64VarP(&tradeoff, "tradeoff", "t", 0.5, "Cost/performance tradeoff between 0 and 1")

	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")
	if strings.TrimSpace(prompt) == "" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read prompt: %w", err)
		}
		prompt = string(data)
	}

	opts := defaultOptions()
	if cmd.Flags().Changed("tradeoff") {
		if err := NewValidator().ValidateTradeoff(tradeoff); err != nil {
			return err
		}
		opts.Tradeoff = tradeoff
	}
	if noCompliance {
		opts.ComplianceEnabled = false
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	var notices []chat.Notice
	ctrl, err := a.controller(chat.NotifierFunc(func(n chat.Notice) {
		notices = append(notices, n)
	}))
	if err != nil {
		return err
	}

	ctx, cancel := requestContext(cmd)
	defer cancel()

	msg, err := ctrl.Submit(ctx, prompt, opts)
	if err != nil {
		return err
	}

	printMessage(out, msg)
	for _, n := range notices {
		fmt.Fprintf(out, "[%s] %s\n", n.Level, n.Text)
	}
	return nil
}

// printMessage renders an assistant message followed by its metadata lines.
func printMessage(w io.Writer, msg models.Message) {
	fmt.Fprintln(w, msg.Content)
	fmt.Fprintln(w)

	if msg.Model != "" {
		fmt.Fprintf(w, "Model: %s\n", msg.Model)
	}
	if c := msg.ComplianceCheck; c != nil {
		fmt.Fprintf(w, "Compliance: %s\n", c.Status)
		for _, d := range c.Details {
			fmt.Fprintf(w, "  %-8s %s: %s\n", d.Status, d.Rule, d.Description)
		}
	}
	if p := msg.PlagiarismCheck; p != nil {
		fmt.Fprintf(w, "Plagiarism: %.0f%%\n", p.Percentage)
		for _, s := range p.Sources {
			fmt.Fprintf(w, "  %.0f%% %s (%s)\n", s.SimilarityPercent, s.Title, s.URL)
		}
	}
	if m := msg.PerformanceMetrics; m != nil {
		fmt.Fprintf(w, "Cost saved: $%.2f  Tokens: %d  Time: %dms  Efficiency: %.0f%%\n",
			m.CostSaved, m.TokensUsed, m.ProcessingTimeMs, m.EfficiencyPercent)
	}
}
