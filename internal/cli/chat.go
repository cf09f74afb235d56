package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jasperwreed/guidera-chat/internal/client"
	"github.com/jasperwreed/guidera-chat/internal/logger"
	"github.com/jasperwreed/guidera-chat/internal/policy"
	"github.com/jasperwreed/guidera-chat/internal/tui"
)

func NewChatCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive chat",
		Long: `Open a full-screen chat with the Guidera compliance pipeline.

  enter    send the prompt
  tab      toggle the analytics dashboard
  :        command mode (:help lists commands)
  ctrl+c   quit`,
		RunE: runChat,
	}

	cmd.Flags().BoolVar(&noCompliance, "no-compliance", false, "Start with compliance checks disabled")
	cmd.Flags().Float64VarP(&tradeoff, "tradeoff", "t", 0.5, "Initial cost/performance tradeoff between 0 and 1")

	return cmd
}

func runChat(cmd *cobra.Command, args []string) error {
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

	if err := logToFile(); err != nil {
		return err
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.client.IsAuthenticated() {
		return client.ErrNotAuthenticated
	}

	notices := tui.NewNoticeQueue()
	ctrl, err := a.controller(notices)
	if err != nil {
		return err
	}

	chat := tui.NewChat(tui.Config{
		Controller: ctrl,
		Notices:    notices,
		Service:    a.client,
		Policies:   policy.NewManager(a.client),
		Options:    opts,
		Endpoint:   a.client.BaseURL(),
	})
	if err := chat.Run(); err != nil {
		return fmt.Errorf("chat exited: %w", err)
	}

	if !a.client.IsAuthenticated() {
		fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
	}
	return nil
}

// logToFile keeps log lines off the terminal while the full-screen program
// owns it.
func logToFile() error {
	switch cfg.Logging.OutputPath {
	case "", "stderr", "stdout":
	default:
		return nil
	}
	path := filepath.Join(filepath.Dir(cfg.Storage.Path), "guidera.log")
	cfg.Logging.OutputPath = path
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, path); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	return nil
}
