package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jasperwreed/guidera-chat/internal/client"
	"github.com/jasperwreed/guidera-chat/internal/config"
	"github.com/jasperwreed/guidera-chat/internal/logger"
)

var (
	configPath string
	dbPath     string
	apiURL     string

	cfg *config.Config
)

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "guidera",
		Short: "Terminal client for the Guidera compliance service",
		Long: `Guidera - Enterprise AI orchestration with built-in compliance and plagiarism checks.
Submit content, review the verdict, manage policies and track cost savings from the terminal.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logger.Sync()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config file (default: ./config.yaml or ~/.guidera/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to database file (default: ~/.guidera/guidera.db)")
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Guidera API base URL (default: "+config.DefaultBaseURL+")")

	rootCmd.AddCommand(
		NewLoginCommand(),
		NewLogoutCommand(),
		NewStatusCommand(),
		NewAskCommand(),
		NewChatCommand(),
		NewSuggestCommand(),
		NewPolicyCommand(),
		NewAnalyticsCommand(),
		NewStatsCommand(),
		NewHistoryCommand(),
		NewClearCommand(),
		NewExportCommand(),
		NewAuditCommand(),
	)

	return rootCmd
}

func loadConfig() error {
	loaded, err := config.Load(configPath)
	if err != nil {
		return err
	}
	v := NewValidator()
	if dbPath != "" {
		resolved, err := v.ResolvePath(dbPath)
		if err != nil {
			return err
		}
		loaded.Storage.Path = resolved
	}
	if loaded.Storage.Path == "" {
		defaultPath, err := v.GetDefaultDatabasePath()
		if err != nil {
			return err
		}
		loaded.Storage.Path = defaultPath
	}
	if apiURL != "" {
		loaded.API.BaseURL = apiURL
		if err := loaded.Validate(); err != nil {
			return err
		}
	}

	if err := logger.Init(loaded.Logging.Level, loaded.Logging.Format, loaded.Logging.OutputPath); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	cfg = loaded
	return nil
}

func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if client.IsAuthError(err) {
			fmt.Fprintln(os.Stderr, "Run 'guidera login' to sign in.")
		}
		var authErr *client.AuthenticationError
		if errors.As(err, &authErr) && authErr.Status == 0 {
			fmt.Fprintln(os.Stderr, "Check --api-url or api.baseURL in your config.")
		}
		os.Exit(1)
	}
}
