package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jasperwreed/guidera-chat/internal/logger"
	"github.com/jasperwreed/guidera-chat/internal/mockserver"
)

var (
	addr     string
	users    []string
	delay    time.Duration
	lifetime time.Duration
	logLevel string
)

func main() {
	cmd := &cobra.Command{
		Use:   "guidera-mock",
		Short: "Local stand-in for the Guidera API",
		Long: `Serve the Guidera API contract with canned scenarios for local development.
Prompts containing "fail" get a failed compliance verdict, "warn" a warning,
anything else passes.`,
		SilenceUsage: true,
		RunE:         run,
	}

	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	cmd.Flags().StringArrayVar(&users, "user", []string{"demo@guidera.ai:demo"}, "Account as email:password (repeatable)")
	cmd.Flags().DurationVar(&delay, "delay", 0, "Artificial latency for generate requests")
	cmd.Flags().DurationVar(&lifetime, "token-lifetime", mockserver.DefaultTokenLifetime, "Lifetime of issued tokens (0 omits exp)")
	cmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	if err := logger.Init(logLevel, "console", "stderr"); err != nil {
		return err
	}
	defer logger.Sync()

	accounts, err := parseUsers(users)
	if err != nil {
		return err
	}

	handler := mockserver.New(accounts,
		mockserver.WithLogger(logger.L().Named("mock")),
		mockserver.WithDelay(delay),
		mockserver.WithTokenLifetime(lifetime),
	)

	srv := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 5*time.Minute + delay,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("mock server listening", zap.String("addr", addr), zap.Int("users", len(accounts)))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-quit:
	}

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

func parseUsers(entries []string) (map[string]string, error) {
	accounts := make(map[string]string, len(entries))
	for _, entry := range entries {
		email, password, ok := strings.Cut(entry, ":")
		if !ok || email == "" || password == "" {
			return nil, fmt.Errorf("invalid --user %q: want email:password", entry)
		}
		accounts[email] = password
	}
	return accounts, nil
}
