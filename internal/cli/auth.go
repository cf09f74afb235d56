package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	loginEmail    string
	loginPassword string
)

func NewLoginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session token",
		Long: `Authenticate against the Guidera API. The token is kept in the local database
and reused by every other command until it expires.`,
		RunE: runLogin,
	}

	cmd.Flags().StringVarP(&loginEmail, "email", "e", "", "Account email (prompted when omitted)")
	cmd.Flags().StringVarP(&loginPassword, "password", "p", "", "Account password (prompted when omitted)")

	return cmd
}

func runLogin(cmd *cobra.Command, args []string) error {
	in := cmd.InOrStdin()
	reader := bufio.NewReader(in)
	out := cmd.OutOrStdout()

	email := loginEmail
	if email == "" {
		fmt.Fprint(out, "Email: ")
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	if err := NewValidator().ValidateEmail(email); err != nil {
		return err
	}

	password := loginPassword
	if password == "" {
		fmt.Fprint(out, "Password: ")
		p, err := readPassword(in, reader)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(out)
		password = p
	}
	if password == "" {
		return fmt.Errorf("password cannot be empty")
	}

	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := requestContext(cmd)
	defer cancel()

	cred, err := a.client.Login(ctx, email, password)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Logged in as %s\n", email)
	fmt.Fprintf(out, "Session expires %s\n", humanize.Time(cred.Expiry()))
	return nil
}

// readPassword masks input when in is a terminal and falls back to a plain
// line read otherwise.
func readPassword(in io.Reader, reader *bufio.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		b, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(b)), nil
	}
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the stored session token",
		RunE:  runLogout,
	}
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.client.Logout(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
	return nil
}

func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session and configuration status",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "API:      %s\n", a.client.BaseURL())
	fmt.Fprintf(out, "Database: %s\n", a.store.Path())
	fmt.Fprintf(out, "Tradeoff: %.2f\n", cfg.Chat.Tradeoff)
	fmt.Fprintf(out, "Compliance checks: %s\n", onOff(cfg.Chat.ComplianceEnabled))

	cred := a.session.Credential()
	switch {
	case cred.Token == "":
		fmt.Fprintln(out, "Session:  not logged in")
	case a.client.IsAuthenticated():
		fmt.Fprintf(out, "Session:  active, expires %s\n", humanize.Time(cred.Expiry()))
	default:
		fmt.Fprintf(out, "Session:  expired %s\n", humanize.Time(cred.Expiry()))
	}
	return nil
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// requestContext bounds one-shot commands by the configured API timeout.
func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	timeout := cfg.API.Timeout()
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return context.WithTimeout(parent, timeout)
}
