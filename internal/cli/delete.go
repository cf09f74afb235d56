package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func NewClearCommand() *cobra.Command {
	var confirm bool
	var messageID string

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete stored chat history",
		Long:  `Delete every stored message, or a single one with --id. The session token is kept.`,
		Example: `  # Clear all history with confirmation
  guidera clear

  # Delete one message without confirmation prompt
  guidera clear --id 6f1c... --yes`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClear(cmd, messageID, confirm)
		},
	}

	cmd.Flags().StringVar(&messageID, "id", "", "Delete only the message with this ID")
	cmd.Flags().BoolVarP(&confirm, "yes", "y", false, "Skip confirmation prompt")

	return cmd
}

func runClear(cmd *cobra.Command, id string, skipConfirm bool) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	out := cmd.OutOrStdout()

	question := "Delete all stored messages?"
	if id != "" {
		msg, err := store.GetMessage(id)
		if err != nil {
			return fmt.Errorf("failed to get message: %w", err)
		}
		if msg == nil {
			return fmt.Errorf("message not found: %s", id)
		}
		question = fmt.Sprintf("Delete %s message '%s'?", msg.Role, truncate(msg.Content, 40))
	}

	if !skipConfirm {
		fmt.Fprintf(out, "%s [y/N]: ", question)
		line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if answer := strings.TrimSpace(line); answer != "y" && answer != "Y" {
			fmt.Fprintln(out, "Cancelled.")
			return nil
		}
	}

	if id != "" {
		if err := store.DeleteMessage(id); err != nil {
			return fmt.Errorf("failed to delete message: %w", err)
		}
		fmt.Fprintf(out, "✓ Deleted message %s\n", id)
		return nil
	}

	n, err := store.ClearMessages()
	if err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	fmt.Fprintf(out, "✓ Deleted %d messages\n", n)
	return nil
}
