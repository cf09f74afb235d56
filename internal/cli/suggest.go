package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func NewSuggestCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "suggest <prompt>",
		Short: "Ask the service for alternative prompts",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runSuggest,
	}
}

func runSuggest(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := requestContext(cmd)
	defer cancel()

	suggestions, err := a.client.GetSuggestions(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(suggestions) == 0 {
		fmt.Fprintln(out, "No suggestions returned")
		return nil
	}
	for i, s := range suggestions {
		fmt.Fprintf(out, "%d. %s\n", i+1, s)
	}
	return nil
}
