package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jasperwreed/guidera-chat/internal/models"
	"github.com/jasperwreed/guidera-chat/internal/policy"
)

var policyDirection string

func NewPolicyCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Manage compliance policies",
		Long: `List, add and remove the compliance policies applied to your prompts (input)
and to generated content (output).`,
	}

	addCmd := &cobra.Command{
		Use:   "add <description>",
		Short: "Add a policy",
		Example: `  guidera policy add --direction input "no social security numbers"
  guidera policy add -d output "do not mention competitors"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runPolicyAdd,
	}
	removeCmd := &cobra.Command{
		Use:   "remove <description>",
		Short: "Remove a policy by direction and description",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runPolicyRemove,
	}
	for _, c := range []*cobra.Command{addCmd, removeCmd} {
		c.Flags().StringVarP(&policyDirection, "direction", "d", "input", "Policy direction: input or output")
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List input and output policies",
			Args:  cobra.NoArgs,
			RunE:  runPolicyList,
		},
		addCmd,
		removeCmd,
	)

	return cmd
}

func runPolicyList(cmd *cobra.Command, args []string) error {
	return withPolicies(cmd, func(m *policy.Manager) ([]models.CompliancePolicy, error) {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		return m.List(ctx)
	})
}

func runPolicyAdd(cmd *cobra.Command, args []string) error {
	direction, description, err := policyArgs(args)
	if err != nil {
		return err
	}
	return withPolicies(cmd, func(m *policy.Manager) ([]models.CompliancePolicy, error) {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		return m.Add(ctx, direction, description)
	})
}

func runPolicyRemove(cmd *cobra.Command, args []string) error {
	direction, description, err := policyArgs(args)
	if err != nil {
		return err
	}
	return withPolicies(cmd, func(m *policy.Manager) ([]models.CompliancePolicy, error) {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		return m.Remove(ctx, direction, description)
	})
}

func policyArgs(args []string) (string, string, error) {
	d, err := NewValidator().ValidateDirection(policyDirection)
	if err != nil {
		return "", "", err
	}
	return string(d), strings.Join(args, " "), nil
}

func withPolicies(cmd *cobra.Command, fn func(*policy.Manager) ([]models.CompliancePolicy, error)) error {
	a, err := openApp()
	if err != nil {
		return err
	}
	defer a.Close()

	policies, err := fn(policy.NewManager(a.client))
	if err != nil {
		return err
	}
	printPolicies(cmd.OutOrStdout(), policies)
	return nil
}

func printPolicies(w io.Writer, policies []models.CompliancePolicy) {
	if len(policies) == 0 {
		fmt.Fprintln(w, "No policies configured")
		return
	}

	var current models.PolicyDirection
	for _, p := range policies {
		if p.Direction != current {
			current = p.Direction
			fmt.Fprintf(w, "%s policies:\n", strings.ToUpper(string(current[:1]))+string(current[1:]))
		}
		fmt.Fprintf(w, "  [%s] %s\n", p.ID, p.Description)
	}
}
