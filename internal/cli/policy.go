package cli

import (
	"sort"

	"github.com/spf13/cobra"

	"github.com/galapoto/todiscope-v3-sub003/internal/policy"
)

// NewPolicyCommand creates the policy command group.
func NewPolicyCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Work with externalization policies",
	}
	cmd.AddCommand(newPolicyValidateCommand(rootOpts))
	return cmd
}

func newPolicyValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <policy-dir>",
		Short: "Validate CUE externalization policies",
		Long: `Load and validate every policy in a directory of CUE files.

Fails on overlapping redacted/anonymized fields, unknown section
visibilities, and malformed CUE.

Example:
  todiscope policy validate ./policies`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{
				Format:    rootOpts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   rootOpts.Verbose,
			}

			policies, err := policy.Load(args[0])
			if err != nil {
				out.Error(ErrorCode(err), "policy validation failed")
				return WrapExitError(ExitFailure, "policy validation failed", err)
			}

			names := make([]string, 0, len(policies))
			for name := range policies {
				names = append(names, name)
			}
			sort.Strings(names)

			return out.Success(map[string]any{
				"policies": names,
				"count":    len(names),
			})
		},
	}
}
