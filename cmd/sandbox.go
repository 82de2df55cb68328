package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hmjahid/build-studio/internal/errors"
	"github.com/hmjahid/build-studio/internal/security"
)

var sandboxCmd = &cobra.Command{
	Use:   "sandbox",
	Short: "Inspect and exercise the security policy",
}

var sandboxValidateCmd = &cobra.Command{
	Use:   "validate <command> [args...]",
	Short: "Check a command against the blocked-command list",
	Long: `Checks a command against the configured blocked-command list.

Tokens are matched as substrings of the whole command line, so "cp" also
blocks "scp" and "rm" blocks "perform".`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		command := commandLine(args)
		policy := current().Policy()
		if token, blocked := security.BlockedToken(command, policy); blocked {
			logError("Blocked: matches %q", token)
			return errors.PolicyViolation(command)
		}
		logSuccess("Allowed: %s", command)
		return nil
	},
}

var sandboxCreateCmd = &cobra.Command{
	Use:   "create <project_dir>",
	Short: "Create a sandbox from the allowed project paths and print its path",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := security.CreateSandbox(args[0], current().Policy())
		if err != nil {
			if path != "" && path != args[0] {
				_ = security.CleanupSandbox(path)
			}
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), path)
		return nil
	},
}

var sandboxCleanupCmd = &cobra.Command{
	Use:   "cleanup <sandbox_path>",
	Short: "Remove a sandbox directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if ok, _ := filepath.Match(security.SandboxPattern, filepath.Base(path)); !ok {
			return errors.ValidationError(fmt.Sprintf("%s is not a sandbox directory", path))
		}
		if err := security.CleanupSandbox(path); err != nil {
			return err
		}
		logSuccess("Removed %s", path)
		return nil
	},
}

func init() {
	sandboxCmd.AddCommand(sandboxValidateCmd, sandboxCreateCmd, sandboxCleanupCmd)
	rootCmd.AddCommand(sandboxCmd)
}
