package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hmjahid/build-studio/internal/toolchain"
)

var toolchainCmd = &cobra.Command{
	Use:   "toolchain <platform>",
	Short: "Show the toolchain a platform resolves to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tc := toolchain.NewResolver(current().Config.Toolchains).Resolve(args[0])
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "platform: %s\n", args[0])
		fmt.Fprintf(out, "kind:     %s\n", tc.Kind)
		prefix := strings.Join(tc.CommandPrefix(), "")
		if prefix == "" {
			prefix = "(none)"
		}
		fmt.Fprintf(out, "prefix:   %s\n", prefix)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toolchainCmd)
}
