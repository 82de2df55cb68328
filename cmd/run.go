package cmd

import (
	"fmt"
	"time"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/hmjahid/build-studio/internal/build"
)

var (
	runDir          string
	runPlatform     string
	runNoSandbox    bool
	runMaxBuildTime time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run [flags] -- <command> [args...]",
	Short: "Run a single build command under the security policy",
	Long: `Runs one command through the build engine. A single argument is passed to
the shell verbatim; several arguments are shell-quoted and joined.

Examples:
  build-studio run -- make all
  build-studio run --platform windows -- gcc -o app.exe main.c
  build-studio run --dir ./proj -- 'cd src && make'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runDir, "dir", ".", "Project directory")
	runCmd.Flags().StringVar(&runPlatform, "platform", "", "Target platform (windows, android, wasm, emscripten, ...)")
	runCmd.Flags().BoolVar(&runNoSandbox, "no-sandbox", false, "Run in the project directory without policy checks")
	runCmd.Flags().DurationVar(&runMaxBuildTime, "max-build-time", 0, "Override the maximum build time (e.g. 10m)")
	rootCmd.AddCommand(runCmd)
}

// commandLine turns argv into one shell command.
func commandLine(args []string) string {
	if len(args) == 1 {
		return args[0]
	}
	return shellquote.Join(args...)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	req := build.Request{
		Command:  commandLine(args),
		Dir:      runDir,
		Platform: runPlatform,
		Policy:   buildPolicy(runNoSandbox, runMaxBuildTime),
	}
	printer := &build.Printer{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr()}

	outcome, err := current().Engine.Run(ctx, req, printer)
	if err != nil {
		return err
	}
	if outcome.CleanupErr != nil {
		logWarning("Sandbox %s was not removed: %v", outcome.Sandbox, outcome.CleanupErr)
	}
	if !outcome.Succeeded() {
		return outcome.Err
	}
	logSuccess("%s finished in %s", outcome.Command, outcome.Duration.Round(time.Millisecond))
	if verbose {
		fmt.Fprintf(cmd.ErrOrStderr(), "sandbox: %s\n", outcome.Sandbox)
	}
	return nil
}
