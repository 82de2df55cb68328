package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/hmjahid/build-studio/internal/build"
	"github.com/hmjahid/build-studio/internal/errors"
	"github.com/hmjahid/build-studio/internal/manifest"
	"github.com/hmjahid/build-studio/internal/security"
	"github.com/hmjahid/build-studio/internal/watch"
)

var (
	buildStep         string
	buildWatch        bool
	buildNoSandbox    bool
	buildMaxBuildTime time.Duration
	buildFailFast     bool
)

var buildCmd = &cobra.Command{
	Use:   "build <project_dir>",
	Short: "Run the builds listed in a project's buildstudio.config.yaml",
	Long: `Runs every build in <project_dir>/buildstudio.config.yaml in order,
streaming output prefixed with the build name. A failing build is reported
and the remaining builds still run unless --fail-fast is given.

With --watch the builds rerun whenever a file in the project changes.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildStep, "step", "", "Run only the build with this name")
	buildCmd.Flags().BoolVar(&buildWatch, "watch", false, "Rebuild when project files change")
	buildCmd.Flags().BoolVar(&buildNoSandbox, "no-sandbox", false, "Run in the project directory without policy checks")
	buildCmd.Flags().DurationVar(&buildMaxBuildTime, "max-build-time", 0, "Override the maximum build time (e.g. 10m)")
	buildCmd.Flags().BoolVar(&buildFailFast, "fail-fast", false, "Stop at the first failing build")
	rootCmd.AddCommand(buildCmd)
}

// buildPolicy applies the command-line overrides to the configured policy.
func buildPolicy(noSandbox bool, maxBuildTime time.Duration) security.Policy {
	p := current().Policy()
	if noSandbox {
		p.EnableSandbox = false
	}
	if maxBuildTime > 0 {
		p.MaxBuildTime = maxBuildTime
	}
	return p
}

func runBuild(cmd *cobra.Command, args []string) error {
	dir := args[0]
	m, err := manifest.Load(dir)
	if err != nil {
		return err
	}
	steps, err := m.Steps(buildStep)
	if err != nil {
		return err
	}
	policy := buildPolicy(buildNoSandbox, buildMaxBuildTime)

	ctx, cancel := signalContext()
	defer cancel()

	runOnce := func(ctx context.Context) error {
		return runSteps(ctx, cmd, dir, policy, steps)
	}

	if !buildWatch {
		return runOnce(ctx)
	}

	if err := runOnce(ctx); err != nil {
		logWarning("%v", err)
	}
	logInfo("Watching %s for changes (Ctrl-C to stop)", dir)
	return watch.New(dir).Run(ctx, func(ctx context.Context) {
		logInfo("Change detected; rebuilding")
		if err := runOnce(ctx); err != nil {
			logWarning("%v", err)
		}
	})
}

func runSteps(ctx context.Context, cmd *cobra.Command, dir string, policy security.Policy, steps []build.Step) error {
	results, err := current().Engine.RunSteps(ctx, dir, policy, steps, build.StepOptions{
		FailFast: buildFailFast,
		NewObserver: func(s build.Step) build.Observer {
			fmt.Fprintln(cmd.OutOrStdout(), boldStyle.Render(fmt.Sprintf("Running build: %s (platform: %s)", s.Name, platformLabel(s.Platform))))
			return &build.Printer{Out: cmd.OutOrStdout(), Err: cmd.ErrOrStderr(), Prefix: "[" + s.Name + "] "}
		},
	})

	failed, notStarted := 0, 0
	for _, r := range results {
		if !r.Started() {
			notStarted++
			logWarning("Build '%s' was not started: %v", r.Step.Name, r.Err)
			continue
		}
		if r.Err != nil {
			failed++
			logError("Build '%s' failed: %v", r.Step.Name, r.Err)
			continue
		}
		logSuccess("Build '%s' finished successfully in %s", r.Step.Name, r.Outcome.Duration.Round(time.Millisecond))
		if r.Outcome.CleanupErr != nil {
			logWarning("Sandbox %s was not removed: %v", r.Outcome.Sandbox, r.Outcome.CleanupErr)
		}
	}
	if err == nil {
		return nil
	}
	if failed == 1 && notStarted == 0 {
		return err
	}
	msg := fmt.Sprintf("%d of %d builds failed", failed, len(steps))
	if notStarted > 0 {
		msg += fmt.Sprintf(", %d not started", notStarted)
	}
	return errors.Wrap(errors.ExitGeneralError, msg, err)
}

func platformLabel(p string) string {
	if p == "" {
		return "native"
	}
	return p
}
