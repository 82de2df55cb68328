package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/hmjahid/build-studio/internal/app"
	"github.com/hmjahid/build-studio/internal/config"
	"github.com/hmjahid/build-studio/internal/logging"
)

var (
	verbose    bool
	jsonOutput bool
	configPath string
)

// newApp builds the application from the loaded config. Tests replace it
// to inject mock executors and backends.
var newApp = func(cfg *config.Config) *app.App {
	return app.New(app.WithConfig(cfg))
}

var rootCmd = &cobra.Command{
	Use:   "build-studio",
	Short: "Build orchestration for local projects and build nodes",
	Long: `build-studio runs project builds under a security policy and manages
build nodes (containers and virtual machines) on the local host.

Builds:
  - Commands are checked against a blocked-command list
  - Allowed project paths are copied into a throwaway sandbox
  - Platform toolchains are prefixed onto the command
  - Output is streamed live and the maximum build time is enforced

Nodes:
  - Docker containers are created, started, stopped and removed
  - Other technologies are detected and discovered but not provisioned`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Setup(verbose, jsonOutput, os.Stderr)

		if err := config.LoadEnvFile(".env"); err != nil {
			return err
		}
		path := configPath
		if path == "" {
			path = config.DefaultPath()
		}
		cfg, err := config.Load(path)
		if err != nil {
			return err
		}
		logging.Debug("configuration loaded", "path", path, "state_dir", cfg.StateDir)

		app.SetDefault(newApp(cfg))
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to config.toml (default: user config dir)")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
	logError   = logging.UserError
)
