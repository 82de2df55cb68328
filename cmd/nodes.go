package cmd

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hmjahid/build-studio/internal/backend"
	"github.com/hmjahid/build-studio/internal/errors"
	"github.com/hmjahid/build-studio/internal/node"
	"github.com/hmjahid/build-studio/internal/tui"
)

var nodesOutput string

var nodesCmd = &cobra.Command{
	Use:   "nodes",
	Short: "Manage local build nodes",
	Long: `Manage build nodes on this host.

Docker nodes are fully managed. Other technologies are detected and
discovered, and their verbs report that they are not implemented.`,
}

func init() {
	nodesCmd.PersistentFlags().StringVarP(&nodesOutput, "output", "o", "table", "Output format: table or json")
	rootCmd.AddCommand(nodesCmd)
}

func jsonRequested() bool {
	return nodesOutput == "json"
}

var nodesCapsCmd = &cobra.Command{
	Use:   "caps",
	Short: "Detect the virtualization technologies available on this host",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		caps := current().Detector.Detect(cmd.Context())
		if jsonRequested() {
			return writeJSON(cmd.OutOrStdout(), caps)
		}

		table := current().Backends
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TECHNOLOGY\tAVAILABLE\tMANAGED")
		fmt.Fprintln(w, "----------\t---------\t-------")
		for _, t := range backend.Technologies {
			fmt.Fprintf(w, "%s\t%s\t%s\n", t, formatBool(caps.Has(t)), formatBool(table.Implemented(t)))
		}
		return w.Flush()
	},
}

var nodesInfoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show host system information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		info := current().SystemInfo(cmd.Context())
		if jsonRequested() {
			return writeJSON(cmd.OutOrStdout(), info)
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "OS:        %s\n", info.OS)
		fmt.Fprintf(out, "Arch:      %s\n", info.Arch)
		fmt.Fprintf(out, "Memory:    %d MB\n", info.MemoryMB)
		fmt.Fprintf(out, "CPU cores: %d\n", info.CPUCores)
		available := info.VirtualizationSupport.Available()
		if len(available) == 0 {
			fmt.Fprintln(out, "Virtualization: none detected")
			return nil
		}
		fmt.Fprintf(out, "Virtualization: %v\n", available)
		return nil
	},
}

var (
	createPlatform       string
	createMemory         int
	createCPUs           int
	createDisk           int
	createVirtualization string
	createCapabilities   []string
	createLanguages      []string
	createInstallTools   bool
)

var nodesCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a build node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tech, err := backend.ParseTechnology(createVirtualization)
		if err != nil {
			return errors.ValidationError(err.Error())
		}
		cfg := backend.NodeConfig{
			Name:              args[0],
			Platform:          createPlatform,
			MemoryMB:          createMemory,
			CPUCores:          createCPUs,
			DiskGB:            createDisk,
			Virtualization:    tech,
			Capabilities:      createCapabilities,
			Languages:         createLanguages,
			InstallBuildTools: createInstallTools,
		}

		mgr := current().Nodes
		logInfo("Creating node %s (%s)...", cfg.Name, tech)
		id, err := mgr.Create(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		n, err := mgr.Get(id)
		if err != nil {
			return err
		}
		if jsonRequested() {
			return writeJSON(cmd.OutOrStdout(), n)
		}
		logSuccess("Created node %s (%s, %s)", n.Name, n.Technology, n.ID)
		fmt.Fprintln(cmd.OutOrStdout(), n.ID)
		return nil
	},
}

var nodesLsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List build nodes",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		nodes := syncRegistry(cmd.Context()).List()
		if jsonRequested() {
			return writeJSON(cmd.OutOrStdout(), nodes)
		}
		if len(nodes) == 0 {
			logInfo("No nodes found. Create one with: build-studio nodes create <name>")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tKIND\tTECHNOLOGY\tPLATFORM\tSTATE\tLAST SEEN")
		fmt.Fprintln(w, "--\t----\t----\t----------\t--------\t-----\t---------")
		for _, n := range nodes {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				n.ID, n.Name, n.Kind, n.Technology, dash(n.Platform), formatState(n.State), lastSeen(n))
		}
		return w.Flush()
	},
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func lastSeen(n node.Node) string {
	if n.LastSeen == nil {
		return "never"
	}
	return n.LastSeen.Local().Format(time.DateTime)
}

// lifecycleCmd builds the start, stop and rm commands.
func lifecycleCmd(use, short, done string, verb func(*node.Manager, *cobra.Command, string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr := syncRegistry(cmd.Context())
			if err := verb(mgr, cmd, args[0]); err != nil {
				return err
			}
			logSuccess("%s %s", done, args[0])
			return nil
		},
	}
}

var nodesStartCmd = lifecycleCmd("start", "Start a build node", "Started", func(m *node.Manager, cmd *cobra.Command, id string) error {
	return m.Start(cmd.Context(), id)
})

var nodesStopCmd = lifecycleCmd("stop", "Stop a build node", "Stopped", func(m *node.Manager, cmd *cobra.Command, id string) error {
	return m.Stop(cmd.Context(), id)
})

var nodesRmCmd = lifecycleCmd("rm", "Remove a build node and its environment", "Removed", func(m *node.Manager, cmd *cobra.Command, id string) error {
	return m.Remove(cmd.Context(), id)
})

var nodesScanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Discover node environments and reconcile the registry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		res, summary := current().Reconcile(cmd.Context())
		if jsonRequested() {
			errs := make(map[string]string, len(res.Errors))
			for t, err := range res.Errors {
				errs[string(t)] = err.Error()
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"scan":    res,
				"errors":  errs,
				"summary": summary,
			})
		}

		for _, t := range res.Scanned {
			logSuccess("Scanned %s", t)
		}
		for t, err := range res.Errors {
			logWarning("Could not scan %s: %v", t, err)
		}
		logInfo("Found %d environments: %d adopted, %d refreshed, %d dropped",
			len(res.Nodes), len(summary.Adopted), len(summary.Refreshed), len(summary.Dropped))
		return nil
	},
}

var nodesEventsCmd = &cobra.Command{
	Use:   "events <id>",
	Short: "Show the lifecycle events recorded for a node",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		events, err := current().Audit.Events(args[0])
		if err != nil {
			return err
		}
		if jsonRequested() {
			return writeJSON(cmd.OutOrStdout(), events)
		}
		if len(events) == 0 {
			logInfo("No events recorded for %s", args[0])
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tTYPE\tDETAILS")
		for _, e := range events {
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Timestamp.Local().Format(time.DateTime), e.Type, e.Details)
		}
		return w.Flush()
	},
}

var nodesPickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Choose a node interactively and act on it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr := syncRegistry(cmd.Context())
		nodes := mgr.List()
		if len(nodes) == 0 {
			logInfo("No nodes found. Create one with: build-studio nodes create <name>")
			return nil
		}

		result, err := tui.RunPicker(nodes)
		if err != nil {
			return err
		}
		return applyPick(cmd, mgr, result)
	},
}

func applyPick(cmd *cobra.Command, mgr *node.Manager, result tui.PickerResult) error {
	if result.Node == nil {
		return nil
	}
	id := result.Node.ID
	switch result.Action {
	case tui.ActionInfo:
		return writeJSON(cmd.OutOrStdout(), result.Node)
	case tui.ActionStart:
		if err := mgr.Start(cmd.Context(), id); err != nil {
			return err
		}
		logSuccess("Started %s", id)
	case tui.ActionStop:
		if err := mgr.Stop(cmd.Context(), id); err != nil {
			return err
		}
		logSuccess("Stopped %s", id)
	case tui.ActionRemove:
		if err := mgr.Remove(cmd.Context(), id); err != nil {
			return err
		}
		logSuccess("Removed %s", id)
	}
	return nil
}

func init() {
	nodesCreateCmd.Flags().StringVar(&createPlatform, "platform", "linux", "Node platform (linux, alpine, debian, centos, ...)")
	nodesCreateCmd.Flags().IntVar(&createMemory, "memory", 0, "Memory limit in MB (0 for no limit)")
	nodesCreateCmd.Flags().IntVar(&createCPUs, "cpus", 0, "CPU cores (0 for no limit)")
	nodesCreateCmd.Flags().IntVar(&createDisk, "disk", 0, "Disk size in GB")
	nodesCreateCmd.Flags().StringVar(&createVirtualization, "virtualization", string(backend.Auto), "Technology: docker, kvm, virtualbox, ... or auto")
	nodesCreateCmd.Flags().StringSliceVar(&createCapabilities, "capability", nil, "Capability tag (repeatable)")
	nodesCreateCmd.Flags().StringSliceVar(&createLanguages, "language", nil, "Language toolchain to install: rust, node, python, java, go (repeatable)")
	nodesCreateCmd.Flags().BoolVar(&createInstallTools, "install-tools", false, "Install baseline build tools after creation")

	nodesCmd.AddCommand(
		nodesCapsCmd,
		nodesInfoCmd,
		nodesCreateCmd,
		nodesLsCmd,
		nodesStartCmd,
		nodesStopCmd,
		nodesRmCmd,
		nodesScanCmd,
		nodesEventsCmd,
		nodesPickCmd,
	)
}
