package cmd

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/lipgloss"

	"github.com/hmjahid/build-studio/internal/app"
	"github.com/hmjahid/build-studio/internal/node"
)

// current returns the application built for this invocation.
func current() *app.App {
	return app.Default
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// syncRegistry fills the in-process registry from the host before a node
// verb runs, so ids created by earlier invocations resolve.
func syncRegistry(ctx context.Context) *node.Manager {
	a := current()
	res, _ := a.Reconcile(ctx)
	for tech, err := range res.Errors {
		logDebugScan(string(tech), err)
	}
	return a.Nodes
}

func logDebugScan(tech string, err error) {
	// Scanners for absent technologies fail routinely; only verbose runs care.
	if verbose {
		logWarning("scan %s: %v", tech, err)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

var (
	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	badStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	boldStyle = lipgloss.NewStyle().Bold(true)
)

func formatState(s node.State) string {
	switch s {
	case node.StateOnline:
		return okStyle.Render("✓ online")
	case node.StateInstalling:
		return dimStyle.Render("○ installing")
	case node.StateOffline:
		return "● offline"
	default:
		return string(s)
	}
}

func formatBool(b bool) string {
	if b {
		return okStyle.Render("✓")
	}
	return badStyle.Render("✗")
}
