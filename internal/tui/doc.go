// Package tui provides terminal user interface components for build-studio.
//
// # Node Picker
//
// The picker lists registered nodes grouped by virtualization technology
// and returns the chosen action:
//
//	result, err := tui.RunPicker(manager.List())
//	switch result.Action {
//	case tui.ActionInfo:
//	    // Show result.Node
//	case tui.ActionStart, tui.ActionStop, tui.ActionRemove:
//	    // Apply the verb to result.Node.ID
//	case tui.ActionQuit:
//	    // Exit
//	}
//
// Keys: Enter (info), s (start), x (stop), d (remove), / (filter), q (quit).
// Group headers are skipped during navigation.
//
// # Dependencies
//
// Uses the Charm libraries:
//   - github.com/charmbracelet/bubbletea - TUI framework
//   - github.com/charmbracelet/bubbles - UI components
//   - github.com/charmbracelet/lipgloss - Styling
package tui
