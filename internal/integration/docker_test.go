package integration

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/hmjahid/build-studio/internal/audit"
	"github.com/hmjahid/build-studio/internal/errors"
	"github.com/hmjahid/build-studio/internal/node"
)

func TestDocker_NodeLifecycle(t *testing.T) {
	h := NewHarness(t)
	a := h.App()
	ctx := context.Background()

	id := h.CreateNode("lifecycle", "alpine")

	n, err := a.Nodes.Get(id)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if n.ContainerID == "" {
		t.Error("created node has no container id")
	}
	if n.Kind != node.KindLocalDocker {
		t.Errorf("Kind = %s, want %s", n.Kind, node.KindLocalDocker)
	}

	if err := h.WaitForState(id, node.StateOnline, 30*time.Second); err != nil {
		t.Fatal(err)
	}

	if err := a.Nodes.Stop(ctx, id); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if err := h.WaitForState(id, node.StateOffline, 30*time.Second); err != nil {
		t.Fatal(err)
	}

	if err := a.Nodes.Start(ctx, id); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	if err := h.WaitForState(id, node.StateOnline, 30*time.Second); err != nil {
		t.Fatal(err)
	}

	if err := a.Nodes.Remove(ctx, id); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if _, err := a.Nodes.Get(id); errors.GetExitCode(err) != errors.ExitNodeNotFound {
		t.Errorf("Get() after Remove error = %v, want not found", err)
	}

	events, err := a.Audit.Events(id)
	if err != nil {
		t.Fatalf("Events() error: %v", err)
	}
	var types []string
	for _, e := range events {
		types = append(types, string(e.Type))
	}
	want := []string{string(audit.EventCreate), string(audit.EventStop), string(audit.EventStart), string(audit.EventRemove)}
	if strings.Join(types, ",") != strings.Join(want, ",") {
		t.Errorf("events = %v, want %v", types, want)
	}
}

func TestDocker_DiscoveryAcrossInvocations(t *testing.T) {
	h := NewHarness(t)
	id := h.CreateNode("discovered", "alpine")

	second := h.NewApp()
	res, summary := second.Reconcile(context.Background())
	if err := res.Errors["docker"]; err != nil {
		t.Fatalf("docker scan error: %v", err)
	}

	found := false
	for _, adopted := range summary.Adopted {
		if adopted == id {
			found = true
		}
	}
	if !found {
		t.Fatalf("Adopted = %v, want %s", summary.Adopted, id)
	}

	n, err := second.Nodes.Get(id)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	// Adopted nodes are named after their container.
	if want := second.Docker.ContainerName(id); n.Name != want {
		t.Errorf("Name = %q, want %q", n.Name, want)
	}
}
