package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
)

// capture routes the global logger into a buffer for one test.
func capture(t *testing.T, verbose, jsonOutput bool) *bytes.Buffer {
	t.Helper()
	prev, prevVerbose := Logger, Verbose
	t.Cleanup(func() { Logger, Verbose = prev, prevVerbose })

	var buf bytes.Buffer
	Setup(verbose, jsonOutput, &buf)
	return &buf
}

// records decodes JSON log output into one map per line.
func records(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("log line %q is not JSON: %v", line, err)
		}
		out = append(out, rec)
	}
	return out
}

func TestSetup_Levels(t *testing.T) {
	tests := []struct {
		name    string
		verbose bool
		want    []string
	}{
		{"default", false, []string{"INFO", "WARN", "ERROR"}},
		{"verbose", true, []string{"DEBUG", "INFO", "WARN", "ERROR"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := capture(t, tt.verbose, true)
			if Verbose != tt.verbose {
				t.Errorf("Verbose = %v, want %v", Verbose, tt.verbose)
			}

			Debug("capabilities detected", "available", []string{"docker"})
			Info("starting metrics server", "addr", ":9090")
			Warn("failed to write build audit event", "error", "disk full")
			Error("node scan failed", "technology", "virtualbox")

			var levels []string
			for _, rec := range records(t, buf) {
				levels = append(levels, rec["level"].(string))
			}
			if strings.Join(levels, ",") != strings.Join(tt.want, ",") {
				t.Errorf("levels = %v, want %v", levels, tt.want)
			}
		})
	}
}

func TestSetup_TextOutput(t *testing.T) {
	buf := capture(t, false, false)

	Info("build finished", "status", "succeeded")

	output := buf.String()
	if strings.HasPrefix(output, "{") {
		t.Errorf("text handler wrote JSON: %s", output)
	}
	if !strings.Contains(output, "status=succeeded") {
		t.Errorf("Expected key=value attributes, got: %s", output)
	}
}

func TestWith_BuildAttributes(t *testing.T) {
	buf := capture(t, true, true)

	log := With("dir", "/src/app", "platform", "arm64")
	log.Debug("build state", "state", "running")
	log.Warn("build output still open after kill, closing pipes")

	recs := records(t, buf)
	if len(recs) != 2 {
		t.Fatalf("got %d records, want 2", len(recs))
	}
	for _, rec := range recs {
		if rec["dir"] != "/src/app" || rec["platform"] != "arm64" {
			t.Errorf("record %v lost the build attributes", rec)
		}
	}
	if recs[0]["state"] != "running" {
		t.Errorf("state = %v, want running", recs[0]["state"])
	}
}

func TestWith_BindsCurrentLogger(t *testing.T) {
	first := capture(t, false, true)
	log := With("container", "build-studio-1")

	var second bytes.Buffer
	Setup(false, true, &second)
	log.Info("container created")

	if !strings.Contains(first.String(), "container created") {
		t.Error("a derived logger should keep the handler it was created from")
	}
	if second.Len() != 0 {
		t.Errorf("Setup leaked into an existing derived logger: %s", second.String())
	}
}

func TestComponent(t *testing.T) {
	buf := capture(t, false, true)

	Component("discovery").Info("starting node discovery scheduler")

	recs := records(t, buf)
	if len(recs) != 1 || recs[0]["component"] != "discovery" {
		t.Errorf("records = %v, want one tagged with component=discovery", recs)
	}
}

func TestSetup_NilWriter(t *testing.T) {
	capture(t, false, false)
	Setup(false, false, nil)

	if Logger == nil {
		t.Fatal("Logger should not be nil after Setup with nil writer")
	}
	if !Logger.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be enabled after Setup with nil writer")
	}
}

func TestUserOutput(t *testing.T) {
	var out, errOut bytes.Buffer
	oldOut, oldErr := Stdout, Stderr
	Stdout, Stderr = &out, &errOut
	defer func() { Stdout, Stderr = oldOut, oldErr }()

	UserInfo("Running build: %s (platform: %s)", "compile", "native")
	UserSuccess("Build '%s' finished successfully", "compile")
	UserWarning("Build '%s' was not started: %v", "package", "context canceled")
	UserError("%d of %d builds failed", 1, 2)

	wantOut := "ℹ Running build: compile (platform: native)\n✓ Build 'compile' finished successfully\n"
	if got := out.String(); got != wantOut {
		t.Errorf("stdout = %q, want %q", got, wantOut)
	}
	wantErr := "⚠ Build 'package' was not started: context canceled\n✗ 1 of 2 builds failed\n"
	if got := errOut.String(); got != wantErr {
		t.Errorf("stderr = %q, want %q", got, wantErr)
	}
}
