package backend

import (
	"context"
	"fmt"
	"strings"

	"github.com/hmjahid/build-studio/internal/logging"
)

// packageManager describes how to install packages in one image family.
type packageManager struct {
	refresh  []string
	install  []string
	baseline []string
	// languages maps a language to its packages. A nil entry means the
	// language is installed with a shell script instead.
	languages map[string][]string
}

const rustupScript = "curl --proto '=https' --tlsv1.2 -sSf https://sh.rustup.rs | sh -s -- -y"

var (
	aptManager = packageManager{
		refresh:  []string{"apt-get", "update"},
		install:  []string{"apt-get", "install", "-y"},
		baseline: []string{"build-essential", "git", "curl", "wget"},
		languages: map[string][]string{
			"rust":   nil,
			"node":   {"nodejs", "npm"},
			"python": {"python3", "python3-pip"},
			"java":   {"openjdk-11-jdk"},
			"go":     {"golang-go"},
		},
	}
	apkManager = packageManager{
		refresh:  []string{"apk", "update"},
		install:  []string{"apk", "add", "--no-cache"},
		baseline: []string{"build-base", "git", "curl", "wget"},
		languages: map[string][]string{
			"rust":   nil,
			"node":   {"nodejs", "npm"},
			"python": {"python3", "py3-pip"},
			"java":   {"openjdk11"},
			"go":     {"go"},
		},
	}
	yumManager = packageManager{
		refresh:  []string{"yum", "makecache"},
		install:  []string{"yum", "install", "-y"},
		baseline: []string{"gcc", "gcc-c++", "make", "git", "curl", "wget"},
		languages: map[string][]string{
			"rust":   nil,
			"node":   {"nodejs", "npm"},
			"python": {"python3", "python3-pip"},
			"java":   {"java-11-openjdk-devel"},
			"go":     {"golang"},
		},
	}
)

// managerForImage picks the package manager for an image.
func managerForImage(image string) packageManager {
	switch {
	case strings.HasPrefix(image, "alpine"):
		return apkManager
	case strings.HasPrefix(image, "centos"):
		return yumManager
	default:
		return aptManager
	}
}

// InstallReport lists per-language install failures. These never fail node
// creation.
type InstallReport struct {
	Installed []string
	Failed    map[string]error
}

// InstallBuildTools refreshes the package index and installs the baseline
// toolset inside a container, then tries each requested language. Baseline
// failures are returned as an error; language failures go into the report.
func (b *DockerBackend) InstallBuildTools(ctx context.Context, container, image string, languages []string) (InstallReport, error) {
	pm := managerForImage(image)
	report := InstallReport{Failed: make(map[string]error)}

	if err := b.execIn(ctx, container, pm.refresh...); err != nil {
		return report, fmt.Errorf("package index refresh: %w", err)
	}
	if err := b.execIn(ctx, container, append(pm.install, pm.baseline...)...); err != nil {
		return report, fmt.Errorf("baseline tools: %w", err)
	}

	for _, lang := range languages {
		packages, known := pm.languages[lang]
		var err error
		switch {
		case !known:
			err = fmt.Errorf("unsupported language %q", lang)
		case packages == nil:
			err = b.execIn(ctx, container, "sh", "-c", rustupScript)
		default:
			err = b.execIn(ctx, container, append(pm.install, packages...)...)
		}

		if err != nil {
			report.Failed[lang] = err
			continue
		}
		logging.Debug("installed language toolchain", "container", container, "language", lang)
		report.Installed = append(report.Installed, lang)
	}

	return report, nil
}

// execIn runs a command inside a container.
func (b *DockerBackend) execIn(ctx context.Context, container string, command ...string) error {
	args := append([]string{"exec", container}, command...)
	out, err := b.Exec.Execute(ctx, b.Command, args...)
	if err != nil {
		return fmt.Errorf("%s: %w: %s", strings.Join(command, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}
