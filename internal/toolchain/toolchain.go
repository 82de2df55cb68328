// Package toolchain maps a target platform to the compiler toolchain whose
// command prefix is prepended to a build command.
package toolchain

import (
	"strings"
)

// Kind identifies a toolchain family.
type Kind string

const (
	Native              Kind = "native"
	CrossCompileWindows Kind = "mingw"
	AndroidNDK          Kind = "android-ndk"
	Emscripten          Kind = "emscripten"
	WasmPack            Kind = "wasm-pack"
	Custom              Kind = "custom"
)

const (
	mingwPrefix      = "x86_64-w64-mingw32-"
	androidNDKPrefix = "$ANDROID_NDK_HOME/toolchains/llvm/prebuilt/linux-x86_64/bin/"
)

// Toolchain is a resolved toolchain. Prefix is only meaningful for Custom.
type Toolchain struct {
	Kind   Kind   `json:"kind"`
	Prefix string `json:"prefix,omitempty"`
}

// CommandPrefix returns the fragments prepended to a build command.
func (t Toolchain) CommandPrefix() []string {
	switch t.Kind {
	case CrossCompileWindows:
		return []string{mingwPrefix}
	case AndroidNDK:
		return []string{androidNDKPrefix}
	case Emscripten:
		return []string{"emcc"}
	case WasmPack:
		return []string{"wasm-pack"}
	case Custom:
		if t.Prefix == "" {
			return nil
		}
		return []string{t.Prefix}
	default:
		return nil
	}
}

// Apply prepends the toolchain prefix to command verbatim. No separator or
// shell escaping is inserted: "x86_64-w64-mingw32-" + "gcc" yields the
// cross compiler name.
func (t Toolchain) Apply(command string) string {
	return strings.Join(t.CommandPrefix(), "") + command
}

func (t Toolchain) String() string {
	if t.Kind == Custom {
		return "custom(" + t.Prefix + ")"
	}
	return string(t.Kind)
}

// Resolve maps a platform identifier to a toolchain. Unknown platforms
// resolve to Native.
func Resolve(platform string) Toolchain {
	switch platform {
	case "windows":
		return Toolchain{Kind: CrossCompileWindows}
	case "wasm", "webassembly":
		return Toolchain{Kind: WasmPack}
	case "android":
		return Toolchain{Kind: AndroidNDK}
	case "emscripten":
		return Toolchain{Kind: Emscripten}
	default:
		return Toolchain{Kind: Native}
	}
}

// Resolver resolves platforms with optional per-platform custom prefixes
// taken from configuration. Overrides win over the built-in table.
type Resolver struct {
	Overrides map[string]string
}

// NewResolver creates a Resolver with the given platform to prefix table.
func NewResolver(overrides map[string]string) *Resolver {
	return &Resolver{Overrides: overrides}
}

// Resolve resolves platform, consulting the override table first.
func (r *Resolver) Resolve(platform string) Toolchain {
	if r != nil {
		if prefix, ok := r.Overrides[platform]; ok {
			return Toolchain{Kind: Custom, Prefix: prefix}
		}
	}
	return Resolve(platform)
}
