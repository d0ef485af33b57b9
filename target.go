package wave

import (
	"fmt"
	"runtime"
	"strings"
)

// CodegenTarget is the gate over supported platforms.  Only
// x86_64 linux and arm64 darwin pass; everything else aborts with a
// diagnostic before any IR is emitted.
type CodegenTarget int

const (
	TargetLinuxX86_64 CodegenTarget = iota
	TargetDarwinArm64
)

func (t CodegenTarget) String() string {
	switch t {
	case TargetLinuxX86_64:
		return "linux x86_64"
	case TargetDarwinArm64:
		return "darwin arm64"
	}
	return "unknown"
}

// Triple returns the canonical target triple string.
func (t CodegenTarget) Triple() string {
	switch t {
	case TargetLinuxX86_64:
		return "x86_64-unknown-linux-gnu"
	case TargetDarwinArm64:
		return "aarch64-apple-darwin"
	}
	return ""
}

// IntelDialect reports whether inline assembly on this target uses
// the Intel dialect (x86_64 linux) or AT&T (arm64 darwin).
func (t CodegenTarget) IntelDialect() bool {
	return t == TargetLinuxX86_64
}

// TargetFromTriple classifies a triple string, or errors when the
// platform is unsupported.
func TargetFromTriple(triple string) (CodegenTarget, error) {
	t := strings.ToLower(triple)

	isX8664 := strings.HasPrefix(t, "x86_64")
	isArm64 := strings.HasPrefix(t, "arm64") || strings.HasPrefix(t, "aarch64")
	isLinux := strings.Contains(t, "linux")
	isDarwin := strings.Contains(t, "darwin")

	switch {
	case isX8664 && isLinux:
		return TargetLinuxX86_64, nil
	case isArm64 && isDarwin:
		return TargetDarwinArm64, nil
	}
	return 0, NewCompilerError(ErrCompilationFailed,
		fmt.Sprintf("unsupported target triple `%s`: only x86_64 linux and arm64 darwin are supported", triple),
		"", 0, 0)
}

// HostTarget derives the target from the running platform.
func HostTarget() (CodegenTarget, error) {
	arch := runtime.GOARCH
	if arch == "amd64" {
		arch = "x86_64"
	}
	return TargetFromTriple(arch + "-unknown-" + runtime.GOOS)
}
