package wave

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Backend drives the external toolchain: it assembles rendered IR
// into object files under ./target, links executables, and can
// assemble a 512-byte boot-sector image.  Child process stderr is
// captured into structured errors, and no partial artifact survives
// a failure.
type Backend struct {
	targetDir string
}

func NewBackend() *Backend {
	return &Backend{targetDir: "target"}
}

func NewBackendAt(dir string) *Backend {
	return &Backend{targetDir: dir}
}

func (b *Backend) ensureTargetDir() error {
	if err := os.MkdirAll(b.targetDir, 0o755); err != nil {
		return NewCompilerError(ErrFileWriteError,
			fmt.Sprintf("unable to create target directory: %v", err), "", 0, 0)
	}
	return nil
}

// CompileIRToObject pipes IR text through the system compiler and
// writes ./target/<stem>.o.
func (b *Backend) CompileIRToObject(ir, stem, optFlag string) (string, error) {
	if err := b.ensureTargetDir(); err != nil {
		return "", err
	}
	objectPath := filepath.Join(b.targetDir, stem+".o")

	args := []string{}
	if optFlag != "" {
		args = append(args, optFlag)
	}
	args = append(args, "-c", "-x", "ir", "-", "-o", objectPath, "-Wno-override-module")

	cmd := exec.Command("clang", args...)
	cmd.Stdin = strings.NewReader(ir)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(objectPath)
		return "", NewCompilerError(ErrCompilationFailed,
			fmt.Sprintf("clang failed: %s", strings.TrimSpace(stderr.String())),
			"", 0, 0)
	}
	return objectPath, nil
}

// LinkObjects links object files into ./target/<output>, always
// pulling in libc and libm.
func (b *Backend) LinkObjects(objects []string, output string, libs, libPaths []string) (string, error) {
	if err := b.ensureTargetDir(); err != nil {
		return "", err
	}
	outPath := filepath.Join(b.targetDir, output)

	args := append([]string{}, objects...)
	for _, path := range libPaths {
		args = append(args, "-L"+path)
	}
	for _, lib := range libs {
		args = append(args, "-l"+lib)
	}
	args = append(args, "-o", outPath, "-lc", "-lm")

	cmd := exec.Command("clang", args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		os.Remove(outPath)
		return "", NewCompilerError(ErrLinkingFailed,
			fmt.Sprintf("link failed: %s", strings.TrimSpace(stderr.String())),
			"", 0, 0)
	}
	return outPath, nil
}

// bootSigLow and bootSigHigh are the BIOS boot sector magic, written
// at offsets 510 and 511 of the 512-byte image.
const (
	bootSectorSize  = 512
	bootSigLow      = 0x55
	bootSigHigh     = 0xAA
	bootLoadAddress = "0x7c00"
)

// BuildBootImage lowers IR to a flat 16-bit binary and pads it to a
// 512-byte boot sector at ./target/<stem>.img.
func (b *Backend) BuildBootImage(ir, stem string) (string, error) {
	if err := b.ensureTargetDir(); err != nil {
		return "", err
	}

	llPath := filepath.Join(b.targetDir, stem+".ll")
	objPath := filepath.Join(b.targetDir, "boot.o")
	binPath := filepath.Join(b.targetDir, "boot.bin")
	imgPath := filepath.Join(b.targetDir, stem+".img")

	if err := os.WriteFile(llPath, []byte(ir), 0o644); err != nil {
		return "", NewCompilerError(ErrFileWriteError,
			fmt.Sprintf("unable to write IR: %v", err), "", 0, 0)
	}
	defer os.Remove(llPath)
	defer os.Remove(objPath)
	defer os.Remove(binPath)

	if err := runTool("llc",
		"-march=x86", "-mattr=+16bit-mode", "-filetype=obj",
		llPath, "-o", objPath); err != nil {
		return "", err
	}

	if err := runTool("ld",
		"-m", "elf_i386", "-Ttext", bootLoadAddress, "--oformat", "binary",
		objPath, "-o", binPath); err != nil {
		return "", err
	}

	bin, err := os.ReadFile(binPath)
	if err != nil {
		return "", NewCompilerError(ErrFileReadError,
			fmt.Sprintf("unable to read boot binary: %v", err), "", 0, 0)
	}
	img, err := PadBootSector(bin)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(imgPath, img, 0o644); err != nil {
		os.Remove(imgPath)
		return "", NewCompilerError(ErrFileWriteError,
			fmt.Sprintf("unable to write boot image: %v", err), "", 0, 0)
	}
	return imgPath, nil
}

// PadBootSector pads code to one sector and stamps the 0x55AA boot
// signature.  Code longer than 510 bytes cannot carry the signature
// and is rejected.
func PadBootSector(code []byte) ([]byte, error) {
	if len(code) > bootSectorSize-2 {
		return nil, NewCompilerError(ErrCompilationFailed,
			fmt.Sprintf("boot code is %d bytes; a boot sector holds at most %d",
				len(code), bootSectorSize-2), "", 0, 0)
	}
	img := make([]byte, bootSectorSize)
	copy(img, code)
	img[510] = bootSigLow
	img[511] = bootSigHigh
	return img, nil
}

// Run executes a linked binary and reports its exit status.
func (b *Backend) Run(path string, args ...string) (int, error) {
	cmd := exec.Command(path, args...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	return -1, NewCompilerError(ErrCompilationFailed,
		fmt.Sprintf("failed to run `%s`: %v", path, err), "", 0, 0)
}

func runTool(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return NewCompilerError(ErrCompilationFailed,
			fmt.Sprintf("%s failed: %s", name, strings.TrimSpace(stderr.String())),
			"", 0, 0)
	}
	return nil
}
