package wave

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Version of the compiler.
const Version = "0.3.0"

// CompileSource lowers a single source string (no import expansion)
// to IR text.  Useful for tests and the expression-level tooling.
func CompileSource(source, file string, cfg *Config) (string, error) {
	lexer := NewLexerWithFile(source, file)
	tokens, err := lexer.Tokenize()
	if err != nil {
		return "", err
	}

	parser := NewParserWithFile(tokens, file, source)
	items, err := parser.ParseProgram()
	if err != nil {
		return "", err
	}

	return compileItems(items, file, cfg)
}

// CompileFile resolves imports from the entry file, validates the
// flattened unit, and lowers it to IR text.
func CompileFile(path string, cfg *Config) (string, error) {
	resolver := NewImportResolver(NewRelativeImportLoader(), NewHomeStdlibManager())
	items, err := resolver.ResolveFile(path)
	if err != nil {
		return "", err
	}
	return compileItems(items, path, cfg)
}

func compileItems(items []TopLevel, file string, cfg *Config) (string, error) {
	validator := NewValidatorWithFile(file)
	if err := validator.Validate(items); err != nil {
		return "", err
	}

	target, err := resolveTarget(cfg)
	if err != nil {
		return "", err
	}

	builder := NewBuilder()
	gen := NewCodeGenerator(builder, target)
	gen.SetFile(file)
	if err := gen.Generate(items); err != nil {
		return "", err
	}
	return builder.Render(), nil
}

func resolveTarget(cfg *Config) (CodegenTarget, error) {
	if cfg != nil {
		if triple := cfg.GetString("target.triple"); triple != "" {
			return TargetFromTriple(triple)
		}
	}
	return HostTarget()
}

// BuildFile compiles a source file down to a linked executable under
// ./target and returns its path.
func BuildFile(path string, cfg *Config) (string, error) {
	ir, err := CompileFile(path, cfg)
	if err != nil {
		return "", err
	}

	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	backend := NewBackend()

	if cfg != nil && cfg.GetBool("backend.boot_image") {
		return backend.BuildBootImage(ir, stem)
	}

	optFlag := ""
	if cfg != nil {
		if level := cfg.GetInt("compiler.optimize"); level > 0 {
			optFlag = fmt.Sprintf("-O%d", level)
		}
	}

	object, err := backend.CompileIRToObject(ir, stem, optFlag)
	if err != nil {
		return "", err
	}
	return backend.LinkObjects([]string{object}, stem, nil, nil)
}

// RunFile compiles, links, and executes a source file, returning the
// program's exit status.
func RunFile(path string, cfg *Config) (int, error) {
	exe, err := BuildFile(path, cfg)
	if err != nil {
		return -1, err
	}
	return NewBackend().Run(exe)
}
