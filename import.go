package wave

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Loader abstracts how import targets are located and read, so the
// resolver can run against the filesystem or against in-memory
// sources in tests.
type Loader interface {
	// GetPath maps an import path and the importing file's directory
	// to the location of the target file.
	GetPath(importPath, baseDir string) (string, error)

	// GetContent reads the file at a resolved location.
	GetContent(path string) ([]byte, error)

	// Canonical normalizes a resolved location so the same physical
	// file always maps to the same key in the visited set.
	Canonical(path string) (string, error)
}

type RelativeImportLoader struct{}

func NewRelativeImportLoader() *RelativeImportLoader {
	return &RelativeImportLoader{}
}

func (l *RelativeImportLoader) GetPath(importPath, baseDir string) (string, error) {
	name := importPath
	if !strings.HasSuffix(name, ".wave") {
		name += ".wave"
	}
	return filepath.Join(baseDir, name), nil
}

func (l *RelativeImportLoader) GetContent(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (l *RelativeImportLoader) Canonical(path string) (string, error) {
	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	return filepath.Abs(path)
}

type InMemoryImportLoader struct{ files map[string][]byte }

func NewInMemoryImportLoader() *InMemoryImportLoader {
	return &InMemoryImportLoader{files: map[string][]byte{}}
}

func (l *InMemoryImportLoader) Add(path string, content []byte) {
	l.files[path] = content
}

func (l *InMemoryImportLoader) GetPath(importPath, baseDir string) (string, error) {
	name := importPath
	if !strings.HasSuffix(name, ".wave") {
		name += ".wave"
	}
	return filepath.Join(baseDir, name), nil
}

func (l *InMemoryImportLoader) GetContent(path string) ([]byte, error) {
	b, ok := l.files[path]
	if !ok {
		return nil, fmt.Errorf("import not found: %s", path)
	}
	return b, nil
}

func (l *InMemoryImportLoader) Canonical(path string) (string, error) {
	return filepath.Clean(path), nil
}

// StdlibManager locates standard-library modules for `std::` import
// paths.  Manifest handling lives in the package manager; the core
// only asks where a module's source file is.
type StdlibManager interface {
	// ModulePath maps "io::format" to the module's source file.
	ModulePath(module string) (string, error)
}

// HomeStdlibManager resolves std modules under
// $HOME/.wave/lib/wave/std.
type HomeStdlibManager struct {
	root string
}

func NewHomeStdlibManager() *HomeStdlibManager {
	home := os.Getenv("HOME")
	if home == "" {
		return &HomeStdlibManager{}
	}
	return NewStdlibManagerAt(filepath.Join(home, ".wave", "lib", "wave", "std"))
}

// NewStdlibManagerAt pins the stdlib root to an explicit directory.
func NewStdlibManagerAt(root string) *HomeStdlibManager {
	return &HomeStdlibManager{root: root}
}

func (m *HomeStdlibManager) Root() string { return m.root }

func (m *HomeStdlibManager) ModulePath(module string) (string, error) {
	if m.root == "" {
		return "", NewCompilerError(ErrStandardLibraryNotAvailable,
			"HOME is not set; cannot locate the standard library at ~/.wave/lib/wave/std",
			"", 0, 0)
	}
	if strings.TrimSpace(module) == "" {
		return "", NewCompilerError(ErrImportError,
			`std import path cannot be empty (example: import("std::io::format"))`,
			"", 0, 0)
	}
	rel := strings.ReplaceAll(module, "::", string(filepath.Separator))
	path := filepath.Join(m.root, rel+".wave")
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", NewCompilerError(ErrUnknownStandardLibraryModule,
			fmt.Sprintf("could not find standard library module `std::%s` under %s", module, m.root),
			"", 0, 0)
	}
	return path, nil
}

// ImportResolver expands `import("...")` declarations into the
// importing unit, depth first, in textual order.  A file's canonical
// path enters the visited set before its contents are parsed, so
// cyclic imports terminate and every physical file is parsed at most
// once; re-imports expand to nothing.
type ImportResolver struct {
	loader  Loader
	stdlib  StdlibManager
	visited map[string]bool
}

func NewImportResolver(loader Loader, stdlib StdlibManager) *ImportResolver {
	return &ImportResolver{
		loader:  loader,
		stdlib:  stdlib,
		visited: map[string]bool{},
	}
}

// ResolveFile parses the entry file and returns its AST with every
// import node replaced by the imported file's expanded declarations.
func (r *ImportResolver) ResolveFile(path string) ([]TopLevel, error) {
	canonical, err := r.loader.Canonical(path)
	if err != nil {
		return nil, NewCompilerError(ErrFileNotFound,
			fmt.Sprintf("could not resolve `%s`: %v", path, err), path, 0, 0)
	}
	if r.visited[canonical] {
		return nil, nil
	}
	r.visited[canonical] = true

	items, err := r.parseUnit(canonical, path)
	if err != nil {
		return nil, err
	}
	return r.expand(items, filepath.Dir(canonical))
}

// Visited reports whether a canonical path has been resolved.
func (r *ImportResolver) Visited(path string) bool {
	canonical, err := r.loader.Canonical(path)
	if err != nil {
		return false
	}
	return r.visited[canonical]
}

func (r *ImportResolver) parseUnit(canonical, display string) ([]TopLevel, error) {
	content, err := r.loader.GetContent(canonical)
	if err != nil {
		return nil, NewCompilerError(ErrFileReadError,
			fmt.Sprintf("failed to read `%s`: %v", display, err), display, 0, 0)
	}

	lexer := NewLexerWithFile(string(content), display)
	tokens, err := lexer.Tokenize()
	if err != nil {
		return nil, err
	}

	parser := NewParserWithFile(tokens, display, string(content))
	return parser.ParseProgram()
}

// expand replaces import declarations with the contents of their
// targets, resolving nested imports against each target's own
// directory.
func (r *ImportResolver) expand(items []TopLevel, baseDir string) ([]TopLevel, error) {
	var out []TopLevel
	for _, item := range items {
		imp, ok := item.(*ImportDecl)
		if !ok {
			out = append(out, item)
			continue
		}
		expanded, err := r.resolveImport(imp, baseDir)
		if err != nil {
			return nil, err
		}
		out = append(out, expanded...)
	}
	return out, nil
}

func (r *ImportResolver) resolveImport(imp *ImportDecl, baseDir string) ([]TopLevel, error) {
	path := strings.TrimSpace(imp.Path)
	if path == "" {
		return nil, NewCompilerError(ErrImportError,
			"import path cannot be empty", "", imp.Line(), 0)
	}

	var target string
	if rest, ok := strings.CutPrefix(path, "std::"); ok {
		stdPath, err := r.stdlib.ModulePath(rest)
		if err != nil {
			return nil, err
		}
		target = stdPath
	} else if strings.Contains(path, "::") {
		return nil, NewCompilerError(ErrImportError,
			fmt.Sprintf("external imports are not supported: `%s`", path),
			"", imp.Line(), 0)
	} else {
		resolved, err := r.loader.GetPath(path, baseDir)
		if err != nil {
			return nil, NewCompilerError(ErrModuleNotFound,
				fmt.Sprintf("could not resolve import `%s`: %v", path, err),
				"", imp.Line(), 0)
		}
		target = resolved
	}

	canonical, err := r.loader.Canonical(target)
	if err != nil {
		return nil, NewCompilerError(ErrModuleNotFound,
			fmt.Sprintf("could not find import target `%s`", target),
			"", imp.Line(), 0)
	}

	// Insert before parsing: cycles terminate, and a re-import of
	// the same physical file expands to nothing.
	if r.visited[canonical] {
		return nil, nil
	}
	r.visited[canonical] = true

	items, err := r.parseUnit(canonical, target)
	if err != nil {
		return nil, err
	}
	return r.expand(items, filepath.Dir(canonical))
}
