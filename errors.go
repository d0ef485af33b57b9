package wave

import (
	"fmt"
	"strings"
)

// ErrorKind is the closed taxonomy of compiler failures.
type ErrorKind int

const (
	// Lexer errors
	ErrUnexpectedToken ErrorKind = iota
	ErrExpectedToken
	ErrUnexpectedChar
	ErrInvalidNumber
	ErrInvalidString
	ErrUnterminatedString
	ErrUnterminatedComment

	// Parser errors
	ErrSyntaxError
	ErrUnexpectedEndOfFile
	ErrInvalidExpression
	ErrInvalidStatement
	ErrInvalidType

	// Import/Module errors
	ErrModuleNotFound
	ErrImportError
	ErrCircularImport

	// Semantic errors
	ErrTypeMismatch
	ErrUndefinedVariable
	ErrUndefinedFunction
	ErrInvalidFunctionCall
	ErrInvalidAssignment

	// Standard library errors
	ErrStandardLibraryNotAvailable
	ErrUnknownStandardLibraryModule
	ErrVexIntegrationRequired

	// Backend errors
	ErrCompilationFailed
	ErrLinkingFailed

	// I/O errors
	ErrFileNotFound
	ErrFileReadError
	ErrFileWriteError
)

var errorKindNames = map[ErrorKind]string{
	ErrUnexpectedToken:              "unexpected token",
	ErrExpectedToken:                "expected token",
	ErrUnexpectedChar:               "unexpected character",
	ErrInvalidNumber:                "invalid number",
	ErrInvalidString:                "invalid string",
	ErrUnterminatedString:           "unterminated string",
	ErrUnterminatedComment:          "unterminated comment",
	ErrSyntaxError:                  "syntax error",
	ErrUnexpectedEndOfFile:          "unexpected end of file",
	ErrInvalidExpression:            "invalid expression",
	ErrInvalidStatement:             "invalid statement",
	ErrInvalidType:                  "invalid type",
	ErrModuleNotFound:               "module not found",
	ErrImportError:                  "import error",
	ErrCircularImport:               "circular import",
	ErrTypeMismatch:                 "mismatched types",
	ErrUndefinedVariable:            "undefined variable",
	ErrUndefinedFunction:            "undefined function",
	ErrInvalidFunctionCall:          "invalid function call",
	ErrInvalidAssignment:            "invalid assignment",
	ErrStandardLibraryNotAvailable:  "standard library not available",
	ErrUnknownStandardLibraryModule: "unknown standard library module",
	ErrVexIntegrationRequired:       "vex integration required",
	ErrCompilationFailed:            "compilation failed",
	ErrLinkingFailed:                "linking failed",
	ErrFileNotFound:                 "file not found",
	ErrFileReadError:                "file read error",
	ErrFileWriteError:               "file write error",
}

func (k ErrorKind) String() string {
	if s, ok := errorKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// Severity of a diagnostic.  Only Error aborts the translation unit.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityNote
	SeverityHelp
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityNote:
		return "note"
	case SeverityHelp:
		return "help"
	}
	return "error"
}

// CompilerError is the structured error produced by every stage of
// the pipeline.  It renders in the familiar `kind: message` /
// `--> file:line:col` / caret-excerpt shape.
type CompilerError struct {
	Kind     ErrorKind
	Message  string
	File     string
	Line     int
	Column   int
	Severity Severity

	Source      string // the offending source line, if known
	Label       string
	Help        string
	Note        string
	Suggestions []string
}

func NewCompilerError(kind ErrorKind, message, file string, line, column int) *CompilerError {
	return &CompilerError{
		Kind:     kind,
		Message:  message,
		File:     file,
		Line:     line,
		Column:   column,
		Severity: SeverityError,
	}
}

func (e *CompilerError) Error() string {
	if e.File == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s (%s:%d:%d)", e.Kind, e.Message, e.File, e.Line, e.Column)
}

func (e *CompilerError) WithSource(source string) *CompilerError {
	e.Source = source
	return e
}

func (e *CompilerError) WithLabel(label string) *CompilerError {
	e.Label = label
	return e
}

func (e *CompilerError) WithHelp(help string) *CompilerError {
	e.Help = help
	return e
}

func (e *CompilerError) WithNote(note string) *CompilerError {
	e.Note = note
	return e
}

func (e *CompilerError) WithSuggestion(s string) *CompilerError {
	e.Suggestions = append(e.Suggestions, s)
	return e
}

func (e *CompilerError) WithSeverity(s Severity) *CompilerError {
	e.Severity = s
	return e
}

// Display renders the diagnostic into a multi-line report:
//
//	error: mismatched types: expected `i32`, found `str`
//	  --> main.wave:4:12
//	  |
//	4 |     let x: i32 = "hi";
//	  |            ^ expected `i32`, found `str`
//	  |
//	   = help: ...
func (e *CompilerError) Display() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s\n", e.Severity, e.Message)
	if e.File != "" {
		fmt.Fprintf(&b, "  --> %s:%d:%d\n", e.File, e.Line, e.Column)
	}
	if e.Source != "" {
		gutter := len(fmt.Sprintf("%d", e.Line))
		pad := strings.Repeat(" ", gutter)
		fmt.Fprintf(&b, "%s |\n", pad)
		fmt.Fprintf(&b, "%d | %s\n", e.Line, e.Source)
		caretPad := strings.Repeat(" ", maxInt(e.Column-1, 0))
		if e.Label != "" {
			fmt.Fprintf(&b, "%s | %s^ %s\n", pad, caretPad, e.Label)
		} else {
			fmt.Fprintf(&b, "%s | %s^\n", pad, caretPad)
		}
		fmt.Fprintf(&b, "%s |\n", pad)
	}
	if e.Note != "" {
		fmt.Fprintf(&b, "   = note: %s\n", e.Note)
	}
	if e.Help != "" {
		fmt.Fprintf(&b, "   = help: %s\n", e.Help)
	}
	for _, s := range e.Suggestions {
		fmt.Fprintf(&b, "   = suggestion: %s\n", s)
	}
	return b.String()
}

// TypeMismatchError builds the canonical expected/found diagnostic.
func TypeMismatchError(expected, found, file string, line, column int) *CompilerError {
	return NewCompilerError(
		ErrTypeMismatch,
		fmt.Sprintf("mismatched types: expected `%s`, found `%s`", expected, found),
		file, line, column,
	).WithLabel(fmt.Sprintf("expected `%s`, found `%s`", expected, found))
}

// UndefinedVariableError builds the canonical not-in-scope diagnostic.
func UndefinedVariableError(name, file string, line, column int) *CompilerError {
	return NewCompilerError(
		ErrUndefinedVariable,
		fmt.Sprintf("cannot find value `%s` in this scope", name),
		file, line, column,
	).WithLabel("not found in this scope").
		WithHelp("make sure the variable is declared before use")
}

// DisplayBatch prints every diagnostic followed by the abort summary
// when one or more carry Error severity.
func DisplayBatch(errs []*CompilerError) string {
	var b strings.Builder
	nerr := 0
	for _, e := range errs {
		b.WriteString(e.Display())
		if e.Severity == SeverityError {
			nerr++
		}
	}
	if nerr == 1 {
		b.WriteString("aborting due to previous error\n")
	} else if nerr > 1 {
		fmt.Fprintf(&b, "aborting due to %d previous errors\n", nerr)
	}
	return b.String()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
