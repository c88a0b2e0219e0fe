// Package util provides the compiler's diagnostics: error values for each
// failure kind, source-line rendering with a caret underline, and warning
// output gated by the configuration.
package util

import (
	"fmt"
	"os"
	"strings"

	"github.com/tinaxd/tc2/pkg/config"
	"github.com/tinaxd/tc2/pkg/token"
)

// Kind classifies a Diagnostic.
type Kind int

const (
	// LexError: the current position begins no valid token.
	LexError Kind = iota
	// SyntaxError: an expected token or structure is absent.
	SyntaxError
	// SemanticError: undeclared variable, or pointer+pointer arithmetic.
	SemanticError
	// GenError: a structurally invalid AST reached the generator.
	GenError
	// UnsupportedError: a recognized but unimplemented construct.
	UnsupportedError
)

var kindNames = map[Kind]string{
	LexError:         "lexical error",
	SyntaxError:      "syntax error",
	SemanticError:    "semantic error",
	GenError:         "generation error",
	UnsupportedError: "unsupported construct",
}

func (k Kind) String() string { return kindNames[k] }

// Diagnostic is the error value every stage returns on its first failure.
// The whole run aborts when one is produced; there is no recovery.
type Diagnostic struct {
	Kind Kind
	Tok  token.Token
	Msg  string
}

func (d *Diagnostic) Error() string {
	return fmt.Sprintf("%s: %s", kindNames[d.Kind], d.Msg)
}

// Errorf builds a Diagnostic located at tok.
func Errorf(kind Kind, tok token.Token, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Kind: kind, Tok: tok, Msg: fmt.Sprintf(format, args...)}
}

// KindOf returns the diagnostic kind of err, or ok=false for foreign errors.
func KindOf(err error) (Kind, bool) {
	if d, ok := err.(*Diagnostic); ok {
		return d.Kind, true
	}
	return 0, false
}

// Render formats a diagnostic the way the driver prints it: a
// file:line:col prefix, the message, then the offending source line with a
// caret under the token.
func Render(d *Diagnostic, filename string, source []rune) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s:%d:%d: \033[31merror:\033[0m %s: %s\n",
		filename, d.Tok.Line, d.Tok.Column, kindNames[d.Kind], d.Msg)
	writeSourceLine(&sb, d.Tok, source)
	return sb.String()
}

func writeSourceLine(sb *strings.Builder, tok token.Token, source []rune) {
	if tok.Line == 0 || len(source) == 0 {
		return
	}
	lineNum := tok.Line
	lineStart := 0
	for i, r := range source {
		if lineNum <= 1 {
			break
		}
		if r == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}
	lineEnd := len(source)
	for i := lineStart; i < len(source); i++ {
		if source[i] == '\n' {
			lineEnd = i
			break
		}
	}
	fmt.Fprintf(sb, "  %s\n", string(source[lineStart:lineEnd]))
	fmt.Fprintf(sb, "  %s\033[32m^", strings.Repeat(" ", tok.Column-1))
	if tok.Len > 1 {
		fmt.Fprintf(sb, "%s", strings.Repeat("~", tok.Len-1))
	}
	fmt.Fprintln(sb, "\033[0m")
}

// Warn prints a warning to stderr if the corresponding switch is enabled.
func Warn(cfg *config.Config, wt config.Warning, tok token.Token, format string, args ...interface{}) {
	if !cfg.IsWarningEnabled(wt) {
		return
	}
	fmt.Fprintf(os.Stderr, "%d:%d: \033[33mwarning:\033[0m ", tok.Line, tok.Column)
	fmt.Fprintf(os.Stderr, format, args...)
	fmt.Fprintf(os.Stderr, " [-W%s]\n", cfg.WarningName(wt))
}
